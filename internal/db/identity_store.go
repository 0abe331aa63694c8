package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// IdentityStore persists the backend user id resolved for one account email.
// It is the local fallback used when the session store is empty.
type IdentityStore struct {
	db    *sqlx.DB
	email string
	now   func() time.Time
}

// NewIdentityStore creates an identity store scoped to accountEmail
func NewIdentityStore(store *Store, accountEmail string) *IdentityStore {
	if store == nil {
		return nil
	}
	return &IdentityStore{
		db:    store.DB(),
		email: strings.ToLower(strings.TrimSpace(accountEmail)),
		now:   time.Now,
	}
}

// Get returns the stored user id, if any
func (s *IdentityStore) Get(ctx context.Context) (int64, bool, error) {
	if s == nil || s.db == nil {
		return 0, false, fmt.Errorf("identity store not initialized")
	}
	if s.email == "" {
		return 0, false, nil
	}
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT user_id FROM identities WHERE email=?`, s.email)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, id > 0, nil
}

// Set upserts the user id for the account email
func (s *IdentityStore) Set(ctx context.Context, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("identity store not initialized")
	}
	if s.email == "" || userID <= 0 {
		return fmt.Errorf("invalid identity inputs")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO identities(email, user_id, updated_at)
VALUES(?,?,?)
ON CONFLICT(email) DO UPDATE SET user_id=excluded.user_id, updated_at=excluded.updated_at;
`, s.email, userID, s.now().Unix())
	return err
}

// Forget removes the stored identity
func (s *IdentityStore) Forget(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("identity store not initialized")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE email=?`, s.email)
	return err
}
