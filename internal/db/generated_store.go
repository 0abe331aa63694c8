package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// GeneratedEmail is one AI-generated draft kept in local history
type GeneratedEmail struct {
	ID           int64  `db:"id"`
	AccountEmail string `db:"account_email"`
	Category     string `db:"category"`
	Subcategory  string `db:"subcategory"`
	Prompt       string `db:"prompt"`
	Content      string `db:"content"`
	Provider     string `db:"provider"`
	CreatedAt    int64  `db:"created_at"`
}

// GeneratedStore handles the generated-email history
type GeneratedStore struct {
	db *sqlx.DB
}

// NewGeneratedStore creates a new history store from a base store
func NewGeneratedStore(store *Store) *GeneratedStore {
	if store == nil {
		return nil
	}
	return &GeneratedStore{db: store.DB()}
}

// Save inserts a generated email and returns its id
func (gs *GeneratedStore) Save(ctx context.Context, e *GeneratedEmail) (int64, error) {
	if gs == nil || gs.db == nil {
		return 0, fmt.Errorf("generated store not initialized")
	}
	if e == nil || strings.TrimSpace(e.Prompt) == "" || strings.TrimSpace(e.Content) == "" {
		return 0, fmt.Errorf("invalid generated email inputs")
	}
	res, err := gs.db.NamedExecContext(ctx, `INSERT INTO generated_emails
(account_email, category, subcategory, prompt, content, provider, created_at)
VALUES (:account_email, :category, :subcategory, :prompt, :content, :provider, :created_at)`, e)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

// List returns the newest generated emails for an account
func (gs *GeneratedStore) List(ctx context.Context, accountEmail string, limit int) ([]*GeneratedEmail, error) {
	if gs == nil || gs.db == nil {
		return nil, fmt.Errorf("generated store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*GeneratedEmail
	err := gs.db.SelectContext(ctx, &out, `SELECT id, account_email, category, subcategory, prompt, content, provider, created_at
FROM generated_emails WHERE account_email=? ORDER BY created_at DESC, id DESC LIMIT ?`, accountEmail, limit)
	return out, err
}

// Get returns one generated email; found is false when it does not exist
func (gs *GeneratedStore) Get(ctx context.Context, id int64) (*GeneratedEmail, bool, error) {
	if gs == nil || gs.db == nil {
		return nil, false, fmt.Errorf("generated store not initialized")
	}
	var e GeneratedEmail
	err := gs.db.GetContext(ctx, &e, `SELECT id, account_email, category, subcategory, prompt, content, provider, created_at
FROM generated_emails WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &e, true, nil
}

// Delete removes a generated email
func (gs *GeneratedStore) Delete(ctx context.Context, id int64) error {
	if gs == nil || gs.db == nil {
		return fmt.Errorf("generated store not initialized")
	}
	_, err := gs.db.ExecContext(ctx, `DELETE FROM generated_emails WHERE id=?`, id)
	return err
}
