package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/99designs/keyring"
)

// SessionTTL is how long a remembered backend user id stays valid
const SessionTTL = 24 * time.Hour

const sessionKey = "emailrag_user_id"

type sessionEntry struct {
	UserID  int64 `json:"user_id"`
	Expires int64 `json:"expires"`
}

// SessionStore remembers the backend user id for the current sign-in in the
// keyring. Entries expire after SessionTTL.
type SessionStore struct {
	ring keyring.Keyring
	now  func() time.Time
}

// NewSessionStore creates a session store on ring
func NewSessionStore(ring keyring.Keyring) *SessionStore {
	return &SessionStore{ring: ring, now: time.Now}
}

// Get returns the remembered user id, if any and not expired
func (s *SessionStore) Get(context.Context) (int64, bool, error) {
	item, err := s.ring.Get(sessionKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("getting credential %q: %w", sessionKey, err)
	}
	var e sessionEntry
	if err := json.Unmarshal(item.Data, &e); err != nil {
		return 0, false, fmt.Errorf("could not parse session entry: %w", err)
	}
	if e.UserID <= 0 || s.now().Unix() >= e.Expires {
		return 0, false, nil
	}
	return e.UserID, true, nil
}

// Set remembers userID for SessionTTL
func (s *SessionStore) Set(_ context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id %d", userID)
	}
	data, err := json.Marshal(sessionEntry{UserID: userID, Expires: s.now().Add(SessionTTL).Unix()})
	if err != nil {
		return err
	}
	if err := s.ring.Set(keyring.Item{Key: sessionKey, Label: "mailrag user id", Data: data}); err != nil {
		return fmt.Errorf("setting credential %q: %w", sessionKey, err)
	}
	return nil
}

// Clear forgets the remembered user id
func (s *SessionStore) Clear() error {
	if err := s.ring.Remove(sessionKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", sessionKey, err)
	}
	return nil
}
