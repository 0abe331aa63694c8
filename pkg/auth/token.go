package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
)

const (
	// ServiceName namespaces keyring entries
	ServiceName = "mailrag"

	tokenKey = "auth_token"
)

// ErrNotAuthenticated is returned when no sign-in token is stored
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenStore persists the backend session token
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
	Delete() error
}

// FileTokenStore keeps the token as JSON in a 0600 file
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore creates a file-backed token store
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

// Load reads the cached token
func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("could not read token file: %w", err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("could not parse token file: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return token, nil
}

// Save writes token to disk, creating the parent directory
func (s *FileTokenStore) Save(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("could not save token: empty token")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not save token: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

// Delete removes the token file; a missing file is not an error
func (s *FileTokenStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not delete token: %w", err)
	}
	return nil
}

// KeyringTokenStore keeps the token in the OS keyring
type KeyringTokenStore struct {
	ring keyring.Keyring
}

// NewKeyringTokenStore wraps an opened keyring
func NewKeyringTokenStore(ring keyring.Keyring) *KeyringTokenStore {
	return &KeyringTokenStore{ring: ring}
}

// Load reads the token from the keyring
func (s *KeyringTokenStore) Load() (*oauth2.Token, error) {
	item, err := s.ring.Get(tokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("getting credential %q: %w", tokenKey, err)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(item.Data, token); err != nil {
		return nil, fmt.Errorf("could not parse stored token: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return token, nil
}

// Save stores token in the keyring
func (s *KeyringTokenStore) Save(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("could not save token: empty token")
	}
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := s.ring.Set(keyring.Item{Key: tokenKey, Label: "mailrag session", Data: data}); err != nil {
		return fmt.Errorf("setting credential %q: %w", tokenKey, err)
	}
	return nil
}

// Delete removes the token from the keyring
func (s *KeyringTokenStore) Delete() error {
	if err := s.ring.Remove(tokenKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", tokenKey, err)
	}
	return nil
}

// OpenKeyring opens the OS keyring, falling back to an encrypted file store
// under dir.
func OpenKeyring(dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt(ServiceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// NewTokenStore returns the store selected by backend ("keyring" or "file").
// The file store lives at <dir>/token.json.
func NewTokenStore(backend, dir string, ring keyring.Keyring) (TokenStore, error) {
	switch backend {
	case "file":
		return NewFileTokenStore(filepath.Join(dir, "token.json")), nil
	case "", "keyring":
		if ring == nil {
			var err error
			if ring, err = OpenKeyring(dir); err != nil {
				return nil, err
			}
		}
		return NewKeyringTokenStore(ring), nil
	}
	return nil, fmt.Errorf("unknown token backend %q", backend)
}

// NewHTTPClient returns a client that sends token as a bearer credential.
// base supplies the transport; nil uses http.DefaultClient.
func NewHTTPClient(ctx context.Context, base *http.Client, token *oauth2.Token) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
}
