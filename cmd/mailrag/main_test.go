package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ajramos/mailrag/internal/config"
	"github.com/ajramos/mailrag/pkg/auth"
	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigPath_Priority(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("MAILRAG_CONFIG", "/env/config.yaml")
		assert.Equal(t, "/flag/config.yaml", getConfigPath("/flag/config.yaml"))
	})

	t.Run("env expands home", func(t *testing.T) {
		t.Setenv("MAILRAG_CONFIG", "~/custom/config.yaml")
		assert.Equal(t, filepath.Join(home, "custom", "config.yaml"), getConfigPath(""))
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("MAILRAG_CONFIG", "")
		assert.Equal(t, config.DefaultConfigPath(), getConfigPath(""))
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, filepath.Join(home, "a", "b"), expandPath("~/a/b"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "rel/path", expandPath("rel/path"))
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Account.Email = "file@example.com"
	cfg.Account.UserID = 7

	applyFlags(cfg, "", " ", 0)
	assert.Equal(t, config.DefaultAPIURL, cfg.API.BaseURL)
	assert.Equal(t, "file@example.com", cfg.Account.Email)
	assert.Equal(t, int64(7), cfg.Account.UserID)

	applyFlags(cfg, "https://api.example.com/v1/", "me@example.com", 42)
	assert.Equal(t, "https://api.example.com/v1", cfg.API.BaseURL)
	assert.Equal(t, "me@example.com", cfg.Account.Email)
	assert.Equal(t, int64(42), cfg.Account.UserID)
}

func TestLLMRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	assert.Equal(t, "us-east-1", llmRegion("us-east-1"))
	assert.Equal(t, "eu-west-1", llmRegion(""))
}

func TestOpenTokenStore(t *testing.T) {
	dir := t.TempDir()

	st, err := openTokenStore("keyring", dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &auth.FileTokenStore{}, st, "falls back to a file without a keyring")

	st, err = openTokenStore("", dir, keyring.NewArrayKeyring(nil))
	require.NoError(t, err)
	assert.IsType(t, &auth.KeyringTokenStore{}, st)

	_, err = openTokenStore("vault", dir, nil)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("", "debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	path := filepath.Join(t.TempDir(), "logs", "mailrag.log")
	logger, err = newLogger(path, "debug")
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	_, err = newLogger(path, "chatty")
	assert.Error(t, err)
}
