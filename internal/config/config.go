package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is the EmailRAG backend used when nothing else is configured
	DefaultAPIURL = "http://localhost:8000/api/v1"

	appDir = "mailrag"
)

// APIConfig holds the backend connection settings
type APIConfig struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	Timeout     string `mapstructure:"timeout" yaml:"timeout"`
	SyncTimeout string `mapstructure:"sync_timeout" yaml:"sync_timeout"`
	PageSize    int    `mapstructure:"page_size" yaml:"page_size"`
}

// AccountConfig identifies the signed-in application user
type AccountConfig struct {
	Email       string `mapstructure:"email" yaml:"email"`
	DisplayName string `mapstructure:"display_name" yaml:"display_name"`
	// UserID overrides identity resolution when positive
	UserID int64 `mapstructure:"user_id" yaml:"user_id,omitempty"`
}

// LLMConfig holds the email generation settings
type LLMConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"` // backend, ollama, bedrock
	Model    string `mapstructure:"model" yaml:"model"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Region   string `mapstructure:"region" yaml:"region"`
	Timeout  string `mapstructure:"timeout" yaml:"timeout"`
}

// StorageConfig holds local file locations
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	SavedDir     string `mapstructure:"saved_dir" yaml:"saved_dir"`
	// TokenBackend selects where the auth token lives: keyring or file
	TokenBackend string `mapstructure:"token_backend" yaml:"token_backend"`
}

// KeyBindings maps inbox actions to single keys
type KeyBindings struct {
	Refresh       string `mapstructure:"refresh" yaml:"refresh"`
	LoadMore      string `mapstructure:"load_more" yaml:"load_more"`
	Search        string `mapstructure:"search" yaml:"search"`
	FilterAll     string `mapstructure:"filter_all" yaml:"filter_all"`
	FilterUnread  string `mapstructure:"filter_unread" yaml:"filter_unread"`
	FilterStarred string `mapstructure:"filter_starred" yaml:"filter_starred"`
	ToggleStar    string `mapstructure:"toggle_star" yaml:"toggle_star"`
	Archive       string `mapstructure:"archive" yaml:"archive"`
	Delete        string `mapstructure:"delete" yaml:"delete"`
	Reply         string `mapstructure:"reply" yaml:"reply"`
	Generate      string `mapstructure:"generate" yaml:"generate"`
	SaveMessage   string `mapstructure:"save_message" yaml:"save_message"`
	Quit          string `mapstructure:"quit" yaml:"quit"`
}

// Config holds all configuration for the mailrag client
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Account AccountConfig `mapstructure:"account" yaml:"account"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Keys    KeyBindings   `mapstructure:"keys" yaml:"keys"`

	Theme    string `mapstructure:"theme" yaml:"theme"`
	ThemeDir string `mapstructure:"theme_dir" yaml:"theme_dir"`

	// Logging; empty disables the file logger
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API:     DefaultAPIConfig(),
		LLM:     DefaultLLMConfig(),
		Storage: StorageConfig{TokenBackend: "keyring"},
		Keys:    DefaultKeyBindings(),
		Theme:   "dracula",
		LogFile: "",
	}
}

// DefaultAPIConfig returns the default backend settings
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:     DefaultAPIURL,
		Timeout:     "20s",
		SyncTimeout: "15s",
		PageSize:    20,
	}
}

// DefaultLLMConfig returns default generation settings
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: "backend",
		Model:    "",
		Endpoint: "",
		Region:   "us-east-1",
		Timeout:  "60s",
	}
}

// DefaultKeyBindings returns default keyboard shortcuts
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		Refresh:       "R",
		LoadMore:      "n",
		Search:        "/",
		FilterAll:     "1",
		FilterUnread:  "2",
		FilterStarred: "3",
		ToggleStar:    "s",
		Archive:       "a",
		Delete:        "d",
		Reply:         "r",
		Generate:      "g",
		SaveMessage:   "w",
		Quit:          "q",
	}
}

// LoadConfig reads configuration from configPath (JSON or YAML by extension)
// and applies environment overrides. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	_ = v.BindEnv("api.base_url", "MAILRAG_API_URL", "NEXT_PUBLIC_EMAILRAG_API_URL")
	_ = v.BindEnv("account.user_id", "MAILRAG_USER_ID")
	_ = v.BindEnv("account.email", "MAILRAG_EMAIL")
	_ = v.BindEnv("log_file", "MAILRAG_LOG_FILE")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if ext := strings.TrimPrefix(filepath.Ext(configPath), "."); ext == "" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config %s: %w", configPath, err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", configPath, err)
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultAPIURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.sync_timeout", d.API.SyncTimeout)
	v.SetDefault("api.page_size", d.API.PageSize)
	v.SetDefault("account.email", d.Account.Email)
	v.SetDefault("account.display_name", d.Account.DisplayName)
	v.SetDefault("account.user_id", d.Account.UserID)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.region", d.LLM.Region)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("storage.database_path", d.Storage.DatabasePath)
	v.SetDefault("storage.saved_dir", d.Storage.SavedDir)
	v.SetDefault("storage.token_backend", d.Storage.TokenBackend)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("theme_dir", d.ThemeDir)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate reports settings that cannot work
func (c *Config) Validate() error {
	if c.API.PageSize < 0 {
		return fmt.Errorf("api.page_size must not be negative: %d", c.API.PageSize)
	}
	if c.Account.UserID < 0 {
		return fmt.Errorf("account.user_id must not be negative: %d", c.Account.UserID)
	}
	for name, d := range map[string]string{
		"api.timeout":      c.API.Timeout,
		"api.sync_timeout": c.API.SyncTimeout,
		"llm.timeout":      c.LLM.Timeout,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	switch c.Storage.TokenBackend {
	case "", "keyring", "file":
	default:
		return fmt.Errorf("storage.token_backend must be keyring or file, got %q", c.Storage.TokenBackend)
	}
	return nil
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultConfigDir returns ~/.config/mailrag
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appDir)
}

// DefaultDatabasePath returns the default sqlite path
func DefaultDatabasePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "mailrag.db")
}

// DefaultSavedDir returns the default directory for exported messages
func DefaultSavedDir() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "saved")
}

// DefaultLogFile returns the default log file path
func DefaultLogFile() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "mailrag.log")
}

// SaveConfig writes the configuration as YAML
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// APITimeout returns the parsed backend timeout
func (c *Config) APITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 20*time.Second)
}

// SyncTimeout returns the parsed timeout for background remote syncs
func (c *Config) SyncTimeout() time.Duration {
	return parseDuration(c.API.SyncTimeout, 15*time.Second)
}

// GetLLMTimeout returns parsed timeout for generation
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
