package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ThemeLoader loads color themes from a directory of YAML files
type ThemeLoader struct {
	themesDir string
}

// NewThemeLoader creates a new theme loader
func NewThemeLoader(themesDir string) *ThemeLoader {
	return &ThemeLoader{themesDir: themesDir}
}

type themeFile struct {
	MailRAG *ColorsConfig `yaml:"mailrag"`
}

// Load returns the named theme. Names without an extension get ".yaml".
// The built-in "dracula" theme needs no file.
func (tl *ThemeLoader) Load(name string) (*ColorsConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "dracula" {
		if tl.themesDir == "" || !fileExists(filepath.Join(tl.themesDir, "dracula.yaml")) {
			return DefaultColors(), nil
		}
	}
	if filepath.Ext(name) == "" {
		name += ".yaml"
	}
	path := name
	if tl.themesDir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(tl.themesDir, name)
	}
	if !fileExists(path) {
		return nil, fmt.Errorf("theme file not found: %s", name)
	}
	return tl.LoadThemeFromFile(path)
}

// LoadThemeFromFile loads a theme from a YAML file, filling unset colors from the defaults
func (tl *ThemeLoader) LoadThemeFromFile(path string) (*ColorsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}
	theme := themeFile{MailRAG: DefaultColors()}
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return nil, fmt.Errorf("failed to parse theme file: %w", err)
	}
	if err := ValidateTheme(theme.MailRAG); err != nil {
		return nil, err
	}
	return theme.MailRAG, nil
}

// ListAvailableThemes returns the theme files in the themes directory
func (tl *ThemeLoader) ListAvailableThemes() ([]string, error) {
	entries, err := os.ReadDir(tl.themesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}
	var themes []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".yaml" {
			themes = append(themes, entry.Name())
		}
	}
	return themes, nil
}

// SaveThemeToFile saves a theme configuration to a YAML file
func (tl *ThemeLoader) SaveThemeToFile(theme *ColorsConfig, filename string) error {
	if err := os.MkdirAll(tl.themesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create themes directory: %w", err)
	}
	data, err := yaml.Marshal(themeFile{MailRAG: theme})
	if err != nil {
		return fmt.Errorf("failed to marshal theme: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tl.themesDir, filename), data, 0o644); err != nil {
		return fmt.Errorf("failed to write theme file: %w", err)
	}
	return nil
}

// ValidateTheme checks that the colors the list depends on are set
func ValidateTheme(theme *ColorsConfig) error {
	if theme == nil {
		return fmt.Errorf("theme is nil")
	}
	required := []struct {
		name  string
		color Color
	}{
		{"Body.FgColor", theme.Body.FgColor},
		{"Email.UnreadColor", theme.Email.UnreadColor},
		{"Email.ReadColor", theme.Email.ReadColor},
	}
	for _, req := range required {
		if req.color == "" {
			return fmt.Errorf("missing required color: %s", req.name)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
