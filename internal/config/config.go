// Package config handles XDG configuration directory, file paths, and
// the config.yaml settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "todosync"

	// SettingsFile is the settings filename inside the config dir.
	SettingsFile = "config.yaml"

	// TokenFile is the stored auth token filename.
	TokenFile = "token.json"

	// OAuthClientFile is the OAuth client credentials filename, used
	// by the google backend login flow.
	OAuthClientFile = "oauth_client.json"

	// BackendREST selects the REST task backend.
	BackendREST = "rest"

	// BackendGoogle selects the Google Tasks backend.
	BackendGoogle = "google"
)

// Settings are the contents of config.yaml.
type Settings struct {
	// API configures the remote task service.
	API APISettings `yaml:"api"`

	// Backend selects the gateway implementation: "rest" (default) or
	// "google".
	Backend string `yaml:"backend"`

	// Auth configures the identity provider used by login.
	Auth AuthSettings `yaml:"auth"`

	// CacheDir overrides the per-user task cache directory.
	CacheDir string `yaml:"cache_dir"`
}

// APISettings configures the REST task backend.
type APISettings struct {
	// BaseURL is the service root, e.g. "https://todo.example.com/api".
	// The gateway appends "/tasks" paths to it.
	BaseURL string `yaml:"base_url"`
}

// AuthSettings configures the OAuth identity provider for login.
type AuthSettings struct {
	AuthURL  string   `yaml:"auth_url"`
	TokenURL string   `yaml:"token_url"`
	ClientID string   `yaml:"client_id"`
	Scopes   []string `yaml:"scopes"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Settings are the parsed config.yaml contents plus environment
	// overrides.
	Settings Settings

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a Config with the default or specified config directory
// and loads settings. A missing config.yaml is not an error; settings
// fall back to environment variables and defaults.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = os.Getenv("TODOSYNC_CONFIG")
	}
	if dir == "" {
		dir = DefaultConfigDir()
	}

	cfg := &Config{Dir: dir}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) loadSettings() error {
	// A .env next to the binary or in the working directory can supply
	// the same variables config.yaml does. Absence is fine.
	_ = godotenv.Load()

	data, err := os.ReadFile(c.SettingsPath())
	if err == nil {
		if err := yaml.Unmarshal(data, &c.Settings); err != nil {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}

	// Environment overrides win over the file.
	if v := os.Getenv("TODOSYNC_API_URL"); v != "" {
		c.Settings.API.BaseURL = v
	}
	if v := os.Getenv("TODOSYNC_BACKEND"); v != "" {
		c.Settings.Backend = v
	}
	if c.Settings.Backend == "" {
		c.Settings.Backend = BackendREST
	}
	return nil
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored auth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// CachePath returns the directory holding per-user task caches.
// Uses the cache_dir setting when present, else the user cache dir.
func (c *Config) CachePath() string {
	if c.Settings.CacheDir != "" {
		return c.Settings.CacheDir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(c.Dir, "cache")
	}
	return filepath.Join(base, AppName)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
