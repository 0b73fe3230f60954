package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/causa/internal/causal"
)

// Config holds causa configuration.
type Config struct {
	API    APIConfig    `toml:"api"`
	Editor EditorConfig `toml:"editor"`
	UI     UIConfig     `toml:"ui"`
	Log    LogConfig    `toml:"log"`
}

// APIConfig points causa at the incident-management backend.
type APIConfig struct {
	BaseURL  string   `toml:"base_url"`
	Timeout  Duration `toml:"timeout"`
	CacheTTL Duration `toml:"cache_ttl"`
}

// EditorConfig controls the node edit dialog.
type EditorConfig struct {
	DefaultLinkType string `toml:"default_link_type"`
	StrictAcyclic   bool   `toml:"strict_acyclic"`
}

// UIConfig controls display options.
type UIConfig struct {
	Color bool `toml:"color"`
}

// LogConfig controls the activity log and diagnostics.
type LogConfig struct {
	Activity bool   `toml:"activity"`
	Level    string `toml:"level"` // "debug", "info", "warn", "error"
}

// Duration is a time.Duration written as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  "http://localhost:8080/api",
			Timeout:  Duration{10 * time.Second},
			CacheTTL: Duration{30 * time.Second},
		},
		Editor: EditorConfig{DefaultLinkType: string(causal.LinkConfirmed), StrictAcyclic: false},
		UI:     UIConfig{Color: true},
		Log:    LogConfig{Activity: true, Level: "warn"},
	}
}

// LinkType returns the configured default link type.
func (c *Config) LinkType() causal.LinkType {
	if c.Editor.DefaultLinkType == "" {
		return causal.LinkConfirmed
	}
	return causal.LinkType(c.Editor.DefaultLinkType)
}

// ConfigDir returns the causa config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "causa")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file. A missing file yields defaults; a malformed
// file yields defaults and the parse error.
func Load() (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return Default(), fmt.Errorf("config parse: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
