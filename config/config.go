// Package config provides configuration loading for swapnav using TOML or YAML.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"swapnav/fetcher"
	"swapnav/nav"
)

// Content region settings
type Content struct {
	MainSelector       string `toml:"mainSelector" yaml:"mainSelector"`
	NavigationSelector string `toml:"navigationSelector" yaml:"navigationSelector"`
	Sanitize           bool   `toml:"sanitize" yaml:"sanitize"` // pass fetched markup through the UGC policy
}

// HTTP fetching settings
type Fetcher struct {
	UserAgent      string `toml:"userAgent" yaml:"userAgent"`
	TimeoutSeconds int    `toml:"timeoutSeconds" yaml:"timeoutSeconds"`
	ChromePath     string `toml:"chromePath" yaml:"chromePath"`
	UseBrowser     bool   `toml:"useBrowser" yaml:"useBrowser"` // render pages in headless Chrome
}

// Logging settings
type Log struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // text or json
}

// Config is the main configuration struct
type Config struct {
	Content Content `toml:"content" yaml:"content"`
	Fetcher Fetcher `toml:"fetcher" yaml:"fetcher"`
	Log     Log     `toml:"log" yaml:"log"`
}

// Default returns the default configuration.
func Default() *Config {
	navDefaults := nav.DefaultConfig()
	fetchDefaults := fetcher.DefaultOptions()
	return &Config{
		Content: Content{
			MainSelector:       navDefaults.MainContentSelector,
			NavigationSelector: navDefaults.NavigationSelector,
		},
		Fetcher: Fetcher{
			UserAgent:      fetchDefaults.UserAgent,
			TimeoutSeconds: fetchDefaults.TimeoutSeconds,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "swapnav"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads configuration from path, layering it on top of defaults.
// An empty path means ConfigPath. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, nil // Return defaults if we can't determine path
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Decoding onto the defaults only overwrites keys the file sets, so an
	// explicit false survives.
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing config TOML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config YAML: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Content.MainSelector) == "" {
		return fmt.Errorf("content.mainSelector must not be empty")
	}
	if c.Fetcher.TimeoutSeconds < 0 {
		return fmt.Errorf("fetcher.timeoutSeconds must not be negative")
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Nav returns the controller configuration.
func (c *Config) Nav() nav.Config {
	return nav.Config{
		MainContentSelector: c.Content.MainSelector,
		NavigationSelector:  c.Content.NavigationSelector,
		Sanitize:            c.Content.Sanitize,
	}
}

// FetcherOptions returns the fetcher configuration.
func (c *Config) FetcherOptions() fetcher.Options {
	return fetcher.Options{
		UserAgent:      c.Fetcher.UserAgent,
		TimeoutSeconds: c.Fetcher.TimeoutSeconds,
		ChromePath:     c.Fetcher.ChromePath,
	}
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a slog logger writing to w.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DefaultTOML returns the default configuration as a TOML string.
func DefaultTOML() string {
	return `# swapnav configuration
# Place this file at ~/.config/swapnav/config.toml

[content]
# CSS selector of the region swapped on every navigation
mainSelector = '[role="main"]'
# Elements whose links get aria-current="page" for the displayed URL
navigationSelector = '[role="navigation"]'
# Strip scripts and event handlers from fetched content
sanitize = false

[fetcher]
userAgent = "swapnav/1.0"
timeoutSeconds = 30
# Path to Chrome binary (empty = auto-detect)
chromePath = ""
# Render pages in headless Chrome instead of plain HTTP
useBrowser = false

[log]
# debug, info, warn, error
level = "info"
# text or json
format = "text"
`
}
