// Package config loads the varman configuration file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	verrors "github.com/rednhax/varman/pkg/errors"
)

// DefaultHubURL is the public hub endpoint used when none is configured.
const DefaultHubURL = "https://hub.virtamate.com"

// Config is the full varman configuration.
type Config struct {
	Folders []string `toml:"folders"`

	Hub       Hub       `toml:"hub"`
	Cache     Cache     `toml:"cache"`
	Scheduler Scheduler `toml:"scheduler"`
}

// Hub configures the remote index client.
type Hub struct {
	URL      string   `toml:"url"`
	CacheTTL duration `toml:"cache_ttl"`
}

// Cache selects the response cache backend.
type Cache struct {
	Backend string `toml:"backend"` // "file", "redis" or "none"
	Dir     string `toml:"dir"`     // file backend; empty means the user cache dir
	Addr    string `toml:"addr"`    // redis backend, host:port
}

// Scheduler tunes background status evaluation.
type Scheduler struct {
	Concurrency  int      `toml:"concurrency"`
	InitialDelay duration `toml:"initial_delay"`
}

// duration lets TOML carry values like "500ms" or "15m".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Hub:   Hub{URL: DefaultHubURL},
		Cache: Cache{Backend: "file"},
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "varman", "config.toml"), nil
}

// Load reads a TOML config file, filling unset fields with defaults.
// A missing file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, verrors.Wrap(verrors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "", "file", "redis", "none":
	default:
		return verrors.New(verrors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Addr == "" {
		return verrors.New(verrors.ErrCodeInvalidConfig, "redis cache backend requires addr")
	}
	if c.Scheduler.Concurrency < 0 {
		return verrors.New(verrors.ErrCodeInvalidConfig, "scheduler concurrency must be >= 0")
	}
	for _, f := range c.Folders {
		if f == "" {
			return verrors.New(verrors.ErrCodeInvalidFolder, "empty folder entry")
		}
	}
	return nil
}
