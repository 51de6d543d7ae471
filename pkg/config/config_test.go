package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	verrors "github.com/rednhax/varman/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Hub.URL != DefaultHubURL {
		t.Errorf("hub url = %q", cfg.Hub.URL)
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("cache backend = %q", cfg.Cache.Backend)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
folders = ["/data/AddonPackages"]

[hub]
url = "http://localhost:9000"
cache_ttl = "15m"

[cache]
backend = "redis"
addr = "localhost:6379"

[scheduler]
concurrency = 3
initial_delay = "250ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Hub.URL != "http://localhost:9000" {
		t.Errorf("hub url = %q", cfg.Hub.URL)
	}
	if cfg.Hub.CacheTTL.Std() != 15*time.Minute {
		t.Errorf("cache ttl = %v", cfg.Hub.CacheTTL.Std())
	}
	if cfg.Scheduler.Concurrency != 3 || cfg.Scheduler.InitialDelay.Std() != 250*time.Millisecond {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if len(cfg.Folders) != 1 {
		t.Errorf("folders = %v", cfg.Folders)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "memcached"
`)
	_, err := Load(path)
	if !verrors.Is(err, verrors.ErrCodeInvalidConfig) {
		t.Fatalf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadRejectsRedisWithoutAddr(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "redis"
`)
	if _, err := Load(path); !verrors.Is(err, verrors.ErrCodeInvalidConfig) {
		t.Fatalf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, `folders = [`)
	if _, err := Load(path); !verrors.Is(err, verrors.ErrCodeInvalidConfig) {
		t.Fatalf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadRejectsEmptyFolder(t *testing.T) {
	path := writeConfig(t, `folders = ["/ok", ""]`)
	if _, err := Load(path); !verrors.Is(err, verrors.ErrCodeInvalidFolder) {
		t.Fatalf("error = %v, want INVALID_FOLDER", err)
	}
}
