// Package cli implements the varman command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rednhax/varman/pkg/buildinfo"
	"github.com/rednhax/varman/pkg/cache"
	"github.com/rednhax/varman/pkg/catalog"
	"github.com/rednhax/varman/pkg/config"
	"github.com/rednhax/varman/pkg/hub"
	"github.com/rednhax/varman/pkg/local"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "varman"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "varman",
		Short:        "Varman manages versioned .var package libraries",
		Long:         `Varman tracks a local library of versioned .var packages, resolves their dependency graphs, and checks requirement satisfaction and available updates against the remote hub.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: user config dir)")

	root.AddCommand(c.statusCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.searchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Backends
// =============================================================================

// loadConfig resolves and loads the configuration file.
func (c *CLI) loadConfig() (*config.Config, error) {
	path := c.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Default(), nil
		}
		path = p
	}
	return config.Load(path)
}

// newCache builds the response cache selected by the config.
func newCache(cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Cache.Backend == "none" {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.Backend == "redis" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cache.NewRedisCache(ctx, cfg.Cache.Addr, appName+":")
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// newHub builds a hub client from the config.
func (c *CLI) newHub(cfg *config.Config, noCache bool) (*hub.Client, error) {
	respCache, err := newCache(cfg, noCache)
	if err != nil {
		return nil, err
	}
	opts := []hub.Option{
		hub.WithCache(respCache),
		hub.WithLogger(c.Logger),
	}
	if ttl := cfg.Hub.CacheTTL.Std(); ttl > 0 {
		opts = append(opts, hub.WithCacheTTL(ttl))
	}
	return hub.NewClient(cfg.Hub.URL, opts...), nil
}

// scanLibrary scans the configured folders and builds the local catalog.
func (c *CLI) scanLibrary(cfg *config.Config) ([]local.Package, *catalog.Store, error) {
	src := &local.Source{Folders: cfg.Folders, Logger: c.Logger}

	prog := newProgress(c.Logger)
	pkgs, err := src.Scan()
	if err != nil {
		return nil, nil, err
	}
	store := catalog.NewStore()
	store.Rebuild(local.Records(pkgs))
	prog.done(fmt.Sprintf("Scanned %d packages", len(pkgs)))

	return pkgs, store, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/varman/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// schedulerDefaults maps config values onto scheduler settings, keeping
// the zero-value conventions (0 concurrency means the default, a zero
// delay means the default, negative disables it).
func schedulerDefaults(cfg *config.Config) (int, time.Duration) {
	return cfg.Scheduler.Concurrency, cfg.Scheduler.InitialDelay.Std()
}
