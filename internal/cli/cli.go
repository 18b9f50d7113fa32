// Package cli implements the tilelayout command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilelayout/pkg/buildinfo"
	"github.com/matzehuels/tilelayout/pkg/cache"
	"github.com/matzehuels/tilelayout/pkg/config"
	"github.com/matzehuels/tilelayout/pkg/geometry"
	"github.com/matzehuels/tilelayout/pkg/tree"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = config.AppName

	defaultWidth  = 1920 // default working area width for offline commands
	defaultHeight = 1080 // default working area height for offline commands
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

	// configPath overrides the default config file location.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Tilelayout turns layout trees into tiled window geometry",
		Long:         `Tilelayout is the dynamic tiling engine of a Wayland compositor. It asks an external layout client for a tree of splits, resolves it to window rectangles and keeps user resizes across layout changes.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tilelayout/config.toml)")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.memoryCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Memory
// =============================================================================

// loadConfig reads the config file selected by --config.
func (c *CLI) loadConfig() (config.Config, error) {
	path := c.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Default(), nil
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	c.Logger.Debug("loaded config", "path", path, "backend", cfg.Cache.Backend)
	return cfg, nil
}

// openMemory opens the size memory backend selected by cfg.
func (c *CLI) openMemory(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	var (
		mem cache.Cache
		err error
	)
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendFile:
		var dir string
		if dir, err = cfg.CacheDir(); err == nil {
			mem, err = cache.NewFileCache(dir)
		}
	case config.BackendRedis:
		mem, err = cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	case config.BackendMongo:
		mem, err = cache.NewMongoCache(ctx, cache.MongoConfig{
			URI:        cfg.Cache.MongoURI,
			Database:   cfg.Cache.MongoDatabase,
			Collection: cfg.Cache.MongoCollection,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if err != nil {
		return nil, err
	}
	return cache.Instrumented(mem, "tree"), nil
}

// memoryKeyer returns the key scheme for cfg.
func memoryKeyer(cfg config.Config) cache.Keyer {
	if cfg.Cache.Scope == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Scope+":")
}

// =============================================================================
// Tree Input
// =============================================================================

// areaFlags holds the working area flags shared by the offline commands.
type areaFlags struct {
	x, y          int
	width, height int
}

func (a *areaFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&a.x, "x", 0, "working area x")
	cmd.Flags().IntVar(&a.y, "y", 0, "working area y")
	cmd.Flags().IntVar(&a.width, "width", defaultWidth, "working area width")
	cmd.Flags().IntVar(&a.height, "height", defaultHeight, "working area height")
}

func (a *areaFlags) rect() (geometry.Rect, error) {
	if a.width <= 0 || a.height <= 0 {
		return geometry.Rect{}, fmt.Errorf("invalid working area %dx%d", a.width, a.height)
	}
	return geometry.NewRect(a.x, a.y, a.width, a.height), nil
}

// readTree loads and validates a tree file.
func readTree(path string) (tree.Tree, error) {
	t, err := tree.ReadFile(path)
	if err != nil {
		return tree.Tree{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := tree.ValidateTree(&t); err != nil {
		return tree.Tree{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
