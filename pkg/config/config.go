// Package config loads the tilelayout configuration file.
//
// The file is TOML. Every key is optional; a missing file yields
// [Default]. Durations are written as Go duration strings ("2s", "720h").
//
//	[engine]
//	request_timeout = "2s"
//	min_proportion = 0.1
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[[outputs]]
//	name = "DP-1"
//	width = 2560
//	height = 1440
//	windows = 3
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	tlerrors "github.com/matzehuels/tilelayout/pkg/errors"
)

// AppName is used for default directories.
const AppName = "tilelayout"

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Duration is a time.Duration that decodes from a duration string.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the full configuration.
type Config struct {
	Engine  Engine   `toml:"engine"`
	Cache   Cache    `toml:"cache"`
	Inspect Inspect  `toml:"inspect"`
	Client  Client   `toml:"client"`
	Outputs []Output `toml:"outputs"`
}

// Engine tunes the layout dispatcher.
type Engine struct {
	RequestTimeout    Duration `toml:"request_timeout"`
	MinProportion     float32  `toml:"min_proportion"`
	OutboxSize        int      `toml:"outbox_size"`
	MemoryLoadTimeout Duration `toml:"memory_load_timeout"`
}

// Cache selects the size memory backend.
type Cache struct {
	Backend         string   `toml:"backend"`
	TTL             Duration `toml:"ttl"`
	Dir             string   `toml:"dir"`
	RedisAddr       string   `toml:"redis_addr"`
	RedisPassword   string   `toml:"redis_password"`
	RedisDB         int      `toml:"redis_db"`
	MongoURI        string   `toml:"mongo_uri"`
	MongoDatabase   string   `toml:"mongo_database"`
	MongoCollection string   `toml:"mongo_collection"`
	// Scope prefixes every key, keeping seats apart on shared backends.
	Scope string `toml:"scope"`
}

// Inspect configures the debug HTTP API. An empty Addr disables it.
type Inspect struct {
	Addr string `toml:"addr"`
}

// Client configures the layout client connection.
type Client struct {
	Socket       string `toml:"socket"`
	MaxFrameSize int    `toml:"max_frame_size"`
}

// Output is a statically configured output for headless operation.
type Output struct {
	Name    string   `toml:"name"`
	X       int      `toml:"x"`
	Y       int      `toml:"y"`
	Width   int      `toml:"width"`
	Height  int      `toml:"height"`
	Windows int      `toml:"windows"`
	Tags    []uint32 `toml:"tags"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: Engine{
			RequestTimeout:    Duration{2 * time.Second},
			MinProportion:     0.1,
			OutboxSize:        64,
			MemoryLoadTimeout: Duration{250 * time.Millisecond},
		},
		Cache: Cache{
			Backend:         BackendFile,
			TTL:             Duration{720 * time.Hour},
			RedisAddr:       "localhost:6379",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   AppName,
			MongoCollection: "size_memory",
		},
		Client: Client{
			MaxFrameSize: 1 << 20,
		},
	}
}

// Parse decodes TOML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, tlerrors.Wrap(tlerrors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, tlerrors.New(tlerrors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the file at path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// DefaultPath returns $XDG_CONFIG_HOME/tilelayout/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, "config.toml"), nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return tlerrors.New(tlerrors.ErrCodeInvalidConfig, format, args...)
	}

	if c.Engine.RequestTimeout.Duration <= 0 {
		return invalid("engine.request_timeout must be positive")
	}
	if c.Engine.MinProportion <= 0 || c.Engine.MinProportion >= 1 {
		return invalid("engine.min_proportion must be in (0, 1), got %v", c.Engine.MinProportion)
	}
	if c.Engine.OutboxSize < 1 {
		return invalid("engine.outbox_size must be at least 1")
	}
	if c.Engine.MemoryLoadTimeout.Duration < 0 {
		return invalid("engine.memory_load_timeout must not be negative")
	}

	switch c.Cache.Backend {
	case BackendNone, BackendFile:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return invalid("cache.redis_addr is required for the redis backend")
		}
	case BackendMongo:
		if c.Cache.MongoURI == "" || c.Cache.MongoDatabase == "" || c.Cache.MongoCollection == "" {
			return invalid("cache.mongo_uri, mongo_database and mongo_collection are required for the mongo backend")
		}
	default:
		return invalid("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return invalid("cache.ttl must not be negative")
	}
	if c.Client.MaxFrameSize < 1 {
		return invalid("client.max_frame_size must be positive")
	}

	seen := make(map[string]bool, len(c.Outputs))
	for i, o := range c.Outputs {
		if err := tlerrors.ValidateOutputName(o.Name); err != nil {
			return tlerrors.Wrap(tlerrors.ErrCodeInvalidConfig, err, "outputs[%d]", i)
		}
		if seen[o.Name] {
			return invalid("duplicate output %q", o.Name)
		}
		seen[o.Name] = true
		if o.Width <= 0 || o.Height <= 0 {
			return invalid("output %q needs a positive width and height", o.Name)
		}
		if o.Windows < 0 {
			return invalid("output %q has a negative window count", o.Name)
		}
	}
	return nil
}

// CacheDir returns the configured file cache directory, or
// $XDG_CACHE_HOME/tilelayout/memory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, "memory"), nil
}
