package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"go.boson/internal/logger"
	"go.yaml.in/yaml/v3"
)

const (
	DefaultCacheSize = "1 MiB"
	DefaultMaxDegree = 64
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Home    string `yaml:"home"`
	DataDir string `yaml:"data_dir"`
	LogDir  string `yaml:"log_dir"`

	LogLevel string `yaml:"log_level"`

	// Sizes are human readable, "64 KiB", "4MB" or plain bytes
	CacheSize      string `yaml:"cache_size"`
	ValueCacheSize string `yaml:"value_cache_size"`

	MaxDegree int  `yaml:"max_degree"`
	MinDegree int  `yaml:"min_degree"`
	ReadOnly  bool `yaml:"read_only"`
}

func Default(paths *Paths) *Config {
	return &Config{
		Home:           paths.Home,
		DataDir:        paths.DataDir,
		LogDir:         paths.LogDir,
		LogLevel:       logger.INFO.String(),
		CacheSize:      DefaultCacheSize,
		ValueCacheSize: "0",
		MaxDegree:      DefaultMaxDegree,
	}
}

func LoadConfig(homeOverride, configOverride string) (*Config, error) {
	paths, err := ResolvePaths(homeOverride, configOverride)
	if err != nil {
		return nil, err
	}

	cfg := Default(paths)

	if f, err := os.Open(paths.Config); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", paths.Config, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// Unset min_degree follows max_degree
	if cfg.MinDegree == 0 {
		cfg.MinDegree = cfg.MaxDegree / 2
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	_ = os.MkdirAll(cfg.DataDir, 0o755)
	_ = os.MkdirAll(cfg.LogDir, 0o755)

	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.CacheBytes(); err != nil {
		return err
	}
	if _, err := c.ValueCacheBytes(); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MaxDegree < 2 || c.MinDegree < 1 || c.MinDegree > c.MaxDegree/2 {
		return fmt.Errorf("%w: degrees %d/%d", ErrInvalidConfig, c.MaxDegree, c.MinDegree)
	}
	return nil
}

func (c *Config) CacheBytes() (int, error) {
	return parseSize("cache_size", c.CacheSize)
}

func (c *Config) ValueCacheBytes() (int, error) {
	return parseSize("value_cache_size", c.ValueCacheSize)
}

func (c *Config) Level() logger.Level {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.INFO
	}
	return level
}

func parseSize(key, s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	if n > 1<<40 {
		return 0, fmt.Errorf("%w: %s %s is too large", ErrInvalidConfig, key, s)
	}
	return int(n), nil
}
