package main

import (
	"os"
	"strings"
	"time"

	"github.com/caffeineduck/hashcall/executor"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Config is the optional TOML file passed with --config. Flags override it.
type Config struct {
	Executor ExecutorConfig `toml:"executor"`
	Log      LogConfig      `toml:"log"`
}

type ExecutorConfig struct {
	MemoryLimit string `toml:"memory_limit"`
	Timeout     string `toml:"timeout"`
	DiskCache   *bool  `toml:"disk_cache"`
	CacheDir    string `toml:"cache_dir"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func defaultConfig() Config {
	return Config{
		Executor: ExecutorConfig{
			MemoryLimit: "256mb",
			Timeout:     "30s",
			DiskCache:   boolPtr(true),
		},
		Log: LogConfig{Level: "warn"},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	var file Config
	if err := toml.Unmarshal(data, &file); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.merge(file)
	if _, err := cfg.timeout(); err != nil {
		return cfg, err
	}
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// merge overrides c with every field set in o.
func (c *Config) merge(o Config) {
	if o.Executor.MemoryLimit != "" {
		c.Executor.MemoryLimit = o.Executor.MemoryLimit
	}
	if o.Executor.Timeout != "" {
		c.Executor.Timeout = o.Executor.Timeout
	}
	if o.Executor.DiskCache != nil {
		c.Executor.DiskCache = o.Executor.DiskCache
	}
	if o.Executor.CacheDir != "" {
		c.Executor.CacheDir = o.Executor.CacheDir
	}
	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
}

func boolPtr(b bool) *bool { return &b }

func (c Config) timeout() (time.Duration, error) {
	if c.Executor.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Executor.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "executor.timeout %q", c.Executor.Timeout)
	}
	return d, nil
}

// executorOptions translates the config into executor options.
func (c Config) executorOptions() []executor.ExecutorOption {
	opts := []executor.ExecutorOption{executor.WithLogger(log.StandardLogger())}
	if c.Executor.DiskCache != nil && *c.Executor.DiskCache {
		opts = append(opts, executor.WithDiskCache(c.Executor.CacheDir))
	}
	if pages := parseMemoryLimit(c.Executor.MemoryLimit); pages > 0 {
		opts = append(opts, executor.WithMemoryLimit(pages))
	}
	return opts
}

func parseMemoryLimit(s string) uint32 {
	switch strings.ToLower(s) {
	case "1mb":
		return executor.MemoryLimit1MB
	case "16mb":
		return executor.MemoryLimit16MB
	case "64mb":
		return executor.MemoryLimit64MB
	case "256mb":
		return executor.MemoryLimit256MB
	case "1gb":
		return executor.MemoryLimit1GB
	default:
		return 0 // use default
	}
}
