package executor

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Option configures a single Run.
type Option func(*runConfig)

type memoryWrite struct {
	offset uint32
	data   []byte
}

type memoryCapture struct {
	offset uint32
	length uint32
}

type runConfig struct {
	timeout  time.Duration
	writes   []memoryWrite
	captures []memoryCapture
}

func defaultRunConfig() runConfig {
	return runConfig{
		timeout: 30 * time.Second,
	}
}

// WithTimeout sets the maximum execution time.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithInput writes data into guest memory at offset before the call.
func WithInput(offset uint32, data []byte) Option {
	return func(c *runConfig) {
		c.writes = append(c.writes, memoryWrite{offset: offset, data: data})
	}
}

// WithCapture copies length bytes at offset out of guest memory after a
// successful call into Result.Memory.
func WithCapture(offset, length uint32) Option {
	return func(c *runConfig) {
		c.captures = append(c.captures, memoryCapture{offset: offset, length: length})
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	precompile       []Guest
	memoryLimitPages uint32 // Max memory pages (each page = 64KB), 0 = default (4GB)
	logger           log.FieldLogger
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		diskCache:        false,
		memoryLimitPages: 0, // 0 means use wazero default (65536 pages = 4GB)
		logger:           log.StandardLogger(),
	}
}

// WithDiskCache enables persistent compilation cache for faster CLI startup.
// Optionally provide a custom directory; otherwise uses ~/.cache/hashcall or
// XDG_CACHE_HOME/hashcall.
//
// Examples:
//
//	executor.New(registry, executor.WithDiskCache())            // default dir
//	executor.New(registry, executor.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithPrecompile compiles the given guests at Executor creation time.
func WithPrecompile(guests ...Guest) ExecutorOption {
	return func(c *executorConfig) {
		c.precompile = guests
	}
}

// WithMemoryLimit sets the maximum memory available to a guest. Each page is
// 64KB. Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithLogger sets the logger for the executor and, when New builds the
// default registry, for the hash syscall.
func WithLogger(l log.FieldLogger) ExecutorOption {
	return func(c *executorConfig) {
		c.logger = l
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16    // 1 MB
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)
