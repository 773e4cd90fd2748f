package executor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caffeineduck/hashcall/hostfunc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

var (
	ErrClosed         = errors.New("executor closed")
	ErrExportNotFound = errors.New("export not found")
)

// Guest is a WASM module that imports the host functions.
type Guest interface {
	// Name identifies the module. Used as the cache key for compiled modules.
	Name() string

	// Module returns the WASM binary.
	Module() []byte
}

type binaryGuest struct {
	name   string
	binary []byte
}

func (g binaryGuest) Name() string   { return g.name }
func (g binaryGuest) Module() []byte { return g.binary }

// NewGuest wraps a WASM binary as a Guest.
func NewGuest(name string, binary []byte) Guest {
	return binaryGuest{name: name, binary: binary}
}

// Result holds the outcome of a single export call.
type Result struct {
	// Values are the raw results of the export.
	Values []uint64
	// Memory holds the guest memory ranges requested with WithCapture, in
	// order.
	Memory   [][]byte
	Duration time.Duration
	Error    error
}

// Executor manages a wazero runtime with the host functions installed and
// caches compiled guest modules.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[string]wazero.CompiledModule
	registry *hostfunc.Registry
	logger   log.FieldLogger
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor whose guests can import the functions in registry.
// A nil registry installs the default hash syscall.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	if registry == nil {
		registry = hostfunc.NewRegistry(hostfunc.WithLogger(cfg.logger))
	}

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, errors.Wrap(err, "create disk cache")
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	closeAll := func() {
		rt.Close(ctx)
		if cache != nil {
			cache.Close(ctx)
		}
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		closeAll()
		return nil, errors.Wrap(err, "instantiate WASI")
	}
	if _, err := registry.Instantiate(ctx, rt); err != nil {
		closeAll()
		return nil, err
	}

	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[string]wazero.CompiledModule),
		registry: registry,
		logger:   cfg.logger,
	}

	for _, g := range cfg.precompile {
		if _, err := e.getCompiled(ctx, g); err != nil {
			e.Close()
			return nil, errors.Wrapf(err, "precompile %s", g.Name())
		}
	}

	return e, nil
}

// Run instantiates guest, calls export with params and closes the instance.
func (e *Executor) Run(ctx context.Context, guest Guest, export string, params []uint64, opts ...Option) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	inst, err := e.Instantiate(ctx, guest)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}
	defer inst.Close(context.Background())

	for _, w := range cfg.writes {
		if err := inst.WriteMemory(w.offset, w.data); err != nil {
			return Result{Error: err, Duration: time.Since(start)}
		}
	}

	values, err := inst.Call(ctx, export, params...)
	result := Result{Values: values}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.Error = errors.Errorf("timeout after %v", cfg.timeout)
		} else {
			result.Error = err
		}
		result.Duration = time.Since(start)
		return result
	}

	for _, c := range cfg.captures {
		b, err := inst.ReadMemory(c.offset, c.length)
		if err != nil {
			result.Error = err
			break
		}
		result.Memory = append(result.Memory, b)
	}

	result.Duration = time.Since(start)
	return result
}

// Instantiate creates a new instance of guest. Each instance has its own
// linear memory.
func (e *Executor) Instantiate(ctx context.Context, guest Guest) (*Instance, error) {
	compiled, err := e.getCompiled(ctx, guest)
	if err != nil {
		return nil, err
	}

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithName("")

	mod, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "instantiate %s", guest.Name())
	}

	e.logger.WithField("guest", guest.Name()).Debug("guest instantiated")
	return &Instance{mod: mod, name: guest.Name(), logger: e.logger}, nil
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (e *Executor) getCompiled(ctx context.Context, guest Guest) (wazero.CompiledModule, error) {
	name := guest.Name()

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[name]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[name]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, guest.Module())
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", name)
	}

	e.logger.WithField("guest", name).Debug("guest compiled")
	e.compiled[name] = compiled
	return compiled, nil
}

// Registry returns the host functions installed in the runtime.
func (e *Executor) Registry() *hostfunc.Registry {
	return e.registry
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()

	var errs []error
	if err := e.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.cache != nil {
		if err := e.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "hashcall")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "hashcall")
	}
	return filepath.Join(os.TempDir(), "hashcall-cache")
}

// Instance is one instantiated guest.
type Instance struct {
	mod    api.Module
	name   string
	logger log.FieldLogger
}

// Name returns the guest name.
func (i *Instance) Name() string {
	return i.name
}

// Memory returns the guest's exported memory, or nil if it has none.
func (i *Instance) Memory() api.Memory {
	return hostfunc.GuestMemory(i.mod)
}

// WriteMemory copies data into guest memory at offset.
func (i *Instance) WriteMemory(offset uint32, data []byte) error {
	mem := i.Memory()
	if mem == nil {
		return ErrNoMemory
	}
	if !mem.Write(offset, data) {
		return errors.Wrapf(ErrMemoryRange, "write %d bytes at %d", len(data), offset)
	}
	return nil
}

// ReadMemory returns a copy of length bytes of guest memory at offset.
func (i *Instance) ReadMemory(offset, length uint32) ([]byte, error) {
	mem := i.Memory()
	if mem == nil {
		return nil, ErrNoMemory
	}
	b, ok := mem.Read(offset, length)
	if !ok {
		return nil, errors.Wrapf(ErrMemoryRange, "read %d bytes at %d", length, offset)
	}
	return append([]byte(nil), b...), nil
}

// Call invokes the named export.
func (i *Instance) Call(ctx context.Context, export string, params ...uint64) ([]uint64, error) {
	fn := i.mod.ExportedFunction(export)
	if fn == nil {
		return nil, errors.Wrapf(ErrExportNotFound, "%s.%s", i.name, export)
	}
	values, err := fn.Call(ctx, params...)
	if err != nil {
		i.logger.WithFields(log.Fields{"guest": i.name, "export": export}).Debugf("call failed: %v", err)
		return nil, errors.Wrapf(err, "call %s.%s", i.name, export)
	}
	return values, nil
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}

var (
	ErrNoMemory    = errors.New("guest has no exported memory")
	ErrMemoryRange = errors.New("guest memory access out of range")
)
