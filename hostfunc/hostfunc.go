package hostfunc

import (
	"context"
	"sort"
	"sync"

	"github.com/caffeineduck/hashcall/guestmem"
	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// ModuleName is the import module guests link the host functions from.
const ModuleName = "crypto"

// HashFuncName is the export name of the hash syscall.
const HashFuncName = "hash"

// Func is a host function exported to guests.
type Func struct {
	Fn         api.GoModuleFunc
	Params     []api.ValueType
	ParamNames []string
	Results    []api.ValueType
}

// Registry holds the host functions instantiated into each runtime.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a registry with the hash syscall registered. opts
// configure its Hasher.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.Register(HashFuncName, NewHasher(opts...).HostFunc())
	return r
}

// Register adds or replaces a host function.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
}

// Get returns the host function registered under name.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	return fn, ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate builds the ModuleName host module in rt.
func (r *Registry) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	b := rt.NewHostModuleBuilder(ModuleName)
	for _, name := range r.List() {
		fn, _ := r.Get(name)
		b.NewFunctionBuilder().
			WithGoModuleFunction(fn.Fn, fn.Params, fn.Results).
			WithParameterNames(fn.ParamNames...).
			Export(name)
	}
	mod, err := b.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "instantiate host module %q", ModuleName)
	}
	return mod, nil
}

// HostFunc returns the wasm binding of Hash:
//
//	hash(code i64, in_ptr i32, in_len i32, out_ptr i32, out_cap i32) -> (written i32, errno i32)
//
// errno is 0 on success. A guest without an exported memory gets
// IllegalArgument for any non-empty range.
func (h *Hasher) HostFunc() Func {
	return Func{
		Fn: api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			var mem guestmem.Memory
			if m := GuestMemory(mod); m != nil {
				mem = m
			}
			n, err := h.Hash(mem,
				stack[0],
				api.DecodeU32(stack[1]),
				api.DecodeU32(stack[2]),
				api.DecodeU32(stack[3]),
				api.DecodeU32(stack[4]),
			)
			stack[0] = api.EncodeU32(n)
			stack[1] = api.EncodeU32(Errno(err))
		}),
		Params: []api.ValueType{
			api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32,
		},
		ParamNames: []string{"code", "in_ptr", "in_len", "out_ptr", "out_cap"},
		Results:    []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
	}
}

// GuestMemory returns the memory exported by mod, or nil if it exports none.
// mod.Memory() cannot be compared against nil: for a module without memory it
// returns a nil pointer wrapped in a non-nil interface.
func GuestMemory(mod api.Module) api.Memory {
	for name := range mod.ExportedMemoryDefinitions() {
		if m := mod.ExportedMemory(name); m != nil {
			return m
		}
	}
	return nil
}
