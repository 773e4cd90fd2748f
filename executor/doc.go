// Package executor runs WASM guests that import the hash syscall.
//
// # Overview
//
// The executor owns a wazero runtime with WASI and the host module from
// [hostfunc] installed, and caches compiled guest modules by name. Each
// instance gets its own linear memory; the host functions only ever see the
// memory of the guest that called them.
//
// # Basic Usage
//
//	exec, err := executor.New(hostfunc.NewRegistry())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	guest := executor.NewGuest("actor", wasmBytes)
//	result := exec.Run(ctx, guest, "invoke", nil,
//	    executor.WithInput(1024, data),
//	    executor.WithCapture(4096, 32))
//
// # Instances
//
// For several calls against the same memory, instantiate explicitly:
//
//	inst, err := exec.Instantiate(ctx, guest)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	inst.WriteMemory(0, data)
//	values, err := inst.Call(ctx, "hash", code, 0, n, 1024, 64)
//
// # Limits
//
// [WithMemoryLimit] caps guest memory and [WithTimeout] bounds a Run. A
// timed-out guest is closed by the runtime.
package executor
