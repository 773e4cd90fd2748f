// Package hashcall provides a host-side hash syscall for sandboxed
// WebAssembly guests.
//
// # Overview
//
// A guest imports "crypto"."hash" and passes an algorithm code plus pointers
// into its own linear memory. The host validates every pointer and length
// before touching memory, computes the digest and writes it back. Any failure
// reaches the guest as a single error number, IllegalArgument.
//
// # Packages
//
//   - hashalg: the fixed table of supported algorithms (multicodec codes)
//   - guestmem: overflow-safe range validation and bounds-checked memory access
//   - hostfunc: the hash dispatcher, error mapping and the wazero binding
//   - executor: runs guest modules with the host module installed
//
// # Basic Usage
//
//	exec, _ := executor.New(hostfunc.NewRegistry())
//	defer exec.Close()
//
//	guest := executor.NewGuest("actor", wasmBytes)
//	result := exec.Run(ctx, guest, "invoke", nil)
//
// Hosts that manage memory themselves can call the dispatcher directly:
//
//	n, err := hostfunc.Hash(mem, uint64(hashalg.Sha2_256), inPtr, inLen, outPtr, outCap)
//	if err != nil {
//	    // hostfunc.Errno(err) == 1
//	}
//
// # Algorithms
//
//	sha2-256     0x12    32 bytes
//	keccak-256   0x1b    32 bytes
//	ripemd-160   0x1053  20 bytes
//	blake2b-256  0xb220  32 bytes
//	blake2b-512  0xb240  64 bytes
package hashcall
