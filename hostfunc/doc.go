// Package hostfunc implements the host side of the hash syscall for
// sandboxed WASM guests.
//
// # Overview
//
// A guest asks for the digest of one of the algorithms in [hashalg] over a
// byte range of its own linear memory and names a second range to receive
// it. Both ranges are validated with [guestmem] before any access:
//
//	n, err := hostfunc.Hash(mem, uint64(hashalg.Sha2_256), inPtr, inLen, outPtr, outCap)
//
// # Errors
//
// The only error a guest can observe is [IllegalArgument]. Unknown codes,
// out-of-bounds ranges, 32-bit address overflow and an output buffer smaller
// than the digest all map to it, and nothing is written to guest memory when
// it is returned. The internal cause is logged at debug level and counted in
// [Metrics].
//
// # WASM Binding
//
// [Registry] instantiates the host module "crypto" into a wazero runtime.
// Guests import it as:
//
//	(import "crypto" "hash"
//	  (func (param i64 i32 i32 i32 i32) (result i32 i32)))
//
// The first result is the number of bytes written, the second the errno.
package hostfunc
