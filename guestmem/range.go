// Package guestmem validates guest-supplied (pointer, length) pairs against a
// guest's linear memory before any byte of it is touched.
//
// A [Range] can only be produced by [Validate] (or [View.Validate]) and is the
// only way to read or write through a [View]. Pointers are never dereferenced
// during validation.
package guestmem

import (
	"math/bits"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfBounds means a range is not fully inside the addressable
	// memory, or its end does not fit in the 32-bit address space.
	ErrOutOfBounds = errors.New("range out of bounds")

	// ErrInvalidRange means a Range was not produced by Validate, or a write
	// is larger than the range it targets.
	ErrInvalidRange = errors.New("invalid range")
)

// Request is an unvalidated guest range.
type Request struct {
	Ptr uint32
	Len uint32
}

// Range is a Request proven to lie within [0, memory length) for the memory
// length it was validated against. The zero value is not valid.
type Range struct {
	ptr   uint32
	len   uint32
	valid bool
}

// Ptr returns the first guest address of the range.
func (r Range) Ptr() uint32 { return r.ptr }

// Len returns the number of bytes in the range.
func (r Range) Len() uint32 { return r.len }

// End returns the address one past the last byte. It cannot overflow.
func (r Range) End() uint32 { return r.ptr + r.len }

// Valid reports whether r was produced by Validate.
func (r Range) Valid() bool { return r.valid }

// Validate checks that req lies entirely inside a memory of memLen bytes.
//
// A zero-length range is accepted at any pointer up to and including memLen.
// An empty range starting past the end of memory is out of bounds.
// The verdict depends only on (req.Ptr, req.Len, memLen).
func Validate(req Request, memLen uint32) (Range, error) {
	end, carry := bits.Add32(req.Ptr, req.Len, 0)
	if carry != 0 {
		return Range{}, ErrOutOfBounds
	}
	if end > memLen {
		return Range{}, ErrOutOfBounds
	}
	return Range{ptr: req.Ptr, len: req.Len, valid: true}, nil
}
