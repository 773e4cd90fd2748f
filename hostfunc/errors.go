package hostfunc

import (
	"fmt"

	"github.com/caffeineduck/hashcall/guestmem"
	"github.com/caffeineduck/hashcall/hashalg"
	"github.com/pkg/errors"
)

// ErrorNumber is the error value a guest observes. It carries no host detail.
type ErrorNumber uint32

const (
	// OK is the errno returned to the guest on success.
	OK ErrorNumber = 0
	// IllegalArgument covers every failure of the hash syscall.
	IllegalArgument ErrorNumber = 1
)

func (e ErrorNumber) Error() string {
	switch e {
	case OK:
		return "ok"
	case IllegalArgument:
		return "illegal argument"
	}
	return fmt.Sprintf("error number %d", uint32(e))
}

var errBufferTooSmall = errors.New("output buffer smaller than digest")

// mapError collapses an internal failure into the guest-visible error. Every
// non-nil error, including ones this package does not recognise, becomes
// IllegalArgument.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	return IllegalArgument
}

// Errno converts the error returned by Hash into the ABI errno.
func Errno(err error) uint32 {
	if err == nil {
		return uint32(OK)
	}
	var n ErrorNumber
	if errors.As(err, &n) {
		return uint32(n)
	}
	return uint32(IllegalArgument)
}

// reason names the internal cause of a rejected call for logs and metrics.
func reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, hashalg.ErrNotFound):
		return "unknown_algorithm"
	case errors.Is(err, guestmem.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, errBufferTooSmall):
		return "buffer_too_small"
	}
	return "internal"
}
