package hostfunc

import (
	"github.com/caffeineduck/hashcall/guestmem"
	"github.com/caffeineduck/hashcall/hashalg"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Hasher implements the hash syscall. It holds no per-call state and is safe
// for concurrent use by any number of guests, each with its own memory.
type Hasher struct {
	logger  log.FieldLogger
	metrics *Metrics
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithLogger sets the logger used for rejected calls.
func WithLogger(l log.FieldLogger) Option {
	return func(h *Hasher) {
		h.logger = l
	}
}

// WithMetrics records call outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(h *Hasher) {
		h.metrics = m
	}
}

// NewHasher creates a Hasher.
func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var defaultHasher = NewHasher()

// Hash computes the digest of mem[inPtr:inPtr+inLen] with the algorithm
// identified by code and writes it to mem[outPtr:]. See [Hasher.Hash].
func Hash(mem guestmem.Memory, code uint64, inPtr, inLen, outPtr, outCap uint32) (uint32, error) {
	return defaultHasher.Hash(mem, code, inPtr, inLen, outPtr, outCap)
}

// Hash returns the number of digest bytes written at outPtr.
//
// Every argument is guest controlled. On failure nothing is written and the
// error is always IllegalArgument. Input and output ranges may overlap: the
// input is copied out of guest memory before the first write.
func (h *Hasher) Hash(mem guestmem.Memory, code uint64, inPtr, inLen, outPtr, outCap uint32) (uint32, error) {
	desc, n, err := h.hash(mem, code, inPtr, inLen, outPtr, outCap)

	algorithm := "unknown"
	if desc.Name != "" {
		algorithm = desc.Name
	}
	h.metrics.observe(algorithm, reason(err), inLen)

	if err != nil {
		h.logger.WithFields(log.Fields{
			"code":    code,
			"in_ptr":  inPtr,
			"in_len":  inLen,
			"out_ptr": outPtr,
			"out_cap": outCap,
			"reason":  reason(err),
		}).Debugf("hash syscall rejected: %v", err)
		return 0, mapError(err)
	}
	return n, nil
}

func (h *Hasher) hash(mem guestmem.Memory, code uint64, inPtr, inLen, outPtr, outCap uint32) (hashalg.Descriptor, uint32, error) {
	desc, err := hashalg.Resolve(hashalg.Code(code))
	if err != nil {
		return hashalg.Descriptor{}, 0, errors.WithMessagef(err, "code 0x%x", code)
	}

	view := guestmem.NewView(mem)

	in, err := view.Validate(inPtr, inLen)
	if err != nil {
		return desc, 0, errors.WithMessage(err, "input")
	}
	out, err := view.Validate(outPtr, outCap)
	if err != nil {
		return desc, 0, errors.WithMessage(err, "output")
	}

	// Must complete before anything is written: out may alias in.
	data, err := view.Read(in)
	if err != nil {
		return desc, 0, errors.WithMessage(err, "read input")
	}

	digest := desc.Sum(data)
	if uint64(len(digest)) > uint64(out.Len()) {
		return desc, 0, errors.WithMessagef(errBufferTooSmall, "need %d", len(digest))
	}

	if err := view.Write(out, digest); err != nil {
		return desc, 0, errors.WithMessage(err, "write digest")
	}
	return desc, uint32(len(digest)), nil
}
