package hostfunc_test

import (
	"bytes"
	"crypto/sha256"
	"math"
	"sync"
	"testing"

	"github.com/caffeineduck/hashcall/guestmem"
	"github.com/caffeineduck/hashcall/hashalg"
	"github.com/caffeineduck/hashcall/hostfunc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
	"golang.org/x/crypto/sha3"
)

const (
	memSize = 1024
	inPtr   = 100
	outPtr  = 512
	outCap  = 64
)

var quickFox = []byte("the quick fox jumped over the lazy dog")

func newMemory(t *testing.T, input []byte) *guestmem.Buffer {
	t.Helper()
	mem := guestmem.NewBuffer(memSize)
	require.True(t, mem.Write(inPtr, input))
	return mem
}

func snapshot(mem *guestmem.Buffer) []byte {
	return append([]byte(nil), mem.Bytes()...)
}

func reference(code hashalg.Code, data []byte) []byte {
	switch code {
	case hashalg.Sha2_256:
		h := sha256.Sum256(data)
		return h[:]
	case hashalg.Keccak256:
		h := sha3.NewLegacyKeccak256()
		h.Write(data)
		return h.Sum(nil)
	case hashalg.Ripemd160:
		h := ripemd160.New()
		h.Write(data)
		return h.Sum(nil)
	case hashalg.Blake2b256:
		h := blake2b.Sum256(data)
		return h[:]
	case hashalg.Blake2b512:
		h := blake2b.Sum512(data)
		return h[:]
	}
	return nil
}

func TestHashMatchesReference(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{quickFox, []byte("foo bar baz boxy"), bytes.Repeat([]byte{0xAB}, 300)}
	for _, d := range hashalg.All() {
		for _, in := range inputs {
			mem := newMemory(t, in)

			n, err := hostfunc.Hash(mem, uint64(d.Code), inPtr, uint32(len(in)), outPtr, outCap)
			require.NoError(t, err, d.Name)
			require.Equal(t, uint32(d.Size), n, d.Name)
			assert.Equal(t, reference(d.Code, in), mem.Bytes()[outPtr:outPtr+n], d.Name)
		}
	}
}

func TestHashDigestSizeIsConstant(t *testing.T) {
	t.Parallel()

	for _, d := range hashalg.All() {
		var sizes []uint32
		for _, l := range []uint32{0, 1, 38, 200} {
			mem := newMemory(t, bytes.Repeat([]byte{1}, 200))
			n, err := hostfunc.Hash(mem, uint64(d.Code), inPtr, l, outPtr, outCap)
			require.NoError(t, err)
			sizes = append(sizes, n)
		}
		for _, n := range sizes {
			assert.Equal(t, uint32(d.Size), n, d.Name)
		}
	}
}

func TestHashUnknownAlgorithm(t *testing.T) {
	t.Parallel()

	for _, code := range []uint64{0, 0xFF, 0x13, math.MaxUint64} {
		mem := newMemory(t, quickFox)
		before := snapshot(mem)

		n, err := hostfunc.Hash(mem, code, inPtr, uint32(len(quickFox)), outPtr, outCap)
		assert.Equal(t, hostfunc.IllegalArgument, err)
		assert.Zero(t, n)
		assert.Equal(t, before, mem.Bytes())
	}
}

func TestHashRejectsBadRanges(t *testing.T) {
	t.Parallel()

	inLen := uint32(len(quickFox))

	tests := []struct {
		name                         string
		inPtr, inLen, outPtr, outCap uint32
	}{
		{"input pointer at max", math.MaxUint32, inLen, outPtr, outCap},
		{"input pointer at max empty", math.MaxUint32, 0, outPtr, outCap},
		{"input length half address space", inPtr, math.MaxUint32 / 2, outPtr, outCap},
		{"input past end", memSize - 10, inLen, outPtr, outCap},
		{"input pointer past end", memSize + 1, 1, outPtr, outCap},
		{"input wraps", 2, math.MaxUint32 - 1, outPtr, outCap},
		{"output pointer at max", inPtr, inLen, math.MaxUint32, outCap},
		{"output capacity half address space", inPtr, inLen, outPtr, math.MaxUint32 / 2},
		{"output past end", inPtr, inLen, memSize - 10, outCap},
		{"output wraps", inPtr, inLen, 1, math.MaxUint32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newMemory(t, quickFox)
			before := snapshot(mem)

			n, err := hostfunc.Hash(mem, uint64(hashalg.Sha2_256), tt.inPtr, tt.inLen, tt.outPtr, tt.outCap)
			assert.Equal(t, hostfunc.IllegalArgument, err)
			assert.Zero(t, n)
			assert.Equal(t, before, mem.Bytes())
		})
	}
}

func TestHashOutputTooSmall(t *testing.T) {
	t.Parallel()

	for _, d := range hashalg.All() {
		for _, capacity := range []uint32{0, 1, uint32(d.Size) - 1} {
			mem := newMemory(t, quickFox)
			before := snapshot(mem)

			n, err := hostfunc.Hash(mem, uint64(d.Code), inPtr, uint32(len(quickFox)), outPtr, capacity)
			assert.Equal(t, hostfunc.IllegalArgument, err, d.Name)
			assert.Zero(t, n)
			assert.Equal(t, before, mem.Bytes(), d.Name)
		}
	}
}

func TestHashExactCapacity(t *testing.T) {
	t.Parallel()

	mem := newMemory(t, quickFox)
	n, err := hostfunc.Hash(mem, uint64(hashalg.Ripemd160), inPtr, uint32(len(quickFox)), outPtr, 20)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), n)
	assert.Equal(t, reference(hashalg.Ripemd160, quickFox), mem.Bytes()[outPtr:outPtr+20])
	assert.Equal(t, make([]byte, 10), mem.Bytes()[outPtr+20:outPtr+30])
}

func TestHashInPlace(t *testing.T) {
	t.Parallel()

	const base = 200
	mem := guestmem.NewBuffer(memSize)
	buf := mem.Bytes()[base : base+64]
	for i := range buf {
		buf[i] = 0x69
	}
	copy(buf, quickFox)

	n, err := hostfunc.Hash(mem, uint64(hashalg.Sha2_256), base, uint32(len(quickFox)), base, 64)
	require.NoError(t, err)

	want := sha256.Sum256(quickFox)
	assert.Equal(t, want[:], mem.Bytes()[base:base+n])
	// Input bytes past the digest are left as they were, then the fill.
	rest := append(append([]byte(nil), quickFox[32:]...), bytes.Repeat([]byte{0x69}, 64-len(quickFox))...)
	assert.Equal(t, rest, mem.Bytes()[base+32:base+64])
}

func TestHashPartialOverlap(t *testing.T) {
	t.Parallel()

	for _, d := range hashalg.All() {
		mem := newMemory(t, quickFox)
		// Output starts inside the input range.
		n, err := hostfunc.Hash(mem, uint64(d.Code), inPtr, uint32(len(quickFox)), inPtr+5, outCap)
		require.NoError(t, err, d.Name)
		assert.Equal(t, reference(d.Code, quickFox), mem.Bytes()[inPtr+5:inPtr+5+n], d.Name)
	}
}

func TestHashEmptyInput(t *testing.T) {
	t.Parallel()

	for _, d := range hashalg.All() {
		mem := guestmem.NewBuffer(memSize)

		n, err := hostfunc.Hash(mem, uint64(d.Code), 0, 0, outPtr, outCap)
		require.NoError(t, err, d.Name)
		assert.Equal(t, uint32(d.Size), n)
		assert.Equal(t, reference(d.Code, nil), mem.Bytes()[outPtr:outPtr+n], d.Name)
	}
}

func TestHashEmptyInputAtMemoryEnd(t *testing.T) {
	t.Parallel()

	mem := guestmem.NewBuffer(memSize)
	n, err := hostfunc.Hash(mem, uint64(hashalg.Sha2_256), memSize, 0, outPtr, outCap)
	require.NoError(t, err)
	assert.Equal(t, uint32(32), n)
}

func TestHashIsIdempotent(t *testing.T) {
	t.Parallel()

	mem := newMemory(t, quickFox)

	_, err := hostfunc.Hash(mem, uint64(hashalg.Blake2b256), inPtr, uint32(len(quickFox)), outPtr, outCap)
	require.NoError(t, err)
	first := snapshot(mem)

	_, err = hostfunc.Hash(mem, uint64(hashalg.Blake2b256), inPtr, uint32(len(quickFox)), outPtr, outCap)
	require.NoError(t, err)
	assert.Equal(t, first, mem.Bytes())
}

func TestHashNilMemory(t *testing.T) {
	t.Parallel()

	_, err := hostfunc.Hash(nil, uint64(hashalg.Sha2_256), 0, 0, 0, 32)
	assert.Equal(t, hostfunc.IllegalArgument, err)
}

func TestHashConcurrentGuests(t *testing.T) {
	t.Parallel()

	const guests = 8
	h := hostfunc.NewHasher()

	inputs := make([][]byte, guests)
	mems := make([]*guestmem.Buffer, guests)
	for i := range mems {
		inputs[i] = bytes.Repeat([]byte{byte(i)}, 100+i)
		mems[i] = newMemory(t, inputs[i])
	}

	var wg sync.WaitGroup
	wg.Add(guests)
	for i := range mems {
		go func(i int) {
			defer wg.Done()
			_, err := h.Hash(mems[i], uint64(hashalg.Keccak256), inPtr, uint32(len(inputs[i])), outPtr, outCap)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i, mem := range mems {
		assert.Equal(t, reference(hashalg.Keccak256, inputs[i]), mem.Bytes()[outPtr:outPtr+32])
	}
}
