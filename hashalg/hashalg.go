// Package hashalg is the fixed table of hash algorithms a guest may request
// through the hash syscall.
//
// Codes are multicodec identifiers. The set is closed: adding an algorithm
// changes the syscall contract, so there is no registration API.
package hashalg

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required by the syscall contract
	"golang.org/x/crypto/sha3"
)

// ErrNotFound is returned when a code or name is not in the table.
var ErrNotFound = errors.New("unsupported hash algorithm")

// Code identifies a hash algorithm on the syscall ABI.
type Code uint64

// Supported algorithm codes.
const (
	Sha2_256   Code = 0x12
	Keccak256  Code = 0x1b
	Ripemd160  Code = 0x1053
	Blake2b256 Code = 0xb220
	Blake2b512 Code = 0xb240
)

// Descriptor describes one supported algorithm.
type Descriptor struct {
	Code Code
	Name string
	// Size is the digest length in bytes. Sum always returns exactly Size bytes.
	Size int

	sum func([]byte) []byte
}

// Sum returns the digest of data. It never retains or modifies data.
func (d Descriptor) Sum(data []byte) []byte {
	return d.sum(data)
}

var (
	sha2_256 = Descriptor{Code: Sha2_256, Name: "sha2-256", Size: sha256.Size, sum: func(b []byte) []byte {
		h := sha256.Sum256(b)
		return h[:]
	}}
	keccak256 = Descriptor{Code: Keccak256, Name: "keccak-256", Size: 32, sum: func(b []byte) []byte {
		h := sha3.NewLegacyKeccak256()
		h.Write(b)
		return h.Sum(nil)
	}}
	ripemd = Descriptor{Code: Ripemd160, Name: "ripemd-160", Size: ripemd160.Size, sum: func(b []byte) []byte {
		h := ripemd160.New()
		h.Write(b)
		return h.Sum(nil)
	}}
	blake2b256 = Descriptor{Code: Blake2b256, Name: "blake2b-256", Size: blake2b.Size256, sum: func(b []byte) []byte {
		h := blake2b.Sum256(b)
		return h[:]
	}}
	blake2b512 = Descriptor{Code: Blake2b512, Name: "blake2b-512", Size: blake2b.Size, sum: func(b []byte) []byte {
		h := blake2b.Sum512(b)
		return h[:]
	}}
)

// Resolve returns the descriptor for code, or ErrNotFound.
func Resolve(code Code) (Descriptor, error) {
	switch code {
	case Sha2_256:
		return sha2_256, nil
	case Keccak256:
		return keccak256, nil
	case Ripemd160:
		return ripemd, nil
	case Blake2b256:
		return blake2b256, nil
	case Blake2b512:
		return blake2b512, nil
	}
	return Descriptor{}, ErrNotFound
}

// All returns every supported descriptor ordered by code.
func All() []Descriptor {
	all := []Descriptor{sha2_256, keccak256, ripemd, blake2b256, blake2b512}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all
}

// ByName looks up a descriptor by its case-insensitive name. Names with the
// dash removed ("sha2256") are accepted too.
func ByName(name string) (Descriptor, error) {
	want := normalize(name)
	for _, d := range All() {
		if normalize(d.Name) == want {
			return d, nil
		}
	}
	return Descriptor{}, errors.Wrapf(ErrNotFound, "name %q", name)
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "")
}

func (c Code) String() string {
	if d, err := Resolve(c); err == nil {
		return d.Name
	}
	return fmt.Sprintf("unknown(0x%x)", uint64(c))
}
