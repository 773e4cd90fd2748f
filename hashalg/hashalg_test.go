package hashalg_test

import (
	"encoding/hex"
	"testing"

	"github.com/caffeineduck/hashcall/hashalg"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEmptyInputVectors(t *testing.T) {
	t.Parallel()

	vectors := map[hashalg.Code]string{
		hashalg.Sha2_256:   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		hashalg.Keccak256:  "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hashalg.Ripemd160:  "9c1185a5c5e9fc54612808977ee8f548b2258d31",
		hashalg.Blake2b256: "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		hashalg.Blake2b512: "786a02f742015903c6c6fd852552d272912f4740e15847618a86e217f71f5419d25e1031afee585313896444934eb04b903a685b1448b755d56f701afe9be2ce",
	}

	for code, want := range vectors {
		d, err := hashalg.Resolve(code)
		require.NoError(t, err, code.String())
		assert.Equal(t, want, hex.EncodeToString(d.Sum(nil)), code.String())
		assert.Equal(t, want, hex.EncodeToString(d.Sum([]byte{})), code.String())
	}
}

func TestResolveKnownVector(t *testing.T) {
	t.Parallel()

	d, err := hashalg.Resolve(hashalg.Sha2_256)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		hex.EncodeToString(d.Sum([]byte("abc"))))
}

func TestDigestSizeIsConstant(t *testing.T) {
	t.Parallel()

	inputs := [][]byte{nil, []byte("a"), make([]byte, 1000), []byte("foo bar baz boxy")}
	for _, d := range hashalg.All() {
		for _, in := range inputs {
			assert.Len(t, d.Sum(in), d.Size, d.Name)
		}
	}
}

func TestResolveUnknownCode(t *testing.T) {
	t.Parallel()

	for _, code := range []hashalg.Code{0, 0xFF, 0x13, 0xb221, ^hashalg.Code(0)} {
		_, err := hashalg.Resolve(code)
		assert.True(t, errors.Is(err, hashalg.ErrNotFound), "code 0x%x", uint64(code))
	}
}

func TestAllIsSortedAndDistinct(t *testing.T) {
	t.Parallel()

	all := hashalg.All()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Less(t, uint64(all[i-1].Code), uint64(all[i].Code))
	}

	all[0].Name = "mutated"
	assert.NotEqual(t, "mutated", hashalg.All()[0].Name)
}

func TestByName(t *testing.T) {
	t.Parallel()

	d, err := hashalg.ByName("SHA2-256")
	require.NoError(t, err)
	assert.Equal(t, hashalg.Sha2_256, d.Code)

	d, err = hashalg.ByName("blake2b256")
	require.NoError(t, err)
	assert.Equal(t, hashalg.Blake2b256, d.Code)

	_, err = hashalg.ByName("md5")
	assert.True(t, errors.Is(err, hashalg.ErrNotFound))
}

func TestCodeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "keccak-256", hashalg.Keccak256.String())
	assert.Equal(t, "unknown(0xff)", hashalg.Code(0xFF).String())
}

func TestSumDoesNotModifyInput(t *testing.T) {
	t.Parallel()

	in := []byte("the quick fox jumped over the lazy dog")
	orig := append([]byte(nil), in...)
	for _, d := range hashalg.All() {
		d.Sum(in)
		assert.Equal(t, orig, in, d.Name)
	}
}
