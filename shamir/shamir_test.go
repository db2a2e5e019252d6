package shamir

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomSecret(t *testing.T, size int) []byte {
	t.Helper()
	secret := make([]byte, size)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	return secret
}

// subsets returns every k-element subset of shares.
func subsets(shares []Share, k int) [][]Share {
	var out [][]Share
	var walk func(start int, cur []Share)
	walk = func(start int, cur []Share) {
		if len(cur) == k {
			out = append(out, append([]Share(nil), cur...))
			return
		}
		for i := start; i < len(shares); i++ {
			walk(i+1, append(cur, shares[i]))
		}
	}
	walk(0, nil)
	return out
}

func TestSplitCombineEveryThresholdSubset(t *testing.T) {
	secret := randomSecret(t, 32)

	shares, err := Split(secret, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares, 5)
	for i, s := range shares {
		assert.Equal(t, byte(i+1), s.X)
		assert.Len(t, s.Y, len(secret))
	}

	combos := subsets(shares, 3)
	require.Len(t, combos, 10)
	for _, c := range combos {
		got, err := Combine(c)
		require.NoError(t, err)
		assert.Equal(t, secret, got)
	}

	// more than k shares also interpolate the same polynomial
	got, err := Combine(shares)
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestSplitCombineParameterSweep(t *testing.T) {
	cases := []struct{ n, k, size int }{
		{2, 2, 1},
		{3, 2, 16},
		{7, 4, 33},
		{10, 10, 8},
		{255, 2, 4},
		{255, 255, 2},
	}
	for _, tc := range cases {
		secret := randomSecret(t, tc.size)
		shares, err := Split(secret, tc.n, tc.k)
		require.NoError(t, err)

		got, err := Combine(shares[len(shares)-tc.k:])
		require.NoError(t, err, "n=%d k=%d", tc.n, tc.k)
		assert.Equal(t, secret, got, "n=%d k=%d", tc.n, tc.k)
	}
}

func TestCombineBelowThresholdIsWrong(t *testing.T) {
	secret := randomSecret(t, 32)
	shares, err := Split(secret, 5, 3)
	require.NoError(t, err)

	a, err := Combine([]Share{shares[0], shares[1]})
	require.NoError(t, err)
	b, err := Combine([]Share{shares[2], shares[3]})
	require.NoError(t, err)

	assert.NotEqual(t, secret, a)
	assert.NotEqual(t, secret, b)
	assert.NotEqual(t, a, b)
}

func TestSplitInvalidThreshold(t *testing.T) {
	cases := []struct {
		name string
		n, k int
	}{
		{"k below two", 5, 1},
		{"k zero", 5, 0},
		{"k above n", 3, 4},
		{"n above field", 256, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split([]byte("secret"), tc.n, tc.k)
			assert.ErrorIs(t, err, ErrInvalidThreshold)
		})
	}
}

func TestSplitEmptySecret(t *testing.T) {
	_, err := Split(nil, 3, 2)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func withReader(t *testing.T, r io.Reader) {
	t.Helper()
	prev := randReader
	randReader = r
	t.Cleanup(func() { randReader = prev })
}

func TestSplitUsesRandomCoefficients(t *testing.T) {
	withReader(t, zeroReader{})

	secret := []byte{0x00, 0x7f, 0xff}
	shares, err := Split(secret, 4, 3)
	require.NoError(t, err)
	// with all higher coefficients zero, every share is the constant term
	for _, s := range shares {
		assert.Equal(t, secret, s.Y)
	}
}

func TestSplitRandomFailure(t *testing.T) {
	withReader(t, failingReader{})

	_, err := Split([]byte("secret"), 3, 2)
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestCombineErrors(t *testing.T) {
	shares, err := Split([]byte("abc"), 3, 2)
	require.NoError(t, err)

	_, err = Combine(nil)
	assert.ErrorIs(t, err, ErrInsufficientShares)
	_, err = Combine(shares[:1])
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, err = Combine([]Share{shares[0], shares[0]})
	assert.ErrorIs(t, err, ErrInvalidShare)

	_, err = Combine([]Share{{X: 0, Y: []byte("abc")}, shares[1]})
	assert.ErrorIs(t, err, ErrInvalidShare)

	_, err = Combine([]Share{shares[0], {X: 9, Y: []byte("ab")}})
	assert.ErrorIs(t, err, ErrShareLengthMismatch)
}

func TestSharesDoNotLeakSecretBytes(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 64)
	shares, err := Split(secret, 3, 2)
	require.NoError(t, err)
	for _, s := range shares {
		assert.NotEqual(t, secret, s.Y)
	}
}
