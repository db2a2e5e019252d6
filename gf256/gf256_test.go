package gf256

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mulSlow is carry-less multiplication reduced by the polynomial, without tables.
func mulSlow(a, b byte) byte {
	var p byte
	for b > 0 {
		if b&1 != 0 {
			p ^= a
		}
		carry := a & 0x80
		a <<= 1
		if carry != 0 {
			a ^= 0x1b
		}
		b >>= 1
	}
	return p
}

func TestTables(t *testing.T) {
	seen := make(map[byte]bool)
	for i := 0; i < order; i++ {
		v := expTable[i]
		require.NotZero(t, v)
		require.False(t, seen[v], "generator cycle repeats at %d", i)
		seen[v] = true
		assert.Equal(t, i, int(logTable[v]))
	}
	assert.Len(t, seen, 255)
	assert.Equal(t, byte(1), expTable[0])
}

func TestMulMatchesReference(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			require.Equal(t, mulSlow(byte(a), byte(b)), Mul(byte(a), byte(b)), "a=%d b=%d", a, b)
		}
	}
	// FIPS-197 worked example: {57} * {83} = {c1}
	assert.Equal(t, byte(0xc1), Mul(0x57, 0x83))
}

func TestDivInvertsMul(t *testing.T) {
	for a := 0; a < 256; a++ {
		for b := 1; b < 256; b++ {
			q, err := Div(Mul(byte(a), byte(b)), byte(b))
			require.NoError(t, err)
			require.Equal(t, byte(a), q)
		}
	}
}

func TestDivZeroNumerator(t *testing.T) {
	q, err := Div(0, 7)
	require.NoError(t, err)
	assert.Zero(t, q)
}

func TestDivByZero(t *testing.T) {
	for x := 0; x < 256; x++ {
		_, err := Div(byte(x), 0)
		require.ErrorIs(t, err, ErrDivisionByZero, "x=%d", x)
	}
}

func TestAdd(t *testing.T) {
	assert.Equal(t, byte(0), Add(0x53, 0x53))
	assert.Equal(t, byte(0xd4), Add(0x57, 0x83))
}
