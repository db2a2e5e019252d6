// Package gf256 implements arithmetic in GF(2^8) with the AES reduction
// polynomial x^8 + x^4 + x^3 + x + 1 (0x11b).
//
// Multiplication and division go through exponent/logarithm tables computed
// once in init and never written afterwards, so concurrent use needs no locking.
// Lookups are not constant-time; do not feed long-lived production secrets
// through this package where cache timing is observable.
package gf256

import "errors"

const (
	// Polynomial is the reduction polynomial of the field.
	Polynomial = 0x11b

	// Generator is the primitive element used to build the tables.
	Generator = 0x03

	order = 255 // size of the multiplicative group
)

var ErrDivisionByZero = errors.New("gf256: division by zero")

var (
	expTable [order]byte
	logTable [256]byte
)

func init() {
	var x uint16 = 1
	for i := 0; i < order; i++ {
		expTable[i] = byte(x)
		logTable[x] = byte(i)
		// x *= 3, i.e. (x << 1) ^ x, reduced mod the polynomial
		x = (x << 1) ^ x
		if x >= 256 {
			x ^= Polynomial
		}
	}
}

// Add returns a + b. Subtraction is the same operation.
func Add(a, b byte) byte {
	return a ^ b
}

// Mul returns a * b.
func Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return expTable[(int(logTable[a])+int(logTable[b]))%order]
}

// Div returns a / b, or ErrDivisionByZero when b is zero.
func Div(a, b byte) (byte, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	if a == 0 {
		return 0, nil
	}
	return expTable[(int(logTable[a])-int(logTable[b])+order)%order], nil
}
