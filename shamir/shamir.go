// Package shamir splits byte secrets into k-of-n shares over GF(256) and
// reconstructs them. Every byte of the secret gets its own random polynomial.
package shamir

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"vote-ledger/gf256"
	"vote-ledger/logs"
)

// MaxShares is the largest n: share identifiers are non-zero field elements.
const MaxShares = 255

var (
	ErrInvalidThreshold    = errors.New("shamir: threshold must satisfy 2 <= k <= n <= 255")
	ErrInsufficientShares  = errors.New("shamir: at least 2 shares are required")
	ErrEmptySecret         = errors.New("shamir: secret is empty")
	ErrInvalidShare        = errors.New("shamir: share identifiers must be non-zero and distinct")
	ErrShareLengthMismatch = errors.New("shamir: shares have different lengths")
)

// randReader is swapped out in tests.
var randReader io.Reader = rand.Reader

// Share is one point of every per-byte polynomial: Y[i] = f_i(X).
type Share struct {
	X byte
	Y []byte
}

// Split divides secret into n shares, any k of which reconstruct it.
func Split(secret []byte, n, k int) ([]Share, error) {
	if k < 2 || k > n || n > MaxShares {
		return nil, fmt.Errorf("%w: n=%d k=%d", ErrInvalidThreshold, n, k)
	}
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	shares := make([]Share, n)
	for i := range shares {
		shares[i] = Share{X: byte(i + 1), Y: make([]byte, len(secret))}
	}

	coeffs := make([]byte, k)
	for pos, b := range secret {
		coeffs[0] = b
		if _, err := io.ReadFull(randReader, coeffs[1:]); err != nil {
			return nil, fmt.Errorf("shamir: read coefficients: %w", err)
		}
		for i := range shares {
			shares[i].Y[pos] = evaluate(coeffs, shares[i].X)
		}
	}
	clear(coeffs)
	return shares, nil
}

// evaluate computes the polynomial at x using Horner's rule.
func evaluate(coeffs []byte, x byte) byte {
	var y byte
	for i := len(coeffs) - 1; i >= 0; i-- {
		y = gf256.Add(gf256.Mul(y, x), coeffs[i])
	}
	return y
}

// Combine interpolates the shares at x = 0. Passing fewer shares than the
// threshold used at split time yields a wrong secret, not an error.
func Combine(shares []Share) ([]byte, error) {
	if len(shares) < 2 {
		return nil, ErrInsufficientShares
	}

	size := len(shares[0].Y)
	seen := make(map[byte]bool, len(shares))
	for _, s := range shares {
		if s.X == 0 || seen[s.X] {
			return nil, fmt.Errorf("%w: x=%d", ErrInvalidShare, s.X)
		}
		seen[s.X] = true
		if len(s.Y) != size {
			return nil, ErrShareLengthMismatch
		}
	}

	basis := make([]byte, len(shares))
	for i := range shares {
		basis[i] = lagrangeAtZero(shares, i)
	}

	secret := make([]byte, size)
	for pos := range secret {
		var acc byte
		for i, s := range shares {
			acc = gf256.Add(acc, gf256.Mul(basis[i], s.Y[pos]))
		}
		secret[pos] = acc
	}
	return secret, nil
}

// lagrangeAtZero returns the product over j != i of x_j / (x_i - x_j).
func lagrangeAtZero(shares []Share, i int) byte {
	xi := shares[i].X
	l := byte(1)
	for j, s := range shares {
		if j == i {
			continue
		}
		term, err := gf256.Div(s.X, gf256.Add(xi, s.X))
		if err != nil {
			// identifiers were checked distinct above
			logs.Error("shamir: interpolation hit %v for x_i=%d x_j=%d", err, xi, s.X)
			panic(err)
		}
		l = gf256.Mul(l, term)
	}
	return l
}
