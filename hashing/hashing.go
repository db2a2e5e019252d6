// Package hashing provides the digests every other ledger component builds on.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// DigestSize is the length in hex characters of every digest produced here.
const DigestSize = 64

// Digest returns the lowercase hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func DigestString(s string) string {
	return Digest([]byte(s))
}

// Keccak256 computes Keccak-256 over the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// VoterHash derives the anonymous voter identifier from identity material
// (credential, personal code, public key bytes). It is one-way; nothing in the
// ledger maps it back.
func VoterHash(identity []byte) string {
	return hex.EncodeToString(Keccak256(identity))
}

// IsDigest reports whether s looks like a digest from this package.
func IsDigest(s string) bool {
	if len(s) != DigestSize {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
