package encryption

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"vote-ledger/shamir"
)

var ErrKeyMismatch = errors.New("encryption: recovered key does not match the election key")

// GenerateElectionKey creates the secp256k1 key sealed votes are encrypted to.
func GenerateElectionKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// SplitElectionKey splits the private scalar into n shards, k of which recover it.
func SplitElectionKey(key *ecdsa.PrivateKey, n, k int) ([]string, error) {
	secret := crypto.FromECDSA(key)
	defer clear(secret)

	shares, err := shamir.Split(secret, n, k)
	if err != nil {
		return nil, fmt.Errorf("failed to split election key: %w", err)
	}
	return shamir.EncodeAll(shares), nil
}

// RecoverElectionKey rebuilds the election key from shards. When expected is
// non-nil the result must match it: too few shards interpolate to a
// well-formed but wrong scalar, and this is the only place that shows.
func RecoverElectionKey(shards []string, expected *ecdsa.PublicKey) (*ecdsa.PrivateKey, error) {
	shares, err := shamir.DecodeAll(shards)
	if err != nil {
		return nil, err
	}
	secret, err := shamir.Combine(shares)
	if err != nil {
		return nil, err
	}
	defer clear(secret)

	key, err := crypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMismatch, err)
	}
	if expected != nil && !key.PublicKey.Equal(expected) {
		return nil, ErrKeyMismatch
	}
	return key, nil
}

// PublicKeyHex renders an uncompressed public key as 0x-prefixed hex.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.FromECDSAPub(pub))
}

// Address is the short, checksummed identifier of the election key.
func Address(pub *ecdsa.PublicKey) string {
	return crypto.PubkeyToAddress(*pub).Hex()
}
