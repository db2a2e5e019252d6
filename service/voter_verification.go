package service

import (
	"errors"
	"fmt"
	"strings"

	"vote-ledger/hashing"
	"vote-ledger/models"
)

var (
	ErrInvalidVoterHash = errors.New("service: voter hash must be 64 hex characters")
	ErrInvalidVote      = errors.New("service: invalid vote")
)

// verifyVoterHash accepts only digest-shaped voter hashes, and never the
// all-zero genesis placeholder.
func verifyVoterHash(voterHash string) error {
	if !hashing.IsDigest(voterHash) || voterHash == models.GenesisVoterHash {
		return ErrInvalidVoterHash
	}
	return nil
}

func verifyPayload(payload *models.VotePayload) error {
	if payload == nil {
		return fmt.Errorf("%w: missing payload", ErrInvalidVote)
	}
	if strings.TrimSpace(payload.Choice) == "" {
		return fmt.Errorf("%w: choice is empty", ErrInvalidVote)
	}
	return nil
}

// verifyEncryptedVote checks an already encoded vote carries a known format tag.
func verifyEncryptedVote(opaque string) error {
	if opaque == "" {
		return fmt.Errorf("%w: encrypted vote is empty", ErrInvalidVote)
	}
	if opaque == models.GenesisEncryptedVote {
		return fmt.Errorf("%w: reserved value", ErrInvalidVote)
	}
	return nil
}
