package models

import (
	"encoding/json"
	"strings"

	"vote-ledger/logs"
	"vote-ledger/pow"
)

// Genesis field values. The genesis block is a fixed trust anchor and is not mined.
const (
	GenesisTimestamp     int64 = 1704067200000 // 2024-01-01T00:00:00Z in milliseconds
	GenesisEncryptedVote       = "GENESIS"
	GenesisPreviousHash        = "0"
)

var (
	GenesisHash      = strings.Repeat("0", 64)
	GenesisVoterHash = strings.Repeat("0", 64)
)

// Block is one vote-append event. Blocks are never modified after they are appended.
type Block struct {
	Index         uint64 `json:"index"`
	Timestamp     int64  `json:"timestamp"` // milliseconds since epoch
	EncryptedVote string `json:"encrypted_vote"`
	VoterHash     string `json:"voter_hash"`
	PreviousHash  string `json:"previous_hash"`
	Nonce         uint64 `json:"nonce"`
	Hash          string `json:"hash"`
	Difficulty    int    `json:"difficulty"` // leading zero hex digits required in Hash
}

// Genesis returns a fresh copy of the genesis block.
func Genesis() *Block {
	return &Block{
		Index:         0,
		Timestamp:     GenesisTimestamp,
		EncryptedVote: GenesisEncryptedVote,
		VoterHash:     GenesisVoterHash,
		PreviousHash:  GenesisPreviousHash,
		Nonce:         0,
		Hash:          GenesisHash,
		Difficulty:    0,
	}
}

// blockForHash fixes the field order of the canonical serialization. The
// string fields are carried as []byte so they encode as base64 of their exact
// bytes; a JSON string would coerce invalid UTF-8 to U+FFFD.
type blockForHash struct {
	Index         uint64 `json:"index"`
	Timestamp     int64  `json:"timestamp"`
	EncryptedVote []byte `json:"encrypted_vote"`
	VoterHash     []byte `json:"voter_hash"`
	PreviousHash  []byte `json:"previous_hash"`
	Difficulty    int    `json:"difficulty"`
}

// Payload is the canonical serialization of every field except Hash and Nonce.
// It is what the miner searches a nonce for.
func (b *Block) Payload() string {
	data, err := json.Marshal(blockForHash{
		Index:         b.Index,
		Timestamp:     b.Timestamp,
		EncryptedVote: []byte(b.EncryptedVote),
		VoterHash:     []byte(b.VoterHash),
		PreviousHash:  []byte(b.PreviousHash),
		Difficulty:    b.Difficulty,
	})
	if err != nil {
		logs.Warn("Failed to marshal block %d for hashing: %v", b.Index, err)
		return ""
	}
	return string(data)
}

// CalculateHash recomputes the digest the block's own fields commit to.
func (b *Block) CalculateHash() string {
	return pow.Hash(b.Payload(), b.PreviousHash, b.Nonce)
}

// HasValidProof reports whether Hash meets the block's declared difficulty.
func (b *Block) HasValidProof() bool {
	return pow.Verify(b.Hash, b.Difficulty)
}

// Clone returns an independent copy of b.
func (b *Block) Clone() *Block {
	c := *b
	return &c
}

// IsGenesis reports whether b is the canonical genesis block.
func (b *Block) IsGenesis() bool {
	return *b == *Genesis()
}
