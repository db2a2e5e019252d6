package models

import "time"

// Chain validation failure reasons.
const (
	ReasonEmptyChain         = "empty chain"
	ReasonInvalidGenesis     = "invalid genesis"
	ReasonIndexDiscontinuity = "index discontinuity"
	ReasonHashChainBroken    = "hash chain broken"
	ReasonHashMismatch       = "hash mismatch"
	ReasonInvalidProofOfWork = "invalid proof-of-work"
	ReasonTimestampViolation = "timestamp violation"
)

// ValidationResult describes the first integrity failure in a chain, if any.
// FirstInvalidIndex is -1 when the chain is valid or empty.
type ValidationResult struct {
	IsValid           bool   `json:"is_valid"`
	FirstInvalidIndex int    `json:"first_invalid_index"`
	Reason            string `json:"reason,omitempty"`
}

type Statistics struct {
	TotalBlocks        int   `json:"total_blocks"` // genesis excluded
	UniqueVoters       int   `json:"unique_voters"`
	LastBlockTimestamp int64 `json:"last_block_timestamp"`
	ChainIntegrity     bool  `json:"chain_integrity"`
}

// Receipt is what a voter gets back after their vote is sealed into a block.
type Receipt struct {
	ID                 string        `json:"id"`
	BlockIndex         uint64        `json:"block_index"`
	Hash               string        `json:"hash"`
	PreviousHashPrefix string        `json:"previous_hash_prefix"`
	MiningDuration     time.Duration `json:"mining_duration_ns"`
	Attempts           int           `json:"attempts"`
	Timestamp          int64         `json:"timestamp"`
}

// AuditExport is a point-in-time snapshot of the chain for auditors. It carries
// no vote payloads and only masked voter hashes.
type AuditExport struct {
	ExportID    string       `json:"export_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	BlockCount  int          `json:"block_count"`
	TipHash     string       `json:"tip_hash"`
	Blocks      []AuditBlock `json:"blocks"`
}

type AuditBlock struct {
	Index        uint64 `json:"index"`
	Timestamp    int64  `json:"timestamp"`
	Hash         string `json:"hash"`
	PreviousHash string `json:"previous_hash"`
	VoterHash    string `json:"voter_hash"`
	Difficulty   int    `json:"difficulty"`
}
