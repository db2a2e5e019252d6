// Package evb is the encrypted-vote blockchain: an append-only, hash-linked,
// proof-of-work sealed ledger of opaque vote strings keyed by voter hash.
package evb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"vote-ledger/logs"
	"vote-ledger/models"
	"vote-ledger/pow"
)

var (
	ErrEmptyVote      = errors.New("evb: encrypted vote is empty")
	ErrEmptyVoterHash = errors.New("evb: voter hash is empty")
	ErrBlockNotFound  = errors.New("evb: block not found")
)

// EVB owns the authoritative chain. Appends are serialized internally, so
// there is exactly one writer at a time; reads work on immutable snapshots
// and never wait for a mining search to finish.
type EVB struct {
	miner *pow.Miner
	now   func() time.Time

	writeMu sync.Mutex

	mu     sync.RWMutex
	blocks []*models.Block
	latest map[string]*models.Block // voter hash -> counted (most recent) block
}

type Option func(*EVB)

// WithClock overrides the time source used for block timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *EVB) {
		e.now = now
	}
}

// AppendResult is a freshly sealed block and what it cost.
type AppendResult struct {
	Block    *models.Block
	Elapsed  time.Duration
	Attempts int
}

// New returns a ledger holding only the genesis block.
func New(miner *pow.Miner, opts ...Option) *EVB {
	e := &EVB{
		miner:  miner,
		now:    time.Now,
		blocks: []*models.Block{models.Genesis()},
		latest: make(map[string]*models.Block),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AppendVote mines a block carrying encryptedVote for voterHash on top of the
// current tip and appends it. A later block for the same voter hash supersedes
// earlier ones in the counted view; nothing is removed from the chain.
func (e *EVB) AppendVote(ctx context.Context, encryptedVote, voterHash string, difficulty int) (*AppendResult, error) {
	if encryptedVote == "" {
		return nil, ErrEmptyVote
	}
	if voterHash == "" {
		return nil, ErrEmptyVoterHash
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	start := time.Now()
	tail := e.tip()

	block := &models.Block{
		Index:         tail.Index + 1,
		Timestamp:     e.nextTimestamp(tail.Timestamp),
		EncryptedVote: encryptedVote,
		VoterHash:     voterHash,
		PreviousHash:  tail.Hash,
		Difficulty:    difficulty,
	}

	res, err := e.miner.Mine(ctx, block.Payload(), tail.Hash, difficulty)
	if err != nil {
		logs.Warn("Mining block %d failed: %v", block.Index, err)
		return nil, fmt.Errorf("mine block %d: %w", block.Index, err)
	}
	block.Nonce = res.Nonce
	block.Hash = res.Hash

	e.mu.Lock()
	e.blocks = append(e.blocks, block)
	e.latest[voterHash] = block
	e.mu.Unlock()

	elapsed := time.Since(start)
	logs.Debug("Appended block %d hash=%s attempts=%d in %v", block.Index, block.Hash, res.Attempts, elapsed)

	return &AppendResult{Block: block.Clone(), Elapsed: elapsed, Attempts: res.Attempts}, nil
}

// nextTimestamp never goes below the tail's timestamp.
func (e *EVB) nextTimestamp(last int64) int64 {
	now := e.now().UnixMilli()
	if now < last {
		return last
	}
	return now
}

// snapshot returns the internal block slice capped at its length, so later
// appends can never show through it. Callers must not modify the blocks.
func (e *EVB) snapshot() []*models.Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.blocks)
	return e.blocks[:n:n]
}

// Chain returns a copy of the chain. Changing the returned blocks does not
// affect the ledger.
func (e *EVB) Chain() []*models.Block {
	chain := e.snapshot()
	out := make([]*models.Block, len(chain))
	for i, b := range chain {
		out[i] = b.Clone()
	}
	return out
}

func (e *EVB) Tip() *models.Block {
	return e.tip().Clone()
}

func (e *EVB) tip() *models.Block {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.blocks[len(e.blocks)-1]
}

func (e *EVB) Block(index uint64) (*models.Block, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if index >= uint64(len(e.blocks)) {
		return nil, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
	}
	return e.blocks[index].Clone(), nil
}

// counted returns the counted block for a voter hash.
func (e *EVB) counted(voterHash string) (*models.Block, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.latest[voterHash]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// CountedVotes returns copies of the latest block of every voter, in chain order.
func (e *EVB) CountedVotes() []*models.Block {
	e.mu.RLock()
	counted := make([]*models.Block, 0, len(e.latest))
	for _, b := range e.latest {
		counted = append(counted, b.Clone())
	}
	e.mu.RUnlock()

	sort.Slice(counted, func(i, j int) bool {
		return counted[i].Index < counted[j].Index
	})
	return counted
}

// Validate checks the current chain snapshot.
func (e *EVB) Validate() models.ValidationResult {
	return ValidateChain(e.snapshot())
}

func (e *EVB) Statistics() models.Statistics {
	e.mu.RLock()
	n := len(e.blocks)
	chain := e.blocks[:n:n]
	voters := len(e.latest)
	e.mu.RUnlock()

	return models.Statistics{
		TotalBlocks:        n - 1,
		UniqueVoters:       voters,
		LastBlockTimestamp: chain[n-1].Timestamp,
		ChainIntegrity:     ValidateChain(chain).IsValid,
	}
}
