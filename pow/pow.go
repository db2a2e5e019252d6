// Package pow implements the proof-of-work search that seals ledger blocks.
package pow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"

	"vote-ledger/hashing"
)

const (
	// DefaultMaxAttempts bounds a single search. At difficulty 4 the expected
	// cost is 65536 attempts, so the ceiling only trips on absurd targets.
	DefaultMaxAttempts = 1 << 24

	// DefaultYieldEvery is the attempt batch after which the miner yields the processor.
	DefaultYieldEvery = 1000
)

var (
	ErrMiningTimeout     = errors.New("pow: attempt ceiling reached without meeting difficulty")
	ErrInvalidDifficulty = errors.New("pow: difficulty out of range")
)

// Result is a successful search.
type Result struct {
	Nonce    uint64
	Hash     string
	Attempts int
}

// Miner searches nonces. The zero value uses the package defaults.
type Miner struct {
	maxAttempts int
	yieldEvery  int
	rand        io.Reader
}

// NewMiner bounds each search to maxAttempts and yields every yieldEvery
// attempts. Non-positive values select the defaults.
func NewMiner(maxAttempts, yieldEvery int) *Miner {
	return &Miner{
		maxAttempts: maxAttempts,
		yieldEvery:  yieldEvery,
		rand:        rand.Reader,
	}
}

func (m *Miner) limits() (maxAttempts, yieldEvery int, src io.Reader) {
	maxAttempts, yieldEvery, src = m.maxAttempts, m.yieldEvery, m.rand
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if yieldEvery <= 0 {
		yieldEvery = DefaultYieldEvery
	}
	if src == nil {
		src = rand.Reader
	}
	return maxAttempts, yieldEvery, src
}

// Hash is the digest a block with this payload, link and nonce must carry.
func Hash(payload, previousHash string, nonce uint64) string {
	return hashing.DigestString(payload + previousHash + strconv.FormatUint(nonce, 10))
}

// Verify reports whether hash starts with difficulty '0' characters.
func Verify(hash string, difficulty int) bool {
	if difficulty < 0 || difficulty > len(hash) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// Mine draws random nonces until Hash(payload, previousHash, nonce) satisfies
// difficulty. It gives up with ErrMiningTimeout after the attempt ceiling and returns
// ctx.Err() if the context ends first.
func (m *Miner) Mine(ctx context.Context, payload, previousHash string, difficulty int) (*Result, error) {
	if difficulty < 0 || difficulty > hashing.DigestSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDifficulty, difficulty)
	}

	maxAttempts, yieldEvery, src := m.limits()

	var buf [8]byte
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(src, buf[:]); err != nil {
			return nil, fmt.Errorf("pow: draw nonce: %w", err)
		}
		nonce := binary.BigEndian.Uint64(buf[:])

		hash := Hash(payload, previousHash, nonce)
		if Verify(hash, difficulty) {
			return &Result{Nonce: nonce, Hash: hash, Attempts: attempt}, nil
		}

		if attempt%yieldEvery == 0 {
			runtime.Gosched()
		}
	}
	return nil, fmt.Errorf("%w: difficulty %d after %d attempts", ErrMiningTimeout, difficulty, maxAttempts)
}
