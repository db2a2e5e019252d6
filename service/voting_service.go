package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"vote-ledger/anonymizer"
	"vote-ledger/blockchain/evb"
	"vote-ledger/config"
	"vote-ledger/encryption"
	"vote-ledger/logs"
	"vote-ledger/models"
	"vote-ledger/pow"
	"vote-ledger/storage"
)

// ReceiptHashPrefix is how much of the previous hash a receipt repeats back.
const ReceiptHashPrefix = 16

var (
	ErrSessionClosed   = errors.New("service: voting session is not active")
	ErrReceiptNotFound = errors.New("service: receipt not found")
	ErrShardsIssued    = errors.New("service: key shards were already issued")
	ErrChainInvalid    = errors.New("service: ledger failed validation")
	ErrNoAuditStore    = errors.New("service: no audit store configured")
)

// VotingService accepts votes into the ledger and answers questions about it.
// The election private key never stays in memory: it is split into shards at
// start-up and only rebuilt from them to count.
type VotingService struct {
	ledger     *evb.EVB
	encoder    encryption.VoteEncoder
	difficulty int

	electionPub *ecdsa.PublicKey
	shardMu     sync.Mutex
	shards      []string

	receipts *lru.Cache
	session  *VotingSession
	metrics  *MetricsCollector
	store    *storage.AuditStore
}

// ServiceStatus summarizes the service for operators.
type ServiceStatus struct {
	Session       SessionStatus     `json:"session"`
	Encoder       string            `json:"encoder"`
	Difficulty    int               `json:"difficulty"`
	ElectionKey   string            `json:"election_key"`
	ElectionAddr  string            `json:"election_address"`
	ShardsPending bool              `json:"shards_pending"`
	Statistics    models.Statistics `json:"statistics"`
}

// NewVotingService builds a service from cfg. store may be nil, in which
// case audit exports can be produced but not saved.
func NewVotingService(cfg *config.Config, store *storage.AuditStore, opts ...evb.Option) (*VotingService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key, err := encryption.GenerateElectionKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate election key: %w", err)
	}
	shards, err := encryption.SplitElectionKey(key, cfg.ShardCount, cfg.ShardThreshold)
	if err != nil {
		return nil, err
	}

	var encoder encryption.VoteEncoder
	switch cfg.Encoder {
	case encryption.FormatSealed:
		encoder = encryption.NewSealedEncoder(&key.PublicKey)
	default:
		encoder = encryption.NewSimulatedEncoder()
	}

	receipts, err := lru.New(cfg.ReceiptCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt cache: %w", err)
	}

	vs := &VotingService{
		ledger:      evb.New(pow.NewMiner(cfg.MaxMiningAttempts, cfg.YieldEvery), opts...),
		encoder:     encoder,
		difficulty:  cfg.Difficulty,
		electionPub: &key.PublicKey,
		shards:      shards,
		receipts:    receipts,
		session:     NewVotingSession(cfg.SessionDuration),
		metrics:     NewMetricsCollector(),
		store:       store,
	}
	vs.metrics.StartVotingPhase()

	logs.Info("Voting service ready: encoder=%s difficulty=%d election key %s (%d-of-%d shards)",
		cfg.Encoder, cfg.Difficulty, encryption.Address(vs.electionPub), cfg.ShardThreshold, cfg.ShardCount)
	return vs, nil
}

func (vs *VotingService) checkSession() error {
	if vs.session.IsActive() {
		return nil
	}
	if reason := vs.session.HaltReason(); reason != "" {
		return fmt.Errorf("%w: halted: %s", ErrSessionClosed, reason)
	}
	return ErrSessionClosed
}

// CastVote encodes payload and appends it for voterHash. Casting again for the
// same voter hash supersedes the earlier vote.
func (vs *VotingService) CastVote(ctx context.Context, voterHash string, payload *models.VotePayload) (*models.Receipt, error) {
	if err := verifyPayload(payload); err != nil {
		vs.metrics.RecordVoteFailure()
		return nil, err
	}
	encoded, err := vs.encoder.Encode(*payload)
	if err != nil {
		vs.metrics.RecordVoteFailure()
		return nil, fmt.Errorf("failed to encode vote: %w", err)
	}
	return vs.SubmitEncryptedVote(ctx, voterHash, encoded.Opaque)
}

// SubmitEncryptedVote appends a vote that was encoded by the caller.
func (vs *VotingService) SubmitEncryptedVote(ctx context.Context, voterHash, encryptedVote string) (*models.Receipt, error) {
	if err := vs.checkSession(); err != nil {
		vs.metrics.RecordVoteFailure()
		return nil, err
	}
	if err := verifyVoterHash(voterHash); err != nil {
		vs.metrics.RecordVoteFailure()
		logs.Warn("Rejected vote: %v", err)
		return nil, err
	}
	if err := verifyEncryptedVote(encryptedVote); err != nil {
		vs.metrics.RecordVoteFailure()
		return nil, err
	}

	res, err := vs.ledger.AppendVote(ctx, encryptedVote, voterHash, vs.difficulty)
	if err != nil {
		vs.metrics.RecordVoteFailure()
		return nil, err
	}
	vs.metrics.RecordVote(res.Elapsed, res.Attempts)

	receipt := &models.Receipt{
		ID:                 uuid.New().String(),
		BlockIndex:         res.Block.Index,
		Hash:               res.Block.Hash,
		PreviousHashPrefix: anonymizer.Prefix(res.Block.PreviousHash, ReceiptHashPrefix),
		MiningDuration:     res.Elapsed,
		Attempts:           res.Attempts,
		Timestamp:          res.Block.Timestamp,
	}
	vs.receipts.Add(receipt.ID, receipt)

	logs.Info("Vote sealed in block %d for voter %s", receipt.BlockIndex,
		anonymizer.MaskVoterHash(voterHash, anonymizer.DefaultVisiblePrefix))
	return receipt, nil
}

// Receipt looks up a receipt issued by this process. Old receipts are evicted
// once the cache is full.
func (vs *VotingService) Receipt(id string) (*models.Receipt, error) {
	v, ok := vs.receipts.Get(id)
	if !ok {
		return nil, ErrReceiptNotFound
	}
	return v.(*models.Receipt), nil
}

// ValidateChain checks the ledger and halts the session on the first failure.
func (vs *VotingService) ValidateChain() models.ValidationResult {
	return vs.recordValidation(vs.ledger.Validate())
}

func (vs *VotingService) recordValidation(result models.ValidationResult) models.ValidationResult {
	vs.metrics.RecordValidation(result.IsValid)
	if !result.IsValid {
		logs.Error("Ledger validation failed at block %d: %s", result.FirstInvalidIndex, result.Reason)
		vs.session.Halt(fmt.Sprintf("%s at block %d", result.Reason, result.FirstInvalidIndex))
	}
	return result
}

// VerifyChain checks a chain held outside the ledger, such as a copy an
// auditor downloaded earlier. The session is not affected by the outcome.
func (vs *VotingService) VerifyChain(chain []*models.Block) models.ValidationResult {
	result := evb.ValidateChain(chain)
	if !result.IsValid {
		logs.Warn("Supplied chain of %d blocks fails at block %d: %s", len(chain), result.FirstInvalidIndex, result.Reason)
	}
	return result
}

func (vs *VotingService) Chain() []*models.Block {
	return vs.ledger.Chain()
}

func (vs *VotingService) Block(index uint64) (*models.Block, error) {
	return vs.ledger.Block(index)
}

func (vs *VotingService) Statistics() models.Statistics {
	return vs.ledger.Statistics()
}

func (vs *VotingService) ExportAudit() *models.AuditExport {
	return vs.ledger.ExportForAudit()
}

// SaveAudit exports the ledger and persists the export.
func (vs *VotingService) SaveAudit() (*models.AuditExport, string, error) {
	if vs.store == nil {
		return nil, "", ErrNoAuditStore
	}
	export := vs.ledger.ExportForAudit()
	path, err := vs.store.SaveAuditExport(export)
	if err != nil {
		return nil, "", err
	}
	return export, path, nil
}

// IssueKeyShards hands out the election key shards exactly once.
func (vs *VotingService) IssueKeyShards() ([]string, error) {
	vs.shardMu.Lock()
	defer vs.shardMu.Unlock()

	if vs.shards == nil {
		return nil, ErrShardsIssued
	}
	out := vs.shards
	vs.shards = nil
	logs.Info("Issued %d election key shards", len(out))
	return out, nil
}

// Tally rebuilds the election key from shards and counts the latest vote of
// every voter. The ledger must validate first.
func (vs *VotingService) Tally(shards []string) (*VotingResults, error) {
	vs.metrics.RecordCountingStart()
	defer vs.metrics.RecordCountingEnd()

	key, err := encryption.RecoverElectionKey(shards, vs.electionPub)
	if err != nil {
		return nil, fmt.Errorf("failed to recover election key: %w", err)
	}

	if reason := vs.session.HaltReason(); reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrChainInvalid, reason)
	}
	if result := vs.ValidateChain(); !result.IsValid {
		return nil, fmt.Errorf("%w: %s at block %d", ErrChainInvalid, result.Reason, result.FirstInvalidIndex)
	}

	results := countVotes(vs.ledger.CountedVotes(), key)
	results.TipHash = vs.ledger.Tip().Hash
	logs.Info("Counted %d votes (%d skipped) at tip %s", results.TotalVotes, results.SkippedVotes, results.TipHash)
	return results, nil
}

// EndVotingSession closes the session to new votes.
func (vs *VotingService) EndVotingSession() {
	vs.session.End()
	vs.metrics.EndVotingPhase()
	logs.Info("Voting session ended")
}

func (vs *VotingService) IsVotingActive() bool {
	return vs.session.IsActive()
}

func (vs *VotingService) Metrics() MetricsResponse {
	return vs.metrics.GetMetrics()
}

// ResetMetrics clears the collected metrics and starts a new observation window.
func (vs *VotingService) ResetMetrics() {
	vs.metrics.Reset()
	logs.Info("Metrics reset")
}

func (vs *VotingService) Status() ServiceStatus {
	vs.shardMu.Lock()
	pending := vs.shards != nil
	vs.shardMu.Unlock()

	return ServiceStatus{
		Session:       vs.session.Status(),
		Encoder:       encoderName(vs.encoder),
		Difficulty:    vs.difficulty,
		ElectionKey:   encryption.PublicKeyHex(vs.electionPub),
		ElectionAddr:  encryption.Address(vs.electionPub),
		ShardsPending: pending,
		Statistics:    vs.ledger.Statistics(),
	}
}

func encoderName(enc encryption.VoteEncoder) string {
	if _, ok := enc.(*encryption.SealedEncoder); ok {
		return encryption.FormatSealed
	}
	return encryption.FormatSimulated
}
