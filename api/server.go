// Package api exposes the vote ledger over JSON HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"vote-ledger/blockchain/evb"
	"vote-ledger/encryption"
	"vote-ledger/logs"
	"vote-ledger/models"
	"vote-ledger/pow"
	"vote-ledger/service"
	"vote-ledger/shamir"
)

type Server struct {
	votingService *service.VotingService
	queue         *service.QueueProcessor
	mux           *http.ServeMux
}

type CastVoteRequest struct {
	VoterHash     string              `json:"voter_hash"`
	Vote          *models.VotePayload `json:"vote,omitempty"`
	EncryptedVote string              `json:"encrypted_vote,omitempty"`
}

type BlockchainResponse struct {
	BlockCount int             `json:"block_count"`
	Blocks     []*models.Block `json:"blocks"`
	IsValid    bool            `json:"is_valid"`
	LastHash   string          `json:"last_hash"`
}

type VerifyChainRequest struct {
	Blocks []*models.Block `json:"blocks"`
}

type BlockVerification struct {
	CalculatedHash string `json:"calculated_hash"`
	StoredHash     string `json:"stored_hash"`
	HashMatch      bool   `json:"hash_match"`
	ProofValid     bool   `json:"proof_valid"`
}

type BlockDetailsResponse struct {
	Block        *models.Block     `json:"block"`
	Format       string            `json:"format,omitempty"`
	Verification BlockVerification `json:"verification"`
}

type SaveAuditResponse struct {
	ExportID   string `json:"export_id"`
	BlockCount int    `json:"block_count"`
	Path       string `json:"path"`
}

type ShardsResponse struct {
	Shards []string `json:"shards"`
}

type ResultsRequest struct {
	Shards []string `json:"shards"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer wires handlers for vs. Votes go through queue, which must be started by the caller.
func NewServer(vs *service.VotingService, queue *service.QueueProcessor) *Server {
	s := &Server{
		votingService: vs,
		queue:         queue,
		mux:           http.NewServeMux(),
	}

	s.mux.HandleFunc("/api/vote", s.handleCastVote)
	s.mux.HandleFunc("/api/receipt", s.handleGetReceipt)
	s.mux.HandleFunc("/api/status", s.handleGetStatus)
	s.mux.HandleFunc("/api/metrics", s.handleGetMetrics)
	s.mux.HandleFunc("/api/metrics/reset", s.handleResetMetrics)
	s.mux.HandleFunc("/api/session/end", s.handleEndSession)

	s.mux.HandleFunc("/api/blockchain", s.handleGetBlockchain)
	s.mux.HandleFunc("/api/blockchain/block", s.handleGetBlock)
	s.mux.HandleFunc("/api/blockchain/validate", s.handleValidateChain)
	s.mux.HandleFunc("/api/blockchain/verify", s.handleVerifyChain)
	s.mux.HandleFunc("/api/statistics", s.handleGetStatistics)

	s.mux.HandleFunc("/api/audit", s.handleGetAudit)
	s.mux.HandleFunc("/api/audit/save", s.handleSaveAudit)

	s.mux.HandleFunc("/api/admin/shards", s.handleIssueShards)
	s.mux.HandleFunc("/api/admin/results", s.handleCountVotes)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Warn("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidVoterHash),
		errors.Is(err, service.ErrInvalidVote),
		errors.Is(err, shamir.ErrInvalidShareFormat),
		errors.Is(err, shamir.ErrInsufficientShares),
		errors.Is(err, shamir.ErrInvalidShare),
		errors.Is(err, shamir.ErrShareLengthMismatch):
		return http.StatusBadRequest
	case errors.Is(err, encryption.ErrKeyMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrSessionClosed):
		return http.StatusForbidden
	case errors.Is(err, service.ErrReceiptNotFound),
		errors.Is(err, evb.ErrBlockNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrShardsIssued):
		return http.StatusConflict
	case errors.Is(err, service.ErrChainInvalid):
		return http.StatusConflict
	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, service.ErrQueueStopped),
		errors.Is(err, pow.ErrMiningTimeout),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if (req.Vote == nil) == (req.EncryptedVote == "") {
		writeError(w, http.StatusBadRequest, "exactly one of vote and encrypted_vote is required")
		return
	}

	var (
		receipt *models.Receipt
		err     error
	)
	if req.Vote != nil {
		receipt, err = s.queue.Submit(r.Context(), req.VoterHash, req.Vote)
	} else {
		receipt, err = s.queue.SubmitEncrypted(r.Context(), req.VoterHash, req.EncryptedVote)
	}
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	receipt, err := s.votingService.Receipt(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.votingService.Status())
}

func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.votingService.Metrics())
}

func (s *Server) handleResetMetrics(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	s.votingService.ResetMetrics()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	s.votingService.EndVotingSession()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetBlockchain(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	chain := s.votingService.Chain()
	response := BlockchainResponse{
		BlockCount: len(chain),
		Blocks:     chain,
		IsValid:    evb.ValidateChain(chain).IsValid,
		LastHash:   chain[len(chain)-1].Hash,
	}
	if !response.IsValid {
		logs.Warn("Served a chain that fails validation")
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	index, err := strconv.ParseUint(r.URL.Query().Get("index"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid block index")
		return
	}
	block, err := s.votingService.Block(index)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	response := BlockDetailsResponse{
		Block:  block,
		Format: encryption.Format(block.EncryptedVote),
	}
	if block.IsGenesis() {
		response.Verification = BlockVerification{
			CalculatedHash: block.Hash,
			StoredHash:     block.Hash,
			HashMatch:      true,
			ProofValid:     true,
		}
	} else {
		calculated := block.CalculateHash()
		response.Verification = BlockVerification{
			CalculatedHash: calculated,
			StoredHash:     block.Hash,
			HashMatch:      calculated == block.Hash,
			ProofValid:     block.HasValidProof(),
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleValidateChain(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.votingService.ValidateChain())
}

// handleVerifyChain checks a chain supplied in the request body, typically
// one previously downloaded from /api/blockchain.
func (s *Server) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req VerifyChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, b := range req.Blocks {
		if b == nil {
			writeError(w, http.StatusBadRequest, "null block in chain")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.votingService.VerifyChain(req.Blocks))
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.votingService.Statistics())
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.votingService.ExportAudit())
}

func (s *Server) handleSaveAudit(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	export, path, err := s.votingService.SaveAudit()
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SaveAuditResponse{
		ExportID:   export.ExportID,
		BlockCount: export.BlockCount,
		Path:       path,
	})
}

func (s *Server) handleIssueShards(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	shards, err := s.votingService.IssueKeyShards()
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ShardsResponse{Shards: shards})
}

func (s *Server) handleCountVotes(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req ResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	results, err := s.votingService.Tally(req.Shards)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, results)
}
