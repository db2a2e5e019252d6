package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vote-ledger/config"
	"vote-ledger/hashing"
	"vote-ledger/models"
	"vote-ledger/service"
	"vote-ledger/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *service.VotingService) {
	t.Helper()
	cfg := config.Default()
	cfg.Difficulty = 1
	cfg.SessionDuration = time.Hour

	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	vs, err := service.NewVotingService(cfg, store)
	require.NoError(t, err)

	queue := service.NewQueueProcessor(vs, cfg.QueueSize, 0)
	queue.Start()
	t.Cleanup(queue.Stop)

	ts := httptest.NewServer(NewServer(vs, queue).Handler())
	t.Cleanup(ts.Close)
	return ts, vs
}

func do(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func castVote(t *testing.T, url, voter, choice string) *models.Receipt {
	t.Helper()
	var receipt models.Receipt
	status := do(t, http.MethodPost, url+"/api/vote", CastVoteRequest{
		VoterHash: hashing.VoterHash([]byte(voter)),
		Vote:      &models.VotePayload{Choice: choice, ElectionID: "e1"},
	}, &receipt)
	require.Equal(t, http.StatusOK, status)
	return &receipt
}

func TestVoteAndReceipt(t *testing.T) {
	ts, _ := newTestServer(t)

	receipt := castVote(t, ts.URL, "v1", "alice")
	assert.Equal(t, uint64(1), receipt.BlockIndex)

	var got models.Receipt
	status := do(t, http.MethodGet, ts.URL+"/api/receipt?id="+receipt.ID, nil, &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, receipt.Hash, got.Hash)

	status = do(t, http.MethodGet, ts.URL+"/api/receipt?id=nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVoteRejections(t *testing.T) {
	ts, vs := newTestServer(t)
	valid := hashing.VoterHash([]byte("v1"))

	tests := []struct {
		name   string
		method string
		body   interface{}
		want   int
	}{
		{"wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
		{"bad body", http.MethodPost, "not an object", http.StatusBadRequest},
		{"neither vote nor encrypted", http.MethodPost, CastVoteRequest{VoterHash: valid}, http.StatusBadRequest},
		{"both", http.MethodPost, CastVoteRequest{VoterHash: valid, Vote: &models.VotePayload{Choice: "a"}, EncryptedVote: "x"}, http.StatusBadRequest},
		{"bad voter hash", http.MethodPost, CastVoteRequest{VoterHash: "voterhash1", Vote: &models.VotePayload{Choice: "a"}}, http.StatusBadRequest},
		{"empty choice", http.MethodPost, CastVoteRequest{VoterHash: valid, Vote: &models.VotePayload{}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, tt.method, ts.URL+"/api/vote", tt.body, nil))
		})
	}

	vs.EndVotingSession()
	status := do(t, http.MethodPost, ts.URL+"/api/vote", CastVoteRequest{VoterHash: valid, EncryptedVote: "RSA2048:x"}, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestBlockchainEndpoints(t *testing.T) {
	ts, vs := newTestServer(t)
	castVote(t, ts.URL, "v1", "alice")
	castVote(t, ts.URL, "v2", "bob")

	var chain BlockchainResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/blockchain", nil, &chain))
	assert.Equal(t, 3, chain.BlockCount)
	assert.True(t, chain.IsValid)
	assert.Equal(t, chain.Blocks[2].Hash, chain.LastHash)

	var block BlockDetailsResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/blockchain/block?index=1", nil, &block))
	assert.True(t, block.Verification.HashMatch)
	assert.True(t, block.Verification.ProofValid)
	assert.Equal(t, "RSA2048", block.Format)

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/blockchain/block?index=x", nil, nil))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/api/blockchain/block?index=9", nil, nil))

	var stats models.Statistics
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/statistics", nil, &stats))
	assert.Equal(t, 2, stats.TotalBlocks)
	assert.Equal(t, 2, stats.UniqueVoters)
	assert.True(t, stats.ChainIntegrity)

	var result models.ValidationResult
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/blockchain/validate", nil, &result))
	assert.True(t, result.IsValid)
	assert.Equal(t, -1, result.FirstInvalidIndex)

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/blockchain/verify", VerifyChainRequest{Blocks: chain.Blocks}, &result))
	assert.True(t, result.IsValid)

	chain.Blocks[1].VoterHash = hashing.VoterHash([]byte("someone else"))
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/blockchain/verify", VerifyChainRequest{Blocks: chain.Blocks}, &result))
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.FirstInvalidIndex)
	assert.Equal(t, models.ReasonHashMismatch, result.Reason)

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/blockchain/verify", VerifyChainRequest{}, &result))
	assert.Equal(t, models.ReasonEmptyChain, result.Reason)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, ts.URL+"/api/blockchain/verify", "nope", nil))

	// the served ledger is untouched by edits to the downloaded copy
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/blockchain/validate", nil, &result))
	assert.True(t, result.IsValid)

	var status service.ServiceStatus
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/status", nil, &status))
	assert.False(t, status.Session.Halted)
	assert.True(t, status.Session.Active)
	assert.Equal(t, 2, vs.Statistics().UniqueVoters)
}

func TestAuditEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	castVote(t, ts.URL, "v1", "alice")

	var export models.AuditExport
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/audit", nil, &export))
	assert.Equal(t, 2, export.BlockCount)
	assert.Regexp(t, `^[0-9a-f]{8}\.\.\.$`, export.Blocks[1].VoterHash)

	var saved SaveAuditResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/audit/save", nil, &saved))
	assert.FileExists(t, saved.Path)
	assert.Equal(t, 2, saved.BlockCount)
}

func TestAdminShardsAndResults(t *testing.T) {
	ts, _ := newTestServer(t)
	castVote(t, ts.URL, "v1", "alice")
	castVote(t, ts.URL, "v2", "bob")
	castVote(t, ts.URL, "v1", "bob")

	var shards ShardsResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/admin/shards", nil, &shards))
	require.Len(t, shards.Shards, 5)
	assert.Equal(t, http.StatusConflict, do(t, http.MethodPost, ts.URL+"/api/admin/shards", nil, nil))

	status := do(t, http.MethodPost, ts.URL+"/api/admin/results", ResultsRequest{Shards: shards.Shards[:2]}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status = do(t, http.MethodPost, ts.URL+"/api/admin/results", ResultsRequest{Shards: []string{"SHARD-01:zz"}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var results service.VotingResults
	status = do(t, http.MethodPost, ts.URL+"/api/admin/results", ResultsRequest{Shards: shards.Shards[2:]}, &results)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]int{"bob": 2}, results.Results)
	assert.Equal(t, 2, results.TotalVotes)

	var metrics service.MetricsResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/metrics", nil, &metrics))
	assert.Equal(t, 3, metrics.Voting.Count)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, http.MethodGet, ts.URL+"/api/metrics/reset", nil, nil))
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/metrics/reset", nil, nil))
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, ts.URL+"/api/metrics", nil, &metrics))
	assert.Zero(t, metrics.Voting.Count)
}

func TestEndSession(t *testing.T) {
	ts, vs := newTestServer(t)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, http.MethodGet, ts.URL+"/api/session/end", nil, nil))
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, ts.URL+"/api/session/end", nil, nil))
	assert.False(t, vs.IsVotingActive())
}
