package service

import (
	"crypto/ecdsa"
	"sort"

	"vote-ledger/encryption"
	"vote-ledger/logs"
	"vote-ledger/models"
)

// VotingResults is the outcome of counting the latest vote of every voter.
type VotingResults struct {
	TotalVotes     int            `json:"total_votes"`
	Results        map[string]int `json:"results"`
	ProcessedVotes int            `json:"processed_votes"`
	SkippedVotes   int            `json:"skipped_votes"`
	TipHash        string         `json:"tip_hash"`
}

// Ranking lists choices by count, ties broken by name.
func (r *VotingResults) Ranking() []string {
	choices := make([]string, 0, len(r.Results))
	for c := range r.Results {
		choices = append(choices, c)
	}
	sort.Slice(choices, func(i, j int) bool {
		if r.Results[choices[i]] != r.Results[choices[j]] {
			return r.Results[choices[i]] > r.Results[choices[j]]
		}
		return choices[i] < choices[j]
	})
	return choices
}

// countVotes opens each counted block and tallies its choice. Blocks that do
// not open are skipped and reported, never guessed at.
func countVotes(counted []*models.Block, key *ecdsa.PrivateKey) *VotingResults {
	results := &VotingResults{
		Results:        make(map[string]int),
		ProcessedVotes: len(counted),
	}

	for _, block := range counted {
		vote, err := encryption.OpenVote(block.EncryptedVote, key)
		if err != nil {
			logs.Warn("Skipping block %d during count: %v", block.Index, err)
			results.SkippedVotes++
			continue
		}
		results.Results[vote.Choice]++
		results.TotalVotes++
	}
	return results
}
