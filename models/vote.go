package models

// VotePayload is what a voter selects. It is serialized and encoded before it
// reaches the ledger, which only ever sees the opaque result.
type VotePayload struct {
	Choice       string `json:"choice"`
	ElectionID   string `json:"election_id"`
	Constituency string `json:"constituency,omitempty"`
}

// EncodedVote is the opaque string handed to the ledger plus the time it was bound to.
type EncodedVote struct {
	Opaque    string `json:"opaque"`
	Timestamp int64  `json:"timestamp"`
}
