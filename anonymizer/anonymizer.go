package anonymizer

// DefaultVisiblePrefix is how many characters of a voter hash exported artifacts keep.
const DefaultVisiblePrefix = 8

// MaskVoterHash keeps the first keep characters of a voter hash and elides
// the rest, so exported records can be eyeballed for re-votes without carrying
// the full identifier.
func MaskVoterHash(hash string, keep int) string {
	if keep < 0 {
		keep = 0
	}
	if len(hash) <= keep {
		return hash
	}
	return hash[:keep] + "..."
}

// Prefix returns at most n leading characters of s.
func Prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
