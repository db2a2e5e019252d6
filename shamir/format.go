package shamir

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const shardPrefix = "SHARD-"

var ErrInvalidShareFormat = errors.New("shamir: invalid shard format")

// String renders the share as SHARD-<xx>:<hex(y)>.
func (s Share) String() string {
	return fmt.Sprintf("%s%02d:%s", shardPrefix, s.X, hex.EncodeToString(s.Y))
}

// Decode parses a shard produced by Share.String.
func Decode(shard string) (Share, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(shard), shardPrefix)
	if !ok {
		return Share{}, fmt.Errorf("%w: missing %q prefix", ErrInvalidShareFormat, shardPrefix)
	}
	id, body, ok := strings.Cut(rest, ":")
	if !ok {
		return Share{}, fmt.Errorf("%w: missing separator", ErrInvalidShareFormat)
	}
	// only the rendering String produces is accepted, so Decode and String round-trip
	x, err := strconv.ParseUint(id, 10, 8)
	if err != nil || x == 0 || id != fmt.Sprintf("%02d", x) {
		return Share{}, fmt.Errorf("%w: bad identifier %q", ErrInvalidShareFormat, id)
	}
	if body == "" || len(body)%2 != 0 {
		return Share{}, fmt.Errorf("%w: bad payload length %d", ErrInvalidShareFormat, len(body))
	}
	if body != strings.ToLower(body) {
		return Share{}, fmt.Errorf("%w: payload must be lowercase hex", ErrInvalidShareFormat)
	}
	y, err := hex.DecodeString(body)
	if err != nil {
		return Share{}, fmt.Errorf("%w: %v", ErrInvalidShareFormat, err)
	}
	return Share{X: byte(x), Y: y}, nil
}

func EncodeAll(shares []Share) []string {
	out := make([]string, len(shares))
	for i, s := range shares {
		out[i] = s.String()
	}
	return out
}

// DecodeAll decodes every shard, failing on the first malformed one.
func DecodeAll(shards []string) ([]Share, error) {
	out := make([]Share, 0, len(shards))
	for i, s := range shards {
		share, err := Decode(s)
		if err != nil {
			return nil, fmt.Errorf("shard %d: %w", i, err)
		}
		out = append(out, share)
	}
	return out, nil
}
