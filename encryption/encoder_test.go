package encryption

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vote-ledger/hashing"
	"vote-ledger/models"
)

var ballot = models.VotePayload{Choice: "candidate-2", ElectionID: "lt-2024", Constituency: "vilnius-01"}

func TestSimulatedEncoder(t *testing.T) {
	enc := NewSimulatedEncoder()
	enc.now = func() time.Time { return time.UnixMilli(1730000000123) }

	out, err := enc.Encode(ballot)
	require.NoError(t, err)
	assert.Equal(t, int64(1730000000123), out.Timestamp)

	parts := strings.Split(out.Opaque, ":")
	require.Len(t, parts, 3)
	assert.Equal(t, FormatSimulated, parts[0])
	assert.True(t, hashing.IsDigest(parts[1]))

	data, err := hex.DecodeString(parts[2])
	require.NoError(t, err)
	assert.Equal(t, hashing.DigestString(string(data)+"1730000000123"), parts[1])
	assert.Equal(t, FormatSimulated, Format(out.Opaque))

	opened, err := OpenVote(out.Opaque, nil)
	require.NoError(t, err)
	assert.Equal(t, ballot, *opened)
}

func TestSimulatedEncoderBindsTimestamp(t *testing.T) {
	enc := NewSimulatedEncoder()
	enc.now = func() time.Time { return time.UnixMilli(1) }
	a, err := enc.Encode(ballot)
	require.NoError(t, err)
	enc.now = func() time.Time { return time.UnixMilli(2) }
	b, err := enc.Encode(ballot)
	require.NoError(t, err)

	assert.NotEqual(t, a.Opaque, b.Opaque)
}

func TestSealedEncoderRoundTrip(t *testing.T) {
	key, err := GenerateElectionKey()
	require.NoError(t, err)

	out, err := NewSealedEncoder(&key.PublicKey).Encode(ballot)
	require.NoError(t, err)
	assert.Equal(t, FormatSealed, Format(out.Opaque))
	assert.NotContains(t, out.Opaque, hex.EncodeToString([]byte("candidate-2")))

	opened, err := OpenVote(out.Opaque, key)
	require.NoError(t, err)
	assert.Equal(t, ballot, *opened)

	_, err = OpenVote(out.Opaque, nil)
	assert.ErrorIs(t, err, ErrKeyRequired)

	other, err := GenerateElectionKey()
	require.NoError(t, err)
	_, err = OpenVote(out.Opaque, other)
	assert.Error(t, err)
}

func TestOpenVoteMalformed(t *testing.T) {
	digest := hashing.DigestString("x")
	cases := map[string]error{
		"no separators":             ErrMalformedVote,
		"RSA2048:abc:00":            ErrMalformedVote,
		"RSA2048:" + digest + ":zz": ErrMalformedVote,
		"RSA2048:" + digest + ":7b": ErrMalformedVote,
		"PGP:" + digest + ":7b7d":   ErrUnknownFormat,
	}
	for in, want := range cases {
		_, err := OpenVote(in, nil)
		assert.ErrorIs(t, err, want, "input %q", in)
	}
	assert.Equal(t, "", Format("no separators"))
}
