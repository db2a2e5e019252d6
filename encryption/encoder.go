package encryption

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto/ecies"

	"vote-ledger/hashing"
	"vote-ledger/models"
)

// Format tags that open an encoded vote string.
const (
	FormatSimulated = "RSA2048"
	FormatSealed    = "ECIES"
)

var (
	ErrUnknownFormat = errors.New("encryption: unknown vote format")
	ErrMalformedVote = errors.New("encryption: malformed encoded vote")
	ErrKeyRequired   = errors.New("encryption: election key required to open sealed vote")
)

// VoteEncoder turns a vote payload into the opaque string stored on the ledger.
type VoteEncoder interface {
	Encode(payload models.VotePayload) (*models.EncodedVote, error)
}

// SimulatedEncoder stands in for public-key encryption: the payload is only
// hex encoded, next to a digest binding it to the encoding time. Anyone can
// read it back; use SealedEncoder when votes must stay confidential.
type SimulatedEncoder struct {
	now func() time.Time
}

func NewSimulatedEncoder() *SimulatedEncoder {
	return &SimulatedEncoder{now: time.Now}
}

func (e *SimulatedEncoder) Encode(payload models.VotePayload) (*models.EncodedVote, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vote payload: %w", err)
	}
	ts := e.now().UnixMilli()
	digest := hashing.DigestString(string(data) + strconv.FormatInt(ts, 10))

	return &models.EncodedVote{
		Opaque:    join(FormatSimulated, digest, hex.EncodeToString(data)),
		Timestamp: ts,
	}, nil
}

// SealedEncoder encrypts votes to the election public key with ECIES. The
// digest covers the ciphertext, never the plaintext, since the choice space is small.
type SealedEncoder struct {
	pub *ecies.PublicKey
	now func() time.Time
}

func NewSealedEncoder(pub *ecdsa.PublicKey) *SealedEncoder {
	return &SealedEncoder{
		pub: ecies.ImportECDSAPublic(pub),
		now: time.Now,
	}
}

func (e *SealedEncoder) Encode(payload models.VotePayload) (*models.EncodedVote, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vote payload: %w", err)
	}
	ct, err := ecies.Encrypt(rand.Reader, e.pub, data, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to seal vote: %w", err)
	}
	ts := e.now().UnixMilli()
	body := hex.EncodeToString(ct)
	digest := hashing.DigestString(body + strconv.FormatInt(ts, 10))

	return &models.EncodedVote{
		Opaque:    join(FormatSealed, digest, body),
		Timestamp: ts,
	}, nil
}

func join(format, digest, body string) string {
	return format + ":" + digest + ":" + body
}

// Format returns the tag of an encoded vote, or "" if it has none.
func Format(opaque string) string {
	tag, _, ok := strings.Cut(opaque, ":")
	if !ok {
		return ""
	}
	return tag
}

// OpenVote recovers the payload of an encoded vote. Sealed votes need the
// election private key; simulated ones ignore it.
func OpenVote(opaque string, key *ecdsa.PrivateKey) (*models.VotePayload, error) {
	parts := strings.SplitN(opaque, ":", 3)
	if len(parts) != 3 || !hashing.IsDigest(parts[1]) {
		return nil, ErrMalformedVote
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVote, err)
	}

	var data []byte
	switch parts[0] {
	case FormatSimulated:
		data = body
	case FormatSealed:
		if key == nil {
			return nil, ErrKeyRequired
		}
		data, err = ecies.ImportECDSA(key).Decrypt(body, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open sealed vote: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, parts[0])
	}

	var payload models.VotePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVote, err)
	}
	return &payload, nil
}
