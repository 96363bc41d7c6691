// Package verifier turns client-derived authentication keys into stored
// bcrypt verifiers and checks keys against them.
//
// Two stored formats exist. Current verifiers hash the lowercase hex SHA-256
// of the key, so any key length is covered by bcrypt's 72-byte input cap.
// Legacy verifiers hash the raw key directly. Legacy records are never
// rewritten on login; only a key rotation stores a current-format verifier.
package verifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the bcrypt work factor of existing verifiers.
const DefaultCost = 12

// MaxLegacyKeyLen is bcrypt's input cap; longer raw keys were never
// representable in the legacy format.
const MaxLegacyKeyLen = 72

// Format identifies which stored format a key matched.
type Format int

const (
	FormatNone Format = iota
	FormatCurrent
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatCurrent:
		return "current"
	case FormatLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// Codec hashes and verifies authentication keys.
type Codec struct {
	cost int
}

// New returns a Codec using cost, or DefaultCost when cost is outside
// bcrypt's accepted range.
func New(cost int) *Codec {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Codec{cost: cost}
}

// Cost is the work factor new verifiers are produced with.
func (c *Codec) Cost() int {
	return c.cost
}

// Hash produces a current-format verifier with a fresh random salt.
func (c *Codec) Hash(authKey []byte) (string, error) {
	h, err := bcrypt.GenerateFromPassword(normalize(authKey), c.cost)
	if err != nil {
		return "", fmt.Errorf("hash verifier: %w", err)
	}
	return string(h), nil
}

// Verify reports whether authKey matches verifier in either format.
func (c *Codec) Verify(authKey []byte, verifier string) bool {
	return c.Match(authKey, verifier) != FormatNone
}

// Match tries the current format first and falls back to the legacy one
// only for keys within bcrypt's cap. Malformed verifiers never match.
func (c *Codec) Match(authKey []byte, verifier string) Format {
	stored := []byte(verifier)
	if bcrypt.CompareHashAndPassword(stored, normalize(authKey)) == nil {
		return FormatCurrent
	}
	if len(authKey) > MaxLegacyKeyLen {
		return FormatNone
	}
	if bcrypt.CompareHashAndPassword(stored, authKey) == nil {
		return FormatLegacy
	}
	return FormatNone
}

// normalize maps any key onto 64 ASCII hex bytes.
func normalize(authKey []byte) []byte {
	sum := sha256.Sum256(authKey)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum[:])
	return out
}
