// Package identifier produces short, collision-resistant, tenant-scoped
// external-facing IDs of the form PREFIX-<token>.
//
// The token encodes a deterministic 32-bit fingerprint of the tenant id next
// to 32 bits of fresh cryptographic randomness, so IsIDFromTenant can check
// ownership without a database lookup while the tenant id itself is never
// exposed in cleartext.
//
// Collision model: with a 32-bit random component per tenant, expect roughly a
// 1% collision probability after about 9300 IDs generated for the same tenant
// (birthday bound). Callers needing higher volume per tenant should widen the
// random component.
package identifier

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const idSeparator = "-"

var (
	// ErrEmptyPrefix is returned when a Generator is constructed without a prefix.
	ErrEmptyPrefix = errors.New("prefix must not be empty")

	// ErrInvalidPrefix is returned when the prefix contains the id separator.
	ErrInvalidPrefix = errors.New("prefix must not contain the separator character")

	// ErrEmptyTenantID is returned when an empty tenant id is supplied to Generate.
	ErrEmptyTenantID = errors.New("tenant id must not be empty")

	// ErrReadingEntropyFailed is returned when the system entropy source fails.
	ErrReadingEntropyFailed = errors.New("reading random entropy failed")
)

// Generator produces tenant-scoped IDs with a fixed prefix and codec.
// It holds no persisted state; both operations are pure functions over
// cryptographic primitives.
type Generator struct {
	prefix string
	codec  Codec
}

// NewGenerator creates a Generator with the given prefix and codec.
func NewGenerator(prefix string, codec Codec) (Generator, error) {
	if prefix == "" {
		return Generator{}, ErrEmptyPrefix
	}

	if strings.Contains(prefix, idSeparator) {
		return Generator{}, ErrInvalidPrefix
	}

	return Generator{prefix: prefix, codec: codec}, nil
}

// TenantFingerprint computes the stable 32-bit fingerprint of a tenant id:
// the first 4 bytes of its SHA-256 digest, big-endian. Deterministic per
// tenant, effectively random relative to the tenant id's literal bytes.
func TenantFingerprint(tenantID string) uint32 {
	digest := sha256.Sum256([]byte(tenantID))

	return binary.BigEndian.Uint32(digest[:4])
}

// Generate produces a fresh id of the form "PREFIX-<token>" where the token
// encodes the tenant fingerprint followed by a cryptographically random
// 32-bit value.
func (g Generator) Generate(tenantID string) (string, error) {
	if tenantID == "" {
		return "", ErrEmptyTenantID
	}

	var entropy [4]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		return "", errors.Join(ErrReadingEntropyFailed, err)
	}

	token := g.codec.Encode(TenantFingerprint(tenantID), binary.BigEndian.Uint32(entropy[:]))

	return fmt.Sprintf("%s%s%s", g.prefix, idSeparator, token), nil
}

// IsIDFromTenant reports whether the given id was generated for the given
// tenant. It fails closed: a missing separator, an empty token, a token that
// does not decode, or a token with fewer than two values all return false.
func (g Generator) IsIDFromTenant(id string, tenantID string) bool {
	_, token, found := strings.Cut(id, idSeparator)
	if !found || token == "" {
		return false
	}

	values, err := g.codec.Decode(token)
	if err != nil || len(values) < 2 {
		return false
	}

	return values[0] == TenantFingerprint(tenantID)
}
