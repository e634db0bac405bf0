package domain

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

// IdentitySize is the length of an Ed25519 public key.
const IdentitySize = 32

// Identity is a caller or account reference: a 32-byte public key.
// It carries no ownership semantics and is only compared for equality.
type Identity [IdentitySize]byte

// ParseIdentity decodes a base58 public key.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	if s == "" {
		return id, fmt.Errorf("parse identity: empty string")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("parse identity %q: %w", s, err)
	}
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("parse identity %q: expected %d bytes, got %d", s, IdentitySize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is ParseIdentity for constants and tests. It panics on invalid input.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IdentityFromBytes copies a 32-byte slice into an Identity.
func IdentityFromBytes(b []byte) (Identity, error) {
	var id Identity
	if len(b) != IdentitySize {
		return id, fmt.Errorf("identity: expected %d bytes, got %d", IdentitySize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String returns the base58 encoding.
func (id Identity) String() string {
	return base58.Encode(id[:])
}

// Bytes returns a copy of the raw key bytes.
func (id Identity) Bytes() []byte {
	out := make([]byte, IdentitySize)
	copy(out, id[:])
	return out
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Equal reports whether two identities refer to the same key.
func (id Identity) Equal(other Identity) bool {
	return bytes.Equal(id[:], other[:])
}

// MarshalText implements encoding.TextMarshaler so identities render as base58 in JSON.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
