// Package id defines the 256-bit content identifiers used throughout hua
// and the hashing primitive they are derived from.
package id

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"lukechampine.com/blake3"
)

// Size is the length in bytes of a RawId.
const Size = 32

// RawId is an untyped 256-bit content identifier.
type RawId [Size]byte

// String renders the identifier as lowercase hex.
func (r RawId) String() string {
	return hex.EncodeToString(r[:])
}

// IsZero reports whether the identifier is the all-zero value.
func (r RawId) IsZero() bool {
	return r == RawId{}
}

// Truncate64 interprets the first 8 bytes of the identifier as a
// big-endian uint64, per spec.
func (r RawId) Truncate64() uint64 {
	return binary.BigEndian.Uint64(r[:8])
}

// Less gives RawId a total order for deterministic sorting.
func (r RawId) Less(other RawId) bool {
	for i := range r {
		if r[i] != other[i] {
			return r[i] < other[i]
		}
	}
	return false
}

// ObjectId identifies a Blob, Tree, or Link within a package.
type ObjectId RawId

func (o ObjectId) String() string    { return RawId(o).String() }
func (o ObjectId) Raw() RawId        { return RawId(o) }
func (o ObjectId) IsZero() bool      { return RawId(o).IsZero() }
func (o ObjectId) Less(p ObjectId) bool { return RawId(o).Less(RawId(p)) }

// PackageId identifies a whole package tree, salted with its name.
type PackageId RawId

func (p PackageId) String() string      { return RawId(p).String() }
func (p PackageId) Raw() RawId          { return RawId(p) }
func (p PackageId) IsZero() bool        { return RawId(p).IsZero() }
func (p PackageId) Less(q PackageId) bool { return RawId(p).Less(RawId(q)) }

// StoreId identifies a store instance (used to distinguish remote stores).
type StoreId RawId

func (s StoreId) String() string { return RawId(s).String() }

// DerivationId identifies a build provenance record.
type DerivationId RawId

func (d DerivationId) String() string        { return RawId(d).String() }
func (d DerivationId) Raw() RawId            { return RawId(d) }
func (d DerivationId) Less(e DerivationId) bool { return RawId(d).Less(RawId(e)) }

// Hasher incrementally hashes name/content pairs with BLAKE3, the
// keyless 256-bit cryptographic hash spec.md requires.
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a fresh incremental hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New(Size, nil)}
}

// Write feeds bytes into the running hash.
func (h *Hasher) Write(p []byte) {
	_, _ = h.h.Write(p)
}

// Sum finalizes the hash into a RawId without mutating the hasher.
func (h *Hasher) Sum() RawId {
	var out RawId
	copy(out[:], h.h.Sum(nil))
	return out
}

// Hash computes H(parts[0] || parts[1] || ...) in one call.
func Hash(parts ...[]byte) RawId {
	h := NewHasher()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum()
}

// HashString is a convenience wrapper for string-valued parts.
func HashString(parts ...string) RawId {
	h := NewHasher()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return h.Sum()
}

// ParseRawId parses a lowercase-hex identifier string.
func ParseRawId(s string) (RawId, error) {
	var out RawId
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != Size {
		return out, &ErrBadLength{Got: len(b)}
	}
	copy(out[:], b)
	return out, nil
}

// ErrBadLength is returned by ParseRawId when the decoded bytes aren't
// exactly Size long.
type ErrBadLength struct {
	Got int
}

func (e *ErrBadLength) Error() string {
	return "id: expected " + strconv.Itoa(Size) + " bytes, got " + strconv.Itoa(e.Got)
}
