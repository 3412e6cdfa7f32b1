package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// HashParts hashes a sequence of byte slices. Each part is length
// prefixed so that ("ab", "c") and ("a", "bc") hash differently.
func HashParts(parts ...[]byte) Hash {
	h := sha256.New()
	var prefix [8]byte
	for _, part := range parts {
		n := uint64(len(part))
		for i := range prefix {
			prefix[i] = byte(n >> (8 * i))
		}
		h.Write(prefix[:])
		h.Write(part)
	}
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashStringMap hashes a string map independent of iteration order.
func HashStringMap(m map[string]string) Hash {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([][]byte, 0, 2*len(keys))
	for _, k := range keys {
		parts = append(parts, []byte(k), []byte(m[k]))
	}
	return HashParts(parts...)
}
