// Package digest computes the fixed-output cryptographic checksum the
// archive records alongside every snapshot's byte offset.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the lowercase hex SHA-256 digest of data, with no separators.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether data's digest matches want.
func Verify(data []byte, want string) bool {
	return Sum(data) == want
}
