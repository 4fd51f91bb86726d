// Package id is the canonical source for identifier generation across the
// codebase.
package id

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// UUID generates a random UUID v4 string.
func UUID() string {
	return uuid.NewString()
}

// Short generates a short random hex ID (16 characters). Suitable for
// user-facing IDs where brevity matters, e.g. timeline entries.
func Short() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
