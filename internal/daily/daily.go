// Package daily derives the shared board seed for the daily challenge and
// records one result per player per day.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Seed returns the deterministic game seed for a date key using
// HMAC-SHA256(salt, YYYY-MM-DD). Everyone playing that day gets the same
// board and color sequence.
func Seed(date, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(date))
	sum := h.Sum(nil)
	// first 8 bytes as the seed
	return binary.BigEndian.Uint64(sum[:8])
}

// SeedFor is Seed for the UTC day containing t.
func SeedFor(t time.Time, salt string) uint64 {
	return Seed(DateKey(t), salt)
}
