package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Identify derives the dedup identifier for a feed entry. The same
// (publishedAt, alternatePublishedAt, guidOrID) triple always yields the same
// 64 character hex digest, across restarts.
func Identify(publishedAt, alternatePublishedAt, guidOrID string) string {
	sum := sha256.Sum256([]byte(publishedAt + "/" + alternatePublishedAt + "/" + guidOrID))
	return hex.EncodeToString(sum[:])
}
