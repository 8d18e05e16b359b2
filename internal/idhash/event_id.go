package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"tweet-price-lab/internal/domain"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(len(author):author|anchor_post_id), author normalized.
// The length prefix keeps a '|' inside a handle from shifting the field boundary.
// Returns hex-encoded hash (64 characters).
func ComputeEventID(author, anchorPostID string) string {
	handle := domain.NormalizeHandle(author)
	data := fmt.Sprintf("%d:%s|%s", len(handle), handle, anchorPostID)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
