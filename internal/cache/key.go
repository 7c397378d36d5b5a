package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key derives a deterministic cache key from the question and retrieval
// width. Questions are trimmed and lowercased so trivial reformulations
// hit the same entry.
func Key(question string, topK int) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", normalized, topK)))
	return hex.EncodeToString(sum[:])
}
