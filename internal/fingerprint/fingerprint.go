// Package fingerprint derives stable document identifiers from source URLs so
// repeated submissions of the same video deduplicate onto one reel record.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FromURL returns a deterministic hex fingerprint for a source URL. The URL is
// trimmed but otherwise hashed verbatim; callers wanting scheme/query
// canonicalization must do it before fingerprinting.
func FromURL(url string) string {
	trimmed := strings.TrimSpace(url)
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}
