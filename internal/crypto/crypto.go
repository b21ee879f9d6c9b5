// Package crypto computes content digests for HTTP validators.
package crypto

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex-encoded BLAKE2b-256 sum of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ETag returns a strong entity tag for data, quotes included.
func ETag(data []byte) string {
	return `"` + Digest(data) + `"`
}

// MatchesETag reports whether an If-None-Match header value matches etag.
// The header may be "*" or a comma-separated list of tags; weak tags
// compare equal to their strong form.
func MatchesETag(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" || etag == "" {
		return false
	}
	if header == "*" {
		return true
	}

	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == want {
			return true
		}
	}
	return false
}
