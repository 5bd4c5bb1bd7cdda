// Package bigsegments provides the externally-stored-segment side of the evaluator's
// BigSegmentsProvider collaborator: a polling, caching wrapper around a Store of segment membership
// data.
package bigsegments

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashForUserKey computes the hash used to look up a user's membership state in a Store, so that
// the store never sees a plaintext user key.
func HashForUserKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return base64.StdEncoding.EncodeToString(sum[:])
}
