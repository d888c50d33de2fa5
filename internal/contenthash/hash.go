// Package contenthash computes the SHA-256 digest that drives Amelia's
// ingest skip/update/create decision (§4.2 step 3 of the store contract).
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 digest of canonical content. Equal
// canonical strings always hash equal; callers are responsible for
// canonicalizing before calling Hash (see Canonicalize).
func Hash(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
