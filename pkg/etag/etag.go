package etag

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Compute derives an ETag from a document's last-modified time (as unix
// milliseconds) and its canonical JSON payload. The hash input is
// "{lastModifiedMs}_{data}"; data is expected to already be in its
// canonical serialized form (see Canonicalize).
func Compute(lastModifiedMs int64, data []byte) string {
	input := fmt.Sprintf("%d_%s", lastModifiedMs, data)
	sum := sha256.Sum256([]byte(input))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Equal reports whether two ETags match, byte for byte. There is no
// semantic comparison beyond string equality; the core never attempts to
// interpret an ETag's structure.
func Equal(a, b string) bool {
	return a == b
}

// Canonicalize normalizes a JSON payload so that two logically identical
// documents (same keys and values, different whitespace or key order)
// produce byte-identical output: decode into a generic value, then
// re-encode with Go's encoding/json, which sorts object keys. Payloads
// that are not valid JSON are returned unchanged; ETag computation still
// works, it simply loses the "logically equal payloads hash equal" property
// for non-JSON data.
func Canonicalize(data []byte) []byte {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return data
	}
	out, err := json.Marshal(v)
	if err != nil {
		return data
	}
	return out
}
