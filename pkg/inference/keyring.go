package inference

import (
	"strings"
	"sync/atomic"
)

// KeyRing rotates over a pool of API credentials round-robin, spreading
// quota across keys. The cursor advance is atomic; strict fairness under
// concurrent callers is not required since credentials are fungible.
type KeyRing struct {
	keys   []string
	cursor atomic.Uint64
}

// NewKeyRing parses a comma-separated credential list. Entries are
// whitespace-trimmed and empty entries dropped. An empty result is valid:
// some providers run without credentials.
func NewKeyRing(csv string) *KeyRing {
	var keys []string
	for _, k := range strings.Split(csv, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return &KeyRing{keys: keys}
}

// Next returns the credential at the cursor and advances it, wrapping
// around. An empty ring yields "".
func (r *KeyRing) Next() string {
	if len(r.keys) == 0 {
		return ""
	}
	n := r.cursor.Add(1) - 1
	return r.keys[n%uint64(len(r.keys))]
}

// Len returns the number of credentials in the ring.
func (r *KeyRing) Len() int {
	return len(r.keys)
}
