package index

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ConfigFingerprint hashes every configuration value that can affect
// chunking or naming — today, only the lines-per-chunk cap — using a
// fast, explicitly non-cryptographic hash (unlike the SHA-256 used for
// chunk content-addressing, drift detection has no adversarial model).
func ConfigFingerprint(maxLinesPerChunk int) uint64 {
	return xxhash.Sum64String("lines-per-chunk:" + strconv.Itoa(maxLinesPerChunk))
}
