package badger

import (
	"fmt"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

// Key prefixes for different data types
const (
	embeddingPrefix = "embcache"
	manifestPrefix  = "manifest"
)

// makeEmbeddingKey generates a key for a cached embedding by content key.
func makeEmbeddingKey(key core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", embeddingPrefix, key))
}

// makeManifestKey generates the key holding the current build manifest.
func makeManifestKey() []byte {
	return []byte(fmt.Sprintf("%s:current", manifestPrefix))
}
