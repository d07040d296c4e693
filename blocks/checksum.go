package blocks

import (
	"github.com/cespare/xxhash/v2"
)

// Hash represents a payload digest.
type Hash uint64

// Checksum computes the digest of bytes. Digests are diagnostic only, they are
// not stored in the archive.
func Checksum(b []byte) Hash {
	return Hash(xxhash.Sum64(b))
}
