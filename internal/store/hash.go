package store

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// ContentHash returns the hex xxh3 digest of a file's bytes. It is the
// change-detection key stored in files.hash.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}
