// Package gen provides small generic helpers: Max, used by the two dynamic
// engines for the max-end augmentation, and the string hashing used by
// the implicit engine's contig dictionary.
package gen

import (
	"golang.org/x/exp/constraints"

	"github.com/segmentio/fasthash/fnv1a"
)

// Max returns the max of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// HashString hashes a contig name using the same FNV1a implementation the
// hash-based containers in this family of packages use.
func HashString(s string) uint64 {
	return fnv1a.HashString64(s)
}
