package comparator

import "bytes"

// Comparator defines a total ordering over byte-sequence keys.
// Implementations must be consistent: Compare(a, b) < 0 iff
// Compare(b, a) > 0, and Compare(a, b) == 0 iff the keys are equal
// under the ordering.
type Comparator interface {
	// Compare returns a negative value if a sorts before b,
	// zero if they are equal, and a positive value if a sorts after b.
	Compare(a, b []byte) int
}

// BytewiseComparator orders keys by lexicographic byte comparison.
// This is the ordering the storage engine uses unless a caller
// supplies its own.
type BytewiseComparator struct{}

// Compare returns the result of comparing a and b byte-wise.
func (BytewiseComparator) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Default is the comparator used when none is configured.
var Default Comparator = BytewiseComparator{}
