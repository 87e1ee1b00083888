package filter

import (
	"github.com/cespare/xxhash/v2"
)

// BloomFilter builds compact probabilistic membership summaries over
// key sets. A filter never reports a key it was built from as absent;
// keys outside the set hit a false-positive rate governed by
// bitsPerKey (roughly 1% at 10 bits).
//
// The probes are derived from a single xxhash value by repeated
// rotation, so building and checking cost one hash per key.
type BloomFilter struct {
	bitsPerKey int
	k          int
}

// NewBloomFilter creates a filter generator allocating bitsPerKey
// bits for each key. The probe count is bitsPerKey * ln2, clamped to
// [1, 30].
func NewBloomFilter(bitsPerKey int) *BloomFilter {
	if bitsPerKey < 1 {
		bitsPerKey = 1
	}
	k := int(float64(bitsPerKey) * 0.69)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	return &BloomFilter{bitsPerKey: bitsPerKey, k: k}
}

// BitsPerKey returns the configured bit budget per key.
func (f *BloomFilter) BitsPerKey() int {
	return f.bitsPerKey
}

// CreateFilter builds the bit array for the given keys. The last byte
// of the result records the probe count so MayContain needs no
// generator state.
func (f *BloomFilter) CreateFilter(keys [][]byte) []byte {
	nBits := len(keys) * f.bitsPerKey
	// A floor keeps tiny key sets from hitting an absurd
	// false-positive rate.
	if nBits < 64 {
		nBits = 64
	}
	nBytes := (nBits + 7) / 8
	nBits = nBytes * 8

	data := make([]byte, nBytes+1)
	data[nBytes] = byte(f.k)
	for _, key := range keys {
		h := bloomHash(key)
		delta := h>>17 | h<<15
		for j := 0; j < f.k; j++ {
			pos := h % uint32(nBits)
			data[pos/8] |= 1 << (pos % 8)
			h += delta
		}
	}
	return data
}

// MayContain reports whether key may belong to the set a filter was
// built from. Filter data too short to be valid matches nothing; an
// unknown probe count is a reserved encoding and matches everything,
// so a newer filter format can never produce a false negative here.
func MayContain(key, data []byte) bool {
	if len(data) < 2 {
		return false
	}
	nBits := uint32((len(data) - 1) * 8)
	k := data[len(data)-1]
	if k > 30 {
		return true
	}

	h := bloomHash(key)
	delta := h>>17 | h<<15
	for j := byte(0); j < k; j++ {
		pos := h % nBits
		if data[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

func bloomHash(key []byte) uint32 {
	return uint32(xxhash.Sum64(key))
}
