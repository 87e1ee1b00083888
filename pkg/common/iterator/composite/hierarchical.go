package composite

import (
	"bytes"
	"sync"

	"github.com/KeystoneDB/keystone/pkg/common/iterator"
)

// HierarchicalIterator merges multiple sources into one sorted view where
// newer sources (earlier in the slice) take precedence over older ones.
// When multiple sources contain the same key, the value from the newest
// source is used. Returned keys and values are owned by the iterator and
// remain valid until the next positioning call.
type HierarchicalIterator struct {
	// Sources in order from newest to oldest
	iterators []iterator.Iterator

	// Current entry, copied out of the winning source
	key   []byte
	value []byte
	valid bool

	mu sync.RWMutex
}

// NewHierarchicalIterator creates a new hierarchical iterator.
// Sources must be provided in newest-to-oldest order.
func NewHierarchicalIterator(iterators []iterator.Iterator) *HierarchicalIterator {
	return &HierarchicalIterator{
		iterators: iterators,
	}
}

// SeekToFirst positions the iterator at the first key
func (h *HierarchicalIterator) SeekToFirst() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, iter := range h.iterators {
		iter.SeekToFirst()
	}

	h.findNextUniqueKey(nil)
}

// SeekToLast positions the iterator at the last key
func (h *HierarchicalIterator) SeekToLast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, iter := range h.iterators {
		iter.SeekToLast()
	}

	// The strict comparison keeps the newest source's value on ties,
	// because newer sources are visited first
	var maxKey []byte
	var maxValue []byte
	found := false

	for _, iter := range h.iterators {
		if !iter.Valid() {
			continue
		}

		key := iter.Key()
		if !found || bytes.Compare(key, maxKey) > 0 {
			maxKey = key
			maxValue = iter.Value()
			found = true
		}
	}

	if found {
		h.key = copyBytes(maxKey)
		h.value = copyBytes(maxValue)
		h.valid = true
	} else {
		h.valid = false
	}
}

// Seek positions the iterator at the first key >= target
func (h *HierarchicalIterator) Seek(target []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, iter := range h.iterators {
		iter.Seek(target)
	}

	// Find the smallest key >= target across all sources
	var bestKey []byte
	var bestValue []byte
	bestIdx := -1
	h.valid = false

	for i, iter := range h.iterators {
		if !iter.Valid() {
			continue
		}

		key := iter.Key()
		if bytes.Compare(key, target) < 0 {
			continue
		}

		if bestIdx == -1 || bytes.Compare(key, bestKey) < 0 {
			bestKey = key
			bestValue = iter.Value()
			bestIdx = i
		}
	}

	if bestIdx == -1 {
		return false
	}

	h.setCurrent(bestKey, bestValue, bestIdx)
	return true
}

// Next advances the iterator to the next key
func (h *HierarchicalIterator) Next() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.valid {
		return false
	}

	// The current key is an owned copy, so it stays stable while the
	// sources advance past it
	return h.findNextUniqueKey(h.key)
}

// Key returns the current key
func (h *HierarchicalIterator) Key() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.valid {
		return nil
	}
	return h.key
}

// Value returns the current value
func (h *HierarchicalIterator) Value() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.valid {
		return nil
	}
	return h.value
}

// Valid returns true if the iterator is positioned at a valid entry
func (h *HierarchicalIterator) Valid() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.valid
}

// IsTombstone returns true if the current entry is a deletion marker
func (h *HierarchicalIterator) IsTombstone() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Tombstones surface as nil values in the merged view
	return h.valid && h.value == nil
}

// NumSources returns the number of source iterators
func (h *HierarchicalIterator) NumSources() int {
	return len(h.iterators)
}

// GetSourceIterators returns the underlying source iterators
func (h *HierarchicalIterator) GetSourceIterators() []iterator.Iterator {
	return h.iterators
}

// findNextUniqueKey positions at the smallest key greater than prevKey
// across all sources. A nil prevKey finds the first key. Returns true if
// a valid key was found.
func (h *HierarchicalIterator) findNextUniqueKey(prevKey []byte) bool {
	var bestKey []byte
	var bestValue []byte
	bestIdx := -1
	h.valid = false

	for i, iter := range h.iterators {
		if !iter.Valid() {
			continue
		}

		// Advance this source past prevKey
		if prevKey != nil && bytes.Compare(iter.Key(), prevKey) <= 0 {
			for iter.Valid() && bytes.Compare(iter.Key(), prevKey) <= 0 {
				if !iter.Next() {
					break
				}
			}

			if !iter.Valid() {
				continue
			}
		}

		key := iter.Key()
		if bestIdx == -1 || bytes.Compare(key, bestKey) < 0 {
			bestKey = key
			bestValue = iter.Value()
			bestIdx = i
		}
	}

	if bestIdx == -1 {
		return false
	}

	h.setCurrent(bestKey, bestValue, bestIdx)
	return true
}

// setCurrent records the winning entry, letting any newer source that
// holds the same key override the value. Key and value are copied
// because sources may reuse their buffers when they advance.
func (h *HierarchicalIterator) setCurrent(key, value []byte, sourceIdx int) {
	for i := 0; i < sourceIdx; i++ {
		iter := h.iterators[i]
		if !iter.Valid() {
			continue
		}

		if bytes.Equal(iter.Key(), key) {
			value = iter.Value()
			break
		}
	}

	h.key = copyBytes(key)
	h.value = copyBytes(value)
	h.valid = true
}

// copyBytes returns an owned copy of b, preserving nil. Tombstones are
// carried as nil values, so an empty value must stay distinct from a
// missing one.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
