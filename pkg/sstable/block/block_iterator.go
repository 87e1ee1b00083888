package block

// Iterator walks the entries of a block in key order, reconstructing
// prefix-compressed keys incrementally. The key buffer is owned by
// the iterator and overwritten on every step; Value returns a view
// into the block data. Callers must not modify either slice.
type Iterator struct {
	reader      *Reader
	offset      int
	nextOffset  int
	key         []byte
	value       []byte
	valid       bool
	initialized bool
}

// SeekToFirst positions the iterator at the first entry.
func (it *Iterator) SeekToFirst() {
	it.initialized = true
	if it.reader.dataEnd == 0 {
		it.valid = false
		return
	}
	it.readEntry(0)
}

// SeekToLast positions the iterator at the last entry by jumping to
// the final restart point and scanning forward.
func (it *Iterator) SeekToLast() {
	it.initialized = true
	if it.reader.dataEnd == 0 {
		it.valid = false
		return
	}
	off := int(it.reader.restarts[len(it.reader.restarts)-1])
	if !it.readEntry(off) {
		return
	}
	for it.nextOffset < it.reader.dataEnd {
		if !it.readEntry(it.nextOffset) {
			return
		}
	}
}

// Seek positions the iterator at the first entry whose key is greater
// than or equal to target and reports whether such an entry exists.
func (it *Iterator) Seek(target []byte) bool {
	it.initialized = true
	r := it.reader
	if r.dataEnd == 0 {
		it.valid = false
		return false
	}

	// Binary search for the last restart point whose key sorts
	// before target, then scan forward from there.
	left, right := 0, len(r.restarts)-1
	for left < right {
		mid := (left + right + 1) / 2
		key, ok := r.restartKey(mid)
		if !ok {
			it.valid = false
			return false
		}
		if r.cmp.Compare(key, target) < 0 {
			left = mid
		} else {
			right = mid - 1
		}
	}

	if !it.readEntry(int(r.restarts[left])) {
		return false
	}
	for r.cmp.Compare(it.key, target) < 0 {
		if it.nextOffset >= r.dataEnd {
			it.valid = false
			return false
		}
		if !it.readEntry(it.nextOffset) {
			return false
		}
	}
	return true
}

// Next advances to the following entry. On a fresh iterator it
// behaves like SeekToFirst.
func (it *Iterator) Next() bool {
	if !it.initialized {
		it.SeekToFirst()
		return it.valid
	}
	if !it.valid || it.nextOffset >= it.reader.dataEnd {
		it.valid = false
		return false
	}
	return it.readEntry(it.nextOffset)
}

// Key returns the current key, or nil when the iterator is invalid.
func (it *Iterator) Key() []byte {
	if !it.valid {
		return nil
	}
	return it.key
}

// Value returns the current value, or nil when the iterator is
// invalid.
func (it *Iterator) Value() []byte {
	if !it.valid {
		return nil
	}
	return it.value
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.valid
}

// readEntry decodes the entry at off. it.key must hold the previous
// entry's key; restart entries declare zero shared bytes, so they
// rebuild the key from scratch regardless of prior state. Malformed
// entry data invalidates the iterator.
func (it *Iterator) readEntry(off int) bool {
	shared, unshared, valueLen, deltaOff, ok := it.reader.parseEntryHeader(off)
	if !ok || shared > uint64(len(it.key)) {
		it.valid = false
		return false
	}

	it.key = append(it.key[:shared], it.reader.data[deltaOff:deltaOff+int(unshared)]...)
	valOff := deltaOff + int(unshared)
	valEnd := valOff + int(valueLen)
	it.value = it.reader.data[valOff:valEnd:valEnd]

	it.offset = off
	it.nextOffset = valEnd
	it.valid = true
	return true
}
