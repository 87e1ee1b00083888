package block

import (
	"encoding/binary"
	"fmt"

	"github.com/KeystoneDB/keystone/pkg/comparator"
)

// Reader provides access to a serialized block produced by Builder.
// It validates the trailer structure up front and decodes entries on
// demand through iterators. The reader does not copy data; the caller
// must keep the slice immutable for the reader's lifetime.
type Reader struct {
	data     []byte
	restarts []uint32
	dataEnd  int
	cmp      comparator.Comparator
}

// NewReader wraps a finished block. It returns ErrInvalidBlock if the
// trailer is structurally unsound: too little data, a restart count
// that does not fit, a first restart offset other than zero, or
// offsets that do not increase strictly within the entry region.
func NewReader(data []byte, cmp comparator.Comparator) (*Reader, error) {
	if cmp == nil {
		cmp = comparator.Default
	}
	if len(data) < trailerFieldSize {
		return nil, fmt.Errorf("%w: %d bytes is smaller than the trailer", ErrInvalidBlock, len(data))
	}

	numRestarts := int(binary.LittleEndian.Uint32(data[len(data)-trailerFieldSize:]))
	trailerSize := (numRestarts + 1) * trailerFieldSize
	if numRestarts < 1 || trailerSize > len(data) {
		return nil, fmt.Errorf("%w: restart count %d does not fit a %d-byte block",
			ErrInvalidBlock, numRestarts, len(data))
	}

	dataEnd := len(data) - trailerSize
	restarts := make([]uint32, numRestarts)
	for i := range restarts {
		restarts[i] = binary.LittleEndian.Uint32(data[dataEnd+i*trailerFieldSize:])
	}
	if restarts[0] != 0 {
		return nil, fmt.Errorf("%w: first restart offset is %d, want 0", ErrInvalidBlock, restarts[0])
	}
	for i := 1; i < len(restarts); i++ {
		if restarts[i] <= restarts[i-1] || int(restarts[i]) >= dataEnd {
			return nil, fmt.Errorf("%w: restart offset %d out of order or beyond the entry region",
				ErrInvalidBlock, restarts[i])
		}
	}

	return &Reader{
		data:     data,
		restarts: restarts,
		dataEnd:  dataEnd,
		cmp:      cmp,
	}, nil
}

// NumRestarts returns the number of restart points in the block.
func (r *Reader) NumRestarts() int {
	return len(r.restarts)
}

// Len returns the total block length in bytes, trailer included.
func (r *Reader) Len() int {
	return len(r.data)
}

// Iterator returns a fresh iterator positioned before the first
// entry.
func (r *Reader) Iterator() *Iterator {
	return &Iterator{reader: r}
}

// parseEntryHeader decodes the three varint fields of the entry at
// off. It returns the shared and unshared key byte counts, the value
// length, and the offset of the key delta bytes. ok is false when the
// varints are malformed or the declared lengths run past the entry
// region.
func (r *Reader) parseEntryHeader(off int) (shared, unshared, valueLen uint64, deltaOff int, ok bool) {
	data := r.data[:r.dataEnd]

	shared, n := binary.Uvarint(data[off:])
	if n <= 0 {
		return 0, 0, 0, 0, false
	}
	off += n
	unshared, n = binary.Uvarint(data[off:])
	if n <= 0 {
		return 0, 0, 0, 0, false
	}
	off += n
	valueLen, n = binary.Uvarint(data[off:])
	if n <= 0 {
		return 0, 0, 0, 0, false
	}
	off += n

	// Bound each length before summing so corrupt varints cannot
	// wrap the total around.
	end := uint64(r.dataEnd)
	if unshared > end || valueLen > end || uint64(off)+unshared+valueLen > end {
		return 0, 0, 0, 0, false
	}
	return shared, unshared, valueLen, off, true
}

// restartKey returns the full key stored at restart point i. Restart
// entries carry their complete key, so no prefix context is needed.
func (r *Reader) restartKey(i int) ([]byte, bool) {
	shared, unshared, _, deltaOff, ok := r.parseEntryHeader(int(r.restarts[i]))
	if !ok || shared != 0 {
		return nil, false
	}
	return r.data[deltaOff : deltaOff+int(unshared)], true
}
