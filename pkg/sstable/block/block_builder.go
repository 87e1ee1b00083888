package block

import (
	"encoding/binary"
	"fmt"

	"github.com/KeystoneDB/keystone/pkg/comparator"
)

// Builder constructs a serialized block from key-value pairs added in
// strictly increasing key order.
//
// Keys are prefix-compressed against their predecessor: each entry
// stores only the byte count it shares with the previous key plus the
// differing suffix. Every restartInterval entries the builder records
// a restart point and writes the full key, so a reader can
// binary-search the restart points and decompress forward from the
// nearest one instead of scanning the whole block.
//
// A builder serves one writer at a time and is reused across blocks
// via Reset.
type Builder struct {
	buf             []byte
	restarts        []uint32
	restartInterval int
	counter         int
	entries         int
	lastKey         []byte
	finished        bool
	cmp             comparator.Comparator
	tmp             [binary.MaxVarintLen64]byte
}

// NewBuilder creates a block builder ordering keys by cmp. A nil cmp
// falls back to the bytewise comparator; restart intervals below one
// are clamped to one.
func NewBuilder(cmp comparator.Comparator, restartInterval int) *Builder {
	if cmp == nil {
		cmp = comparator.Default
	}
	if restartInterval < 1 {
		restartInterval = 1
	}
	return &Builder{
		restarts:        []uint32{0},
		restartInterval: restartInterval,
		cmp:             cmp,
	}
}

// Add appends one key-value pair to the block under construction.
// The key must sort strictly after every previously added key; both
// the key and the value may be empty. The builder keeps its own copy
// of key, so the caller may reuse the slice.
func (b *Builder) Add(key, value []byte) error {
	if b.finished {
		return fmt.Errorf("%w: cannot add %q", ErrBuilderFinished, key)
	}
	if b.entries > 0 && b.cmp.Compare(key, b.lastKey) <= 0 {
		return fmt.Errorf("%w: %q after %q", ErrOutOfOrderKey, key, b.lastKey)
	}

	shared := 0
	if b.counter < b.restartInterval {
		n := len(b.lastKey)
		if len(key) < n {
			n = len(key)
		}
		for shared < n && b.lastKey[shared] == key[shared] {
			shared++
		}
	} else {
		// Group is full: the next entry restarts with a full key.
		b.restarts = append(b.restarts, uint32(len(b.buf)))
		b.counter = 0
	}

	b.putUvarint(uint64(shared))
	b.putUvarint(uint64(len(key) - shared))
	b.putUvarint(uint64(len(value)))
	b.buf = append(b.buf, key[shared:]...)
	b.buf = append(b.buf, value...)

	b.lastKey = append(b.lastKey[:0], key...)
	b.counter++
	b.entries++
	return nil
}

// Finish seals the block: it appends each restart offset and then the
// restart count as fixed-width little-endian uint32 values, and
// returns the completed block. The returned slice aliases
// builder-owned memory and stays valid until the next Reset. Finish
// may be called once per build; further calls return
// ErrBuilderFinished.
func (b *Builder) Finish() ([]byte, error) {
	if b.finished {
		return nil, ErrBuilderFinished
	}
	var tmp [trailerFieldSize]byte
	for _, offset := range b.restarts {
		binary.LittleEndian.PutUint32(tmp[:], offset)
		b.buf = append(b.buf, tmp[:]...)
	}
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(b.restarts)))
	b.buf = append(b.buf, tmp[:]...)
	b.finished = true
	return b.buf, nil
}

// CurrentSizeEstimate returns the size of the block as it would be
// after Finish: the entry bytes written so far plus the trailer the
// restart offsets will occupy. Once the builder is finished the
// estimate equals the finished block's length exactly.
func (b *Builder) CurrentSizeEstimate() int {
	if b.finished {
		return len(b.buf)
	}
	return len(b.buf) + len(b.restarts)*trailerFieldSize + trailerFieldSize
}

// Reset returns the builder to its initial state so it can build the
// next block. The underlying buffers are truncated, not reallocated.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.restarts = append(b.restarts[:0], 0)
	b.counter = 0
	b.entries = 0
	b.lastKey = b.lastKey[:0]
	b.finished = false
}

// Empty reports whether no entries have been added since
// construction or the last Reset.
func (b *Builder) Empty() bool {
	return b.entries == 0
}

// Entries returns the number of entries added to the current block.
func (b *Builder) Entries() int {
	return b.entries
}

func (b *Builder) putUvarint(v uint64) {
	n := binary.PutUvarint(b.tmp[:], v)
	b.buf = append(b.buf, b.tmp[:n]...)
}
