package memtable

import (
	"encoding/binary"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/KeystoneDB/keystone/pkg/arena"
	"github.com/KeystoneDB/keystone/pkg/comparator"
)

const (
	// MaxHeight is the maximum height of the skip list
	MaxHeight = 12

	// BranchingFactor determines the probability of increasing the height
	BranchingFactor = 4
)

// ValueType represents the type of a key-value entry
type ValueType uint8

const (
	// TypeValue indicates the entry contains a value
	TypeValue ValueType = iota + 1

	// TypeDeletion indicates the entry is a tombstone (deletion marker)
	TypeDeletion
)

// entryTagSize is the length of the tag that prefixes every record:
// the sequence number in the high 56 bits and the value type in the
// low 8, little-endian.
const entryTagSize = 8

// entry is a view over a single arena record. The record holds the
// tag, the key bytes, and the value bytes back to back, so one
// allocation covers everything the skip list needs to keep.
type entry struct {
	rec  []byte
	klen int
}

// newEntry copies key and value into a fresh arena record. Callers
// may reuse their buffers as soon as it returns.
func newEntry(a *arena.Arena, key, value []byte, valueType ValueType, seqNum uint64) entry {
	rec := a.AllocateAligned(entryTagSize + len(key) + len(value))
	binary.LittleEndian.PutUint64(rec, seqNum<<8|uint64(valueType))
	copy(rec[entryTagSize:], key)
	copy(rec[entryTagSize+len(key):], value)
	return entry{rec: rec, klen: len(key)}
}

func (e entry) key() []byte {
	return e.rec[entryTagSize : entryTagSize+e.klen]
}

// value returns nil for tombstones so callers can tell a deletion
// apart from an empty value.
func (e entry) value() []byte {
	if e.valueType() == TypeDeletion {
		return nil
	}
	return e.rec[entryTagSize+e.klen:]
}

func (e entry) valueType() ValueType {
	return ValueType(e.rec[0])
}

func (e entry) seqNum() uint64 {
	return binary.LittleEndian.Uint64(e.rec) >> 8
}

// size returns the record size in bytes, tag included.
func (e entry) size() int {
	return len(e.rec)
}

// node represents a node in the skip list
type node struct {
	entry  entry
	height int32
	// next contains pointers to the next nodes at each level
	next [MaxHeight]unsafe.Pointer
}

func newNode(e entry, height int) *node {
	return &node{
		entry:  e,
		height: int32(height),
	}
}

// getNext returns the next node at the given level
func (n *node) getNext(level int) *node {
	return (*node)(atomic.LoadPointer(&n.next[level]))
}

// setNext sets the next node at the given level
func (n *node) setNext(level int, next *node) {
	atomic.StorePointer(&n.next[level], unsafe.Pointer(next))
}

// SkipList is the ordered index of a MemTable. A single writer may
// insert while any number of readers search or iterate; writers are
// serialized by the MemTable that owns the list.
type SkipList struct {
	head      *node
	maxHeight int32
	cmp       comparator.Comparator
	rnd       *rand.Rand
	rndMtx    sync.Mutex
}

// NewSkipList creates a new skip list ordered by cmp. A nil cmp falls
// back to the bytewise comparator.
func NewSkipList(cmp comparator.Comparator) *SkipList {
	if cmp == nil {
		cmp = comparator.Default
	}
	return &SkipList{
		head:      newNode(entry{}, MaxHeight),
		maxHeight: 1,
		cmp:       cmp,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// randomHeight generates a random height for a new node
func (s *SkipList) randomHeight() int {
	s.rndMtx.Lock()
	defer s.rndMtx.Unlock()

	height := 1
	for height < MaxHeight && s.rnd.Intn(BranchingFactor) == 0 {
		height++
	}
	return height
}

// getCurrentHeight returns the current maximum height of the skip list
func (s *SkipList) getCurrentHeight() int {
	return int(atomic.LoadInt32(&s.maxHeight))
}

// compareEntries orders entries by key, and equal keys newest first,
// so the first match found during a search is the current version.
func (s *SkipList) compareEntries(a, b entry) int {
	if c := s.cmp.Compare(a.key(), b.key()); c != 0 {
		return c
	}
	as, bs := a.seqNum(), b.seqNum()
	if as > bs {
		return -1
	} else if as < bs {
		return 1
	}
	return 0
}

// Insert adds a new entry to the skip list
func (s *SkipList) Insert(e entry) {
	height := s.randomHeight()
	var prev [MaxHeight]*node
	n := newNode(e, height)

	currHeight := s.getCurrentHeight()
	if height > currHeight {
		// Levels above the current height have no nodes yet, so the
		// head is the predecessor there. Readers that observe the new
		// height before the links exist simply drop down a level.
		for level := currHeight; level < height; level++ {
			prev[level] = s.head
		}
		atomic.StoreInt32(&s.maxHeight, int32(height))
	}

	// Find the insertion point at each level
	current := s.head
	for level := currHeight - 1; level >= 0; level-- {
		for next := current.getNext(level); next != nil; next = current.getNext(level) {
			if s.compareEntries(next.entry, e) >= 0 {
				break
			}
			current = next
		}
		prev[level] = current
	}

	// Link the node in bottom-up so readers never see a node at a
	// higher level before the lower levels are reachable.
	for level := 0; level < height; level++ {
		n.setNext(level, prev[level].getNext(level))
		prev[level].setNext(level, n)
	}
}

// Find looks for an entry with the specified key. If multiple entries
// carry the same key, the one with the highest sequence number is
// returned.
func (s *SkipList) Find(key []byte) (entry, bool) {
	current := s.head
	for level := s.getCurrentHeight() - 1; level >= 0; level-- {
		for next := current.getNext(level); next != nil; next = current.getNext(level) {
			if s.cmp.Compare(next.entry.key(), key) >= 0 {
				break
			}
			current = next
		}
	}

	// Duplicate keys sort newest first, so the first entry at or past
	// the target is the current version when it matches.
	next := current.getNext(0)
	if next != nil && s.cmp.Compare(next.entry.key(), key) == 0 {
		return next.entry, true
	}
	return entry{}, false
}

// Iterator provides sequential access to the skip list entries
type Iterator struct {
	list    *SkipList
	current *node
}

// NewIterator creates a new Iterator for the skip list
func (s *SkipList) NewIterator() *Iterator {
	return &Iterator{
		list:    s,
		current: s.head,
	}
}

// Valid returns true if the iterator is positioned at a valid entry
func (it *Iterator) Valid() bool {
	return it.current != nil && it.current != it.list.head
}

// Next advances the iterator to the next entry
func (it *Iterator) Next() {
	if it.current == nil {
		return
	}
	it.current = it.current.getNext(0)
}

// SeekToFirst positions the iterator at the first entry
func (it *Iterator) SeekToFirst() {
	it.current = it.list.head.getNext(0)
}

// Seek positions the iterator at the first entry with a key >= target
func (it *Iterator) Seek(key []byte) {
	current := it.list.head
	for level := it.list.getCurrentHeight() - 1; level >= 0; level-- {
		for next := current.getNext(level); next != nil; next = current.getNext(level) {
			if it.list.cmp.Compare(next.entry.key(), key) >= 0 {
				break
			}
			current = next
		}
	}

	it.current = current.getNext(0)
}

// Key returns the key of the current entry
func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.current.entry.key()
}

// Value returns the value of the current entry. Tombstones report a
// nil value but remain visible so a drain into an on-disk table can
// carry the deletion forward.
func (it *Iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.current.entry.value()
}

// ValueType returns the type of the current entry (TypeValue or TypeDeletion)
func (it *Iterator) ValueType() ValueType {
	if !it.Valid() {
		return 0
	}
	return it.current.entry.valueType()
}

// IsTombstone returns true if the current entry is a deletion marker
func (it *Iterator) IsTombstone() bool {
	return it.Valid() && it.current.entry.valueType() == TypeDeletion
}

// SequenceNumber returns the sequence number of the current entry,
// or zero when the iterator is not positioned at one.
func (it *Iterator) SequenceNumber() uint64 {
	if !it.Valid() {
		return 0
	}
	return it.current.entry.seqNum()
}
