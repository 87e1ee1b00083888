package memtable

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/KeystoneDB/keystone/pkg/arena"
	"github.com/KeystoneDB/keystone/pkg/common/log"
	"github.com/KeystoneDB/keystone/pkg/comparator"
)

// MemTable is an in-memory table that stores key-value pairs,
// implemented as a skip list over arena-resident records. Keys and
// values are copied into the arena on write, so callers may reuse
// their buffers once Put or Delete returns. All record memory is
// released together when the table becomes unreachable.
type MemTable struct {
	skipList     *SkipList
	arena        *arena.Arena
	nextSeqNum   uint64
	creationTime time.Time
	immutable    atomic.Bool
	mu           sync.RWMutex
}

// NewMemTable creates a new memory table ordered by cmp. A nil cmp
// falls back to the bytewise comparator.
func NewMemTable(cmp comparator.Comparator) *MemTable {
	return &MemTable{
		skipList:     NewSkipList(cmp),
		arena:        arena.NewArena(),
		creationTime: time.Now(),
	}
}

// Put adds a key-value pair to the MemTable
func (m *MemTable) Put(key, value []byte, seqNum uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsImmutable() {
		log.Debug("Put ignored: memtable is immutable (key len %d, seq %d)", len(key), seqNum)
		return
	}

	m.skipList.Insert(newEntry(m.arena, key, value, TypeValue, seqNum))

	if seqNum >= m.nextSeqNum {
		m.nextSeqNum = seqNum + 1
	}
}

// Delete marks a key as deleted in the MemTable
func (m *MemTable) Delete(key []byte, seqNum uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsImmutable() {
		log.Debug("Delete ignored: memtable is immutable (key len %d, seq %d)", len(key), seqNum)
		return
	}

	m.skipList.Insert(newEntry(m.arena, key, nil, TypeDeletion, seqNum))

	if seqNum >= m.nextSeqNum {
		m.nextSeqNum = seqNum + 1
	}
}

// Get retrieves the value associated with the given key
// Returns (nil, true) if the key exists but has been deleted
// Returns (nil, false) if the key does not exist
// Returns (value, true) if the key exists and has a value
func (m *MemTable) Get(key []byte) ([]byte, bool) {
	if m.IsImmutable() {
		// Immutable memtables take no more writes, so reads can skip
		// the lock entirely.
		return m.get(key)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.get(key)
}

func (m *MemTable) get(key []byte) ([]byte, bool) {
	e, found := m.skipList.Find(key)
	if !found {
		return nil, false
	}
	if e.valueType() == TypeDeletion {
		return nil, true
	}
	return e.value(), true
}

// Contains checks if the key exists in the MemTable, tombstones
// included.
func (m *MemTable) Contains(key []byte) bool {
	if m.IsImmutable() {
		_, found := m.skipList.Find(key)
		return found
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, found := m.skipList.Find(key)
	return found
}

// ApproximateSize returns the memory held by the table's arena in
// bytes. Skip list node overhead is not counted, and the figure grows
// in whole arena blocks rather than per entry.
func (m *MemTable) ApproximateSize() int64 {
	return m.arena.MemoryUsage()
}

// SetImmutable marks the MemTable as immutable
// After this is called, no more modifications are allowed
func (m *MemTable) SetImmutable() {
	m.immutable.Store(true)
}

// IsImmutable returns whether the MemTable is immutable
func (m *MemTable) IsImmutable() bool {
	return m.immutable.Load()
}

// Age returns the age of the MemTable in seconds
func (m *MemTable) Age() float64 {
	return time.Since(m.creationTime).Seconds()
}

// NewIterator returns an iterator over the table in key order, with
// equal keys ordered newest first.
func (m *MemTable) NewIterator() *Iterator {
	if m.IsImmutable() {
		return m.skipList.NewIterator()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.skipList.NewIterator()
}

// GetNextSequenceNumber returns one past the highest sequence number
// the table has seen.
func (m *MemTable) GetNextSequenceNumber() uint64 {
	if m.IsImmutable() {
		return m.nextSeqNum
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextSeqNum
}
