package memtable

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KeystoneDB/keystone/pkg/common/iterator"
	"github.com/KeystoneDB/keystone/pkg/common/iterator/composite"
	"github.com/KeystoneDB/keystone/pkg/common/log"
	"github.com/KeystoneDB/keystone/pkg/comparator"
	"github.com/KeystoneDB/keystone/pkg/config"
	"github.com/KeystoneDB/keystone/pkg/telemetry"
)

// MemTablePool manages a pool of MemTables
// It maintains one active MemTable and a set of immutable MemTables
type MemTablePool struct {
	cfg          *config.Config
	cmp          comparator.Comparator
	active       *MemTable
	immutables   []*MemTable
	maxAge       time.Duration
	maxSize      int64
	metrics      MemTableMetrics
	logger       log.Logger
	flushPending atomic.Bool
	mu           sync.RWMutex
}

// NewMemTablePool creates a new MemTable pool. A nil cmp falls back
// to the bytewise comparator.
func NewMemTablePool(cfg *config.Config, cmp comparator.Comparator) *MemTablePool {
	return &MemTablePool{
		cfg:        cfg,
		cmp:        cmp,
		active:     NewMemTable(cmp),
		immutables: make([]*MemTable, 0, cfg.MaxMemTables-1),
		maxAge:     time.Duration(cfg.MaxMemTableAge) * time.Second,
		maxSize:    cfg.MemTableSize,
		metrics:    NewNoopMemTableMetrics(),
		logger:     log.GetDefaultLogger().WithField("component", "memtable_pool"),
	}
}

// SetTelemetry replaces the pool's metrics implementation. Values
// that do not implement MemTableMetrics are ignored.
func (p *MemTablePool) SetTelemetry(tel interface{}) {
	if metrics, ok := tel.(MemTableMetrics); ok {
		p.metrics = metrics
	}
}

// Put adds a key-value pair to the active MemTable
func (p *MemTablePool) Put(key, value []byte, seqNum uint64) {
	start := time.Now()

	p.mu.RLock()
	before := p.active.ApproximateSize()
	p.active.Put(key, value, seqNum)
	after := p.active.ApproximateSize()
	p.mu.RUnlock()

	p.metrics.RecordOperation(context.Background(), telemetry.OpTypePut, time.Since(start))
	p.recordGrowth(before, after)

	// Check if we need to flush after this write
	p.checkFlushConditions()
}

// Delete marks a key as deleted in the active MemTable
func (p *MemTablePool) Delete(key []byte, seqNum uint64) {
	start := time.Now()

	p.mu.RLock()
	before := p.active.ApproximateSize()
	p.active.Delete(key, seqNum)
	after := p.active.ApproximateSize()
	p.mu.RUnlock()

	p.metrics.RecordOperation(context.Background(), telemetry.OpTypeDelete, time.Since(start))
	p.recordGrowth(before, after)

	// Check if we need to flush after this write
	p.checkFlushConditions()
}

// recordGrowth reports active table growth. The arena grows in whole
// blocks, so most writes report nothing.
func (p *MemTablePool) recordGrowth(before, after int64) {
	if after != before {
		p.metrics.RecordSizeChange(context.Background(), after, after-before,
			getMemTableTypeName(false))
	}
}

// Get retrieves the value for a key from all MemTables
// Checks the active MemTable first, then the immutables in reverse order
func (p *MemTablePool) Get(key []byte) ([]byte, bool) {
	start := time.Now()
	defer func() {
		p.metrics.RecordOperation(context.Background(), telemetry.OpTypeGet, time.Since(start))
	}()

	p.mu.RLock()
	defer p.mu.RUnlock()

	// Check active table first
	if value, found := p.active.Get(key); found {
		return value, true
	}

	// Check immutable tables in reverse order (newest first)
	for i := len(p.immutables) - 1; i >= 0; i-- {
		if value, found := p.immutables[i].Get(key); found {
			return value, true
		}
	}

	return nil, false
}

// ImmutableCount returns the number of immutable MemTables
func (p *MemTablePool) ImmutableCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.immutables)
}

// checkFlushConditions checks if we need to flush the active MemTable
func (p *MemTablePool) checkFlushConditions() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Skip if a flush is already pending
	if p.flushPending.Load() {
		return
	}

	size := p.active.ApproximateSize()
	age := p.active.Age()
	sizeTriggered := size >= p.maxSize
	ageTriggered := p.maxAge > 0 && age > p.maxAge.Seconds()

	if sizeTriggered || ageTriggered {
		p.flushPending.Store(true)
		reason := getFlushReasonName(sizeTriggered, ageTriggered, false)
		p.logger.Debug("flush triggered: reason=%s size=%d age=%.1fs", reason, size, age)
		p.metrics.RecordFlushTrigger(context.Background(), reason, size, age)
	}
}

// SwitchToNewMemTable makes the active MemTable immutable and creates a new active one
// Returns the immutable MemTable that needs to be flushed
func (p *MemTablePool) SwitchToNewMemTable() *MemTable {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A switch without a pending trigger was requested by the caller
	if !p.flushPending.Load() {
		p.metrics.RecordFlushTrigger(context.Background(),
			getFlushReasonName(false, false, true),
			p.active.ApproximateSize(), p.active.Age())
	}
	p.flushPending.Store(false)

	// Make the current active table immutable
	oldActive := p.active
	oldActive.SetImmutable()

	// Create a new active table
	p.active = NewMemTable(p.cmp)

	// Add the old table to the immutables list
	p.immutables = append(p.immutables, oldActive)

	p.logger.Debug("switched active memtable: immutables=%d immutable_size=%d",
		len(p.immutables), oldActive.ApproximateSize())
	p.metrics.RecordPoolState(context.Background(),
		p.active.ApproximateSize(), len(p.immutables), p.totalSizeLocked())

	// Return the table that needs to be flushed
	return oldActive
}

// GetImmutablesForFlush returns a list of immutable MemTables ready for flushing
// and removes them from the pool
func (p *MemTablePool) GetImmutablesForFlush() []*MemTable {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := p.immutables
	p.immutables = make([]*MemTable, 0, p.cfg.MaxMemTables-1)
	return result
}

// IsFlushNeeded returns true if a flush is needed
func (p *MemTablePool) IsFlushNeeded() bool {
	return p.flushPending.Load()
}

// GetNextSequenceNumber returns the next sequence number to use
func (p *MemTablePool) GetNextSequenceNumber() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active.GetNextSequenceNumber()
}

// GetMemTables returns all MemTables, the active one first
func (p *MemTablePool) GetMemTables() []*MemTable {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*MemTable, 0, len(p.immutables)+1)
	result = append(result, p.active)
	result = append(result, p.immutables...)
	return result
}

// NewIterator returns an iterator over the merged contents of the pool.
// For keys present in several tables, the entry from the newest table
// wins; deletions surface as tombstones rather than being elided.
func (p *MemTablePool) NewIterator() *composite.HierarchicalIterator {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Sources ordered newest to oldest: the active table, then the
	// immutables from most recently retired backwards
	sources := make([]iterator.Iterator, 0, len(p.immutables)+1)
	sources = append(sources, NewIteratorAdapter(p.active.NewIterator()))
	for i := len(p.immutables) - 1; i >= 0; i-- {
		sources = append(sources, NewIteratorAdapter(p.immutables[i].NewIterator()))
	}

	return composite.NewHierarchicalIterator(sources)
}

// TotalSize returns the total approximate size of all memtables in the pool
func (p *MemTablePool) TotalSize() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalSizeLocked()
}

func (p *MemTablePool) totalSizeLocked() int64 {
	total := p.active.ApproximateSize()
	for _, m := range p.immutables {
		total += m.ApproximateSize()
	}
	return total
}
