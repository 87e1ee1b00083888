package main

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/KeystoneDB/keystone/pkg/common/iterator"
	"github.com/KeystoneDB/keystone/pkg/common/iterator/bounded"
	"github.com/KeystoneDB/keystone/pkg/common/iterator/filtered"
	"github.com/KeystoneDB/keystone/pkg/common/log"
	"github.com/KeystoneDB/keystone/pkg/comparator"
	"github.com/KeystoneDB/keystone/pkg/config"
	"github.com/KeystoneDB/keystone/pkg/memtable"
	"github.com/KeystoneDB/keystone/pkg/sstable/block"
	"github.com/KeystoneDB/keystone/pkg/stats"
	"github.com/KeystoneDB/keystone/pkg/telemetry"
)

// runMemTableBenchmark loads a memtable pool, draining retired tables
// through the block builder as a flush would, then measures point reads
// and range scans against the merged view. The run is split into three
// phases of equal wall-clock budget: writes, reads, scans.
func runMemTableBenchmark(collector *stats.AtomicCollector, tel telemetry.Telemetry) string {
	fmt.Println("Running MemTable Benchmark...")

	ctx := context.Background()

	cfg := config.NewDefaultConfig()
	// Small tables so the run covers switch and drain activity
	cfg.MemTableSize = 4 * 1024 * 1024

	metrics := memtable.NewMemTableMetrics(tel)
	defer metrics.Close()

	pool := memtable.NewMemTablePool(cfg, comparator.Default)
	pool.SetTelemetry(metrics)

	value := benchValue()
	keys := make([][]byte, 0, *numEntries)

	start := time.Now()
	writeDeadline := start.Add(*duration / 3)
	readDeadline := start.Add(*duration * 2 / 3)
	deadline := start.Add(*duration)

	var seq uint64
	var puts, deletes, drains, entriesDrained int

	writeStart := time.Now()
	for i := 0; i < *numEntries && time.Now().Before(writeDeadline); i++ {
		key := generateKey(i)
		keys = append(keys, key)
		seq++

		putStart := time.Now()
		pool.Put(key, value, seq)
		collector.TrackOperationWithLatency(stats.OpPut, uint64(time.Since(putStart).Nanoseconds()))
		puts++

		// An occasional delete of an earlier key keeps tombstones
		// flowing through the drain and scan paths
		if i > 0 && i%50 == 0 {
			seq++
			pool.Delete(keys[rand.Intn(i)], seq)
			deletes++
		}

		if pool.IsFlushNeeded() {
			pool.SwitchToNewMemTable()
			n := drainImmutables(ctx, pool, metrics, collector, cfg.BlockSize)
			entriesDrained += n
			drains++
		}
	}
	writeElapsed := time.Since(writeStart)
	collector.TrackMemTableSize(uint64(pool.TotalSize()))

	log.Info("MemTable write phase done: puts=%d deletes=%d drains=%d pool_bytes=%d",
		puts, deletes, drains, pool.TotalSize())

	var gets, hits int
	readStart := time.Now()
	for len(keys) > 0 && time.Now().Before(readDeadline) {
		var key []byte
		if rand.Intn(4) == 0 {
			key = []byte(fmt.Sprintf("absent-%010d", rand.Intn(1<<30)))
		} else {
			key = keys[rand.Intn(len(keys))]
		}

		getStart := time.Now()
		_, found := pool.Get(key)
		collector.TrackOperationWithLatency(stats.OpGet, uint64(time.Since(getStart).Nanoseconds()))
		if found {
			hits++
		}
		gets++
	}
	readElapsed := time.Since(readStart)

	// Scan phase: bounded range scans alternate with prefix-filtered
	// scans, both over the pool's merged view
	var scans, entriesScanned, tombstonesSeen int
	scanPhaseStart := time.Now()
	for len(keys) > 0 && time.Now().Before(deadline) {
		scanStart := time.Now()

		var iter iterator.Iterator
		if scans%2 == 0 {
			startKey, endKey := scanBounds(keys)
			iter = bounded.NewBoundedIterator(pool.NewIterator(), startKey, endKey)
		} else {
			iter = filtered.NewPrefixIterator(pool.NewIterator(), []byte("key-"))
		}

		for iter.SeekToFirst(); iter.Valid(); iter.Next() {
			if iter.IsTombstone() {
				tombstonesSeen++
			}
			entriesScanned++
		}

		collector.TrackOperationWithLatency(stats.OpScan, uint64(time.Since(scanStart).Nanoseconds()))
		scans++
	}
	scanElapsed := time.Since(scanPhaseStart)

	elapsed := time.Since(start)
	putsPerSecond := float64(puts) / writeElapsed.Seconds()
	getsPerSecond := 0.0
	if gets > 0 {
		getsPerSecond = float64(gets) / readElapsed.Seconds()
	}
	scansPerSecond := 0.0
	scanEntriesPerSecond := 0.0
	if scans > 0 {
		scansPerSecond = float64(scans) / scanElapsed.Seconds()
		scanEntriesPerSecond = float64(entriesScanned) / scanElapsed.Seconds()
	}
	hitRate := 0.0
	if gets > 0 {
		hitRate = float64(hits) / float64(gets) * 100
	}

	result := fmt.Sprintf("\nMemTable Benchmark Results:")
	result += fmt.Sprintf("\n  Key Mode: %s", keyMode())
	result += fmt.Sprintf("\n  Puts: %d (%d deletes mixed in)", puts, deletes)
	result += fmt.Sprintf("\n  Drains: %d memtables, %d entries through the block builder", drains, entriesDrained)
	result += fmt.Sprintf("\n  Gets: %d (%.2f%% hit rate)", gets, hitRate)
	result += fmt.Sprintf("\n  Scans: %d (%d entries, %d tombstones)", scans, entriesScanned, tombstonesSeen)
	result += fmt.Sprintf("\n  Final Pool Footprint: %.2f MB (%d immutable tables pending)",
		float64(pool.TotalSize())/(1024*1024), pool.ImmutableCount())
	result += fmt.Sprintf("\n  Time: %.2f seconds", elapsed.Seconds())
	result += fmt.Sprintf("\n  Write Throughput: %.2f puts/sec", putsPerSecond)
	result += fmt.Sprintf("\n  Read Throughput: %.2f gets/sec", getsPerSecond)
	result += fmt.Sprintf("\n  Scan Throughput: %.2f scans/sec (%.2f entries/sec)", scansPerSecond, scanEntriesPerSecond)

	totalOps := puts + gets + scans
	opsPerSecond := float64(totalOps) / elapsed.Seconds()

	benchResults = append(benchResults, BenchmarkResult{
		BenchmarkType: "MemTable",
		NumEntries:    puts,
		ValueSize:     *valueSize,
		Mode:          keyMode(),
		Operations:    totalOps,
		Duration:      elapsed.Seconds(),
		Throughput:    opsPerSecond,
		Latency:       1000000.0 / opsPerSecond,
		HitRate:       hitRate,
		EntriesPerSec: scanEntriesPerSecond,
		Timestamp:     time.Now(),
	})

	return result
}

// scanBounds picks a key range from the written keys, start inclusive
// and end exclusive.
func scanBounds(keys [][]byte) ([]byte, []byte) {
	a := keys[rand.Intn(len(keys))]
	b := keys[rand.Intn(len(keys))]
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	if bytes.Equal(a, b) {
		b = append(append([]byte{}, b...), 0xff)
	}
	return a, b
}

// drainImmutables writes every retired memtable out through a block
// builder, the way a flush would, and reports each drain through the
// pool metrics. It returns the number of entries drained.
func drainImmutables(ctx context.Context, pool *memtable.MemTablePool, metrics memtable.MemTableMetrics, collector *stats.AtomicCollector, blockSize int) int {
	totalEntries := 0

	for _, table := range pool.GetImmutablesForFlush() {
		drainStart := time.Now()
		tableSize := table.ApproximateSize()

		builder := block.NewBuilder(comparator.Default, *restartInterval)
		iter := memtable.NewIteratorAdapter(table.NewIterator())

		entries := 0
		var lastKey []byte
		for iter.SeekToFirst(); iter.Valid(); iter.Next() {
			key := iter.Key()
			// Blocks take strictly increasing keys; the newest version
			// of a key comes first, older versions are skipped
			if lastKey != nil && bytes.Equal(key, lastKey) {
				continue
			}
			lastKey = append(lastKey[:0], key...)

			if err := builder.Add(key, iter.Value()); err != nil {
				log.Error("Drain add failed: %v", err)
				collector.TrackError("drain")
				break
			}
			entries++

			if builder.CurrentSizeEstimate() >= blockSize {
				finishDrainBlock(builder, collector)
			}
		}
		if !builder.Empty() {
			finishDrainBlock(builder, collector)
		}

		metrics.RecordFlushDuration(ctx, time.Since(drainStart), tableSize, int64(entries))
		collector.TrackFlush()
		totalEntries += entries
	}

	return totalEntries
}

// finishDrainBlock serializes the current block and resets the builder
// for the next one.
func finishDrainBlock(builder *block.Builder, collector *stats.AtomicCollector) {
	data, err := builder.Finish()
	if err != nil {
		log.Error("Drain finish failed: %v", err)
		collector.TrackError("drain")
		builder.Reset()
		return
	}
	collector.TrackOperation(stats.OpBlockBuild)
	collector.TrackBytes(true, uint64(len(data)))
	builder.Reset()
}
