package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/KeystoneDB/keystone/pkg/common/log"
	"github.com/KeystoneDB/keystone/pkg/comparator"
	"github.com/KeystoneDB/keystone/pkg/config"
	"github.com/KeystoneDB/keystone/pkg/sstable/block"
	"github.com/KeystoneDB/keystone/pkg/stats"
)

// runBlockBuildBenchmark measures how fast blocks can be filled and
// serialized. Blocks take keys in sorted order, so the key stream here
// is always sequential regardless of the mode flag.
func runBlockBuildBenchmark(collector *stats.AtomicCollector) string {
	fmt.Println("Running Block Build Benchmark...")

	cfg := config.NewDefaultConfig()
	builder := block.NewBuilder(comparator.Default, *restartInterval)
	value := benchValue()

	start := time.Now()
	deadline := start.Add(*duration)

	var blocksBuilt, entriesAdded, restartsTotal int
	var bytesBuilt int64
	keyCounter := 0

	for time.Now().Before(deadline) {
		buildStart := time.Now()

		blockEntries := 0
		for builder.CurrentSizeEstimate() < cfg.BlockSize && blockEntries < *numEntries {
			key := []byte(fmt.Sprintf("key-%010d", keyCounter))
			keyCounter++
			if err := builder.Add(key, value); err != nil {
				fmt.Fprintf(os.Stderr, "Block add error (key #%d): %v\n", keyCounter, err)
				collector.TrackError("block_build")
				goto benchmarkEnd
			}
			blockEntries++
		}

		data, err := builder.Finish()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Block finish error: %v\n", err)
			collector.TrackError("block_build")
			goto benchmarkEnd
		}

		collector.TrackOperationWithLatency(stats.OpBlockBuild, uint64(time.Since(buildStart).Nanoseconds()))
		collector.TrackBytes(true, uint64(len(data)))

		blocksBuilt++
		entriesAdded += blockEntries
		restartsTotal += (blockEntries + *restartInterval - 1) / *restartInterval
		bytesBuilt += int64(len(data))

		builder.Reset()
	}

benchmarkEnd:
	elapsed := time.Since(start)
	blocksPerSecond := float64(blocksBuilt) / elapsed.Seconds()
	mbPerSecond := float64(bytesBuilt) / (1024 * 1024) / elapsed.Seconds()

	bytesPerEntry := 0.0
	avgEntriesPerBlock := 0.0
	avgRestartsPerBlock := 0.0
	if entriesAdded > 0 {
		bytesPerEntry = float64(bytesBuilt) / float64(entriesAdded)
	}
	if blocksBuilt > 0 {
		avgEntriesPerBlock = float64(entriesAdded) / float64(blocksBuilt)
		avgRestartsPerBlock = float64(restartsTotal) / float64(blocksBuilt)
	}

	result := fmt.Sprintf("\nBlock Build Benchmark Results:")
	result += fmt.Sprintf("\n  Blocks Built: %d", blocksBuilt)
	result += fmt.Sprintf("\n  Entries Added: %d (avg %.1f per block)", entriesAdded, avgEntriesPerBlock)
	result += fmt.Sprintf("\n  Restart Points: %d (avg %.1f per block, interval %d)", restartsTotal, avgRestartsPerBlock, *restartInterval)
	result += fmt.Sprintf("\n  Data Built: %.2f MB (%.1f bytes/entry)", float64(bytesBuilt)/(1024*1024), bytesPerEntry)
	result += fmt.Sprintf("\n  Time: %.2f seconds", elapsed.Seconds())
	result += fmt.Sprintf("\n  Throughput: %.2f blocks/sec (%.2f MB/sec)", blocksPerSecond, mbPerSecond)
	result += fmt.Sprintf("\n  Latency: %.3f µs/block", 1000000.0/blocksPerSecond)

	benchResults = append(benchResults, BenchmarkResult{
		BenchmarkType: "BlockBuild",
		NumEntries:    entriesAdded,
		ValueSize:     *valueSize,
		Mode:          "Sequential",
		Operations:    blocksBuilt,
		Duration:      elapsed.Seconds(),
		Throughput:    blocksPerSecond,
		MBPerSec:      mbPerSecond,
		Latency:       1000000.0 / blocksPerSecond,
		Timestamp:     time.Now(),
	})

	return result
}

// runBlockReadBenchmark builds one block and then alternates full
// sequential scans with bursts of random point seeks against it.
func runBlockReadBenchmark(collector *stats.AtomicCollector) string {
	fmt.Println("Running Block Read Benchmark...")

	cfg := config.NewDefaultConfig()
	builder := block.NewBuilder(comparator.Default, *restartInterval)
	value := benchValue()

	var keys [][]byte
	for i := 0; builder.CurrentSizeEstimate() < cfg.BlockSize && i < *numEntries; i++ {
		key := []byte(fmt.Sprintf("key-%010d", i))
		if err := builder.Add(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build benchmark block: %v\n", err)
			os.Exit(1)
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		fmt.Fprintf(os.Stderr, "No entries fit in the benchmark block, check -entries and -value-size\n")
		os.Exit(1)
	}

	data, err := builder.Finish()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to finish benchmark block: %v\n", err)
		os.Exit(1)
	}

	reader, err := block.NewReader(data, comparator.Default)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open benchmark block: %v\n", err)
		os.Exit(1)
	}

	log.Info("Prepared block for reading: entries=%d bytes=%d restarts=%d",
		len(keys), reader.Len(), reader.NumRestarts())

	start := time.Now()
	deadline := start.Add(*duration)

	var scans, seeks, seekHits, entriesRead int
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for time.Now().Before(deadline) {
		// Full sequential scan
		scanStart := time.Now()
		iter := reader.Iterator()
		for iter.SeekToFirst(); iter.Valid(); iter.Next() {
			_ = iter.Key()
			_ = iter.Value()
			entriesRead++
		}
		collector.TrackOperationWithLatency(stats.OpBlockRead, uint64(time.Since(scanStart).Nanoseconds()))
		collector.TrackBytes(false, uint64(len(data)))
		scans++

		// A burst of point seeks between scans
		for i := 0; i < 100; i++ {
			target := keys[r.Intn(len(keys))]
			if iter.Seek(target) {
				_ = iter.Value()
				seekHits++
			}
			seeks++
		}
	}

	elapsed := time.Since(start)
	entriesPerSecond := float64(entriesRead) / elapsed.Seconds()
	seeksPerSecond := float64(seeks) / elapsed.Seconds()
	mbPerSecond := float64(scans) * float64(len(data)) / (1024 * 1024) / elapsed.Seconds()

	seekHitRate := 0.0
	if seeks > 0 {
		seekHitRate = float64(seekHits) / float64(seeks) * 100
	}

	result := fmt.Sprintf("\nBlock Read Benchmark Results:")
	result += fmt.Sprintf("\n  Block: %d entries, %d bytes, %d restart points", len(keys), reader.Len(), reader.NumRestarts())
	result += fmt.Sprintf("\n  Sequential Scans: %d (%d entries read)", scans, entriesRead)
	result += fmt.Sprintf("\n  Point Seeks: %d (%.2f%% hit rate)", seeks, seekHitRate)
	result += fmt.Sprintf("\n  Time: %.2f seconds", elapsed.Seconds())
	result += fmt.Sprintf("\n  Throughput: %.2f entries/sec, %.2f seeks/sec (%.2f MB/sec scanned)",
		entriesPerSecond, seeksPerSecond, mbPerSecond)

	benchResults = append(benchResults, BenchmarkResult{
		BenchmarkType: "BlockRead",
		NumEntries:    len(keys),
		ValueSize:     *valueSize,
		Mode:          "Sequential",
		Operations:    entriesRead + seeks,
		Duration:      elapsed.Seconds(),
		Throughput:    entriesPerSecond,
		MBPerSec:      mbPerSecond,
		Latency:       1000000.0 / entriesPerSecond,
		HitRate:       seekHitRate,
		EntriesPerSec: entriesPerSecond,
		Timestamp:     time.Now(),
	})

	return result
}
