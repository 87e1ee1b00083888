package stats

import (
	"sync"
	"testing"
)

func TestCollector_TrackOperation(t *testing.T) {
	collector := NewAtomicCollector()

	// Track operations
	collector.TrackOperation(OpPut)
	collector.TrackOperation(OpPut)
	collector.TrackOperation(OpGet)

	// Get stats
	stats := collector.GetStats()

	// Verify counts
	if stats["put_ops"].(uint64) != 2 {
		t.Errorf("Expected 2 put operations, got %v", stats["put_ops"])
	}

	if stats["get_ops"].(uint64) != 1 {
		t.Errorf("Expected 1 get operation, got %v", stats["get_ops"])
	}

	// Verify last operation times exist
	if _, exists := stats["last_put_time"]; !exists {
		t.Errorf("Expected last_put_time to exist in stats")
	}

	if _, exists := stats["last_get_time"]; !exists {
		t.Errorf("Expected last_get_time to exist in stats")
	}
}

func TestCollector_TrackOperationWithLatency(t *testing.T) {
	collector := NewAtomicCollector()

	// Track operations with latency
	collector.TrackOperationWithLatency(OpGet, 100)
	collector.TrackOperationWithLatency(OpGet, 200)
	collector.TrackOperationWithLatency(OpGet, 300)

	// Get stats
	stats := collector.GetStats()

	// Check latency stats
	latencyStats, ok := stats["get_latency"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected get_latency to be a map, got %T", stats["get_latency"])
	}

	if count := latencyStats["count"].(uint64); count != 3 {
		t.Errorf("Expected 3 latency records, got %v", count)
	}

	if avg := latencyStats["avg_ns"].(uint64); avg != 200 {
		t.Errorf("Expected average latency 200ns, got %v", avg)
	}

	if min := latencyStats["min_ns"].(uint64); min != 100 {
		t.Errorf("Expected min latency 100ns, got %v", min)
	}

	if max := latencyStats["max_ns"].(uint64); max != 300 {
		t.Errorf("Expected max latency 300ns, got %v", max)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	collector := NewAtomicCollector()
	const numGoroutines = 10
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Launch goroutines to track operations concurrently
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()

			for j := 0; j < opsPerGoroutine; j++ {
				// Mix different operations
				switch j % 3 {
				case 0:
					collector.TrackOperation(OpPut)
				case 1:
					collector.TrackOperation(OpGet)
				case 2:
					collector.TrackOperationWithLatency(OpDelete, uint64(j))
				}
			}
		}()
	}

	wg.Wait()

	// Counters are atomic, so after Wait the counts are exact: each
	// goroutine performs 334 puts, 333 gets, and 333 deletes
	stats := collector.GetStats()

	if ops := stats["put_ops"].(uint64); ops != numGoroutines*334 {
		t.Errorf("Expected %d put operations, got %v", numGoroutines*334, ops)
	}

	if ops := stats["get_ops"].(uint64); ops != numGoroutines*333 {
		t.Errorf("Expected %d get operations, got %v", numGoroutines*333, ops)
	}

	if ops := stats["delete_ops"].(uint64); ops != numGoroutines*333 {
		t.Errorf("Expected %d delete operations, got %v", numGoroutines*333, ops)
	}

	latencyStats, ok := stats["delete_latency"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected delete_latency to be a map, got %T", stats["delete_latency"])
	}
	if count := latencyStats["count"].(uint64); count != numGoroutines*333 {
		t.Errorf("Expected %d latency records, got %v", numGoroutines*333, count)
	}
}

func TestCollector_GetStatsFiltered(t *testing.T) {
	collector := NewAtomicCollector()

	// Track different operations
	collector.TrackOperation(OpPut)
	collector.TrackOperation(OpGet)
	collector.TrackOperation(OpGet)
	collector.TrackOperation(OpDelete)
	collector.TrackError("io_error")
	collector.TrackError("network_error")

	// Filter by "get" prefix
	getStats := collector.GetStatsFiltered("get")

	// Should only contain get_ops and related stats
	if len(getStats) == 0 {
		t.Errorf("Expected non-empty filtered stats")
	}

	if _, exists := getStats["get_ops"]; !exists {
		t.Errorf("Expected get_ops in filtered stats")
	}

	if _, exists := getStats["put_ops"]; exists {
		t.Errorf("Did not expect put_ops in get-filtered stats")
	}

	// Filter by "error" prefix
	errorStats := collector.GetStatsFiltered("error")

	if _, exists := errorStats["errors"]; !exists {
		t.Errorf("Expected errors in error-filtered stats")
	}
}

func TestCollector_TrackBytes(t *testing.T) {
	collector := NewAtomicCollector()

	// Track read and write bytes
	collector.TrackBytes(true, 1000) // write
	collector.TrackBytes(false, 500) // read

	stats := collector.GetStats()

	if bytesWritten := stats["total_bytes_written"].(uint64); bytesWritten != 1000 {
		t.Errorf("Expected 1000 bytes written, got %v", bytesWritten)
	}

	if bytesRead := stats["total_bytes_read"].(uint64); bytesRead != 500 {
		t.Errorf("Expected 500 bytes read, got %v", bytesRead)
	}
}

func TestCollector_TrackMemTableSize(t *testing.T) {
	collector := NewAtomicCollector()

	// Track memtable size
	collector.TrackMemTableSize(2048)

	stats := collector.GetStats()

	if size := stats["memtable_size"].(uint64); size != 2048 {
		t.Errorf("Expected memtable size 2048, got %v", size)
	}

	// Update memtable size
	collector.TrackMemTableSize(4096)

	stats = collector.GetStats()

	if size := stats["memtable_size"].(uint64); size != 4096 {
		t.Errorf("Expected updated memtable size 4096, got %v", size)
	}
}

func TestCollector_TrackFlush(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackFlush()
	collector.TrackFlush()

	stats := collector.GetStats()

	if flushes := stats["flush_count"].(uint64); flushes != 2 {
		t.Errorf("Expected 2 flushes, got %v", flushes)
	}
}

func TestCollector_BlockAndArenaOps(t *testing.T) {
	collector := NewAtomicCollector()

	collector.TrackOperation(OpBlockBuild)
	collector.TrackOperation(OpBlockRead)
	collector.TrackOperation(OpBlockRead)
	collector.TrackOperation(OpAlloc)

	blockStats := collector.GetStatsFiltered("block_")

	if ops := blockStats["block_build_ops"].(uint64); ops != 1 {
		t.Errorf("Expected 1 block build, got %v", ops)
	}

	if ops := blockStats["block_read_ops"].(uint64); ops != 2 {
		t.Errorf("Expected 2 block reads, got %v", ops)
	}

	if _, exists := blockStats["alloc_ops"]; exists {
		t.Errorf("Did not expect alloc_ops in block-filtered stats")
	}

	stats := collector.GetStats()
	if ops := stats["alloc_ops"].(uint64); ops != 1 {
		t.Errorf("Expected 1 alloc, got %v", ops)
	}
}
