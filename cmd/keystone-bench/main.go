package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/KeystoneDB/keystone/pkg/common/log"
	"github.com/KeystoneDB/keystone/pkg/stats"
	"github.com/KeystoneDB/keystone/pkg/telemetry"
)

const (
	defaultValueSize  = 100
	defaultEntryCount = 100000
)

var (
	// Command line flags
	benchmarkType   = flag.String("type", "all", "Type of benchmark to run (block, block-read, arena, memtable, filter, or all)")
	duration        = flag.Duration("duration", 10*time.Second, "Duration to run each benchmark")
	numEntries      = flag.Int("entries", defaultEntryCount, "Number of entries to use")
	valueSize       = flag.Int("value-size", defaultValueSize, "Size of values in bytes")
	restartInterval = flag.Int("restart-interval", 16, "Number of keys between restart points in built blocks")
	sequential      = flag.Bool("sequential", false, "Use sequential keys instead of random")
	cpuProfile      = flag.String("cpu-profile", "", "Write CPU profile to file")
	memProfile      = flag.String("mem-profile", "", "Write memory profile to file")
	resultsFile     = flag.String("results", "", "File to write results to (in addition to stdout)")
	csvFile         = flag.String("csv", "", "File to write results to in CSV format")
)

// benchResults collects one structured row per benchmark for the CSV
// report and the summary table.
var benchResults []BenchmarkResult

func main() {
	flag.Parse()

	if *restartInterval < 1 {
		*restartInterval = 1
	}

	// Set up CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	// Telemetry is opt-in for the bench: enable it through the
	// KEYSTONE_TELEMETRY_* environment variables
	ctx := context.Background()
	telCfg := telemetry.DefaultConfig()
	telCfg.Enabled = false
	telCfg.LoadFromEnv()
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		log.Error("Telemetry setup failed, continuing without it: %v", err)
		tel = telemetry.NewNoop()
	}
	defer tel.Shutdown(ctx)

	collector := stats.NewAtomicCollector()

	// Prepare result output
	var results []string
	results = append(results, fmt.Sprintf("Benchmark Report (%s)", time.Now().Format(time.RFC3339)))
	results = append(results, fmt.Sprintf("Entries: %d, Value Size: %d bytes, Restart Interval: %d, Duration: %s, Mode: %s",
		*numEntries, *valueSize, *restartInterval, *duration, keyMode()))

	types := strings.Split(*benchmarkType, ",")
	for _, typ := range types {
		switch strings.ToLower(typ) {
		case "block":
			results = append(results, runBlockBuildBenchmark(collector))
		case "block-read":
			results = append(results, runBlockReadBenchmark(collector))
		case "arena":
			results = append(results, runArenaBenchmark(collector))
		case "memtable":
			results = append(results, runMemTableBenchmark(collector, tel))
		case "filter":
			results = append(results, runFilterBenchmark(collector))
		case "all":
			results = append(results, runBlockBuildBenchmark(collector))
			results = append(results, runBlockReadBenchmark(collector))
			results = append(results, runArenaBenchmark(collector))
			results = append(results, runMemTableBenchmark(collector, tel))
			results = append(results, runFilterBenchmark(collector))
		default:
			fmt.Fprintf(os.Stderr, "Unknown benchmark type: %s\n", typ)
			os.Exit(1)
		}
	}

	results = append(results, collectorSummary(collector))

	// Print results
	for _, result := range results {
		fmt.Println(result)
	}

	if len(benchResults) > 1 {
		fmt.Println()
		PrintResultTable(benchResults)
	}

	// Write results to file if requested
	if *resultsFile != "" {
		err := os.WriteFile(*resultsFile, []byte(strings.Join(results, "\n")), 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write results to file: %v\n", err)
		}
	}

	if *csvFile != "" {
		if err := SaveResultCSV(benchResults, *csvFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write CSV results: %v\n", err)
		}
	}

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create memory profile: %v\n", err)
		} else {
			defer f.Close()
			runtime.GC() // Run GC before taking memory profile
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "Could not write memory profile: %v\n", err)
			}
		}
	}
}

// collectorSummary formats the per-operation figures the collector
// accumulated across all benchmarks that ran.
func collectorSummary(collector *stats.AtomicCollector) string {
	snapshot := collector.GetStats()

	result := fmt.Sprintf("\nCollector Summary:")
	for _, op := range []stats.OperationType{
		stats.OpPut, stats.OpGet, stats.OpScan,
		stats.OpBlockBuild, stats.OpBlockRead, stats.OpAlloc,
	} {
		lat, ok := snapshot[string(op)+"_latency"].(map[string]interface{})
		if !ok {
			continue
		}
		line := fmt.Sprintf("\n  %-12s samples=%-10d", op, lat["count"])
		if v, ok := lat["avg_ns"].(uint64); ok {
			line += fmt.Sprintf(" avg=%-12s", time.Duration(v))
		}
		if v, ok := lat["min_ns"].(uint64); ok {
			line += fmt.Sprintf(" min=%-12s", time.Duration(v))
		}
		if v, ok := lat["max_ns"].(uint64); ok {
			line += fmt.Sprintf(" max=%s", time.Duration(v))
		}
		result += line
	}
	result += fmt.Sprintf("\n  Bytes Written: %.2f MB", float64(snapshot["total_bytes_written"].(uint64))/(1024*1024))
	result += fmt.Sprintf("\n  Bytes Read: %.2f MB", float64(snapshot["total_bytes_read"].(uint64))/(1024*1024))
	if flushes, ok := snapshot["flush_count"].(uint64); ok && flushes > 0 {
		result += fmt.Sprintf("\n  Flushes: %d", flushes)
	}
	return result
}

// keyMode returns a string describing the key generation mode
func keyMode() string {
	if *sequential {
		return "Sequential"
	}
	return "Random"
}

// generateKey creates a key for the given counter value
func generateKey(counter int) []byte {
	if *sequential {
		return []byte(fmt.Sprintf("key-%010d", counter))
	}
	// Random key with counter to ensure uniqueness
	return []byte(fmt.Sprintf("key-%s-%010d",
		strconv.FormatUint(rand.Uint64(), 16), counter))
}

// benchValue returns a value buffer of the configured size with a
// repeating byte pattern.
func benchValue() []byte {
	value := make([]byte, *valueSize)
	for i := range value {
		value[i] = byte(i % 256)
	}
	return value
}
