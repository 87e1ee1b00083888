package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/KeystoneDB/keystone/pkg/common/log"
	"github.com/KeystoneDB/keystone/pkg/config"
	"github.com/KeystoneDB/keystone/pkg/sstable/filter"
	"github.com/KeystoneDB/keystone/pkg/stats"
)

// runFilterBenchmark builds a bloom filter over the configured number
// of keys, then probes it with a present/absent mix and reports the
// observed false positive rate.
func runFilterBenchmark(collector *stats.AtomicCollector) string {
	fmt.Println("Running Filter Benchmark...")

	if *numEntries <= 0 {
		fmt.Fprintf(os.Stderr, "Filter benchmark needs a positive -entries value\n")
		os.Exit(1)
	}

	cfg := config.NewDefaultConfig()

	keys := make([][]byte, *numEntries)
	for i := range keys {
		keys[i] = generateKey(i)
	}

	bloom := filter.NewBloomFilter(cfg.BloomBitsPerKey)

	buildStart := time.Now()
	data := bloom.CreateFilter(keys)
	buildElapsed := time.Since(buildStart)

	log.Info("Built filter: keys=%d bytes=%d bits_per_key=%d build_time=%s",
		len(keys), len(data), bloom.BitsPerKey(), buildElapsed)

	start := time.Now()
	deadline := start.Add(*duration)

	var presentProbes, presentHits, absentProbes, falsePositives int

	for time.Now().Before(deadline) {
		for i := 0; i < 1024; i++ {
			if i%2 == 0 {
				key := keys[rand.Intn(len(keys))]
				if filter.MayContain(key, data) {
					presentHits++
				}
				presentProbes++
			} else {
				key := []byte(fmt.Sprintf("absent-%010d", rand.Intn(1<<30)))
				if filter.MayContain(key, data) {
					falsePositives++
				}
				absentProbes++
			}
		}
	}

	if presentHits != presentProbes {
		// A filter must never miss a key it was built from
		collector.TrackError("filter_false_negative")
	}

	elapsed := time.Since(start)
	probes := presentProbes + absentProbes
	probesPerSecond := float64(probes) / elapsed.Seconds()

	presentHitRate := 0.0
	if presentProbes > 0 {
		presentHitRate = float64(presentHits) / float64(presentProbes) * 100
	}
	fpRate := 0.0
	if absentProbes > 0 {
		fpRate = float64(falsePositives) / float64(absentProbes) * 100
	}
	bitsPerKey := float64(len(data)*8) / float64(len(keys))

	result := fmt.Sprintf("\nFilter Benchmark Results:")
	result += fmt.Sprintf("\n  Key Mode: %s", keyMode())
	result += fmt.Sprintf("\n  Keys: %d", len(keys))
	result += fmt.Sprintf("\n  Filter Size: %d bytes (%.2f bits/key)", len(data), bitsPerKey)
	result += fmt.Sprintf("\n  Build Time: %s", buildElapsed)
	result += fmt.Sprintf("\n  Probes: %d present, %d absent", presentProbes, absentProbes)
	result += fmt.Sprintf("\n  Present Hit Rate: %.2f%%", presentHitRate)
	result += fmt.Sprintf("\n  Observed False Positive Rate: %.3f%% (%d of %d absent probes)",
		fpRate, falsePositives, absentProbes)
	result += fmt.Sprintf("\n  Time: %.2f seconds", elapsed.Seconds())
	result += fmt.Sprintf("\n  Throughput: %.2f probes/sec", probesPerSecond)

	benchResults = append(benchResults, BenchmarkResult{
		BenchmarkType: "Filter",
		NumEntries:    len(keys),
		ValueSize:     *valueSize,
		Mode:          keyMode(),
		Operations:    probes,
		Duration:      elapsed.Seconds(),
		Throughput:    probesPerSecond,
		Latency:       1000000.0 / probesPerSecond,
		HitRate:       fpRate,
		Timestamp:     time.Now(),
	})

	return result
}
