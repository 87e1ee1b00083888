package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// BenchmarkResult stores the results of a benchmark
type BenchmarkResult struct {
	BenchmarkType string
	NumEntries    int
	ValueSize     int
	Mode          string
	Operations    int
	Duration      float64
	Throughput    float64
	MBPerSec      float64
	Latency       float64 // µs per operation
	HitRate       float64 // hit rate for reads, false positive rate for filters
	EntriesPerSec float64 // for scan-flavored benchmarks
	Timestamp     time.Time
}

// SaveResultCSV saves benchmark results to a CSV file
func SaveResultCSV(results []BenchmarkResult, filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Timestamp", "BenchmarkType", "NumEntries", "ValueSize", "Mode",
		"Operations", "Duration", "Throughput", "MBPerSec", "Latency",
		"HitRate", "EntriesPerSec",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Timestamp.Format(time.RFC3339),
			r.BenchmarkType,
			strconv.Itoa(r.NumEntries),
			strconv.Itoa(r.ValueSize),
			r.Mode,
			strconv.Itoa(r.Operations),
			fmt.Sprintf("%.2f", r.Duration),
			fmt.Sprintf("%.2f", r.Throughput),
			fmt.Sprintf("%.2f", r.MBPerSec),
			fmt.Sprintf("%.3f", r.Latency),
			fmt.Sprintf("%.3f", r.HitRate),
			fmt.Sprintf("%.2f", r.EntriesPerSec),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

// PrintResultTable prints a formatted table of benchmark results
func PrintResultTable(results []BenchmarkResult) {
	if len(results) == 0 {
		fmt.Println("No results to display")
		return
	}

	fmt.Println("+-----------------+----------+---------+--------------+----------+----------+-----------+")
	fmt.Println("| Benchmark Type  | Entries  | ValSize | Throughput   | MB/sec   | Latency  | Hit Rate  |")
	fmt.Println("+-----------------+----------+---------+--------------+----------+----------+-----------+")

	for _, r := range results {
		hitRateStr := "-"
		switch r.BenchmarkType {
		case "MemTable", "BlockRead":
			hitRateStr = fmt.Sprintf("%.2f%%", r.HitRate)
		case "Filter":
			hitRateStr = fmt.Sprintf("FP %.3f%%", r.HitRate)
		}

		latencyUnit := "µs"
		latency := r.Latency
		if latency > 1000 {
			latencyUnit = "ms"
			latency /= 1000
		}

		fmt.Printf("| %-15s | %8d | %7d | %12.2f | %8.2f | %6.2f%s | %9s |\n",
			r.BenchmarkType,
			r.NumEntries,
			r.ValueSize,
			r.Throughput,
			r.MBPerSec,
			latency, latencyUnit,
			hitRateStr)
	}
	fmt.Println("+-----------------+----------+---------+--------------+----------+----------+-----------+")
}
