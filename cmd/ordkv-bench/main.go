package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/intellect4all/ordkv"
	"github.com/intellect4all/ordkv/common/benchmark"
)

func main() {
	quick := flag.Bool("quick", false, "Run quick benchmarks (shorter duration)")
	workload := flag.String("workload", "all", "Workload to run (all, or a workload name)")
	duration := flag.Duration("duration", 60*time.Second, "Duration for each benchmark")
	concurrency := flag.Int("concurrency", 8, "Number of concurrent workers")
	memtableCap := flag.Int64("memtable-cap", 65536, "Memtable capacity in entries")
	flag.Parse()

	fmt.Println("ordkv Benchmark Suite")
	fmt.Println("======================")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Memtable capacity: %d\n\n", *memtableCap)

	var configs []benchmark.Config
	if *quick {
		configs = benchmark.QuickWorkloads()
	} else {
		configs = benchmark.StandardWorkloads()
	}

	if flag.Lookup("duration").Value.String() != flag.Lookup("duration").DefValue {
		for i := range configs {
			configs[i].Duration = *duration
		}
	}
	if flag.Lookup("concurrency").Value.String() != flag.Lookup("concurrency").DefValue {
		for i := range configs {
			configs[i].Concurrency = *concurrency
		}
	}

	if *workload != "all" {
		filtered := make([]benchmark.Config, 0)
		for _, config := range configs {
			if config.Name == *workload {
				filtered = append(filtered, config)
			}
		}
		if len(filtered) == 0 {
			fmt.Printf("Unknown workload: %s\n", *workload)
			os.Exit(1)
		}
		configs = filtered
	}

	dir, err := os.MkdirTemp("", "ordkv-bench-*")
	if err != nil {
		fmt.Printf("failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	db, err := ordkv.Create(dir, *memtableCap)
	if err != nil {
		fmt.Printf("failed to create database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	adapter := ordkv.NewAdapter(db)

	suite := benchmark.NewSuite()
	suite.SetWorkloads(configs)
	results := suite.RunAll(adapter)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	suite.PrintSummaryTable(results)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("RANGE SCAN BENCHMARK")
	fmt.Println(strings.Repeat("=", 80))
	runRangeScanBenchmark(db)
}

func runRangeScanBenchmark(db *ordkv.DB) {
	fmt.Println("\nPreparing range scan test data...")

	const numKeys = 10000
	for i := int64(0); i < numKeys; i++ {
		if err := db.Put(i, i*10); err != nil {
			fmt.Printf("put failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Running range scans...")

	ranges := []struct {
		name     string
		lo, hi   int64
	}{
		{"Small (100 keys)", 0, 99},
		{"Medium (1000 keys)", 0, 999},
		{"Large (5000 keys)", 0, 4999},
		{"Full scan", 0, numKeys - 1},
	}

	for _, r := range ranges {
		start := time.Now()
		it, err := db.Range(r.lo, r.hi)
		if err != nil {
			fmt.Printf("range failed: %v\n", err)
			continue
		}
		count := 0
		for it.Valid() {
			count++
			if err := it.Next(); err != nil {
				fmt.Printf("range iteration failed: %v\n", err)
				break
			}
		}
		elapsed := time.Since(start)

		throughput := float64(count) / elapsed.Seconds()
		var avgLatency time.Duration
		if count > 0 {
			avgLatency = elapsed / time.Duration(count)
		}

		fmt.Printf("\n%s:\n", r.name)
		fmt.Printf("  Keys scanned: %d\n", count)
		fmt.Printf("  Duration:     %v\n", elapsed)
		fmt.Printf("  Throughput:   %.0f keys/sec\n", throughput)
		fmt.Printf("  Avg latency:  %v per key\n", avgLatency)
	}
}
