// Package main provides a performance benchmarking tool for the backfill CLI.
// It generates synthetic year tables of increasing span and gap density,
// runs every command multiple times without a cache and with the SQLite cache
// (first successful cached run is cold, the rest are averaged as warm),
// and writes a CSV for performance analysis and documentation.
//
// Prerequisites:
// - backfill binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for the generated inputs and the benchmark cache
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// Dataset describes one synthetic input table.
type Dataset struct {
	Name     string
	Years    int     // number of rows starting at 1900
	GapRatio float64 // share of cells blanked out
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Datasets    []Dataset
}

var productionColumns = []string{"area_thousand_ha", "output_tons", "export_tons"}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     time.Minute,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Datasets: []Dataset{
			{Name: "small", Years: 30, GapRatio: 0.2},
			{Name: "medium", Years: 200, GapRatio: 0.3},
			{Name: "large", Years: 900, GapRatio: 0.4},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the backfill binary exists and the work dir is usable.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("backfill"); err != nil {
		return fmt.Errorf("backfill binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// runBenchmarks executes all benchmark tests across the configured datasets.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, ds := range config.Datasets {
		input, err := writeDataset(config.WorkDir, ds)
		if err != nil {
			fmt.Printf("Skipping %s: %v\n", ds.Name, err)
			continue
		}
		fmt.Printf("Benchmarking %s (%d years, %.0f%% missing)\n", ds.Name, ds.Years, ds.GapRatio*100)

		results = append(results,
			runBenchmarkSuite(config, ds.Name, "series",
				[]string{"series", "--input", input, "--table", "production", "--column", "output_tons"}),
			runBenchmarkSuite(config, ds.Name, "table",
				[]string{"table", "--input", input, "--table", "production"}),
		)
	}

	return results
}

// writeDataset writes a production table with a noisy growth trend and random blanks.
// The first and last two years of output_tons stay populated so every series is reconstructible.
func writeDataset(dir string, ds Dataset) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("bench_%s.csv", ds.Name))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	rng := rand.New(rand.NewPCG(uint64(ds.Years), 42))
	writer := csv.NewWriter(file)
	if err := writer.Write(append([]string{"year"}, productionColumns...)); err != nil {
		return "", err
	}
	for i := range ds.Years {
		row := []string{strconv.Itoa(1900 + i)}
		for c := range productionColumns {
			base := 1000.0 * float64(c+1) * math.Pow(1.02, float64(i))
			keep := i < 2 || i >= ds.Years-2 || rng.Float64() >= ds.GapRatio
			if keep {
				row = append(row, strconv.FormatFloat(base*(0.95+0.1*rng.Float64()), 'f', 2, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return path, writer.Error()
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command.
func runBenchmarkSuite(config BenchmarkConfig, dataset, command string, args []string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, dataset)
	cacheFile := filepath.Join(config.WorkDir, "bench_cache.db")
	_ = os.Remove(cacheFile)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, args, cacheBackend, cacheFile, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     dataset,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a backfill command multiple times with the given cache backend and returns cold time and warm times.
func runBenchmark(config BenchmarkConfig, args []string, cacheBackend, cacheFile string, numRuns int) (coldTime float64, warmTimes []float64) {
	args = append(args, "--output", "json", "--cache-backend", cacheBackend)
	if cacheBackend == "sqlite" {
		args = append(args, "--cache-db-connect", cacheFile)
	}

	var times []float64
	for range numRuns {
		elapsed, err := timeCommand(config.Timeout, args)
		if err != nil {
			fmt.Printf("    run failed: %v\n", err)
			continue
		}
		times = append(times, elapsed.Seconds())
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// timeCommand runs backfill once and checks that it produced a JSON payload.
func timeCommand(timeout time.Duration, args []string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	output, err := exec.CommandContext(ctx, "backfill", args...).Output()
	elapsed := time.Since(start)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return 0, fmt.Errorf("timed out after %v", timeout)
	}
	if err != nil {
		return 0, err
	}
	if !strings.Contains(string(output), `"metadata"`) {
		return 0, errors.New("unexpected output")
	}
	return elapsed, nil
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("backfill_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"series", "table"} {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-8s: No-cache: %s, Cold: %s, Warm: %s\n", result.Dataset, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
}
