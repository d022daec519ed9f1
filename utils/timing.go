package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for one classification run.
type TimingStats struct {
	TotalTime       time.Duration
	ConfigTime      time.Duration
	BuildTime       time.Duration
	InstantiateTime time.Duration
	FingerprintTime time.Duration
	ForwardPassTime time.Duration
}

func percent(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", stats.TotalTime)
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Configuration: %v (%.1f%%)\n", stats.ConfigTime, percent(stats.ConfigTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Topology build: %v (%.1f%%)\n", stats.BuildTime, percent(stats.BuildTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Weight init: %v (%.1f%%)\n", stats.InstantiateTime, percent(stats.InstantiateTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Fingerprint: %v (%.1f%%)\n", stats.FingerprintTime, percent(stats.FingerprintTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Forward pass: %v (%.1f%%)\n", stats.ForwardPassTime, percent(stats.ForwardPassTime, stats.TotalTime))
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
