// Package main provides a profiling wrapper for the decoder to identify
// performance bottlenecks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/x86dis/disasm"
	"github.com/sarchlab/x86dis/fetch"
	"github.com/sarchlab/x86dis/insts"
	"github.com/sarchlab/x86dis/loader"
	"github.com/sarchlab/x86dis/stream"
)

var (
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	repeat     = flag.Int("repeat", 100, "number of passes over the executable code")
	useCache   = flag.Bool("cache", true, "read code through the fetch cache")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
	fmt.Printf("Platform: %d-bit\n", prog.Bits)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	image := loader.NewImage(prog)
	cache, err := fetch.New(fetch.DefaultConfig(), image)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating fetch cache: %v\n", err)
		os.Exit(1)
	}

	session := disasm.NewSession(insts.NewDecoder(insts.WithPlatform(prog.Bits)))
	discard := func(disasm.Line) error { return nil }

	start := time.Now()
	var total disasm.Summary

passes:
	for i := 0; i < *repeat; i++ {
		for _, seg := range prog.Executable() {
			var r *stream.Reader
			if *useCache {
				r = stream.Section(cache, seg.VirtAddr, uint64(len(seg.Data)))
			} else {
				r = stream.Section(image, seg.VirtAddr, uint64(len(seg.Data)))
			}

			sum, err := session.Run(ctx, r, discard)
			total.Decoded += sum.Decoded
			total.Skipped += sum.Skipped
			if err != nil {
				fmt.Printf("\nStopped: %v\n", err)
				break passes
			}
		}
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Instructions decoded: %d\n", total.Decoded)
	fmt.Printf("Bytes skipped: %d\n", total.Skipped)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if total.Decoded > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(total.Decoded)/elapsed.Seconds())
	}
	if *useCache {
		stats := cache.Stats()
		fmt.Printf("Fetch cache: %d reads, %.2f%% hits, %d evictions\n",
			stats.Reads, 100*stats.HitRate(), stats.Evictions)
	}
}
