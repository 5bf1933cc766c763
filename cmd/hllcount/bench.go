package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"github.com/tamirms/hybridhll"
)

type benchFlags struct {
	keys       int
	keySize    int
	seed       uint64
	cpuprofile string
}

func buildBenchCmd(f *rootFlags) *cobra.Command {
	bf := &benchFlags{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure build throughput, memory and accuracy on random keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.sketchOptions()
			if err != nil {
				return err
			}
			return runBench(cmd, bf, opts)
		},
	}
	cmd.Flags().IntVarP(&bf.keys, "keys", "n", 10_000_000, "number of distinct keys")
	cmd.Flags().IntVar(&bf.keySize, "key-size", 16, "key size in bytes, at least 8")
	cmd.Flags().Uint64Var(&bf.seed, "seed", 0x1234, "key generator seed")
	cmd.Flags().StringVar(&bf.cpuprofile, "cpuprofile", "", "write cpu profile of the build phase to file")
	return cmd
}

func runBench(cmd *cobra.Command, bf *benchFlags, opts []hybridhll.Option) error {
	if bf.keySize < 8 {
		return fmt.Errorf("key size must be at least 8, got %d", bf.keySize)
	}
	out := cmd.OutOrStdout()

	// Keys carry their index in the first 8 bytes, so they are distinct.
	rng := rand.New(rand.NewPCG(bf.seed, bf.seed^0x9E3779B97F4A7C15))
	keys := make([][]byte, bf.keys)
	for i := range keys {
		k := make([]byte, bf.keySize)
		binary.LittleEndian.PutUint64(k, uint64(i))
		for j := 8; j < len(k); j++ {
			k[j] = byte(rng.Uint32())
		}
		keys[i] = k
	}

	runtime.GC()
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)
	baselineRSS := maxRSS()

	if bf.cpuprofile != "" {
		pf, err := os.Create(bf.cpuprofile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer func() { _ = pf.Close() }()
		if err := pprof.StartCPUProfile(pf); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
	}

	start := time.Now()
	s, err := hybridhll.BuildParallel(cmd.Context(), keys, opts...)
	elapsed := time.Since(start)
	if bf.cpuprofile != "" {
		pprof.StopCPUProfile()
	}
	if err != nil {
		return err
	}

	queryStart := time.Now()
	var misses int
	for _, k := range keys {
		if !s.MayContain(k) {
			misses++
		}
	}
	queryElapsed := time.Since(queryStart)

	var final runtime.MemStats
	runtime.ReadMemStats(&final)

	est := s.EstimateCardinality()
	relErr := 0.0
	if bf.keys > 0 {
		relErr = (est - float64(bf.keys)) / float64(bf.keys)
	}
	stdErr := 1.04 / math.Sqrt(float64(uint64(1)<<s.Precision()))

	fmt.Fprintf(out, "keys:          %d\n", bf.keys)
	fmt.Fprintf(out, "sketch:        %s\n", s)
	fmt.Fprintf(out, "sketch bytes:  %d\n", s.SizeInBytes())
	fmt.Fprintf(out, "build:         %v (%.1f ns/key)\n", elapsed, nsPer(elapsed, bf.keys))
	fmt.Fprintf(out, "may-contain:   %v (%.1f ns/key, %d misses)\n", queryElapsed, nsPer(queryElapsed, bf.keys), misses)
	fmt.Fprintf(out, "relative err:  %+.4f (std err %.4f)\n", relErr, stdErr)
	fmt.Fprintf(out, "heap growth:   %.1f MB\n", float64(int64(final.HeapAlloc)-int64(baseline.HeapAlloc))/(1<<20))
	if rss := maxRSS(); rss > 0 {
		fmt.Fprintf(out, "peak rss:      +%.1f MB\n", float64(rss-min(rss, baselineRSS))/(1<<20))
	}
	return nil
}

func nsPer(d time.Duration, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(d.Nanoseconds()) / float64(n)
}
