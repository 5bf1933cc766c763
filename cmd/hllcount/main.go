// Hllcount estimates distinct line counts of text files with hybridhll
// sketches and compares files by their estimated overlaps.
//
// Usage:
//
//	hllcount count access.log errors.log
//	hllcount compare monday.txt tuesday.txt
//	hllcount overlap --left a.txt,b.txt --right c.txt,d.txt --normalized
//	hllcount bench --keys 10000000 --workers 8
//
// Every subcommand accepts the sketch flags --precision, --bits, --hasher,
// --registers, --estimator and --workers, plus --log-level and --log-format.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tamirms/hybridhll"
)

type rootFlags struct {
	precision uint8
	bits      uint8
	hasher    string
	registers string
	estimator string
	workers   int
	logLevel  string
	logFormat string

	logger zerolog.Logger
}

// sketchOptions turns the flags into sketch options.
func (f *rootFlags) sketchOptions() ([]hybridhll.Option, error) {
	h, err := hybridhll.ParseHasher(f.hasher)
	if err != nil {
		return nil, err
	}
	regs, err := hybridhll.ParseRegisters(f.registers)
	if err != nil {
		return nil, err
	}
	est, err := hybridhll.ParseEstimator(f.estimator)
	if err != nil {
		return nil, err
	}
	return []hybridhll.Option{
		hybridhll.WithPrecision(f.precision),
		hybridhll.WithBits(f.bits),
		hybridhll.WithHasher(h),
		hybridhll.WithRegisters(regs),
		hybridhll.WithEstimator(est),
		hybridhll.WithWorkers(f.workers),
		hybridhll.WithLogger(f.logger),
	}, nil
}

func (f *rootFlags) setupLogger(cmd *cobra.Command) error {
	level, err := zerolog.ParseLevel(f.logLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	out := cmd.ErrOrStderr()
	switch f.logFormat {
	case "json":
		f.logger = zerolog.New(out)
	case "console":
		f.logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	default:
		return fmt.Errorf("log format must be json or console, got %q", f.logFormat)
	}
	f.logger = f.logger.Level(level).With().Timestamp().Logger()
	return nil
}

func buildRootCmd() *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:          "hllcount",
		Short:        "Estimate distinct lines and overlaps of text files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return f.setupLogger(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.Uint8VarP(&f.precision, "precision", "p", hybridhll.DefaultPrecision, "sketch precision, 4 to 18")
	pf.Uint8VarP(&f.bits, "bits", "b", hybridhll.DefaultBits, "register width: 4, 5, 6 or 8")
	pf.StringVar(&f.hasher, "hasher", hybridhll.XXHash64.Name(), "hash function: xxhash64, xxh3 or murmur3")
	pf.StringVar(&f.registers, "registers", hybridhll.RegistersPacked.String(), "register storage: packed or plain")
	pf.StringVar(&f.estimator, "estimator", hybridhll.EstimatorHLLPP.String(), "estimator: hllpp, ertl or mle")
	pf.IntVarP(&f.workers, "workers", "w", 1, "goroutines per file build")
	pf.StringVar(&f.logLevel, "log-level", "warn", "log level")
	pf.StringVar(&f.logFormat, "log-format", "console", "log format: console or json")

	cmd.AddCommand(
		buildCountCmd(f),
		buildCompareCmd(f),
		buildOverlapCmd(f),
		buildBenchCmd(f),
	)
	return cmd
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
