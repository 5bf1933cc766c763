package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tamirms/hybridhll"
	"github.com/tamirms/hybridhll/nway"
)

func buildCountCmd(f *rootFlags) *cobra.Command {
	var showGaps bool
	cmd := &cobra.Command{
		Use:   "count FILE...",
		Short: "Estimate the number of distinct lines of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.sketchOptions()
			if err != nil {
				return err
			}
			sketches, err := sketchFiles(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tESTIMATE\tMODE\tBYTES")
			for i, s := range sketches {
				fmt.Fprintf(tw, "%s\t%.0f\t%s\t%d\n", args[i], s.EstimateCardinality(), mode(s), s.SizeInBytes())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if showGaps {
				return printGaps(cmd.OutOrStdout(), args, sketches)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showGaps, "gaps", false, "print gap-coding statistics of hash-list sketches")
	return cmd
}

func mode(s *hybridhll.Sketch) string {
	if s.IsHashList() {
		return fmt.Sprintf("hashlist/%d", s.HashWidth())
	}
	return "dense"
}

func printGaps(w io.Writer, paths []string, sketches []*hybridhll.Sketch) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tWORDS\tRAW BITS\tRICE K\tRICE BITS\tGAMMA BITS\tCODE\tENCODED BYTES")
	for i, s := range sketches {
		st, ok := s.GapStats()
		if !ok {
			continue
		}
		stream, err := s.CompressHashList()
		if err != nil {
			return fmt.Errorf("compress %s: %w", paths[i], err)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\t%d\n", paths[i],
			st.Count, st.RawBits, st.RiceK, st.RiceBits, st.GammaBits, stream.Code, len(stream.Data))
	}
	return tw.Flush()
}

func buildCompareCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compare FILE_A FILE_B",
		Short: "Estimate union, intersection, differences and Jaccard index of two files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.sketchOptions()
			if err != nil {
				return err
			}
			sketches, err := sketchFiles(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			a, b := sketches[0], sketches[1]

			union, err := a.EstimateUnionCardinality(b)
			if err != nil {
				return err
			}
			inter, err := a.EstimateIntersectionCardinality(b)
			if err != nil {
				return err
			}
			aOnly, err := a.EstimateDifferenceCardinality(b)
			if err != nil {
				return err
			}
			bOnly, err := b.EstimateDifferenceCardinality(a)
			if err != nil {
				return err
			}
			jaccard, err := a.EstimateJaccardIndex(b)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "|A|\t%.0f\t%s\n", a.EstimateCardinality(), args[0])
			fmt.Fprintf(tw, "|B|\t%.0f\t%s\n", b.EstimateCardinality(), args[1])
			fmt.Fprintf(tw, "|A ∪ B|\t%.0f\n", union)
			fmt.Fprintf(tw, "|A ∩ B|\t%.0f\n", inter)
			fmt.Fprintf(tw, "|A \\ B|\t%.0f\n", aOnly)
			fmt.Fprintf(tw, "|B \\ A|\t%.0f\n", bOnly)
			fmt.Fprintf(tw, "jaccard\t%.4f\n", jaccard)
			return tw.Flush()
		},
	}
}

func buildOverlapCmd(f *rootFlags) *cobra.Command {
	var left, right []string
	var normalized bool
	cmd := &cobra.Command{
		Use:   "overlap --left A,B,... --right C,D,...",
		Short: "Compute the N-way overlap matrix of two cumulative file families",
		Long: "Each family is cumulative: its i-th set holds the lines of its first i+1 files. " +
			"Cell (i, j) counts lines first seen in left file i and in right file j.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := f.sketchOptions()
			if err != nil {
				return err
			}
			leftSketches, err := cumulativeFamily(cmd, left, opts)
			if err != nil {
				return err
			}
			rightSketches, err := cumulativeFamily(cmd, right, opts)
			if err != nil {
				return err
			}
			res, err := nway.Overlap(cmd.Context(), leftSketches, rightSketches,
				nway.WithWorkers(f.workers), nway.WithLogger(f.logger))
			if err != nil {
				return err
			}
			if normalized {
				res = res.Normalized()
			}
			return printOverlap(cmd.OutOrStdout(), left, right, res, normalized)
		},
	}
	cmd.Flags().StringSliceVar(&left, "left", nil, "left family files, in order")
	cmd.Flags().StringSliceVar(&right, "right", nil, "right family files, in order")
	cmd.Flags().BoolVar(&normalized, "normalized", false, "scale every cell to [0, 1]")
	_ = cmd.MarkFlagRequired("left")
	_ = cmd.MarkFlagRequired("right")
	return cmd
}

// cumulativeFamily sketches paths and merges each sketch into its
// successor, so the i-th result covers the first i+1 files.
func cumulativeFamily(cmd *cobra.Command, paths []string, opts []hybridhll.Option) ([]*hybridhll.Sketch, error) {
	sketches, err := sketchFiles(cmd.Context(), paths, opts)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(sketches); i++ {
		if err := sketches[i].Merge(sketches[i-1]); err != nil {
			return nil, err
		}
	}
	return sketches, nil
}

func printOverlap(w io.Writer, left, right []string, res *nway.Result, normalized bool) error {
	format := "%.0f"
	if normalized {
		format = "%.3f"
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\tONLY LEFT\t\n", strings.Join(right, "\t"))
	for i, row := range res.Overlap {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprintf(format, v)
		}
		fmt.Fprintf(tw, "%s\t%s\t"+format+"\t\n", left[i], strings.Join(cells, "\t"), res.LeftDiff[i])
	}
	cells := make([]string, len(res.RightDiff))
	for j, v := range res.RightDiff {
		cells[j] = fmt.Sprintf(format, v)
	}
	fmt.Fprintf(tw, "ONLY RIGHT\t%s\t\t\n", strings.Join(cells, "\t"))
	return tw.Flush()
}
