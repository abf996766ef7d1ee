package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/report"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	insOutputDir  string
	insSampleRows int
	insTopValues  int
	insCorr       bool
	insOutliers   bool
	insOutlierThr float64
	insJobs       int
	insQuiet      bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <files...>",
	Short: "Parse CSV/TSV/TXT/XLSX files and print a Markdown summary of each",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}

		opt := report.DefaultOptions()
		if insSampleRows > 0 {
			opt.SampleRows = insSampleRows
		}
		if insTopValues > 0 {
			opt.TopValues = insTopValues
		}
		opt.Correlations = insCorr
		if cmd.Flags().Changed("outliers") && !insOutliers {
			opt.OutlierThreshold = 0
		} else if insOutlierThr > 0 {
			opt.OutlierThreshold = insOutlierThr
		}
		if insOutputDir != "" {
			if err := utils.EnsureDir(insOutputDir); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}

		// Reports are built concurrently and printed in argument order.
		reports := make([]string, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(max(insJobs, 1))
		for i, path := range files {
			g.Go(func() error {
				t, err := loadTable(ctx, path)
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				reports[i] = report.Build(t, opt).Markdown()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		used := map[string]int{}
		total := len(files)
		for i, path := range files {
			if !insQuiet && total > 1 {
				fmt.Fprintf(out, "[%d/%d] %s\n", i+1, total, filepath.Base(path))
			}
			if insOutputDir == "" {
				fmt.Fprintln(out, reports[i])
				continue
			}
			base := filepath.Base(path)
			stem := strings.TrimSuffix(base, filepath.Ext(base))
			// Same basename from different directories gets a __N suffix.
			used[stem]++
			if n := used[stem]; n > 1 {
				stem = fmt.Sprintf("%s__%d", stem, n)
			}
			outFile := filepath.Join(insOutputDir, stem+".summary.md")
			if err := utils.SafeWriteFile(outFile, []byte(reports[i])); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !insQuiet {
				fmt.Fprintf(out, "✓ Wrote summary to %s\n", outFile)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops
// duplicates while preserving argument order.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("no input files matched %s", arg)
			}
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	return files, nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&insOutputDir, "output-dir", "o", "", "write <name>.summary.md files here instead of stdout")
	inspectCmd.Flags().IntVar(&insSampleRows, "sample-rows", 5, "number of sample rows to include")
	inspectCmd.Flags().IntVar(&insTopValues, "top-values", 5, "number of frequent values listed for text columns")
	inspectCmd.Flags().BoolVar(&insCorr, "correlations", true, "compute Pearson correlations among numeric columns")
	inspectCmd.Flags().BoolVar(&insOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	inspectCmd.Flags().Float64Var(&insOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	inspectCmd.Flags().IntVarP(&insJobs, "jobs", "j", 4, "files parsed in parallel")
	inspectCmd.Flags().BoolVarP(&insQuiet, "quiet", "q", false, "suppress progress output")
}
