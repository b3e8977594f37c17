package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gitcohort/gitcohort-go/internal/cohort"
	"github.com/gitcohort/gitcohort-go/internal/histogram"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a cohort histogram as a pipe-delimited table",
	Long: `Aggregate the stored commit history into a cohort histogram and print
it as a pipe-delimited table, one row per time bin, suitable for gnuplot
or a spreadsheet.`,
	RunE: runExport,
}

func init() {
	addAnalysisFlags(exportCmd)
	exportCmd.Flags().StringP("out", "o", "", "write the table to a file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := resolveAnalysis(cmd)
	if err != nil {
		return err
	}

	hist, err := buildHistogram(ctx, a)
	if err != nil {
		return err
	}

	table, err := hist.Table()
	if err != nil {
		if errors.Is(err, histogram.ErrEmpty) {
			return fmt.Errorf("no commits in database; run 'gitcohort ingest' first")
		}
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		return os.WriteFile(out, []byte(table), 0o644)
	}
	fmt.Println(table)
	return nil
}

// buildHistogram applies project metadata and runs the aggregation
// engine for the resolved selection.
func buildHistogram(ctx context.Context, a *analysis) (*histogram.CohortHist, error) {
	s, err := openStore()
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	pm, err := loadMeta()
	if err != nil {
		return nil, err
	}
	if err := s.Postprocess(ctx, pm); err != nil {
		return nil, fmt.Errorf("postprocess: %w", err)
	}

	engine := cohort.NewEngine(s, logger, a.opts)
	return engine.BuildHistogram(ctx, a.cohortType, a.unit, a.interval)
}
