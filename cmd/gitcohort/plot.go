package main

import (
	"context"
	"fmt"

	"github.com/gitcohort/gitcohort-go/internal/cohort"
	"github.com/gitcohort/gitcohort-go/internal/plot"
	"github.com/spf13/cobra"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render a cohort histogram as a stacked bar chart",
	Long: `Aggregate the stored commit history into a cohort histogram and render
it with gnuplot as a stacked bar chart, one bar per time bin and one color
per cohort, with a line tracing the bin totals.

Requires a gnuplot binary on PATH.`,
	RunE: runPlot,
}

func init() {
	addAnalysisFlags(plotCmd)
	plotCmd.Flags().StringP("out", "o", "", "output image file (default from config)")
}

func runPlot(cmd *cobra.Command, args []string) error {
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
	if hist.Bounds() == nil {
		return fmt.Errorf("no commits in database; run 'gitcohort ingest' first")
	}

	pm, err := loadMeta()
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = cfg.Plot.Output
	}

	plotter := plot.New(logger, cfg.Plot.Width, cfg.Plot.Height)
	if a.interval == cohort.Month {
		err = plotter.MonthlyCohorts(ctx, pm, a.unit.String(), hist, out, a.opts.FromYear, a.opts.ToYear)
	} else {
		err = plotter.YearlyCohorts(ctx, pm, a.unit.String(), hist, out, a.opts.FromYear, a.opts.ToYear)
	}
	if err != nil {
		return err
	}

	logger.WithField("output", out).Info("chart written")
	return nil
}
