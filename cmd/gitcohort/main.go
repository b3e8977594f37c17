package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gitcohort/gitcohort-go/internal/cohort"
	"github.com/gitcohort/gitcohort-go/internal/config"
	"github.com/gitcohort/gitcohort-go/internal/meta"
	"github.com/gitcohort/gitcohort-go/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile  string
	verbose  bool
	driver   string
	dbPath   string
	metaFile string
	logger   *logrus.Logger
	cfg      *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gitcohort",
	Short: "Visualize long-term trends in contributions to git repositories",
	Long: `gitcohort ingests commit history from one or more git repositories and
renders contributor cohorts over time: who keeps contributing, grouped by
debut year, email domain, repository or file type.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		// Flag overrides
		if driver != "" {
			cfg.Storage.Driver = driver
		}
		if dbPath != "" {
			if cfg.Storage.Driver == "postgres" {
				cfg.Storage.PostgresDSN = dbPath
			} else {
				cfg.Storage.LocalPath = dbPath
			}
		}
		if metaFile != "" {
			cfg.MetaFile = metaFile
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .gitcohort/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "storage driver: sqlite3 or postgres")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (sqlite3) or DSN (postgres)")
	rootCmd.PersistentFlags().StringVar(&metaFile, "meta", "", "project metadata YAML file")

	rootCmd.SetVersionTemplate(`gitcohort {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(plotCmd)
}

func openStore() (*store.CommitStore, error) {
	return store.Open(cfg.Storage.Driver, cfg.DSN(), logger)
}

func loadMeta() (*meta.ProjectMeta, error) {
	if cfg.MetaFile == "" {
		return &meta.ProjectMeta{}, nil
	}
	return meta.Load(cfg.MetaFile)
}

// analysis is the resolved histogram selection shared by export and plot.
type analysis struct {
	cohortType cohort.CohortType
	unit       cohort.UnitType
	interval   cohort.IntervalType
	opts       cohort.Options
}

// addAnalysisFlags registers the histogram selection flags, defaulting
// to the loaded configuration.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("cohort", "", "cohort type: firstyear, domain, repo or suffix")
	cmd.Flags().String("unit", "", "unit: authors, commits or changes")
	cmd.Flags().String("interval", "", "interval: month or year")
	cmd.Flags().Int("from", 0, "first year to include")
	cmd.Flags().Int("to", 0, "last year to include")
	cmd.Flags().Int("brief-days", 0, "active-span threshold in days below which authors count as brief")
	cmd.Flags().Int("top-n", 0, "number of categories that keep their own cohort")
}

func resolveAnalysis(cmd *cobra.Command) (*analysis, error) {
	pick := func(flag, fallback string) string {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			return v
		}
		return fallback
	}

	cohortType, err := cohort.ParseCohortType(pick("cohort", cfg.Analysis.Cohort))
	if err != nil {
		return nil, err
	}
	unit, err := cohort.ParseUnitType(pick("unit", cfg.Analysis.Unit))
	if err != nil {
		return nil, err
	}
	interval, err := cohort.ParseIntervalType(pick("interval", cfg.Analysis.Interval))
	if err != nil {
		return nil, err
	}

	opts := cohort.Options{
		BriefThreshold: time.Duration(cfg.Analysis.BriefThresholdDays) * 24 * time.Hour,
		TopN:           cfg.Analysis.TopN,
		FromYear:       cfg.Analysis.FromYear,
		ToYear:         cfg.Analysis.ToYear,
	}
	if days, _ := cmd.Flags().GetInt("brief-days"); days > 0 {
		opts.BriefThreshold = time.Duration(days) * 24 * time.Hour
	}
	if topN, _ := cmd.Flags().GetInt("top-n"); topN > 0 {
		opts.TopN = topN
	}
	if from, _ := cmd.Flags().GetInt("from"); from > 0 {
		opts.FromYear = &from
	}
	if to, _ := cmd.Flags().GetInt("to"); to > 0 {
		opts.ToYear = &to
	}

	return &analysis{cohortType: cohortType, unit: unit, interval: interval, opts: opts}, nil
}
