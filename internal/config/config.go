package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Storage configuration
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Histogram defaults
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`

	// Project metadata file (domains, markers, year hints)
	MetaFile string `yaml:"meta_file" mapstructure:"meta_file"`

	// Plot output settings
	Plot PlotConfig `yaml:"plot" mapstructure:"plot"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite3", "postgres"
	LocalPath   string `yaml:"local_path" mapstructure:"local_path"`
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

type AnalysisConfig struct {
	Cohort             string `yaml:"cohort" mapstructure:"cohort"`     // "firstyear", "domain", "repo", "suffix"
	Unit               string `yaml:"unit" mapstructure:"unit"`         // "authors", "commits", "changes"
	Interval           string `yaml:"interval" mapstructure:"interval"` // "year", "month"
	BriefThresholdDays int    `yaml:"brief_threshold_days" mapstructure:"brief_threshold_days"`
	TopN               int    `yaml:"top_n" mapstructure:"top_n"`
	FromYear           *int   `yaml:"from_year" mapstructure:"from_year"`
	ToYear             *int   `yaml:"to_year" mapstructure:"to_year"`
}

type PlotConfig struct {
	Output string `yaml:"output" mapstructure:"output"`
	Width  int    `yaml:"width" mapstructure:"width"`
	Height int    `yaml:"height" mapstructure:"height"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{
			Driver:    "sqlite3",
			LocalPath: filepath.Join(homeDir, ".gitcohort", "commits.db"),
		},
		Analysis: AnalysisConfig{
			Cohort:             "firstyear",
			Unit:               "authors",
			Interval:           "year",
			BriefThresholdDays: 90,
			TopN:               15,
		},
		Plot: PlotConfig{
			Output: "cohorts.png",
			Width:  1280,
			Height: 720,
		},
	}
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.Storage.Driver == "postgres" {
		return c.Storage.PostgresDSN
	}
	return c.Storage.LocalPath
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("analysis", cfg.Analysis)
	v.SetDefault("plot", cfg.Plot)

	v.SetEnvPrefix("GITCOHORT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".gitcohort")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".gitcohort"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the engine cannot honor.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("postgres driver requires storage.postgres_dsn")
	}
	if c.Analysis.BriefThresholdDays < 0 {
		return fmt.Errorf("brief_threshold_days must not be negative")
	}
	if c.Analysis.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1")
	}
	if c.Analysis.FromYear != nil && c.Analysis.ToYear != nil &&
		*c.Analysis.FromYear > *c.Analysis.ToYear {
		return fmt.Errorf("from_year %d is after to_year %d",
			*c.Analysis.FromYear, *c.Analysis.ToYear)
	}
	return nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".gitcohort", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if path := os.Getenv("STORAGE_PATH"); path != "" {
		cfg.Storage.LocalPath = path
	}
	if days := os.Getenv("BRIEF_THRESHOLD_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			cfg.Analysis.BriefThresholdDays = n
		}
	}
	if topN := os.Getenv("TOP_N"); topN != "" {
		if n, err := strconv.Atoi(topN); err == nil {
			cfg.Analysis.TopN = n
		}
	}
}
