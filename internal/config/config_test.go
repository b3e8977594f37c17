package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "sqlite3", cfg.Storage.Driver)
	assert.Equal(t, "firstyear", cfg.Analysis.Cohort)
	assert.Equal(t, 90, cfg.Analysis.BriefThresholdDays)
	assert.Equal(t, 15, cfg.Analysis.TopN)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: postgres
  postgres_dsn: postgres://localhost/cohorts?sslmode=disable
analysis:
  cohort: domain
  unit: commits
  interval: month
  top_n: 5
meta_file: project.yaml
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/cohorts?sslmode=disable", cfg.DSN())
	assert.Equal(t, "domain", cfg.Analysis.Cohort)
	assert.Equal(t, "month", cfg.Analysis.Interval)
	assert.Equal(t, 5, cfg.Analysis.TopN)
	assert.Equal(t, 90, cfg.Analysis.BriefThresholdDays, "unset keys keep defaults")
	assert.Equal(t, "project.yaml", cfg.MetaFile)
}

func TestValidate(t *testing.T) {
	from, to := 2022, 2019

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }, false},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = "postgres" }, false},
		{"negative threshold", func(c *Config) { c.Analysis.BriefThresholdDays = -1 }, false},
		{"zero top_n", func(c *Config) { c.Analysis.TopN = 0 }, false},
		{"inverted year range", func(c *Config) {
			c.Analysis.FromYear = &from
			c.Analysis.ToYear = &to
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
