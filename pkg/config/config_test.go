package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 0.3, cfg.ETL.MinOverlapThreshold)
	assert.Equal(t, "./output", cfg.ETL.OutputDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotNil(t, cfg.ETL.AggregationRules)
}

func TestLoad_AggregationRules(t *testing.T) {
	path := writeConfig(t, `
etl:
  min_overlap_threshold: 0.5
  aggregation_rules:
    livestock:
      animal_count: sum
      stocking_rate: mean
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.ETL.MinOverlapThreshold)

	rule, ok := cfg.ETL.AggregationRules.Rule("livestock", "animal_count")
	require.True(t, ok)
	assert.Equal(t, "sum", rule)

	_, ok = cfg.ETL.AggregationRules.Rule("livestock", "unknown_key")
	assert.False(t, ok)
	_, ok = cfg.ETL.AggregationRules.Rule("unknown_namespace", "animal_count")
	assert.False(t, ok)
}

func TestLoad_ExternalRuleTable(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`
production:
  total_yield: sum
`), 0o644))

	path := writeConfig(t, `
etl:
  rules_path: `+rulesPath+`
  aggregation_rules:
    livestock:
      animal_count: sum
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// External table replaces the inline one.
	rule, ok := cfg.ETL.AggregationRules.Rule("production", "total_yield")
	require.True(t, ok)
	assert.Equal(t, "sum", rule)
	_, ok = cfg.ETL.AggregationRules.Rule("livestock", "animal_count")
	assert.False(t, ok)
}

func TestLoad_ThresholdOutOfRange(t *testing.T) {
	for _, threshold := range []string{"-0.1", "1.5"} {
		path := writeConfig(t, "etl:\n  min_overlap_threshold: "+threshold+"\n")
		_, err := Load(path)
		require.Error(t, err, "threshold %s", threshold)
		assert.Contains(t, err.Error(), "min_overlap_threshold")
	}
}

func TestLoad_ThresholdBoundsAccepted(t *testing.T) {
	for _, threshold := range []string{"0", "1"} {
		path := writeConfig(t, "etl:\n  min_overlap_threshold: "+threshold+"\n")
		_, err := Load(path)
		assert.NoError(t, err, "threshold %s", threshold)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "etl",
		Password: "secret",
		Database: "paddocks",
		SSLMode:  "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=etl password=secret dbname=paddocks sslmode=require",
		cfg.ConnectionString())
}
