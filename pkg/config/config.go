package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for paddock-engine.
// Configuration comes from a YAML file with environment variable overrides.
// Environment variables always override YAML values for fields that support
// both; the database password must only come from the environment.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	ETL      ETLConfig      `yaml:"etl"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds PostgreSQL connection configuration. The source
// database must have PostGIS installed (paddock geometries).
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"paddocks"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PG_MAX_CONNECTIONS" env-default:"10"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

// ETLConfig holds the reconciliation settings: the spatial match threshold,
// the per-namespace aggregation rule table, and output options.
type ETLConfig struct {
	// MinOverlapThreshold is the inclusive fraction of a historical
	// paddock's area that must be covered by a reference paddock for the
	// match to be accepted. Must lie in [0,1].
	MinOverlapThreshold float64 `yaml:"min_overlap_threshold" env:"MIN_OVERLAP_THRESHOLD" env-default:"0.3"`

	// AggregationRules maps namespace -> attribute key -> rule name.
	// Keys absent from the table default to the "first" rule.
	AggregationRules RuleTable `yaml:"aggregation_rules"`

	// RulesPath optionally points to a standalone YAML rule table which
	// replaces AggregationRules when set.
	RulesPath string `yaml:"rules_path" env:"ETL_RULES_PATH" env-default:""`

	OutputDir  string `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"./output"`
	ExportXLSX bool   `yaml:"export_xlsx" env:"EXPORT_XLSX" env-default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// MetricsConfig holds the optional Prometheus listener address.
// Empty disables the listener.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR" env-default:""`
}

// RuleTable maps namespace -> attribute key -> aggregation rule name.
// Namespace names are externally configurable and never hardcoded.
type RuleTable map[string]map[string]string

// Rule looks up the configured rule for a namespace/key pair.
func (t RuleTable) Rule(namespace, key string) (string, bool) {
	rules, ok := t[namespace]
	if !ok {
		return "", false
	}
	rule, ok := rules[key]
	return rule, ok
}

// Load reads configuration from the given YAML file with environment
// variable overrides, then resolves the external rule table if configured.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if cfg.ETL.RulesPath != "" {
		table, err := loadRuleTable(cfg.ETL.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule table: %w", err)
		}
		cfg.ETL.AggregationRules = table
	}
	if cfg.ETL.AggregationRules == nil {
		cfg.ETL.AggregationRules = RuleTable{}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ETL.MinOverlapThreshold < 0 || c.ETL.MinOverlapThreshold > 1 {
		return fmt.Errorf("min_overlap_threshold must be in [0,1], got %g", c.ETL.MinOverlapThreshold)
	}
	if c.ETL.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

func loadRuleTable(path string) (RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var table RuleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return table, nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
