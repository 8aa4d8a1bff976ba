// Package config loads pipeline configuration from defaults, an optional
// YAML file, and ORDERPIPE_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all pipeline configuration.
type Config struct {
	// DatabasePath is the embedded SQLite database file shared by all stages.
	DatabasePath string `mapstructure:"database_path"`

	// DataDir holds the raw input files (orders.csv, product_catalog.json).
	DataDir string `mapstructure:"data_dir"`

	// ExportDir receives the CSV exports.
	ExportDir string `mapstructure:"export_dir"`

	// ReportPath is where the JSON quality report is written.
	ReportPath string `mapstructure:"report_path"`

	LogLevel string `mapstructure:"log_level"`

	// OTLP metrics endpoint; empty disables telemetry.
	OTELEndpoint string `mapstructure:"otel_endpoint"`
	OTELInsecure bool   `mapstructure:"otel_insecure"`
	ServiceName  string `mapstructure:"service_name"`

	Seeder SeederConfig `mapstructure:"seeder"`
}

// SeederConfig controls synthetic data generation.
type SeederConfig struct {
	Count int   `mapstructure:"count"`
	Seed  int64 `mapstructure:"seed"`
}

// Load reads configuration. cfgFile may be empty, in which case only defaults
// and environment variables apply.
func Load(cfgFile string) (Config, error) {
	v := viper.New()

	v.SetDefault("database_path", "data/orderpipe.db")
	v.SetDefault("data_dir", "data/raw")
	v.SetDefault("export_dir", "data/analytics_ready")
	v.SetDefault("report_path", "data/analytics_ready/data_quality_report.json")
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("otel_insecure", false)
	v.SetDefault("service_name", "orderpipe")
	v.SetDefault("seeder.count", 50000)
	v.SetDefault("seeder.seed", 42)

	v.SetEnvPrefix("ORDERPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: database_path is required")
	}
	if c.Seeder.Count < 0 {
		return fmt.Errorf("config: seeder.count must be non-negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
