package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for ShopLens.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Insight   InsightConfig   `yaml:"insight"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type DataConfig struct {
	CSVPath         string `yaml:"csvPath"`
	DatabasePath    string `yaml:"databasePath"`
	RefreshSchedule string `yaml:"refreshSchedule"` // cron expression; empty disables refresh
}

type AnalyticsConfig struct {
	ClusterK      int     `yaml:"clusterK"`
	ClusterSeed   int64   `yaml:"clusterSeed"`
	PercentileLo  float64 `yaml:"percentileLo"` // default trim lower bound
	PercentileHi  float64 `yaml:"percentileHi"` // default trim upper bound
	OutlierMethod string  `yaml:"outlierMethod"` // "percentile" or "iqr"
}

type InsightConfig struct {
	Enabled bool          `yaml:"enabled"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Address:         "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Data: DataConfig{
			CSVPath:      "/data/iap_events.csv",
			DatabasePath: "/data/shoplens.db",
		},
		Analytics: AnalyticsConfig{
			ClusterK:      3,
			ClusterSeed:   42,
			PercentileLo:  0.01,
			PercentileHi:  0.99,
			OutlierMethod: "percentile",
		},
		Insight: InsightConfig{
			Enabled: false,
			Model:   "claude-sonnet-4-6",
			Timeout: 10 * time.Second,
		},
	}

	cfg.applyEnvOverrides()
	return cfg
}

// LoadFromFile loads config from a YAML file, overlaying on defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides fills in fields from environment variables. This handles
// deployments that mount the data paths at runtime instead of baking them
// into the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHOPLENS_CSV_PATH"); v != "" {
		c.Data.CSVPath = v
	}
	if v := os.Getenv("SHOPLENS_DB_PATH"); v != "" {
		c.Data.DatabasePath = v
	}
	if v := os.Getenv("SHOPLENS_ADDRESS"); v != "" {
		c.Server.Address = v
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Data.CSVPath == "" && c.Data.DatabasePath == "" {
		return fmt.Errorf("data source required: set data.csvPath or data.databasePath (or SHOPLENS_CSV_PATH / SHOPLENS_DB_PATH)")
	}

	if c.Analytics.ClusterK < 2 {
		return fmt.Errorf("analytics.clusterK must be >= 2, got %d", c.Analytics.ClusterK)
	}
	if c.Analytics.PercentileLo < 0 || c.Analytics.PercentileLo >= 1 {
		return fmt.Errorf("analytics.percentileLo must be in [0, 1), got %v", c.Analytics.PercentileLo)
	}
	if c.Analytics.PercentileHi <= c.Analytics.PercentileLo || c.Analytics.PercentileHi > 1 {
		return fmt.Errorf("analytics.percentileHi must be in (percentileLo, 1], got %v", c.Analytics.PercentileHi)
	}

	switch c.Analytics.OutlierMethod {
	case "percentile", "iqr":
	default:
		return fmt.Errorf("invalid analytics.outlierMethod %q: must be percentile or iqr", c.Analytics.OutlierMethod)
	}

	return nil
}
