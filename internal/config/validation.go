package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError collects multiple validation errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateDetailed performs comprehensive config validation, collecting every
// problem instead of stopping at the first.
func ValidateDetailed(cfg *Config) *ValidationError {
	ve := &ValidationError{}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		ve.Add("server.port must be between 1 and 65535")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		ve.Add("server.shutdownTimeout must be >= 0")
	}

	if cfg.Data.CSVPath == "" && cfg.Data.DatabasePath == "" {
		ve.Add("one of data.csvPath or data.databasePath is required")
	}

	if cfg.Analytics.ClusterK < 2 || cfg.Analytics.ClusterK > 10 {
		ve.Add("analytics.clusterK must be between 2 and 10")
	}
	if cfg.Analytics.PercentileLo < 0 || cfg.Analytics.PercentileLo >= 1 {
		ve.Add("analytics.percentileLo must be in [0, 1)")
	}
	if cfg.Analytics.PercentileHi <= cfg.Analytics.PercentileLo || cfg.Analytics.PercentileHi > 1 {
		ve.Add("analytics.percentileHi must be in (percentileLo, 1]")
	}
	switch cfg.Analytics.OutlierMethod {
	case "percentile", "iqr", "":
	default:
		ve.Add(fmt.Sprintf("invalid analytics.outlierMethod %q", cfg.Analytics.OutlierMethod))
	}

	if cfg.Insight.Enabled {
		if cfg.Insight.Model == "" {
			ve.Add("insight.model is required when insight is enabled")
		}
		if cfg.Insight.Timeout > 0 && cfg.Insight.Timeout < time.Second {
			ve.Add("insight.timeout must be >= 1s when set")
		}
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}
