// Package config defines engine configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/platewatch/internal/domain/severity"
)

// Baseline policies and SWC methods.
const (
	PolicyProportional = "proportional"
	PolicyRolling      = "rolling"

	SWCMethodSD   = "sd"
	SWCMethodMean = "mean"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataFile is the wide-format CSV export; several files may be given
	// separated by commas (CMJ and IMTP exports of one roster).
	DataFile string `koanf:"data_file"`

	// RulesFile is a YAML rule table. Empty uses the built-in table.
	RulesFile string `koanf:"rules_file"`

	// Column names of the export.
	AthleteColumn  string `koanf:"athlete_column"`
	DateColumn     string `koanf:"date_column"`
	PositionColumn string `koanf:"position_column"`
	NumberColumn   string `koanf:"number_column"`

	// BaselinePolicy is proportional (first fraction of the series) or
	// rolling (the last baseline_days days).
	BaselinePolicy   string  `koanf:"baseline_policy"`
	BaselineFraction float64 `koanf:"baseline_fraction"`
	BaselineDays     int     `koanf:"baseline_days"`

	// SWCMethod is sd (factor x population SD) or mean (factor x mean).
	SWCMethod string  `koanf:"swc_method"`
	SWCFactor float64 `koanf:"swc_factor"`

	// MinRecords is the minimum number of test records per athlete.
	MinRecords int `koanf:"min_records"`

	// Severity tiers as multiples of the SWC.
	SeverityCritical float64 `koanf:"severity_critical"`
	SeverityWarning  float64 `koanf:"severity_warning"`
	SeverityCaution  float64 `koanf:"severity_caution"`

	// WorkerCount sets the number of evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the duplicate-reading filter; 0 is unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// OutputFile receives the report; empty writes to stdout.
	OutputFile string `koanf:"output_file"`

	// OutputFormat is json or yaml.
	OutputFormat string `koanf:"output_format"`

	// MetricsTextfile, if set, receives a Prometheus textfile after a batch run.
	MetricsTextfile string `koanf:"metrics_textfile"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		AthleteColumn:    "Athlete_Name",
		DateColumn:       "Date",
		PositionColumn:   "Position",
		NumberColumn:     "Number",
		BaselinePolicy:   PolicyProportional,
		BaselineFraction: 0.6,
		BaselineDays:     180,
		SWCMethod:        SWCMethodSD,
		SWCFactor:        0.2,
		MinRecords:       5,
		SeverityCritical: 2.0,
		SeverityWarning:  1.5,
		SeverityCaution:  1.0,
		WorkerCount:      runtime.NumCPU(),
		QueueSize:        1024,
		OutputFormat:     "json",
	}
}

// DataFiles splits DataFile into paths.
func (c *Config) DataFiles() []string {
	var out []string
	for _, p := range strings.Split(c.DataFile, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Thresholds returns the configured severity tiers as SWC multiples.
func (c *Config) Thresholds() severity.Thresholds {
	return severity.Thresholds{
		Critical: c.SeverityCritical,
		Warning:  c.SeverityWarning,
		Caution:  c.SeverityCaution,
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.AthleteColumn == "" || c.DateColumn == "":
		return invalid("athlete_column and date_column must not be empty")
	case c.BaselinePolicy != PolicyProportional && c.BaselinePolicy != PolicyRolling:
		return invalid("baseline_policy must be %q or %q, got %q", PolicyProportional, PolicyRolling, c.BaselinePolicy)
	case c.BaselineFraction <= 0 || c.BaselineFraction >= 1:
		return invalid("baseline_fraction must be in (0, 1), got %g", c.BaselineFraction)
	case c.BaselineDays < 1:
		return invalid("baseline_days must be positive, got %d", c.BaselineDays)
	case c.SWCMethod != SWCMethodSD && c.SWCMethod != SWCMethodMean:
		return invalid("swc_method must be %q or %q, got %q", SWCMethodSD, SWCMethodMean, c.SWCMethod)
	case c.SWCFactor <= 0:
		return invalid("swc_factor must be positive, got %g", c.SWCFactor)
	case c.MinRecords < 1:
		return invalid("min_records must be positive, got %d", c.MinRecords)
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.QueueSize < 1:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.DedupeSize < 0:
		return invalid("dedupe_size must not be negative, got %d", c.DedupeSize)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.OutputFormat) {
	case "json", "yaml", "yml":
	default:
		return invalid("output_format must be json or yaml, got %q", c.OutputFormat)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
