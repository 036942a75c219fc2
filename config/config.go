// Package config handles YAML declaration of measures, views, and export
// sinks, and materializes a registry from a parsed declaration.
package config

import (
	"fmt"
	"time"
)

// Config represents an assay.yaml configuration file. Measures and views
// declare the aggregation setup; Export configures the optional snapshot
// pipeline. CLI flags always override export values.
type Config struct {
	Measures []MeasureConfig `yaml:"measures"`
	Views    []ViewConfig    `yaml:"views"`
	Export   ExportConfig    `yaml:"export"`
	Limits   LimitsConfig    `yaml:"limits"`
}

// MeasureConfig declares one measure.
type MeasureConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Unit        string `yaml:"unit"`
	Type        string `yaml:"type"`
}

// ViewConfig declares one view over a declared measure.
type ViewConfig struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Measure     string    `yaml:"measure"`
	TagKeys     []string  `yaml:"tag_keys"`
	Aggregation string    `yaml:"aggregation"`
	Buckets     []float64 `yaml:"buckets,omitempty"`
}

// ExportConfig holds snapshot export defaults.
type ExportConfig struct {
	// Interval between snapshots, e.g. "10s". Zero disables interval
	// export.
	Interval Duration `yaml:"interval"`
	// Sink selects the export target: s3, webhook, redis, or frame.
	Sink    string        `yaml:"sink"`
	S3      S3Config      `yaml:"s3"`
	Webhook WebhookConfig `yaml:"webhook"`
	Redis   RedisConfig   `yaml:"redis"`
	// Path is the output file for the frame sink; empty means stdout.
	Path string `yaml:"path"`
}

// S3Config holds S3 sink settings.
type S3Config struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// WebhookConfig holds webhook sink settings.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// RedisConfig holds Redis pub/sub sink settings.
type RedisConfig struct {
	URL     string   `yaml:"url"`
	Channel string   `yaml:"channel,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
	Retries *int     `yaml:"retries,omitempty"`
}

// LimitsConfig holds engine hardening limits.
type LimitsConfig struct {
	// MaxRowsPerView caps distinct tag combinations per view. Zero means
	// unbounded.
	MaxRowsPerView int `yaml:"max_rows_per_view"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
