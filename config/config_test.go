package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/justapithecus/assay/stats"
	"github.com/justapithecus/assay/view"
)

const sampleYAML = `
measures:
  - name: request.latency
    description: HTTP request latency
    unit: ms
    type: double
  - name: request.count
    unit: unit
    type: int64

views:
  - name: latency.distribution
    measure: request.latency
    tag_keys: [region, service]
    aggregation: distribution
    buckets: [5, 10, 50, 100]
  - name: requests.total
    measure: request.count
    aggregation: count

export:
  interval: 10s
  sink: webhook
  webhook:
    url: https://example.com/hook
    timeout: 3s

limits:
  max_rows_per_view: 1000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assay.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.Measures) != 2 {
		t.Fatalf("len(Measures) = %d, want 2", len(cfg.Measures))
	}
	if cfg.Measures[0].Name != "request.latency" {
		t.Errorf("Measures[0].Name = %q, want request.latency", cfg.Measures[0].Name)
	}
	if len(cfg.Views) != 2 {
		t.Fatalf("len(Views) = %d, want 2", len(cfg.Views))
	}
	if !reflect.DeepEqual(cfg.Views[0].TagKeys, []string{"region", "service"}) {
		t.Errorf("TagKeys = %v, want [region service]", cfg.Views[0].TagKeys)
	}
	if !reflect.DeepEqual(cfg.Views[0].Buckets, []float64{5, 10, 50, 100}) {
		t.Errorf("Buckets = %v, want [5 10 50 100]", cfg.Views[0].Buckets)
	}
	if cfg.Export.Interval.Duration != 10*time.Second {
		t.Errorf("Export.Interval = %v, want 10s", cfg.Export.Interval.Duration)
	}
	if cfg.Export.Webhook.Timeout.Duration != 3*time.Second {
		t.Errorf("Webhook.Timeout = %v, want 3s", cfg.Export.Webhook.Timeout.Duration)
	}
	if cfg.Limits.MaxRowsPerView != 1000 {
		t.Errorf("MaxRowsPerView = %d, want 1000", cfg.Limits.MaxRowsPerView)
	}
}

func TestLoad_NotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file succeeded, want error")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "measures: [}")); err == nil {
		t.Error("Load() of invalid YAML succeeded, want error")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	if _, err := Load(writeConfig(t, "export:\n  interval: soon\n")); err == nil {
		t.Error("Load() with invalid duration succeeded, want error")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("ASSAY_TEST_URL", "redis://localhost:6379/0")

	cfg, err := Load(writeConfig(t, `
export:
  sink: redis
  redis:
    url: ${ASSAY_TEST_URL}
    channel: ${ASSAY_TEST_CHANNEL:-assay:metrics}
`))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Export.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("Redis.URL = %q, want expanded env value", cfg.Export.Redis.URL)
	}
	if cfg.Export.Redis.Channel != "assay:metrics" {
		t.Errorf("Redis.Channel = %q, want default fallback", cfg.Export.Redis.Channel)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("ASSAY_SET", "value")
	os.Unsetenv("ASSAY_UNSET")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${ASSAY_SET}", "value"},
		{"${ASSAY_UNSET}", ""},
		{"${ASSAY_UNSET:-fallback}", "fallback"},
		{"${ASSAY_SET:-fallback}", "value"},
		{"prefix-${ASSAY_SET}-suffix", "prefix-value-suffix"},
	}

	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuild(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	reg, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	m, ok := reg.Measure("request.latency")
	if !ok {
		t.Fatal("measure request.latency not registered")
	}
	if m.Type != stats.MeasureFloat64 {
		t.Errorf("Type = %q, want double", m.Type)
	}

	v := reg.View("latency.distribution")
	if v == nil {
		t.Fatal("view latency.distribution not registered")
	}
	if v.Aggregation.Type() != view.AggTypeDistribution {
		t.Errorf("Aggregation = %v, want distribution", v.Aggregation.Type())
	}
	if !reflect.DeepEqual(v.Aggregation.Bounds(), []float64{5, 10, 50, 100}) {
		t.Errorf("Bounds = %v, want [5 10 50 100]", v.Aggregation.Bounds())
	}
	if reg.View("requests.total") == nil {
		t.Error("view requests.total not registered")
	}
}

func TestBuild_UnknownMeasure(t *testing.T) {
	cfg := &Config{
		Views: []ViewConfig{{Name: "v", Measure: "ghost", Aggregation: "count"}},
	}

	_, err := Build(cfg, nil)
	if !errors.Is(err, view.ErrUnknownMeasure) {
		t.Errorf("Build() error = %v, want ErrUnknownMeasure", err)
	}
}

func TestBuild_InvalidMeasure(t *testing.T) {
	cfg := &Config{
		Measures: []MeasureConfig{{Name: "m", Unit: "lightyear", Type: "int64"}},
	}
	if _, err := Build(cfg, nil); err == nil {
		t.Error("Build() with invalid unit succeeded, want error")
	}
}

func TestParseAggregation(t *testing.T) {
	tests := []struct {
		name    string
		buckets []float64
		want    view.AggType
		wantErr bool
	}{
		{"count", nil, view.AggTypeCount, false},
		{"sum", nil, view.AggTypeSum, false},
		{"last_value", nil, view.AggTypeLastValue, false},
		{"distribution", []float64{1, 2}, view.AggTypeDistribution, false},
		{"distribution", nil, view.AggTypeDistribution, false},
		{"count", []float64{1}, 0, true},
		{"mean", nil, 0, true},
	}

	for _, tt := range tests {
		agg, err := ParseAggregation(tt.name, tt.buckets)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAggregation(%q, %v) succeeded, want error", tt.name, tt.buckets)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAggregation(%q) error: %v", tt.name, err)
			continue
		}
		if agg.Type() != tt.want {
			t.Errorf("ParseAggregation(%q).Type() = %v, want %v", tt.name, agg.Type(), tt.want)
		}
	}
}
