// Package metric defines the backend-neutral representation of aggregated
// view rows at a point in time. Exporters consume these types; the wire
// format itself (msgpack frames, JSON bodies) is the exporter's concern.
package metric

import "time"

// Type classifies a metric's value semantics for export backends.
type Type string

// Metric types. Count and Sum views export cumulative values, LastValue
// views export gauges, Distribution views export cumulative histograms.
const (
	TypeCumulativeInt64        Type = "cumulative_int64"
	TypeCumulativeDouble       Type = "cumulative_double"
	TypeGaugeInt64             Type = "gauge_int64"
	TypeGaugeDouble            Type = "gauge_double"
	TypeCumulativeDistribution Type = "cumulative_distribution"
)

// Metric is one view's current rows rendered for export. LabelKeys holds
// the view's tag columns in declared order; every time series carries one
// label value per key, in the same order.
type Metric struct {
	Name        string       `msgpack:"name" json:"name"`
	Description string       `msgpack:"description,omitempty" json:"description,omitempty"`
	Unit        string       `msgpack:"unit" json:"unit"`
	Type        Type         `msgpack:"type" json:"type"`
	LabelKeys   []string     `msgpack:"label_keys" json:"label_keys"`
	TimeSeries  []TimeSeries `msgpack:"time_series" json:"time_series"`
}

// TimeSeries is one row's exported value: its label values and a single
// point at the snapshot instant. Start is the reporting start time stamped
// by the caller of the snapshot.
type TimeSeries struct {
	LabelValues []string  `msgpack:"label_values" json:"label_values"`
	Start       time.Time `msgpack:"start" json:"start"`
	Point       Point     `msgpack:"point" json:"point"`
}

// Point holds a single typed value. Exactly one of Int64, Double, or
// Distribution is set, matching the metric's Type.
type Point struct {
	Time         time.Time     `msgpack:"time" json:"time"`
	Int64        *int64        `msgpack:"int64,omitempty" json:"int64,omitempty"`
	Double       *float64      `msgpack:"double,omitempty" json:"double,omitempty"`
	Distribution *Distribution `msgpack:"distribution,omitempty" json:"distribution,omitempty"`
}

// NewInt64Point returns a point carrying an integer value.
func NewInt64Point(t time.Time, v int64) Point {
	return Point{Time: t, Int64: &v}
}

// NewDoublePoint returns a point carrying a floating-point value.
func NewDoublePoint(t time.Time, v float64) Point {
	return Point{Time: t, Double: &v}
}

// NewDistributionPoint returns a point carrying a histogram value.
func NewDistributionPoint(t time.Time, d *Distribution) Point {
	return Point{Time: t, Distribution: d}
}

// Distribution is an exported histogram. BucketCounts has one entry per
// bucket: len(Bounds)+1, including the two open-ended buckets.
type Distribution struct {
	Count                 int64     `msgpack:"count" json:"count"`
	Sum                   float64   `msgpack:"sum" json:"sum"`
	Mean                  float64   `msgpack:"mean" json:"mean"`
	SumOfSquaredDeviation float64   `msgpack:"sum_of_squared_deviation" json:"sum_of_squared_deviation"`
	StdDeviation          float64   `msgpack:"std_deviation" json:"std_deviation"`
	Bounds                []float64 `msgpack:"bounds" json:"bounds"`
	BucketCounts          []int64   `msgpack:"bucket_counts" json:"bucket_counts"`
}
