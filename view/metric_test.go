package view

import (
	"reflect"
	"testing"
	"time"

	"github.com/justapithecus/assay/metric"
	"github.com/justapithecus/assay/stats"
	"github.com/justapithecus/assay/tag"
)

func TestView_MetricType(t *testing.T) {
	i := stats.Int64("i", "", stats.UnitDimensionless)
	f := stats.Float64("f", "", stats.UnitDimensionless)

	tests := []struct {
		measure stats.Measure
		agg     Aggregation
		want    metric.Type
	}{
		{i, Count(), metric.TypeCumulativeInt64},
		{f, Count(), metric.TypeCumulativeInt64},
		{i, Sum(), metric.TypeCumulativeInt64},
		{f, Sum(), metric.TypeCumulativeDouble},
		{i, LastValue(), metric.TypeGaugeInt64},
		{f, LastValue(), metric.TypeGaugeDouble},
		{i, Distribution(10), metric.TypeCumulativeDistribution},
		{f, Distribution(10), metric.TypeCumulativeDistribution},
	}

	for _, tt := range tests {
		v := &View{Measure: tt.measure, Aggregation: tt.agg}
		if got := v.MetricType(); got != tt.want {
			t.Errorf("MetricType() for %s/%s = %q, want %q",
				tt.measure.Type, tt.agg.Type(), got, tt.want)
		}
	}
}

func TestView_Metric(t *testing.T) {
	m := stats.Float64("request.latency", "Request latency", stats.UnitMillisecond)
	v := newTestView(t, m, []string{"region", "service"}, Sum())

	v.Record(m.M(1.5, tag.Map{"region": "us", "service": "api"}), time.Now())
	v.Record(m.M(2.5, tag.Map{"region": "us", "service": "api"}), time.Now())
	v.Record(m.M(7, tag.Map{"region": "eu"}), time.Now())

	start := time.Now().Add(-time.Minute)
	now := time.Now()
	got := v.Metric(start, now)

	if got.Name != "request.latency.view" {
		t.Errorf("Name = %q, want %q", got.Name, "request.latency.view")
	}
	if got.Unit != "ms" {
		t.Errorf("Unit = %q, want %q", got.Unit, "ms")
	}
	if got.Type != metric.TypeCumulativeDouble {
		t.Errorf("Type = %q, want %q", got.Type, metric.TypeCumulativeDouble)
	}
	if !reflect.DeepEqual(got.LabelKeys, []string{"region", "service"}) {
		t.Errorf("LabelKeys = %v, want [region service]", got.LabelKeys)
	}
	if len(got.TimeSeries) != 2 {
		t.Fatalf("len(TimeSeries) = %d, want 2", len(got.TimeSeries))
	}

	for _, ts := range got.TimeSeries {
		if !ts.Start.Equal(start) {
			t.Errorf("Start = %v, want %v", ts.Start, start)
		}
		if !ts.Point.Time.Equal(now) {
			t.Errorf("Point.Time = %v, want %v", ts.Point.Time, now)
		}
		if ts.Point.Double == nil {
			t.Fatal("Point.Double is nil for a double sum view")
		}

		switch ts.LabelValues[0] {
		case "us":
			if ts.LabelValues[1] != "api" {
				t.Errorf("us series LabelValues = %v, want [us api]", ts.LabelValues)
			}
			if *ts.Point.Double != 4 {
				t.Errorf("us sum = %g, want 4", *ts.Point.Double)
			}
		case "eu":
			if ts.LabelValues[1] != "" {
				t.Errorf("eu series service label = %q, want empty", ts.LabelValues[1])
			}
			if *ts.Point.Double != 7 {
				t.Errorf("eu sum = %g, want 7", *ts.Point.Double)
			}
		default:
			t.Errorf("unexpected series labels %v", ts.LabelValues)
		}
	}
}

func TestView_MetricInt64Sum(t *testing.T) {
	m := stats.Int64("bytes", "", stats.UnitByte)
	v := newTestView(t, m, nil, Sum())

	v.Record(m.M(100, nil), time.Now())
	v.Record(m.M(50, nil), time.Now())

	got := v.Metric(v.StartTime(), time.Now())
	if len(got.TimeSeries) != 1 {
		t.Fatalf("len(TimeSeries) = %d, want 1", len(got.TimeSeries))
	}
	p := got.TimeSeries[0].Point
	if p.Int64 == nil {
		t.Fatal("Point.Int64 is nil for an int64 sum view")
	}
	if *p.Int64 != 150 {
		t.Errorf("sum = %d, want 150", *p.Int64)
	}
}

func TestView_MetricDistribution(t *testing.T) {
	m := stats.Float64("latency", "", stats.UnitMillisecond)
	v := newTestView(t, m, nil, Distribution(0, 10, 20))

	for _, x := range []float64{-5, 5, 15, 25} {
		v.Record(m.M(x, nil), time.Now())
	}

	got := v.Metric(v.StartTime(), time.Now())
	p := got.TimeSeries[0].Point
	if p.Distribution == nil {
		t.Fatal("Point.Distribution is nil for a distribution view")
	}
	d := p.Distribution

	if d.Count != 4 {
		t.Errorf("Count = %d, want 4", d.Count)
	}
	if d.Sum != 40 {
		t.Errorf("Sum = %g, want 40", d.Sum)
	}
	if !reflect.DeepEqual(d.BucketCounts, []int64{1, 1, 1, 1}) {
		t.Errorf("BucketCounts = %v, want [1 1 1 1]", d.BucketCounts)
	}
	if !reflect.DeepEqual(d.Bounds, []float64{0, 10, 20}) {
		t.Errorf("Bounds = %v, want [0 10 20]", d.Bounds)
	}
}

func TestView_MetricEmptyView(t *testing.T) {
	m := stats.Float64("latency", "", stats.UnitMillisecond)
	v := newTestView(t, m, []string{"region"}, Count())

	got := v.Metric(v.StartTime(), time.Now())
	if len(got.TimeSeries) != 0 {
		t.Errorf("len(TimeSeries) = %d for empty view, want 0", len(got.TimeSeries))
	}
}
