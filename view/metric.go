package view

import (
	"time"

	"github.com/justapithecus/assay/metric"
	"github.com/justapithecus/assay/stats"
)

// MetricType returns the export type for this view, derived from its
// aggregation kind and the measure's numeric kind.
func (v *View) MetricType() metric.Type {
	switch v.Aggregation.Type() {
	case AggTypeCount:
		return metric.TypeCumulativeInt64
	case AggTypeSum:
		if v.Measure.Type == stats.MeasureInt64 {
			return metric.TypeCumulativeInt64
		}
		return metric.TypeCumulativeDouble
	case AggTypeLastValue:
		if v.Measure.Type == stats.MeasureInt64 {
			return metric.TypeGaugeInt64
		}
		return metric.TypeGaugeDouble
	case AggTypeDistribution:
		return metric.TypeCumulativeDistribution
	default:
		return ""
	}
}

// Metric renders the view's current rows as a backend-neutral metric. The
// given start time is stamped as every series' reporting start; now is the
// point time of every value. Label values follow Columns() order. Rows are
// read coherently one at a time; the scan does not block recording.
func (v *View) Metric(start, now time.Time) *metric.Metric {
	rows := v.Rows()

	m := &metric.Metric{
		Name:        v.Name,
		Description: v.Description,
		Unit:        string(v.Measure.Unit),
		Type:        v.MetricType(),
		LabelKeys:   v.Columns(),
		TimeSeries:  make([]metric.TimeSeries, 0, len(rows)),
	}

	for _, r := range rows {
		values := make([]string, len(m.LabelKeys))
		for i, k := range m.LabelKeys {
			values[i] = r.Tags[k]
		}
		m.TimeSeries = append(m.TimeSeries, metric.TimeSeries{
			LabelValues: values,
			Start:       start,
			Point:       dataPoint(r.Data, now, v.Measure.Type),
		})
	}
	return m
}

// dataPoint converts one row accumulator into an export point.
func dataPoint(data AggregationData, now time.Time, mt stats.MeasureType) metric.Point {
	switch d := data.(type) {
	case *CountData:
		return metric.NewInt64Point(now, d.Value)
	case *SumData:
		if mt == stats.MeasureInt64 {
			return metric.NewInt64Point(now, int64(d.Value))
		}
		return metric.NewDoublePoint(now, d.Value)
	case *LastValueData:
		if mt == stats.MeasureInt64 {
			return metric.NewInt64Point(now, int64(d.Value))
		}
		return metric.NewDoublePoint(now, d.Value)
	case *DistributionData:
		return metric.NewDistributionPoint(now, &metric.Distribution{
			Count:                 d.Count,
			Sum:                   d.Sum,
			Mean:                  d.Mean,
			SumOfSquaredDeviation: d.SumOfSquaredDev,
			StdDeviation:          d.StdDeviation(),
			Bounds:                d.Bounds,
			BucketCounts:          d.BucketCounts,
		})
	default:
		return metric.Point{Time: now}
	}
}
