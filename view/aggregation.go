// Package view implements the aggregation engine: views bind a measure to
// a set of tag columns and an aggregation kind, and incrementally fold
// recorded measurements into per-tag-combination rows. The Registry is the
// composition root that enforces name uniqueness and routes measurements
// to matching views.
package view

import (
	"fmt"
	"time"
)

// AggType identifies one of the four aggregation kinds.
type AggType int

// Aggregation kinds. Exactly four are defined; there is no extension point.
const (
	AggTypeNone AggType = iota
	AggTypeCount
	AggTypeSum
	AggTypeLastValue
	AggTypeDistribution
)

// String returns the configuration-facing name of the aggregation kind.
func (t AggType) String() string {
	switch t {
	case AggTypeCount:
		return "count"
	case AggTypeSum:
		return "sum"
	case AggTypeLastValue:
		return "last_value"
	case AggTypeDistribution:
		return "distribution"
	default:
		return "none"
	}
}

// Aggregation describes how recorded values are summarized into a row.
// Construct with Count, Sum, LastValue, or Distribution; the zero value is
// invalid and rejected at view registration.
type Aggregation struct {
	typ    AggType
	bounds []float64
}

// Count aggregates by counting recordings, ignoring their magnitude.
func Count() Aggregation {
	return Aggregation{typ: AggTypeCount}
}

// Sum aggregates by keeping a running total of recorded values.
func Sum() Aggregation {
	return Aggregation{typ: AggTypeSum}
}

// LastValue keeps only the most recently recorded value per row.
func LastValue() Aggregation {
	return Aggregation{typ: AggTypeLastValue}
}

// Distribution aggregates into a histogram over the given ascending bucket
// boundaries. n boundaries define n+1 buckets: (-inf, b0], (b0, b1], ...,
// (bn-1, +inf). Zero boundaries define a single open bucket. The boundary
// slice is copied; it must be strictly ascending or view registration
// fails.
func Distribution(bounds ...float64) Aggregation {
	b := make([]float64, len(bounds))
	copy(b, bounds)
	return Aggregation{typ: AggTypeDistribution, bounds: b}
}

// Type returns the aggregation kind.
func (a Aggregation) Type() AggType { return a.typ }

// Bounds returns a copy of the distribution bucket boundaries. Nil for
// non-distribution aggregations.
func (a Aggregation) Bounds() []float64 {
	if a.bounds == nil {
		return nil
	}
	b := make([]float64, len(a.bounds))
	copy(b, a.bounds)
	return b
}

// validate checks the aggregation is constructible into row accumulators.
func (a Aggregation) validate() error {
	switch a.typ {
	case AggTypeCount, AggTypeSum, AggTypeLastValue:
		return nil
	case AggTypeDistribution:
		for i := 1; i < len(a.bounds); i++ {
			if a.bounds[i] <= a.bounds[i-1] {
				return fmt.Errorf("distribution bounds must be strictly ascending: bounds[%d]=%g <= bounds[%d]=%g",
					i, a.bounds[i], i-1, a.bounds[i-1])
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid aggregation kind %d", a.typ)
	}
}

// newData initializes a fresh row accumulator for this aggregation.
func (a Aggregation) newData(start time.Time) AggregationData {
	switch a.typ {
	case AggTypeCount:
		return &CountData{}
	case AggTypeSum:
		return &SumData{}
	case AggTypeLastValue:
		return &LastValueData{}
	case AggTypeDistribution:
		return newDistributionData(a.bounds, start)
	default:
		return nil
	}
}
