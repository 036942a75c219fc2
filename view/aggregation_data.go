package view

import (
	"math"
	"sort"
	"time"
)

// AggregationData is one row's accumulator state. Each fold mutates the
// accumulator in place under the owning row's mutex; clone produces an
// independent copy safe for the caller to retain.
type AggregationData interface {
	// addSample folds one value into the accumulator.
	addSample(v float64, at time.Time)

	// clone returns an independent copy of the accumulator.
	clone() AggregationData

	// LastUpdateTime reports when the accumulator last folded a value.
	// Zero for an accumulator that has never been updated.
	LastUpdateTime() time.Time
}

// CountData counts recordings, independent of recorded values.
type CountData struct {
	Value      int64
	LastUpdate time.Time
}

func (d *CountData) addSample(_ float64, at time.Time) {
	d.Value++
	d.LastUpdate = at
}

func (d *CountData) clone() AggregationData {
	c := *d
	return &c
}

// LastUpdateTime implements AggregationData.
func (d *CountData) LastUpdateTime() time.Time { return d.LastUpdate }

// SumData keeps a running total of recorded values. Folding order may
// affect the least-significant bits of a floating-point total.
type SumData struct {
	Value      float64
	LastUpdate time.Time
}

func (d *SumData) addSample(v float64, at time.Time) {
	d.Value += v
	d.LastUpdate = at
}

func (d *SumData) clone() AggregationData {
	c := *d
	return &c
}

// LastUpdateTime implements AggregationData.
func (d *SumData) LastUpdateTime() time.Time { return d.LastUpdate }

// LastValueData keeps the most recently folded value. Under concurrent
// recording to the same row, "last" is whichever fold serializes last
// under the row mutex, not necessarily wall-clock last.
type LastValueData struct {
	Value      float64
	LastUpdate time.Time
}

func (d *LastValueData) addSample(v float64, at time.Time) {
	d.Value = v
	d.LastUpdate = at
}

func (d *LastValueData) clone() AggregationData {
	c := *d
	return &c
}

// LastUpdateTime implements AggregationData.
func (d *LastValueData) LastUpdateTime() time.Time { return d.LastUpdate }

// DistributionData maintains a histogram over fixed bucket boundaries
// together with running count, sum, mean, and sum of squared deviations.
// Mean and SumOfSquaredDev are maintained with Welford's online algorithm,
// which stays numerically stable across millions of folds where a naive
// sum-of-squares accumulates catastrophic cancellation.
type DistributionData struct {
	Count           int64
	Sum             float64
	Mean            float64
	SumOfSquaredDev float64

	// Bounds are the ascending bucket boundaries; BucketCounts has
	// len(Bounds)+1 entries, one per bucket including the two open ends.
	Bounds       []float64
	BucketCounts []int64

	Start      time.Time
	LastUpdate time.Time
}

func newDistributionData(bounds []float64, start time.Time) *DistributionData {
	return &DistributionData{
		Bounds:       bounds,
		BucketCounts: make([]int64, len(bounds)+1),
		Start:        start,
	}
}

func (d *DistributionData) addSample(v float64, at time.Time) {
	d.Count++
	d.Sum += v
	d.BucketCounts[d.bucketIndex(v)]++

	delta := v - d.Mean
	d.Mean += delta / float64(d.Count)
	d.SumOfSquaredDev += delta * (v - d.Mean)

	d.LastUpdate = at
}

// bucketIndex returns the index of the bucket whose range contains v.
// Buckets are exclusive of their lower boundary and inclusive of their
// upper boundary; values beyond the last boundary fall into the open
// overflow bucket, never an error.
func (d *DistributionData) bucketIndex(v float64) int {
	return sort.SearchFloat64s(d.Bounds, v)
}

// StdDeviation returns the population standard deviation, derived from
// the current Count and SumOfSquaredDev so it is always consistent with
// them. Zero when no values have been folded.
func (d *DistributionData) StdDeviation() float64 {
	if d.Count == 0 {
		return 0
	}
	return math.Sqrt(d.SumOfSquaredDev / float64(d.Count))
}

func (d *DistributionData) clone() AggregationData {
	c := *d
	c.Bounds = make([]float64, len(d.Bounds))
	copy(c.Bounds, d.Bounds)
	c.BucketCounts = make([]int64, len(d.BucketCounts))
	copy(c.BucketCounts, d.BucketCounts)
	return &c
}

// LastUpdateTime implements AggregationData.
func (d *DistributionData) LastUpdateTime() time.Time { return d.LastUpdate }
