package view

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justapithecus/assay/log"
	"github.com/justapithecus/assay/stats"
	"github.com/justapithecus/assay/tag"
)

// View binds a measure to a set of tag columns and an aggregation kind,
// and owns the row store that accumulates one aggregation state per
// distinct projected tag combination.
//
// The exported fields are configuration: set them before registration and
// never mutate them afterwards. All runtime state (registration flag, end
// time, rows) lives in unexported fields touched only through methods.
// A view starts recording once the registry accepts it; recordings before
// that are dropped silently.
type View struct {
	// Name uniquely identifies the view within a registry.
	Name string
	// Description is a human-readable description for exporters.
	Description string
	// Measure is the measure this view aggregates.
	Measure stats.Measure
	// TagKeys are the tag columns this view groups by, in declared order.
	// Measurement tags outside this set are ignored; declared keys absent
	// from a measurement's tags are recorded as the empty string.
	TagKeys []string
	// Aggregation is the summarization strategy for every row.
	Aggregation Aggregation

	registered atomic.Bool
	start      time.Time
	columns    []string
	maxRows    int64
	logger     *log.Logger

	mu  sync.Mutex // guards end
	end time.Time

	rows     sync.Map // canonical row key -> *row
	rowCount atomic.Int64
	dropped  atomic.Int64
	warned   atomic.Bool
}

// row pairs one accumulator with its own mutex. Row-level locking keeps
// concurrent recordings to unrelated tag combinations from serializing on
// a single view lock.
type row struct {
	mu   sync.Mutex
	tags tag.Map
	data AggregationData
}

// Row is a point-in-time copy of one row: its projected tag set and a
// clone of its accumulator. Safe to retain and read concurrently.
type Row struct {
	Tags tag.Map
	Data AggregationData
}

// validate checks the view configuration ahead of registration.
func (v *View) validate() error {
	if v.Name == "" {
		return fmt.Errorf("view name must not be empty")
	}
	if len(v.Name) > stats.MaxNameLength {
		return fmt.Errorf("view name %q exceeds %d bytes", v.Name, stats.MaxNameLength)
	}
	if err := v.Measure.Validate(); err != nil {
		return fmt.Errorf("view %q: %w", v.Name, err)
	}
	if err := v.Aggregation.validate(); err != nil {
		return fmt.Errorf("view %q: %w", v.Name, err)
	}
	seen := make(map[string]bool, len(v.TagKeys))
	for _, k := range v.TagKeys {
		if k == "" {
			return fmt.Errorf("view %q has an empty tag key", v.Name)
		}
		if seen[k] {
			return fmt.Errorf("view %q declares tag key %q twice", v.Name, k)
		}
		seen[k] = true
	}
	return nil
}

// register transitions the view to its recording state. Called exactly
// once, by the registry, after validation.
func (v *View) register(start time.Time, maxRows int64, logger *log.Logger) {
	v.columns = make([]string, len(v.TagKeys))
	copy(v.columns, v.TagKeys)
	v.start = start
	v.end = start
	v.maxRows = maxRows
	v.logger = logger
	v.registered.Store(true)
}

// Registered reports whether the view has been accepted by a registry.
func (v *View) Registered() bool { return v.registered.Load() }

// StartTime is the instant the view was registered. Zero before that.
func (v *View) StartTime() time.Time { return v.start }

// EndTime is the time of the most recently accepted recording. It
// advances monotonically; recordings with an earlier timestamp fold
// normally but do not move it backwards.
func (v *View) EndTime() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.end
}

// Columns returns the view's tag columns in their declared order. The
// label values of every row and exported time series align with this
// order.
func (v *View) Columns() []string {
	cols := make([]string, len(v.TagKeys))
	copy(cols, v.TagKeys)
	return cols
}

// Record folds one measurement into the view at the given time. It is a
// no-op if the view is unregistered or the measurement belongs to a
// different measure; neither case is an error. For an int64-kind measure
// the value is truncated toward zero before folding. Safe for concurrent
// use; recordings to distinct tag combinations proceed in parallel.
func (v *View) Record(m stats.Measurement, at time.Time) {
	if !v.registered.Load() {
		return
	}
	if m.Measure.Name != v.Measure.Name {
		return
	}

	val := m.Value
	if v.Measure.Type == stats.MeasureInt64 {
		val = math.Trunc(val)
	}

	key := tag.EncodeKey(m.Tags, v.columns)
	ri, ok := v.rows.Load(key)
	if !ok {
		if v.maxRows > 0 && v.rowCount.Load() >= v.maxRows {
			v.dropped.Add(1)
			if v.warned.CompareAndSwap(false, true) && v.logger != nil {
				v.logger.Warn("view row ceiling reached, dropping recordings for new tag combinations", map[string]any{
					"view":     v.Name,
					"max_rows": v.maxRows,
				})
			}
			return
		}
		fresh := &row{
			tags: tag.Project(m.Tags, v.columns),
			data: v.Aggregation.newData(at),
		}
		// Two concurrent first recordings for the same combination collapse
		// to a single winner; the loser folds into the winner's row.
		if actual, loaded := v.rows.LoadOrStore(key, fresh); loaded {
			ri = actual
		} else {
			ri = fresh
			v.rowCount.Add(1)
		}
	}

	r := ri.(*row)
	r.mu.Lock()
	r.data.addSample(val, at)
	r.mu.Unlock()

	v.mu.Lock()
	if at.After(v.end) {
		v.end = at
	}
	v.mu.Unlock()
}

// Snapshot returns a copy of the accumulator for the row identified by the
// given tags. The tags are projected onto the view's columns first, so
// either a full tag set or an exact row tag set works. If no such row
// exists yet, a fresh zero accumulator is returned (and not stored). The
// returned copy never aliases live state. Nil before registration.
func (v *View) Snapshot(tags tag.Map) AggregationData {
	if !v.registered.Load() {
		return nil
	}
	key := tag.EncodeKey(tags, v.columns)
	if ri, ok := v.rows.Load(key); ok {
		r := ri.(*row)
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.data.clone()
	}
	return v.Aggregation.newData(v.start)
}

// Rows returns a point-in-time copy of every row, ordered by the row's
// canonical key for deterministic output. Each row's accumulator is read
// coherently under its mutex; rows may reflect slightly different
// instants relative to each other.
func (v *View) Rows() []Row {
	type keyed struct {
		key string
		row Row
	}
	var out []keyed
	v.rows.Range(func(k, ri any) bool {
		r := ri.(*row)
		r.mu.Lock()
		data := r.data.clone()
		r.mu.Unlock()
		out = append(out, keyed{key: k.(string), row: Row{Tags: r.tags.Clone(), Data: data}})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })

	rows := make([]Row, len(out))
	for i, kr := range out {
		rows[i] = kr.row
	}
	return rows
}

// RowCount returns the number of distinct tag combinations observed so
// far. Rows are never deleted, so this only grows.
func (v *View) RowCount() int64 { return v.rowCount.Load() }

// DroppedRecordings returns the number of recordings dropped by the row
// ceiling. Zero when no ceiling is configured.
func (v *View) DroppedRecordings() int64 { return v.dropped.Load() }
