package view

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/justapithecus/assay/log"
	"github.com/justapithecus/assay/metric"
	"github.com/justapithecus/assay/stats"
)

// Sentinel errors for registration failures.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrMeasureCollision indicates a measure name is already registered
	// with a different definition.
	ErrMeasureCollision = errors.New("measure name already registered with a different definition")

	// ErrViewCollision indicates a view name is already registered.
	ErrViewCollision = errors.New("view name already registered")

	// ErrUnknownMeasure indicates a view references a measure the registry
	// has not seen.
	ErrUnknownMeasure = errors.New("view references an unregistered measure")
)

// Registry is the process composition root for measures and views. It
// enforces name uniqueness at registration, routes every recorded
// measurement to the views of its measure, and produces export snapshots
// across all views. All methods are safe for concurrent use.
type Registry struct {
	logger  *log.Logger
	maxRows int64

	mu        sync.RWMutex
	measures  map[string]stats.Measure
	views     map[string]*View
	byMeasure map[string][]*View
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registry and view diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMaxRowsPerView caps the number of distinct tag combinations each
// view will materialize. Recordings for combinations beyond the cap are
// dropped, never an error. Zero means unbounded; unbounded tag-value
// cardinality makes row stores grow without limit, so callers recording
// tags from uncontrolled inputs should set a cap.
func WithMaxRowsPerView(n int) Option {
	return func(r *Registry) { r.maxRows = int64(n) }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		measures:  make(map[string]stats.Measure),
		views:     make(map[string]*View),
		byMeasure: make(map[string][]*View),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterMeasure registers a measure, enforcing process-wide name
// uniqueness. Re-registering an identical definition is a no-op; a name
// collision with a different definition returns ErrMeasureCollision.
func (r *Registry) RegisterMeasure(m stats.Measure) error {
	if err := m.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerMeasureLocked(m)
}

// registerMeasureLocked implements RegisterMeasure. Caller must hold mu.
func (r *Registry) registerMeasureLocked(m stats.Measure) error {
	if existing, ok := r.measures[m.Name]; ok {
		if existing != m {
			return fmt.Errorf("measure %q: %w", m.Name, ErrMeasureCollision)
		}
		return nil
	}
	r.measures[m.Name] = m
	return nil
}

// Measure returns the registered measure with the given name.
func (r *Registry) Measure(name string) (stats.Measure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.measures[name]
	return m, ok
}

// RegisterView validates and registers a view, transitioning it to its
// recording state. The view's measure is registered implicitly under the
// same collision rules. Registration is the one-way transition that makes
// Record live; there is no unregister.
func (r *Registry) RegisterView(v *View) error {
	if err := v.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.views[v.Name]; ok {
		return fmt.Errorf("view %q: %w", v.Name, ErrViewCollision)
	}
	if err := r.registerMeasureLocked(v.Measure); err != nil {
		return err
	}

	v.register(time.Now(), r.maxRows, r.logger)
	r.views[v.Name] = v
	r.byMeasure[v.Measure.Name] = append(r.byMeasure[v.Measure.Name], v)

	if r.logger != nil {
		r.logger.Debug("view registered", map[string]any{
			"view":        v.Name,
			"measure":     v.Measure.Name,
			"aggregation": v.Aggregation.Type().String(),
			"columns":     v.Columns(),
		})
	}
	return nil
}

// View returns the registered view with the given name, or nil.
func (r *Registry) View(name string) *View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.views[name]
}

// Views returns all registered views, sorted by name.
func (r *Registry) Views() []*View {
	r.mu.RLock()
	out := make([]*View, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, v)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Record folds the given measurements into every view of their measure at
// the current time. Fire-and-forget: measurements whose measure has no
// registered views are dropped silently.
func (r *Registry) Record(ms ...stats.Measurement) {
	r.RecordAt(time.Now(), ms...)
}

// RecordAt is Record with an explicit timestamp, for replaying recorded
// measurement streams.
func (r *Registry) RecordAt(at time.Time, ms ...stats.Measurement) {
	for _, m := range ms {
		r.mu.RLock()
		views := r.byMeasure[m.Measure.Name]
		r.mu.RUnlock()

		for _, v := range views {
			v.Record(m, at)
		}
	}
}

// Metrics renders every view's current rows as export metrics, stamped
// with each view's own start time and the given snapshot time. Rows
// within one metric are coherent individually; cross-view and cross-row
// consistency is not guaranteed, and the scan never blocks recording.
func (r *Registry) Metrics(now time.Time) []*metric.Metric {
	views := r.Views()
	out := make([]*metric.Metric, 0, len(views))
	for _, v := range views {
		out = append(out, v.Metric(v.StartTime(), now))
	}
	return out
}
