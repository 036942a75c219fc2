// Package export defines the exporter boundary for aggregated metrics and
// an interval reader that periodically snapshots a registry and pushes to
// an exporter. Concrete sinks live in subpackages (s3, webhook, redis) and
// in FrameExporter for stream output.
package export

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/justapithecus/assay/log"
	"github.com/justapithecus/assay/metric"
)

// Exporter pushes a metric snapshot to a downstream system.
// Implementations must be safe for concurrent use.
type Exporter interface {
	// Export sends one snapshot. Must respect context cancellation and
	// deadlines. A failed export is retried implicitly at the next
	// interval; exporters should not buffer snapshots themselves.
	Export(ctx context.Context, ms []*metric.Metric) error

	// Close releases exporter resources.
	Close() error
}

// Source produces metric snapshots at a requested time.
// *view.Registry implements Source.
type Source interface {
	Metrics(now time.Time) []*metric.Metric
}

// Snapshot is the JSON payload shape shared by the webhook and redis
// sinks.
type Snapshot struct {
	// Ts is the snapshot timestamp in ISO 8601 UTC format.
	Ts string `json:"ts"`
	// Metrics is one entry per view.
	Metrics []*metric.Metric `json:"metrics"`
}

// NewSnapshot stamps a snapshot payload at the given time.
func NewSnapshot(at time.Time, ms []*metric.Metric) *Snapshot {
	return &Snapshot{
		Ts:      at.UTC().Format(time.RFC3339Nano),
		Metrics: ms,
	}
}

// ErrInvalidInterval is returned when an IntervalReader is configured
// with a non-positive interval.
var ErrInvalidInterval = errors.New("export interval must be positive")

// IntervalReader periodically reads a snapshot from a Source and pushes
// it to an Exporter. Export failures are logged and retried at the next
// tick; they never stop the loop.
type IntervalReader struct {
	source   Source
	exporter Exporter
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewIntervalReader creates an interval reader. The exporter's lifecycle
// remains the caller's: Stop does not close it.
func NewIntervalReader(src Source, exp Exporter, interval time.Duration, logger *log.Logger) (*IntervalReader, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &IntervalReader{
		source:   src,
		exporter: exp,
		interval: interval,
		logger:   logger,
	}, nil
}

// Start launches the export loop. Starting an already-started reader is a
// no-op.
func (r *IntervalReader) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.loop(r.stopCh, r.doneCh)
}

// Stop halts the export loop after pushing one final snapshot, and waits
// for it to exit. Stopping a never-started or already-stopped reader is a
// no-op.
func (r *IntervalReader) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
}

// loop runs in a goroutine and exports on the configured interval.
func (r *IntervalReader) loop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.exportOnce()
		case <-stopCh:
			// Final snapshot so the tail of recording is not lost.
			r.exportOnce()
			return
		}
	}
}

func (r *IntervalReader) exportOnce() {
	now := time.Now()
	ms := r.source.Metrics(now)

	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	if err := r.exporter.Export(ctx, ms); err != nil && r.logger != nil {
		r.logger.Warn("metric export failed", map[string]any{
			"error":   err.Error(),
			"metrics": len(ms),
		})
	}
}
