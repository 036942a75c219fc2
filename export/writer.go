package export

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/justapithecus/assay/metric"
	"github.com/justapithecus/assay/wire"
)

// FrameExporter writes each snapshot as a length-prefixed msgpack frame
// to an io.Writer (a file, a pipe, or stdout). Frames are written whole
// under a mutex so concurrent exports never interleave.
type FrameExporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFrameExporter creates a frame exporter over w. The writer's
// lifecycle stays with the caller; Close does not close it.
func NewFrameExporter(w io.Writer) *FrameExporter {
	return &FrameExporter{w: w}
}

// Export encodes the snapshot as a single frame and writes it.
func (e *FrameExporter) Export(ctx context.Context, ms []*metric.Metric) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("frame export: %w", err)
	}

	frame, err := wire.EncodeSnapshot(&wire.SnapshotFrame{
		Ts:      time.Now().UTC().Format(time.RFC3339Nano),
		Metrics: ms,
	})
	if err != nil {
		return fmt.Errorf("frame export: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write(frame); err != nil {
		return fmt.Errorf("frame export: write: %w", err)
	}
	return nil
}

// Close implements Exporter. The underlying writer is not closed.
func (e *FrameExporter) Close() error { return nil }

// Verify FrameExporter implements the exporter interface.
var _ Exporter = (*FrameExporter)(nil)
