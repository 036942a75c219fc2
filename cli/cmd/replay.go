package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/assay/cli/render"
	"github.com/justapithecus/assay/cli/tui"
	"github.com/justapithecus/assay/config"
	"github.com/justapithecus/assay/iox"
	"github.com/justapithecus/assay/log"
	"github.com/justapithecus/assay/stats"
	"github.com/justapithecus/assay/tag"
	"github.com/justapithecus/assay/view"
	"github.com/justapithecus/assay/wire"
)

// ReplayCommand returns the replay command. Replay folds a recorded
// measurement frame stream through a config-declared registry and
// renders the resulting metric snapshot.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Aggregate a measurement frame stream and show the resulting metrics",
		ArgsUsage: "[stream file, or - for stdin]",
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			&cli.BoolFlag{
				Name:  "export",
				Usage: "Push the final snapshot to the configured export sink",
			},
		),
		Action: replayAction,
	}
}

func replayAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := log.NewLogger("replay")
	reg, err := config.Build(cfg, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), 1)
	}

	in, name, err := openStream(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer iox.DiscardClose(in)

	result, err := ReplayStream(wire.NewFrameDecoder(in), reg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("replay %s: %v", name, err), 1)
	}

	if result.Skipped > 0 {
		logger.Warn("skipped undecodable or unknown-measure frames", map[string]any{
			"skipped":  result.Skipped,
			"recorded": result.Recorded,
		})
	}

	ms := reg.Metrics(time.Now())

	if c.Bool("export") {
		if err := exportSnapshot(c.Context, cfg, ms); err != nil {
			return cli.Exit(fmt.Sprintf("export: %v", err), 1)
		}
	}

	if c.Bool("tui") {
		return tui.Run("Replay Metrics", ms)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.RenderMetrics(ms)
}

// ReplayResult summarizes one replayed stream.
type ReplayResult struct {
	// Recorded is the number of measurements folded into the registry.
	Recorded int64
	// Skipped counts frames dropped for decode errors, unknown measures,
	// or non-measurement frame types.
	Skipped int64
}

// ReplayStream decodes measurement frames until EOF and folds each one
// into the registry. Non-fatal decode errors skip the frame; fatal frame
// errors (truncation, oversize) stop the replay.
func ReplayStream(dec *wire.FrameDecoder, reg *view.Registry) (*ReplayResult, error) {
	result := &ReplayResult{}

	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return result, err
		}

		frame, err := wire.DecodeMeasurement(payload)
		if err != nil {
			if wire.IsFatalFrameError(err) {
				return result, err
			}
			result.Skipped++
			continue
		}
		if frame.Type != wire.MeasurementType {
			result.Skipped++
			continue
		}

		measure, ok := reg.Measure(frame.Measure)
		if !ok {
			result.Skipped++
			continue
		}

		at := time.Now()
		if frame.Ts != "" {
			parsed, err := time.Parse(time.RFC3339Nano, frame.Ts)
			if err == nil {
				at = parsed
			}
		}

		reg.RecordAt(at, stats.Measurement{
			Measure: measure,
			Value:   frame.Value,
			Tags:    tag.Map(frame.Tags),
		})
		result.Recorded++
	}
}

// openStream opens the replay input: a file path, or stdin for "-" or no
// argument.
func openStream(arg string) (io.ReadCloser, string, error) {
	if arg == "" || arg == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(arg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("stream file not found: %s", arg)
		}
		return nil, "", fmt.Errorf("cannot open stream file %q: %w", arg, err)
	}
	return f, arg, nil
}
