package cmd

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/assay/cli/render"
	"github.com/justapithecus/assay/cli/tui"
	"github.com/justapithecus/assay/iox"
	"github.com/justapithecus/assay/metric"
	"github.com/justapithecus/assay/wire"
)

// InspectCommand returns the inspect command. Inspect decodes recorded
// snapshot frames and renders the metrics they carry.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Decode recorded snapshot frames and show their metrics",
		ArgsUsage: "[snapshot file, or - for stdin]",
		Flags:     ReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	in, name, err := openStream(c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer iox.DiscardClose(in)

	ms, err := ReadSnapshots(wire.NewFrameDecoder(in))
	if err != nil {
		return cli.Exit(fmt.Sprintf("inspect %s: %v", name, err), 1)
	}
	if len(ms) == 0 {
		return cli.Exit("no snapshot frames found", 1)
	}

	if c.Bool("tui") {
		return tui.Run("Snapshot Metrics", ms)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.RenderMetrics(ms)
}

// ReadSnapshots decodes snapshot frames until EOF. Later snapshots for
// the same view replace earlier ones, so the result reflects the last
// state of each view in the stream. Non-snapshot frames are skipped.
func ReadSnapshots(dec *wire.FrameDecoder) ([]*metric.Metric, error) {
	byName := map[string]int{}
	var ms []*metric.Metric

	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			return ms, nil
		}
		if err != nil {
			return nil, err
		}

		snap, err := wire.DecodeSnapshot(payload)
		if err != nil {
			if wire.IsFatalFrameError(err) {
				return nil, err
			}
			continue
		}
		if snap.Type != wire.SnapshotType {
			continue
		}

		for _, m := range snap.Metrics {
			if i, ok := byName[m.Name]; ok {
				ms[i] = m
				continue
			}
			byName[m.Name] = len(ms)
			ms = append(ms, m)
		}
	}
}
