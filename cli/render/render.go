// Package render provides centralized output rendering for the assay CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format flag always overrides defaults
//   - Invalid formats are errors
//
// Color handling:
//   - --no-color affects table output only
//   - TUI mode is unaffected by --no-color (uses its own styling)
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/assay/metric"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// headerStyle colors table headers when color is enabled.
var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from CLI context, applying the format
// selection rules above.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	formatStr := c.String("format")
	format, err := ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	// Apply default format based on TTY detection
	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     os.Stdout,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// isTTY returns true if the writer is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// RenderMetrics outputs a metric snapshot in the configured format.
func (r *Renderer) RenderMetrics(ms []*metric.Metric) error {
	switch r.format {
	case FormatJSON:
		return r.renderJSON(ms)
	case FormatTable:
		return r.renderMetricsTable(ms)
	case FormatYAML:
		return r.renderYAML(ms)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// Render outputs arbitrary data as json or yaml. Table format falls back
// to json; only metrics have a table shape.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatYAML:
		return r.renderYAML(data)
	default:
		return r.renderJSON(data)
	}
}

func (r *Renderer) renderJSON(data any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Renderer) renderYAML(data any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	return enc.Encode(data)
}

// renderMetricsTable prints one line per time series:
// VIEW  TYPE  UNIT  LABELS  VALUE.
func (r *Renderer) renderMetricsTable(ms []*metric.Metric) error {
	if len(ms) == 0 {
		fmt.Fprintln(r.out, "(no metrics)")
		return nil
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	header := "VIEW\tTYPE\tUNIT\tLABELS\tVALUE"
	if !r.noColor {
		header = headerStyle.Render(header)
	}
	fmt.Fprintln(w, header)

	for _, m := range ms {
		if len(m.TimeSeries) == 0 {
			fmt.Fprintf(w, "%s\t%s\t%s\t\t(no rows)\n", m.Name, m.Type, m.Unit)
			continue
		}
		for _, ts := range m.TimeSeries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				m.Name, m.Type, m.Unit,
				FormatLabels(m.LabelKeys, ts.LabelValues),
				FormatPoint(ts.Point),
			)
		}
	}
	return nil
}

// FormatLabels renders key=value pairs in column order.
func FormatLabels(keys, values []string) string {
	if len(keys) == 0 {
		return "-"
	}
	pairs := make([]string, len(keys))
	for i, k := range keys {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		pairs[i] = k + "=" + v
	}
	return strings.Join(pairs, ",")
}

// FormatPoint renders a point's value compactly.
func FormatPoint(p metric.Point) string {
	switch {
	case p.Int64 != nil:
		return strconv.FormatInt(*p.Int64, 10)
	case p.Double != nil:
		return strconv.FormatFloat(*p.Double, 'g', -1, 64)
	case p.Distribution != nil:
		d := p.Distribution
		return fmt.Sprintf("count=%d sum=%g mean=%g stddev=%g", d.Count, d.Sum, d.Mean, d.StdDeviation)
	default:
		return "-"
	}
}
