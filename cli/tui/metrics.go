package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/assay/cli/render"
	"github.com/justapithecus/assay/metric"
)

// keyMap defines the TUI key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// MetricsModel is a Bubble Tea model displaying one metric snapshot.
type MetricsModel struct {
	title    string
	metrics  []*metric.Metric
	width    int
	height   int
	quitting bool
}

// NewMetricsModel creates a metrics model for the given snapshot.
func NewMetricsModel(title string, ms []*metric.Metric) MetricsModel {
	return MetricsModel{
		title:   title,
		metrics: ms,
	}
}

// Init implements tea.Model.
func (m MetricsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m MetricsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m MetricsModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n\n")

	series := 0
	for _, mm := range m.metrics {
		series += len(mm.TimeSeries)
	}
	boxes := []string{
		m.renderStatBox("Views", len(m.metrics)),
		m.renderStatBox("Series", series),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	b.WriteString(m.renderSeriesTable())

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return b.String() + "\n" + help
}

func (m MetricsModel) renderStatBox(label string, value int) string {
	content := StatValueStyle.Render(fmt.Sprintf("%d", value)) + "\n" + StatLabelStyle.Render(label)
	return StatBoxStyle.Render(content)
}

func (m MetricsModel) renderSeriesTable() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("VIEW  LABELS  VALUE"))
	b.WriteString("\n")

	for _, mm := range m.metrics {
		for _, ts := range mm.TimeSeries {
			b.WriteString(fmt.Sprintf("%s  %s  %s\n",
				mm.Name,
				render.FormatLabels(mm.LabelKeys, ts.LabelValues),
				render.FormatPoint(ts.Point),
			))
		}
	}
	return b.String()
}

// Run displays a metric snapshot until the user quits.
func Run(title string, ms []*metric.Metric) error {
	p := tea.NewProgram(NewMetricsModel(title, ms), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
