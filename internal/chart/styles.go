package chart

import (
	"fmt"
	"strings"

	"ramwatch/internal/models"
	"ramwatch/internal/services"

	"github.com/charmbracelet/lipgloss"
)

// ExitHint tells the user how to stop the monitor.
var ExitHint = fmt.Sprintf("Type '%s' and press Enter to exit", services.TerminateCommand)

// Styles for the plot and the status area.
var (
	titleStyle  lipgloss.Style
	axisStyle   lipgloss.Style
	lineStyle   lipgloss.Style
	labelStyle  lipgloss.Style
	statusStyle lipgloss.Style
	hintStyle   lipgloss.Style
)

func init() {
	initStyles()
}

func initStyles() {
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4"))

	axisStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262"))

	lineStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))

	labelStyle = lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("#A8A8A8"))

	statusStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FAFAFA"))

	hintStyle = lipgloss.NewStyle().
		Faint(true)
}

// styledPlot renders a layout with colours. The gutter and the plot area of
// each row are styled separately.
func styledPlot(l Layout) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(l.Title))
	b.WriteByte('\n')
	b.WriteString(labelStyle.Render(l.YLabel))
	b.WriteByte('\n')
	for _, row := range l.Rows {
		runes := []rune(row)
		b.WriteString(axisStyle.Render(string(runes[:gutterWidth])))
		b.WriteString(lineStyle.Render(string(runes[gutterWidth:])))
		b.WriteByte('\n')
	}
	b.WriteString(axisStyle.Render(l.Axis))
	b.WriteByte('\n')
	b.WriteString(axisStyle.Render(l.Ticks))
	b.WriteByte('\n')
	b.WriteString(labelStyle.Render(l.XLabel))
	return b.String()
}

// StatusLine summarises the latest snapshot, or says that no sample has
// arrived yet.
func StatusLine(frame models.ChartFrame) string {
	s := frame.Latest
	if s == nil {
		return "Waiting for the first sample..."
	}
	return fmt.Sprintf("Used %s of %s (%.1f%%)  available %s  free %s  samples %d",
		s.UsedFormatted, s.TotalFormatted, s.PercentUsed,
		s.AvailableFormatted, s.FreeFormatted, len(frame.Points))
}
