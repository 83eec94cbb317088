package main

import (
	"fmt"
	"strings"

	"deskcore/internal/dashboard"
	"deskcore/pkg/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#8BC34A")
	colorMuted   = lipgloss.Color("#6b7785")
	colorAccent  = lipgloss.Color("#2196F3")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle  = lipgloss.NewStyle().Bold(true)
	barStyle    = lipgloss.NewStyle().Foreground(colorPrimary)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

const (
	maxCellWidth = 32
	barWidth     = 24
)

func renderTable(title string, headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], min(lipgloss.Width(clip(cell)), maxCellWidth))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", title, len(rows))))
	sb.WriteString("\n")
	for i, h := range headers {
		sb.WriteString(headerStyle.Width(widths[i] + 2).Render(h))
	}
	sb.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				sb.WriteString(lipgloss.NewStyle().Width(widths[i] + 2).Render(clip(cell)))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderRecord(d domain.Descriptor, rec domain.Record) string {
	names := append([]string{"id"}, d.FieldNames()...)
	values := append([]string{rec.Meta().ID}, d.Row(rec)...)
	width := 0
	for _, n := range names {
		width = max(width, lipgloss.Width(n))
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(string(d.Entity())))
	sb.WriteString("\n")
	for i, n := range names {
		sb.WriteString(labelStyle.Width(width + 2).Render(n))
		sb.WriteString(values[i])
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderPanels(summary dashboard.Summary) string {
	panels := summary.Panels()
	blocks := make([]string, 0, len(panels))
	for _, p := range panels {
		blocks = append(blocks, panelStyle.Render(renderPanel(p)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...) + "\n"
}

func renderPanel(p dashboard.Panel) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(p.Title))
	labelWidth := 0
	for _, m := range p.Metrics {
		labelWidth = max(labelWidth, lipgloss.Width(m.Label))
	}
	for _, c := range p.Counts {
		labelWidth = max(labelWidth, lipgloss.Width(c.Label))
	}
	for _, m := range p.Metrics {
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Width(labelWidth + 2).Render(m.Label))
		sb.WriteString(valueStyle.Render(m.Value))
	}
	peak := 0
	for _, c := range p.Counts {
		peak = max(peak, c.Count)
	}
	for _, c := range p.Counts {
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Width(labelWidth + 2).Render(c.Label))
		sb.WriteString(barStyle.Render(bar(c.Count, peak)))
		sb.WriteString(fmt.Sprintf(" %d", c.Count))
	}
	return sb.String()
}

func bar(n, peak int) string {
	if peak <= 0 || n <= 0 {
		return ""
	}
	return strings.Repeat("█", max(1, n*barWidth/peak))
}

func clip(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > maxCellWidth {
		return string(r[:maxCellWidth-1]) + "…"
	}
	return s
}
