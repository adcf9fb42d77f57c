// Package ui provides terminal styling for ghtriage CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)
)

// HeaderStyle for section headers.
var HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

func RenderPass(s string) string { return PassStyle.Render(s) }
func RenderWarn(s string) string { return WarnStyle.Render(s) }
func RenderFail(s string) string { return FailStyle.Render(s) }
func RenderMuted(s string) string { return MutedStyle.Render(s) }

// Table renders rows as aligned columns, header styled when present.
type Table struct {
	Header []string
	Rows   [][]string
}

// Render returns the table as a string, columns padded to their widest cell.
func (t Table) Render() string {
	widths := make([]int, len(t.Header))
	measure := func(row []string) {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	measure(t.Header)
	for _, row := range t.Rows {
		measure(row)
	}

	var sb strings.Builder
	writeRow := func(row []string, style *lipgloss.Style) {
		cells := make([]string, 0, len(row))
		for i, cell := range row {
			w := lipgloss.Width(cell)
			padded := cell
			if i < len(widths) && w < widths[i] {
				padded += strings.Repeat(" ", widths[i]-w)
			}
			if style != nil {
				padded = style.Render(padded)
			}
			cells = append(cells, padded)
		}
		sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		sb.WriteString("\n")
	}

	if len(t.Header) > 0 {
		writeRow(t.Header, &HeaderStyle)
	}
	for _, row := range t.Rows {
		writeRow(row, nil)
	}
	return sb.String()
}

// KeyValue renders a "key: value" line with a muted key.
func KeyValue(key string, value interface{}) string {
	return fmt.Sprintf("%s %v", MutedStyle.Render(key+":"), value)
}
