package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tcam/gwcfg/internal/wizard"
)

// RenderSummary renders a wizard review projection as a bordered box, one
// block per step and one sub-block per list item.
func RenderSummary(sum wizard.Summary, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := []string{HeaderTitleStyle.Render(strings.ToUpper(sum.Title)), ""}
	for _, sec := range sum.Sections {
		lines = append(lines, SectionTitleStyle.Render(sec.Title))
		lines = append(lines, rows(sec.Rows, "  ")...)

		keys := make([]string, 0, len(sec.Lists))
		for k := range sec.Lists {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		for _, k := range keys {
			items := sec.Lists[wizard.FieldKey(k)]
			if len(items) == 0 {
				lines = append(lines, StepNoteStyle.Render("  (no "+k+")"))
				continue
			}
			for _, item := range items {
				lines = append(lines, "  "+ItemTitleStyle.Render(item.Title))
				lines = append(lines, rows(item.Rows, "    ")...)
			}
		}
		lines = append(lines, "")
	}

	return ReviewBoxStyle(width).Render(strings.TrimRight(strings.Join(lines, "\n"), "\n"))
}

func rows(rs []wizard.Row, indent string) []string {
	keyWidth := 0
	for _, r := range rs {
		if n := lipgloss.Width(r.Label); n > keyWidth {
			keyWidth = n
		}
	}
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		key := StepPendingStyle.Render(indent + r.Label + ":" + strings.Repeat(" ", keyWidth-lipgloss.Width(r.Label)))
		out = append(out, key+" "+ResultValueStyle.Render(r.Value))
	}
	return out
}

// RenderTable renders rows under headers, as used by the list commands.
func RenderTable(headers []string, data [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	return t.Render()
}
