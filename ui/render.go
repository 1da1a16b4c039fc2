package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ftahirops/circuittop/model"
)

// tableView carries the cursor state the styled renderer needs.
type tableView struct {
	selected int
	focus    model.Column
	sortCol  model.Column
	sortDir  model.Direction
	sorted   bool
	width    int
}

// headerText decorates a label with its sort controls. The label itself
// never changes.
func (v tableView) headerText(h HeaderCell) string {
	switch {
	case v.sorted && v.sortCol == h.Column && v.sortDir == model.Ascending:
		return h.Label + " ▲"
	case v.sorted && v.sortCol == h.Column && v.sortDir == model.Descending:
		return h.Label + " ▼"
	case v.focus == h.Column:
		return h.Label + " ±"
	}
	return h.Label
}

// renderTable draws t with lipgloss/table.
func renderTable(t *Table, v tableView) string {
	headers := make([]string, len(t.Header))
	for i, h := range t.Header {
		headers[i] = v.headerText(h)
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(t.CellRows()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				if model.Column(col) == v.focus {
					return focusStyle.Padding(0, 1)
				}
				return headerStyle.Padding(0, 1)
			}
			if row < 0 || row >= len(t.Rows) {
				return cellStyle
			}
			r := t.Rows[row]
			base := cellStyle
			switch {
			case r.FuseTriggered:
				base = critStyle.Padding(0, 1)
			case model.Column(col) == model.ColBatteryPercent:
				base = pctColor(r.BatteryPct).Padding(0, 1)
			case model.Column(col) == model.ColReset:
				base = dimStyle.Padding(0, 1)
			default:
				base = valueStyle.Padding(0, 1)
			}
			if row == v.selected {
				return base.Background(selectedStyle.GetBackground())
			}
			return base
		})
	out := tbl.String()
	if v.width > 0 && lipgloss.Width(out) > v.width {
		out = tbl.Width(v.width).String()
	}
	return out
}
