package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/circuittop/model"
)

const resetLabel = "[Reset]"

// sortRequestMsg is emitted when a header sort control is activated.
type sortRequestMsg struct {
	Column    model.Column
	Direction model.Direction
}

// SortControl is one of the two sort triggers hosted by a header cell.
type SortControl struct {
	Column    model.Column
	Direction model.Direction
}

// Activate returns the command that delivers the sort request to the model.
func (c SortControl) Activate() tea.Cmd {
	req := sortRequestMsg{Column: c.Column, Direction: c.Direction}
	return func() tea.Msg { return req }
}

// HeaderCell is a column label with its ascending and descending controls.
type HeaderCell struct {
	Label  string
	Column model.Column
	Asc    SortControl
	Desc   SortControl
}

// Row is one rendered circuit. Reset is bound to CircuitID when the row
// is built and is nil when resets are disabled.
type Row struct {
	Key           string
	CircuitID     model.CircuitID
	Cells         [model.ColumnCount]string
	FuseTriggered bool
	BatteryPct    float64
	Reset         tea.Cmd
}

// ResetFunc builds the reset command for one circuit.
type ResetFunc func(id model.CircuitID) tea.Cmd

// Table is the rendered content: a fixed header and one row per record.
type Table struct {
	Header [model.ColumnCount]HeaderCell
	Rows   []Row
}

// Header returns the ten column headers in display order.
func Header() [model.ColumnCount]HeaderCell {
	var h [model.ColumnCount]HeaderCell
	for _, col := range model.Columns() {
		h[col] = HeaderCell{
			Label:  col.Label(),
			Column: col,
			Asc:    SortControl{Column: col, Direction: model.Ascending},
			Desc:   SortControl{Column: col, Direction: model.Descending},
		}
	}
	return h
}

// BuildTable constructs a fresh table from ds, in ds order. Nothing from a
// previous table is reused.
func BuildTable(ds model.Dataset, reset ResetFunc) *Table {
	t := &Table{
		Header: Header(),
		Rows:   make([]Row, 0, len(ds)),
	}
	for _, e := range ds {
		r := e.Record
		row := Row{
			Key:           e.Key,
			CircuitID:     r.CircuitID,
			Cells:         formatCells(r),
			FuseTriggered: r.FuseTriggered,
			BatteryPct:    r.BatteryPercent,
		}
		if reset != nil {
			row.Reset = reset(r.CircuitID)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Labels returns the header labels in order.
func (t *Table) Labels() []string {
	out := make([]string, len(t.Header))
	for i, h := range t.Header {
		out[i] = h.Label
	}
	return out
}

// CellRows returns the body as plain strings, for renderers.
func (t *Table) CellRows() [][]string {
	out := make([][]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Rows[i].Cells[:]
	}
	return out
}

// RenderPlain renders the table as unstyled, space-aligned text.
func (t *Table) RenderPlain() string {
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = len([]rune(h.Label))
	}
	for _, r := range t.Rows {
		for i, c := range r.Cells {
			if n := len([]rune(c)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	writeLine := func(cells []string, alignNumbers bool) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if alignNumbers && numericColumn(model.Column(i)) {
				parts[i] = padLeft(c, widths[i])
			} else {
				parts[i] = padRight(c, widths[i])
			}
		}
		sb.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		sb.WriteByte('\n')
	}
	writeLine(t.Labels(), false)
	for _, r := range t.Rows {
		writeLine(r.Cells[:], true)
	}
	return sb.String()
}

// numericColumn reports whether col holds a formatted MW or percent value.
func numericColumn(col model.Column) bool {
	return col >= model.ColPowerCapacity && col <= model.ColBatteryCapacity
}
