package model

// Column identifies one of the ten table columns, in display order.
type Column int

const (
	ColReset Column = iota
	ColCircuitID
	ColPowerCapacity
	ColPowerProduction
	ColPowerConsumed
	ColMaxConsumed
	ColBatteryDifferential
	ColBatteryPercent
	ColBatteryCapacity
	ColTimeRemaining
	ColumnCount
)

var columnLabels = [ColumnCount]string{
	"Reset Circuit",
	"Circuit ID",
	"Power Capacity",
	"Power Production",
	"Power Consumed",
	"Max Consumed",
	"Battery Differential",
	"Battery Percent",
	"Battery Capacity",
	"Time Remaining",
}

// Columns returns every column in display order.
func Columns() []Column {
	out := make([]Column, ColumnCount)
	for i := range out {
		out[i] = Column(i)
	}
	return out
}

// Label is the column's header text.
func (c Column) Label() string {
	if c < 0 || c >= ColumnCount {
		return "?"
	}
	return columnLabels[c]
}

func (c Column) String() string { return c.Label() }

// Direction is a sort order requested from a header control.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}
