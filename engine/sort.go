package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ftahirops/circuittop/model"
)

// SortHandler receives the header sort controls. It returns the rows in the
// order to display; it must not modify current.
type SortHandler interface {
	Sort(col model.Column, dir model.Direction, current model.Dataset) model.Dataset
}

// SortFunc adapts a function to SortHandler.
type SortFunc func(col model.Column, dir model.Direction, current model.Dataset) model.Dataset

// Sort implements SortHandler.
func (f SortFunc) Sort(col model.Column, dir model.Direction, current model.Dataset) model.Dataset {
	return f(col, dir, current)
}

// NopSort keeps the server's order.
var NopSort SortHandler = SortFunc(func(_ model.Column, _ model.Direction, current model.Dataset) model.Dataset {
	return current.Clone()
})

// ColumnSort orders rows by the selected column's value. Ties keep server
// order. The reset column has no value and leaves the order unchanged.
var ColumnSort SortHandler = SortFunc(sortByColumn)

func sortByColumn(col model.Column, dir model.Direction, current model.Dataset) model.Dataset {
	out := current.Clone()
	if col == model.ColReset {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compareColumn(col, out[i].Record, out[j].Record)
		if dir == model.Descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compareColumn(col model.Column, a, b model.CircuitRecord) int {
	switch col {
	case model.ColCircuitID:
		return compareText(string(a.CircuitID), string(b.CircuitID))
	case model.ColTimeRemaining:
		return compareText(string(a.BatteryTimeEmpty), string(b.BatteryTimeEmpty))
	}
	return compareFloat(numericValue(col, a), numericValue(col, b))
}

func numericValue(col model.Column, r model.CircuitRecord) float64 {
	switch col {
	case model.ColPowerCapacity:
		return r.PowerCapacity
	case model.ColPowerProduction:
		return r.PowerProduction
	case model.ColPowerConsumed:
		return r.PowerConsumed
	case model.ColMaxConsumed:
		return r.PowerMaxConsumed
	case model.ColBatteryDifferential:
		return r.BatteryDifferential
	case model.ColBatteryPercent:
		return r.BatteryPercent
	case model.ColBatteryCapacity:
		return r.BatteryCapacity
	}
	return 0
}

// compareText orders numerically when both sides are numbers, so circuit 10
// sorts after circuit 9.
func compareText(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return compareFloat(fa, fb)
	}
	return strings.Compare(a, b)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
