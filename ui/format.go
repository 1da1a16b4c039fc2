package ui

import (
	"math"
	"math/big"
	"strconv"

	"github.com/ftahirops/circuittop/model"
)

// FormatMW rounds half away from zero to whole megawatts: 104.6 -> "105MW".
func FormatMW(v float64) string {
	n := math.Round(v)
	if n == 0 {
		n = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(n, 'f', 0, 64) + "MW"
}

// FormatPercent rounds half away from zero to one decimal: 47.25 -> "47.3%".
// The rounding looks at the exact stored value, so 0.15 (stored just below
// the tie) gives "0.1%".
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64) + "%"
	}
	tenths := roundTenths(v)
	neg := tenths.Sign() < 0
	tenths.Abs(tenths)
	whole, frac := new(big.Int).QuoRem(tenths, big.NewInt(10), new(big.Int))

	s := whole.String() + "." + frac.String() + "%"
	if neg {
		s = "-" + s
	}
	return s
}

// roundTenths returns v*10 rounded half away from zero, computed exactly.
func roundTenths(v float64) *big.Int {
	x := new(big.Rat).SetFloat64(v)
	x.Mul(x, big.NewRat(10, 1))
	q, r := new(big.Int).QuoRem(x.Num(), x.Denom(), new(big.Int))
	// |r|/den >= 1/2 rounds away from zero
	r.Abs(r).Lsh(r, 1)
	if r.Cmp(x.Denom()) >= 0 {
		q.Add(q, big.NewInt(int64(x.Sign())))
	}
	return q
}

// formatCells renders a record's values in column order. The reset
// column holds the button label.
func formatCells(r model.CircuitRecord) [model.ColumnCount]string {
	var cells [model.ColumnCount]string
	cells[model.ColReset] = resetLabel
	cells[model.ColCircuitID] = string(r.CircuitID)
	cells[model.ColPowerCapacity] = FormatMW(r.PowerCapacity)
	cells[model.ColPowerProduction] = FormatMW(r.PowerProduction)
	cells[model.ColPowerConsumed] = FormatMW(r.PowerConsumed)
	cells[model.ColMaxConsumed] = FormatMW(r.PowerMaxConsumed)
	cells[model.ColBatteryDifferential] = FormatMW(r.BatteryDifferential)
	cells[model.ColBatteryPercent] = FormatPercent(r.BatteryPercent)
	cells[model.ColBatteryCapacity] = FormatMW(r.BatteryCapacity)
	cells[model.ColTimeRemaining] = string(r.BatteryTimeEmpty)
	return cells
}
