package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ellipsis marks clipped cell text.
const ellipsis = "..."

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// styledPad pads a styled string to the given visual width. ANSI escapes do
// not count toward the width.
func styledPad(styled string, width int) string {
	visW := lipgloss.Width(styled)
	if visW >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-visW)
}

// clip cuts s to width runes, ending in an ellipsis when there is room for one.
func clip(runes []rune, width int) string {
	if width <= len(ellipsis) {
		return string(runes[:width])
	}
	return string(runes[:width-len(ellipsis)]) + ellipsis
}

// padRight left-aligns s in width runes.
func padRight(s string, width int) string {
	runes := []rune(s)
	switch {
	case len(runes) == width:
		return s
	case len(runes) > width:
		return clip(runes, width)
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// padLeft right-aligns s in width runes; numeric cells are never given an
// ellipsis, they are cut.
func padLeft(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return strings.Repeat(" ", width-len(runes)) + s
}

// truncate shortens s to maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return clip(runes, maxLen)
}

// sparkline draws data scaled between lo and hi in at most width cells,
// followed by the latest value in MW. Older samples are averaged per cell.
func sparkline(data []float64, width int, lo, hi float64) string {
	if len(data) == 0 {
		return dimStyle.Render(strings.Repeat("░", width) + " no data")
	}
	if hi <= lo {
		hi = lo + 1
	}

	cells := data
	if len(data) > width {
		cells = make([]float64, width)
		for i := range cells {
			from, to := i*len(data)/width, (i+1)*len(data)/width
			var sum float64
			for _, v := range data[from:to] {
				sum += v
			}
			cells[i] = sum / float64(to-from)
		}
	}

	var sb strings.Builder
	for _, v := range cells {
		ratio := min(max((v-lo)/(hi-lo), 0), 1)
		block := string(sparkBlocks[int(ratio*float64(len(sparkBlocks)-1))])
		switch {
		case ratio > 0.8:
			sb.WriteString(critStyle.Render(block))
		case ratio > 0.4:
			sb.WriteString(warnStyle.Render(block))
		default:
			sb.WriteString(okStyle.Render(block))
		}
	}
	sb.WriteString(dimStyle.Render(" now=" + FormatMW(data[len(data)-1])))
	return sb.String()
}

// bounds returns the min and max of data, or 0, 0 when empty.
func bounds(data []float64) (lo, hi float64) {
	for i, v := range data {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi
}
