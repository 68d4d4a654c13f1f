package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// renderGrid builds a fixed-size board, one styled symbol per cell, with a
// single space between columns. The cell function decides the symbol and
// style for each coordinate; every symbol must occupy exactly one column so
// the board stays aligned.
func renderGrid(width, height int, cell func(x, y int) (string, lipgloss.Style)) string {
	rows := make([]string, 0, height)
	for y := 0; y < height; y++ {
		var row strings.Builder
		for x := 0; x < width; x++ {
			if x > 0 {
				row.WriteByte(' ')
			}
			symbol, style := cell(x, y)
			row.WriteString(style.Render(fitSymbol(symbol)))
		}
		rows = append(rows, row.String())
	}
	return strings.Join(rows, "\n")
}

func fitSymbol(symbol string) string {
	switch runewidth.StringWidth(symbol) {
	case 0:
		return " "
	case 1:
		return symbol
	default:
		return runewidth.Truncate(symbol, 1, "")
	}
}
