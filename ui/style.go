package ui

import (
	"github.com/gdamore/tcell/v2"

	"tn5250/terminal"
)

var tcellColors = map[terminal.Color]tcell.Color{
	terminal.ColorGreen:     tcell.ColorGreen,
	terminal.ColorWhite:     tcell.ColorWhite,
	terminal.ColorRed:       tcell.ColorRed,
	terminal.ColorTurquoise: tcell.ColorTeal,
	terminal.ColorYellow:    tcell.ColorYellow,
	terminal.ColorPink:      tcell.ColorFuchsia,
	terminal.ColorBlue:      tcell.ColorBlue,
}

// styleFor maps a 5250 attribute to a tcell style. Non-display cells render
// black on black.
func styleFor(attr byte, color bool) tcell.Style {
	style := tcell.StyleDefault.Background(tcell.ColorBlack)
	if terminal.IsNonDisplay(attr) {
		return style.Foreground(tcell.ColorBlack)
	}
	fg := tcell.ColorGreen
	if color {
		if c, ok := tcellColors[terminal.AttributeColor(attr)]; ok {
			fg = c
		}
	}
	style = style.Foreground(fg)
	if terminal.IsReverseImage(attr) {
		style = style.Reverse(true)
	}
	if terminal.ShowUnderline(attr) {
		style = style.Underline(true)
	}
	return style
}
