package ui

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"

	"tn5250/terminal"
)

// Cell is one character position with the attribute in force when it was
// drawn.
type Cell struct {
	Rune rune
	Attr byte
}

// Grid collects the output of an update pass. It is safe for concurrent use:
// the session draws into it while renderers read snapshots.
type Grid struct {
	mu        sync.Mutex
	columns   int
	rows      int
	cells     []Cell
	attr      byte
	cursorCol int
	cursorRow int
	listeners []func()
}

// NewGrid returns a blank grid of the given size.
func NewGrid(columns, rows int) *Grid {
	g := &Grid{}
	g.reset(columns, rows)
	return g
}

// OnChange registers fn to run after each completed update pass. Listeners
// run on the drawing goroutine in registration order.
func (g *Grid) OnChange(fn func()) {
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

func (g *Grid) reset(columns, rows int) {
	g.columns = columns
	g.rows = rows
	g.cells = make([]Cell, columns*rows)
	for i := range g.cells {
		g.cells[i] = Cell{Rune: ' ', Attr: terminal.AttrGreen}
	}
	g.attr = terminal.AttrGreen
	g.cursorCol, g.cursorRow = 1, 1
}

// Clear blanks the grid and resets the attribute to green.
func (g *Grid) Clear() {
	g.mu.Lock()
	g.reset(g.columns, g.rows)
	g.mu.Unlock()
}

// DisplayText draws text starting at (column,row). The grid grows when the
// host screen is larger than the current grid.
func (g *Grid) DisplayText(column, row int, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	runes := []rune(text)
	if column < 1 || row < 1 {
		return
	}
	g.ensure(column+len(runes)-1, row)
	for i, r := range runes {
		g.cells[(row-1)*g.columns+column-1+i] = Cell{Rune: r, Attr: g.attr}
	}
}

func (g *Grid) DisplayAttribute(attr byte) {
	g.mu.Lock()
	g.attr = attr
	g.mu.Unlock()
}

// DisplayCursor records the cursor and ends the update pass.
func (g *Grid) DisplayCursor(column, row int) {
	g.mu.Lock()
	g.cursorCol, g.cursorRow = column, row
	listeners := g.listeners
	g.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// ensure grows the grid to at least columns x rows, keeping content.
func (g *Grid) ensure(columns, rows int) {
	if columns <= g.columns && rows <= g.rows {
		return
	}
	newCols, newRows := max(columns, g.columns), max(rows, g.rows)
	cells := make([]Cell, newCols*newRows)
	for i := range cells {
		cells[i] = Cell{Rune: ' ', Attr: terminal.AttrGreen}
	}
	for r := 0; r < g.rows; r++ {
		copy(cells[r*newCols:r*newCols+g.columns], g.cells[r*g.columns:(r+1)*g.columns])
	}
	g.columns, g.rows, g.cells = newCols, newRows, cells
}

// Resize sets the grid size and clears it. The decoder calls it at the start
// of every update pass so the grid shrinks back after a wide screen.
func (g *Grid) Resize(columns, rows int) {
	g.mu.Lock()
	g.reset(columns, rows)
	g.mu.Unlock()
}

func (g *Grid) Size() (columns, rows int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.columns, g.rows
}

func (g *Grid) Cursor() (column, row int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursorCol, g.cursorRow
}

// Cell returns the cell at a 1-based position, or a blank outside the grid.
func (g *Grid) Cell(column, row int) Cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	if column < 1 || row < 1 || column > g.columns || row > g.rows {
		return Cell{Rune: ' ', Attr: terminal.AttrGreen}
	}
	return g.cells[(row-1)*g.columns+column-1]
}

// Cells returns a copy of all cells in row-major order with the size.
func (g *Grid) Cells() (cells []Cell, columns, rows int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Cell(nil), g.cells...), g.columns, g.rows
}

// Lines returns the visible text, non-display cells blanked and trailing
// blanks trimmed.
func (g *Grid) Lines() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	lines := make([]string, g.rows)
	var sb strings.Builder
	for r := 0; r < g.rows; r++ {
		sb.Reset()
		for _, c := range g.cells[r*g.columns : (r+1)*g.columns] {
			if terminal.IsNonDisplay(c.Attr) {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteRune(c.Rune)
		}
		lines[r] = strings.TrimRight(sb.String(), " ")
	}
	return lines
}

// Fingerprint hashes the visible text and cursor so callers can skip
// unchanged screens.
func (g *Grid) Fingerprint() uint64 {
	lines := g.Lines()
	col, row := g.Cursor()
	h := xxh3.New()
	var pos [4]byte
	binary.BigEndian.PutUint16(pos[0:2], uint16(col))
	binary.BigEndian.PutUint16(pos[2:4], uint16(row))
	_, _ = h.Write(pos[:])
	for _, line := range lines {
		_, _ = h.WriteString(line)
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}
