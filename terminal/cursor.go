// Package terminal holds the 5250 display model: the cursor, the screen
// buffer of attribute and character bytes, and the table of input fields.
//
// Nothing in this package blocks or locks. The decoder owns a single
// instance of each type and mutates it from one goroutine.
package terminal

const (
	DefaultColumns = 80
	DefaultRows    = 25
)

// Cursor is a 1-based (column,row) position on a screen of fixed size.
// Movement wraps instead of leaving the screen.
type Cursor struct {
	column int
	row    int
	width  int
	height int
}

// NewCursor returns a cursor at (1,1) on a default 80x25 screen.
func NewCursor() *Cursor {
	return &Cursor{column: 1, row: 1, width: DefaultColumns, height: DefaultRows}
}

func (c *Cursor) Column() int { return c.column }
func (c *Cursor) Row() int    { return c.row }

// SetDisplaySize changes the bounds and pulls the position back inside them.
func (c *Cursor) SetDisplaySize(columns, rows int) {
	if columns < 1 {
		columns = 1
	}
	if rows < 1 {
		rows = 1
	}
	c.width = columns
	c.height = rows
	c.SetPosition(c.column, c.row)
}

// SetPosition moves the cursor. Out-of-range values are clamped to the screen.
func (c *Cursor) SetPosition(column, row int) {
	c.column = clamp(column, 1, c.width)
	c.row = clamp(row, 1, c.height)
}

func (c *Cursor) MoveUp() {
	c.row--
	if c.row < 1 {
		c.row = c.height
	}
}

func (c *Cursor) MoveDown() {
	c.row++
	if c.row > c.height {
		c.row = 1
	}
}

// MoveLeft at column 1 continues on the last column of the previous row.
func (c *Cursor) MoveLeft() {
	c.column--
	if c.column < 1 {
		c.column = c.width
		c.MoveUp()
	}
}

// MoveRight at the last column continues on column 1 of the next row.
func (c *Cursor) MoveRight() {
	c.column++
	if c.column > c.width {
		c.column = 1
		c.MoveDown()
	}
}

// Address is the linear offset of the cursor on a screen of the given width.
func (c *Cursor) Address(width int) int {
	return (c.row-1)*width + (c.column - 1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
