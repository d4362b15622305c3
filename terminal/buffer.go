package terminal

// fieldTrailer is written after a field region to end its attribute.
const fieldTrailer byte = 0x20

// ScreenBuffer is the width x height grid of raw bytes received from the
// host together with the current write address.
type ScreenBuffer struct {
	width         int
	height        int
	cells         []byte
	addressColumn int
	addressRow    int
}

// NewScreenBuffer returns a cleared 80x25 buffer with the address at (1,1).
func NewScreenBuffer() *ScreenBuffer {
	b := &ScreenBuffer{}
	b.SetSize(DefaultColumns, DefaultRows)
	return b
}

// SetSize resizes and clears the buffer and homes the write address.
func (b *ScreenBuffer) SetSize(columns, rows int) {
	if columns < 1 {
		columns = 1
	}
	if rows < 1 {
		rows = 1
	}
	b.width = columns
	b.height = rows
	b.cells = make([]byte, columns*rows)
	b.addressColumn = 1
	b.addressRow = 1
}

func (b *ScreenBuffer) Width() int  { return b.width }
func (b *ScreenBuffer) Height() int { return b.height }

// BufferAddress returns the current write position.
func (b *ScreenBuffer) BufferAddress() (column, row int) {
	return b.addressColumn, b.addressRow
}

// SetBufferAddress moves the write position, clamped to the screen.
func (b *ScreenBuffer) SetBufferAddress(column, row int) {
	b.addressColumn = clamp(column, 1, b.width)
	b.addressRow = clamp(row, 1, b.height)
}

// Address converts a 1-based position into a linear offset. Positions are
// clamped so the result is always inside the buffer.
func (b *ScreenBuffer) Address(column, row int) int {
	return (clamp(row, 1, b.height)-1)*b.width + (clamp(column, 1, b.width) - 1)
}

// Position is the inverse of Address.
func (b *ScreenBuffer) Position(address int) (column, row int) {
	address = clamp(address, 0, len(b.cells)-1)
	return address%b.width + 1, address/b.width + 1
}

func (b *ScreenBuffer) CharacterAt(column, row int) byte {
	return b.cells[b.Address(column, row)]
}

// SetCharacter writes at the write address and advances it by one.
func (b *ScreenBuffer) SetCharacter(ch byte) {
	b.cells[b.Address(b.addressColumn, b.addressRow)] = ch
	b.increaseBufferAddress(1)
}

// SetCharacterAt writes without touching the write address.
func (b *ScreenBuffer) SetCharacterAt(column, row int, ch byte) {
	b.cells[b.Address(column, row)] = ch
}

// RepeatCharacterToAddress fills from the write address through the target
// inclusive and leaves the write address on the target. A target before the
// write address fills nothing but still moves the address.
func (b *ScreenBuffer) RepeatCharacterToAddress(column, row int, ch byte) int {
	from := b.Address(b.addressColumn, b.addressRow)
	to := b.Address(column, row)
	if to < from {
		b.SetBufferAddress(column, row)
		return 0
	}
	count := to - from + 1
	for i := 0; i < count; i++ {
		b.SetCharacter(ch)
	}
	b.SetBufferAddress(column, row)
	return count
}

// ClearToAddress writes NULs from the write address through the target
// inclusive, leaving the write address after the target.
func (b *ScreenBuffer) ClearToAddress(column, row int) int {
	from := b.Address(b.addressColumn, b.addressRow)
	to := b.Address(column, row)
	if to < from {
		return 0
	}
	for i := from; i <= to; i++ {
		b.SetCharacter(0x00)
	}
	return to - from + 1
}

// AddField writes the field attribute, records the field start on f, skips
// the field region and closes it with a trailing attribute.
func (b *ScreenBuffer) AddField(f *Field) {
	b.SetCharacter(f.Attribute)
	f.StartColumn = b.addressColumn
	f.StartRow = b.addressRow
	b.increaseBufferAddress(f.Length)
	b.SetCharacter(fieldTrailer)
}

// FieldContent returns the bytes on screen for f, trailing NULs stripped and
// embedded NULs turned into blanks.
func (b *ScreenBuffer) FieldContent(f *Field) []byte {
	start := b.Address(f.StartColumn, f.StartRow)
	end := start + f.Length
	if end > len(b.cells) {
		end = len(b.cells)
	}
	content := append([]byte(nil), b.cells[start:end]...)
	n := len(content)
	for n > 0 && content[n-1] == 0x00 {
		n--
	}
	content = content[:n]
	for i, c := range content {
		if c == 0x00 {
			content[i] = Blank
		}
	}
	return content
}

// Row returns a copy of one screen row.
func (b *ScreenBuffer) Row(row int) []byte {
	start := b.Address(1, row)
	return append([]byte(nil), b.cells[start:start+b.width]...)
}

// Bytes returns a copy of the whole grid.
func (b *ScreenBuffer) Bytes() []byte {
	return append([]byte(nil), b.cells...)
}

func (b *ScreenBuffer) increaseBufferAddress(increment int) {
	b.addressColumn += increment
	for b.addressColumn > b.width {
		b.addressColumn -= b.width
		b.addressRow++
	}
	for b.addressRow > b.height {
		b.addressRow -= b.height
	}
}
