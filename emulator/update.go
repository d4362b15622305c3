package emulator

import "tn5250/terminal"

// Update redraws the screen: per row, each attribute byte becomes a
// DisplayAttribute call and each run of other bytes a DisplayText call at its
// starting column, NULs shown as blanks. Pending text is always flushed
// before an attribute. The cursor is reported last.
func (d *Decoder) Update() {
	if d.display == nil {
		return
	}
	if r, ok := d.display.(Resizer); ok {
		r.Resize(d.buffer.Width(), d.buffer.Height())
	}
	d.display.Clear()
	run := make([]byte, 0, d.buffer.Width())
	for row := 1; row <= d.buffer.Height(); row++ {
		start := 0
		run = run[:0]
		flush := func() {
			if len(run) > 0 {
				d.display.DisplayText(start, row, d.codec.ToDisplay(run))
				run = run[:0]
			}
		}
		for i, b := range d.buffer.Row(row) {
			if terminal.IsAttribute(b) {
				flush()
				d.display.DisplayAttribute(b)
				continue
			}
			if len(run) == 0 {
				start = i + 1
			}
			if b == 0x00 {
				b = terminal.Blank
			}
			run = append(run, b)
		}
		flush()
	}
	d.display.DisplayCursor(d.cursor.Column(), d.cursor.Row())
}
