package emulator

import (
	"fmt"
	"unicode"

	"tn5250/gds"
	"tn5250/terminal"
)

// Key identifies a non-character key.
type Key int

const (
	KeyRune Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyTab
	KeyBackspace
	KeyPageUp
	KeyPageDown
	KeyHelp
	KeyClear
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

// KeyEvent is one keystroke. Rune is used when Key is KeyRune.
type KeyEvent struct {
	Key  Key
	Rune rune
}

// aidFor returns the AID byte for a key and whether modified fields travel
// with it.
func aidFor(k Key) (aid byte, withFields bool, ok bool) {
	switch {
	case k == KeyEnter:
		return AIDEnter, true, true
	case k >= KeyF1 && k <= KeyF12:
		return AIDF1 + byte(k-KeyF1), true, true
	case k == KeyPageUp:
		return AIDRollDown, true, true
	case k == KeyPageDown:
		return AIDRollUp, true, true
	case k == KeyHelp:
		return AIDHelp, false, true
	case k == KeyClear:
		return AIDClear, false, true
	}
	return 0, false, false
}

// HandleKey applies one keystroke and redraws the screen. Keys that produce
// an AID send a record through the transport.
func (d *Decoder) HandleKey(ev KeyEvent) error {
	var err error
	switch ev.Key {
	case KeyUp:
		d.cursor.MoveUp()
	case KeyDown:
		d.cursor.MoveDown()
	case KeyLeft:
		d.cursor.MoveLeft()
	case KeyRight:
		d.cursor.MoveRight()
	case KeyTab:
		if f := d.fields.Field(d.fields.NextInputField(d.cursor, d.buffer.Width())); f != nil {
			d.cursor.SetPosition(f.StartColumn, f.StartRow)
		}
	case KeyBackspace:
		d.backspace()
	case KeyRune:
		d.typeRune(ev.Rune)
	default:
		if aid, withFields, ok := aidFor(ev.Key); ok {
			var record []byte
			if record, err = d.submission(aid, withFields); err == nil {
				err = d.send(record)
			}
		}
	}
	d.Update()
	return err
}

// editableField returns the non-bypass input field under the cursor.
func (d *Decoder) editableField() *terminal.Field {
	f := d.fields.Field(d.fields.FieldAt(d.cursor, d.buffer.Width()))
	if f == nil || !f.IsInputField() || f.IsBypassField() {
		return nil
	}
	return f
}

func (d *Decoder) typeRune(r rune) {
	f := d.editableField()
	if f == nil || !unicode.IsPrint(r) {
		return
	}
	if f.IsUppercase() {
		r = unicode.ToUpper(r)
	}
	encoded := d.codec.FromDisplay(string(r))
	if len(encoded) == 0 {
		return
	}
	d.writeFieldCell(f, encoded[0])
	d.cursor.MoveRight()
}

func (d *Decoder) backspace() {
	f := d.editableField()
	if f == nil {
		d.cursor.MoveLeft()
		return
	}
	if d.cursor.Address(d.buffer.Width()) == f.StartAddress(d.buffer.Width()) {
		return
	}
	d.cursor.MoveLeft()
	d.writeFieldCell(f, terminal.Blank)
}

// writeFieldCell stores ch at the cursor in both the screen and the field.
// The first edit seeds the field content from what the host put on screen.
func (d *Decoder) writeFieldCell(f *terminal.Field, ch byte) {
	width := d.buffer.Width()
	if !f.IsModified() {
		seed := d.buffer.FieldContent(f)
		for i := range f.Content {
			f.Content[i] = terminal.Blank
		}
		copy(f.Content, seed)
	}
	offset := d.cursor.Address(width) - f.StartAddress(width)
	if offset < 0 || offset >= len(f.Content) {
		return
	}
	d.buffer.SetCharacterAt(d.cursor.Column(), d.cursor.Row(), ch)
	f.Content[offset] = ch
	f.MarkModified()
}

// submission builds the inbound record for an AID key: cursor row and
// column, the AID, then an SBA block per modified field. Fields that would
// overflow the record are not sent.
func (d *Decoder) submission(aid byte, withFields bool) ([]byte, error) {
	w := gds.NewWriter()
	_ = w.WriteByte(byte(d.cursor.Row()))
	_ = w.WriteByte(byte(d.cursor.Column()))
	_ = w.WriteByte(aid)
	if withFields {
		d.fields.Each(func(_ terminal.FieldID, f *terminal.Field) {
			if !f.IsModified() {
				return
			}
			_ = w.WriteByte(OrderSBA)
			_ = w.WriteByte(byte(f.StartRow))
			_ = w.WriteByte(byte(f.StartColumn))
			_, _ = w.Write(f.Content)
		})
	}
	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("emulator: submission: %w", err)
	}
	return w.Bytes(), nil
}
