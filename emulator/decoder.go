// Package emulator decodes 5250 data streams into the display model and
// turns keystrokes into records for the host.
//
// A Decoder is single-threaded: DataReceived and HandleKey must not run
// concurrently. Each call ends with an update pass that redraws the whole
// screen through the Display.
package emulator

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"tn5250/codec"
	"tn5250/gds"
	"tn5250/terminal"
)

// ErrInvalidRecord is returned for records whose GDS header does not check out.
var ErrInvalidRecord = errors.New("emulator: invalid GDS record")

const (
	alternateColumns = 132
	alternateRows    = 27
)

// Options configures a Decoder. Every field is optional.
type Options struct {
	Display   Display
	Transport Transport
	Codec     Codec
	// MachineType and Model are reported in the query reply, e.g. "3477" and "FC".
	MachineType string
	Model       string
	Debug       bool
}

// Decoder is the 5250 state machine: it owns the screen buffer, the format
// table and the cursor.
type Decoder struct {
	buffer    *terminal.ScreenBuffer
	fields    terminal.FieldTable
	cursor    *terminal.Cursor
	display   Display
	transport Transport
	codec     Codec
	machine   string
	model     string
	debug     bool

	insertCursor bool
	lastCC       [2]byte
}

// New returns a decoder with a cleared 80x25 screen.
func New(opts Options) *Decoder {
	c := opts.Codec
	if c == nil {
		c, _ = codec.Lookup(codec.DefaultCodePage)
	}
	machine, model := opts.MachineType, opts.Model
	if machine == "" {
		machine = DefaultMachineType
	}
	if model == "" {
		model = DefaultModel
	}
	return &Decoder{
		buffer:    terminal.NewScreenBuffer(),
		cursor:    terminal.NewCursor(),
		display:   opts.Display,
		transport: opts.Transport,
		codec:     c,
		machine:   machine,
		model:     model,
		debug:     opts.Debug,
	}
}

func (d *Decoder) Buffer() *terminal.ScreenBuffer { return d.buffer }
func (d *Decoder) Fields() *terminal.FieldTable   { return &d.fields }
func (d *Decoder) Cursor() *terminal.Cursor       { return d.cursor }

// SetDisplay swaps the display collaborator.
func (d *Decoder) SetDisplay(display Display) { d.display = display }

// SetTransport swaps the transport, e.g. after a reconnect.
func (d *Decoder) SetTransport(t Transport) { d.transport = t }

func (d *Decoder) SetDebug(enabled bool) { d.debug = enabled }

// DataReceived decodes one GDS record and redraws the screen. Records with
// an invalid header are dropped. Unknown commands and orders are skipped;
// reads past the end of the record yield zero bytes.
func (d *Decoder) DataReceived(record []byte) error {
	r := gds.NewReader(record)
	if !r.IsValid() {
		h := r.Header()
		return fmt.Errorf("%w: type=%#04x length=%d actual=%d", ErrInvalidRecord, h.RecordType, h.RecordLength, len(record))
	}
	var sendErr error
	for !r.AtEnd() {
		b := r.ReadUint8()
		if b != Escape {
			d.tracef("data byte %#02x outside command", b)
			continue
		}
		cmd := r.ReadUint8()
		d.tracef("ESC %s (%#02x)", CommandName(cmd), cmd)
		switch cmd {
		case CmdClearUnit:
			d.clearUnit(terminal.DefaultColumns, terminal.DefaultRows)
		case CmdClearUnitAlternate:
			r.ReadUint8()
			d.clearUnit(alternateColumns, alternateRows)
		case CmdClearFormatTable:
			d.fields.Clear()
		case CmdWriteToDisplay:
			d.writeToDisplay(r)
		case CmdReadMDTFields:
			d.lastCC[0], d.lastCC[1] = r.ReadUint8(), r.ReadUint8()
		case CmdWriteStructuredField:
			if err := d.writeStructuredField(r); err != nil && sendErr == nil {
				sendErr = err
			}
		default:
			d.tracef("unknown command %#02x ignored", cmd)
		}
	}
	if r.Err() != nil {
		d.tracef("record truncated: %v", r.Err())
	}
	d.Update()
	return sendErr
}

func (d *Decoder) clearUnit(columns, rows int) {
	d.buffer.SetSize(columns, rows)
	d.fields.Clear()
	d.cursor.SetDisplaySize(columns, rows)
	d.cursor.SetPosition(1, 1)
	d.insertCursor = false
}

// writeToDisplay runs the order loop until the next Escape, which is pushed
// back for the command loop.
func (d *Decoder) writeToDisplay(r *gds.Reader) {
	d.lastCC[0], d.lastCC[1] = r.ReadUint8(), r.ReadUint8()
	d.insertCursor = false
	defer d.homeCursor()

	for !r.AtEnd() {
		b := r.ReadUint8()
		switch b {
		case Escape:
			r.SeekToPreviousByte()
			return
		case OrderSOH:
			length := int(r.ReadUint8())
			d.fields.Clear()
			r.Skip(length)
			d.tracef("SOH length=%d", length)
		case OrderRA:
			row, column, ch := int(r.ReadUint8()), int(r.ReadUint8()), r.ReadUint8()
			n := d.buffer.RepeatCharacterToAddress(column, row, ch)
			d.tracef("RA to (%d,%d) char=%#02x cells=%d", column, row, ch, n)
		case OrderEA:
			row, column := int(r.ReadUint8()), int(r.ReadUint8())
			length := int(r.ReadUint8())
			r.Skip(length - 1)
			d.buffer.ClearToAddress(column, row)
		case OrderTD:
			length := int(r.ReadUint16())
			for i := 0; i < length && !r.AtEnd(); i++ {
				d.buffer.SetCharacter(r.ReadUint8())
			}
		case OrderSBA:
			row, column := int(r.ReadUint8()), int(r.ReadUint8())
			d.buffer.SetBufferAddress(column, row)
			d.tracef("SBA (%d,%d)", column, row)
		case OrderWEA:
			r.Skip(2)
		case OrderIC, OrderMC:
			row, column := int(r.ReadUint8()), int(r.ReadUint8())
			d.cursor.SetPosition(column, row)
			d.insertCursor = true
			d.tracef("%s (%d,%d)", OrderName(b), column, row)
		case OrderWDSF:
			length := int(r.ReadUint16())
			r.Skip(length - 2)
		case OrderSF:
			d.startOfField(r)
		default:
			d.buffer.SetCharacter(b)
		}
	}
}

// startOfField decodes SF: an input field carries a two byte format word,
// optional field control word pairs and then the attribute; any other field
// starts directly with its attribute. A two byte length follows.
func (d *Decoder) startOfField(r *gds.Reader) {
	ffw0 := r.ReadUint8()
	var format uint16
	attr := ffw0
	if uint16(ffw0)<<8&terminal.InputFieldMask == terminal.InputFieldPattern {
		ffw1 := r.ReadUint8()
		format = uint16(ffw0)<<8 | uint16(ffw1)
		attr = r.ReadUint8()
		for !terminal.IsAttribute(attr) && !r.AtEnd() {
			r.ReadUint8()
			attr = r.ReadUint8()
		}
	}
	length := int(r.ReadUint16())
	if limit := d.buffer.Width() * d.buffer.Height(); length > limit {
		d.tracef("SF length %d clamped to %d", length, limit)
		length = limit
	}

	f := terminal.NewField(format, attr, length)
	d.buffer.AddField(&f)
	if f.IsInputField() {
		d.fields.Append(f)
	}
	d.tracef("SF format=%#04x attr=%#02x length=%d at (%d,%d) input=%v", format, attr, length, f.StartColumn, f.StartRow, f.IsInputField())
}

// homeCursor places the cursor in the first input field when the host did
// not position it and it is not already inside one.
func (d *Decoder) homeCursor() {
	if d.insertCursor || d.fields.IsEmpty() {
		return
	}
	if id := d.fields.FieldAt(d.cursor, d.buffer.Width()); id != terminal.NoField {
		return
	}
	if f := d.fields.Field(d.fields.FirstInputField()); f != nil {
		d.cursor.SetPosition(f.StartColumn, f.StartRow)
	}
}

func (d *Decoder) writeStructuredField(r *gds.Reader) error {
	length := int(r.ReadUint16())
	class, kind, flags := r.ReadUint8(), r.ReadUint8(), r.ReadUint8()
	d.tracef("WSF length=%d class=%#02x type=%#02x flags=%#02x", length, class, kind, flags)
	r.Skip(length - 5)
	if class == sfClass5250 && kind == sfTypeQuery {
		return d.send(d.queryReply())
	}
	return nil
}

func (d *Decoder) send(record []byte) error {
	if d.transport == nil {
		return nil
	}
	if err := d.transport.WriteRecord(record); err != nil {
		return fmt.Errorf("emulator: send record: %w", err)
	}
	return nil
}

// Snapshot returns the screen as text rows, attributes shown as blanks.
func (d *Decoder) Snapshot() []string {
	rows := make([]string, 0, d.buffer.Height())
	for row := 1; row <= d.buffer.Height(); row++ {
		raw := d.buffer.Row(row)
		for i, b := range raw {
			if b == 0x00 || terminal.IsAttribute(b) {
				raw[i] = terminal.Blank
			}
		}
		rows = append(rows, strings.TrimRight(d.codec.ToDisplay(raw), " "))
	}
	return rows
}

func (d *Decoder) tracef(format string, args ...any) {
	if d.debug {
		log.Printf("Emulator: "+format, args...)
	}
}
