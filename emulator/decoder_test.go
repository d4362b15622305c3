package emulator

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tn5250/gds"
	"tn5250/terminal"
)

type recordingDisplay struct {
	events []string
}

func (r *recordingDisplay) Clear() { r.events = append(r.events, "clear") }
func (r *recordingDisplay) DisplayText(column, row int, text string) {
	r.events = append(r.events, fmt.Sprintf("text %d,%d %q", column, row, text))
}
func (r *recordingDisplay) DisplayAttribute(attr byte) {
	r.events = append(r.events, fmt.Sprintf("attr %#02x", attr))
}
func (r *recordingDisplay) DisplayCursor(column, row int) {
	r.events = append(r.events, fmt.Sprintf("cursor %d,%d", column, row))
}

type recordingTransport struct {
	records [][]byte
	err     error
}

func (r *recordingTransport) WriteRecord(record []byte) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, append([]byte(nil), record...))
	return nil
}

func newTestDecoder() (*Decoder, *recordingDisplay, *recordingTransport) {
	display := &recordingDisplay{}
	transport := &recordingTransport{}
	d := New(Options{Display: display, Transport: transport})
	return d, display, transport
}

// wtd wraps orders in ESC WRITE TO DISPLAY with zero control characters.
func wtd(orders ...byte) []byte {
	return append([]byte{Escape, CmdWriteToDisplay, 0x00, 0x00}, orders...)
}

func frame(t *testing.T, payload []byte) []byte {
	t.Helper()
	record, err := gds.Frame(payload)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return record
}

func mustReceive(t *testing.T, d *Decoder, payload []byte) {
	t.Helper()
	if err := d.DataReceived(frame(t, payload)); err != nil {
		t.Fatalf("DataReceived: %v", err)
	}
}

func TestClearUnitResetsModel(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, []byte{Escape, CmdClearUnitAlternate, 0x00})
	mustReceive(t, d, wtd(OrderSBA, 3, 3, OrderSF, 0x40, 0x00, 0x24, 0x00, 0x05, OrderIC, 4, 9))
	if d.Fields().IsEmpty() {
		t.Fatalf("expected a field before clear")
	}

	mustReceive(t, d, []byte{Escape, CmdClearUnit})
	if d.Buffer().Width() != 80 || d.Buffer().Height() != 25 {
		t.Fatalf("expected 80x25, got %dx%d", d.Buffer().Width(), d.Buffer().Height())
	}
	if !d.Fields().IsEmpty() {
		t.Fatalf("expected empty field table")
	}
	if d.Cursor().Column() != 1 || d.Cursor().Row() != 1 {
		t.Fatalf("expected cursor (1,1), got (%d,%d)", d.Cursor().Column(), d.Cursor().Row())
	}
	if bytes.Count(d.Buffer().Bytes(), []byte{0}) != 80*25 {
		t.Fatalf("expected cleared buffer")
	}
}

func TestClearUnitAlternateUses132Columns(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, []byte{Escape, CmdClearUnitAlternate, 0x00})
	if d.Buffer().Width() != 132 || d.Buffer().Height() != 27 {
		t.Fatalf("expected 132x27, got %dx%d", d.Buffer().Width(), d.Buffer().Height())
	}
}

func TestSetBufferAddressThenCharacters(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSBA, 2, 15, 0xC1, 0xC2))

	b := d.Buffer()
	if b.CharacterAt(15, 2) != 0xC1 || b.CharacterAt(16, 2) != 0xC2 {
		t.Fatalf("expected A,B at (15,2),(16,2), got %#x,%#x", b.CharacterAt(15, 2), b.CharacterAt(16, 2))
	}
	if col, row := b.BufferAddress(); col != 17 || row != 2 {
		t.Fatalf("expected address (17,2), got (%d,%d)", col, row)
	}
}

func TestStartOfInputField(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSBA, 5, 10, OrderSF, 0x40, 0x00, 0x24, 0x00, 0x05))

	fields := d.Fields()
	if fields.Len() != 1 {
		t.Fatalf("expected 1 field, got %d", fields.Len())
	}
	f := fields.Field(0)
	if !f.IsInputField() {
		t.Fatalf("expected input field")
	}
	if !bytes.Equal(f.Content, bytes.Repeat([]byte{terminal.Blank}, 5)) {
		t.Fatalf("content = % x, want five blanks", f.Content)
	}
	if f.Attribute != 0x24 || f.Length != 5 || f.StartColumn != 11 || f.StartRow != 5 {
		t.Fatalf("unexpected field %+v", *f)
	}
	if d.Buffer().CharacterAt(10, 5) != 0x24 {
		t.Fatalf("field attribute not on screen")
	}
}

func TestStartOfFieldLengthClampedToScreen(t *testing.T) {
	d, _, transport := newTestDecoder()
	mustReceive(t, d, wtd(OrderSBA, 1, 1, OrderSF, 0x40, 0x00, 0x24, 0xFF, 0xF0))
	limit := d.Buffer().Width() * d.Buffer().Height()
	f := d.Fields().Field(0)
	if f == nil || f.Length != limit || len(f.Content) != limit {
		t.Fatalf("expected field length clamped to %d, got %+v", limit, f)
	}

	typeText(t, d, "A")
	if err := d.HandleKey(KeyEvent{Key: KeyEnter}); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if len(transport.records) != 1 {
		t.Fatalf("expected one record, got %d", len(transport.records))
	}
	r := gds.NewReader(transport.records[0])
	if !r.IsValid() || len(r.Payload()) != 6+limit {
		t.Fatalf("submission valid=%v payload=%d bytes", r.IsValid(), len(r.Payload()))
	}
}

func TestStartOfOutputFieldNotInTable(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSBA, 1, 1, OrderSF, 0x22, 0x00, 0x03))
	if !d.Fields().IsEmpty() {
		t.Fatalf("output field appended to table")
	}
	if d.Buffer().CharacterAt(1, 1) != 0x22 {
		t.Fatalf("expected attribute 0x22 at (1,1)")
	}
}

func TestStartOfFieldSkipsControlWords(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSF, 0x40, 0x00, 0x81, 0x00, 0x24, 0x00, 0x04, 0xC1))
	f := d.Fields().Field(0)
	if f == nil || f.Attribute != 0x24 || f.Length != 4 {
		t.Fatalf("unexpected field %+v", f)
	}
	if col, row := d.Buffer().BufferAddress(); col != 8 || row != 1 {
		t.Fatalf("expected address (8,1) after field and data, got (%d,%d)", col, row)
	}
}

func TestRepeatToAddress(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSBA, 3, 1, OrderRA, 3, 10, 0x60))
	for col := 1; col <= 10; col++ {
		if d.Buffer().CharacterAt(col, 3) != 0x60 {
			t.Fatalf("cell (%d,3) not filled", col)
		}
	}
	if d.Buffer().CharacterAt(11, 3) != 0x00 {
		t.Fatalf("fill went past target")
	}
}

func TestStartOfHeaderClearsFields(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSF, 0x40, 0x00, 0x24, 0x00, 0x02))
	mustReceive(t, d, wtd(OrderSOH, 0x03, 0x00, 0x00, 0x00, OrderSBA, 1, 1, 0xC1))
	if !d.Fields().IsEmpty() {
		t.Fatalf("SOH did not clear the field table")
	}
	if d.Buffer().CharacterAt(1, 1) != 0xC1 {
		t.Fatalf("SOH header bytes not skipped correctly")
	}
}

func TestEscapeEndsWriteToDisplay(t *testing.T) {
	d, _, _ := newTestDecoder()
	payload := append(wtd(OrderSBA, 1, 1, 0xC1), Escape, CmdClearUnit)
	mustReceive(t, d, payload)
	if d.Buffer().CharacterAt(1, 1) != 0x00 {
		t.Fatalf("CLEAR UNIT after WTD was not processed")
	}
}

func TestInsertCursorOrder(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSF, 0x40, 0x00, 0x24, 0x00, 0x02, OrderIC, 7, 20))
	if d.Cursor().Column() != 20 || d.Cursor().Row() != 7 {
		t.Fatalf("expected cursor (20,7), got (%d,%d)", d.Cursor().Column(), d.Cursor().Row())
	}
}

func TestCursorHomesToFirstInputField(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSBA, 6, 30, OrderSF, 0x40, 0x00, 0x24, 0x00, 0x08))
	if d.Cursor().Column() != 31 || d.Cursor().Row() != 6 {
		t.Fatalf("expected cursor (31,6), got (%d,%d)", d.Cursor().Column(), d.Cursor().Row())
	}
}

func TestQueryReply(t *testing.T) {
	d, _, transport := newTestDecoder()
	mustReceive(t, d, []byte{Escape, CmdWriteStructuredField, 0x00, 0x05, 0xD9, 0x70, 0x00})

	if len(transport.records) != 1 {
		t.Fatalf("expected one reply, got %d", len(transport.records))
	}
	r := gds.NewReader(transport.records[0])
	if !r.IsValid() {
		t.Fatalf("reply is not a valid record")
	}
	payload := r.Payload()
	if len(payload) != 71 {
		t.Fatalf("expected 71 byte reply, got %d", len(payload))
	}
	prefix := []byte{0x00, 0x00, 0x88, 0x00, 0x44, 0xD9, 0x70, 0x80, 0x06, 0x00, 0x01, 0x01, 0x00}
	if !bytes.Equal(payload[:13], prefix) {
		t.Fatalf("prefix = % x, want % x", payload[:13], prefix)
	}
	if !bytes.Equal(payload[13:29], make([]byte, 16)) || payload[29] != 0x01 {
		t.Fatalf("reserved block or device byte wrong: % x", payload[13:30])
	}
	if want := []byte{0xF3, 0xF4, 0xF7, 0xF7, 0xF0, 0xC6, 0xC3}; !bytes.Equal(payload[30:37], want) {
		t.Fatalf("device id = % x, want % x", payload[30:37], want)
	}
	tail := []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x23, 0x31}
	if !bytes.Equal(payload[37:51], tail) {
		t.Fatalf("capabilities = % x, want % x", payload[37:51], tail)
	}
	if !bytes.Equal(payload[51:], make([]byte, 20)) {
		t.Fatalf("expected zero padding, got % x", payload[51:])
	}
}

func TestQueryReplyUsesConfiguredDevice(t *testing.T) {
	transport := &recordingTransport{}
	d := New(Options{Transport: transport, MachineType: "3179", Model: "2"})
	mustReceive(t, d, []byte{Escape, CmdWriteStructuredField, 0x00, 0x05, 0xD9, 0x70, 0x00})
	payload := gds.NewReader(transport.records[0]).Payload()
	if want := []byte{0xF3, 0xF1, 0xF7, 0xF9, 0xF0, 0xF0, 0xF2}; !bytes.Equal(payload[30:37], want) {
		t.Fatalf("device id = % x, want % x", payload[30:37], want)
	}
}

func TestOtherStructuredFieldsSkipped(t *testing.T) {
	d, _, transport := newTestDecoder()
	mustReceive(t, d, []byte{Escape, CmdWriteStructuredField, 0x00, 0x07, 0xD9, 0x50, 0x00, 0xAA, 0xBB, Escape, CmdClearUnit})
	if len(transport.records) != 0 {
		t.Fatalf("unexpected reply")
	}
}

func TestQueryReplyTransportError(t *testing.T) {
	d, _, transport := newTestDecoder()
	transport.err = errors.New("broken pipe")
	err := d.DataReceived(frame(t, []byte{Escape, CmdWriteStructuredField, 0x00, 0x05, 0xD9, 0x70, 0x00}))
	if err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestReadMDTFieldsConsumesControlBytes(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, append([]byte{Escape, CmdReadMDTFields, 0x00, 0x00}, wtd(0xC1)...))
	if d.Buffer().CharacterAt(1, 1) != 0xC1 {
		t.Fatalf("command after READ MDT FIELDS not decoded")
	}
}

func TestInvalidRecordRejected(t *testing.T) {
	d, _, _ := newTestDecoder()
	record := frame(t, wtd(0xC1))
	record[2] = 0x00
	if err := d.DataReceived(record); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if d.Buffer().CharacterAt(1, 1) != 0x00 {
		t.Fatalf("invalid record was decoded")
	}
}

func TestTruncatedRecordDoesNotPanic(t *testing.T) {
	d, _, _ := newTestDecoder()
	inputs := [][]byte{
		{Escape},
		{Escape, CmdWriteToDisplay},
		wtd(OrderSBA, 2),
		wtd(OrderSF, 0x40),
		wtd(OrderRA, 1),
		{Escape, CmdWriteStructuredField, 0x00},
	}
	for _, in := range inputs {
		if err := d.DataReceived(frame(t, in)); err != nil {
			t.Fatalf("% x: unexpected error %v", in, err)
		}
	}
}

func TestUpdateEventOrder(t *testing.T) {
	d, display, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSBA, 1, 1, 0x22, 0xC1, 0xC2, 0x20))

	ev := display.events
	if len(ev) != 30 {
		t.Fatalf("expected 30 events, got %d: %v", len(ev), ev)
	}
	want := []string{
		"clear",
		"attr 0x22",
		`text 2,1 "AB"`,
		"attr 0x20",
		fmt.Sprintf("text 5,1 %q", strings.Repeat(" ", 76)),
		fmt.Sprintf("text 1,2 %q", strings.Repeat(" ", 80)),
	}
	for i, w := range want {
		if ev[i] != w {
			t.Fatalf("event %d = %s, want %s", i, ev[i], w)
		}
	}
	if ev[len(ev)-1] != "cursor 1,1" {
		t.Fatalf("last event = %s, want cursor", ev[len(ev)-1])
	}
}

func TestSnapshot(t *testing.T) {
	d, _, _ := newTestDecoder()
	mustReceive(t, d, wtd(OrderSBA, 2, 3, 0x22, 0xC8, 0xC9))
	rows := d.Snapshot()
	if len(rows) != 25 {
		t.Fatalf("expected 25 rows, got %d", len(rows))
	}
	if rows[1] != "   HI" {
		t.Fatalf("row 2 = %q, want %q", rows[1], "   HI")
	}
	if rows[0] != "" {
		t.Fatalf("row 1 = %q, want empty", rows[0])
	}
}

func TestParseTerminalType(t *testing.T) {
	tests := []struct {
		in      string
		machine string
		model   string
		ok      bool
	}{
		{in: "IBM-3477-FC", machine: "3477", model: "FC", ok: true},
		{in: "ibm-3179-2", machine: "3179", model: "2", ok: true},
		{in: "UNKNOWN"},
		{in: "IBM-31-2"},
	}
	for _, tc := range tests {
		machine, model, ok := ParseTerminalType(tc.in)
		if ok != tc.ok || machine != tc.machine || model != tc.model {
			t.Fatalf("%q: got (%q,%q,%v)", tc.in, machine, model, ok)
		}
	}
}
