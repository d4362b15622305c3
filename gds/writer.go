package gds

// Writer accumulates a payload and frames it with a fresh header. The payload
// never grows past MaxPayload; writes that would overflow the u16 record
// length are refused and latch ErrRecordTooLarge.
type Writer struct {
	buf    []byte
	opcode byte
	err    error
}

func NewWriter() *Writer {
	return &Writer{}
}

// SetOpcode sets the header opcode. The default is OpNoOp.
func (w *Writer) SetOpcode(op byte) { w.opcode = op }

// Err returns ErrRecordTooLarge once any write has been refused.
func (w *Writer) Err() error { return w.err }

func (w *Writer) room(n int) bool {
	if len(w.buf)+n > MaxPayload {
		w.err = ErrRecordTooLarge
		return false
	}
	return true
}

func (w *Writer) WriteByte(b byte) error {
	if !w.room(1) {
		return ErrRecordTooLarge
	}
	w.buf = append(w.buf, b)
	return nil
}

func (w *Writer) WriteUint16(v uint16) error {
	if !w.room(2) {
		return ErrRecordTooLarge
	}
	w.buf = append(w.buf, byte(v>>8), byte(v))
	return nil
}

// Write appends p whole or not at all.
func (w *Writer) Write(p []byte) (int, error) {
	if !w.room(len(p)) {
		return 0, ErrRecordTooLarge
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the framed record: header followed by the payload.
func (w *Writer) Bytes() []byte {
	h := Header{
		RecordLength: uint16(HeaderLength + len(w.buf)),
		RecordType:   RecordType,
		VarHdrLen:    VarHdrLen,
		Opcode:       w.opcode,
	}
	out := h.AppendTo(make([]byte, 0, HeaderLength+len(w.buf)))
	return append(out, w.buf...)
}

// Frame wraps payload in a record with a zero opcode. A payload longer than
// MaxPayload is refused.
func Frame(payload []byte) ([]byte, error) {
	w := NewWriter()
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
