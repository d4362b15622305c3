package gds

// Reader reads the payload of one record byte by byte. Reads past the end
// return 0 and latch ErrUnderrun instead of failing.
type Reader struct {
	data   []byte
	header Header
	pos    int
	err    error
}

// NewReader parses the header of record. An empty or truncated record gives
// a Reader that is already at its end and whose header is invalid.
func NewReader(record []byte) *Reader {
	h, ok := ParseHeader(record)
	if !ok {
		return &Reader{data: record, pos: len(record)}
	}
	return &Reader{data: record, header: h, pos: HeaderLength}
}

func (r *Reader) Header() Header { return r.header }

// IsValid reports whether the record type is the magic value and the declared
// length matches the bytes supplied.
func (r *Reader) IsValid() bool {
	return r.header.RecordType == RecordType && int(r.header.RecordLength) == len(r.data)
}

func (r *Reader) AtEnd() bool { return r.pos >= len(r.data) }

func (r *Reader) Remaining() int {
	if r.AtEnd() {
		return 0
	}
	return len(r.data) - r.pos
}

// Err returns ErrUnderrun once any read has run past the end.
func (r *Reader) Err() error { return r.err }

func (r *Reader) ReadUint8() byte {
	if r.AtEnd() {
		r.err = ErrUnderrun
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

// ReadUint16 reads a big-endian u16.
func (r *Reader) ReadUint16() uint16 {
	hi := r.ReadUint8()
	lo := r.ReadUint8()
	return uint16(hi)<<8 | uint16(lo)
}

// Skip advances over n bytes, stopping at the end.
func (r *Reader) Skip(n int) {
	for i := 0; i < n; i++ {
		r.ReadUint8()
	}
}

// SeekToPreviousByte steps back one byte. It never moves before the first
// payload byte.
func (r *Reader) SeekToPreviousByte() {
	start := HeaderLength
	if len(r.data) < HeaderLength {
		start = len(r.data)
	}
	if r.pos > start {
		r.pos--
	}
}

// Payload returns the bytes after the header.
func (r *Reader) Payload() []byte {
	if len(r.data) < HeaderLength {
		return nil
	}
	return r.data[HeaderLength:]
}
