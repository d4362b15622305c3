package gds

import "encoding/binary"

// Assembler cuts a stream of telnet data into whole records using the
// length field of each header. Partial records wait for more data.
type Assembler struct {
	buf []byte
}

// Write appends data to the pending stream.
func (a *Assembler) Write(p []byte) (int, error) {
	a.buf = append(a.buf, p...)
	return len(p), nil
}

// Buffered is the number of bytes waiting for a complete record.
func (a *Assembler) Buffered() int { return len(a.buf) }

// Next returns the next complete record. It returns nil, nil when more data
// is needed. A header with the wrong record type or an impossible length
// discards everything buffered and returns ErrInvalidHeader.
func (a *Assembler) Next() ([]byte, error) {
	if len(a.buf) < 4 {
		return nil, nil
	}
	length := int(binary.BigEndian.Uint16(a.buf[0:2]))
	recordType := binary.BigEndian.Uint16(a.buf[2:4])
	if recordType != RecordType || length < HeaderLength {
		a.buf = a.buf[:0]
		return nil, ErrInvalidHeader
	}
	if len(a.buf) < length {
		return nil, nil
	}
	record := make([]byte, length)
	copy(record, a.buf[:length])
	a.buf = append(a.buf[:0], a.buf[length:]...)
	return record, nil
}

// Reset drops any buffered bytes.
func (a *Assembler) Reset() { a.buf = a.buf[:0] }
