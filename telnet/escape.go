package telnet

import (
	"bytes"
	"io"
)

// EscapeIAC doubles every IAC byte so data can travel in binary mode.
func EscapeIAC(data []byte) []byte {
	n := bytes.Count(data, []byte{IAC})
	if n == 0 {
		return append([]byte(nil), data...)
	}
	out := make([]byte, 0, len(data)+n)
	for _, b := range data {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	return out
}

// UnescapeIAC collapses doubled IAC pairs.
func UnescapeIAC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == IAC && i+1 < len(data) && data[i+1] == IAC {
			i++
		}
	}
	return out
}

// RecordWriter sends each record escaped and terminated by IAC EOR.
type RecordWriter struct {
	w io.Writer
}

func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w}
}

// WriteRecord writes one framed record in a single call to the transport.
func (rw *RecordWriter) WriteRecord(record []byte) error {
	out := EscapeIAC(record)
	out = append(out, IAC, EOR)
	_, err := rw.w.Write(out)
	return err
}

// Write treats p as one complete record.
func (rw *RecordWriter) Write(p []byte) (int, error) {
	if err := rw.WriteRecord(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
