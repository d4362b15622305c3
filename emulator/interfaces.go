package emulator

// Display receives the result of an update pass.
type Display interface {
	Clear()
	DisplayText(column, row int, text string)
	DisplayAttribute(attr byte)
	DisplayCursor(column, row int)
}

// Resizer is implemented by displays that follow the host screen size.
// Update calls Resize before Clear.
type Resizer interface {
	Resize(columns, rows int)
}

// Transport sends one framed record to the host.
type Transport interface {
	WriteRecord(record []byte) error
}

// Codec converts between host bytes and display text, one rune per byte.
type Codec interface {
	ToDisplay(data []byte) string
	FromDisplay(text string) []byte
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(record []byte) error

func (f TransportFunc) WriteRecord(record []byte) error { return f(record) }
