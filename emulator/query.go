package emulator

import (
	"strings"

	"tn5250/gds"
)

// Device identity reported when the terminal type does not name one.
const (
	DefaultMachineType = "3477"
	DefaultModel       = "FC"
)

const queryReplyLength = 71

// ParseTerminalType splits a telnet terminal type such as "IBM-3477-FC" into
// machine type and model. ok is false when the string has no such shape.
func ParseTerminalType(terminalType string) (machine, model string, ok bool) {
	parts := strings.Split(strings.TrimSpace(terminalType), "-")
	if len(parts) != 3 || !strings.EqualFold(parts[0], "IBM") || len(parts[1]) != 4 || parts[2] == "" || len(parts[2]) > 3 {
		return "", "", false
	}
	return strings.ToUpper(parts[1]), strings.ToUpper(parts[2]), true
}

// queryReply builds the 5250 QUERY reply record. The layout is fixed by the
// host: cursor address, inbound WSF AID, reply length, class/type, controller
// and device descriptions.
func (d *Decoder) queryReply() []byte {
	p := make([]byte, queryReplyLength)
	copy(p, []byte{
		0x00, 0x00, // cursor row, column
		AIDQuery,
		0x00, 0x44, // length of the structured field
		sfClass5250, sfTypeQuery,
		0x80,             // flags
		0x06, 0x00,       // controller hardware class
		0x01, 0x01, 0x00, // controller code level
	})
	// 13..28 reserved
	p[29] = 0x01 // display emulation
	copy(p[30:34], d.identity(d.machine, 4))
	copy(p[34:37], d.identity(d.model, 3))
	p[37] = 0x02 // keyboard: standard
	// 38..43 extended keyboard id, reserved and serial number
	p[44] = 0x01 // maximum input fields, 256
	// 45..48
	p[49] = 0x23
	p[50] = 0x31
	// 51..70 reserved capability bytes

	record, _ := gds.Frame(p) // fixed size, always fits
	return record
}

// identity converts s to EBCDIC, left padded with '0' to width.
func (d *Decoder) identity(s string, width int) []byte {
	if len(s) > width {
		s = s[:width]
	}
	s = strings.Repeat("0", width-len(s)) + s
	return d.codec.FromDisplay(s)
}
