// Package telnet implements the client side of the Telnet negotiation used
// by 5250 hosts (RFC 854, RFC 856, RFC 885, RFC 1091, RFC 1572).
//
// The Engine separates host data from IAC commands, answers option
// negotiation for the small set of options a 5250 session needs, and states
// the terminal type when asked. Outbound records are escaped and closed with
// IAC EOR by RecordWriter.
package telnet

// Telnet protocol IAC (Interpret As Command) constants.
//
//   - IAC: Introduces a telnet command sequence
//   - DO/DONT: Ask the peer to enable/disable an option
//   - WILL/WONT: Offer/refuse to enable an option
//   - SB/SE: Bracket a sub-negotiation
const (
	IAC  = 255 // Interpret As Command - starts telnet command sequence
	DONT = 254 // Request peer to disable an option
	DO   = 253 // Request peer to enable an option
	WONT = 252 // Refuse to enable an option
	WILL = 251 // Agree to enable an option
	SB   = 250 // Subnegotiation begins
	GA   = 249 // Go ahead
	EL   = 248 // Erase line
	EC   = 247 // Erase character
	AYT  = 246 // Are you there
	AO   = 245 // Abort output
	IP   = 244 // Interrupt process
	BRK  = 243 // Break
	DM   = 242 // Data mark
	NOP  = 241 // No operation
	SE   = 240 // Subnegotiation ends
	EOR  = 239 // End of record (RFC 885)
)

// Options.
const (
	OptTransmitBinary  = 0
	OptEcho            = 1
	OptSuppressGoAhead = 3
	OptStatus          = 5
	OptLogout          = 18
	OptTerminalType    = 24
	OptEndOfRecord     = 25
	OptNAWS            = 31
	OptNewEnviron      = 39
)

// Sub-negotiation commands.
const (
	SubIS   = 0
	SubSEND = 1
)

// CommandNames maps command bytes to their RFC names for logging.
var CommandNames = map[byte]string{
	IAC:  "IAC",
	DONT: "DONT",
	DO:   "DO",
	WONT: "WONT",
	WILL: "WILL",
	SB:   "SB",
	GA:   "GA",
	EL:   "EL",
	EC:   "EC",
	AYT:  "AYT",
	AO:   "AO",
	IP:   "IP",
	BRK:  "BRK",
	DM:   "DM",
	NOP:  "NOP",
	SE:   "SE",
	EOR:  "EOR",
}

// OptionNames maps option bytes to their RFC names for logging.
var OptionNames = map[byte]string{
	OptTransmitBinary:  "TRANSMIT-BINARY",
	OptEcho:            "ECHO",
	OptSuppressGoAhead: "SUPPRESS-GO-AHEAD",
	OptStatus:          "STATUS",
	OptLogout:          "LOGOUT",
	OptTerminalType:    "TERMINAL-TYPE",
	OptEndOfRecord:     "END-OF-RECORD",
	OptNAWS:            "NAWS",
	OptNewEnviron:      "NEW-ENVIRON",
}

func commandName(b byte) string {
	if name, ok := CommandNames[b]; ok {
		return name
	}
	return "UNKNOWN"
}

func optionName(b byte) string {
	if name, ok := OptionNames[b]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsOptionSupported reports whether the engine accepts opt.
func IsOptionSupported(opt byte) bool {
	switch opt {
	case OptTransmitBinary, OptTerminalType, OptEndOfRecord, OptNewEnviron:
		return true
	}
	return false
}

// replyFor returns the answer to a negotiation command.
func replyFor(cmd byte, supported bool) byte {
	switch cmd {
	case DO:
		if supported {
			return WILL
		}
		return WONT
	case DONT:
		return WONT
	case WILL:
		if supported {
			return DO
		}
		return DONT
	default:
		return DONT
	}
}
