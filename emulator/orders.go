package emulator

// Escape introduces every command in a data stream.
const Escape byte = 0x04

// Commands following Escape.
const (
	CmdClearUnit            byte = 0x40
	CmdClearUnitAlternate   byte = 0x20
	CmdClearFormatTable     byte = 0x50
	CmdWriteToDisplay       byte = 0x11
	CmdReadMDTFields        byte = 0x52
	CmdWriteStructuredField byte = 0xF3
)

// Orders inside a WRITE TO DISPLAY command.
const (
	OrderSOH  byte = 0x01 // start of header
	OrderRA   byte = 0x02 // repeat to address
	OrderEA   byte = 0x03 // erase to address
	OrderTD   byte = 0x10 // transparent data
	OrderSBA  byte = 0x11 // set buffer address
	OrderWEA  byte = 0x12 // write extended attribute
	OrderIC   byte = 0x13 // insert cursor
	OrderMC   byte = 0x14 // move cursor
	OrderWDSF byte = 0x15 // write to display structured field
	OrderSF   byte = 0x1D // start of field
)

// Structured field identifiers.
const (
	sfClass5250 byte = 0xD9
	sfTypeQuery byte = 0x70
)

// Attention identifiers.
const (
	AIDEnter    byte = 0xF1
	AIDHelp     byte = 0xF3
	AIDRollDown byte = 0xF4
	AIDRollUp   byte = 0xF5
	AIDClear    byte = 0xBD
	AIDF1       byte = 0x31
	AIDQuery    byte = 0x88
)

var commandNames = map[byte]string{
	CmdClearUnit:            "CLEAR UNIT",
	CmdClearUnitAlternate:   "CLEAR UNIT ALTERNATE",
	CmdClearFormatTable:     "CLEAR FORMAT TABLE",
	CmdWriteToDisplay:       "WRITE TO DISPLAY",
	CmdReadMDTFields:        "READ MDT FIELDS",
	CmdWriteStructuredField: "WRITE STRUCTURED FIELD",
}

var orderNames = map[byte]string{
	OrderSOH:  "SOH",
	OrderRA:   "RA",
	OrderEA:   "EA",
	OrderTD:   "TD",
	OrderSBA:  "SBA",
	OrderWEA:  "WEA",
	OrderIC:   "IC",
	OrderMC:   "MC",
	OrderWDSF: "WDSF",
	OrderSF:   "SF",
}

// CommandName returns the name of a command byte for logs and tools.
func CommandName(cmd byte) string {
	if name, ok := commandNames[cmd]; ok {
		return name
	}
	return "UNKNOWN"
}

// OrderName returns the mnemonic of an order byte.
func OrderName(order byte) string {
	if name, ok := orderNames[order]; ok {
		return name
	}
	return "DATA"
}
