// Package gds frames and unframes General Data Stream records, the outer
// envelope of every 5250 data stream exchanged with the host.
//
// Record layout (big-endian):
//
//	u16 record length | u16 record type (0x12A0) | u16 reserved |
//	u8 variable header length (0x04) | u16 flags | u8 opcode | payload
package gds

import (
	"encoding/binary"
	"errors"
)

const (
	HeaderLength = 10
	RecordType   = 0x12A0
	VarHdrLen    = 0x04
	MaxRecord    = 0xFFFF
	MaxPayload   = MaxRecord - HeaderLength
)

// Opcodes carried in the header.
const (
	OpNoOp            byte = 0x00
	OpInvite          byte = 0x01
	OpOutputOnly      byte = 0x02
	OpPutGet          byte = 0x03
	OpSaveScreen      byte = 0x04
	OpRestoreScreen   byte = 0x05
	OpReadImmediate   byte = 0x06
	OpReadScreen      byte = 0x08
	OpCancelInvite    byte = 0x0A
	OpTurnOnMsgLight  byte = 0x0B
	OpTurnOffMsgLight byte = 0x0C
)

var opcodeNames = map[byte]string{
	OpNoOp:            "NO-OP",
	OpInvite:          "INVITE",
	OpOutputOnly:      "OUTPUT-ONLY",
	OpPutGet:          "PUT/GET",
	OpSaveScreen:      "SAVE-SCREEN",
	OpRestoreScreen:   "RESTORE-SCREEN",
	OpReadImmediate:   "READ-IMMEDIATE",
	OpReadScreen:      "READ-SCREEN",
	OpCancelInvite:    "CANCEL-INVITE",
	OpTurnOnMsgLight:  "MSG-LIGHT-ON",
	OpTurnOffMsgLight: "MSG-LIGHT-OFF",
}

// OpcodeName names a header opcode for traces.
func OpcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

var (
	// ErrUnderrun is reported by Reader.Err after a read past the end.
	ErrUnderrun = errors.New("gds: read past end of record")
	// ErrInvalidHeader marks a record whose type is not RecordType.
	ErrInvalidHeader = errors.New("gds: invalid record header")
	// ErrRecordTooLarge is returned by Writer once the payload would push the
	// record length past MaxRecord.
	ErrRecordTooLarge = errors.New("gds: record exceeds maximum length")
)

// Header is the fixed part of a record.
type Header struct {
	RecordLength  uint16
	RecordType    uint16
	ReservedBytes uint16
	VarHdrLen     uint8
	Flags         uint16
	Opcode        uint8
}

// ParseHeader decodes the first HeaderLength bytes of data. ok is false when
// data is too short, in which case the zero Header is returned.
func ParseHeader(data []byte) (h Header, ok bool) {
	if len(data) < HeaderLength {
		return Header{}, false
	}
	h.RecordLength = binary.BigEndian.Uint16(data[0:2])
	h.RecordType = binary.BigEndian.Uint16(data[2:4])
	h.ReservedBytes = binary.BigEndian.Uint16(data[4:6])
	h.VarHdrLen = data[6]
	h.Flags = binary.BigEndian.Uint16(data[7:9])
	h.Opcode = data[9]
	return h, true
}

// AppendTo serializes h onto dst.
func (h Header) AppendTo(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint16(dst, h.RecordLength)
	dst = binary.BigEndian.AppendUint16(dst, h.RecordType)
	dst = binary.BigEndian.AppendUint16(dst, h.ReservedBytes)
	dst = append(dst, h.VarHdrLen)
	dst = binary.BigEndian.AppendUint16(dst, h.Flags)
	return append(dst, h.Opcode)
}
