package ui

import (
	"tn5250/emulator"
)

const (
	keyCtrlC     = 0x03
	keyBackspace = 0x08
	keyTab       = 0x09
	keyLF        = 0x0A
	keyCR        = 0x0D
	keyEsc       = 0x1B
	keyDelete    = 0x7F
)

// escapeKeys maps the tails of common VT100/xterm escape sequences.
var escapeKeys = map[string]emulator.Key{
	"[A":   emulator.KeyUp,
	"[B":   emulator.KeyDown,
	"[C":   emulator.KeyRight,
	"[D":   emulator.KeyLeft,
	"[5~":  emulator.KeyPageUp,
	"[6~":  emulator.KeyPageDown,
	"OP":   emulator.KeyF1,
	"OQ":   emulator.KeyF2,
	"OR":   emulator.KeyF3,
	"OS":   emulator.KeyF4,
	"[15~": emulator.KeyF5,
	"[17~": emulator.KeyF6,
	"[18~": emulator.KeyF7,
	"[19~": emulator.KeyF8,
	"[20~": emulator.KeyF9,
	"[21~": emulator.KeyF10,
	"[23~": emulator.KeyF11,
	"[24~": emulator.KeyF12,
}

// InputDecoder turns raw bytes from a terminal in raw mode into key events
// for the ANSI front end. Escape sequences may span reads.
type InputDecoder struct {
	pending []byte
}

// Feed decodes one read. quit is true when Ctrl-C was pressed; events after
// it are dropped.
func (d *InputDecoder) Feed(p []byte) (events []emulator.KeyEvent, quit bool) {
	buf := append(d.pending, p...)
	d.pending = nil
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		switch {
		case b == keyCtrlC:
			return events, true
		case b == keyCR || b == keyLF:
			if b == keyLF && i > 0 && buf[i-1] == keyCR {
				continue
			}
			events = append(events, emulator.KeyEvent{Key: emulator.KeyEnter})
		case b == keyTab:
			events = append(events, emulator.KeyEvent{Key: emulator.KeyTab})
		case b == keyBackspace || b == keyDelete:
			events = append(events, emulator.KeyEvent{Key: emulator.KeyBackspace})
		case b == keyEsc:
			key, n, complete := matchEscape(buf[i+1:])
			if !complete {
				d.pending = append([]byte(nil), buf[i:]...)
				return events, false
			}
			events = append(events, emulator.KeyEvent{Key: key})
			i += n
		case b >= 0x20 && b < 0x7F:
			events = append(events, emulator.KeyEvent{Key: emulator.KeyRune, Rune: rune(b)})
		}
	}
	return events, false
}

// matchEscape resolves the bytes after ESC. A lone ESC, or an unknown
// sequence, is the Clear key. complete is false while a known sequence could
// still arrive in the next read. Terminals write a sequence in one go, so an
// ESC that ends a read is the Esc key itself.
func matchEscape(tail []byte) (key emulator.Key, consumed int, complete bool) {
	if len(tail) == 0 {
		return emulator.KeyClear, 0, true
	}
	if tail[0] != '[' && tail[0] != 'O' {
		return emulator.KeyClear, 0, true
	}
	for n := 2; n <= len(tail) && n <= 4; n++ {
		if k, ok := escapeKeys[string(tail[:n])]; ok {
			return k, n, true
		}
	}
	if len(tail) < 4 && isSequencePrefix(tail) {
		return 0, 0, false
	}
	return emulator.KeyClear, 0, true
}

func isSequencePrefix(tail []byte) bool {
	for seq := range escapeKeys {
		if len(seq) > len(tail) && seq[:len(tail)] == string(tail) {
			return true
		}
	}
	return false
}
