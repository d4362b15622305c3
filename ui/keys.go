package ui

import (
	"github.com/gdamore/tcell/v2"

	"tn5250/emulator"
)

var functionKeys = map[tcell.Key]emulator.Key{
	tcell.KeyF1:  emulator.KeyF1,
	tcell.KeyF2:  emulator.KeyF2,
	tcell.KeyF3:  emulator.KeyF3,
	tcell.KeyF4:  emulator.KeyF4,
	tcell.KeyF5:  emulator.KeyF5,
	tcell.KeyF6:  emulator.KeyF6,
	tcell.KeyF7:  emulator.KeyF7,
	tcell.KeyF8:  emulator.KeyF8,
	tcell.KeyF9:  emulator.KeyF9,
	tcell.KeyF10: emulator.KeyF10,
	tcell.KeyF11: emulator.KeyF11,
	tcell.KeyF12: emulator.KeyF12,
}

var editingKeys = map[tcell.Key]emulator.Key{
	tcell.KeyUp:         emulator.KeyUp,
	tcell.KeyDown:       emulator.KeyDown,
	tcell.KeyLeft:       emulator.KeyLeft,
	tcell.KeyRight:      emulator.KeyRight,
	tcell.KeyEnter:      emulator.KeyEnter,
	tcell.KeyTab:        emulator.KeyTab,
	tcell.KeyBackspace:  emulator.KeyBackspace,
	tcell.KeyBackspace2: emulator.KeyBackspace,
	tcell.KeyPgUp:       emulator.KeyPageUp,
	tcell.KeyPgDn:       emulator.KeyPageDown,
	tcell.KeyHelp:       emulator.KeyHelp,
	tcell.KeyClear:      emulator.KeyClear,
	tcell.KeyEscape:     emulator.KeyClear,
}

// KeyFromTcell translates a terminal key press. ok is false for keys the
// emulator has no use for.
func KeyFromTcell(ev *tcell.EventKey) (emulator.KeyEvent, bool) {
	if ev == nil {
		return emulator.KeyEvent{}, false
	}
	if ev.Key() == tcell.KeyRune {
		return emulator.KeyEvent{Key: emulator.KeyRune, Rune: ev.Rune()}, true
	}
	if k, ok := functionKeys[ev.Key()]; ok {
		return emulator.KeyEvent{Key: k}, true
	}
	if k, ok := editingKeys[ev.Key()]; ok {
		return emulator.KeyEvent{Key: k}, true
	}
	return emulator.KeyEvent{}, false
}
