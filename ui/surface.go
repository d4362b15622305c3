// Package ui presents the emulated 5250 screen: an in-memory Grid that
// implements emulator.Display, a full-screen tview terminal, and an ANSI
// renderer for plain terminals.
package ui

import "io"

// Surface abstracts the console front end so alternative renderers can plug
// in. Implementations must be safe for concurrent calls from the session and
// logging goroutines.
type Surface interface {
	WaitReady()
	Stop()
	SetStatus(line string)
	SystemWriter() io.Writer
}
