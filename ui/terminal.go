package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"tn5250/emulator"
)

// screenView draws a Grid inside a tview box.
type screenView struct {
	*tview.Box
	grid  *Grid
	color bool
}

func newScreenView(grid *Grid, color bool) *screenView {
	return &screenView{Box: tview.NewBox(), grid: grid, color: color}
}

func (v *screenView) Draw(screen tcell.Screen) {
	v.Box.DrawForSubclass(screen, v)
	x, y, width, height := v.GetInnerRect()
	cells, columns, rows := v.grid.Cells()
	for r := 0; r < rows && r < height; r++ {
		for c := 0; c < columns && c < width; c++ {
			cell := cells[r*columns+c]
			screen.SetContent(x+c, y+r, cell.Rune, nil, styleFor(cell.Attr, v.color))
		}
	}
	col, row := v.grid.Cursor()
	if col >= 1 && row >= 1 && col <= width && row <= height {
		screen.ShowCursor(x+col-1, y+row-1)
	}
}

// Terminal is the full-screen front end: the host screen on top and a one
// line status bar underneath.
type Terminal struct {
	app       *tview.Application
	screen    *screenView
	status    *tview.TextView
	scheduler *redrawScheduler
	ready     chan struct{}
	done      chan struct{}
	closed    atomic.Bool
	stopOnce  sync.Once
}

// Purpose: Build and start the full-screen tview terminal.
// Key aspects: Screen primitive over the Grid plus a one-line status bar;
// Ctrl-C is left to tview, other mapped keys go to onKey.
// Upstream: main.startSurface.
// Downstream: tview.Application.Run, redrawScheduler.
func NewTerminal(grid *Grid, onKey func(emulator.KeyEvent), color bool, refresh time.Duration) *Terminal {
	view := newScreenView(grid, color)
	status := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	status.SetTextColor(tcell.ColorYellow)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(view, 0, 1, true).
		AddItem(status, 1, 0, false)

	app := tview.NewApplication().SetRoot(layout, true).EnableMouse(false)
	ready := make(chan struct{})
	var once sync.Once
	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		once.Do(func() { close(ready) })
		return false
	})
	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyCtrlC {
			return ev
		}
		if key, ok := KeyFromTcell(ev); ok && onKey != nil {
			onKey(key)
		}
		return nil
	})

	t := &Terminal{
		app:    app,
		screen: view,
		status: status,
		ready:  ready,
		done:   make(chan struct{}),
	}
	t.scheduler = newRedrawScheduler(func(fn func()) {
		if t.closed.Load() {
			return
		}
		app.QueueUpdateDraw(fn)
	}, refresh, 0)
	t.scheduler.Start()
	grid.OnChange(func() {
		t.scheduler.Schedule("screen", func() {})
	})

	go func() {
		defer close(t.done)
		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "terminal error: %v\n", err)
		}
	}()
	return t
}

// Done is closed when the application exits, including on Ctrl-C.
func (t *Terminal) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.done
}

func (t *Terminal) WaitReady() {
	if t == nil || t.ready == nil {
		return
	}
	select {
	case <-t.ready:
	case <-t.done:
	}
}

func (t *Terminal) Stop() {
	if t == nil {
		return
	}
	t.stopOnce.Do(func() {
		t.scheduler.Stop()
		t.closed.Store(true)
		t.app.Stop()
	})
}

func (t *Terminal) SetStatus(line string) {
	if t == nil || t.closed.Load() {
		return
	}
	t.scheduler.Schedule("status", func() {
		t.status.SetText(line)
	})
}

// SystemWriter routes log lines to the status bar. Only the latest complete
// line is shown.
func (t *Terminal) SystemWriter() io.Writer {
	if t == nil {
		return nil
	}
	return &lineWriter{emit: t.SetStatus}
}

// lineWriter splits a byte stream into lines and hands each to emit.
type lineWriter struct {
	mu   sync.Mutex
	buf  []byte
	emit func(string)
}

const maxLineWriterBuffer = 16 * 1024

func (w *lineWriter) Write(p []byte) (int, error) {
	if w == nil || w.emit == nil {
		return len(p), nil
	}
	w.mu.Lock()
	w.buf = append(w.buf, p...)
	var lines []string
	for {
		idx := indexNewline(w.buf)
		if idx < 0 {
			break
		}
		lines = append(lines, strings.TrimRight(string(w.buf[:idx]), "\r"))
		w.buf = w.buf[idx+1:]
	}
	if len(w.buf) > maxLineWriterBuffer {
		lines = append(lines, string(w.buf))
		w.buf = w.buf[:0]
	}
	w.mu.Unlock()
	for _, line := range lines {
		w.emit(line)
	}
	return len(p), nil
}

func indexNewline(b []byte) int {
	for i, c := range b {
		if c == '\n' {
			return i
		}
	}
	return -1
}
