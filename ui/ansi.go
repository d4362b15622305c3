package ui

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"tn5250/terminal"
)

const resetANSI = "\x1b[0m"

var ansiForeground = map[terminal.Color]int{
	terminal.ColorGreen:     32,
	terminal.ColorWhite:     37,
	terminal.ColorRed:       31,
	terminal.ColorTurquoise: 36,
	terminal.ColorYellow:    33,
	terminal.ColorPink:      35,
	terminal.ColorBlue:      34,
}

// ANSIRenderer repaints the grid on a plain terminal with escape codes. It
// only writes when the screen fingerprint changes.
type ANSIRenderer struct {
	mu        sync.Mutex
	grid      *Grid
	out       io.Writer
	color     bool
	refresh   time.Duration
	status    string
	last      uint64
	lastValid bool
	renderBuf bytes.Buffer
	quit      chan struct{}
	stopOnce  sync.Once
}

// NewANSIRenderer renders grid to out every refresh interval. A zero refresh
// disables the loop; Render can still be called directly.
func NewANSIRenderer(grid *Grid, out io.Writer, color bool, refresh time.Duration) *ANSIRenderer {
	const minRefresh = 16 * time.Millisecond
	if refresh > 0 && refresh < minRefresh {
		log.Printf("UI: clamping refresh interval to %dms (requested %dms too low)", minRefresh/time.Millisecond, refresh/time.Millisecond)
		refresh = minRefresh
	}
	r := &ANSIRenderer{
		grid:    grid,
		out:     out,
		color:   color,
		refresh: refresh,
		quit:    make(chan struct{}),
	}
	if refresh > 0 {
		go r.refreshLoop()
	}
	return r
}

func (r *ANSIRenderer) WaitReady() {}

func (r *ANSIRenderer) Stop() {
	if r == nil {
		return
	}
	r.stopOnce.Do(func() {
		close(r.quit)
	})
}

func (r *ANSIRenderer) SetStatus(line string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.status != line {
		r.status = line
		r.lastValid = false
	}
	r.mu.Unlock()
}

func (r *ANSIRenderer) SystemWriter() io.Writer {
	if r == nil {
		return nil
	}
	return &lineWriter{emit: r.SetStatus}
}

// Purpose: Redraw the ANSI screen on a fixed cadence.
// Key aspects: Recovers from render panics so the session keeps running.
// Upstream: NewANSIRenderer.
// Downstream: Render.
func (r *ANSIRenderer) refreshLoop() {
	defer func() {
		if rec := recover(); rec != nil {
			fmt.Fprintf(os.Stderr, "ANSI renderer panic: %v\n", rec)
		}
	}()
	ticker := time.NewTicker(r.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := r.Render(); err != nil {
				log.Printf("UI: render failed: %v", err)
			}
		case <-r.quit:
			return
		}
	}
}

// Render writes one frame if the screen changed since the last frame. It
// reports whether anything was written.
func (r *ANSIRenderer) Render() (bool, error) {
	fp := r.grid.Fingerprint()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastValid && fp == r.last {
		return false, nil
	}
	r.last, r.lastValid = fp, true

	cells, columns, rows := r.grid.Cells()
	col, row := r.grid.Cursor()

	r.renderBuf.Reset()
	r.renderBuf.WriteString("\x1b[2J\x1b[H")
	for y := 0; y < rows; y++ {
		current := -1
		for x := 0; x < columns; x++ {
			cell := cells[y*columns+x]
			if r.color {
				if code := ansiStyle(cell.Attr); code != current {
					r.renderBuf.WriteString(resetANSI)
					r.renderBuf.WriteString(ansiSequence(code, cell.Attr))
					current = code
				}
			}
			if terminal.IsNonDisplay(cell.Attr) {
				r.renderBuf.WriteByte(' ')
				continue
			}
			r.renderBuf.WriteRune(cell.Rune)
		}
		if r.color {
			r.renderBuf.WriteString(resetANSI)
		}
		r.renderBuf.WriteString("\r\n")
	}
	if r.status != "" {
		r.renderBuf.WriteString(r.status)
		r.renderBuf.WriteString("\r\n")
	}
	if col >= 1 && row >= 1 {
		fmt.Fprintf(&r.renderBuf, "\x1b[%d;%dH", row, col)
	}
	_, err := r.renderBuf.WriteTo(r.out)
	return true, err
}

// ansiStyle folds an attribute into a comparable key so runs of equal styling
// share one escape sequence.
func ansiStyle(attr byte) int {
	if terminal.IsNonDisplay(attr) {
		return 0
	}
	key := ansiForeground[terminal.AttributeColor(attr)]
	if terminal.IsReverseImage(attr) {
		key += 100
	}
	if terminal.ShowUnderline(attr) {
		key += 1000
	}
	return key
}

func ansiSequence(key int, attr byte) string {
	if key == 0 {
		return "\x1b[30;40m"
	}
	seq := "\x1b[" + strconv.Itoa(ansiForeground[terminal.AttributeColor(attr)])
	if terminal.IsReverseImage(attr) {
		seq += ";7"
	}
	if terminal.ShowUnderline(attr) {
		seq += ";4"
	}
	return seq + "m"
}
