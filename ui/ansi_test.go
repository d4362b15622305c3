package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"tn5250/terminal"
)

func TestANSIRendererWritesPlainFrame(t *testing.T) {
	g := NewGrid(6, 2)
	g.DisplayText(1, 1, "Sign")
	g.DisplayCursor(2, 2)

	var out bytes.Buffer
	r := NewANSIRenderer(g, &out, false, 0)
	defer r.Stop()

	wrote, err := r.Render()
	if err != nil || !wrote {
		t.Fatalf("Render() = %v, %v", wrote, err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "\x1b[2J\x1b[H") {
		t.Fatalf("missing clear sequence: %q", got)
	}
	if !strings.Contains(got, "Sign  \r\n") {
		t.Fatalf("missing first row: %q", got)
	}
	if !strings.HasSuffix(got, "\x1b[2;2H") {
		t.Fatalf("missing cursor position: %q", got)
	}
	if strings.Contains(got, "\x1b[3") {
		t.Fatalf("colour codes emitted with colour disabled: %q", got)
	}
}

func TestANSIRendererSkipsUnchangedScreens(t *testing.T) {
	g := NewGrid(4, 1)
	g.DisplayText(1, 1, "a")
	var out bytes.Buffer
	r := NewANSIRenderer(g, &out, false, 0)

	if wrote, _ := r.Render(); !wrote {
		t.Fatalf("first render skipped")
	}
	if wrote, _ := r.Render(); wrote {
		t.Fatalf("unchanged screen rendered again")
	}
	g.DisplayText(2, 1, "b")
	if wrote, _ := r.Render(); !wrote {
		t.Fatalf("changed screen not rendered")
	}
	r.SetStatus("connected")
	if wrote, _ := r.Render(); !wrote {
		t.Fatalf("status change not rendered")
	}
	if !strings.Contains(out.String(), "connected\r\n") {
		t.Fatalf("status line missing: %q", out.String())
	}
}

func TestANSIRendererColours(t *testing.T) {
	g := NewGrid(4, 1)
	g.DisplayAttribute(terminal.AttrRedRI)
	g.DisplayText(1, 1, "x")
	var out bytes.Buffer
	r := NewANSIRenderer(g, &out, true, 0)
	if _, err := r.Render(); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out.String(), "\x1b[31;7mx") {
		t.Fatalf("expected red reverse sequence: %q", out.String())
	}
}

func TestANSIRendererHidesNonDisplay(t *testing.T) {
	g := NewGrid(4, 1)
	g.DisplayAttribute(terminal.AttrNonDisplay)
	g.DisplayText(1, 1, "pw")
	var out bytes.Buffer
	r := NewANSIRenderer(g, &out, false, 0)
	_, _ = r.Render()
	if strings.Contains(out.String(), "pw") {
		t.Fatalf("non-display text leaked: %q", out.String())
	}
}

func TestLineWriterSplitsLines(t *testing.T) {
	var got []string
	w := &lineWriter{emit: func(s string) { got = append(got, s) }}
	_, _ = w.Write([]byte("one\r\ntw"))
	_, _ = w.Write([]byte("o\n"))
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected lines: %q", got)
	}
}

func TestANSIRendererStopIdempotent(t *testing.T) {
	r := NewANSIRenderer(NewGrid(1, 1), &bytes.Buffer{}, false, 20*time.Millisecond)
	r.Stop()
	r.Stop()
}
