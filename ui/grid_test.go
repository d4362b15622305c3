package ui

import (
	"reflect"
	"testing"

	"tn5250/emulator"
	"tn5250/gds"
	"tn5250/terminal"
)

func TestGridDrawsTextWithCurrentAttribute(t *testing.T) {
	g := NewGrid(80, 24)
	g.Clear()
	g.DisplayAttribute(terminal.AttrRed)
	g.DisplayText(3, 2, "Hello")
	g.DisplayCursor(8, 2)

	if got := g.Cell(3, 2); got.Rune != 'H' || got.Attr != terminal.AttrRed {
		t.Fatalf("unexpected cell: %+v", got)
	}
	if got := g.Cell(7, 2); got.Rune != 'o' {
		t.Fatalf("unexpected last cell: %+v", got)
	}
	if col, row := g.Cursor(); col != 8 || row != 2 {
		t.Fatalf("cursor = (%d,%d), want (8,2)", col, row)
	}
	lines := g.Lines()
	if lines[1] != "  Hello" {
		t.Fatalf("line 2 = %q", lines[1])
	}
}

func TestGridClearResetsAttribute(t *testing.T) {
	g := NewGrid(10, 2)
	g.DisplayAttribute(terminal.AttrWhite)
	g.DisplayText(1, 1, "abc")
	g.Clear()
	g.DisplayText(1, 1, "x")
	if got := g.Cell(1, 1); got.Attr != terminal.AttrGreen {
		t.Fatalf("attribute after clear = %#x, want green", got.Attr)
	}
	if got := g.Cell(2, 1); got.Rune != ' ' {
		t.Fatalf("clear left %q behind", got.Rune)
	}
}

func TestGridGrowsForWideScreens(t *testing.T) {
	g := NewGrid(80, 24)
	g.DisplayText(1, 1, "top")
	g.DisplayText(130, 27, "end")
	cols, rows := g.Size()
	if cols != 132 || rows != 27 {
		t.Fatalf("size = %dx%d, want 132x27", cols, rows)
	}
	if got := g.Cell(1, 1); got.Rune != 't' {
		t.Fatalf("grow lost existing content: %+v", got)
	}
	if got := g.Cell(132, 27); got.Rune != 'd' {
		t.Fatalf("unexpected corner cell: %+v", got)
	}
}

func TestGridIgnoresOutOfRangeOrigin(t *testing.T) {
	g := NewGrid(4, 2)
	g.DisplayText(0, 1, "x")
	g.DisplayText(1, 0, "x")
	if !reflect.DeepEqual(g.Lines(), []string{"", ""}) {
		t.Fatalf("unexpected lines: %q", g.Lines())
	}
	if got := g.Cell(9, 9); got.Rune != ' ' {
		t.Fatalf("outside cell = %+v", got)
	}
}

func TestGridLinesHideNonDisplay(t *testing.T) {
	g := NewGrid(10, 1)
	g.DisplayText(1, 1, "user")
	g.DisplayAttribute(terminal.AttrNonDisplay)
	g.DisplayText(6, 1, "pass")
	if got := g.Lines()[0]; got != "user" {
		t.Fatalf("line = %q, want hidden password", got)
	}
}

func TestGridOnChangeFiresOnCursor(t *testing.T) {
	g := NewGrid(10, 1)
	calls := 0
	g.OnChange(func() { calls++ })
	g.Clear()
	g.DisplayText(1, 1, "a")
	if calls != 0 {
		t.Fatalf("change fired before the pass ended")
	}
	g.DisplayCursor(2, 1)
	if calls != 1 {
		t.Fatalf("expected one change notification, got %d", calls)
	}
}

func TestGridFingerprintTracksTextAndCursor(t *testing.T) {
	g := NewGrid(10, 2)
	g.DisplayText(1, 1, "a")
	base := g.Fingerprint()
	if g.Fingerprint() != base {
		t.Fatalf("fingerprint not stable")
	}
	g.DisplayCursor(3, 1)
	moved := g.Fingerprint()
	if moved == base {
		t.Fatalf("cursor move did not change fingerprint")
	}
	g.DisplayText(1, 2, "b")
	if g.Fingerprint() == moved {
		t.Fatalf("text change did not change fingerprint")
	}
}

func TestGridResize(t *testing.T) {
	g := NewGrid(132, 27)
	g.DisplayText(1, 1, "x")
	g.Resize(80, 24)
	cols, rows := g.Size()
	if cols != 80 || rows != 24 {
		t.Fatalf("size = %dx%d", cols, rows)
	}
	if g.Cell(1, 1).Rune != ' ' {
		t.Fatalf("resize kept content")
	}
}

func TestGridFollowsHostScreenSize(t *testing.T) {
	g := NewGrid(80, 24)
	d := emulator.New(emulator.Options{Display: g})
	receive := func(payload []byte) {
		t.Helper()
		record, err := gds.Frame(payload)
		if err != nil {
			t.Fatalf("frame: %v", err)
		}
		if err := d.DataReceived(record); err != nil {
			t.Fatalf("DataReceived: %v", err)
		}
	}

	receive([]byte{emulator.Escape, emulator.CmdClearUnitAlternate, 0x00})
	if cols, rows := g.Size(); cols != 132 || rows != 27 {
		t.Fatalf("after alternate clear: %dx%d, want 132x27", cols, rows)
	}
	receive([]byte{emulator.Escape, emulator.CmdClearUnit})
	if cols, rows := g.Size(); cols != 80 || rows != 25 {
		t.Fatalf("after clear unit: %dx%d, want 80x25", cols, rows)
	}
}
