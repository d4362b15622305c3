package terminal

import "testing"

func TestFieldFormatBits(t *testing.T) {
	tests := []struct {
		format   uint16
		input    bool
		bypass   bool
		modified bool
	}{
		{format: 0x0000, input: false},
		{format: 0x4000, input: true},
		{format: 0xC000, input: false},
		{format: 0x6000, input: true, bypass: true},
		{format: 0x4800, input: true, modified: true},
	}
	for _, tc := range tests {
		f := NewField(tc.format, AttrGreen, 1)
		if f.IsInputField() != tc.input || f.IsBypassField() != tc.bypass || f.IsModified() != tc.modified {
			t.Fatalf("format %#04x: input=%v bypass=%v modified=%v", tc.format, f.IsInputField(), f.IsBypassField(), f.IsModified())
		}
	}
}

func TestNewFieldIsBlankFilled(t *testing.T) {
	f := NewField(0x4000, 0x24, 5)
	if len(f.Content) != 5 {
		t.Fatalf("expected 5 content bytes, got %d", len(f.Content))
	}
	for i, c := range f.Content {
		if c != Blank {
			t.Fatalf("content[%d] = %#x, want blank", i, c)
		}
	}
}

func TestMarkModified(t *testing.T) {
	f := NewField(0x4000, AttrGreen, 1)
	f.MarkModified()
	if !f.IsModified() {
		t.Fatalf("expected modified after MarkModified")
	}
	f.ResetModified()
	if f.IsModified() {
		t.Fatalf("expected MDT cleared")
	}
}

func TestFieldTableClear(t *testing.T) {
	var table FieldTable
	table.Append(NewField(0x4000, AttrGreen, 1))
	if table.IsEmpty() {
		t.Fatalf("expected table not empty")
	}
	table.Clear()
	if !table.IsEmpty() {
		t.Fatalf("expected table empty after clear")
	}
}

func TestFieldAt(t *testing.T) {
	var table FieldTable
	c := NewCursor()
	if id := table.FieldAt(c, DefaultColumns); id != NoField {
		t.Fatalf("expected NoField on empty table, got %d", id)
	}

	f := NewField(0x4000, AttrGreen, 3)
	f.StartColumn, f.StartRow = 5, 5
	id := table.Append(f)

	if got := table.FieldAt(c, DefaultColumns); got != NoField {
		t.Fatalf("cursor outside field matched %d", got)
	}
	for col := 5; col <= 7; col++ {
		c.SetPosition(col, 5)
		if got := table.FieldAt(c, DefaultColumns); got != id {
			t.Fatalf("col %d: expected field %d, got %d", col, id, got)
		}
	}
	c.SetPosition(8, 5)
	if got := table.FieldAt(c, DefaultColumns); got != NoField {
		t.Fatalf("cursor past field end matched %d", got)
	}
}

func TestNextInputFieldSkipsBypassAndWraps(t *testing.T) {
	var table FieldTable
	add := func(format uint16, col, row int) FieldID {
		f := NewField(format, AttrGreen, 2)
		f.StartColumn, f.StartRow = col, row
		return table.Append(f)
	}
	first := add(0x4000, 10, 2)
	add(0x6000, 10, 3)
	third := add(0x4000, 10, 4)

	c := NewCursor()
	c.SetPosition(1, 3)
	if got := table.NextInputField(c, DefaultColumns); got != third {
		t.Fatalf("expected field %d, got %d", third, got)
	}
	c.SetPosition(1, 20)
	if got := table.NextInputField(c, DefaultColumns); got != first {
		t.Fatalf("expected wrap to field %d, got %d", first, got)
	}
}

func TestEachVisitsAllFields(t *testing.T) {
	var table FieldTable
	table.Append(NewField(0x4000, AttrGreen, 1))
	table.Append(NewField(0x4000, AttrGreen, 1))
	count := 0
	table.Each(func(FieldID, *Field) { count++ })
	if count != 2 {
		t.Fatalf("expected 2 visits, got %d", count)
	}
}

func TestAttributeHelpers(t *testing.T) {
	if !IsNonDisplay(AttrNonDisplay) || !IsNonDisplay(AttrNonDisplay4) || IsNonDisplay(AttrGreen) {
		t.Fatalf("IsNonDisplay mismatch")
	}
	if !ShowUnderline(AttrGreenUL) || ShowUnderline(AttrGreen) || ShowUnderline(AttrNonDisplay) {
		t.Fatalf("ShowUnderline mismatch")
	}
	if !IsReverseImage(AttrWhiteRI) || IsReverseImage(AttrWhite) {
		t.Fatalf("IsReverseImage mismatch")
	}
	colors := map[byte]Color{
		AttrGreen: ColorGreen, AttrWhiteUL: ColorWhite, AttrRedBL: ColorRed,
		AttrTurquoiseCS: ColorTurquoise, AttrYellowUL: ColorYellow, AttrPinkULRI: ColorPink, AttrBlue: ColorBlue,
	}
	for attr, want := range colors {
		if got := AttributeColor(attr); got != want {
			t.Fatalf("AttributeColor(%#x) = %s, want %s", attr, got, want)
		}
	}
	if IsAttribute(0x1F) || !IsAttribute(0x20) || !IsAttribute(0x3F) || IsAttribute(0x40) {
		t.Fatalf("IsAttribute range mismatch")
	}
}
