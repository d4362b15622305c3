package terminal

// Field format word bits (5494 field format word, FFW).
const (
	InputFieldMask    uint16 = 0xC000
	InputFieldPattern uint16 = 0x4000
	BypassMask        uint16 = 0x2000
	DupEnableMask     uint16 = 0x1000
	ModifiedMask      uint16 = 0x0800
	FieldEditMask     uint16 = 0x0700
	AutoEnterMask     uint16 = 0x0080
	FieldExitMask     uint16 = 0x0040
	UppercaseMask     uint16 = 0x0020
	MandatoryMask     uint16 = 0x0008
	AdjustMask        uint16 = 0x0007
)

// Blank is the EBCDIC space used to fill new fields.
const Blank byte = 0x40

// Field describes one entry of the format table.
type Field struct {
	Format      uint16
	Attribute   byte
	Length      int
	StartColumn int
	StartRow    int
	Content     []byte
}

// NewField returns a field whose content is Length blanks.
func NewField(format uint16, attribute byte, length int) Field {
	if length < 0 {
		length = 0
	}
	content := make([]byte, length)
	for i := range content {
		content[i] = Blank
	}
	return Field{Format: format, Attribute: attribute, Length: length, Content: content}
}

func (f *Field) IsInputField() bool { return f.Format&InputFieldMask == InputFieldPattern }
func (f *Field) IsBypassField() bool { return f.Format&BypassMask != 0 }
func (f *Field) IsModified() bool    { return f.Format&ModifiedMask != 0 }
func (f *Field) IsDupEnabled() bool  { return f.Format&DupEnableMask != 0 }
func (f *Field) IsAutoEnter() bool   { return f.Format&AutoEnterMask != 0 }
func (f *Field) IsFieldExitRequired() bool {
	return f.Format&FieldExitMask != 0
}
func (f *Field) IsUppercase() bool { return f.Format&UppercaseMask != 0 }
func (f *Field) IsMandatory() bool { return f.Format&MandatoryMask != 0 }

// EditClass returns the 3-bit field edit (shift) class.
func (f *Field) EditClass() uint16 { return (f.Format & FieldEditMask) >> 8 }

func (f *Field) MarkModified() { f.Format |= ModifiedMask }

// ResetModified clears the MDT bit.
func (f *Field) ResetModified() { f.Format &^= ModifiedMask }

// StartAddress is the linear address of the first content cell.
func (f *Field) StartAddress(width int) int {
	return (f.StartRow-1)*width + (f.StartColumn - 1)
}

// Contains reports whether the linear address lies inside the field content.
func (f *Field) Contains(address, width int) bool {
	start := f.StartAddress(width)
	return f.Length > 0 && address >= start && address <= start+f.Length-1
}

// FieldID is a handle into a FieldTable. It stays valid until the table is
// cleared.
type FieldID int

// NoField is returned by lookups that find nothing.
const NoField FieldID = -1

// FieldTable is the ordered list of input fields on the current screen.
type FieldTable struct {
	fields []Field
}

func (t *FieldTable) Clear() { t.fields = t.fields[:0] }

func (t *FieldTable) IsEmpty() bool { return len(t.fields) == 0 }

func (t *FieldTable) Len() int { return len(t.fields) }

// Append stores f and returns its handle.
func (t *FieldTable) Append(f Field) FieldID {
	t.fields = append(t.fields, f)
	return FieldID(len(t.fields) - 1)
}

// Field returns the field for id, or nil when the handle is stale.
func (t *FieldTable) Field(id FieldID) *Field {
	if id < 0 || int(id) >= len(t.fields) {
		return nil
	}
	return &t.fields[id]
}

// FieldAt returns the first field containing the cursor, or NoField.
func (t *FieldTable) FieldAt(c *Cursor, width int) FieldID {
	address := c.Address(width)
	for i := range t.fields {
		if t.fields[i].Contains(address, width) {
			return FieldID(i)
		}
	}
	return NoField
}

// NextInputField returns the first non-bypass input field that starts after
// the cursor, wrapping to the top of the screen.
func (t *FieldTable) NextInputField(c *Cursor, width int) FieldID {
	address := c.Address(width)
	first := NoField
	for i := range t.fields {
		f := &t.fields[i]
		if !f.IsInputField() || f.IsBypassField() {
			continue
		}
		if first == NoField {
			first = FieldID(i)
		}
		if f.StartAddress(width) > address {
			return FieldID(i)
		}
	}
	return first
}

// FirstInputField returns the first non-bypass input field, or NoField.
func (t *FieldTable) FirstInputField() FieldID {
	for i := range t.fields {
		if t.fields[i].IsInputField() && !t.fields[i].IsBypassField() {
			return FieldID(i)
		}
	}
	return NoField
}

// Each calls fn for every field in table order.
func (t *FieldTable) Each(fn func(id FieldID, f *Field)) {
	for i := range t.fields {
		fn(FieldID(i), &t.fields[i])
	}
}
