package terminal

// Screen attribute bytes. Bit 0 is reverse image, bit 2 underline; the
// colour is carried in the remaining bits.
const (
	AttrGreen          byte = 0x20
	AttrGreenRI        byte = 0x21
	AttrWhite          byte = 0x22
	AttrWhiteRI        byte = 0x23
	AttrGreenUL        byte = 0x24
	AttrGreenULRI      byte = 0x25
	AttrWhiteUL        byte = 0x26
	AttrNonDisplay     byte = 0x27
	AttrRed            byte = 0x28
	AttrRedRI          byte = 0x29
	AttrRedBL          byte = 0x2A
	AttrRedRIBL        byte = 0x2B
	AttrRedUL          byte = 0x2C
	AttrRedULRI        byte = 0x2D
	AttrRedULBL        byte = 0x2E
	AttrNonDisplay2    byte = 0x2F
	AttrTurquoiseCS    byte = 0x30
	AttrTurquoiseCSRI  byte = 0x31
	AttrYellowCS       byte = 0x32
	AttrYellowCSRI     byte = 0x33
	AttrTurquoiseUL    byte = 0x34
	AttrTurquoiseULRI  byte = 0x35
	AttrYellowUL       byte = 0x36
	AttrNonDisplay3    byte = 0x37
	AttrPink           byte = 0x38
	AttrPinkRI         byte = 0x39
	AttrBlue           byte = 0x3A
	AttrBlueRI         byte = 0x3B
	AttrPinkUL         byte = 0x3C
	AttrPinkULRI       byte = 0x3D
	AttrBlueUL         byte = 0x3E
	AttrNonDisplay4    byte = 0x3F
	underlineMask      byte = 0x04
	nonDisplayMask     byte = 0x07
	reverseImageMask   byte = 0x01
	attributeRangeLow  byte = 0x20
	attributeRangeHigh byte = 0x3F
)

// Color is the colour family of a screen attribute.
type Color int

const (
	ColorGreen Color = iota
	ColorWhite
	ColorRed
	ColorTurquoise
	ColorYellow
	ColorPink
	ColorBlue
)

var colorNames = [...]string{"green", "white", "red", "turquoise", "yellow", "pink", "blue"}

func (c Color) String() string {
	if c < 0 || int(c) >= len(colorNames) {
		return "unknown"
	}
	return colorNames[c]
}

// IsAttribute reports whether b is in the screen attribute range.
func IsAttribute(b byte) bool {
	return b >= attributeRangeLow && b <= attributeRangeHigh
}

func IsNonDisplay(attr byte) bool { return attr&nonDisplayMask == nonDisplayMask }

func ShowUnderline(attr byte) bool { return attr&underlineMask != 0 && !IsNonDisplay(attr) }

func IsReverseImage(attr byte) bool { return attr&reverseImageMask != 0 && !IsNonDisplay(attr) }

// AttributeColor maps an attribute to its colour family.
func AttributeColor(attr byte) Color {
	switch {
	case attr >= 0x38:
		if attr&0x02 != 0 {
			return ColorBlue
		}
		return ColorPink
	case attr >= 0x30:
		if attr&0x02 != 0 {
			return ColorYellow
		}
		return ColorTurquoise
	case attr >= 0x28:
		return ColorRed
	default:
		if attr&0x02 != 0 {
			return ColorWhite
		}
		return ColorGreen
	}
}
