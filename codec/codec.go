// Package codec translates between host EBCDIC bytes and display text.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnknownCodePage is returned by Lookup for names not in CodePages.
var ErrUnknownCodePage = errors.New("codec: unknown code page")

// CodePages lists the supported EBCDIC code pages by configuration name.
var CodePages = map[string]*charmap.Charmap{
	"cp037":  charmap.CodePage037,
	"cp1047": charmap.CodePage1047,
	"cp1140": charmap.CodePage1140,
}

// DefaultCodePage is used when the configuration leaves the code page empty.
const DefaultCodePage = "cp037"

// Codec maps single bytes to runes through one code page. Bytes without a
// printable mapping display as a blank; runes the code page cannot encode
// become the EBCDIC substitute character.
type Codec struct {
	name    string
	decode  [256]rune
	encode  map[rune]byte
	unknown byte
}

const ebcdicSubstitute = 0x3F

// Lookup returns the codec for a configured code page name.
func Lookup(name string) (*Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultCodePage
	}
	cm, ok := CodePages[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodePage, name)
	}
	return New(key, cm), nil
}

// New builds a codec from a charmap.
func New(name string, cm *charmap.Charmap) *Codec {
	c := &Codec{name: name, encode: make(map[rune]byte, 256), unknown: ebcdicSubstitute}
	for i := 0; i < 256; i++ {
		r := cm.DecodeByte(byte(i))
		if r < 0x20 || (r >= 0x7F && r < 0xA0) {
			c.decode[i] = ' '
			continue
		}
		c.decode[i] = r
		if _, exists := c.encode[r]; !exists {
			c.encode[r] = byte(i)
		}
	}
	return c
}

func (c *Codec) Name() string { return c.name }

// ToDisplay converts host bytes into display text, one rune per byte.
func (c *Codec) ToDisplay(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		sb.WriteRune(c.decode[b])
	}
	return sb.String()
}

// FromDisplay converts display text into host bytes, one byte per rune.
func (c *Codec) FromDisplay(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := c.encode[r]
		if !ok {
			b = c.unknown
		}
		out = append(out, b)
	}
	return out
}

// Names returns the configured code page names in sorted order.
func Names() []string {
	names := make([]string, 0, len(CodePages))
	for name := range CodePages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
