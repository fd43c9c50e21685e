package cpu

import (
	"fmt"
	"strings"
)

// fieldLetters name the operand fields of a bit template, in operand order.
const fieldLetters = "fst"

// Template is a parsed 32-bit instruction template, such as
// "000000 sssss ttttt fffff 00000 100000". Literal 0 and 1 bits identify
// the instruction; the letters f, s and t mark the bits of the first,
// second and third operands.
type Template struct {
	Text   string
	Mask   uint32    // Literal bit positions.
	Match  uint32    // Literal bit values.
	Fields [3][]uint // Bit positions of each operand field, most significant first.
}

// ParseTemplate parses a bit template.
func ParseTemplate(text string) (tmpl *Template, err error) {
	bits := strings.ReplaceAll(text, " ", "")
	if len(bits) != 32 {
		err = fmt.Errorf("%w: %q has %d bits", ErrTemplate, text, len(bits))
		return
	}

	tmpl = &Template{Text: text}
	for n, ch := range bits {
		bit := uint(31 - n)
		switch ch {
		case '0':
			tmpl.Mask |= 1 << bit
		case '1':
			tmpl.Mask |= 1 << bit
			tmpl.Match |= 1 << bit
		default:
			index := strings.IndexRune(fieldLetters, ch)
			if index < 0 {
				tmpl = nil
				err = fmt.Errorf("%w: %q has letter %q", ErrTemplate, text, ch)
				return
			}
			tmpl.Fields[index] = append(tmpl.Fields[index], bit)
		}
	}

	return
}

// Width returns the width in bits of an operand field.
func (tmpl *Template) Width(field int) int {
	return len(tmpl.Fields[field])
}

// Matches returns true if a word has the template's literal bits.
func (tmpl *Template) Matches(word uint32) bool {
	return (word & tmpl.Mask) == tmpl.Match
}

// Insert splices an operand value into its field. Bits of the value
// beyond the field width are discarded.
func (tmpl *Template) Insert(word uint32, field int, value uint32) uint32 {
	positions := tmpl.Fields[field]
	for n, bit := range positions {
		shift := uint(len(positions) - 1 - n)
		word &^= 1 << bit
		word |= ((value >> shift) & 1) << bit
	}
	return word
}

// Extract gets the raw, unsigned value of an operand field.
func (tmpl *Template) Extract(word uint32, field int) (value uint32) {
	for _, bit := range tmpl.Fields[field] {
		value = (value << 1) | ((word >> bit) & 1)
	}
	return
}
