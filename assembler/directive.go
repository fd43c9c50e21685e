// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package assembler

import (
	"fmt"
	"io/fs"
	"math"
	"path"
	"slices"
	"strings"

	"github.com/ezrec/mipsim/memory"
)

// directive handles an assembler directive.
func (asm *Assembler) directive(line Line, tokens []Token) {
	name := strings.ToLower(tokens[0].Text)
	args := tokens[1:]

	var err error
	switch name {
	case ".text":
		err = asm.segmentDirective(memory.SEGMENT_TEXT, args)
	case ".ktext":
		err = asm.segmentDirective(memory.SEGMENT_KTEXT, args)
	case ".data":
		err = asm.segmentDirective(memory.SEGMENT_DATA, args)
	case ".kdata":
		err = asm.segmentDirective(memory.SEGMENT_KDATA, args)
	case ".word":
		err = asm.integerDirective(line, args, 4)
	case ".half":
		err = asm.integerDirective(line, args, 2)
	case ".byte":
		err = asm.integerDirective(line, args, 1)
	case ".float":
		err = asm.floatDirective(args, 4)
	case ".double":
		err = asm.floatDirective(args, 8)
	case ".ascii":
		err = asm.stringDirective(args, false)
	case ".asciiz":
		err = asm.stringDirective(args, true)
	case ".space":
		err = asm.spaceDirective(args)
	case ".align":
		err = asm.alignDirective(args)
	case ".globl", ".global":
		err = asm.globlDirective(line, args)
	case ".extern":
		err = asm.externDirective(args)
	case ".eqv":
		err = asm.eqvDirective(args)
	case ".macro":
		err = asm.macroDirective(line, args)
	case ".end_macro":
		err = ErrMacroLonelyEnd
	case ".include":
		err = asm.includeDirective(line, args)
	case ".set":
		asm.warn(line, tokens[0].Column, ErrSetIgnored)
	default:
		err = fmt.Errorf("%w: %v", ErrDirectiveInvalid, tokens[0].Text)
	}

	if err != nil {
		asm.fail(line, tokens[0].Column, err)
	}
}

// segmentDirective switches segments, optionally setting the next address.
func (asm *Assembler) segmentDirective(name string, args []Token) (err error) {
	unit := asm.unit
	unit.segment = name
	unit.autoAlign = true

	if len(args) == 0 {
		return
	}

	it, err := parseValue(args)
	if err != nil {
		return
	}
	if it.kind != ITEM_INTEGER {
		err = fmt.Errorf("%w: .%v %v", ErrDirectiveSyntax, name, joinTokens(args))
		return
	}

	address := uint32(it.value)
	seg, ok := asm.config.Segment(name)
	if !ok || !seg.Contains(address) {
		err = &memory.AddressError{Address: address, Access: memory.ACCESS_STORE, Err: ErrSegmentRange}
		return
	}

	unit.address[name] = address
	return
}

// dataSegment checks that data may be placed in the current segment.
func (asm *Assembler) dataSegment() (err error) {
	if isText(asm.unit.segment) {
		err = fmt.Errorf("%w: .%v", ErrDirectiveSegment, asm.unit.segment)
	}
	return
}

// alignTo advances the current address to a boundary. Labels already at
// the current address move with it.
func (asm *Assembler) alignTo(boundary uint32) {
	unit := asm.unit
	old := unit.address[unit.segment]
	address := (old + boundary - 1) &^ (boundary - 1)
	if address != old {
		unit.symbols.FixAddress(old, address)
		unit.address[unit.segment] = address
	}
}

// store writes a value at the current address, and advances it.
func (asm *Assembler) store(width int, value uint32) (err error) {
	unit := asm.unit
	address := unit.address[unit.segment]
	if address%uint32(width) == 0 {
		_, err = asm.prog.Image.Set(address, width, value)
	} else {
		// Unaligned, after '.align 0'.
		for n := range width {
			_, err = asm.prog.Image.SetByte(address+uint32(n), uint8(value>>(8*n)))
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		return
	}
	unit.address[unit.segment] = address + uint32(width)
	return
}

// fits returns true if a value can be stored in a width without loss,
// as either a signed or unsigned value.
func fits(value int64, width int) bool {
	bits := uint(width * 8)
	return value >= -(1<<(bits-1)) && value < (1<<bits)
}

// integerDirective stores .word, .half and .byte values. A value may be
// followed by ':count' to repeat it.
func (asm *Assembler) integerDirective(line Line, args []Token, width int) (err error) {
	err = asm.dataSegment()
	if err != nil {
		return
	}

	groups := splitOperands(args)
	if len(groups) == 0 {
		err = fmt.Errorf("%w: no values", ErrDirectiveSyntax)
		return
	}

	if asm.unit.autoAlign {
		asm.alignTo(uint32(width))
	}

	for _, group := range groups {
		count := int64(1)
		if n := slices.IndexFunc(group, func(tok Token) bool { return tok.Kind == TOKEN_COLON }); n >= 0 {
			var repeat *item
			repeat, err = parseValue(group[n+1:])
			if err != nil {
				return
			}
			if repeat.kind != ITEM_INTEGER || repeat.value < 1 {
				err = fmt.Errorf("%w: repeat count %v", ErrDirectiveSyntax, joinTokens(group[n+1:]))
				return
			}
			count = repeat.value
			group = group[:n]
		}

		var it *item
		it, err = parseValue(group)
		if err != nil {
			return
		}

		if it.kind == ITEM_INTEGER && !fits(it.value, width) {
			asm.warn(line, group[0].Column, fmt.Errorf("%w: %v", ErrValueTruncated, joinTokens(group)))
		}

		for range count {
			err = asm.storeItem(line, group[0].Column, it, width)
			if err != nil {
				return
			}
		}
	}

	return
}

// storeItem stores an integer or label value.
func (asm *Assembler) storeItem(line Line, column int, it *item, width int) (err error) {
	unit := asm.unit
	address := unit.address[unit.segment]

	value := uint32(it.value)
	if it.kind == ITEM_SYMBOL {
		if sym, ok := lookup(unit.symbols, it.symbol, false); ok {
			value = sym.Address + uint32(it.value)
		} else {
			value = 0
			asm.forwards = append(asm.forwards, forwardRef{
				table:   unit.symbols,
				address: address,
				width:   width,
				symbol:  it.symbol,
				addend:  it.value,
				line:    line,
				column:  column,
			})
		}
	}

	return asm.store(width, value)
}

// floatDirective stores .float and .double values. Doubles are stored
// low word first.
func (asm *Assembler) floatDirective(args []Token, width int) (err error) {
	err = asm.dataSegment()
	if err != nil {
		return
	}

	groups := splitOperands(args)
	if len(groups) == 0 {
		err = fmt.Errorf("%w: no values", ErrDirectiveSyntax)
		return
	}

	if asm.unit.autoAlign {
		asm.alignTo(uint32(width))
	}

	for _, group := range groups {
		var value float64
		value, err = parseReal(group)
		if err != nil {
			return
		}

		if width == 4 {
			err = asm.store(4, math.Float32bits(float32(value)))
		} else {
			bits := math.Float64bits(value)
			err = asm.store(4, uint32(bits))
			if err == nil {
				err = asm.store(4, uint32(bits>>32))
			}
		}
		if err != nil {
			return
		}
	}

	return
}

// parseReal parses an optionally signed integer or real number.
func parseReal(tokens []Token) (value float64, err error) {
	sign := 1.0
	for len(tokens) > 1 && (tokens[0].Kind == TOKEN_MINUS || tokens[0].Kind == TOKEN_PLUS) {
		if tokens[0].Kind == TOKEN_MINUS {
			sign = -sign
		}
		tokens = tokens[1:]
	}

	if len(tokens) != 1 {
		err = fmt.Errorf("%w: %v", ErrDirectiveSyntax, joinTokens(tokens))
		return
	}

	switch tokens[0].Kind {
	case TOKEN_INTEGER:
		value = sign * float64(tokens[0].Value)
	case TOKEN_REAL:
		value = sign * tokens[0].Real
	default:
		err = fmt.Errorf("%w: %v", ErrDirectiveSyntax, tokens[0].Text)
	}
	return
}

// stringDirective stores the bytes of .ascii and .asciiz strings.
func (asm *Assembler) stringDirective(args []Token, terminate bool) (err error) {
	err = asm.dataSegment()
	if err != nil {
		return
	}

	groups := splitOperands(args)
	if len(groups) == 0 {
		err = fmt.Errorf("%w: no strings", ErrDirectiveSyntax)
		return
	}

	for _, group := range groups {
		if len(group) != 1 || group[0].Kind != TOKEN_STRING {
			err = fmt.Errorf("%w: %v", ErrDirectiveSyntax, joinTokens(group))
			return
		}

		text := []byte(group[0].Str)
		if terminate {
			text = append(text, 0)
		}
		for _, b := range text {
			err = asm.store(1, uint32(b))
			if err != nil {
				return
			}
		}
	}

	return
}

// spaceDirective reserves bytes.
func (asm *Assembler) spaceDirective(args []Token) (err error) {
	err = asm.dataSegment()
	if err != nil {
		return
	}

	it, err := parseValue(args)
	if err != nil {
		return
	}
	if it.kind != ITEM_INTEGER || it.value < 0 {
		err = fmt.Errorf("%w: .space %v", ErrDirectiveSyntax, joinTokens(args))
		return
	}

	unit := asm.unit
	unit.address[unit.segment] += uint32(it.value)
	return
}

// alignDirective aligns to 2^n bytes. '.align 0' turns off automatic
// alignment until the next segment directive.
func (asm *Assembler) alignDirective(args []Token) (err error) {
	it, err := parseValue(args)
	if err != nil {
		return
	}
	if it.kind != ITEM_INTEGER || it.value < 0 || it.value > 3 {
		err = fmt.Errorf("%w: .align %v", ErrDirectiveSyntax, joinTokens(args))
		return
	}

	if it.value == 0 {
		asm.unit.autoAlign = false
		return
	}

	asm.alignTo(1 << it.value)
	return
}

// globlDirective marks labels to be exported after the first pass.
func (asm *Assembler) globlDirective(line Line, args []Token) (err error) {
	groups := splitOperands(args)
	if len(groups) == 0 {
		err = fmt.Errorf("%w: no labels", ErrDirectiveSyntax)
		return
	}

	for _, group := range groups {
		if len(group) != 1 || group[0].Kind != TOKEN_IDENT {
			err = fmt.Errorf("%w: %v", ErrLabelSyntax, joinTokens(group))
			return
		}
		asm.unit.globals = append(asm.unit.globals, globalRef{line: line, tok: group[0]})
	}

	return
}

// externDirective allocates a global label in the extern segment.
func (asm *Assembler) externDirective(args []Token) (err error) {
	if len(args) < 2 || args[0].Kind != TOKEN_IDENT {
		err = fmt.Errorf("%w: .extern %v", ErrDirectiveSyntax, joinTokens(args))
		return
	}

	rest := args[1:]
	if rest[0].Kind == TOKEN_COMMA {
		rest = rest[1:]
	}

	size, err := parseValue(rest)
	if err != nil {
		return
	}
	if size.kind != ITEM_INTEGER || size.value < 0 {
		err = fmt.Errorf("%w: .extern %v", ErrDirectiveSyntax, joinTokens(args))
		return
	}

	address := asm.extern
	end := address + uint32(size.value)
	if size.value > 0 && end-1 > asm.config.Limit(memory.SEGMENT_EXTERN) {
		err = &memory.AddressError{Address: address, Access: memory.ACCESS_STORE, Err: ErrSegmentRange}
		return
	}

	err = asm.prog.Symbols.Add(args[0].Text, address, true)
	if err != nil {
		return
	}

	asm.extern = end
	return
}

// eqvDirective defines a textual substitution.
func (asm *Assembler) eqvDirective(args []Token) (err error) {
	if len(args) < 2 || args[0].Kind != TOKEN_IDENT {
		err = fmt.Errorf("%w: %v", ErrEqvSyntax, joinTokens(args))
		return
	}

	value := args[1:]
	if value[0].Kind == TOKEN_COMMA {
		value = value[1:]
	}
	if len(value) == 0 {
		err = fmt.Errorf("%w: %v", ErrEqvSyntax, joinTokens(args))
		return
	}

	unit := asm.unit
	name := args[0].Text
	if _, ok := unit.eqv[name]; ok {
		err = fmt.Errorf("%w: %v", ErrEqvDuplicate, name)
		return
	}

	unit.eqv[name] = slices.Clone(value)
	return
}

// macroDirective starts a macro definition. Parameters may be
// parenthesized, and are separated by commas or spaces.
func (asm *Assembler) macroDirective(line Line, args []Token) (err error) {
	if len(args) == 0 || args[0].Kind != TOKEN_IDENT {
		err = fmt.Errorf("%w: %v", ErrMacroSyntax, joinTokens(args))
		return
	}

	macro := &Macro{Name: args[0].Text, FromLine: line.LineNo}

	params := args[1:]
	if len(params) >= 2 && params[0].Kind == TOKEN_LPAREN && params[len(params)-1].Kind == TOKEN_RPAREN {
		params = params[1 : len(params)-1]
	}

	for _, tok := range params {
		switch tok.Kind {
		case TOKEN_COMMA:
		case TOKEN_PARAM:
			if slices.Contains(macro.Args, tok.Text) {
				err = fmt.Errorf("%w: %v: %v", ErrMacroSyntax, macro.Name, tok.Text)
				return
			}
			macro.Args = append(macro.Args, tok.Text)
		default:
			err = fmt.Errorf("%w: %v: %v", ErrMacroSyntax, macro.Name, tok.Text)
			return
		}
	}

	asm.unit.macro = macro
	return
}

// endMacro completes the macro being defined.
func (asm *Assembler) endMacro(line Line) {
	unit := asm.unit
	macro := unit.macro
	unit.macro = nil

	macro.ToLine = line.LineNo
	macro.findLabels()
	if !unit.macros.Add(macro) {
		asm.warn(line, line.Tokens[0].Column, fmt.Errorf("%w: %v", ErrMacroDuplicate, macro))
	}
}

// includeDirective assembles another file in place.
func (asm *Assembler) includeDirective(line Line, args []Token) (err error) {
	if len(args) != 1 || args[0].Kind != TOKEN_STRING {
		err = fmt.Errorf("%w: .include %v", ErrDirectiveSyntax, joinTokens(args))
		return
	}

	if asm.fsys == nil {
		err = fmt.Errorf("%w: %v", ErrIncludeUnavailable, args[0].Str)
		return
	}

	filename := path.Join(path.Dir(line.Filename), args[0].Str)
	unit := asm.unit
	if filename == unit.filename || slices.Contains(unit.includes, filename) {
		err = fmt.Errorf("%w: %v", ErrIncludeRecursion, filename)
		return
	}

	data, err := fs.ReadFile(asm.fsys, filename)
	if err != nil {
		return
	}

	unit.includes = append(unit.includes, filename)
	defer func() { unit.includes = unit.includes[:len(unit.includes)-1] }()

	asm.processLines(asm.readLines(filename, string(data)))
	return
}
