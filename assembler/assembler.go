// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package assembler

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"maps"
	"slices"
	"strings"

	"github.com/ezrec/mipsim/cpu"
	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/settings"
	"github.com/ezrec/mipsim/symbol"
)

// unit is the assembly state of one source file.
type unit struct {
	filename  string
	symbols   *symbol.Table
	macros    MacroPool
	eqv       map[string][]Token
	globals   []globalRef
	segment   string            // Current segment name.
	address   map[string]uint32 // Next address in each segment, shared by all units.
	autoAlign bool              // Align .half, .word, .float and .double.
	macro     *Macro            // Macro being defined.
	includes  []string          // Files being included.
}

type globalRef struct {
	line Line
	tok  Token
}

// forwardRef is a label reference to be resolved in the second pass.
type forwardRef struct {
	table   *symbol.Table
	address uint32
	inst    *cpu.Instruction // Instruction to patch; nil for data.
	field   int              // Operand field of the instruction.
	width   int              // Width of data.
	reloc   relocation
	symbol  string
	addend  int64
	line    Line
	column  int
	group   int // Pseudo instruction expansion, or 0.
}

// Assembler is a two pass macro assembler for MIPS32.
type Assembler struct {
	Verbose  bool               // If set, verbosely logs the assembler actions.
	Settings *settings.Settings // Policy flags; defaults if nil.
	FS       fs.FS              // Source of .include files for Parse.

	Warnings []*ErrAssembly // Warnings from the last assembly.

	predefine  map[string]string
	fsys       fs.FS
	extended   bool
	errors     *ErrorList
	config     *memory.Configuration
	prog       *cpu.Program
	unit       *unit
	units      []*unit
	forwards   []forwardRef
	expansions int
	pseudos    int
	extern     uint32
	address    map[string]uint32
}

// New creates an assembler with the given settings.
func New(s *settings.Settings) *Assembler {
	return &Assembler{Settings: s}
}

// Predefine defines an .eqv visible to every source file.
func (asm *Assembler) Predefine(name string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{name: value}
	} else {
		asm.predefine[name] = value
	}
}

type source struct {
	filename string
	text     string
}

// Parse assembles a single source.
func (asm *Assembler) Parse(filename string, input io.Reader) (prog *cpu.Program, err error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return
	}

	asm.fsys = asm.FS
	return asm.assemble([]source{{filename: filename, text: string(data)}})
}

// Assemble assembles one or more files from a file system into a single
// program. Each file has its own labels; labels declared with .globl are
// shared.
func (asm *Assembler) Assemble(fsys fs.FS, filenames ...string) (prog *cpu.Program, err error) {
	var sources []source
	for _, filename := range filenames {
		var data []byte
		data, err = fs.ReadFile(fsys, filename)
		if err != nil {
			return
		}
		sources = append(sources, source{filename: filename, text: string(data)})
	}

	asm.fsys = fsys
	return asm.assemble(sources)
}

func (asm *Assembler) assemble(sources []source) (prog *cpu.Program, err error) {
	s := asm.Settings
	if s == nil {
		s = settings.Default()
	}

	config, err := memory.LookupConfiguration(s.String(settings.MEMORY_CONFIGURATION))
	if err != nil {
		return
	}

	asm.config = config
	asm.extended = s.Bool(settings.EXTENDED_ASSEMBLER)
	asm.errors = &ErrorList{
		MaxErrors:         s.Int(settings.MAX_ERRORS),
		WarningsAreErrors: s.Bool(settings.WARNINGS_ARE_ERRORS),
	}
	asm.prog = cpu.NewProgram(config)
	asm.units = nil
	asm.forwards = nil
	asm.expansions = 0
	asm.extern = config.Base(memory.SEGMENT_EXTERN)
	asm.address = map[string]uint32{}
	for _, name := range []string{memory.SEGMENT_TEXT, memory.SEGMENT_DATA, memory.SEGMENT_KTEXT, memory.SEGMENT_KDATA} {
		asm.address[name] = config.Base(name)
	}

	for _, src := range sources {
		if asm.errors.Full() {
			break
		}
		asm.pass1(src.filename, asm.readLines(src.filename, src.text))
	}

	if !asm.errors.Full() {
		asm.pass2()
	}

	if s.Bool(settings.START_AT_MAIN) {
		asm.startAtMain()
	}

	asm.Warnings = asm.errors.Warnings
	if asm.errors.HasErrors() {
		err = asm.errors
		return
	}

	prog = asm.prog
	return
}

// readLines splits source text into tokenized lines.
func (asm *Assembler) readLines(filename string, text string) (lines []Line) {
	for n, raw := range strings.Split(text, "\n") {
		line := Line{Filename: filename, LineNo: n + 1, Text: strings.TrimRight(raw, "\r")}
		tokens, err := Tokenize(line.Text)
		if err != nil {
			column := 0
			if tokErr, ok := err.(*ErrToken); ok {
				column = tokErr.Column
			}
			asm.fail(line, column, err)
			continue
		}
		line.Tokens = tokens
		lines = append(lines, line)
	}
	return
}

func (asm *Assembler) newUnit(filename string) (u *unit) {
	u = &unit{
		filename:  filename,
		symbols:   symbol.NewTable(filename, asm.prog.Symbols),
		eqv:       map[string][]Token{},
		segment:   memory.SEGMENT_TEXT,
		address:   asm.address,
		autoAlign: true,
	}

	for _, name := range slices.Sorted(maps.Keys(asm.predefine)) {
		tokens, err := Tokenize(asm.predefine[name])
		if err != nil {
			asm.fail(Line{Filename: "(predefine)", Text: name}, 0, err)
			continue
		}
		u.eqv[name] = tokens
	}

	return
}

// pass1 assembles one file, leaving forward references for pass 2.
func (asm *Assembler) pass1(filename string, lines []Line) {
	asm.unit = asm.newUnit(filename)
	asm.units = append(asm.units, asm.unit)

	asm.processLines(lines)

	if asm.unit.macro != nil {
		macro := asm.unit.macro
		asm.fail(Line{Filename: filename, LineNo: macro.FromLine}, 0, fmt.Errorf("%w: %v", ErrMacroLonely, macro.Name))
		asm.unit.macro = nil
	}

	asm.exportGlobals()
}

func (asm *Assembler) processLines(lines []Line) {
	for _, line := range lines {
		if asm.errors.Full() {
			return
		}
		asm.processLine(line)
	}
}

// isText returns true for the text segments.
func isText(segment string) bool {
	return segment == memory.SEGMENT_TEXT || segment == memory.SEGMENT_KTEXT
}

// processLine assembles one line.
func (asm *Assembler) processLine(line Line) {
	if asm.Verbose {
		log.Printf("%v:%d: %v", line.Filename, line.LineNo, line.Text)
	}

	unit := asm.unit
	tokens := line.Tokens
	if len(tokens) == 0 {
		return
	}

	first := tokens[0]
	directive := ""
	if first.Kind == TOKEN_DIRECTIVE {
		directive = strings.ToLower(first.Text)
	}

	// Collect the body of a macro.
	if unit.macro != nil {
		switch directive {
		case ".end_macro":
			asm.endMacro(line)
		case ".macro":
			asm.fail(line, first.Column, ErrMacroNesting)
		default:
			unit.macro.Lines = append(unit.macro.Lines, line)
		}
		return
	}

	switch directive {
	case ".macro":
	case ".eqv":
		if len(tokens) > 2 {
			tokens = append(tokens[:2:2], asm.substitute(tokens[2:])...)
		}
	default:
		tokens = asm.substitute(tokens)
	}

	tokens, err := asm.evaluate(tokens, line.LineNo)
	if err != nil {
		asm.fail(line, first.Column, err)
		return
	}

	for len(tokens) >= 2 && tokens[0].Kind == TOKEN_IDENT && tokens[1].Kind == TOKEN_COLON {
		asm.defineLabel(line, tokens[0])
		tokens = tokens[2:]
	}

	if len(tokens) == 0 {
		return
	}

	switch tokens[0].Kind {
	case TOKEN_DIRECTIVE:
		asm.directive(line, tokens)
	case TOKEN_IDENT:
		if macro, args, ok := asm.matchMacro(tokens); ok {
			asm.expandMacro(line, tokens[0].Column, macro, args)
			return
		}
		asm.instruction(line, tokens)
	default:
		asm.fail(line, tokens[0].Column, fmt.Errorf("%w: %v", ErrInstructionInvalid, tokens[0].Text))
	}
}

// fail reports an error at a source location.
func (asm *Assembler) fail(line Line, column int, err error) {
	if line.Macro != nil {
		err = &ErrMacro{Macro: line.Macro.Name, Line: line.BodyLineNo, Err: err}
	}
	asm.errors.Add(&ErrAssembly{Filename: line.Filename, LineNo: line.LineNo, Column: column, Err: err})
}

// warn reports a warning at a source location.
func (asm *Assembler) warn(line Line, column int, err error) {
	if line.Macro != nil {
		err = &ErrMacro{Macro: line.Macro.Name, Line: line.BodyLineNo, Err: err}
	}
	asm.errors.Warn(&ErrAssembly{Filename: line.Filename, LineNo: line.LineNo, Column: column, Err: err})
}

// defineLabel binds a label to the current address.
func (asm *Assembler) defineLabel(line Line, tok Token) {
	unit := asm.unit

	if cpu.IsMnemonic(tok.Text) {
		asm.fail(line, tok.Column, fmt.Errorf("%w: %v", ErrLabelSyntax, tok.Text))
		return
	}

	address := unit.address[unit.segment]
	err := unit.symbols.Add(tok.Text, address, !isText(unit.segment))
	if err != nil {
		asm.fail(line, tok.Column, err)
	}
}

// exportGlobals moves the unit's .globl labels to the global table.
func (asm *Assembler) exportGlobals() {
	unit := asm.unit
	for _, ref := range unit.globals {
		sym, ok := unit.symbols.Lookup(ref.tok.Text)
		if !ok {
			asm.fail(ref.line, ref.tok.Column, fmt.Errorf("%w: %v", ErrGlobalUndefined, ref.tok.Text))
			continue
		}
		unit.symbols.Remove(sym.Name)
		err := asm.prog.Symbols.Add(sym.Name, sym.Address, sym.IsData)
		if err != nil {
			asm.fail(ref.line, ref.tok.Column, err)
		}
	}
}

// matchMacro finds the macro invoked by a line, by name and argument
// count. Arguments may be parenthesized.
func (asm *Assembler) matchMacro(tokens []Token) (macro *Macro, args [][]Token, ok bool) {
	pool := &asm.unit.macros
	name := tokens[0].Text
	if !pool.MatchesAnyMacroName(name) {
		return
	}

	rest := tokens[1:]
	if len(rest) >= 2 && rest[0].Kind == TOKEN_LPAREN && rest[len(rest)-1].Kind == TOKEN_RPAREN {
		rest = rest[1 : len(rest)-1]
	}
	args = splitOperands(rest)

	macro, ok = pool.GetMatchingMacro(name, len(args))
	return
}

// expandMacro assembles the body of a macro invocation.
func (asm *Assembler) expandMacro(line Line, column int, macro *Macro, args [][]Token) {
	pool := &asm.unit.macros
	if pool.PushOnCallStack(macro.Name) {
		asm.fail(line, column, fmt.Errorf("%w: %v", ErrMacroRecursion, strings.Join(append(pool.CallStack(), macro.Name), " -> ")))
		return
	}
	defer pool.PopOnCallStack()

	asm.expansions++
	lines, err := macro.Expand(args, asm.expansions)
	if err != nil {
		asm.fail(line, column, err)
		return
	}

	for _, body := range lines {
		body.BodyLineNo = body.LineNo
		body.Macro = macro
		body.Filename = line.Filename
		body.LineNo = line.LineNo
		if asm.errors.Full() {
			return
		}
		asm.processLine(body)
	}
}

// instruction assembles a basic or pseudo instruction.
func (asm *Assembler) instruction(line Line, tokens []Token) {
	unit := asm.unit
	mnemonic := tokens[0].Text

	if !isText(unit.segment) {
		asm.fail(line, tokens[0].Column, fmt.Errorf("%w: %v", ErrInstructionSegment, mnemonic))
		return
	}

	items, err := parseOperands(tokens[1:])
	if err != nil {
		asm.fail(line, tokens[0].Column, err)
		return
	}

	for _, inst := range cpu.Lookup(mnemonic) {
		if matches(items, inst.Syntax) {
			asm.emit(line, tokens[0].Column, inst, values(items))
			return
		}
	}

	for _, ps := range cpu.LookupPseudo(mnemonic) {
		if !matches(items, ps.Syntax) {
			continue
		}
		if !asm.extended {
			asm.fail(line, tokens[0].Column, fmt.Errorf("%w: %v", ErrExtendedDisabled, ps.Example))
			return
		}
		asm.expandPseudo(line, tokens[0].Column, ps, values(items))
		return
	}

	if !cpu.IsMnemonic(mnemonic) {
		asm.fail(line, tokens[0].Column, fmt.Errorf("%w: %v", ErrInstructionInvalid, mnemonic))
		return
	}

	asm.fail(line, tokens[0].Column, fmt.Errorf("%w: %v", ErrOperandInvalid, joinTokens(tokens)))
}

// expandPseudo assembles the basic instructions of a pseudo instruction.
// Errors are reported against the source line: symbols at their own
// column, everything else at the mnemonic.
func (asm *Assembler) expandPseudo(line Line, column int, ps *cpu.Pseudo, vals []*item) {
	texts := make([]string, len(vals))
	columns := map[string]int{}
	for n, it := range vals {
		texts[n] = it.Text()
		if it.kind == ITEM_RELOC {
			it = it.relocInner
		}
		if _, ok := columns[it.symbol]; it.kind == ITEM_SYMBOL && !ok {
			columns[it.symbol] = it.column
		}
	}

	basics, err := ps.Expand(texts)
	if err != nil {
		asm.fail(line, column, err)
		return
	}

	asm.pseudos++
	group := asm.pseudos
	start := len(asm.forwards)
	defer func() {
		for n := range asm.forwards[start:] {
			asm.forwards[start+n].group = group
		}
	}()

	for _, basic := range basics {
		err = asm.emitBasic(line, column, columns, basic)
		if err != nil {
			asm.fail(line, column, fmt.Errorf("%v: %w", basic, err))
			return
		}
	}
}

// emitBasic assembles one line of basic assembly from an expansion.
// Tokens take the column of the matching source symbol, or column.
func (asm *Assembler) emitBasic(line Line, column int, columns map[string]int, basic string) (err error) {
	tokens, err := Tokenize(basic)
	if err != nil {
		return
	}

	for n, tok := range tokens {
		tokens[n].Column = column
		if source, ok := columns[tok.Text]; ok && tok.Kind == TOKEN_IDENT {
			tokens[n].Column = source
		}
	}

	items, err := parseOperands(tokens[1:])
	if err != nil {
		return
	}

	for _, inst := range cpu.Lookup(tokens[0].Text) {
		if matches(items, inst.Syntax) {
			asm.emit(line, column, inst, values(items))
			return
		}
	}

	err = fmt.Errorf("%w: %v", ErrInstructionInvalid, basic)
	return
}

// emit encodes an instruction at the current address.
func (asm *Assembler) emit(line Line, column int, inst *cpu.Instruction, vals []*item) {
	unit := asm.unit
	address := unit.address[unit.segment]

	if seg, ok := asm.config.SegmentOf(address); !ok || seg.Name != unit.segment {
		asm.fail(line, column, &memory.AddressError{Address: address, Access: memory.ACCESS_STORE, Err: ErrSegmentRange})
		return
	}

	op := make([]int32, len(vals))
	var refs []forwardRef
	for n, it := range vals {
		value, ref, err := asm.fieldValue(inst, n, it, address)
		if err != nil {
			asm.fail(line, it.column, err)
			return
		}
		if ref != nil {
			ref.line = line
			refs = append(refs, *ref)
		}
		op[n] = value
	}

	word, err := inst.Encode(op...)
	if err != nil {
		asm.fail(line, column, err)
		return
	}

	stmt, err := cpu.NewStatement(address, word)
	if err != nil {
		asm.fail(line, column, err)
		return
	}
	stmt.Filename = line.Filename
	stmt.LineNo = line.LineNo
	stmt.Source = strings.TrimSpace(line.Text)

	err = asm.prog.Add(stmt)
	if err != nil {
		asm.fail(line, column, err)
		return
	}

	asm.forwards = append(asm.forwards, refs...)
	unit.address[unit.segment] = address + 4
}

// labelRelocation is how a label operand of an instruction is encoded.
func labelRelocation(inst *cpu.Instruction, field int) relocation {
	if inst.Operands()[field] != cpu.OPERAND_LABEL {
		return RELOC_NONE
	}
	switch inst.Format {
	case cpu.FORMAT_J:
		return RELOC_JUMP
	case cpu.FORMAT_I_BRANCH:
		return RELOC_BRANCH
	}
	return RELOC_NONE
}

// fieldValue computes the value of an operand field. Labels not yet
// defined in the unit produce a forward reference, and a zero value.
func (asm *Assembler) fieldValue(inst *cpu.Instruction, field int, it *item, address uint32) (value int32, ref *forwardRef, err error) {
	switch it.kind {
	case ITEM_GPR, ITEM_FPR:
		value = int32(it.number)
	case ITEM_INTEGER:
		value, err = labelRelocation(inst, field).Apply(address, uint32(it.value))
	case ITEM_SYMBOL:
		value, ref, err = asm.resolve(address, labelRelocation(inst, field), it.symbol, it.value)
	case ITEM_RELOC:
		inner := it.relocInner
		if inner.kind == ITEM_INTEGER {
			value, err = it.reloc.Apply(address, uint32(inner.value))
		} else {
			value, ref, err = asm.resolve(address, it.reloc, inner.symbol, inner.value)
			if ref != nil {
				ref.column = inner.column
			}
		}
	default:
		err = ErrOperandInvalid
	}

	if ref != nil {
		ref.inst = inst
		ref.field = field
		if ref.column == 0 {
			ref.column = it.column
		}
	}

	return
}

// resolve computes a relocated label value, if the label is known.
func (asm *Assembler) resolve(address uint32, reloc relocation, name string, addend int64) (value int32, ref *forwardRef, err error) {
	table := asm.unit.symbols
	if sym, ok := lookup(table, name, false); ok {
		value, err = reloc.Apply(address, sym.Address+uint32(addend))
		return
	}

	ref = &forwardRef{
		table:   table,
		address: address,
		reloc:   reloc,
		symbol:  name,
		addend:  addend,
	}
	return
}

// pass2 resolves the forward references of every unit.
// A symbol missing from a pseudo instruction is reported once.
func (asm *Assembler) pass2() {
	type missing struct {
		group  int
		symbol string
	}
	reported := map[missing]bool{}

	for _, ref := range asm.forwards {
		if asm.errors.Full() {
			return
		}

		sym, ok := lookup(ref.table, ref.symbol, true)
		if !ok {
			key := missing{ref.group, ref.symbol}
			if ref.group == 0 || !reported[key] {
				reported[key] = true
				asm.fail(ref.line, ref.column, ErrSymbolNotFound(ref.symbol))
			}
			continue
		}
		target := sym.Address + uint32(ref.addend)

		if ref.inst == nil {
			_, err := asm.prog.Image.Set(ref.address, ref.width, target)
			if err != nil {
				log.Printf("assembler: %v:%d: data patch: %v", ref.line.Filename, ref.line.LineNo, err)
			}
			continue
		}

		value, err := ref.reloc.Apply(ref.address, target)
		if err != nil {
			asm.fail(ref.line, ref.column, err)
			continue
		}

		stmt, ok := asm.prog.Statement(ref.address)
		if !ok {
			log.Printf("assembler: %v:%d: no statement at 0x%08x to patch", ref.line.Filename, ref.line.LineNo, ref.address)
			continue
		}

		word, err := ref.inst.Patch(stmt.Word, ref.field, value)
		if err != nil {
			asm.fail(ref.line, ref.column, err)
			continue
		}

		err = asm.prog.Patch(ref.address, word)
		if err != nil {
			log.Printf("assembler: %v:%d: patch: %v", ref.line.Filename, ref.line.LineNo, err)
		}
	}
}

// startAtMain sets the program entry to the 'main' label, preferring a
// global definition.
func (asm *Assembler) startAtMain() {
	if sym, ok := asm.prog.Symbols.Lookup("main"); ok {
		asm.prog.Entry = sym.Address
		return
	}

	for _, unit := range asm.units {
		if sym, ok := unit.symbols.Lookup("main"); ok {
			asm.prog.Entry = sym.Address
			return
		}
	}
}

// Units returns the local label tables of the last assembly.
func (asm *Assembler) Units() (tables []*symbol.Table) {
	for _, unit := range asm.units {
		tables = append(tables, unit.symbols)
	}
	return
}
