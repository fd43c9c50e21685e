package assembler

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/mipsim/cpu"
	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/register"
	"github.com/ezrec/mipsim/settings"
	"github.com/ezrec/mipsim/symbol"
)

const (
	textBase = 0x00400000
	dataBase = 0x10010000
)

// assemble a source, requiring success.
func assemble(t *testing.T, lines ...string) *cpu.Program {
	t.Helper()
	prog, err := New(nil).Parse("test.asm", strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return prog
}

// words returns the encoded words of a program, in address order.
func words(prog *cpu.Program) (out []uint32) {
	for _, word := range prog.Words() {
		out = append(out, word)
	}
	return
}

// errorList extracts the error list from an assembly error.
func errorList(t *testing.T, err error) *ErrorList {
	t.Helper()
	var list *ErrorList
	require.ErrorAs(t, err, &list)
	return list
}

func TestAssembler_Empty(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t, "")
	assert.Empty(prog.Statements)
	assert.Equal(uint32(textBase), prog.Entry)
}

func TestAssembler_Basic(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".text",
		"main: addi $t0,$zero,5",
		"      add  $t1, $t0, $t0  # double",
	)

	assert.Equal([]uint32{0x20080005, 0x01084820}, words(prog))

	stmt, ok := prog.Statement(textBase + 4)
	require.True(t, ok)
	assert.Equal("test.asm", stmt.Filename)
	assert.Equal(3, stmt.LineNo)
	assert.Equal("add  $t1, $t0, $t0  # double", stmt.Source)

	word, err := prog.Image.Word(textBase)
	assert.NoError(err)
	assert.Equal(uint32(0x20080005), word)
}

func TestAssembler_DuplicateLabel(t *testing.T) {
	assert := assert.New(t)

	_, err := New(nil).Parse("dup.asm", strings.NewReader("main: nop\n  main: nop"))
	list := errorList(t, err)
	require.Len(t, list.Errors, 1)

	dup := list.Errors[0]
	assert.Equal("dup.asm", dup.Filename)
	assert.Equal(2, dup.LineNo)
	assert.Equal(3, dup.Column)
	assert.Contains(dup.Error(), `label "main" already defined`)

	var labelErr symbol.ErrLabelDuplicate
	assert.ErrorAs(err, &labelErr)
}

func TestAssembler_ForwardReferences(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"beq $t0,$t1,end",
		"j end",
		"end: nop",
	)

	assert.Equal([]uint32{0x11090001, 0x08100002, 0x00000000}, words(prog))
}

func TestAssembler_BackwardReferences(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"top: nop",
		"bne $t0,$zero,top",
		"jal top",
	)

	assert.Equal([]uint32{0x00000000, 0x1500fffe, 0x0c100000}, words(prog))
}

func TestAssembler_MissingSymbol(t *testing.T) {
	assert := assert.New(t)

	_, err := New(nil).Parse("missing.asm", strings.NewReader("j nowhere\nnop\nbeqz $t0,nowhere"))
	assert.ErrorIs(err, symbol.ErrSymbolMissing)

	list := errorList(t, err)
	require.Len(t, list.Errors, 2)
	assert.Equal(1, list.Errors[0].LineNo)
	assert.Equal(3, list.Errors[1].LineNo)
	for _, item := range list.Errors {
		assert.Contains(item.Error(), `Symbol "nowhere" not found in symbol table.`)
	}
}

func TestAssembler_PseudoMissingSymbol(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		source string
		column int
	}{
		{"la $t0, nowhere", 9},
		{"la $t0,nowhere+4($t1)", 8},
		{"lw $t1,nowhere", 8},
		{"  b nowhere", 5},
		{"lui $t0,%hi(nowhere)", 13},
	}

	for _, entry := range table {
		_, err := New(nil).Parse("missing.asm", strings.NewReader(entry.source))
		assert.ErrorIs(err, symbol.ErrSymbolMissing, entry.source)

		list := errorList(t, err)
		if !assert.Len(list.Errors, 1, entry.source) {
			continue
		}
		assert.Equal(1, list.Errors[0].LineNo, entry.source)
		assert.Equal(entry.column, list.Errors[0].Column, entry.source)
	}

	// Each occurrence is reported.
	_, err := New(nil).Parse("missing.asm", strings.NewReader("la $t0,nowhere\nla $t1,nowhere"))
	list := errorList(t, err)
	require.Len(t, list.Errors, 2)
	assert.Equal(1, list.Errors[0].LineNo)
	assert.Equal(2, list.Errors[1].LineNo)
}

func TestAssembler_PseudoErrorColumn(t *testing.T) {
	assert := assert.New(t)

	_, err := New(nil).Parse("pseudo.asm", strings.NewReader("  mfc1.d $ra,$f2"))
	assert.ErrorIs(err, register.ErrInvalidRegisterAccess)

	list := errorList(t, err)
	require.Len(t, list.Errors, 1)
	assert.Equal(3, list.Errors[0].Column)
	assert.NotContains(list.Errors[0].Error(), "NR1")
}

func TestAssembler_Data(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".data",
		"x: .word 1, 2",
		"y: .byte 3",
		"z: .word x+4",
		"p: .word q",
		"q: .half -1, 0x1234",
		"r: .word 7:3",
	)

	image := prog.Image
	expect := map[uint32]uint32{
		dataBase + 0x00: 1,
		dataBase + 0x04: 2,
		dataBase + 0x08: 3,
		dataBase + 0x0c: dataBase + 4,
		dataBase + 0x10: dataBase + 0x14,
		dataBase + 0x14: 0x1234ffff,
		dataBase + 0x18: 7,
		dataBase + 0x1c: 7,
		dataBase + 0x20: 7,
	}
	for address, value := range expect {
		word, err := image.Word(address)
		assert.NoError(err)
		assert.Equal(value, word, "0x%08x", address)
	}

	_, ok := image.RawWord(dataBase + 0x24)
	assert.False(ok)
}

func TestAssembler_Alignment(t *testing.T) {
	assert := assert.New(t)

	asm := New(nil)
	prog, err := asm.Parse("align.asm", strings.NewReader(strings.Join([]string{
		".data",
		".byte 1",
		"w: .word 2",
		".byte 3",
		".align 0",
		"u: .word 0x44332211",
	}, "\n")))
	require.NoError(t, err)

	table := asm.Units()[0]
	sym, ok := table.Lookup("w")
	assert.True(ok)
	assert.Equal(uint32(dataBase+4), sym.Address)
	assert.True(sym.IsData)

	sym, ok = table.Lookup("u")
	assert.True(ok)
	assert.Equal(uint32(dataBase+9), sym.Address)

	word, err := prog.Image.Word(dataBase + 8)
	assert.NoError(err)
	assert.Equal(uint32(0x33221103), word)
}

func TestAssembler_Strings(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".data",
		`.ascii "ab"`,
		`.asciiz "c\n"`,
		".space 3",
		".byte 'z'",
	)

	var text []byte
	for address := uint32(dataBase); address < dataBase+8; address++ {
		b, err := prog.Image.Byte(address)
		require.NoError(t, err)
		text = append(text, b)
	}
	assert.Equal([]byte("abc\n\x00\x00\x00\x00"), text)

	b, err := prog.Image.Byte(dataBase + 8)
	assert.NoError(err)
	assert.Equal(byte('z'), b)
}

func TestAssembler_Floats(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".data",
		".float 1.5, -2",
		".double 1.5",
	)

	word, _ := prog.Image.Word(dataBase)
	assert.Equal(math.Float32bits(1.5), word)
	word, _ = prog.Image.Word(dataBase + 4)
	assert.Equal(math.Float32bits(-2), word)

	low, _ := prog.Image.Word(dataBase + 8)
	high, _ := prog.Image.Word(dataBase + 12)
	assert.Equal(uint32(0), low)
	assert.Equal(uint32(0x3ff80000), high)
}

func TestAssembler_Pseudo(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".data",
		"v: .word 0",
		".text",
		"la $t0,v",
		"li $t1,1",
		"li $t2,0x12345678",
	)

	assert.Equal([]uint32{
		0x3c011001, // lui $1,0x1001
		0x34280000, // ori $8,$1,0
		0x24090001, // addiu $9,$0,1
		0x3c011234, // lui $1,0x1234
		0x342a5678, // ori $10,$1,0x5678
	}, words(prog))

	lines := []int{}
	for _, stmt := range prog.Sorted() {
		lines = append(lines, stmt.LineNo)
	}
	assert.Equal([]int{4, 4, 5, 6, 6}, lines)
}

func TestAssembler_PseudoForward(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"lw $t0,value",
		"blt $t0,$t1,done",
		"done: nop",
		".data",
		".space 0x8000",
		"value: .word 1",
	)

	// %hi is adjusted for the sign of %lo: 0x10018000 splits into
	// 0x1002 and -0x8000.
	assert.Equal([]uint32{
		0x3c011002, // lui $1,0x1002
		0x8c288000, // lw $8,-32768($1)
		0x0109082a, // slt $1,$8,$9
		0x14200000, // bne $1,$0,done
		0x00000000,
	}, words(prog))
}

func TestAssembler_ExtendedDisabled(t *testing.T) {
	s := settings.Default()
	require.NoError(t, s.SetBool(settings.EXTENDED_ASSEMBLER, false))

	_, err := New(s).Parse("basic.asm", strings.NewReader("addi $t0,$t0,1\nli $t0,1"))
	assert.ErrorIs(t, err, ErrExtendedDisabled)
	assert.Len(t, errorList(t, err).Errors, 1)
}

func TestAssembler_Operands(t *testing.T) {
	table := [](struct {
		source string
		err    error
	}){
		{"frob $t0", ErrInstructionInvalid},
		{"syscall $t0", ErrOperandInvalid},
		{"addi $t0,$t1,$t2", ErrOperandInvalid},
		{"add $t0,$t1,$bogus", ErrRegisterInvalid},
		{".data\nnop", ErrInstructionSegment},
		{".word 1", ErrDirectiveSegment},
		{".bogus", ErrDirectiveInvalid},
		{".globl nothing", ErrGlobalUndefined},
		{".text 0x10010000", ErrSegmentRange},
		{"add: nop", ErrLabelSyntax},
		{".eqv X 1\n.eqv X 2", ErrEqvDuplicate},
		{"li $t0,$(1/0)", ErrExpression},
		{".include \"other.asm\"", ErrIncludeUnavailable},
	}

	for _, entry := range table {
		_, err := New(nil).Parse("ops.asm", strings.NewReader(entry.source))
		assert.ErrorIs(t, err, entry.err, entry.source)
	}
}

func TestAssembler_Warnings(t *testing.T) {
	assert := assert.New(t)

	source := ".data\n.byte 300\n.set noreorder"

	asm := New(nil)
	_, err := asm.Parse("warn.asm", strings.NewReader(source))
	assert.NoError(err)
	require.Len(t, asm.Warnings, 2)
	assert.ErrorIs(asm.Warnings[0], ErrValueTruncated)
	assert.ErrorIs(asm.Warnings[1], ErrSetIgnored)

	s := settings.Default()
	require.NoError(t, s.SetBool(settings.WARNINGS_ARE_ERRORS, true))
	_, err = New(s).Parse("warn.asm", strings.NewReader(source))
	assert.ErrorIs(err, ErrValueTruncated)
	assert.ErrorIs(err, ErrSetIgnored)
}

func TestAssembler_MaxErrors(t *testing.T) {
	assert := assert.New(t)

	s := settings.Default()
	require.NoError(t, s.SetInt(settings.MAX_ERRORS, 2))

	_, err := New(s).Parse("many.asm", strings.NewReader("bad1\nbad2\nbad3\nbad4"))
	assert.ErrorIs(err, ErrTooManyErrors)

	list := errorList(t, err)
	assert.Len(list.Errors, 3)
	assert.True(list.Full())
	assert.Equal(2, list.Errors[2].LineNo)
}

func TestAssembler_Macros(t *testing.T) {
	assert := assert.New(t)

	asm := New(nil)
	prog, err := asm.Parse("macro.asm", strings.NewReader(strings.Join([]string{
		".macro inc (%r)",
		"addi %r,%r,1",
		".end_macro",
		".macro spin",
		"loop: j loop",
		".end_macro",
		"inc($t0)",
		"inc $t1",
		"spin",
		"spin",
	}, "\n")))
	require.NoError(t, err)

	assert.Equal([]uint32{0x21080001, 0x21290001, 0x08100002, 0x08100003}, words(prog))

	stmt, ok := prog.Statement(textBase + 4)
	require.True(t, ok)
	assert.Equal(8, stmt.LineNo)

	table := asm.Units()[0]
	for _, name := range []string{"loop_M3", "loop_M4"} {
		_, ok := table.Lookup(name)
		assert.True(ok, name)
	}
}

func TestAssembler_MacroErrorLocation(t *testing.T) {
	assert := assert.New(t)

	_, err := New(nil).Parse("macro.asm", strings.NewReader(".macro oops\nnop\nfrob\n.end_macro\n\noops"))

	var macroErr *ErrMacro
	require.ErrorAs(t, err, &macroErr)
	assert.Equal("oops", macroErr.Macro)
	assert.Equal(3, macroErr.Line)
	assert.ErrorIs(err, ErrInstructionInvalid)
	assert.Equal(6, errorList(t, err).Errors[0].LineNo)

	_, err = New(nil).Parse("macro.asm", strings.NewReader(".macro r\n   r\n.end_macro\n  r"))
	assert.ErrorIs(err, ErrMacroRecursion)
	list := errorList(t, err)
	require.Len(t, list.Errors, 1)
	assert.Equal(4, list.Errors[0].LineNo)
	assert.Equal(4, list.Errors[0].Column)
}

func TestAssembler_Eqv(t *testing.T) {
	assert := assert.New(t)

	asm := New(nil)
	asm.Predefine("EXIT", "10")
	prog, err := asm.Parse("eqv.asm", strings.NewReader(strings.Join([]string{
		".eqv COUNT 12",
		".eqv TEMP $t3",
		"addi TEMP,$zero,COUNT",
		"addi $v0,$zero,EXIT",
		"addi $t0,$zero,$(COUNT*2+LINENO)",
	}, "\n")))
	require.NoError(t, err)

	assert.Equal([]uint32{0x200b000c, 0x2002000a, 0x2008001d}, words(prog))
}

func TestAssembler_Extern(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".extern first 6",
		".extern second 4",
		"la $t0,second",
	)

	sym, ok := prog.Symbols.Lookup("second")
	assert.True(ok)
	assert.Equal(uint32(0x10000006), sym.Address)
	assert.Equal([]uint32{0x3c011000, 0x34280006}, words(prog))
}

func TestAssembler_Include(t *testing.T) {
	assert := assert.New(t)

	fsys := fstest.MapFS{
		"src/main.asm": {Data: []byte(".include \"lib.asm\"\nmain: jal f\n")},
		"src/lib.asm":  {Data: []byte("f: jr $ra\n")},
		"loop.asm":     {Data: []byte(".include \"loop.asm\"\n")},
	}

	prog, err := New(nil).Assemble(fsys, "src/main.asm")
	require.NoError(t, err)
	assert.Equal([]uint32{0x03e00008, 0x0c100000}, words(prog))

	stmt, ok := prog.Statement(textBase)
	require.True(t, ok)
	assert.Equal("src/lib.asm", stmt.Filename)
	assert.Equal(1, stmt.LineNo)

	_, err = New(nil).Assemble(fsys, "loop.asm")
	assert.ErrorIs(err, ErrIncludeRecursion)
}

func TestAssembler_MultipleFiles(t *testing.T) {
	assert := assert.New(t)

	fsys := fstest.MapFS{
		"a.asm": {Data: []byte("nop\n.globl main\nmain: jal helper\nlocal: nop\n")},
		"b.asm": {Data: []byte(".globl helper\nhelper: jr $ra\nlocal: j local\n")},
	}

	s := settings.Default()
	require.NoError(t, s.SetBool(settings.START_AT_MAIN, true))

	asm := New(s)
	prog, err := asm.Assemble(fsys, "a.asm", "b.asm")
	require.NoError(t, err)

	assert.Equal(uint32(textBase+4), prog.Entry)

	helper, ok := prog.Symbols.Lookup("helper")
	assert.True(ok)
	assert.Equal(uint32(textBase+12), helper.Address)
	assert.Equal([]uint32{0x00000000, 0x0c100003, 0x00000000, 0x03e00008, 0x08100004}, words(prog))

	units := asm.Units()
	require.Len(t, units, 2)
	assert.Equal(1, units[0].Len())
	assert.Equal(1, units[1].Len())
}

func TestAssembler_Run(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".data",
		`msg: .asciiz "sum="`,
		".text",
		"main: la $a0,msg",
		"      li $v0,4",
		"      syscall",
		"      li $t0,0",
		"      li $t1,5",
		"loop: add $t0,$t0,$t1",
		"      addi $t1,$t1,-1",
		"      bgtz $t1,loop",
		"      move $a0,$t0",
		"      li $v0,1",
		"      syscall",
		"      li $a0,3",
		"      li $v0,17",
		"      syscall",
	)

	var out bytes.Buffer
	proc := cpu.NewCpu(memory.DEFAULT)
	proc.Stdout = &out
	proc.Load(prog)

	var err error
	for range 1000 {
		err = proc.Tick()
		if err != nil {
			break
		}
	}

	var exit *cpu.ErrExit
	require.True(t, errors.As(err, &exit), "%v", err)
	assert.Equal(3, exit.Code)
	assert.Equal("sum=15", out.String())
}
