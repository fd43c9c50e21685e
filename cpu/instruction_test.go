package cpu

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleOperands picks representative, non-default values for an
// instruction's operands.
func sampleOperands(inst *Instruction) (op []int32) {
	op = []int32{}
	for _, kind := range inst.Operands() {
		var value int32
		switch kind {
		case OPERAND_REGISTER:
			value = 9
		case OPERAND_FP_REGISTER:
			value = 2
		case OPERAND_IMM3:
			value = 5
		case OPERAND_IMM5:
			value = 17
		case OPERAND_IMM16:
			value = -300
		case OPERAND_IMM16U:
			value = 40000
		case OPERAND_LABEL:
			if inst.Format == FORMAT_J {
				value = 0x100010
			} else {
				value = -3
			}
		}
		op = append(op, value)
	}
	return
}

func TestInstructions_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, inst := range Instructions() {
		op := sampleOperands(inst)
		word, err := inst.Encode(op...)
		if !assert.NoError(err, inst.Example) {
			continue
		}

		decoded, fields, err := Decode(word)
		if !assert.NoError(err, inst.Example) {
			continue
		}
		assert.Equal(inst, decoded, "%v: 0x%08x decoded as %v", inst.Example, word, decoded.Example)
		assert.Equal(op, fields[:len(op)], inst.Example)

		again, err := decoded.Encode(fields[:len(decoded.Operands())]...)
		assert.NoError(err, inst.Example)
		assert.Equal(word, again, inst.Example)
	}
}

func TestInstructions_Unique(t *testing.T) {
	assert := assert.New(t)

	seen := map[string]bool{}
	for _, inst := range Instructions() {
		assert.False(seen[inst.Example], inst.Example)
		seen[inst.Example] = true
		assert.NotEmpty(inst.Description, inst.Example)
		assert.NotNil(inst.Exec, inst.Example)
	}
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		word  uint32
		basic string
	}{
		{0x00000000, "nop"},
		{0x2149fff6, "addi $9,$10,-10"},
		{0x012a4020, "add $8,$9,$10"},
		{0x8d090004, "lw $9,4($8)"},
		{0x3c011001, "lui $1,4097"},
		{0x0000000c, "syscall"},
		{0x0000000d, "break"},
		{0x0000064d, "break 25"},
		{0x01200009, "jalr $0,$9"},
		{0x0120f809, "jalr $9"},
		{0x46020800, "add.s $f0,$f1,$f2"},
		{0x42000018, "eret"},
	}

	for _, entry := range table {
		inst, op, err := Decode(entry.word)
		if !assert.NoError(err, entry.basic) {
			continue
		}
		assert.Equal(entry.basic, inst.Basic(0x00400000, op), "0x%08x", entry.word)
	}

	_, _, err := Decode(0xfc000000)
	assert.Equal(ErrDecode(0xfc000000), err)
	assert.True(errors.Is(err, ErrInstructionReserved))
}

func TestBasic_Jump(t *testing.T) {
	assert := assert.New(t)

	inst := Lookup("j")[0]
	word, err := inst.Encode(0x100004)
	assert.NoError(err)
	assert.Equal(uint32(0x08100004), word)

	_, op, err := Decode(word)
	assert.NoError(err)
	assert.Equal("j 0x00400010", inst.Basic(0x00400000, op))
}

func TestEncode_Range(t *testing.T) {
	assert := assert.New(t)

	addi := Lookup("addi")[0]
	_, err := addi.Encode(8, 9, 40000)
	assert.ErrorIs(err, ErrOperandRange)

	_, err = addi.Encode(8, 9)
	assert.ErrorIs(err, ErrOperandCount)

	andi := Lookup("andi")[0]
	_, err = andi.Encode(8, 9, -1)
	assert.ErrorIs(err, ErrOperandRange)

	word, err := andi.Encode(8, 9, 0xffff)
	assert.NoError(err)
	assert.Equal(uint32(0x3128ffff), word)

	sll := Lookup("sll")[0]
	_, err = sll.Encode(8, 9, 32)
	assert.ErrorIs(err, ErrOperandRange)
}

func TestBranchOffset(t *testing.T) {
	assert := assert.New(t)

	offset, err := BranchOffset(0x00400000, 0x0040000c)
	assert.NoError(err)
	assert.Equal(int32(2), offset)

	offset, err = BranchOffset(0x00400010, 0x00400000)
	assert.NoError(err)
	assert.Equal(int32(-5), offset)

	_, err = BranchOffset(0x00400000, 0x00400002)
	assert.ErrorIs(err, ErrOperandRange)

	_, err = BranchOffset(0x00400000, 0x00480000)
	assert.ErrorIs(err, ErrOperandRange)
}

func TestJumpField(t *testing.T) {
	assert := assert.New(t)

	field, err := JumpField(0x00400000, 0x00400010)
	assert.NoError(err)
	assert.Equal(int32(0x100004), field)
	assert.Equal(uint32(0x00400010), JumpTarget(0x00400000, uint32(field)))

	_, err = JumpField(0x00400000, 0x10400000)
	assert.ErrorIs(err, ErrOperandRange)
}

func TestTemplate(t *testing.T) {
	assert := assert.New(t)

	tmpl, err := ParseTemplate("000000 sssss ttttt fffff 00000 100000")
	require.NoError(t, err)
	assert.Equal(uint32(0xfc0007ff), tmpl.Mask)
	assert.Equal(uint32(0x00000020), tmpl.Match)
	assert.Equal(5, tmpl.Width(0))

	word := tmpl.Insert(tmpl.Match, 0, 8)
	assert.Equal(uint32(8), tmpl.Extract(word, 0))
	assert.True(tmpl.Matches(word))

	_, err = ParseTemplate("000000")
	assert.ErrorIs(err, ErrTemplate)

	_, err = ParseTemplate("000000 sssss ttttt xxxxx 00000 100000")
	assert.ErrorIs(err, ErrTemplate)
}

func TestParseSyntax(t *testing.T) {
	assert := assert.New(t)

	mnemonic, syntax, err := ParseSyntax("lw $t1,-100($t2)")
	assert.NoError(err)
	assert.Equal("lw", mnemonic)
	assert.Equal([]Operand{OPERAND_REGISTER, OPERAND_IMM16, OPERAND_LPAREN, OPERAND_REGISTER, OPERAND_RPAREN}, syntax)

	mnemonic, syntax, err = ParseSyntax("c.eq.s 1,$f0,$f1")
	assert.NoError(err)
	assert.Equal("c.eq.s", mnemonic)
	assert.Equal([]Operand{OPERAND_IMM3, OPERAND_FP_REGISTER, OPERAND_FP_REGISTER}, syntax)

	_, _, err = ParseSyntax("bogus $t1,what")
	assert.ErrorIs(err, ErrExampleSyntax)
}

func TestOperand_Fits(t *testing.T) {
	assert := assert.New(t)

	assert.True(OPERAND_IMM16.Fits(-32768))
	assert.False(OPERAND_IMM16.Fits(32768))
	assert.True(OPERAND_IMM16U.Fits(65535))
	assert.False(OPERAND_IMM16U.Fits(-1))
	assert.True(OPERAND_IMM5.Fits(31))
	assert.False(OPERAND_IMM5.Fits(32))
	assert.True(OPERAND_IMM32.Fits(math.MaxUint32))
	assert.True(OPERAND_IMM32.Fits(math.MinInt32))
	assert.False(OPERAND_REGISTER.Fits(1))
}

func FuzzDecode(f *testing.F) {
	for _, inst := range Instructions() {
		f.Add(inst.Template.Match)
	}
	f.Add(uint32(0xffffffff))

	f.Fuzz(func(t *testing.T, word uint32) {
		assert := assert.New(t)

		inst, op, err := Decode(word)
		if err != nil {
			assert.ErrorIs(err, ErrInstructionReserved, "0x%08x", word)
			return
		}

		assert.True(inst.Template.Matches(word))
		assert.NotEmpty(inst.Basic(0x00400000, op))

		again, err := inst.Encode(op[:len(inst.Operands())]...)
		assert.NoError(err, "0x%08x %v", word, inst.Example)
		assert.Equal(word, again, "0x%08x %v", word, inst.Example)
	})
}
