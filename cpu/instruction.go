package cpu

import (
	"cmp"
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// Format is an instruction encoding format.
type Format int

const (
	FORMAT_R        = Format(0) // R
	FORMAT_I        = Format(1) // I
	FORMAT_I_BRANCH = Format(2) // I-branch
	FORMAT_J        = Format(3) // J
)

func (form Format) String() string {
	switch form {
	case FORMAT_R:
		return "R"
	case FORMAT_I:
		return "I"
	case FORMAT_I_BRANCH:
		return "I-branch"
	case FORMAT_J:
		return "J"
	}
	return fmt.Sprintf("Format(%d)", int(form))
}

// Semantics executes an instruction with its decoded operands.
type Semantics func(cpu *Cpu, op [3]int32) error

// Instruction describes one basic (machine) instruction.
type Instruction struct {
	Mnemonic    string
	Example     string // Example syntax, "add $t1,$t2,$t3".
	Description string
	Format      Format
	Syntax      []Operand // Operand kinds, including parentheses.
	Template    *Template
	Exec        Semantics

	operands []Operand // Value operands, in field order.
}

// NewInstruction creates an instruction descriptor.
func NewInstruction(example string, description string, format Format, template string, exec Semantics) (inst *Instruction, err error) {
	mnemonic, syntax, err := ParseSyntax(example)
	if err != nil {
		return
	}

	tmpl, err := ParseTemplate(template)
	if err != nil {
		return
	}

	operands := valueOperands(syntax)
	for n := range tmpl.Fields {
		hasField := tmpl.Width(n) != 0
		hasOperand := n < len(operands)
		if hasField != hasOperand {
			err = fmt.Errorf("%w: %v: operand %d", ErrTemplate, example, n+1)
			return
		}
	}

	inst = &Instruction{
		Mnemonic:    mnemonic,
		Example:     example,
		Description: description,
		Format:      format,
		Syntax:      syntax,
		Template:    tmpl,
		Exec:        exec,
		operands:    operands,
	}

	return
}

// Operands returns the value carrying operand kinds, in field order.
func (inst *Instruction) Operands() []Operand {
	return inst.operands
}

func (inst *Instruction) String() string {
	return inst.Example
}

// signed returns true if the operand field is sign extended.
func (inst *Instruction) signed(field int) bool {
	switch inst.operands[field] {
	case OPERAND_IMM16:
		return true
	case OPERAND_LABEL:
		return inst.Format == FORMAT_I_BRANCH
	}
	return false
}

// Patch inserts an operand field value into an encoded word, checking
// that the value is representable by the field.
func (inst *Instruction) Patch(word uint32, field int, value int32) (patched uint32, err error) {
	if field < 0 || field >= len(inst.operands) {
		err = fmt.Errorf("%w: %v", ErrOperandCount, inst.Mnemonic)
		return
	}

	width := inst.Template.Width(field)
	if inst.signed(field) {
		low := -(int64(1) << (width - 1))
		high := (int64(1) << (width - 1)) - 1
		if int64(value) < low || int64(value) > high {
			err = fmt.Errorf("%w: %v operand %d: %d", ErrOperandRange, inst.Mnemonic, field+1, value)
			return
		}
	} else if width < 32 && (value < 0 || int64(value) >= int64(1)<<width) {
		err = fmt.Errorf("%w: %v operand %d: %d", ErrOperandRange, inst.Mnemonic, field+1, value)
		return
	}

	patched = inst.Template.Insert(word, field, uint32(value))
	return
}

// Encode an instruction from its operand field values. Branch operands
// are word offsets from the following instruction, and jump operands
// are the low 26 bits of the target word address.
func (inst *Instruction) Encode(op ...int32) (word uint32, err error) {
	if len(op) != len(inst.operands) {
		err = fmt.Errorf("%w: %v: have %d, want %d", ErrOperandCount, inst.Mnemonic, len(op), len(inst.operands))
		return
	}

	word = inst.Template.Match
	for n, value := range op {
		word, err = inst.Patch(word, n, value)
		if err != nil {
			return
		}
	}

	return
}

// Operand values of an encoded word.
func (inst *Instruction) decode(word uint32) (op [3]int32) {
	for n := range inst.operands {
		value := inst.Template.Extract(word, n)
		width := inst.Template.Width(n)
		if inst.signed(n) && width < 32 {
			shift := 32 - width
			op[n] = int32(value<<shift) >> shift
		} else {
			op[n] = int32(value)
		}
	}
	return
}

// Basic renders the instruction at an address with decoded operands, as
// basic assembly: numbered registers and numeric immediates.
func (inst *Instruction) Basic(address uint32, op [3]int32) string {
	var text strings.Builder
	text.WriteString(inst.Mnemonic)

	field := 0
	for n, kind := range inst.Syntax {
		switch {
		case n == 0:
			text.WriteString(" ")
		case kind == OPERAND_LPAREN || kind == OPERAND_RPAREN:
		case inst.Syntax[n-1] != OPERAND_LPAREN:
			text.WriteString(",")
		}

		switch kind {
		case OPERAND_LPAREN:
			text.WriteString("(")
			continue
		case OPERAND_RPAREN:
			text.WriteString(")")
			continue
		}

		value := op[field]
		field++

		switch kind {
		case OPERAND_REGISTER:
			fmt.Fprintf(&text, "$%d", value)
		case OPERAND_FP_REGISTER:
			fmt.Fprintf(&text, "$f%d", value)
		case OPERAND_LABEL:
			if inst.Format == FORMAT_J {
				fmt.Fprintf(&text, "0x%08x", JumpTarget(address, uint32(value)))
			} else {
				fmt.Fprintf(&text, "%d", value)
			}
		default:
			fmt.Fprintf(&text, "%d", value)
		}
	}

	return text.String()
}

// JumpTarget computes the target of a J format instruction at an address.
func JumpTarget(address uint32, field uint32) uint32 {
	return ((address + 4) & 0xf0000000) | (field << 2)
}

// JumpField computes the J format operand for a target. The target must
// be word aligned, and in the same 256MiB region as the instruction
// following the jump.
func JumpField(address uint32, target uint32) (field int32, err error) {
	if target&3 != 0 || (target&0xf0000000) != ((address+4)&0xf0000000) {
		err = fmt.Errorf("%w: jump target 0x%08x", ErrOperandRange, target)
		return
	}
	field = int32((target >> 2) & 0x3ffffff)
	return
}

// BranchOffset computes the branch operand for a target.
func BranchOffset(address uint32, target uint32) (offset int32, err error) {
	if target&3 != 0 {
		err = fmt.Errorf("%w: branch target 0x%08x", ErrOperandRange, target)
		return
	}
	offset = int32(target-(address+4)) >> 2
	if offset < -32768 || offset > 32767 {
		err = fmt.Errorf("%w: branch target 0x%08x", ErrOperandRange, target)
	}
	return
}

// instructionSet is the decode and lookup index over the instruction table.
type instructionSet struct {
	all        []*Instruction
	byMnemonic map[string][]*Instruction
	decode     []*Instruction // Most specific template first.
}

func newInstructionSet(insts []*Instruction) (set *instructionSet) {
	set = &instructionSet{
		all:        insts,
		byMnemonic: make(map[string][]*Instruction),
		decode:     slices.Clone(insts),
	}

	for _, inst := range insts {
		set.byMnemonic[inst.Mnemonic] = append(set.byMnemonic[inst.Mnemonic], inst)
	}

	slices.SortStableFunc(set.decode, func(a, b *Instruction) int {
		return cmp.Compare(bits.OnesCount32(b.Template.Mask), bits.OnesCount32(a.Template.Mask))
	})

	return
}

var basicSet = newInstructionSet(basicInstructions())

// Instructions returns the basic instruction table.
func Instructions() []*Instruction {
	return basicSet.all
}

// Lookup finds the basic instructions with a mnemonic, in table order.
func Lookup(mnemonic string) []*Instruction {
	return basicSet.byMnemonic[strings.ToLower(mnemonic)]
}

// Decode finds the instruction for a word, and its operand field values.
// The instruction with the most literal bits wins, so that "nop" is
// preferred over "sll $0,$0,0".
func Decode(word uint32) (inst *Instruction, op [3]int32, err error) {
	for _, inst = range basicSet.decode {
		if inst.Template.Matches(word) {
			op = inst.decode(word)
			return
		}
	}

	inst = nil
	err = ErrDecode(word)
	return
}
