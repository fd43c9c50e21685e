package cpu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ezrec/mipsim/register"
)

// Pseudo is an extended (pseudo) instruction, which the assembler expands
// into one or more basic instructions.
//
// Each expansion line is basic assembly, where:
//   - OPn is replaced by the text of operand n (counting value operands only).
//   - NRn is replaced by the register after the register operand n.
//   - SHn is replaced by 32 minus the shift amount of operand n, modulo 32.
//
// Relocation operators %hi(), %lo(), %hiu() and %lou() are left for the
// assembler to evaluate; %hi is adjusted for the sign extension of %lo.
type Pseudo struct {
	Mnemonic    string
	Example     string
	Description string
	Syntax      []Operand
	Expansion   []string

	operands []Operand
}

// NewPseudo creates a pseudo instruction descriptor.
func NewPseudo(example string, description string, expansion ...string) (ps *Pseudo, err error) {
	mnemonic, syntax, err := ParseSyntax(example)
	if err != nil {
		return
	}

	if len(expansion) == 0 {
		err = fmt.Errorf("%w: %v: no expansion", ErrTemplate, example)
		return
	}

	operands := valueOperands(syntax)
	for _, line := range expansion {
		for _, match := range placeholder.FindAllStringSubmatch(line, -1) {
			n, _ := strconv.Atoi(match[2])
			if n < 1 || n > len(operands) {
				err = fmt.Errorf("%w: %v: %v", ErrTemplate, example, match[0])
				return
			}
		}
	}

	ps = &Pseudo{
		Mnemonic:    mnemonic,
		Example:     example,
		Description: description,
		Syntax:      syntax,
		Expansion:   expansion,
		operands:    operands,
	}

	return
}

// Operands returns the value carrying operand kinds.
func (ps *Pseudo) Operands() []Operand {
	return ps.operands
}

func (ps *Pseudo) String() string {
	return ps.Example
}

var placeholder = regexp.MustCompile(`(OP|NR|SH)([1-9])`)

// Expand substitutes operand texts into the expansion.
func (ps *Pseudo) Expand(ops []string) (lines []string, err error) {
	if len(ops) != len(ps.operands) {
		err = fmt.Errorf("%w: %v: have %d, want %d", ErrOperandCount, ps.Mnemonic, len(ops), len(ps.operands))
		return
	}

	for _, line := range ps.Expansion {
		line = placeholder.ReplaceAllStringFunc(line, func(match string) string {
			// The first failure stands; later placeholders are left as is.
			if err != nil {
				return match
			}
			n, _ := strconv.Atoi(match[2:])
			text := ops[n-1]
			var value string
			var verr error
			switch match[:2] {
			case "OP":
				value = text
			case "NR":
				value, verr = nextRegister(text)
			case "SH":
				value, verr = shiftComplement(text)
			}
			if verr != nil {
				err = verr
				return match
			}
			return value
		})
		if err != nil {
			err = fmt.Errorf("%w: %v", err, ps.Mnemonic)
			lines = nil
			return
		}
		lines = append(lines, line)
	}

	return
}

// nextRegister names the register after a register.
func nextRegister(name string) (next string, err error) {
	if number, ok := register.FprNumber(name); ok {
		if number >= 31 {
			err = fmt.Errorf("%w: %v", register.ErrInvalidRegisterAccess, name)
			return
		}
		next = fmt.Sprintf("$f%d", number+1)
		return
	}
	if number, ok := register.GprNumber(name); ok {
		if number >= 31 {
			err = fmt.Errorf("%w: %v", register.ErrInvalidRegisterAccess, name)
			return
		}
		next = fmt.Sprintf("$%d", number+1)
		return
	}
	err = fmt.Errorf("%w: %v", register.ErrRegisterInvalid, name)
	return
}

// shiftComplement computes (32 - n) % 32 for a shift amount.
func shiftComplement(text string) (value string, err error) {
	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrOperandRange, text)
		return
	}
	value = strconv.FormatInt((32-n)&31, 10)
	return
}

// loadImmediate loads a 32-bit immediate operand into $at.
func loadImmediate(op string) []string {
	return []string{
		"lui $1,%hiu(" + op + ")",
		"ori $1,$1,%lou(" + op + ")",
	}
}

func join(parts ...[]string) (lines []string) {
	for _, part := range parts {
		lines = append(lines, part...)
	}
	return
}

type pseudoDefinition struct {
	example     string
	description string
	expansion   []string
}

func lines(text ...string) []string {
	return text
}

// memoryPseudos are the label and register indirect forms of a load or store.
func memoryPseudos(mnemonic string, reg string, basic string) []pseudoDefinition {
	what := "Load or store"
	return []pseudoDefinition{
		{mnemonic + " " + reg + ",($t2)", what + " : effective address is $t2",
			lines(basic + " OP1,0(OP2)")},
		{mnemonic + " " + reg + ",label", what + " : effective address is label",
			lines("lui $1,%hi(OP2)", basic+" OP1,%lo(OP2)($1)")},
		{mnemonic + " " + reg + ",label($t2)", what + " : effective address is label plus $t2",
			lines("lui $1,%hi(OP2)", "addu $1,$1,OP3", basic+" OP1,%lo(OP2)($1)")},
	}
}

// branchPseudos are the register, 16-bit and 32-bit immediate forms of a
// comparison branch. The comparison sets $at, and the branch tests it.
func branchPseudos(mnemonic string, description string, swap bool, unsigned bool, taken string) []pseudoDefinition {
	slt, slti := "slt", "slti"
	if unsigned {
		slt, slti = "sltu", "sltiu"
	}
	branch := taken + " $1,$0,OP3"

	if swap {
		return []pseudoDefinition{
			{mnemonic + " $t1,$t2,label", description,
				lines(slt+" $1,OP2,OP1", branch)},
			{mnemonic + " $t1,-100,label", description,
				lines("addi $1,$0,OP2", slt+" $1,$1,OP1", branch)},
			{mnemonic + " $t1,100000,label", description,
				join(loadImmediate("OP2"), lines(slt+" $1,$1,OP1", branch))},
		}
	}

	return []pseudoDefinition{
		{mnemonic + " $t1,$t2,label", description,
			lines(slt+" $1,OP1,OP2", branch)},
		{mnemonic + " $t1,-100,label", description,
			lines(slti+" $1,OP1,OP2", branch)},
		{mnemonic + " $t1,100000,label", description,
			join(loadImmediate("OP2"), lines(slt+" $1,OP1,$1", branch))},
	}
}

// immediatePseudos are the 16-bit and 32-bit immediate forms of a three
// register instruction, with the immediate loaded into $at.
func immediatePseudos(mnemonic string, description string, op string) []pseudoDefinition {
	return []pseudoDefinition{
		{mnemonic + " $t1,$t2,-100", description,
			lines("addi $1,$0,OP3", op+" OP1,OP2,$1")},
		{mnemonic + " $t1,$t2,100000", description,
			join(loadImmediate("OP3"), lines(op+" OP1,OP2,$1"))},
	}
}

// logicalPseudos are the wide immediate and two operand forms of a
// logical instruction.
func logicalPseudos(mnemonic string, immediate string) []pseudoDefinition {
	return []pseudoDefinition{
		{mnemonic + " $t1,$t2,100", "Bitwise " + strings.ToUpper(mnemonic) + " with zero-extended 16-bit immediate",
			lines(immediate + " OP1,OP2,OP3")},
		{mnemonic + " $t1,$t2,100000", "Bitwise " + strings.ToUpper(mnemonic) + " with 32-bit immediate",
			join(loadImmediate("OP3"), lines(mnemonic+" OP1,OP2,$1"))},
		{mnemonic + " $t1,$t2", "Bitwise " + strings.ToUpper(mnemonic) + " : $t1 = $t1 op $t2",
			lines(mnemonic + " OP1,OP1,OP2")},
		{mnemonic + " $t1,100", "Bitwise " + strings.ToUpper(mnemonic) + " : $t1 = $t1 op 16-bit immediate",
			lines(immediate + " OP1,OP1,OP2")},
		{mnemonic + " $t1,100000", "Bitwise " + strings.ToUpper(mnemonic) + " : $t1 = $t1 op 32-bit immediate",
			join(loadImmediate("OP2"), lines(mnemonic+" OP1,OP1,$1"))},
		{immediate + " $t1,$t2,100000", "Bitwise " + strings.ToUpper(mnemonic) + " with 32-bit immediate",
			join(loadImmediate("OP3"), lines(mnemonic+" OP1,OP2,$1"))},
		{immediate + " $t1,100", "Bitwise " + strings.ToUpper(mnemonic) + " : $t1 = $t1 op 16-bit immediate",
			lines(immediate + " OP1,OP1,OP2")},
		{immediate + " $t1,100000", "Bitwise " + strings.ToUpper(mnemonic) + " : $t1 = $t1 op 32-bit immediate",
			join(loadImmediate("OP2"), lines(mnemonic+" OP1,OP1,$1"))},
	}
}

// divisionPseudos are the three operand forms of division and remainder.
// Division by zero traps.
func divisionPseudos(mnemonic string, basic string, result string) []pseudoDefinition {
	description := "Division : set $t1 to " + result + " of $t2 / $t3"
	move := "mflo OP1"
	if result == "remainder" {
		move = "mfhi OP1"
	}
	return []pseudoDefinition{
		{mnemonic + " $t1,$t2,$t3", description,
			lines("teq OP3,$0", basic+" OP2,OP3", move)},
		{mnemonic + " $t1,$t2,-100", description,
			lines("addi $1,$0,OP3", basic+" OP2,$1", move)},
		{mnemonic + " $t1,$t2,100000", description,
			join(loadImmediate("OP3"), lines(basic+" OP2,$1", move))},
	}
}

func pseudoDefinitions() (defs []pseudoDefinition) {
	add := func(more ...pseudoDefinition) {
		defs = append(defs, more...)
	}

	add(
		pseudoDefinition{"move $t1,$t2", "Move : set $t1 to contents of $t2",
			lines("addu OP1,$0,OP2")},
		pseudoDefinition{"li $t1,-100", "Load immediate : set $t1 to 16-bit immediate (sign-extended)",
			lines("addiu OP1,$0,OP2")},
		pseudoDefinition{"li $t1,100", "Load immediate : set $t1 to unsigned 16-bit immediate (zero-extended)",
			lines("ori OP1,$0,OP2")},
		pseudoDefinition{"li $t1,100000", "Load immediate : set $t1 to 32-bit immediate",
			lines("lui $1,%hiu(OP2)", "ori OP1,$1,%lou(OP2)")},
		pseudoDefinition{"la $t1,($t2)", "Load address : set $t1 to contents of $t2",
			lines("addiu OP1,OP2,0")},
		pseudoDefinition{"la $t1,-100($t2)", "Load address : set $t1 to $t2 plus 16-bit immediate",
			lines("addiu OP1,OP3,OP2")},
		pseudoDefinition{"la $t1,label", "Load address : set $t1 to label's address",
			lines("lui $1,%hiu(OP2)", "ori OP1,$1,%lou(OP2)")},
		pseudoDefinition{"la $t1,label($t2)", "Load address : set $t1 to label's address plus $t2",
			join(loadImmediate("OP2"), lines("addu OP1,OP3,$1"))},
	)

	// Unconditional and zero compare branches
	add(
		pseudoDefinition{"b label", "Branch : branch to statement at label unconditionally",
			lines("bgez $0,OP1")},
		pseudoDefinition{"beqz $t1,label", "Branch if equal to zero : branch to statement at label if $t1 is zero",
			lines("beq OP1,$0,OP2")},
		pseudoDefinition{"bnez $t1,label", "Branch if not equal to zero : branch to statement at label if $t1 is not zero",
			lines("bne OP1,$0,OP2")},
		pseudoDefinition{"beq $t1,-100,label", "Branch if equal : branch to statement at label if $t1 equals 16-bit immediate",
			lines("addi $1,$0,OP2", "beq $1,OP1,OP3")},
		pseudoDefinition{"beq $t1,100000,label", "Branch if equal : branch to statement at label if $t1 equals 32-bit immediate",
			join(loadImmediate("OP2"), lines("beq $1,OP1,OP3"))},
		pseudoDefinition{"bne $t1,-100,label", "Branch if not equal : branch to statement at label if $t1 is not equal to 16-bit immediate",
			lines("addi $1,$0,OP2", "bne $1,OP1,OP3")},
		pseudoDefinition{"bne $t1,100000,label", "Branch if not equal : branch to statement at label if $t1 is not equal to 32-bit immediate",
			join(loadImmediate("OP2"), lines("bne $1,OP1,OP3"))},
	)

	// Comparison branches
	add(branchPseudos("bge", "Branch if greater or equal : branch to statement at label if $t1 is greater or equal to the second operand", false, false, "beq")...)
	add(branchPseudos("bgeu", "Branch if greater or equal unsigned : branch to statement at label if $t1 is greater or equal to the second operand, unsigned", false, true, "beq")...)
	add(branchPseudos("bgt", "Branch if greater than : branch to statement at label if $t1 is greater than the second operand", true, false, "bne")...)
	add(branchPseudos("bgtu", "Branch if greater than unsigned : branch to statement at label if $t1 is greater than the second operand, unsigned", true, true, "bne")...)
	add(branchPseudos("ble", "Branch if less or equal : branch to statement at label if $t1 is less than or equal to the second operand", true, false, "beq")...)
	add(branchPseudos("bleu", "Branch if less or equal unsigned : branch to statement at label if $t1 is less than or equal to the second operand, unsigned", true, true, "beq")...)
	add(branchPseudos("blt", "Branch if less than : branch to statement at label if $t1 is less than the second operand", false, false, "bne")...)
	add(branchPseudos("bltu", "Branch if less than unsigned : branch to statement at label if $t1 is less than the second operand, unsigned", false, true, "bne")...)

	// Arithmetic
	add(
		pseudoDefinition{"abs $t1,$t2", "Absolute value : set $t1 to absolute value of $t2",
			lines("sra $1,OP2,31", "xor OP1,$1,OP2", "subu OP1,OP1,$1")},
		pseudoDefinition{"neg $t1,$t2", "Negate with overflow : set $t1 to negation of $t2",
			lines("sub OP1,$0,OP2")},
		pseudoDefinition{"negu $t1,$t2", "Negate without overflow : set $t1 to negation of $t2, no overflow",
			lines("subu OP1,$0,OP2")},
		pseudoDefinition{"not $t1,$t2", "Bitwise NOT : set $t1 to bitwise complement of $t2",
			lines("nor OP1,OP2,$0")},
		pseudoDefinition{"add $t1,$t2,-100", "Addition with overflow : set $t1 to $t2 plus 16-bit immediate",
			lines("addi OP1,OP2,OP3")},
		pseudoDefinition{"add $t1,$t2,100000", "Addition with overflow : set $t1 to $t2 plus 32-bit immediate",
			join(loadImmediate("OP3"), lines("add OP1,OP2,$1"))},
		pseudoDefinition{"addu $t1,$t2,-100", "Addition without overflow : set $t1 to $t2 plus 16-bit immediate",
			lines("addiu OP1,OP2,OP3")},
		pseudoDefinition{"addu $t1,$t2,100000", "Addition without overflow : set $t1 to $t2 plus 32-bit immediate",
			join(loadImmediate("OP3"), lines("addu OP1,OP2,$1"))},
		pseudoDefinition{"addi $t1,$t2,100000", "Addition immediate with overflow : set $t1 to $t2 plus 32-bit immediate",
			join(loadImmediate("OP3"), lines("add OP1,OP2,$1"))},
		pseudoDefinition{"addiu $t1,$t2,100000", "Addition immediate without overflow : set $t1 to $t2 plus 32-bit immediate",
			join(loadImmediate("OP3"), lines("addu OP1,OP2,$1"))},
		pseudoDefinition{"subi $t1,$t2,-100", "Subtraction immediate with overflow : set $t1 to $t2 minus 16-bit immediate",
			lines("addi $1,$0,OP3", "sub OP1,OP2,$1")},
		pseudoDefinition{"subi $t1,$t2,100000", "Subtraction immediate with overflow : set $t1 to $t2 minus 32-bit immediate",
			join(loadImmediate("OP3"), lines("sub OP1,OP2,$1"))},
		pseudoDefinition{"subiu $t1,$t2,-100", "Subtraction immediate without overflow : set $t1 to $t2 minus 16-bit immediate",
			lines("addi $1,$0,OP3", "subu OP1,OP2,$1")},
		pseudoDefinition{"subiu $t1,$t2,100000", "Subtraction immediate without overflow : set $t1 to $t2 minus 32-bit immediate",
			join(loadImmediate("OP3"), lines("subu OP1,OP2,$1"))},
		pseudoDefinition{"mulu $t1,$t2,$t3", "Multiplication unsigned : set HI:LO to $t2 times $t3, and $t1 to LO",
			lines("multu OP2,OP3", "mflo OP1")},
	)
	add(immediatePseudos("sub", "Subtraction with overflow : set $t1 to $t2 minus immediate", "sub")...)
	add(immediatePseudos("subu", "Subtraction without overflow : set $t1 to $t2 minus immediate", "subu")...)
	add(immediatePseudos("mul", "Multiplication : set HI:LO to $t2 times immediate, and $t1 to LO", "mul")...)
	add(divisionPseudos("div", "div", "quotient")...)
	add(divisionPseudos("divu", "divu", "quotient")...)
	add(divisionPseudos("rem", "div", "remainder")...)
	add(divisionPseudos("remu", "divu", "remainder")...)

	// Logical
	add(logicalPseudos("and", "andi")...)
	add(logicalPseudos("or", "ori")...)
	add(logicalPseudos("xor", "xori")...)

	// Rotates
	add(
		pseudoDefinition{"rol $t1,$t2,$t3", "Rotate left : set $t1 to $t2 rotated left by number of bit positions specified in $t3",
			lines("subu $1,$0,OP3", "srlv $1,OP2,$1", "sllv OP1,OP2,OP3", "or OP1,OP1,$1")},
		pseudoDefinition{"rol $t1,$t2,10", "Rotate left : set $t1 to $t2 rotated left by number of bit positions specified in 5-bit immediate",
			lines("srl $1,OP2,SH3", "sll OP1,OP2,OP3", "or OP1,OP1,$1")},
		pseudoDefinition{"ror $t1,$t2,$t3", "Rotate right : set $t1 to $t2 rotated right by number of bit positions specified in $t3",
			lines("subu $1,$0,OP3", "sllv $1,OP2,$1", "srlv OP1,OP2,OP3", "or OP1,OP1,$1")},
		pseudoDefinition{"ror $t1,$t2,10", "Rotate right : set $t1 to $t2 rotated right by number of bit positions specified in 5-bit immediate",
			lines("sll $1,OP2,SH3", "srl OP1,OP2,OP3", "or OP1,OP1,$1")},
	)

	// Set on comparison
	add(
		pseudoDefinition{"seq $t1,$t2,$t3", "Set equal : if $t2 equals $t3 then set $t1 to 1 else 0",
			lines("subu OP1,OP2,OP3", "ori $1,$0,1", "sltu OP1,OP1,$1")},
		pseudoDefinition{"seq $t1,$t2,-100", "Set equal : if $t2 equals 16-bit immediate then set $t1 to 1 else 0",
			lines("addi $1,$0,OP3", "subu OP1,OP2,$1", "ori $1,$0,1", "sltu OP1,OP1,$1")},
		pseudoDefinition{"sne $t1,$t2,$t3", "Set not equal : if $t2 is not equal to $t3 then set $t1 to 1 else 0",
			lines("subu OP1,OP2,OP3", "sltu OP1,$0,OP1")},
		pseudoDefinition{"sne $t1,$t2,-100", "Set not equal : if $t2 is not equal to 16-bit immediate then set $t1 to 1 else 0",
			lines("addi $1,$0,OP3", "subu OP1,OP2,$1", "sltu OP1,$0,OP1")},
	)
	for _, set := range []struct {
		mnemonic, slt string
		swap, invert  bool
	}{
		{"sge", "slt", false, true},
		{"sgeu", "sltu", false, true},
		{"sgt", "slt", true, false},
		{"sgtu", "sltu", true, false},
		{"sle", "slt", true, true},
		{"sleu", "sltu", true, true},
	} {
		reg := lines(set.slt + " OP1,OP2,OP3")
		imm := lines("addi $1,$0,OP3", set.slt+" OP1,OP2,$1")
		if set.swap {
			reg = lines(set.slt + " OP1,OP3,OP2")
			imm = lines("addi $1,$0,OP3", set.slt+" OP1,$1,OP2")
		}
		if set.invert {
			reg = append(reg, "ori $1,$0,1", "subu OP1,$1,OP1")
			imm = append(imm, "ori $1,$0,1", "subu OP1,$1,OP1")
		}
		description := "Set on comparison : set $t1 to 1 if " + set.mnemonic[1:] + " holds for $t2 and the second operand, else 0"
		add(
			pseudoDefinition{set.mnemonic + " $t1,$t2,$t3", description, reg},
			pseudoDefinition{set.mnemonic + " $t1,$t2,-100", description, imm},
		)
	}

	// Coprocessor 1 pairs
	add(
		pseudoDefinition{"mfc1.d $t1,$f2", "Move double from Coprocessor 1 : set $t1 and the next register to $f2 and $f3",
			lines("mfc1 OP1,OP2", "mfc1 NR1,NR2")},
		pseudoDefinition{"mtc1.d $t1,$f2", "Move double to Coprocessor 1 : set $f2 and $f3 to $t1 and the next register",
			lines("mtc1 OP1,OP2", "mtc1 NR1,NR2")},
	)

	// Loads and stores
	for _, mnemonic := range []string{"lb", "lbu", "lh", "lhu", "lw", "lwl", "lwr", "ll", "sb", "sh", "sw", "swl", "swr", "sc"} {
		add(memoryPseudos(mnemonic, "$t1", mnemonic)...)
	}
	for _, mnemonic := range []string{"lwc1", "swc1", "ldc1", "sdc1"} {
		add(memoryPseudos(mnemonic, "$f2", mnemonic)...)
	}
	for _, alias := range []struct{ mnemonic, basic string }{
		{"l.s", "lwc1"}, {"s.s", "swc1"}, {"l.d", "ldc1"}, {"s.d", "sdc1"},
	} {
		add(pseudoDefinition{alias.mnemonic + " $f2,-100($t2)", "Alias of " + alias.basic,
			lines(alias.basic + " OP1,OP2(OP3)")})
		add(memoryPseudos(alias.mnemonic, "$f2", alias.basic)...)
	}

	return
}

type pseudoSet struct {
	all        []*Pseudo
	byMnemonic map[string][]*Pseudo
}

func newPseudoSet() (set *pseudoSet) {
	set = &pseudoSet{byMnemonic: map[string][]*Pseudo{}}
	for _, def := range pseudoDefinitions() {
		ps, err := NewPseudo(def.example, def.description, def.expansion...)
		if err != nil {
			panic(err)
		}
		set.all = append(set.all, ps)
		set.byMnemonic[ps.Mnemonic] = append(set.byMnemonic[ps.Mnemonic], ps)
	}
	return
}

var pseudos = newPseudoSet()

// Pseudos returns the pseudo instruction table.
func Pseudos() []*Pseudo {
	return pseudos.all
}

// LookupPseudo finds the pseudo instructions with a mnemonic, in table order.
func LookupPseudo(mnemonic string) []*Pseudo {
	return pseudos.byMnemonic[strings.ToLower(mnemonic)]
}

// IsMnemonic returns true if the name is a basic or pseudo instruction.
func IsMnemonic(name string) bool {
	return len(Lookup(name)) > 0 || len(LookupPseudo(name)) > 0
}
