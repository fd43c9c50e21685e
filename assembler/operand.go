package assembler

import (
	"fmt"
	"strconv"

	"github.com/ezrec/mipsim/cpu"
	"github.com/ezrec/mipsim/register"
)

// itemKind is the kind of a parsed instruction operand.
type itemKind int

const (
	ITEM_GPR     = itemKind(0) // $t0
	ITEM_FPR     = itemKind(1) // $f0
	ITEM_INTEGER = itemKind(2) // -100
	ITEM_SYMBOL  = itemKind(3) // label+4
	ITEM_RELOC   = itemKind(4) // %hi(label+4)
	ITEM_LPAREN  = itemKind(5) // (
	ITEM_RPAREN  = itemKind(6) // )
)

// item is one parsed operand of an instruction.
type item struct {
	kind   itemKind
	column int
	text   string // Register name, as written.

	number int   // Register number.
	value  int64 // Integer value, or symbol addend.
	symbol string

	reloc      relocation // For ITEM_RELOC.
	relocInner *item      // ITEM_INTEGER or ITEM_SYMBOL.
}

// Text renders the item as operand text for pseudo instruction expansion.
func (it *item) Text() string {
	switch it.kind {
	case ITEM_GPR, ITEM_FPR:
		return it.text
	case ITEM_INTEGER:
		return strconv.FormatInt(it.value, 10)
	case ITEM_SYMBOL:
		switch {
		case it.value > 0:
			return fmt.Sprintf("%v+%d", it.symbol, it.value)
		case it.value < 0:
			return fmt.Sprintf("%v%d", it.symbol, it.value)
		}
		return it.symbol
	case ITEM_RELOC:
		return it.reloc.String() + "(" + it.relocInner.Text() + ")"
	case ITEM_LPAREN:
		return "("
	case ITEM_RPAREN:
		return ")"
	}
	return "?"
}

// Fits returns true if the item is acceptable for an operand kind.
func (it *item) Fits(op cpu.Operand) bool {
	switch op {
	case cpu.OPERAND_REGISTER:
		return it.kind == ITEM_GPR
	case cpu.OPERAND_FP_REGISTER:
		return it.kind == ITEM_FPR
	case cpu.OPERAND_LABEL:
		return it.kind == ITEM_SYMBOL || (it.kind == ITEM_INTEGER && cpu.OPERAND_IMM32.Fits(it.value))
	case cpu.OPERAND_LPAREN:
		return it.kind == ITEM_LPAREN
	case cpu.OPERAND_RPAREN:
		return it.kind == ITEM_RPAREN
	}

	switch it.kind {
	case ITEM_INTEGER:
		return op.Fits(it.value)
	case ITEM_RELOC:
		if it.reloc == RELOC_LO {
			return op == cpu.OPERAND_IMM16
		}
		return op == cpu.OPERAND_IMM16U
	}

	return false
}

// matches returns true if the items fit an operand syntax.
func matches(items []*item, syntax []cpu.Operand) bool {
	if len(items) != len(syntax) {
		return false
	}
	for n, it := range items {
		if !it.Fits(syntax[n]) {
			return false
		}
	}
	return true
}

// values returns the value carrying items.
func values(items []*item) (vals []*item) {
	for _, it := range items {
		if it.kind != ITEM_LPAREN && it.kind != ITEM_RPAREN {
			vals = append(vals, it)
		}
	}
	return
}

var cop0Names = register.NewCop0()

// registerItem classifies a register token.
func registerItem(tok Token) (it *item, err error) {
	it = &item{text: tok.Text, column: tok.Column}
	if number, ok := register.FprNumber(tok.Text); ok {
		it.kind = ITEM_FPR
		it.number = number
		return
	}
	if number, ok := register.GprNumber(tok.Text); ok {
		it.kind = ITEM_GPR
		it.number = number
		return
	}
	if reg, ok := cop0Names.Lookup(tok.Text); ok {
		it.kind = ITEM_GPR
		it.number = reg.Number
		return
	}
	err = fmt.Errorf("%w: %v", ErrRegisterInvalid, tok.Text)
	it = nil
	return
}

// parseValue parses a constant or symbol expression: an optionally signed
// sum of integers, with at most one symbol.
func parseValue(tokens []Token) (it *item, err error) {
	if len(tokens) == 0 {
		err = ErrOperandInvalid
		return
	}

	it = &item{kind: ITEM_INTEGER, column: tokens[0].Column}
	sign := int64(1)
	expectTerm := true
	for _, tok := range tokens {
		switch {
		case expectTerm && tok.Kind == TOKEN_MINUS:
			sign = -sign
			continue
		case expectTerm && tok.Kind == TOKEN_PLUS:
			continue
		case expectTerm && tok.Kind == TOKEN_INTEGER:
			it.value += sign * tok.Value
		case expectTerm && tok.Kind == TOKEN_IDENT && it.kind == ITEM_INTEGER && sign == 1:
			it.kind = ITEM_SYMBOL
			it.symbol = tok.Text
		case !expectTerm && tok.Kind == TOKEN_PLUS:
			sign = 1
			expectTerm = true
			continue
		case !expectTerm && tok.Kind == TOKEN_MINUS:
			sign = -1
			expectTerm = true
			continue
		default:
			err = fmt.Errorf("%w: %v", ErrOperandInvalid, joinTokens(tokens))
			it = nil
			return
		}
		expectTerm = false
		sign = 1
	}

	if expectTerm {
		err = fmt.Errorf("%w: %v", ErrOperandInvalid, joinTokens(tokens))
		it = nil
	}

	return
}

// parseGroup parses one comma separated operand: a register, a value,
// a relocation, any of those followed by a parenthesized register, or a
// parenthesized register alone.
func parseGroup(tokens []Token) (items []*item, err error) {
	if len(tokens) == 0 {
		err = ErrOperandInvalid
		return
	}

	// Trailing "($reg)"
	var base []*item
	n := len(tokens)
	if n >= 3 && tokens[n-1].Kind == TOKEN_RPAREN && tokens[n-2].Kind == TOKEN_REGISTER && tokens[n-3].Kind == TOKEN_LPAREN {
		var reg *item
		reg, err = registerItem(tokens[n-2])
		if err != nil {
			return
		}
		base = []*item{
			{kind: ITEM_LPAREN, column: tokens[n-3].Column},
			reg,
			{kind: ITEM_RPAREN, column: tokens[n-1].Column},
		}
		tokens = tokens[:n-3]
	}

	switch {
	case len(tokens) == 0:
	case len(tokens) == 1 && tokens[0].Kind == TOKEN_REGISTER:
		var reg *item
		reg, err = registerItem(tokens[0])
		if err != nil {
			return
		}
		items = append(items, reg)
	case tokens[0].Kind == TOKEN_OPERATOR:
		last := len(tokens) - 1
		if len(tokens) < 4 || tokens[1].Kind != TOKEN_LPAREN || tokens[last].Kind != TOKEN_RPAREN {
			err = fmt.Errorf("%w: %v", ErrOperandInvalid, joinTokens(tokens))
			return
		}
		var inner *item
		inner, err = parseValue(tokens[2:last])
		if err != nil {
			return
		}
		items = append(items, &item{
			kind:       ITEM_RELOC,
			column:     tokens[0].Column,
			reloc:      relocationOf(tokens[0].Text),
			relocInner: inner,
		})
	default:
		var value *item
		value, err = parseValue(tokens)
		if err != nil {
			return
		}
		items = append(items, value)
	}

	items = append(items, base...)
	return
}

// parseOperands parses the operand tokens of an instruction.
func parseOperands(tokens []Token) (items []*item, err error) {
	for _, group := range splitOperands(tokens) {
		var more []*item
		more, err = parseGroup(group)
		if err != nil {
			return
		}
		items = append(items, more...)
	}
	return
}

// relocation is how a resolved address is inserted into an encoded word.
type relocation int

const (
	RELOC_NONE   = relocation(0) // Value as is.
	RELOC_BRANCH = relocation(1) // Word offset from the next instruction.
	RELOC_JUMP   = relocation(2) // Low 28 bits of the target, as a word address.
	RELOC_HI     = relocation(3) // %hi: upper 16 bits, adjusted for a signed %lo.
	RELOC_LO     = relocation(4) // %lo: signed lower 16 bits.
	RELOC_HIU    = relocation(5) // %hiu: upper 16 bits.
	RELOC_LOU    = relocation(6) // %lou: unsigned lower 16 bits.
)

func (reloc relocation) String() string {
	switch reloc {
	case RELOC_NONE:
		return ""
	case RELOC_BRANCH:
		return "branch"
	case RELOC_JUMP:
		return "jump"
	case RELOC_HI:
		return "%hi"
	case RELOC_LO:
		return "%lo"
	case RELOC_HIU:
		return "%hiu"
	case RELOC_LOU:
		return "%lou"
	}
	return fmt.Sprintf("relocation(%d)", int(reloc))
}

func relocationOf(operator string) relocation {
	switch operator {
	case "%hi":
		return RELOC_HI
	case "%lo":
		return RELOC_LO
	case "%hiu":
		return RELOC_HIU
	case "%lou":
		return RELOC_LOU
	}
	return RELOC_NONE
}

// Apply computes the field value for a target, in an instruction at an address.
func (reloc relocation) Apply(address uint32, target uint32) (value int32, err error) {
	switch reloc {
	case RELOC_BRANCH:
		value, err = cpu.BranchOffset(address, target)
	case RELOC_JUMP:
		value, err = cpu.JumpField(address, target)
	case RELOC_HI:
		value = int32(((target + 0x8000) >> 16) & 0xffff)
	case RELOC_LO:
		value = int32(int16(target & 0xffff))
	case RELOC_HIU:
		value = int32(target >> 16)
	case RELOC_LOU:
		value = int32(target & 0xffff)
	default:
		value = int32(target)
	}
	return
}
