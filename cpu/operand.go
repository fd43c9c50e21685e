package cpu

import (
	"fmt"
	"strconv"
	"strings"
)

// Operand is the kind of an instruction operand, as shown by the
// instruction's example syntax.
type Operand int

const (
	OPERAND_REGISTER    = Operand(0) // $t1
	OPERAND_FP_REGISTER = Operand(1) // $f1
	OPERAND_IMM3        = Operand(2) // 1
	OPERAND_IMM5        = Operand(3) // 10
	OPERAND_IMM16       = Operand(4) // -100
	OPERAND_IMM16U      = Operand(5) // 100
	OPERAND_IMM32       = Operand(6) // 100000
	OPERAND_LABEL       = Operand(7) // label
	OPERAND_LPAREN      = Operand(8) // (
	OPERAND_RPAREN      = Operand(9) // )
)

var operandExamples = [...]string{
	OPERAND_REGISTER:    "$t1",
	OPERAND_FP_REGISTER: "$f1",
	OPERAND_IMM3:        "1",
	OPERAND_IMM5:        "10",
	OPERAND_IMM16:       "-100",
	OPERAND_IMM16U:      "100",
	OPERAND_IMM32:       "100000",
	OPERAND_LABEL:       "label",
	OPERAND_LPAREN:      "(",
	OPERAND_RPAREN:      ")",
}

func (op Operand) String() string {
	if op < 0 || int(op) >= len(operandExamples) {
		return fmt.Sprintf("Operand(%d)", int(op))
	}
	return operandExamples[op]
}

// IsValue returns true if the operand carries a value, rather than
// being punctuation.
func (op Operand) IsValue() bool {
	return op != OPERAND_LPAREN && op != OPERAND_RPAREN
}

// IsImmediate returns true for the integer immediate operand kinds.
func (op Operand) IsImmediate() bool {
	switch op {
	case OPERAND_IMM3, OPERAND_IMM5, OPERAND_IMM16, OPERAND_IMM16U, OPERAND_IMM32:
		return true
	}
	return false
}

// Fits returns true if an integer value is representable by the operand.
func (op Operand) Fits(value int64) bool {
	switch op {
	case OPERAND_IMM3:
		return value >= 0 && value <= 7
	case OPERAND_IMM5:
		return value >= 0 && value <= 31
	case OPERAND_IMM16:
		return value >= -32768 && value <= 32767
	case OPERAND_IMM16U:
		return value >= 0 && value <= 65535
	case OPERAND_IMM32:
		return value >= -(1<<31) && value <= (1<<32)-1
	}
	return false
}

// classify maps one element of example syntax to its operand kind.
func classify(text string) (op Operand, err error) {
	switch {
	case strings.HasPrefix(text, "$f"):
		return OPERAND_FP_REGISTER, nil
	case strings.HasPrefix(text, "$"):
		return OPERAND_REGISTER, nil
	case text == "label" || text == "target" || strings.HasPrefix(text, "label+"):
		return OPERAND_LABEL, nil
	}

	value, perr := strconv.ParseInt(text, 10, 64)
	if perr != nil {
		err = fmt.Errorf("%w: %v", ErrExampleSyntax, text)
		return
	}

	switch {
	case value == 1:
		op = OPERAND_IMM3
	case value == 10:
		op = OPERAND_IMM5
	case value == -100:
		op = OPERAND_IMM16
	case value == 100:
		op = OPERAND_IMM16U
	default:
		op = OPERAND_IMM32
	}

	return
}

// ParseSyntax splits an example ("lw $t1,-100($t2)") into its mnemonic
// and the kinds of its operands, including parentheses.
func ParseSyntax(example string) (mnemonic string, syntax []Operand, err error) {
	mnemonic, rest, _ := strings.Cut(strings.TrimSpace(example), " ")
	rest = strings.TrimSpace(rest)
	if len(rest) == 0 {
		return
	}

	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		before, inner, paren := strings.Cut(part, "(")
		if len(before) > 0 {
			var op Operand
			op, err = classify(before)
			if err != nil {
				return
			}
			syntax = append(syntax, op)
		}
		if !paren {
			continue
		}
		inner, ok := strings.CutSuffix(inner, ")")
		if !ok {
			err = fmt.Errorf("%w: %v", ErrExampleSyntax, part)
			return
		}
		var op Operand
		op, err = classify(inner)
		if err != nil {
			return
		}
		syntax = append(syntax, OPERAND_LPAREN, op, OPERAND_RPAREN)
	}

	return
}

// valueOperands returns the value carrying operands of a syntax.
func valueOperands(syntax []Operand) (ops []Operand) {
	for _, op := range syntax {
		if op.IsValue() {
			ops = append(ops, op)
		}
	}
	return
}
