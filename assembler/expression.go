// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package assembler

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/mipsim/internal"
	"github.com/ezrec/mipsim/symbol"
)

// predeclared builds the names visible to $(...) expressions: integer
// .eqv values, labels defined so far, and LINENO.
func (asm *Assembler) predeclared(lineNo int) (pred starlark.StringDict) {
	pred = starlark.StringDict{
		"LINENO": starlark.MakeInt(lineNo),
	}

	unit := asm.unit
	for name, tokens := range unit.eqv {
		it, err := parseValue(tokens)
		if err != nil || it.kind != ITEM_INTEGER {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[name] = starlark.MakeInt64(it.value)
	}

	for sym := range internal.Concat(asm.prog.Symbols.All(), unit.symbols.All()) {
		pred[sym.Name] = starlark.MakeUint64(uint64(sym.Address))
	}

	return
}

// parenEval does compile-time $(...) evaluations.
func (asm *Assembler) parenEval(expr string, lineNo int) (value int64, err error) {
	thread := starlark.Thread{Name: "expr"}
	opts := syntax.FileOptions{}
	prog := "rc=" + expr + "\n"

	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, asm.predeclared(lineNo))
	if err != nil {
		err = fmt.Errorf("%w: $(%v): %w", ErrExpression, expr, err)
		return
	}

	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = fmt.Errorf("%w: $(%v)", ErrExpression, expr)
		return
	}

	value, ok = st_int.Int64()
	if !ok || value < -(1<<31) || value > 0xffffffff {
		err = fmt.Errorf("%w: $(%v) out of range", ErrExpression, expr)
	}

	return
}

// evaluate replaces $(...) tokens with their integer values.
func (asm *Assembler) evaluate(tokens []Token, lineNo int) (out []Token, err error) {
	for _, tok := range tokens {
		if tok.Kind == TOKEN_EXPRESSION {
			expr := strings.TrimSuffix(strings.TrimPrefix(tok.Text, "$("), ")")
			var value int64
			value, err = asm.parenEval(expr, lineNo)
			if err != nil {
				return
			}
			tok = Token{Kind: TOKEN_INTEGER, Text: fmt.Sprintf("%d", value), Column: tok.Column, Value: value}
		}
		out = append(out, tok)
	}
	return
}

// substitute replaces .eqv names with their definitions.
func (asm *Assembler) substitute(tokens []Token) (out []Token) {
	eqv := asm.unit.eqv
	if len(eqv) == 0 {
		return tokens
	}

	for _, tok := range tokens {
		if tok.Kind == TOKEN_IDENT {
			if value, ok := eqv[tok.Text]; ok {
				for _, sub := range value {
					sub.Column = tok.Column
					out = append(out, sub)
				}
				continue
			}
		}
		out = append(out, tok)
	}
	return
}

// lookup finds a label: in the unit during the first pass, and in the
// unit and then the global table afterwards.
func lookup(table *symbol.Table, name string, global bool) (sym symbol.Symbol, ok bool) {
	if global {
		return table.LocalOrGlobal(name)
	}
	return table.Lookup(name)
}
