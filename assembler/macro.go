// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package assembler

import (
	"fmt"
	"slices"
)

// Line is one tokenized source line.
type Line struct {
	Filename string
	LineNo   int
	Text     string
	Tokens   []Token

	Macro      *Macro // Macro the line was expanded from, if any.
	BodyLineNo int    // Line of the macro body.
}

// Macro represents a macro definition in the assembly language.
type Macro struct {
	Name     string
	Args     []string // Parameter names, with their leading '%'.
	Labels   []string // Labels defined in the body.
	FromLine int      // Line number of the .macro directive.
	ToLine   int      // Line number of the .end_macro directive.
	Lines    []Line   // Body of the macro.
}

// Equal returns true if two macros have the same name and arity.
func (macro *Macro) Equal(other *Macro) bool {
	return macro.Name == other.Name && len(macro.Args) == len(other.Args)
}

func (macro *Macro) String() string {
	return fmt.Sprintf("%v/%d", macro.Name, len(macro.Args))
}

// findLabels collects the labels defined by the macro body.
func (macro *Macro) findLabels() {
	macro.Labels = macro.Labels[:0]
	for _, line := range macro.Lines {
		tokens := line.Tokens
		for len(tokens) >= 2 && tokens[0].Kind == TOKEN_IDENT && tokens[1].Kind == TOKEN_COLON {
			if !slices.Contains(macro.Labels, tokens[0].Text) {
				macro.Labels = append(macro.Labels, tokens[0].Text)
			}
			tokens = tokens[2:]
		}
	}
}

// Expand produces the body of the macro for one invocation. Parameters
// are replaced by the argument tokens, and body labels are renamed to
// "<label>_M<id>" so each expansion has its own labels.
func (macro *Macro) Expand(args [][]Token, id int) (lines []Line, err error) {
	if len(args) != len(macro.Args) {
		err = fmt.Errorf("%w: %v", ErrMacroArgs, macro)
		return
	}

	for _, line := range macro.Lines {
		var tokens []Token
		for _, tok := range line.Tokens {
			switch tok.Kind {
			case TOKEN_PARAM:
				n := slices.Index(macro.Args, tok.Text)
				if n < 0 {
					err = fmt.Errorf("%w: %v: %v", ErrMacroSyntax, macro, tok.Text)
					return
				}
				for _, arg := range args[n] {
					arg.Column = tok.Column
					tokens = append(tokens, arg)
				}
				continue
			case TOKEN_IDENT:
				if slices.Contains(macro.Labels, tok.Text) {
					tok.Text = fmt.Sprintf("%v_M%d", tok.Text, id)
				}
			}
			tokens = append(tokens, tok)
		}

		lines = append(lines, Line{
			Filename: line.Filename,
			LineNo:   line.LineNo,
			Text:     joinTokens(tokens),
			Tokens:   tokens,
		})
	}

	return
}

// MacroPool is the set of macros visible to a translation unit, and the
// stack of macros being expanded.
type MacroPool struct {
	macros    []*Macro
	callStack []string
}

// Add a macro. Returns false if a macro with the same name and arity
// already exists; the earlier definition is kept.
func (pool *MacroPool) Add(macro *Macro) bool {
	for _, other := range pool.macros {
		if other.Equal(macro) {
			return false
		}
	}
	pool.macros = append(pool.macros, macro)
	return true
}

// GetMatchingMacro finds a macro by name and argument count. When
// several match, the one defined on the lowest line wins.
func (pool *MacroPool) GetMatchingMacro(name string, arity int) (macro *Macro, ok bool) {
	for _, candidate := range pool.macros {
		if candidate.Name != name || len(candidate.Args) != arity {
			continue
		}
		if macro == nil || candidate.FromLine < macro.FromLine {
			macro = candidate
		}
	}
	ok = macro != nil
	return
}

// MatchesAnyMacroName returns true if any macro has the name.
func (pool *MacroPool) MatchesAnyMacroName(name string) bool {
	return slices.ContainsFunc(pool.macros, func(macro *Macro) bool { return macro.Name == name })
}

// PushOnCallStack records the start of a macro expansion. It returns
// true, and does not push, if the macro is already being expanded.
func (pool *MacroPool) PushOnCallStack(name string) (recursive bool) {
	if slices.Contains(pool.callStack, name) {
		return true
	}
	pool.callStack = append(pool.callStack, name)
	return false
}

// PopOnCallStack records the end of the innermost macro expansion.
func (pool *MacroPool) PopOnCallStack() {
	if len(pool.callStack) > 0 {
		pool.callStack = pool.callStack[:len(pool.callStack)-1]
	}
}

// CallStack returns the names of the macros being expanded, outermost first.
func (pool *MacroPool) CallStack() []string {
	return slices.Clone(pool.callStack)
}
