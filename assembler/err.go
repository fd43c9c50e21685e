package assembler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ezrec/mipsim/symbol"
	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var (
	ErrTooManyErrors      = errors.New(f("too many errors"))
	ErrExtendedDisabled   = errors.New(f("extended (pseudo) instruction or format not permitted"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrOperandInvalid     = errors.New(f("operand invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrDirectiveInvalid   = errors.New(f("directive invalid"))
	ErrDirectiveSyntax    = errors.New(f("directive syntax"))
	ErrDirectiveSegment   = errors.New(f("directive not valid in this segment"))
	ErrInstructionSegment = errors.New(f("instruction not valid in a data segment"))
	ErrSegmentRange       = errors.New(f("address not in segment"))
	ErrLabelSyntax        = errors.New(f("label syntax"))
	ErrGlobalUndefined    = errors.New(f("global label not defined"))
	ErrValueTruncated     = errors.New(f("value truncated to fit"))
	ErrSetIgnored         = errors.New(f(".set directive ignored"))
	ErrEqvSyntax          = errors.New(f(".eqv syntax"))
	ErrEqvDuplicate       = errors.New(f(".eqv duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated, first definition used"))
	ErrMacroLonely        = errors.New(f(".macro without .end_macro"))
	ErrMacroLonelyEnd     = errors.New(f(".end_macro without .macro"))
	ErrMacroRecursion     = errors.New(f("macro expansion is recursive"))
	ErrMacroArgs          = errors.New(f("no macro with this argument count"))
	ErrIncludeUnavailable = errors.New(f(".include has no file system"))
	ErrIncludeRecursion   = errors.New(f(".include is recursive"))
	ErrExpression         = errors.New(f("invalid expression"))
)

// ErrToken reports a character sequence which is not a token.
type ErrToken struct {
	Column int
	Text   string
}

func (err *ErrToken) Error() string {
	return f("invalid token '%v'", err.Text)
}

// ErrSymbolNotFound is an unresolved label reference.
type ErrSymbolNotFound string

func (err ErrSymbolNotFound) Error() string {
	return f("Symbol \"%v\" not found in symbol table.", string(err))
}

func (err ErrSymbolNotFound) Is(target error) bool {
	return target == symbol.ErrSymbolMissing
}

// ErrMacro is an error in the expansion of a macro body.
type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err *ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err *ErrMacro) Unwrap() error {
	return err.Err
}

// ErrAssembly is an error or warning at a source location.
type ErrAssembly struct {
	Filename string
	LineNo   int
	Column   int
	Err      error
}

func (err *ErrAssembly) Error() string {
	return f("%v line %d column %d: %v", err.Filename, err.LineNo, err.Column, err.Err)
}

func (err *ErrAssembly) Unwrap() error {
	return err.Err
}

// ErrorList accumulates the errors and warnings of an assembly.
type ErrorList struct {
	MaxErrors         int  // Assembly stops after this many errors, if non-zero.
	WarningsAreErrors bool // Report warnings as errors.

	Errors   []*ErrAssembly
	Warnings []*ErrAssembly
}

// Add an error. Errors after the limit are dropped.
func (el *ErrorList) Add(err *ErrAssembly) {
	if el.Full() {
		return
	}

	el.Errors = append(el.Errors, err)
	if el.Full() {
		el.Errors = append(el.Errors, &ErrAssembly{
			Filename: err.Filename,
			LineNo:   err.LineNo,
			Err:      fmt.Errorf("%w (%d)", ErrTooManyErrors, el.MaxErrors),
		})
	}
}

// Warn adds a warning, or an error if warnings are errors.
func (el *ErrorList) Warn(err *ErrAssembly) {
	if el.WarningsAreErrors {
		el.Add(err)
		return
	}
	el.Warnings = append(el.Warnings, err)
}

// Full returns true once the error limit is reached.
func (el *ErrorList) Full() bool {
	return el.MaxErrors > 0 && len(el.Errors) >= el.MaxErrors
}

// HasErrors returns true if any error was reported.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

func (el *ErrorList) Error() string {
	lines := make([]string, 0, len(el.Errors))
	for _, err := range el.Errors {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}

func (el *ErrorList) Unwrap() (errs []error) {
	for _, err := range el.Errors {
		errs = append(errs, err)
	}
	return
}
