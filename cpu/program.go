package cpu

import (
	"fmt"
	"iter"
	"slices"

	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/symbol"
)

// Statement is one encoded instruction of a program, with its source
// attribution. All the basic instructions expanded from one pseudo
// instruction share the same source line.
type Statement struct {
	Address     uint32
	Word        uint32
	Instruction *Instruction
	Operands    [3]int32
	Basic       string // Basic assembly, "addi $8,$0,1"

	Filename string
	LineNo   int
	Source   string
}

// NewStatement decodes an instruction word at an address.
func NewStatement(address uint32, word uint32) (stmt *Statement, err error) {
	stmt = &Statement{Address: address}
	err = stmt.SetWord(word)
	if err != nil {
		stmt = nil
	}
	return
}

// SetWord replaces the encoded word, re-decoding the statement.
func (stmt *Statement) SetWord(word uint32) (err error) {
	inst, op, err := Decode(word)
	if err != nil {
		return
	}

	stmt.Word = word
	stmt.Instruction = inst
	stmt.Operands = op
	stmt.Basic = inst.Basic(stmt.Address, op)

	return
}

// Execute the statement's semantics.
func (stmt *Statement) Execute(cpu *Cpu) error {
	return stmt.Instruction.Exec(cpu, stmt.Operands)
}

func (stmt *Statement) String() string {
	text := fmt.Sprintf("0x%08x 0x%08x %-24s", stmt.Address, stmt.Word, stmt.Basic)
	if stmt.LineNo > 0 {
		text += fmt.Sprintf(" %4d: %v", stmt.LineNo, stmt.Source)
	}
	return text
}

// Program is an assembled program: the initial memory image, and the
// statements of its text segments.
type Program struct {
	Config     *memory.Configuration
	Image      *memory.Memory
	Statements []*Statement   // In assembly order.
	Symbols    *symbol.Table  // Global symbols.
	Entry      uint32         // Initial PC.

	index map[uint32]*Statement
}

// NewProgram creates an empty program for a memory configuration.
func NewProgram(config *memory.Configuration) *Program {
	return &Program{
		Config:  config,
		Image:   memory.New(config),
		Symbols: symbol.NewTable("(global)", nil),
		Entry:   config.Base(memory.SEGMENT_TEXT),
		index:   map[uint32]*Statement{},
	}
}

// Add a statement to the program, writing its word to the image.
// A statement at the same address replaces the previous one.
func (prog *Program) Add(stmt *Statement) (err error) {
	_, err = prog.Image.SetWord(stmt.Address, stmt.Word)
	if err != nil {
		return
	}

	if old, ok := prog.index[stmt.Address]; ok {
		prog.Statements = slices.DeleteFunc(prog.Statements, func(s *Statement) bool { return s == old })
	}

	prog.Statements = append(prog.Statements, stmt)
	prog.index[stmt.Address] = stmt

	return
}

// Patch replaces the word of the statement at an address.
func (prog *Program) Patch(address uint32, word uint32) (err error) {
	stmt, ok := prog.index[address]
	if !ok {
		err = &memory.AddressError{Address: address, Access: memory.ACCESS_STORE, Err: ErrInstructionFetch}
		return
	}

	err = stmt.SetWord(word)
	if err != nil {
		return
	}

	_, err = prog.Image.SetWord(address, word)
	return
}

// Statement finds the statement at an address.
func (prog *Program) Statement(address uint32) (stmt *Statement, ok bool) {
	stmt, ok = prog.index[address]
	return
}

// Sorted returns the statements in address order.
func (prog *Program) Sorted() (stmts []*Statement) {
	stmts = slices.Clone(prog.Statements)
	slices.SortFunc(stmts, func(a, b *Statement) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		}
		return 0
	})
	return
}

// Words iterates over the encoded statements, in address order.
func (prog *Program) Words() iter.Seq2[uint32, uint32] {
	return func(yield func(address uint32, word uint32) bool) {
		for _, stmt := range prog.Sorted() {
			if !yield(stmt.Address, stmt.Word) {
				return
			}
		}
	}
}
