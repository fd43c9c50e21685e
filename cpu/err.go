package cpu

import (
	"errors"
	"fmt"

	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var (
	// Execution errors
	ErrDroppedOff       = errors.New(f("dropped off bottom of program"))
	ErrInstructionFetch = errors.New(f("no instruction at address"))
	ErrSyscallUnknown   = errors.New(f("unknown syscall"))
	ErrSyscallInput     = errors.New(f("invalid syscall input"))
	ErrHeapExhausted    = errors.New(f("request exceeds available heap storage"))
	ErrBranchState      = errors.New(f("invalid delayed branch state"))

	// Trap reasons
	ErrInstructionReserved = errors.New(f("reserved instruction"))
	ErrArithmeticOverflow  = errors.New(f("arithmetic overflow"))
	ErrTrapInstruction     = errors.New(f("trap"))
	ErrBreakInstruction    = errors.New(f("break instruction executed"))

	// Encoding errors
	ErrOperandCount  = errors.New(f("operand count"))
	ErrOperandRange  = errors.New(f("operand out of range"))
	ErrTemplate      = errors.New(f("invalid bit template"))
	ErrMnemonic      = errors.New(f("unknown mnemonic"))
	ErrExampleSyntax = errors.New(f("invalid example syntax"))
)

// Exception cause codes, as written to the CAUSE register.
type Cause int

const (
	CAUSE_ADDRESS_LOAD  = Cause(4)  // address error on load or fetch
	CAUSE_ADDRESS_STORE = Cause(5)  // address error on store
	CAUSE_SYSCALL       = Cause(8)  // syscall
	CAUSE_BREAKPOINT    = Cause(9)  // breakpoint
	CAUSE_RESERVED      = Cause(10) // reserved instruction
	CAUSE_OVERFLOW      = Cause(12) // arithmetic overflow
	CAUSE_TRAP          = Cause(13) // trap
)

func (c Cause) String() string {
	switch c {
	case CAUSE_ADDRESS_LOAD:
		return "address error on load or fetch"
	case CAUSE_ADDRESS_STORE:
		return "address error on store"
	case CAUSE_SYSCALL:
		return "syscall"
	case CAUSE_BREAKPOINT:
		return "breakpoint"
	case CAUSE_RESERVED:
		return "reserved instruction"
	case CAUSE_OVERFLOW:
		return "arithmetic overflow"
	case CAUSE_TRAP:
		return "trap"
	}
	return fmt.Sprintf("Cause(%d)", int(c))
}

// ErrTrap is a runtime exception which may be handled by the program's
// exception handler.
type ErrTrap struct {
	Cause   Cause
	Address uint32 // Bad virtual address, for address errors.
	Err     error
}

func (err *ErrTrap) Error() string {
	switch err.Cause {
	case CAUSE_ADDRESS_LOAD, CAUSE_ADDRESS_STORE:
		return f("runtime exception at 0x%08x: %v", err.Address, err.Err)
	}
	return f("runtime exception: %v", err.Err)
}

func (err *ErrTrap) Unwrap() error {
	return err.Err
}

// ErrExit is returned when the program exits by syscall.
type ErrExit struct {
	Code int
}

func (err *ErrExit) Error() string {
	return f("program exited with code %d", err.Code)
}

// ErrDecode reports an instruction word that matches no instruction.
type ErrDecode uint32

func (err ErrDecode) Error() string {
	return f("undefined instruction 0x%08x", uint32(err))
}

func (err ErrDecode) Is(target error) bool {
	return target == ErrInstructionReserved
}
