// Package register implements the MIPS32 register model.
//
// There are three register banks: the general purpose registers with the
// program counter and the HI/LO multiply/divide registers, the exception
// coprocessor (coprocessor 0), and the floating point coprocessor
// (coprocessor 1) with its eight condition flags.
//
// Every write returns the previous value, reports the previous value to an
// optional Recorder (for backstepping), and emits an event to an optional
// event bus (for front end highlighting).
package register

import (
	"errors"
	"fmt"

	"github.com/ezrec/mipsim/event"
	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var (
	ErrRegisterInvalid       = errors.New(f("register invalid"))
	ErrInvalidRegisterAccess = errors.New(f("invalid register access"))
)

// Bank identifies a register bank.
type Bank int

const (
	BANK_GPR   = Bank(0) // gpr
	BANK_COP0  = Bank(1) // cop0
	BANK_COP1  = Bank(2) // cop1
	BANK_FLAGS = Bank(3) // flags
)

func (b Bank) String() string {
	switch b {
	case BANK_GPR:
		return "gpr"
	case BANK_COP0:
		return "cop0"
	case BANK_COP1:
		return "cop1"
	case BANK_FLAGS:
		return "flags"
	}
	return fmt.Sprintf("Bank(%d)", int(b))
}

// Recorder is notified of the previous value of every register write.
type Recorder interface {
	RecordRegister(bank Bank, number int, old int32)
}

// Register is a single 32-bit register.
type Register struct {
	Name   string
	Number int

	value      int32
	resetValue int32
}

// NewRegister creates a register with a reset value.
func NewRegister(name string, number int, resetValue int32) *Register {
	return &Register{
		Name:       name,
		Number:     number,
		value:      resetValue,
		resetValue: resetValue,
	}
}

// Value gets the register value.
func (reg *Register) Value() int32 {
	return reg.value
}

// Set sets the register value, returning the previous value.
func (reg *Register) Set(value int32) (old int32) {
	old = reg.value
	reg.value = value
	return
}

// Reset restores the register to its reset value.
func (reg *Register) Reset() {
	reg.value = reg.resetValue
}

// ResetValue gets the reset value.
func (reg *Register) ResetValue() int32 {
	return reg.resetValue
}

// ChangeResetValue changes the reset value, and resets the register.
func (reg *Register) ChangeResetValue(value int32) {
	reg.resetValue = value
	reg.value = value
}

func (reg *Register) String() string {
	return fmt.Sprintf("%v=%#08x", reg.Name, uint32(reg.value))
}

// notify records and emits a register change.
func notify(recorder Recorder, events *event.Bus, bank Bank, reg *Register, old int32) {
	if recorder != nil {
		recorder.RecordRegister(bank, reg.Number, old)
	}
	if events.Active() {
		events.Emit(event.Event{
			Kind:   event.REGISTER_WRITE,
			Name:   reg.Name,
			Number: reg.Number,
			Value:  uint32(reg.value),
			Old:    uint32(old),
		})
	}
}
