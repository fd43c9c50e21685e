package register

import (
	"iter"
	"strings"

	"github.com/ezrec/mipsim/event"
)

// Coprocessor 0 register numbers.
const (
	COP0_VADDR  = 8
	COP0_STATUS = 12
	COP0_CAUSE  = 13
	COP0_EPC    = 14
)

// Status register bits.
const (
	STATUS_INTERRUPT_ENABLE = 1 << 0 // Interrupt enable.
	STATUS_EXCEPTION_LEVEL  = 1 << 1 // Set while handling an exception.
	STATUS_USER_MODE        = 1 << 4 // User mode.
	STATUS_INTERRUPT_MASK   = 0xff00 // Per-level interrupt enables.
)

// STATUS_RESET is the reset value of the status register.
const STATUS_RESET = 0x0000ff11

// Cop0 is the exception coprocessor register file.
type Cop0 struct {
	Recorder Recorder
	Events   *event.Bus

	regs []*Register
}

// NewCop0 creates the exception coprocessor registers.
func NewCop0() *Cop0 {
	return &Cop0{
		regs: []*Register{
			NewRegister("$8 (vaddr)", COP0_VADDR, 0),
			NewRegister("$12 (status)", COP0_STATUS, STATUS_RESET),
			NewRegister("$13 (cause)", COP0_CAUSE, 0),
			NewRegister("$14 (epc)", COP0_EPC, 0),
		},
	}
}

// Reset all registers.
func (cop *Cop0) Reset() {
	for _, reg := range cop.regs {
		reg.Reset()
	}
}

// Register gets a register by number.
func (cop *Cop0) Register(number int) (reg *Register, ok bool) {
	for _, reg = range cop.regs {
		if reg.Number == number {
			return reg, true
		}
	}
	return nil, false
}

// Lookup finds a register by name: "$12", "$status", or "status".
func (cop *Cop0) Lookup(name string) (reg *Register, ok bool) {
	name = strings.TrimPrefix(name, "$")
	for _, reg = range cop.regs {
		number, label, _ := strings.Cut(strings.TrimPrefix(reg.Name, "$"), " ")
		label = strings.Trim(label, "()")
		if name == number || name == label {
			return reg, true
		}
	}
	return nil, false
}

// Get gets a register value. Unimplemented registers read as 0.
func (cop *Cop0) Get(number int) int32 {
	reg, ok := cop.Register(number)
	if !ok {
		return 0
	}
	return reg.Value()
}

// Set sets a register, returning the previous value.
func (cop *Cop0) Set(number int, value int32) (old int32, err error) {
	reg, ok := cop.Register(number)
	if !ok {
		err = ErrRegisterInvalid
		return
	}

	old = reg.Set(value)
	notify(cop.Recorder, cop.Events, BANK_COP0, reg, old)
	return
}

// All iterates over all registers.
func (cop *Cop0) All() iter.Seq[*Register] {
	return func(yield func(reg *Register) bool) {
		for _, reg := range cop.regs {
			if !yield(reg) {
				return
			}
		}
	}
}
