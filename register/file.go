package register

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/ezrec/mipsim/event"
)

// Pseudo register numbers for the non-architectural registers.
const (
	REG_PC = 32 // Program counter.
	REG_HI = 33 // High half of multiply, remainder of divide.
	REG_LO = 34 // Low half of multiply, quotient of divide.
)

// Well known general purpose register numbers.
const (
	REG_ZERO = 0
	REG_AT   = 1
	REG_V0   = 2
	REG_V1   = 3
	REG_A0   = 4
	REG_A1   = 5
	REG_A2   = 6
	REG_A3   = 7
	REG_T0   = 8
	REG_T1   = 9
	REG_T2   = 10
	REG_T3   = 11
	REG_T4   = 12
	REG_T5   = 13
	REG_T6   = 14
	REG_T7   = 15
	REG_S0   = 16
	REG_S1   = 17
	REG_S2   = 18
	REG_S3   = 19
	REG_S4   = 20
	REG_S5   = 21
	REG_S6   = 22
	REG_S7   = 23
	REG_T8   = 24
	REG_T9   = 25
	REG_K0   = 26
	REG_K1   = 27
	REG_GP   = 28
	REG_SP   = 29
	REG_FP   = 30
	REG_RA   = 31
)

var gprNames = [32]string{
	"$zero", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$fp", "$ra",
}

// GprName returns the conventional name of a general purpose register.
func GprName(number int) string {
	if number < 0 || number >= len(gprNames) {
		return fmt.Sprintf("$%d", number)
	}
	return gprNames[number]
}

// GprNumber parses a general purpose register name, either by
// conventional name ("$t0") or by number ("$8").
func GprNumber(name string) (number int, ok bool) {
	if !strings.HasPrefix(name, "$") {
		return
	}

	for n, reg := range gprNames {
		if reg == name {
			return n, true
		}
	}

	value, err := strconv.Atoi(name[1:])
	if err != nil || value < 0 || value > 31 || name[1] == '+' || name[1] == '-' {
		return
	}

	return value, true
}

// File is the general purpose register file, with the program counter
// and the HI/LO registers.
type File struct {
	Recorder Recorder   // Optional recorder of previous values.
	Events   *event.Bus // Optional event bus.

	gpr [32]*Register
	pc  *Register
	hi  *Register
	lo  *Register
}

// NewFile creates a register file. $zero is hardwired to zero.
func NewFile() (file *File) {
	file = &File{
		pc: NewRegister("pc", REG_PC, 0),
		hi: NewRegister("hi", REG_HI, 0),
		lo: NewRegister("lo", REG_LO, 0),
	}

	for n := range file.gpr {
		file.gpr[n] = NewRegister(gprNames[n], n, 0)
	}

	return
}

// Initialize sets the reset values of the registers that depend on the
// memory configuration, then resets the file.
func (file *File) Initialize(pc, gp, sp uint32) {
	file.pc.ChangeResetValue(int32(pc))
	file.gpr[REG_GP].ChangeResetValue(int32(gp))
	file.gpr[REG_SP].ChangeResetValue(int32(sp))
	file.Reset()
}

// Reset all registers to their reset values.
func (file *File) Reset() {
	for _, reg := range file.gpr {
		reg.Reset()
	}
	file.pc.Reset()
	file.hi.Reset()
	file.lo.Reset()
}

// Register gets a register by number, including REG_PC, REG_HI and REG_LO.
func (file *File) Register(number int) (reg *Register, ok bool) {
	switch {
	case number >= 0 && number < len(file.gpr):
		reg = file.gpr[number]
	case number == REG_PC:
		reg = file.pc
	case number == REG_HI:
		reg = file.hi
	case number == REG_LO:
		reg = file.lo
	default:
		return
	}

	ok = true
	return
}

// Lookup finds a register by name. "pc", "hi" and "lo" are accepted.
func (file *File) Lookup(name string) (reg *Register, ok bool) {
	switch name {
	case "pc":
		return file.pc, true
	case "hi":
		return file.hi, true
	case "lo":
		return file.lo, true
	}

	number, ok := GprNumber(name)
	if !ok {
		return
	}

	return file.gpr[number], true
}

// Get gets the value of a register by number. Invalid numbers read as 0.
func (file *File) Get(number int) int32 {
	reg, ok := file.Register(number)
	if !ok {
		return 0
	}
	return reg.Value()
}

// Set sets a register by number, returning the previous value.
// Writes to $zero are discarded.
func (file *File) Set(number int, value int32) (old int32, err error) {
	reg, ok := file.Register(number)
	if !ok {
		err = ErrRegisterInvalid
		return
	}

	if number == REG_ZERO {
		return
	}

	old = reg.Set(value)
	notify(file.Recorder, file.Events, BANK_GPR, reg, old)

	return
}

// PC gets the program counter.
func (file *File) PC() uint32 {
	return uint32(file.pc.Value())
}

// SetPC sets the program counter, returning the previous value.
// PC changes are not reported to the Recorder; the backstepper
// restores the PC from the address of each undone instruction.
func (file *File) SetPC(pc uint32) (old uint32) {
	old = uint32(file.pc.Set(int32(pc)))
	if file.Events.Active() {
		file.Events.Emit(event.Event{
			Kind:   event.REGISTER_WRITE,
			Name:   file.pc.Name,
			Number: REG_PC,
			Value:  pc,
			Old:    old,
		})
	}
	return
}

// Hi gets the HI register.
func (file *File) Hi() int32 {
	return file.hi.Value()
}

// Lo gets the LO register.
func (file *File) Lo() int32 {
	return file.lo.Value()
}

// SetHiLo sets both the HI and LO registers.
func (file *File) SetHiLo(hi, lo int32) {
	file.Set(REG_HI, hi)
	file.Set(REG_LO, lo)
}

// All iterates over all registers, general purpose first, then pc, hi, lo.
func (file *File) All() iter.Seq[*Register] {
	return func(yield func(reg *Register) bool) {
		for _, reg := range file.gpr {
			if !yield(reg) {
				return
			}
		}
		for _, reg := range []*Register{file.pc, file.hi, file.lo} {
			if !yield(reg) {
				return
			}
		}
	}
}
