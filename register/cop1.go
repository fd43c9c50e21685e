package register

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/ezrec/mipsim/event"
)

// CONDITION_FLAGS is the number of floating point condition flags.
const CONDITION_FLAGS = 8

// Cop1 is the floating point coprocessor register file.
// Double precision values live in an even/odd register pair, with the
// low order word in the even register.
type Cop1 struct {
	Recorder Recorder
	Events   *event.Bus

	regs       [32]*Register
	conditions uint8
}

// NewCop1 creates the floating point registers.
func NewCop1() (cop *Cop1) {
	cop = &Cop1{}
	for n := range cop.regs {
		cop.regs[n] = NewRegister(fmt.Sprintf("$f%d", n), n, 0)
	}
	return
}

// FprNumber parses a floating point register name ("$f12").
func FprNumber(name string) (number int, ok bool) {
	digits, found := strings.CutPrefix(name, "$f")
	if !found || len(digits) == 0 || digits[0] == '+' || digits[0] == '-' {
		return
	}
	value, err := strconv.Atoi(digits)
	if err != nil || value < 0 || value > 31 {
		return
	}
	return value, true
}

// Reset all registers and condition flags.
func (cop *Cop1) Reset() {
	for _, reg := range cop.regs {
		reg.Reset()
	}
	cop.conditions = 0
}

// Register gets a register by number.
func (cop *Cop1) Register(number int) (reg *Register, ok bool) {
	if number < 0 || number >= len(cop.regs) {
		return
	}
	return cop.regs[number], true
}

// Lookup finds a register by name.
func (cop *Cop1) Lookup(name string) (reg *Register, ok bool) {
	number, ok := FprNumber(name)
	if !ok {
		return
	}
	return cop.regs[number], true
}

// Get gets the raw bits of a register.
func (cop *Cop1) Get(number int) int32 {
	reg, ok := cop.Register(number)
	if !ok {
		return 0
	}
	return reg.Value()
}

// Set sets the raw bits of a register, returning the previous value.
func (cop *Cop1) Set(number int, value int32) (old int32, err error) {
	reg, ok := cop.Register(number)
	if !ok {
		err = ErrRegisterInvalid
		return
	}

	old = reg.Set(value)
	notify(cop.Recorder, cop.Events, BANK_COP1, reg, old)
	return
}

// Float gets a register as single precision.
func (cop *Cop1) Float(number int) float32 {
	return math.Float32frombits(uint32(cop.Get(number)))
}

// SetFloat sets a register to a single precision value.
func (cop *Cop1) SetFloat(number int, value float32) (err error) {
	_, err = cop.Set(number, int32(math.Float32bits(value)))
	return
}

// Long gets the raw 64 bits of an even/odd register pair.
func (cop *Cop1) Long(number int) (value uint64, err error) {
	if number%2 != 0 || number < 0 || number >= len(cop.regs) {
		err = ErrInvalidRegisterAccess
		return
	}
	low := uint32(cop.regs[number].Value())
	high := uint32(cop.regs[number+1].Value())
	value = (uint64(high) << 32) | uint64(low)
	return
}

// SetLong sets the raw 64 bits of an even/odd register pair.
func (cop *Cop1) SetLong(number int, value uint64) (err error) {
	if number%2 != 0 || number < 0 || number >= len(cop.regs) {
		err = ErrInvalidRegisterAccess
		return
	}
	_, err = cop.Set(number, int32(uint32(value)))
	if err != nil {
		return
	}
	_, err = cop.Set(number+1, int32(uint32(value>>32)))
	return
}

// Double gets an even/odd register pair as double precision.
func (cop *Cop1) Double(number int) (value float64, err error) {
	bits, err := cop.Long(number)
	if err != nil {
		return
	}
	value = math.Float64frombits(bits)
	return
}

// SetDouble sets an even/odd register pair to a double precision value.
func (cop *Cop1) SetDouble(number int, value float64) error {
	return cop.SetLong(number, math.Float64bits(value))
}

// Condition gets a condition flag.
func (cop *Cop1) Condition(flag int) bool {
	if flag < 0 || flag >= CONDITION_FLAGS {
		return false
	}
	return (cop.conditions & (1 << flag)) != 0
}

// Conditions gets all condition flags as a bit mask.
func (cop *Cop1) Conditions() uint8 {
	return cop.conditions
}

// SetCondition sets or clears a condition flag, returning the previous state.
func (cop *Cop1) SetCondition(flag int, value bool) (old bool, err error) {
	if flag < 0 || flag >= CONDITION_FLAGS {
		err = ErrRegisterInvalid
		return
	}

	old = cop.Condition(flag)
	if value {
		cop.conditions |= 1 << flag
	} else {
		cop.conditions &^= 1 << flag
	}

	var prior int32
	if old {
		prior = 1
	}
	if cop.Recorder != nil {
		cop.Recorder.RecordRegister(BANK_FLAGS, flag, prior)
	}
	if cop.Events.Active() {
		var now uint32
		if value {
			now = 1
		}
		cop.Events.Emit(event.Event{
			Kind:   event.CONDITION_WRITE,
			Name:   fmt.Sprintf("cc%d", flag),
			Number: flag,
			Value:  now,
			Old:    uint32(prior),
		})
	}

	return
}

// All iterates over all registers.
func (cop *Cop1) All() iter.Seq[*Register] {
	return func(yield func(reg *Register) bool) {
		for _, reg := range cop.regs {
			if !yield(reg) {
				return
			}
		}
	}
}
