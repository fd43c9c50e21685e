// Package backstep records how to undo each executed instruction.
//
// The register and memory models report the previous value of every
// write to a Stepper. The Stepper groups those reports into one Step per
// executed instruction, so that StepBack undoes exactly one instruction.
package backstep

import (
	"errors"
	"fmt"

	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/register"
	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var ErrBackstepEmpty = errors.New(f("nothing to undo"))

// DEFAULT_MAX_DEPTH is the default number of undoable steps.
const DEFAULT_MAX_DEPTH = 2000

// Action is the kind of undo entry.
type Action int

const (
	ACTION_REGISTER = Action(0) // register
	ACTION_MEMORY   = Action(1) // memory
)

func (a Action) String() string {
	switch a {
	case ACTION_REGISTER:
		return "register"
	case ACTION_MEMORY:
		return "memory"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Entry is a single inverse operation.
type Entry struct {
	Action  Action
	Bank    register.Bank // ACTION_REGISTER: register bank.
	Number  int           // ACTION_REGISTER: register or condition flag number.
	Address uint32        // ACTION_MEMORY: address.
	Width   int           // ACTION_MEMORY: access width.
	Value   uint32        // Value to restore.
}

func (e Entry) String() string {
	switch e.Action {
	case ACTION_MEMORY:
		return fmt.Sprintf("memory[%#08x/%d]=%#x", e.Address, e.Width, e.Value)
	default:
		return fmt.Sprintf("%v[%d]=%#x", e.Bank, e.Number, e.Value)
	}
}

// Engine is machine state outside of the registers and memory, such as a
// pending delayed branch. It is opaque to the log.
type Engine [3]uint32

// Step is the undo information for one executed instruction.
type Step struct {
	PC      uint32  // Address the instruction executed from.
	Engine  Engine  // Engine state before the instruction.
	Entries []Entry // Inverse operations, in the order they were recorded.
}

// Target applies inverse operations.
type Target interface {
	RestoreRegister(bank register.Bank, number int, value int32) error
	RestoreMemory(address uint32, width int, value uint32) error
	RestoreStep(pc uint32, engine Engine)
}

// Stepper is the undo log.
type Stepper struct {
	Enabled bool

	log     Stack
	current *Step
	undoing bool
}

var _ register.Recorder = (*Stepper)(nil)
var _ memory.Recorder = (*Stepper)(nil)

// New creates an enabled stepper bounded to maxDepth steps.
func New(maxDepth int) *Stepper {
	return &Stepper{
		Enabled: true,
		log:     Stack{Limit: maxDepth},
	}
}

// SetMaxDepth changes the log bound, discarding the oldest steps if needed.
func (bs *Stepper) SetMaxDepth(maxDepth int) {
	bs.log.Limit = maxDepth
	if maxDepth > 0 && len(bs.log.Data) > maxDepth {
		drop := len(bs.log.Data) - maxDepth
		clear(bs.log.Data[:drop])
		bs.log.Data = bs.log.Data[drop:]
	}
}

// MaxDepth gets the log bound.
func (bs *Stepper) MaxDepth() int {
	return bs.log.Limit
}

// Depth returns the number of undoable steps.
func (bs *Stepper) Depth() int {
	return len(bs.log.Data)
}

// Empty returns true if there is nothing to undo.
func (bs *Stepper) Empty() bool {
	return bs.log.Empty()
}

// Reset discards the log.
func (bs *Stepper) Reset() {
	bs.log.Reset()
	bs.current = nil
}

// recording returns true if entries should be recorded now.
func (bs *Stepper) recording() bool {
	return bs.Enabled && !bs.undoing && bs.current != nil
}

// Begin opens a new step for the instruction at pc.
func (bs *Stepper) Begin(pc uint32, engine Engine) {
	if !bs.Enabled || bs.undoing {
		return
	}

	bs.current = &Step{PC: pc, Engine: engine}
	bs.log.Push(bs.current)
}

// End closes the current step. Writes made outside of a step are not recorded.
func (bs *Stepper) End() {
	bs.current = nil
}

// Record appends an entry to the current step.
func (bs *Stepper) Record(entry Entry) {
	if !bs.recording() {
		return
	}

	bs.current.Entries = append(bs.current.Entries, entry)
}

// RecordRegister records the previous value of a register.
func (bs *Stepper) RecordRegister(bank register.Bank, number int, old int32) {
	bs.Record(Entry{Action: ACTION_REGISTER, Bank: bank, Number: number, Value: uint32(old)})
}

// RecordMemory records the previous value of a memory location.
func (bs *Stepper) RecordMemory(address uint32, width int, old uint32) {
	bs.Record(Entry{Action: ACTION_MEMORY, Address: address, Width: width, Value: old})
}

// Peek returns the most recent step.
func (bs *Stepper) Peek() (step *Step, ok bool) {
	return bs.log.Peek()
}

// StepBack undoes the most recently executed instruction. Returns false
// if there is nothing to undo.
func (bs *Stepper) StepBack(target Target) (ok bool, err error) {
	step, ok := bs.log.Pop()
	if !ok {
		return
	}

	bs.current = nil
	bs.undoing = true
	defer func() { bs.undoing = false }()

	var errs []error
	for n := len(step.Entries) - 1; n >= 0; n-- {
		entry := step.Entries[n]
		switch entry.Action {
		case ACTION_REGISTER:
			errs = append(errs, target.RestoreRegister(entry.Bank, entry.Number, int32(entry.Value)))
		case ACTION_MEMORY:
			errs = append(errs, target.RestoreMemory(entry.Address, entry.Width, entry.Value))
		}
	}

	target.RestoreStep(step.PC, step.Engine)

	err = errors.Join(errs...)
	return
}
