// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"iter"
	"log"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ezrec/mipsim/cpu"
	"github.com/ezrec/mipsim/internal"
	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/settings"
	"github.com/ezrec/mipsim/symbol"
)

// State of the emulator.
type State int

// STATE_READY has a program loaded, not yet executed. STATE_PAUSED is
// stopped between instructions, STATE_TRAPPED by an unhandled error, and
// STATE_HALTED by an exit or running off the end of the text.
//
//go:generate go tool stringer -linecomment -type=State,Stop
const (
	STATE_READY    = State(0) // ready
	STATE_RUNNING  = State(1) // running
	STATE_STEPPING = State(2) // stepping
	STATE_PAUSED   = State(3) // paused
	STATE_TRAPPED  = State(4) // trapped
	STATE_HALTED   = State(5) // halted
)

// Stop is the reason execution stopped.
type Stop int

const (
	STOP_STEP        = Stop(0) // step
	STOP_EXIT        = Stop(1) // exit
	STOP_BREAKPOINT  = Stop(2) // breakpoint
	STOP_INTERRUPT   = Stop(3) // interrupt
	STOP_DROPPED_OFF = Stop(4) // dropped off bottom
	STOP_ERROR       = Stop(5) // error
)

// Emulator drives a CPU through a loaded program.
//
// Run is intended to be called from a worker goroutine. Interrupt may be
// called from any goroutine, and Inspect gives other goroutines a
// consistent view of the CPU state while Run is active.
type Emulator struct {
	Verbose  bool // If set, enables verbose logging.
	*cpu.Cpu      // Reference to the CPU simulation.

	ExitCode int // Exit code of the last exit syscall.

	mutex       sync.RWMutex
	state       State
	interrupt   atomic.Bool
	breakpoints map[uint32]bool
	tables      []*symbol.Table
}

// NewEmulator creates a new emulator, configured from settings.
func NewEmulator(s *settings.Settings) (emu *Emulator, err error) {
	if s == nil {
		s = settings.Default()
	}

	config, err := memory.LookupConfiguration(s.String(settings.MEMORY_CONFIGURATION))
	if err != nil {
		return
	}

	emu = &Emulator{
		Cpu:         cpu.NewCpu(config),
		breakpoints: map[uint32]bool{},
	}

	emu.Cpu.DelayedBranching = s.Bool(settings.DELAYED_BRANCHING)
	emu.Cpu.SelfModifyingCode = s.Bool(settings.SELF_MODIFYING_CODE)
	emu.Cpu.Backstep.Enabled = s.Bool(settings.BACKSTEP_ENABLED)
	emu.Cpu.Backstep.SetMaxDepth(s.Int(settings.BACKSTEP_MAX_DEPTH))

	return
}

// Load a program, and the local label tables of its source files.
func (emu *Emulator) Load(prog *cpu.Program, tables ...*symbol.Table) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	emu.tables = append([]*symbol.Table{prog.Symbols}, tables...)
	emu.Cpu.Load(prog)
	emu.ExitCode = 0
	emu.state = STATE_READY
}

// Reset the program to its initial state.
func (emu *Emulator) Reset() {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	emu.Cpu.Reset()
	emu.ExitCode = 0
	emu.state = STATE_READY
}

// State returns the current emulator state.
func (emu *Emulator) State() State {
	emu.mutex.RLock()
	defer emu.mutex.RUnlock()
	return emu.state
}

// Inspect calls fn with the CPU, holding off execution until it returns.
// fn must not call other Emulator methods.
func (emu *Emulator) Inspect(fn func(*cpu.Cpu)) {
	emu.mutex.RLock()
	defer emu.mutex.RUnlock()
	fn(emu.Cpu)
}

// Labels iterates over the label names and addresses of the program,
// global labels first.
func (emu *Emulator) Labels() iter.Seq2[string, uint32] {
	var seqs []iter.Seq2[string, uint32]
	for _, table := range emu.tables {
		seqs = append(seqs, func(yield func(string, uint32) bool) {
			for sym := range table.All() {
				if !yield(sym.Name, sym.Address) {
					return
				}
			}
		})
	}
	return internal.Concat2(seqs...)
}

// LabelAddress finds the address of a label.
func (emu *Emulator) LabelAddress(name string) (address uint32, ok bool) {
	for label, addr := range emu.Labels() {
		if label == name {
			return addr, true
		}
	}
	return
}

// LineNo returns the source line number of the instruction at the PC.
func (emu *Emulator) LineNo() int {
	stmt, ok := emu.Cpu.Statement(emu.Cpu.Registers.PC())
	if !ok {
		return 0
	}
	return stmt.LineNo
}

// SetBreakpoint sets a breakpoint at an address.
func (emu *Emulator) SetBreakpoint(address uint32) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()
	emu.breakpoints[address] = true
}

// ClearBreakpoint clears a breakpoint. Returns false if there was none.
func (emu *Emulator) ClearBreakpoint(address uint32) (ok bool) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()
	ok = emu.breakpoints[address]
	delete(emu.breakpoints, address)
	return
}

// Breakpoints returns the breakpoint addresses, in order.
func (emu *Emulator) Breakpoints() []uint32 {
	emu.mutex.RLock()
	defer emu.mutex.RUnlock()
	return slices.Sorted(maps.Keys(emu.breakpoints))
}

// Interrupt requests that Run stop before the next instruction.
func (emu *Emulator) Interrupt() {
	emu.interrupt.Store(true)
}

// runnable checks that execution may continue.
func (emu *Emulator) runnable() (err error) {
	switch emu.state {
	case STATE_HALTED:
		err = ErrHalted
	case STATE_TRAPPED:
		err = ErrTrapped
	case STATE_RUNNING, STATE_STEPPING:
		err = ErrRunning
	}
	return
}

// tick executes one instruction. The caller holds the lock.
func (emu *Emulator) tick() (stop Stop, err error) {
	cp := emu.Cpu
	cp.Verbose = emu.Verbose

	pc := cp.Registers.PC()
	stmt, _ := cp.Statement(pc)

	err = cp.Tick()

	var exit *cpu.ErrExit
	switch {
	case err == nil:
		stop = STOP_STEP
	case errors.Is(err, cpu.ErrDroppedOff):
		stop = STOP_DROPPED_OFF
		emu.state = STATE_HALTED
		err = nil
	case errors.As(err, &exit):
		stop = STOP_EXIT
		emu.ExitCode = exit.Code
		emu.state = STATE_HALTED
		err = nil
	default:
		stop = STOP_ERROR
		emu.state = STATE_TRAPPED
		rerr := &ErrRuntime{Address: pc, Err: err}
		if stmt != nil {
			rerr.LineNo = stmt.LineNo
			rerr.Source = stmt.Source
			if rerr.Source == "" {
				rerr.Source = stmt.Basic
			}
		}
		err = rerr
	}

	if emu.Verbose && stop != STOP_STEP {
		log.Printf("emulator: stopped at 0x%08x: %v", pc, stop)
	}

	return
}

// Step executes a single instruction.
func (emu *Emulator) Step() (stop Stop, err error) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	err = emu.runnable()
	if err != nil {
		stop = STOP_ERROR
		return
	}

	emu.state = STATE_STEPPING
	stop, err = emu.tick()
	if emu.state == STATE_STEPPING {
		emu.state = STATE_PAUSED
	}

	return
}

// Run executes until the program exits, drops off the end of its text,
// reaches a breakpoint, fails, or is interrupted. A breakpoint at the
// starting PC does not stop execution, so that Run may resume from it.
// Cancelling the context is the same as Interrupt.
func (emu *Emulator) Run(ctx context.Context) (stop Stop, err error) {
	emu.mutex.Lock()
	err = emu.runnable()
	if err != nil {
		emu.mutex.Unlock()
		stop = STOP_ERROR
		return
	}
	emu.interrupt.Store(false)
	emu.state = STATE_RUNNING
	emu.mutex.Unlock()

	for first := true; ; first = false {
		if emu.interrupt.Swap(false) || ctx.Err() != nil {
			stop = STOP_INTERRUPT
			break
		}

		emu.mutex.Lock()
		if !first && emu.breakpoints[emu.Cpu.Registers.PC()] {
			emu.mutex.Unlock()
			stop = STOP_BREAKPOINT
			break
		}
		stop, err = emu.tick()
		emu.mutex.Unlock()

		if stop != STOP_STEP {
			break
		}
	}

	emu.mutex.Lock()
	if emu.state == STATE_RUNNING {
		emu.state = STATE_PAUSED
	}
	emu.mutex.Unlock()

	return
}

// StepBack undoes the most recent instruction. Returns false if there is
// nothing to undo. A halted or trapped program may be stepped back, and
// resumed.
func (emu *Emulator) StepBack() (ok bool, err error) {
	emu.mutex.Lock()
	defer emu.mutex.Unlock()

	if emu.state == STATE_RUNNING || emu.state == STATE_STEPPING {
		err = ErrRunning
		return
	}

	ok, err = emu.Cpu.StepBack()
	if ok && err == nil && emu.state != STATE_READY {
		emu.state = STATE_PAUSED
	}

	return
}
