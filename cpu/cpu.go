package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/ezrec/mipsim/backstep"
	"github.com/ezrec/mipsim/event"
	"github.com/ezrec/mipsim/fileio"
	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/register"
)

// Delayed branch states.
type branchState uint32

const (
	BRANCH_NONE       = branchState(0) // No branch pending.
	BRANCH_REGISTERED = branchState(1) // Branch taken by the current instruction.
	BRANCH_TRIGGERED  = branchState(2) // Branch taken after the current (delay slot) instruction.
)

// Cpu is the simulation context: the register files, memory, and the
// assembled program, along with the policies that affect execution.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	DelayedBranching  bool // Execute the instruction after a taken branch.
	SelfModifyingCode bool // Fetch instructions from memory, rather than the program.

	Registers *register.File    // General purpose registers, PC, HI and LO.
	Cop0      *register.Cop0    // Exception registers.
	Cop1      *register.Cop1    // Floating point registers and condition flags.
	Memory    *memory.Memory    // Simulated memory.
	Program   *Program          // Assembled program, if any.
	Backstep  *backstep.Stepper // Undo log.
	Events    *event.Bus        // State change events.

	Stdout io.Writer      // Syscall output.
	Stderr io.Writer      // Syscall error output, for file descriptor 2.
	Files  *fileio.Table // Files opened by the program.

	Ticks int // Instructions executed.

	stdin    *bufio.Reader
	branch   branchState
	branchTo uint32
	heap     uint32
}

// NewCpu creates a CPU with an empty memory using a configuration.
// Register and memory writes are recorded by the backstepper, and
// reported on the event bus.
func NewCpu(config *memory.Configuration) (cpu *Cpu) {
	cpu = &Cpu{
		Registers: register.NewFile(),
		Cop0:      register.NewCop0(),
		Cop1:      register.NewCop1(),
		Memory:    memory.New(config),
		Backstep:  backstep.New(backstep.DEFAULT_MAX_DEPTH),
		Events:    &event.Bus{},
		Stdout:    io.Discard,
		Stderr:    io.Discard,
		Files:     &fileio.Table{},
	}

	cpu.Registers.Recorder = cpu.Backstep
	cpu.Cop0.Recorder = cpu.Backstep
	cpu.Cop1.Recorder = cpu.Backstep
	cpu.Memory.Recorder = cpu.Backstep

	cpu.Registers.Events = cpu.Events
	cpu.Cop0.Events = cpu.Events
	cpu.Cop1.Events = cpu.Events
	cpu.Memory.Events = cpu.Events

	cpu.Reset()

	return
}

// SetStdin sets the source of syscall input.
func (cpu *Cpu) SetStdin(in io.Reader) {
	if in == nil {
		cpu.stdin = nil
		return
	}
	cpu.stdin = bufio.NewReader(in)
}

// Config gets the memory configuration.
func (cpu *Cpu) Config() *memory.Configuration {
	return cpu.Memory.Config
}

// Load attaches an assembled program, and resets the CPU.
func (cpu *Cpu) Load(prog *Program) {
	cpu.Program = prog
	cpu.Reset()
}

// Reset the CPU state.
//   - Restores memory to the program image.
//   - Resets all registers; the PC is set to the program entry point.
//   - Clears any pending delayed branch and the undo log.
func (cpu *Cpu) Reset() {
	config := cpu.Config()
	entry := config.Base(memory.SEGMENT_TEXT)

	if cpu.Program != nil {
		cpu.Memory.CopyFrom(cpu.Program.Image)
		config = cpu.Config()
		entry = cpu.Program.Entry
	} else {
		cpu.Memory.Clear()
	}

	cpu.Registers.Initialize(entry, config.GlobalPointer, config.StackPointer)
	cpu.Cop0.Reset()
	cpu.Cop1.Reset()

	cpu.branch = BRANCH_NONE
	cpu.branchTo = 0
	cpu.heap = config.Base(memory.SEGMENT_HEAP)
	cpu.Ticks = 0
	cpu.Backstep.Reset()

	err := cpu.Files.CloseAll()
	if err != nil && cpu.Verbose {
		log.Printf("cpu: reset: %v", err)
	}

	if cpu.Verbose {
		log.Printf("cpu: reset, entry 0x%08x", entry)
	}
}

func (cpu *Cpu) String() (text string) {
	for reg := range cpu.Registers.All() {
		text += fmt.Sprintf("%6s: %08x\n", reg.Name, uint32(reg.Value()))
	}
	return
}

// engine captures the execution state that lives outside registers and memory.
func (cpu *Cpu) engine() backstep.Engine {
	return backstep.Engine{uint32(cpu.branch), cpu.branchTo, cpu.heap}
}

// Statement finds the statement that will execute at an address.
func (cpu *Cpu) Statement(address uint32) (stmt *Statement, ok bool) {
	if cpu.SelfModifyingCode {
		word, written := cpu.Memory.RawWord(address)
		if !written {
			return
		}
		if cpu.Program != nil {
			stmt, ok = cpu.Program.Statement(address)
			if ok && stmt.Word == word {
				return
			}
		}
		var err error
		stmt, err = NewStatement(address, word)
		ok = err == nil
		return
	}

	if cpu.Program == nil {
		return
	}

	return cpu.Program.Statement(address)
}

// Fetch gets the statement at the PC.
func (cpu *Cpu) Fetch() (stmt *Statement, err error) {
	pc := cpu.Registers.PC()

	_, err = cpu.Memory.Fetch(pc)
	if err != nil {
		err = addressTrap(err)
		return
	}

	if !cpu.Config().IsText(pc) {
		err = addressTrap(&memory.AddressError{Address: pc, Access: memory.ACCESS_FETCH, Err: ErrInstructionFetch})
		return
	}

	stmt, ok := cpu.Statement(pc)
	if ok {
		return
	}

	if cpu.SelfModifyingCode {
		word, written := cpu.Memory.RawWord(pc)
		if written {
			err = &ErrTrap{Cause: CAUSE_RESERVED, Err: ErrDecode(word)}
			return
		}
	}

	err = ErrDroppedOff
	return
}

// Tick executes a single instruction, dispatching any exception it raises
// to the exception handler. Errors which are not handled stop execution.
func (cpu *Cpu) Tick() (err error) {
	pc := cpu.Registers.PC()

	stmt, err := cpu.Fetch()
	if errors.Is(err, ErrDroppedOff) {
		return
	}

	cpu.Backstep.Begin(pc, cpu.engine())
	defer cpu.Backstep.End()

	if err == nil {
		if cpu.Verbose {
			log.Printf("%08x: %v", pc, stmt.Basic)
		}

		cpu.Registers.SetPC(pc + 4)
		err = stmt.Execute(cpu)
	}

	cpu.Ticks++

	if err != nil {
		err = cpu.exception(pc, err)
		return
	}

	switch cpu.branch {
	case BRANCH_NONE:
	case BRANCH_REGISTERED:
		cpu.branch = BRANCH_TRIGGERED
	case BRANCH_TRIGGERED:
		cpu.Registers.SetPC(cpu.branchTo)
		cpu.branch = BRANCH_NONE
	default:
		err = ErrBranchState
	}

	return
}

// HandlerInstalled returns true if the program has code at the
// exception handler address.
func (cpu *Cpu) HandlerInstalled() bool {
	_, ok := cpu.Statement(cpu.Config().ExceptionHandler)
	return ok
}

// exception dispatches an error raised by the instruction at pc.
// Traps transfer control to the exception handler, if installed. Other
// errors, and traps with no handler, stop execution with the PC at the
// faulting instruction.
func (cpu *Cpu) exception(pc uint32, err error) error {
	var trap *ErrTrap
	if !errors.As(err, &trap) {
		var exit *ErrExit
		if !errors.As(err, &exit) {
			cpu.Registers.SetPC(pc)
		}
		return err
	}

	cpu.branch = BRANCH_NONE

	if cpu.Verbose {
		log.Printf("cpu: 0x%08x: exception %v", pc, trap.Cause)
	}

	// Coprocessor 0 records the trap whether or not it is handled.
	cpu.Cop0.Set(register.COP0_EPC, int32(pc))
	cpu.Cop0.Set(register.COP0_CAUSE, int32(trap.Cause)<<2)
	if trap.Cause == CAUSE_ADDRESS_LOAD || trap.Cause == CAUSE_ADDRESS_STORE {
		cpu.Cop0.Set(register.COP0_VADDR, int32(trap.Address))
	}

	if !cpu.HandlerInstalled() {
		cpu.Registers.SetPC(pc)
		return err
	}

	cpu.Registers.SetPC(cpu.Config().ExceptionHandler)

	return nil
}

// jump transfers control, either now or after the delay slot.
// A branch in a delay slot is ignored in favor of the pending branch.
func (cpu *Cpu) jump(target uint32) {
	if !cpu.DelayedBranching {
		cpu.Registers.SetPC(target)
		return
	}

	if cpu.branch != BRANCH_NONE {
		if cpu.Verbose {
			log.Printf("cpu: branch to 0x%08x in delay slot ignored", target)
		}
		return
	}

	cpu.branch = BRANCH_REGISTERED
	cpu.branchTo = target
}

// branch transfers control relative to the instruction after the branch.
func (cpu *Cpu) branchRelative(offset int32) {
	cpu.jump(cpu.Registers.PC() + uint32(offset<<2))
}

// link returns the return address for a jump or branch and link.
func (cpu *Cpu) link() int32 {
	next := cpu.Registers.PC()
	if cpu.DelayedBranching {
		next += 4
	}
	return int32(next)
}

// StepBack undoes the most recently executed instruction.
func (cpu *Cpu) StepBack() (ok bool, err error) {
	return cpu.Backstep.StepBack(cpu)
}

// RestoreRegister implements backstep.Target.
func (cpu *Cpu) RestoreRegister(bank register.Bank, number int, value int32) (err error) {
	switch bank {
	case register.BANK_GPR:
		_, err = cpu.Registers.Set(number, value)
	case register.BANK_COP0:
		_, err = cpu.Cop0.Set(number, value)
	case register.BANK_COP1:
		_, err = cpu.Cop1.Set(number, value)
	case register.BANK_FLAGS:
		_, err = cpu.Cop1.SetCondition(number, value != 0)
	default:
		err = register.ErrRegisterInvalid
	}
	return
}

// RestoreMemory implements backstep.Target.
func (cpu *Cpu) RestoreMemory(address uint32, width int, value uint32) (err error) {
	_, err = cpu.Memory.Set(address, width, value)
	return
}

// RestoreStep implements backstep.Target.
func (cpu *Cpu) RestoreStep(pc uint32, engine backstep.Engine) {
	cpu.Registers.SetPC(pc)
	cpu.branch = branchState(engine[0])
	cpu.branchTo = engine[1]
	cpu.heap = engine[2]
	if cpu.Ticks > 0 {
		cpu.Ticks--
	}
}

// addressTrap converts a memory access error into a trap.
func addressTrap(err error) error {
	var addrErr *memory.AddressError
	if !errors.As(err, &addrErr) {
		return err
	}

	cause := CAUSE_ADDRESS_LOAD
	if addrErr.Access == memory.ACCESS_STORE {
		cause = CAUSE_ADDRESS_STORE
	}

	return &ErrTrap{Cause: cause, Address: addrErr.Address, Err: err}
}
