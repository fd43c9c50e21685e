// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/k0kubun/pp/v3"

	"github.com/ezrec/mipsim/cpu"
	"github.com/ezrec/mipsim/dump"
	"github.com/ezrec/mipsim/emulator"
	"github.com/ezrec/mipsim/event"
)

var errQuit = errors.New("quit")

// snapshot is the register state, as shown by the 'state' command.
type snapshot struct {
	State     string
	Ticks     int
	LineNo    int
	Registers map[string]string
	Cop0      map[string]string
	Cop1      map[string]string
}

func takeSnapshot(emu *emulator.Emulator) (snap snapshot) {
	snap.State = emu.State().String()
	snap.LineNo = emu.LineNo()
	emu.Inspect(func(cp *cpu.Cpu) {
		snap.Ticks = cp.Ticks
		snap.Registers = map[string]string{}
		for reg := range cp.Registers.All() {
			snap.Registers[reg.Name] = fmt.Sprintf("0x%08x", uint32(reg.Value()))
		}
		snap.Cop0 = map[string]string{}
		for reg := range cp.Cop0.All() {
			snap.Cop0[reg.Name] = fmt.Sprintf("0x%08x", uint32(reg.Value()))
		}
		snap.Cop1 = map[string]string{}
		for reg := range cp.Cop1.All() {
			snap.Cop1[reg.Name] = fmt.Sprintf("0x%08x", uint32(reg.Value()))
		}
	})
	return
}

// printState pretty-prints the register state.
func printState(w io.Writer, emu *emulator.Emulator, color bool) {
	printer := pp.New()
	printer.SetOutput(w)
	printer.SetColoringEnabled(color)
	printer.Println(takeSnapshot(emu))
}

// debugger is the interactive command loop.
type debugger struct {
	emu    *emulator.Emulator
	input  *bufio.Reader
	output io.Writer
	prompt bool // Show a prompt before each command.
	color  bool // Colorize 'state' output.

	// run executes the program until it stops.
	run func(emu *emulator.Emulator) (emulator.Stop, error)

	unwatch func()
}

type command struct {
	usage string
	fn    func(dbg *debugger, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"step":   {"step [count]        execute instructions", (*debugger).cmdStep},
		"back":   {"back [count]        undo instructions", (*debugger).cmdBack},
		"run":    {"run                 run to exit, error or breakpoint", (*debugger).cmdRun},
		"break":  {"break <label|addr>  set a breakpoint", (*debugger).cmdBreak},
		"delete": {"delete <label|addr> clear a breakpoint", (*debugger).cmdDelete},
		"list":   {"list                list breakpoints", (*debugger).cmdList},
		"state":  {"state               show registers", (*debugger).cmdState},
		"labels": {"labels              show labels", (*debugger).cmdLabels},
		"mem":    {"mem <label|addr> [words] show memory", (*debugger).cmdMem},
		"watch":  {"watch               toggle state change tracing", (*debugger).cmdWatch},
		"reset":  {"reset               restart the program", (*debugger).cmdReset},
		"help":   {"help                this text", (*debugger).cmdHelp},
		"quit":   {"quit                leave the debugger", func(*debugger, []string) error { return errQuit }},
	}
}

var aliases = map[string]string{
	"s":        "step",
	"b":        "break",
	"c":        "run",
	"continue": "run",
	"r":        "state",
	"regs":     "state",
	"q":        "quit",
	"?":        "help",
}

// Loop reads and executes commands until 'quit' or end of input.
func (dbg *debugger) Loop() (err error) {
	defer func() {
		if dbg.unwatch != nil {
			dbg.unwatch()
		}
	}()

	for {
		if dbg.prompt {
			fmt.Fprintf(dbg.output, "(mipsim %v) ", dbg.emu.State())
		}

		var line string
		line, err = dbg.input.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return
		}

		err = dbg.Execute(line)
		if errors.Is(err, errQuit) {
			err = nil
			return
		}
		if err != nil {
			fmt.Fprintf(dbg.output, "error: %v\n", err)
		}
	}
}

// Execute runs a single command line.
func (dbg *debugger) Execute(line string) (err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}

	name := args[0]
	if alias, ok := aliases[name]; ok {
		name = alias
	}

	cmd, ok := commands[name]
	if !ok {
		err = fmt.Errorf("unknown command '%v', try 'help'", args[0])
		return
	}

	return cmd.fn(dbg, args[1:])
}

// where prints the source line at the PC.
func (dbg *debugger) where() {
	pc := dbg.emu.Registers.PC()
	stmt, ok := dbg.emu.Statement(pc)
	if !ok {
		fmt.Fprintf(dbg.output, "0x%08x: (no code)\n", pc)
		return
	}
	fmt.Fprintf(dbg.output, "0x%08x: %4d  %v\n", pc, stmt.LineNo, stmt.Source)
}

func count(args []string) (n int, err error) {
	n = 1
	if len(args) > 0 {
		n, err = strconv.Atoi(args[0])
		if err == nil && n < 1 {
			err = fmt.Errorf("count must be positive")
		}
	}
	return
}

// address parses a label name or a numeric address.
func (dbg *debugger) address(arg string) (addr uint32, err error) {
	if addr, ok := dbg.emu.LabelAddress(arg); ok {
		return addr, nil
	}

	value, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		err = fmt.Errorf("'%v' is not a label or address", arg)
		return
	}

	addr = uint32(value)
	return
}

// report prints why execution stopped.
func (dbg *debugger) report(stop emulator.Stop, err error) error {
	if err != nil {
		return err
	}

	switch stop {
	case emulator.STOP_STEP:
	case emulator.STOP_EXIT:
		fmt.Fprintf(dbg.output, "program exited with code %d\n", dbg.emu.ExitCode)
		return nil
	default:
		fmt.Fprintf(dbg.output, "stopped: %v\n", stop)
	}

	dbg.where()
	return nil
}

func (dbg *debugger) cmdStep(args []string) (err error) {
	n, err := count(args)
	if err != nil {
		return
	}

	var stop emulator.Stop
	for range n {
		stop, err = dbg.emu.Step()
		if err != nil || stop != emulator.STOP_STEP {
			break
		}
	}

	return dbg.report(stop, err)
}

func (dbg *debugger) cmdBack(args []string) (err error) {
	n, err := count(args)
	if err != nil {
		return
	}

	for range n {
		var ok bool
		ok, err = dbg.emu.StepBack()
		if err != nil {
			return
		}
		if !ok {
			fmt.Fprintln(dbg.output, "nothing to undo")
			break
		}
	}

	dbg.where()
	return
}

func (dbg *debugger) cmdRun(args []string) (err error) {
	stop, err := dbg.run(dbg.emu)
	return dbg.report(stop, err)
}

func (dbg *debugger) cmdBreak(args []string) (err error) {
	if len(args) != 1 {
		return fmt.Errorf("usage: %v", commands["break"].usage)
	}

	addr, err := dbg.address(args[0])
	if err != nil {
		return
	}

	dbg.emu.SetBreakpoint(addr)
	fmt.Fprintf(dbg.output, "breakpoint at 0x%08x\n", addr)
	return
}

func (dbg *debugger) cmdDelete(args []string) (err error) {
	if len(args) != 1 {
		return fmt.Errorf("usage: %v", commands["delete"].usage)
	}

	addr, err := dbg.address(args[0])
	if err != nil {
		return
	}

	if !dbg.emu.ClearBreakpoint(addr) {
		err = fmt.Errorf("no breakpoint at 0x%08x", addr)
	}
	return
}

func (dbg *debugger) cmdList(args []string) (err error) {
	for _, addr := range dbg.emu.Breakpoints() {
		fmt.Fprintf(dbg.output, "0x%08x\n", addr)
	}
	return
}

func (dbg *debugger) cmdState(args []string) (err error) {
	printState(dbg.output, dbg.emu, dbg.color)
	return
}

func (dbg *debugger) cmdLabels(args []string) (err error) {
	for name, addr := range dbg.emu.Labels() {
		fmt.Fprintf(dbg.output, "%-20s 0x%08x\n", name, addr)
	}
	return
}

func (dbg *debugger) cmdMem(args []string) (err error) {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %v", commands["mem"].usage)
	}

	first, err := dbg.address(args[0])
	if err != nil {
		return
	}

	words := 8
	if len(args) == 2 {
		words, err = count(args[1:])
		if err != nil {
			return
		}
	}

	last := first + uint32(words-1)*4
	if last < first {
		last = ^uint32(0)
	}

	dbg.emu.Inspect(func(cp *cpu.Cpu) {
		err = dump.Write(dbg.output, dump.FORMAT_SEGMENT_WINDOW, cp.Memory, first, last)
	})
	return
}

func (dbg *debugger) cmdWatch(args []string) (err error) {
	if dbg.unwatch != nil {
		dbg.unwatch()
		dbg.unwatch = nil
		fmt.Fprintln(dbg.output, "watch off")
		return
	}

	dbg.unwatch = dbg.emu.Events.Subscribe(func(ev event.Event) {
		fmt.Fprintf(dbg.output, "  %v\n", ev)
	})
	fmt.Fprintln(dbg.output, "watch on")
	return
}

func (dbg *debugger) cmdReset(args []string) (err error) {
	dbg.emu.Reset()
	dbg.where()
	return
}

func (dbg *debugger) cmdHelp(args []string) (err error) {
	for _, name := range []string{"step", "back", "run", "break", "delete", "list", "state", "labels", "mem", "watch", "reset", "help", "quit"} {
		fmt.Fprintf(dbg.output, "  %v\n", commands[name].usage)
	}
	return
}
