// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/text/language"

	"github.com/ezrec/mipsim/assembler"
	"github.com/ezrec/mipsim/cpu"
	"github.com/ezrec/mipsim/dump"
	"github.com/ezrec/mipsim/emulator"
	"github.com/ezrec/mipsim/fileio"
	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/settings"
	"github.com/ezrec/mipsim/translate"
)

// keyValues is a repeatable 'name=value' flag.
type keyValues [][2]string

func (kv *keyValues) String() string {
	var text []string
	for _, pair := range *kv {
		text = append(text, pair[0]+"="+pair[1])
	}
	return strings.Join(text, ",")
}

func (kv *keyValues) Set(text string) error {
	name, value, ok := strings.Cut(text, "=")
	if !ok || len(name) == 0 {
		return fmt.Errorf("expected name=value, not '%v'", text)
	}
	*kv = append(*kv, [2]string{name, value})
	return nil
}

// parseRange parses 'first-last', inclusive.
func parseRange(text string) (first, last uint32, err error) {
	from, to, ok := strings.Cut(text, "-")
	if !ok {
		err = fmt.Errorf("expected first-last, not '%v'", text)
		return
	}

	value, err := strconv.ParseUint(from, 0, 32)
	if err != nil {
		return
	}
	first = uint32(value)

	value, err = strconv.ParseUint(to, 0, 32)
	if err != nil {
		return
	}
	last = uint32(value)

	return
}

// run executes the program on a worker goroutine, while an interrupt
// signal stops it between instructions.
func run(emu *emulator.Emulator) (stop emulator.Stop, err error) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	g, ctx := errgroup.WithContext(context.Background())
	done := make(chan struct{})

	g.Go(func() (err error) {
		defer close(done)
		stop, err = emu.Run(ctx)
		return
	})

	g.Go(func() error {
		select {
		case <-sigs:
			emu.Interrupt()
		case <-done:
		}
		return nil
	})

	err = g.Wait()
	return
}

func main() {
	var verbose bool
	var settingsFile string
	var showSettings bool
	var overrides keyValues
	var defines keyValues
	var assembleOnly bool
	var interactive bool
	var showState bool
	var input string
	var dumpFormat string
	var dumpSegments string
	var dumpRange string
	var dumpOutput string
	var lang string

	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&settingsFile, "settings", "", ".toml settings file to use")
	flag.BoolVar(&showSettings, "show-settings", false, "Print the settings in effect")
	flag.Var(&overrides, "set", "Override a setting (name=value)")
	flag.Var(&defines, "D", "Predefine an .eqv symbol (name=value)")
	flag.BoolVar(&assembleOnly, "a", false, "Assemble only, do not execute")
	flag.BoolVar(&interactive, "i", false, "Interactive debugger")
	flag.BoolVar(&showState, "state", false, "Print the register state when execution stops")
	flag.StringVar(&input, "stdin", "-", "Syscall input")
	flag.StringVar(&dumpFormat, "dump", "", fmt.Sprintf("Dump memory when execution stops, in one of: %v", strings.Join(dump.Formats(), ", ")))
	flag.StringVar(&dumpSegments, "dump-segments", memory.SEGMENT_TEXT, "Comma separated segments to dump")
	flag.StringVar(&dumpRange, "dump-range", "", "Address range to dump (first-last), instead of segments")
	flag.StringVar(&dumpOutput, "o", "-", "Dump output")
	flag.StringVar(&lang, "lang", "", "Message language (BCP 47 tag), instead of the user's locale")

	flag.Parse()

	if len(lang) != 0 {
		tag, err := language.Parse(lang)
		if err != nil {
			log.Fatalf("-lang %v: %v", lang, err)
		}
		translate.Use(tag)
	}

	if flag.NArg() == 0 {
		log.Fatalf("%v: No source files given", os.Args[0])
	}

	s := settings.Default()
	if len(settingsFile) != 0 {
		inf, err := os.Open(settingsFile)
		if err != nil {
			log.Fatalf("%v: %v", settingsFile, err)
		}
		s, err = settings.Load(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", settingsFile, err)
		}
	}

	for _, pair := range overrides {
		err := s.Set(settings.Key(pair[0]), pair[1])
		if err != nil {
			log.Fatalf("-set %v: %v", pair[0], err)
		}
	}

	if showSettings {
		err := s.Dump(os.Stdout)
		if err != nil {
			log.Fatal(err)
		}
	}

	// Assemble all the sources, relative to the working directory.
	asm := assembler.New(s)
	asm.Verbose = verbose
	for _, pair := range defines {
		asm.Predefine(pair[0], pair[1])
	}

	var files []string
	for _, name := range flag.Args() {
		files = append(files, filepath.ToSlash(filepath.Clean(name)))
	}

	prog, err := asm.Assemble(os.DirFS("."), files...)
	for _, warning := range asm.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", warning)
	}
	if err != nil {
		var el *assembler.ErrorList
		if errors.As(err, &el) {
			for _, aerr := range el.Errors {
				fmt.Fprintf(os.Stderr, "error: %v\n", aerr)
			}
			os.Exit(1)
		}
		log.Fatal(err)
	}

	emu, err := emulator.NewEmulator(s)
	if err != nil {
		log.Fatal(err)
	}
	emu.Verbose = verbose
	emu.Load(prog, asm.Units()...)
	emu.Stdout = os.Stdout
	emu.Stderr = os.Stderr
	emu.Files.FS = fileio.DirFS(".")

	var stdin *bufio.Reader
	if input == "-" {
		stdin = bufio.NewReader(os.Stdin)
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		stdin = bufio.NewReader(inf)
	}
	emu.SetStdin(stdin)

	var stop emulator.Stop
	switch {
	case assembleOnly:
	case interactive:
		// The debugger shares the reader with syscall input.
		if input != "-" {
			stdin = bufio.NewReader(os.Stdin)
		}
		tty := term.IsTerminal(int(os.Stdin.Fd()))
		dbg := &debugger{
			emu:    emu,
			input:  stdin,
			output: os.Stdout,
			prompt: tty,
			color:  tty,
			run:    run,
		}
		err = dbg.Loop()
		if err != nil {
			log.Fatal(err)
		}
	default:
		stop, err = run(emu)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		} else if stop != emulator.STOP_EXIT && verbose {
			log.Printf("stopped: %v", stop)
		}
	}

	if showState {
		printState(os.Stderr, emu, term.IsTerminal(int(os.Stderr.Fd())))
	}

	if len(dumpFormat) != 0 {
		derr := writeDump(emu, dumpFormat, dumpOutput, dumpSegments, dumpRange)
		if derr != nil {
			log.Fatal(derr)
		}
	}

	switch {
	case err != nil:
		os.Exit(1)
	case stop == emulator.STOP_EXIT:
		os.Exit(emu.ExitCode)
	}
}

// writeDump dumps either an address range or a list of segments.
func writeDump(emu *emulator.Emulator, format string, output string, segments string, addresses string) (err error) {
	var ouf io.Writer = os.Stdout
	if output != "-" {
		var file *os.File
		file, err = os.Create(output)
		if err != nil {
			return
		}
		defer func() {
			cerr := file.Close()
			if err == nil {
				err = cerr
			}
		}()
		ouf = file
	}

	emu.Inspect(func(cp *cpu.Cpu) {
		if len(addresses) != 0 {
			var first, last uint32
			first, last, err = parseRange(addresses)
			if err != nil {
				return
			}
			err = dump.Write(ouf, format, cp.Memory, first, last)
			return
		}

		err = dump.WriteSegments(ouf, format, cp.Memory, strings.Split(segments, ",")...)
	})

	return
}
