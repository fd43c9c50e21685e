package emulator

import (
	"errors"

	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var (
	ErrHalted  = errors.New(f("program has terminated; reset to run again"))
	ErrTrapped = errors.New(f("program stopped on an error; step back or reset"))
	ErrRunning = errors.New(f("program is running"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo  int
	Address uint32
	Source  string
	Err     error
}

func (err *ErrRuntime) Error() string {
	return f("line %d [0x%08x] %v: %v", err.LineNo, err.Address, err.Source, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
