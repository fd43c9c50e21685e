package memory

import (
	"errors"
	"fmt"

	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var (
	ErrAlignment  = errors.New(f("address not aligned"))
	ErrOutOfRange = errors.New(f("address out of range"))
)

// Access is the kind of memory access.
type Access int

const (
	ACCESS_LOAD  = Access(0) // load
	ACCESS_STORE = Access(1) // store
	ACCESS_FETCH = Access(2) // fetch
)

func (a Access) String() string {
	switch a {
	case ACCESS_LOAD:
		return "load"
	case ACCESS_STORE:
		return "store"
	case ACCESS_FETCH:
		return "fetch"
	}
	return fmt.Sprintf("Access(%d)", int(a))
}

// AddressError is raised by a misaligned or out of range memory access.
type AddressError struct {
	Address uint32
	Access  Access
	Err     error
}

func (err *AddressError) Error() string {
	return f("address error on %v at %#08x: %v", err.Access.String(), err.Address, err.Err)
}

func (err *AddressError) Unwrap() error {
	return err.Err
}

// ErrConfigurationUnknown is an unknown memory configuration name.
type ErrConfigurationUnknown string

func (err ErrConfigurationUnknown) Error() string {
	return f("memory configuration '%v' not found", string(err))
}
