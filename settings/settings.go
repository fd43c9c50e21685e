// Package settings holds the policy flags read by the assembler and simulator.
//
// All settings are addressed by a stable Key. Values are kept as strings,
// and converted on access, so a settings snapshot can be loaded from any
// key/value source.
package settings

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var (
	ErrKeyUnknown = errors.New(f("unknown setting"))
	ErrValue      = errors.New(f("invalid setting value"))
)

// Key is a stable settings identifier.
type Key string

const (
	EXTENDED_ASSEMBLER   = Key("ExtendedAssembler")   // Permit pseudo-instructions.
	DELAYED_BRANCHING    = Key("DelayedBranching")    // Execute the delay slot after a taken branch.
	SELF_MODIFYING_CODE  = Key("SelfModifyingCode")   // Text segment writes change executed code.
	START_AT_MAIN        = Key("StartAtMain")         // Start execution at the global 'main' label.
	WARNINGS_ARE_ERRORS  = Key("WarningsAreErrors")   // Promote assembler warnings to errors.
	BACKSTEP_ENABLED     = Key("BackstepEnabled")     // Record undo information.
	BACKSTEP_MAX_DEPTH   = Key("BackstepMaxDepth")    // Maximum number of undoable steps.
	MEMORY_CONFIGURATION = Key("MemoryConfiguration") // Name of the memory configuration.
	MAX_ERRORS           = Key("MaxErrors")           // Assembly aborts after this many errors.
)

var defaults = map[Key]string{
	EXTENDED_ASSEMBLER:   "true",
	DELAYED_BRANCHING:    "false",
	SELF_MODIFYING_CODE:  "false",
	START_AT_MAIN:        "false",
	WARNINGS_ARE_ERRORS:  "false",
	BACKSTEP_ENABLED:     "true",
	BACKSTEP_MAX_DEPTH:   "2000",
	MEMORY_CONFIGURATION: "Default",
	MAX_ERRORS:           "200",
}

// ErrSetting reports a bad setting key or value.
type ErrSetting struct {
	Key Key
	Err error
}

func (err *ErrSetting) Error() string {
	return f("setting %v: %v", string(err.Key), err.Err)
}

func (err *ErrSetting) Unwrap() error {
	return err.Err
}

// Settings is a snapshot of all policy flags.
type Settings struct {
	values map[Key]string
}

// Default returns a settings snapshot with all default values.
func Default() (s *Settings) {
	s = &Settings{
		values: maps.Clone(defaults),
	}
	return
}

// Keys returns all known keys, in sorted order.
func Keys() []Key {
	return slices.Sorted(maps.Keys(defaults))
}

// Clone returns an independent copy of the settings.
func (s *Settings) Clone() *Settings {
	return &Settings{values: maps.Clone(s.values)}
}

// String gets a setting as a string. Unknown keys return "".
func (s *Settings) String(key Key) string {
	return s.values[key]
}

// Bool gets a setting as a boolean.
func (s *Settings) Bool(key Key) bool {
	value, err := strconv.ParseBool(s.values[key])
	if err != nil {
		return false
	}
	return value
}

// Int gets a setting as an integer.
func (s *Settings) Int(key Key) int {
	value, err := strconv.Atoi(s.values[key])
	if err != nil {
		return 0
	}
	return value
}

// Set sets a setting from its string form, validating it against
// the type of the default value.
func (s *Settings) Set(key Key, value string) (err error) {
	def, ok := defaults[key]
	if !ok {
		err = &ErrSetting{Key: key, Err: ErrKeyUnknown}
		return
	}

	if _, perr := strconv.ParseBool(def); perr == nil {
		if _, perr = strconv.ParseBool(value); perr != nil {
			err = &ErrSetting{Key: key, Err: ErrValue}
			return
		}
	} else if _, perr := strconv.Atoi(def); perr == nil {
		if _, perr = strconv.Atoi(value); perr != nil {
			err = &ErrSetting{Key: key, Err: ErrValue}
			return
		}
	}

	s.values[key] = value
	return
}

// SetBool sets a boolean setting.
func (s *Settings) SetBool(key Key, value bool) error {
	return s.Set(key, strconv.FormatBool(value))
}

// SetInt sets an integer setting.
func (s *Settings) SetInt(key Key, value int) error {
	return s.Set(key, strconv.Itoa(value))
}

// Load reads a TOML document of key = value pairs on top of the defaults.
func Load(input io.Reader) (s *Settings, err error) {
	var doc map[string]any

	_, err = toml.NewDecoder(input).Decode(&doc)
	if err != nil {
		return
	}

	s = Default()
	for name, value := range doc {
		var text string
		switch v := value.(type) {
		case string:
			text = v
		case bool:
			text = strconv.FormatBool(v)
		case int64:
			text = strconv.FormatInt(v, 10)
		default:
			err = &ErrSetting{Key: Key(name), Err: ErrValue}
			return
		}
		err = s.Set(Key(name), text)
		if err != nil {
			return
		}
	}

	return
}

// Dump writes the settings as a TOML document.
func (s *Settings) Dump(output io.Writer) (err error) {
	for _, key := range Keys() {
		value := s.values[key]
		if _, perr := strconv.ParseBool(value); perr == nil {
			_, err = fmt.Fprintf(output, "%v = %v\n", key, value)
		} else if _, perr := strconv.Atoi(value); perr == nil {
			_, err = fmt.Fprintf(output, "%v = %v\n", key, value)
		} else {
			_, err = fmt.Fprintf(output, "%v = %q\n", key, value)
		}
		if err != nil {
			return
		}
	}
	return
}
