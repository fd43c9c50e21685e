package cpu

import (
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/register"
)

// Syscall service numbers, passed in $v0.
const (
	SYSCALL_PRINT_INT      = 1
	SYSCALL_PRINT_FLOAT    = 2
	SYSCALL_PRINT_DOUBLE   = 3
	SYSCALL_PRINT_STRING   = 4
	SYSCALL_READ_INT       = 5
	SYSCALL_READ_FLOAT     = 6
	SYSCALL_READ_DOUBLE    = 7
	SYSCALL_READ_STRING    = 8
	SYSCALL_SBRK           = 9
	SYSCALL_EXIT           = 10
	SYSCALL_PRINT_CHAR     = 11
	SYSCALL_READ_CHAR      = 12
	SYSCALL_OPEN           = 13
	SYSCALL_READ           = 14
	SYSCALL_WRITE          = 15
	SYSCALL_CLOSE          = 16
	SYSCALL_EXIT2          = 17
	SYSCALL_PRINT_HEX      = 34
	SYSCALL_PRINT_BINARY   = 35
	SYSCALL_PRINT_UNSIGNED = 36
)

// Syscall performs the system service selected by $v0.
func (cpu *Cpu) Syscall() (err error) {
	code := cpu.gpr(register.REG_V0)
	a0 := cpu.gpr(register.REG_A0)

	if cpu.Verbose {
		log.Printf("cpu: syscall %d", code)
	}

	switch code {
	case SYSCALL_PRINT_INT:
		err = cpu.print(strconv.FormatInt(int64(a0), 10))
	case SYSCALL_PRINT_FLOAT:
		err = cpu.print(FormatFloat(float64(cpu.float(12)), 32))
	case SYSCALL_PRINT_DOUBLE:
		var value float64
		value, err = cpu.double(12)
		if err == nil {
			err = cpu.print(FormatFloat(value, 64))
		}
	case SYSCALL_PRINT_STRING:
		var text string
		text, err = cpu.cString(uint32(a0))
		if err == nil {
			err = cpu.print(text)
		}
	case SYSCALL_READ_INT:
		var value int64
		value, err = cpu.readParsed(func(text string) (int64, error) {
			return strconv.ParseInt(text, 10, 32)
		})
		if err == nil {
			cpu.setGpr(register.REG_V0, int32(value))
		}
	case SYSCALL_READ_FLOAT:
		var value float64
		value, err = cpu.readFloat(32)
		if err == nil {
			cpu.setFloat(0, float32(value))
		}
	case SYSCALL_READ_DOUBLE:
		var value float64
		value, err = cpu.readFloat(64)
		if err == nil {
			err = cpu.setDouble(0, value)
		}
	case SYSCALL_READ_STRING:
		err = cpu.readString(uint32(a0), int(cpu.gpr(register.REG_A1)))
	case SYSCALL_SBRK:
		var address uint32
		address, err = cpu.sbrk(a0)
		if err == nil {
			cpu.setGpr(register.REG_V0, int32(address))
		}
	case SYSCALL_EXIT:
		err = &ErrExit{Code: 0}
	case SYSCALL_PRINT_CHAR:
		err = cpu.print(string([]byte{byte(a0)}))
	case SYSCALL_READ_CHAR:
		var ch byte
		ch, err = cpu.readChar()
		if err == nil {
			cpu.setGpr(register.REG_V0, int32(ch))
		}
	case SYSCALL_OPEN, SYSCALL_READ, SYSCALL_WRITE, SYSCALL_CLOSE:
		err = cpu.fileSyscall(code, a0)
	case SYSCALL_EXIT2:
		err = &ErrExit{Code: int(a0)}
	case SYSCALL_PRINT_HEX:
		err = cpu.print(fmt.Sprintf("0x%08x", uint32(a0)))
	case SYSCALL_PRINT_BINARY:
		err = cpu.print(fmt.Sprintf("%032b", uint32(a0)))
	case SYSCALL_PRINT_UNSIGNED:
		err = cpu.print(strconv.FormatUint(uint64(uint32(a0)), 10))
	default:
		err = fmt.Errorf("%w: %d", ErrSyscallUnknown, code)
	}

	return
}

func (cpu *Cpu) print(text string) (err error) {
	_, err = io.WriteString(cpu.Stdout, text)
	return
}

// cString reads a null terminated string from simulated memory.
func (cpu *Cpu) cString(address uint32) (text string, err error) {
	var buff strings.Builder
	for {
		var ch uint32
		ch, err = cpu.load(address, 1)
		if err != nil {
			return
		}
		if ch == 0 {
			break
		}
		buff.WriteByte(byte(ch))
		address++
	}
	text = buff.String()
	return
}

// readLine reads one line of input, without its line ending.
func (cpu *Cpu) readLine() (line string, err error) {
	if cpu.stdin == nil {
		err = fmt.Errorf("%w: %w", ErrSyscallInput, io.EOF)
		return
	}

	line, err = cpu.stdin.ReadString('\n')
	if err == io.EOF && len(line) > 0 {
		err = nil
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSyscallInput, err)
		return
	}

	line = strings.TrimRight(line, "\r\n")
	return
}

func (cpu *Cpu) readParsed(parse func(text string) (int64, error)) (value int64, err error) {
	line, err := cpu.readLine()
	if err != nil {
		return
	}

	value, err = parse(strings.TrimSpace(line))
	if err != nil {
		err = fmt.Errorf("%w: %q", ErrSyscallInput, line)
	}
	return
}

func (cpu *Cpu) readFloat(bitSize int) (value float64, err error) {
	line, err := cpu.readLine()
	if err != nil {
		return
	}

	value, err = strconv.ParseFloat(strings.TrimSpace(line), bitSize)
	if err != nil {
		err = fmt.Errorf("%w: %q", ErrSyscallInput, line)
	}
	return
}

// readString reads at most maxLength-1 bytes of one line into memory,
// keeping the newline if it fits, and terminates the string with a null.
func (cpu *Cpu) readString(address uint32, maxLength int) (err error) {
	if maxLength < 1 {
		return
	}

	if cpu.stdin == nil {
		return cpu.store(address, 1, 0)
	}

	line, err := cpu.stdin.ReadString('\n')
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSyscallInput, err)
	}

	if len(line) > maxLength-1 {
		line = line[:maxLength-1]
	}

	for n := range len(line) {
		err = cpu.store(address+uint32(n), 1, uint32(line[n]))
		if err != nil {
			return
		}
	}

	return cpu.store(address+uint32(len(line)), 1, 0)
}

func (cpu *Cpu) readChar() (ch byte, err error) {
	if cpu.stdin == nil {
		err = fmt.Errorf("%w: %w", ErrSyscallInput, io.EOF)
		return
	}

	ch, err = cpu.stdin.ReadByte()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSyscallInput, err)
	}
	return
}

// sbrk allocates word aligned heap memory, returning its address.
func (cpu *Cpu) sbrk(size int32) (address uint32, err error) {
	if size < 0 {
		err = fmt.Errorf("%w: sbrk %d", ErrSyscallInput, size)
		return
	}

	rounded := (uint32(size) + 3) &^ 3
	limit := cpu.Config().Limit(memory.SEGMENT_HEAP)
	if uint64(cpu.heap)+uint64(rounded) > uint64(limit)+1 {
		err = fmt.Errorf("%w: sbrk %d", ErrHeapExhausted, size)
		return
	}

	address = cpu.heap
	cpu.heap += rounded
	return
}

// FormatFloat formats a floating point value as the simulator prints it:
// decimal with at least one fractional digit for magnitudes from 1e-3
// up to 1e7, and scientific notation ("1.0E10") otherwise.
func FormatFloat(value float64, bitSize int) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "Infinity"
	case math.IsInf(value, -1):
		return "-Infinity"
	case value == 0:
		if math.Signbit(value) {
			return "-0.0"
		}
		return "0.0"
	}

	magnitude := math.Abs(value)
	if magnitude >= 1e-3 && magnitude < 1e7 {
		text := strconv.FormatFloat(value, 'f', -1, bitSize)
		if !strings.Contains(text, ".") {
			text += ".0"
		}
		return text
	}

	text := strconv.FormatFloat(value, 'E', -1, bitSize)
	mantissa, exponent, _ := strings.Cut(text, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	exp, _ := strconv.Atoi(exponent)
	return fmt.Sprintf("%sE%d", mantissa, exp)
}
