package cpu

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/register"
)

const (
	textBase = 0x00400000
	dataBase = 0x10010000
	handler  = 0x80000180
)

// encode an instruction by its example syntax.
func encode(t *testing.T, example string, op ...int32) uint32 {
	t.Helper()
	for _, inst := range Instructions() {
		if inst.Example == example {
			word, err := inst.Encode(op...)
			require.NoError(t, err, example)
			return word
		}
	}
	require.FailNow(t, "unknown instruction", example)
	return 0
}

// addWords adds statements to a program, starting at an address.
func addWords(t *testing.T, prog *Program, address uint32, words ...uint32) {
	t.Helper()
	for n, word := range words {
		stmt, err := NewStatement(address+uint32(4*n), word)
		require.NoError(t, err)
		require.NoError(t, prog.Add(stmt))
	}
}

// newCpu creates a CPU with a program at the start of the text segment.
func newCpu(t *testing.T, words ...uint32) (cpu *Cpu, prog *Program) {
	t.Helper()
	prog = NewProgram(memory.DEFAULT)
	addWords(t, prog, textBase, words...)
	cpu = NewCpu(memory.DEFAULT)
	cpu.Load(prog)
	return
}

// ticks runs a number of instructions, requiring success.
func ticks(t *testing.T, cpu *Cpu, count int) {
	t.Helper()
	for range count {
		require.NoError(t, cpu.Tick(), "pc 0x%08x", cpu.Registers.PC())
	}
}

func TestCpu_Reset(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, encode(t, "nop"))
	assert.Equal(uint32(textBase), cpu.Registers.PC())
	assert.Equal(int32(0x10008000), cpu.Registers.Get(register.REG_GP))
	assert.Equal(int32(0x7fffeffc), cpu.Registers.Get(register.REG_SP))
	assert.Equal(int32(register.STATUS_RESET), cpu.Cop0.Get(register.COP0_STATUS))

	ticks(t, cpu, 1)
	assert.Equal(1, cpu.Ticks)

	err := cpu.Tick()
	assert.ErrorIs(err, ErrDroppedOff)
	assert.Equal(uint32(textBase+4), cpu.Registers.PC())

	cpu.Reset()
	assert.Equal(0, cpu.Ticks)
	assert.Equal(uint32(textBase), cpu.Registers.PC())
}

func TestCpu_Arithmetic(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t,
		encode(t, "addi $t1,$t2,-100", 8, 0, 7),     // $t0 = 7
		encode(t, "addi $t1,$t2,-100", 9, 0, -3),    // $t1 = -3
		encode(t, "add $t1,$t2,$t3", 10, 8, 9),      // $t2 = 4
		encode(t, "sub $t1,$t2,$t3", 11, 9, 8),      // $t3 = -10
		encode(t, "mult $t1,$t2", 8, 9),             // hi:lo = -21
		encode(t, "div $t1,$t2", 8, 9),              // lo = -2, hi = 1
		encode(t, "multu $t1,$t2", 9, 9),            // hi:lo = 0xfffffffd^2
		encode(t, "sltu $t1,$t2,$t3", 12, 8, 9),     // $t4 = 1
		encode(t, "slt $t1,$t2,$t3", 13, 8, 9),      // $t5 = 0
		encode(t, "sra $t1,$t2,10", 14, 9, 1),       // $t6 = -2
		encode(t, "srl $t1,$t2,10", 15, 9, 28),      // $t7 = 0xf
		encode(t, "clz $t1,$t2", 16, 8),             // $s0 = 29
		encode(t, "clo $t1,$t2", 17, 9),             // $s1 = 30
		encode(t, "lui $t1,100", 18, 0x1234),        // $s2 = 0x12340000
		encode(t, "ori $t1,$t2,100", 18, 18, 0xabcd), // $s2 = 0x1234abcd
	)

	ticks(t, cpu, 4)
	assert.Equal(int32(7), cpu.Registers.Get(8))
	assert.Equal(int32(-3), cpu.Registers.Get(9))
	assert.Equal(int32(4), cpu.Registers.Get(10))
	assert.Equal(int32(-10), cpu.Registers.Get(11))

	ticks(t, cpu, 1)
	assert.Equal(int32(-1), cpu.Registers.Hi())
	assert.Equal(int32(-21), cpu.Registers.Lo())

	ticks(t, cpu, 1)
	assert.Equal(int32(1), cpu.Registers.Hi())
	assert.Equal(int32(-2), cpu.Registers.Lo())

	ticks(t, cpu, 1)
	product := uint64(0xfffffffd) * uint64(0xfffffffd)
	assert.Equal(int32(uint32(product>>32)), cpu.Registers.Hi())
	assert.Equal(int32(uint32(product)), cpu.Registers.Lo())

	ticks(t, cpu, 8)
	assert.Equal(int32(1), cpu.Registers.Get(12))
	assert.Equal(int32(0), cpu.Registers.Get(13))
	assert.Equal(int32(-2), cpu.Registers.Get(14))
	assert.Equal(int32(0xf), cpu.Registers.Get(15))
	assert.Equal(int32(29), cpu.Registers.Get(16))
	assert.Equal(int32(30), cpu.Registers.Get(17))
	assert.Equal(int32(0x1234abcd), cpu.Registers.Get(18))
}

func TestCpu_DivideByZero(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, encode(t, "div $t1,$t2", 8, 0))
	cpu.Registers.SetHiLo(5, 6)
	cpu.Registers.Set(8, 100)

	ticks(t, cpu, 1)
	assert.Equal(int32(5), cpu.Registers.Hi())
	assert.Equal(int32(6), cpu.Registers.Lo())
}

func TestCpu_ZeroRegister(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, encode(t, "addi $t1,$t2,-100", 0, 0, 5))
	ticks(t, cpu, 1)
	assert.Equal(int32(0), cpu.Registers.Get(0))
}

func TestCpu_Overflow(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t,
		encode(t, "lui $t1,100", 8, 0x7fff),
		encode(t, "ori $t1,$t2,100", 8, 8, 0xffff),
		encode(t, "addi $t1,$t2,-100", 9, 8, 1),
		encode(t, "addiu $t1,$t2,-100", 9, 8, 1),
	)

	ticks(t, cpu, 2)
	cpu.Registers.Set(9, 77)

	err := cpu.Tick()
	assert.ErrorIs(err, ErrArithmeticOverflow)
	var trap *ErrTrap
	if assert.True(errors.As(err, &trap)) {
		assert.Equal(CAUSE_OVERFLOW, trap.Cause)
	}
	assert.Equal(int32(77), cpu.Registers.Get(9))
	assert.Equal(uint32(textBase+8), cpu.Registers.PC())

	// Coprocessor 0 records the trap even without a handler.
	assert.Equal(int32(textBase+8), cpu.Cop0.Get(register.COP0_EPC))
	assert.Equal(int32(CAUSE_OVERFLOW)<<2, cpu.Cop0.Get(register.COP0_CAUSE))
	assert.Equal(int32(0), cpu.Cop0.Get(register.COP0_VADDR))

	// Without a handler, the trap is repeatable.
	err = cpu.Tick()
	assert.ErrorIs(err, ErrArithmeticOverflow)

	cpu.Registers.SetPC(textBase + 12)
	ticks(t, cpu, 1)
	assert.Equal(int32(math.MinInt32), cpu.Registers.Get(9))
}

func TestCpu_Alignment(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		example string
		width   uint32
		cause   Cause
	}{
		{"lw $t1,-100($t2)", 4, CAUSE_ADDRESS_LOAD},
		{"sw $t1,-100($t2)", 4, CAUSE_ADDRESS_STORE},
		{"lh $t1,-100($t2)", 2, CAUSE_ADDRESS_LOAD},
		{"lhu $t1,-100($t2)", 2, CAUSE_ADDRESS_LOAD},
		{"sh $t1,-100($t2)", 2, CAUSE_ADDRESS_STORE},
		{"lwc1 $f1,-100($t2)", 4, CAUSE_ADDRESS_LOAD},
		{"swc1 $f1,-100($t2)", 4, CAUSE_ADDRESS_STORE},
	}

	for _, entry := range table {
		for offset := int32(1); offset < 4; offset++ {
			cpu, _ := newCpu(t, encode(t, entry.example, 9, offset, 8))
			cpu.Registers.Set(8, dataBase)
			cpu.Registers.Set(9, -1)

			err := cpu.Tick()
			if uint32(offset)%entry.width == 0 {
				assert.NoError(err, "%v %d", entry.example, offset)
				continue
			}

			var trap *ErrTrap
			if !assert.True(errors.As(err, &trap), "%v %d", entry.example, offset) {
				continue
			}
			assert.Equal(entry.cause, trap.Cause, entry.example)
			assert.Equal(uint32(dataBase)+uint32(offset), trap.Address, entry.example)
			assert.ErrorIs(err, memory.ErrAlignment, entry.example)
			assert.Equal(int32(textBase), cpu.Cop0.Get(register.COP0_EPC), entry.example)
			assert.Equal(int32(entry.cause)<<2, cpu.Cop0.Get(register.COP0_CAUSE), entry.example)
			assert.Equal(int32(dataBase+offset), cpu.Cop0.Get(register.COP0_VADDR), entry.example)

			_, written := cpu.Memory.RawWord(dataBase)
			assert.False(written, entry.example)
		}
	}
}

func TestCpu_LoadStore(t *testing.T) {
	assert := assert.New(t)

	cpu, prog := newCpu(t,
		encode(t, "lb $t1,-100($t2)", 9, 3, 8),
		encode(t, "lbu $t1,-100($t2)", 10, 3, 8),
		encode(t, "lh $t1,-100($t2)", 11, 2, 8),
		encode(t, "lwr $t1,-100($t2)", 12, 1, 8),
		encode(t, "lwl $t1,-100($t2)", 12, 4, 8),
		encode(t, "sb $t1,-100($t2)", 9, 8, 8),
		encode(t, "sw $t1,-100($t2)", 12, 12, 8),
		encode(t, "sc $t1,-100($t2)", 13, 16, 8),
	)
	prog.Image.SetWord(dataBase, 0x84332211)
	prog.Image.SetWord(dataBase+4, 0x88776655)
	cpu.Reset()
	cpu.Registers.Set(8, dataBase)
	cpu.Registers.Set(13, 42)

	ticks(t, cpu, 3)
	assert.Equal(int32(-124), cpu.Registers.Get(9))
	assert.Equal(int32(0x84), cpu.Registers.Get(10))
	assert.Equal(int32(-31693), cpu.Registers.Get(11)) // 0x8433

	ticks(t, cpu, 2)
	assert.Equal(int32(0x55843322), cpu.Registers.Get(12))

	ticks(t, cpu, 3)
	value, _ := cpu.Memory.Byte(dataBase + 8)
	assert.Equal(uint8(0x84), value)
	word, _ := cpu.Memory.Word(dataBase + 12)
	assert.Equal(uint32(0x55843322), word)
	word, _ = cpu.Memory.Word(dataBase + 16)
	assert.Equal(uint32(42), word)
	assert.Equal(int32(1), cpu.Registers.Get(13))
}

func TestCpu_Branch(t *testing.T) {
	assert := assert.New(t)

	program := func(t *testing.T) []uint32 {
		return []uint32{
			encode(t, "beq $t1,$t2,label", 0, 0, 2),
			encode(t, "addi $t1,$t2,-100", 8, 0, 1),
			encode(t, "addi $t1,$t2,-100", 9, 0, 1),
			encode(t, "addi $t1,$t2,-100", 10, 0, 1),
		}
	}

	cpu, _ := newCpu(t, program(t)...)
	ticks(t, cpu, 2)
	assert.Equal(int32(0), cpu.Registers.Get(8))
	assert.Equal(int32(0), cpu.Registers.Get(9))
	assert.Equal(int32(1), cpu.Registers.Get(10))
	assert.ErrorIs(cpu.Tick(), ErrDroppedOff)

	cpu, _ = newCpu(t, program(t)...)
	cpu.DelayedBranching = true
	ticks(t, cpu, 3)
	assert.Equal(int32(1), cpu.Registers.Get(8))
	assert.Equal(int32(0), cpu.Registers.Get(9))
	assert.Equal(int32(1), cpu.Registers.Get(10))
	assert.ErrorIs(cpu.Tick(), ErrDroppedOff)
}

func TestCpu_JumpAndLink(t *testing.T) {
	assert := assert.New(t)

	for _, delayed := range []bool{false, true} {
		target, err := JumpField(textBase, textBase+12)
		require.NoError(t, err)

		cpu, _ := newCpu(t,
			encode(t, "jal target", target),
			encode(t, "nop"),
			encode(t, "nop"),
			encode(t, "jr $t1", register.REG_RA),
			encode(t, "nop"),
		)
		cpu.DelayedBranching = delayed

		link := int32(textBase + 4)
		steps := 1
		if delayed {
			link = textBase + 8
			steps = 2
		}

		ticks(t, cpu, steps)
		assert.Equal(link, cpu.Registers.Get(register.REG_RA))
		assert.Equal(uint32(textBase+12), cpu.Registers.PC())

		ticks(t, cpu, steps)
		assert.Equal(uint32(link), cpu.Registers.PC())
	}
}

func TestCpu_BranchAndLink(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t,
		encode(t, "bltzal $t1,label", 0, 5),
	)
	ticks(t, cpu, 1)
	assert.Equal(int32(textBase+4), cpu.Registers.Get(register.REG_RA))
	assert.Equal(uint32(textBase+4), cpu.Registers.PC())
}

func TestCpu_Traps(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t,
		encode(t, "teqi $t1,-100", 8, 0),
	)
	err := cpu.Tick()
	assert.ErrorIs(err, ErrTrapInstruction)

	cpu, _ = newCpu(t, encode(t, "break"))
	err = cpu.Tick()
	assert.ErrorIs(err, ErrBreakInstruction)

	prog := NewProgram(memory.DEFAULT)
	prog.Image.SetWord(textBase, 0xfc000000)
	cpu = NewCpu(memory.DEFAULT)
	cpu.Load(prog)
	err = cpu.Tick()
	assert.ErrorIs(err, ErrDroppedOff)

	cpu.SelfModifyingCode = true
	err = cpu.Tick()
	assert.ErrorIs(err, ErrInstructionReserved)
	assert.Equal(uint32(textBase), cpu.Registers.PC())
}

func TestCpu_ExceptionHandler(t *testing.T) {
	assert := assert.New(t)

	cpu, prog := newCpu(t,
		encode(t, "lui $t1,100", 8, 0x7fff),
		encode(t, "add $t1,$t2,$t3", 9, 8, 8),
		encode(t, "addi $t1,$t2,-100", 10, 0, 3),
	)
	addWords(t, prog, handler,
		encode(t, "mfc0 $t1,$8", register.REG_K0, register.COP0_EPC),
		encode(t, "addi $t1,$t2,-100", register.REG_K0, register.REG_K0, 4),
		encode(t, "mtc0 $t1,$8", register.REG_K0, register.COP0_EPC),
		encode(t, "eret"),
	)
	cpu.Reset()
	assert.True(cpu.HandlerInstalled())

	ticks(t, cpu, 2)
	assert.Equal(uint32(handler), cpu.Registers.PC())
	assert.Equal(int32(textBase+4), cpu.Cop0.Get(register.COP0_EPC))
	assert.Equal(int32(CAUSE_OVERFLOW)<<2, cpu.Cop0.Get(register.COP0_CAUSE))

	ticks(t, cpu, 4)
	assert.Equal(uint32(textBase+8), cpu.Registers.PC())

	ticks(t, cpu, 1)
	assert.Equal(int32(3), cpu.Registers.Get(10))
}

func TestCpu_AddressExceptionHandler(t *testing.T) {
	assert := assert.New(t)

	cpu, prog := newCpu(t,
		encode(t, "sw $t1,-100($t2)", 9, 2, 8),
	)
	addWords(t, prog, handler, encode(t, "nop"))
	cpu.Reset()
	cpu.Registers.Set(8, dataBase)

	ticks(t, cpu, 1)
	assert.Equal(uint32(handler), cpu.Registers.PC())
	assert.Equal(int32(CAUSE_ADDRESS_STORE)<<2, cpu.Cop0.Get(register.COP0_CAUSE))
	assert.Equal(int32(dataBase+2), cpu.Cop0.Get(register.COP0_VADDR))
}

func TestCpu_FloatingPoint(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t,
		encode(t, "round.w.s $f0,$f1", 0, 1),
		encode(t, "trunc.w.s $f0,$f1", 2, 1),
		encode(t, "add.s $f0,$f1,$f3", 3, 1, 1),
		encode(t, "c.lt.s $f0,$f1", 1, 3),
		encode(t, "bc1t label", 1),
		encode(t, "nop"),
		encode(t, "cvt.d.s $f2,$f1", 4, 1),
		encode(t, "add.d $f2,$f4,$f6", 6, 4, 4),
		encode(t, "add.d $f2,$f4,$f6", 7, 4, 4),
	)
	cpu.Cop1.SetFloat(1, 5.5)

	ticks(t, cpu, 3)
	assert.Equal(int32(6), cpu.Cop1.Get(0))
	assert.Equal(int32(5), cpu.Cop1.Get(2))
	assert.Equal(float32(11), cpu.Cop1.Float(3))

	ticks(t, cpu, 2)
	assert.True(cpu.Cop1.Condition(0))
	assert.Equal(uint32(textBase+24), cpu.Registers.PC())

	ticks(t, cpu, 2)
	value, err := cpu.Cop1.Double(6)
	assert.NoError(err)
	assert.Equal(11.0, value)

	err = cpu.Tick()
	assert.ErrorIs(err, register.ErrInvalidRegisterAccess)
	assert.Equal(uint32(textBase+32), cpu.Registers.PC())
}

func TestRoundWord(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		value  float64
		round  func(float64) float64
		expect int32
	}{
		{4.5, math.RoundToEven, 4},
		{5.5, math.RoundToEven, 6},
		{-4.5, math.RoundToEven, -4},
		{-5.5, math.RoundToEven, -6},
		{4.4, math.RoundToEven, 4},
		{4.6, math.RoundToEven, 5},
		{-4.6, math.RoundToEven, -5},
		{4.9, math.Trunc, 4},
		{-4.9, math.Trunc, -4},
		{4.1, math.Ceil, 5},
		{-4.1, math.Floor, -5},
		{math.NaN(), math.RoundToEven, math.MaxInt32},
		{math.Inf(1), math.RoundToEven, math.MaxInt32},
		{math.Inf(-1), math.RoundToEven, math.MaxInt32},
		{3e9, math.RoundToEven, math.MaxInt32},
		{-3e9, math.Floor, math.MaxInt32},
		{-2147483648.4, math.RoundToEven, math.MinInt32},
		{2147483647.4, math.RoundToEven, math.MaxInt32},
		{-2147483648.6, math.RoundToEven, math.MaxInt32},
		{-2147483648.6, math.Trunc, math.MinInt32},
		{2147483647.6, math.Trunc, math.MaxInt32},
	}

	for _, entry := range table {
		assert.Equal(entry.expect, RoundWord(entry.value, entry.round), "%v", entry.value)
	}
}

func TestCpu_SelfModifyingCode(t *testing.T) {
	assert := assert.New(t)

	for _, smc := range []bool{false, true} {
		cpu, _ := newCpu(t,
			encode(t, "sw $t1,-100($t2)", 9, 8, 8),
			encode(t, "nop"),
			encode(t, "addi $t1,$t2,-100", 10, 0, 1),
		)
		cpu.SelfModifyingCode = smc
		cpu.Registers.Set(8, textBase)
		cpu.Registers.Set(9, int32(encode(t, "addi $t1,$t2,-100", 10, 0, 7)))

		ticks(t, cpu, 3)
		if smc {
			assert.Equal(int32(7), cpu.Registers.Get(10))
		} else {
			assert.Equal(int32(1), cpu.Registers.Get(10))
		}
	}
}

func TestCpu_Syscall(t *testing.T) {
	assert := assert.New(t)

	cpu, prog := newCpu(t,
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_PRINT_INT),
		encode(t, "addi $t1,$t2,-100", register.REG_A0, 0, -42),
		encode(t, "syscall"),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_PRINT_CHAR),
		encode(t, "addi $t1,$t2,-100", register.REG_A0, 0, '\n'),
		encode(t, "syscall"),
		encode(t, "lui $t1,100", register.REG_A0, dataBase>>16),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_PRINT_STRING),
		encode(t, "syscall"),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_PRINT_HEX),
		encode(t, "syscall"),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_EXIT2),
		encode(t, "addi $t1,$t2,-100", register.REG_A0, 0, 3),
		encode(t, "syscall"),
	)
	for n, ch := range []byte("hi\x00") {
		prog.Image.SetByte(dataBase+uint32(n), ch)
	}
	cpu.Reset()

	output := &bytes.Buffer{}
	cpu.Stdout = output

	ticks(t, cpu, 11)
	assert.Equal("-42\nhi0x10010000", output.String())

	ticks(t, cpu, 2)
	err := cpu.Tick()
	var exit *ErrExit
	if assert.True(errors.As(err, &exit)) {
		assert.Equal(3, exit.Code)
	}
	assert.Equal(uint32(textBase+14*4), cpu.Registers.PC())
}

func TestCpu_SyscallInput(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t,
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_READ_INT),
		encode(t, "syscall"),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_READ_STRING),
		encode(t, "lui $t1,100", register.REG_A0, dataBase>>16),
		encode(t, "addi $t1,$t2,-100", register.REG_A1, 0, 4),
		encode(t, "syscall"),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_READ_INT),
		encode(t, "syscall"),
	)
	cpu.SetStdin(strings.NewReader("  123\nhello\nbogus\n"))

	ticks(t, cpu, 2)
	assert.Equal(int32(123), cpu.Registers.Get(register.REG_V0))

	ticks(t, cpu, 4)
	word, _ := cpu.Memory.Word(dataBase)
	assert.Equal(uint32(0x006c6568), word) // "hel\0"

	ticks(t, cpu, 1)
	err := cpu.Tick()
	assert.ErrorIs(err, ErrSyscallInput)
}

func TestCpu_Sbrk(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t,
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_SBRK),
		encode(t, "addi $t1,$t2,-100", register.REG_A0, 0, 5),
		encode(t, "syscall"),
		encode(t, "addu $t1,$t2,$t3", register.REG_T0, register.REG_V0, 0),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_SBRK),
		encode(t, "syscall"),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, 99),
		encode(t, "syscall"),
	)

	ticks(t, cpu, 6)
	assert.Equal(int32(0x10040000), cpu.Registers.Get(register.REG_T0))
	assert.Equal(int32(0x10040008), cpu.Registers.Get(register.REG_V0))

	ticks(t, cpu, 1)
	err := cpu.Tick()
	assert.ErrorIs(err, ErrSyscallUnknown)
}

func TestFormatFloat(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		value   float64
		bitSize int
		expect  string
	}{
		{1, 64, "1.0"},
		{-2.25, 64, "-2.25"},
		{0.5, 64, "0.5"},
		{float64(float32(0.1)), 32, "0.1"},
		{1e10, 64, "1.0E10"},
		{1.5e-5, 64, "1.5E-5"},
		{0, 64, "0.0"},
		{math.Copysign(0, -1), 64, "-0.0"},
		{math.NaN(), 64, "NaN"},
		{math.Inf(1), 64, "Infinity"},
		{math.Inf(-1), 64, "-Infinity"},
	}

	for _, entry := range table {
		assert.Equal(entry.expect, FormatFloat(entry.value, entry.bitSize), "%v", entry.value)
	}
}

// snapshot is the complete architectural state of a cpu.
type snapshot struct {
	gpr   [35]int32
	cop0  []int32
	cop1  [32]int32
	flags uint8
	data  [8]uint32
	heap  uint32
}

func takeSnapshot(cpu *Cpu) (snap snapshot) {
	for n := range snap.gpr {
		snap.gpr[n] = cpu.Registers.Get(n)
	}
	for reg := range cpu.Cop0.All() {
		snap.cop0 = append(snap.cop0, reg.Value())
	}
	for n := range snap.cop1 {
		snap.cop1[n] = cpu.Cop1.Get(n)
	}
	snap.flags = cpu.Cop1.Conditions()
	for n := range snap.data {
		snap.data[n], _ = cpu.Memory.Word(dataBase + uint32(4*n))
	}
	snap.heap = cpu.heap
	return
}

func backstepProgram(t *testing.T) []uint32 {
	return []uint32{
		encode(t, "lui $t1,100", 8, dataBase>>16),
		encode(t, "addi $t1,$t2,-100", 9, 0, -5),
		encode(t, "sw $t1,-100($t2)", 9, 0, 8),
		encode(t, "sb $t1,-100($t2)", 9, 5, 8),
		encode(t, "mult $t1,$t2", 9, 9),
		encode(t, "mtc1 $t1,$f1", 9, 3),
		encode(t, "cvt.s.w $f0,$f1", 4, 3),
		encode(t, "c.lt.s 1,$f0,$f1", 2, 4, 4),
		encode(t, "sdc1 $f2,-100($t2)", 2, 8, 8),
		encode(t, "addi $t1,$t2,-100", register.REG_V0, 0, SYSCALL_SBRK),
		encode(t, "addi $t1,$t2,-100", register.REG_A0, 0, 64),
		encode(t, "syscall"),
		encode(t, "beq $t1,$t2,label", 0, 0, -12),
		encode(t, "nop"),
	}
}

func TestCpu_StepBack(t *testing.T) {
	assert := assert.New(t)

	for _, count := range []int{1, 4, 13, 40} {
		for _, delayed := range []bool{false, true} {
			cpu, _ := newCpu(t, backstepProgram(t)...)
			cpu.DelayedBranching = delayed

			var snaps []snapshot
			for range count {
				snaps = append(snaps, takeSnapshot(cpu))
				require.NoError(t, cpu.Tick())
			}

			for n := count - 1; n >= 0; n-- {
				ok, err := cpu.StepBack()
				assert.True(ok)
				assert.NoError(err)
				assert.Equal(snaps[n], takeSnapshot(cpu), "count %d, step %d, delayed %v", count, n, delayed)
			}

			ok, err := cpu.StepBack()
			assert.False(ok)
			assert.NoError(err)
			assert.Equal(0, cpu.Ticks)
		}
	}
}

func TestCpu_StepBack_Depth(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(t, backstepProgram(t)...)
	cpu.Backstep.SetMaxDepth(3)

	var snaps []snapshot
	for range 6 {
		snaps = append(snaps, takeSnapshot(cpu))
		require.NoError(t, cpu.Tick())
	}

	for n := 5; n >= 3; n-- {
		ok, err := cpu.StepBack()
		assert.True(ok)
		assert.NoError(err)
		assert.Equal(snaps[n], takeSnapshot(cpu))
	}

	ok, _ := cpu.StepBack()
	assert.False(ok)
	assert.Equal(snaps[3], takeSnapshot(cpu))
}
