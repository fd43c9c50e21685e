package cpu

import (
	"math"

	"github.com/ezrec/mipsim/memory"
	"github.com/ezrec/mipsim/register"
)

// gpr gets a general purpose register.
func (cpu *Cpu) gpr(n int32) int32 {
	return cpu.Registers.Get(int(n))
}

// setGpr sets a general purpose register. Decoded register numbers are
// always valid.
func (cpu *Cpu) setGpr(n int32, value int32) {
	cpu.Registers.Set(int(n), value)
}

// hiLo gets HI and LO as a single 64-bit value.
func (cpu *Cpu) hiLo() uint64 {
	return (uint64(uint32(cpu.Registers.Hi())) << 32) | uint64(uint32(cpu.Registers.Lo()))
}

// setHiLo sets HI and LO from a single 64-bit value.
func (cpu *Cpu) setHiLo(value uint64) {
	cpu.Registers.SetHiLo(int32(value>>32), int32(value))
}

// load reads memory, converting access errors to traps.
func (cpu *Cpu) load(address uint32, width int) (value uint32, err error) {
	value, err = cpu.Memory.Get(address, width, memory.ACCESS_LOAD)
	err = addressTrap(err)
	return
}

// store writes memory, converting access errors to traps.
func (cpu *Cpu) store(address uint32, width int, value uint32) (err error) {
	_, err = cpu.Memory.Set(address, width, value)
	err = addressTrap(err)
	return
}

// fpr gets the raw bits of a floating point register.
func (cpu *Cpu) fpr(n int32) uint32 {
	return uint32(cpu.Cop1.Get(int(n)))
}

// setFpr sets the raw bits of a floating point register.
func (cpu *Cpu) setFpr(n int32, value uint32) {
	cpu.Cop1.Set(int(n), int32(value))
}

func (cpu *Cpu) float(n int32) float32 {
	return cpu.Cop1.Float(int(n))
}

func (cpu *Cpu) setFloat(n int32, value float32) {
	cpu.Cop1.SetFloat(int(n), value)
}

func (cpu *Cpu) double(n int32) (float64, error) {
	return cpu.Cop1.Double(int(n))
}

func (cpu *Cpu) setDouble(n int32, value float64) error {
	return cpu.Cop1.SetDouble(int(n), value)
}

// effectiveAddress computes base register plus signed offset.
func (cpu *Cpu) effectiveAddress(offset int32, base int32) uint32 {
	return uint32(cpu.gpr(base) + offset)
}

// Integer semantics builders. Operand 1 is the destination.

// rrr: $t1 = op($t2, $t3), wrapping.
func rrr(op func(a, b int32) int32) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cpu.setGpr(o[0], op(cpu.gpr(o[1]), cpu.gpr(o[2])))
		return nil
	}
}

// rri: $t1 = op($t2, imm), wrapping.
func rri(op func(a, imm int32) int32) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cpu.setGpr(o[0], op(cpu.gpr(o[1]), o[2]))
		return nil
	}
}

// overflowAdd adds, reporting signed overflow.
func overflowAdd(a, b int32) (sum int32, overflow bool) {
	sum = a + b
	overflow = (a >= 0 && b >= 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0)
	return
}

// overflowSub subtracts, reporting signed overflow.
func overflowSub(a, b int32) (diff int32, overflow bool) {
	diff = a - b
	overflow = (a >= 0 && b < 0 && diff < 0) || (a < 0 && b >= 0 && diff >= 0)
	return
}

// trapping builds an arithmetic operation which traps on overflow, rather
// than writing its destination. If imm is set the third operand is an
// immediate.
func trapping(op func(a, b int32) (int32, bool), imm bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		b := o[2]
		if !imm {
			b = cpu.gpr(o[2])
		}
		result, overflow := op(cpu.gpr(o[1]), b)
		if overflow {
			return &ErrTrap{Cause: CAUSE_OVERFLOW, Err: ErrArithmeticOverflow}
		}
		cpu.setGpr(o[0], result)
		return nil
	}
}

// shiftImm: $t1 = op($t2, sa)
func shiftImm(op func(value int32, amount uint) int32) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cpu.setGpr(o[0], op(cpu.gpr(o[1]), uint(o[2])&31))
		return nil
	}
}

// shiftReg: $t1 = op($t2, $t3 & 31)
func shiftReg(op func(value int32, amount uint) int32) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cpu.setGpr(o[0], op(cpu.gpr(o[1]), uint(cpu.gpr(o[2]))&31))
		return nil
	}
}

// hiLoOp: HI:LO = op(HI:LO, $t1, $t2)
func hiLoOp(op func(hilo uint64, a, b int32) uint64) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cpu.setHiLo(op(cpu.hiLo(), cpu.gpr(o[0]), cpu.gpr(o[1])))
		return nil
	}
}

func product(a, b int32) uint64 {
	return uint64(int64(a) * int64(b))
}

func productUnsigned(a, b int32) uint64 {
	return uint64(uint32(a)) * uint64(uint32(b))
}

// compare: $t1 = 1 if pred($t2, $t3) else 0
func compare(pred func(a, b int32) bool, imm bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		b := o[2]
		if !imm {
			b = cpu.gpr(o[2])
		}
		var result int32
		if pred(cpu.gpr(o[1]), b) {
			result = 1
		}
		cpu.setGpr(o[0], result)
		return nil
	}
}

// branch2: branch to label if pred($t1, $t2)
func branch2(pred func(a, b int32) bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		if pred(cpu.gpr(o[0]), cpu.gpr(o[1])) {
			cpu.branchRelative(o[2])
		}
		return nil
	}
}

// branch1: branch to label if pred($t1), optionally linking $ra.
// The link is written whether or not the branch is taken.
func branch1(pred func(a int32) bool, link bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		taken := pred(cpu.gpr(o[0]))
		if link {
			cpu.setGpr(register.REG_RA, cpu.link())
		}
		if taken {
			cpu.branchRelative(o[1])
		}
		return nil
	}
}

// trapReg: trap if pred($t1, $t2)
func trapReg(pred func(a, b int32) bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		if pred(cpu.gpr(o[0]), cpu.gpr(o[1])) {
			return &ErrTrap{Cause: CAUSE_TRAP, Err: ErrTrapInstruction}
		}
		return nil
	}
}

// trapImm: trap if pred($t1, imm)
func trapImm(pred func(a, b int32) bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		if pred(cpu.gpr(o[0]), o[1]) {
			return &ErrTrap{Cause: CAUSE_TRAP, Err: ErrTrapInstruction}
		}
		return nil
	}
}

// loadOp: $t1 = memory[$t2 + offset], extended to 32 bits.
func loadOp(width int, signed bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		value, err := cpu.load(cpu.effectiveAddress(o[1], o[2]), width)
		if err != nil {
			return err
		}
		switch {
		case width == 1 && signed:
			value = uint32(int32(int8(value)))
		case width == 2 && signed:
			value = uint32(int32(int16(value)))
		}
		cpu.setGpr(o[0], int32(value))
		return nil
	}
}

// storeOp: memory[$t2 + offset] = $t1
func storeOp(width int) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		return cpu.store(cpu.effectiveAddress(o[1], o[2]), width, uint32(cpu.gpr(o[0])))
	}
}

// setByte replaces byte n (0 is least significant) of a word.
func setByte(word uint32, n uint32, value uint32) uint32 {
	shift := n * 8
	return (word &^ (0xff << shift)) | ((value & 0xff) << shift)
}

// getByte gets byte n (0 is least significant) of a word.
func getByte(word uint32, n uint32) uint32 {
	return (word >> (n * 8)) & 0xff
}

// loadLeft loads the most significant bytes of an unaligned word.
func loadLeft(cpu *Cpu, o [3]int32) error {
	address := cpu.effectiveAddress(o[1], o[2])
	result := uint32(cpu.gpr(o[0]))
	for n := uint32(0); n <= address%4; n++ {
		value, err := cpu.load(address-n, 1)
		if err != nil {
			return err
		}
		result = setByte(result, 3-n, value)
	}
	cpu.setGpr(o[0], int32(result))
	return nil
}

// loadRight loads the least significant bytes of an unaligned word.
func loadRight(cpu *Cpu, o [3]int32) error {
	address := cpu.effectiveAddress(o[1], o[2])
	result := uint32(cpu.gpr(o[0]))
	for n := uint32(0); n <= 3-address%4; n++ {
		value, err := cpu.load(address+n, 1)
		if err != nil {
			return err
		}
		result = setByte(result, n, value)
	}
	cpu.setGpr(o[0], int32(result))
	return nil
}

// storeLeft stores the most significant bytes of a register to an
// unaligned word.
func storeLeft(cpu *Cpu, o [3]int32) error {
	address := cpu.effectiveAddress(o[1], o[2])
	source := uint32(cpu.gpr(o[0]))
	for n := uint32(0); n <= address%4; n++ {
		if err := cpu.store(address-n, 1, getByte(source, 3-n)); err != nil {
			return err
		}
	}
	return nil
}

// storeRight stores the least significant bytes of a register to an
// unaligned word.
func storeRight(cpu *Cpu, o [3]int32) error {
	address := cpu.effectiveAddress(o[1], o[2])
	source := uint32(cpu.gpr(o[0]))
	for n := uint32(0); n <= 3-address%4; n++ {
		if err := cpu.store(address+n, 1, getByte(source, n)); err != nil {
			return err
		}
	}
	return nil
}

// Floating point semantics builders.

// fpSingle3: $f0 = op($f1, $f3)
func fpSingle3(op func(a, b float32) float32) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cpu.setFloat(o[0], op(cpu.float(o[1]), cpu.float(o[2])))
		return nil
	}
}

// fpDouble3: $f2 = op($f4, $f6), all even.
func fpDouble3(op func(a, b float64) float64) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		a, err := cpu.double(o[1])
		if err != nil {
			return err
		}
		b, err := cpu.double(o[2])
		if err != nil {
			return err
		}
		if o[0]%2 != 0 {
			return register.ErrInvalidRegisterAccess
		}
		return cpu.setDouble(o[0], op(a, b))
	}
}

// fpBits: $f0 = op(bits of $f1), single precision.
func fpBits(op func(bits uint32) uint32) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cpu.setFpr(o[0], op(cpu.fpr(o[1])))
		return nil
	}
}

// fpLong: $f2 = op(bits of $f4), double precision.
func fpLong(op func(bits uint64) uint64) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		value, err := cpu.Cop1.Long(int(o[1]))
		if err != nil {
			return err
		}
		return cpu.Cop1.SetLong(int(o[0]), op(value))
	}
}

// RoundWord converts a floating point value to a 32-bit integer using a
// rounding function. NaN, infinities and values outside of the 32-bit
// signed range produce the maximum positive integer.
func RoundWord(value float64, round func(float64) float64) int32 {
	value = round(value)
	if math.IsNaN(value) || math.IsInf(value, 0) || value < math.MinInt32 || value > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(value)
}

// fpRoundSingle: $f0 = integer bits of round($f1)
func fpRoundSingle(round func(float64) float64) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cpu.setFpr(o[0], uint32(RoundWord(float64(cpu.float(o[1])), round)))
		return nil
	}
}

// fpRoundDouble: $f0 = integer bits of round($f2)
func fpRoundDouble(round func(float64) float64) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		value, err := cpu.double(o[1])
		if err != nil {
			return err
		}
		cpu.setFpr(o[0], uint32(RoundWord(value, round)))
		return nil
	}
}

// fpCompareSingle: condition flag = pred($f0, $f1). With a flag operand,
// the flag is operand 1.
func fpCompareSingle(pred func(a, b float64) bool, flag bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cc, a, b := int32(0), o[0], o[1]
		if flag {
			cc, a, b = o[0], o[1], o[2]
		}
		_, err := cpu.Cop1.SetCondition(int(cc), pred(float64(cpu.float(a)), float64(cpu.float(b))))
		return err
	}
}

// fpCompareDouble: condition flag = pred($f0, $f2), both even.
func fpCompareDouble(pred func(a, b float64) bool, flag bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cc, a, b := int32(0), o[0], o[1]
		if flag {
			cc, a, b = o[0], o[1], o[2]
		}
		x, err := cpu.double(a)
		if err != nil {
			return err
		}
		y, err := cpu.double(b)
		if err != nil {
			return err
		}
		_, err = cpu.Cop1.SetCondition(int(cc), pred(x, y))
		return err
	}
}

// fpBranch: branch if condition flag == want. With a flag operand, the
// flag is operand 1.
func fpBranch(want bool, flag bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cc, offset := int32(0), o[0]
		if flag {
			cc, offset = o[0], o[1]
		}
		if cpu.Cop1.Condition(int(cc)) == want {
			cpu.branchRelative(offset)
		}
		return nil
	}
}

// moveOnFlag: $t1 = $t2 if condition flag == want
func moveOnFlag(want bool, flag bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cc := int32(0)
		if flag {
			cc = o[2]
		}
		if cpu.Cop1.Condition(int(cc)) == want {
			cpu.setGpr(o[0], cpu.gpr(o[1]))
		}
		return nil
	}
}

// fpMoveOnFlag: $f0 = $f1 if condition flag == want
func fpMoveOnFlag(want bool, flag bool, double bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		cc := int32(0)
		if flag {
			cc = o[2]
		}
		if double && (o[0]%2 != 0 || o[1]%2 != 0) {
			return register.ErrInvalidRegisterAccess
		}
		if cpu.Cop1.Condition(int(cc)) != want {
			return nil
		}
		return fpMove(cpu, o[0], o[1], double)
	}
}

// fpMoveOnRegister: $f0 = $f1 if pred($t3)
func fpMoveOnRegister(pred func(a int32) bool, double bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		if double && (o[0]%2 != 0 || o[1]%2 != 0) {
			return register.ErrInvalidRegisterAccess
		}
		if !pred(cpu.gpr(o[2])) {
			return nil
		}
		return fpMove(cpu, o[0], o[1], double)
	}
}

// fpMove copies a single or double precision value.
func fpMove(cpu *Cpu, dst, src int32, double bool) error {
	if !double {
		cpu.setFpr(dst, cpu.fpr(src))
		return nil
	}
	value, err := cpu.Cop1.Long(int(src))
	if err != nil {
		return err
	}
	return cpu.Cop1.SetLong(int(dst), value)
}

// fpLoad: $f1 = memory[$t2 + offset], single or double.
func fpLoad(double bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		if double && o[0]%2 != 0 {
			return register.ErrInvalidRegisterAccess
		}
		address := cpu.effectiveAddress(o[1], o[2])
		low, err := cpu.load(address, 4)
		if err != nil {
			return err
		}
		if !double {
			cpu.setFpr(o[0], low)
			return nil
		}
		high, err := cpu.load(address+4, 4)
		if err != nil {
			return err
		}
		return cpu.Cop1.SetLong(int(o[0]), (uint64(high)<<32)|uint64(low))
	}
}

// fpStore: memory[$t2 + offset] = $f1, single or double.
func fpStore(double bool) Semantics {
	return func(cpu *Cpu, o [3]int32) error {
		address := cpu.effectiveAddress(o[1], o[2])
		if !double {
			return cpu.store(address, 4, cpu.fpr(o[0]))
		}
		value, err := cpu.Cop1.Long(int(o[0]))
		if err != nil {
			return err
		}
		// Check both words before writing either.
		if _, err = cpu.Memory.Get(address+4, 4, memory.ACCESS_STORE); err != nil {
			return addressTrap(err)
		}
		if err = cpu.store(address, 4, uint32(value)); err != nil {
			return err
		}
		return cpu.store(address+4, 4, uint32(value>>32))
	}
}
