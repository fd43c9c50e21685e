package cpu

import (
	"math"
	"math/bits"

	"github.com/ezrec/mipsim/register"
)

type definition struct {
	example     string
	description string
	format      Format
	template    string
	exec        Semantics
}

// basicInstructions builds the basic instruction table. The table is
// static; a bad entry is a programming error.
func basicInstructions() (insts []*Instruction) {
	for _, def := range definitions() {
		inst, err := NewInstruction(def.example, def.description, def.format, def.template, def.exec)
		if err != nil {
			panic(err)
		}
		insts = append(insts, inst)
	}
	return
}

func eq(a, b int32) bool  { return a == b }
func ne(a, b int32) bool  { return a != b }
func lt(a, b int32) bool  { return a < b }
func ge(a, b int32) bool  { return a >= b }
func ltu(a, b int32) bool { return uint32(a) < uint32(b) }
func geu(a, b int32) bool { return uint32(a) >= uint32(b) }

func nop(cpu *Cpu, o [3]int32) error { return nil }

func definitions() []definition {
	return []definition{
		{"nop", "Null operation : machine code is all zeroes",
			FORMAT_R, "000000 00000 00000 00000 00000 000000", nop},

		// Integer arithmetic
		{"add $t1,$t2,$t3", "Addition with overflow : set $t1 to ($t2 plus $t3)",
			FORMAT_R, "000000 sssss ttttt fffff 00000 100000", trapping(overflowAdd, false)},
		{"sub $t1,$t2,$t3", "Subtraction with overflow : set $t1 to ($t2 minus $t3)",
			FORMAT_R, "000000 sssss ttttt fffff 00000 100010", trapping(overflowSub, false)},
		{"addi $t1,$t2,-100", "Addition immediate with overflow : set $t1 to ($t2 plus signed 16-bit immediate)",
			FORMAT_I, "001000 sssss fffff tttttttttttttttt", trapping(overflowAdd, true)},
		{"addu $t1,$t2,$t3", "Addition unsigned without overflow : set $t1 to ($t2 plus $t3), no overflow",
			FORMAT_R, "000000 sssss ttttt fffff 00000 100001", rrr(func(a, b int32) int32 { return a + b })},
		{"subu $t1,$t2,$t3", "Subtraction unsigned without overflow : set $t1 to ($t2 minus $t3), no overflow",
			FORMAT_R, "000000 sssss ttttt fffff 00000 100011", rrr(func(a, b int32) int32 { return a - b })},
		{"addiu $t1,$t2,-100", "Addition immediate unsigned without overflow : set $t1 to ($t2 plus signed 16-bit immediate), no overflow",
			FORMAT_I, "001001 sssss fffff tttttttttttttttt", rri(func(a, imm int32) int32 { return a + imm })},
		{"mult $t1,$t2", "Multiplication : Set hi to high-order 32 bits, lo to low-order 32 bits of the product of $t1 and $t2",
			FORMAT_R, "000000 fffff sssss 00000 00000 011000", hiLoOp(func(_ uint64, a, b int32) uint64 { return product(a, b) })},
		{"multu $t1,$t2", "Multiplication unsigned : Set HI to high-order 32 bits, LO to low-order 32 bits of the product of unsigned $t1 and $t2",
			FORMAT_R, "000000 fffff sssss 00000 00000 011001", hiLoOp(func(_ uint64, a, b int32) uint64 { return productUnsigned(a, b) })},
		{"mul $t1,$t2,$t3", "Multiplication without overflow : Set HI to high-order 32 bits, LO and $t1 to low-order 32 bits of the product of $t2 and $t3",
			FORMAT_R, "011100 sssss ttttt fffff 00000 000010", func(cpu *Cpu, o [3]int32) error {
				p := product(cpu.gpr(o[1]), cpu.gpr(o[2]))
				cpu.setHiLo(p)
				cpu.setGpr(o[0], int32(p))
				return nil
			}},
		{"madd $t1,$t2", "Multiply add : Multiply $t1 by $t2 then increment HI by high-order 32 bits of product, increment LO by low-order 32 bits of product",
			FORMAT_R, "011100 fffff sssss 00000 00000 000000", hiLoOp(func(hilo uint64, a, b int32) uint64 { return hilo + product(a, b) })},
		{"maddu $t1,$t2", "Multiply add unsigned : Multiply $t1 by $t2 then increment HI by high-order 32 bits of product, increment LO by low-order 32 bits of product, unsigned",
			FORMAT_R, "011100 fffff sssss 00000 00000 000001", hiLoOp(func(hilo uint64, a, b int32) uint64 { return hilo + productUnsigned(a, b) })},
		{"msub $t1,$t2", "Multiply subtract : Multiply $t1 by $t2 then decrement HI by high-order 32 bits of product, decrement LO by low-order 32 bits of product",
			FORMAT_R, "011100 fffff sssss 00000 00000 000100", hiLoOp(func(hilo uint64, a, b int32) uint64 { return hilo - product(a, b) })},
		{"msubu $t1,$t2", "Multiply subtract unsigned : Multiply $t1 by $t2 then decrement HI by high-order 32 bits of product, decrement LO by low-order 32 bits of product, unsigned",
			FORMAT_R, "011100 fffff sssss 00000 00000 000101", hiLoOp(func(hilo uint64, a, b int32) uint64 { return hilo - productUnsigned(a, b) })},
		{"div $t1,$t2", "Division with overflow : Divide $t1 by $t2 then set LO to quotient and HI to remainder",
			FORMAT_R, "000000 fffff sssss 00000 00000 011010", func(cpu *Cpu, o [3]int32) error {
				a, b := cpu.gpr(o[0]), cpu.gpr(o[1])
				if b == 0 {
					return nil
				}
				cpu.Registers.SetHiLo(a%b, a/b)
				return nil
			}},
		{"divu $t1,$t2", "Division unsigned without overflow : Divide unsigned $t1 by $t2 then set LO to quotient and HI to remainder",
			FORMAT_R, "000000 fffff sssss 00000 00000 011011", func(cpu *Cpu, o [3]int32) error {
				a, b := uint32(cpu.gpr(o[0])), uint32(cpu.gpr(o[1]))
				if b == 0 {
					return nil
				}
				cpu.Registers.SetHiLo(int32(a%b), int32(a/b))
				return nil
			}},
		{"mfhi $t1", "Move from HI register : Set $t1 to contents of HI",
			FORMAT_R, "000000 00000 00000 fffff 00000 010000", func(cpu *Cpu, o [3]int32) error {
				cpu.setGpr(o[0], cpu.Registers.Hi())
				return nil
			}},
		{"mflo $t1", "Move from LO register : Set $t1 to contents of LO",
			FORMAT_R, "000000 00000 00000 fffff 00000 010010", func(cpu *Cpu, o [3]int32) error {
				cpu.setGpr(o[0], cpu.Registers.Lo())
				return nil
			}},
		{"mthi $t1", "Move to HI register : Set HI to contents of $t1",
			FORMAT_R, "000000 fffff 00000 00000 00000 010001", func(cpu *Cpu, o [3]int32) error {
				cpu.Registers.Set(register.REG_HI, cpu.gpr(o[0]))
				return nil
			}},
		{"mtlo $t1", "Move to LO register : Set LO to contents of $t1",
			FORMAT_R, "000000 fffff 00000 00000 00000 010011", func(cpu *Cpu, o [3]int32) error {
				cpu.Registers.Set(register.REG_LO, cpu.gpr(o[0]))
				return nil
			}},

		// Logical
		{"and $t1,$t2,$t3", "Bitwise AND : Set $t1 to bitwise AND of $t2 and $t3",
			FORMAT_R, "000000 sssss ttttt fffff 00000 100100", rrr(func(a, b int32) int32 { return a & b })},
		{"or $t1,$t2,$t3", "Bitwise OR : Set $t1 to bitwise OR of $t2 and $t3",
			FORMAT_R, "000000 sssss ttttt fffff 00000 100101", rrr(func(a, b int32) int32 { return a | b })},
		{"andi $t1,$t2,100", "Bitwise AND immediate : Set $t1 to bitwise AND of $t2 and zero-extended 16-bit immediate",
			FORMAT_I, "001100 sssss fffff tttttttttttttttt", rri(func(a, imm int32) int32 { return a & imm })},
		{"ori $t1,$t2,100", "Bitwise OR immediate : Set $t1 to bitwise OR of $t2 and zero-extended 16-bit immediate",
			FORMAT_I, "001101 sssss fffff tttttttttttttttt", rri(func(a, imm int32) int32 { return a | imm })},
		{"nor $t1,$t2,$t3", "Bitwise NOR : Set $t1 to bitwise NOR of $t2 and $t3",
			FORMAT_R, "000000 sssss ttttt fffff 00000 100111", rrr(func(a, b int32) int32 { return ^(a | b) })},
		{"xor $t1,$t2,$t3", "Bitwise XOR (exclusive OR) : Set $t1 to bitwise XOR of $t2 and $t3",
			FORMAT_R, "000000 sssss ttttt fffff 00000 100110", rrr(func(a, b int32) int32 { return a ^ b })},
		{"xori $t1,$t2,100", "Bitwise XOR immediate : Set $t1 to bitwise XOR of $t2 and zero-extended 16-bit immediate",
			FORMAT_I, "001110 sssss fffff tttttttttttttttt", rri(func(a, imm int32) int32 { return a ^ imm })},
		{"lui $t1,100", "Load upper immediate : Set high-order 16 bits of $t1 to 16-bit immediate and low-order 16 bits to 0",
			FORMAT_I, "001111 00000 fffff ssssssssssssssss", func(cpu *Cpu, o [3]int32) error {
				cpu.setGpr(o[0], o[1]<<16)
				return nil
			}},
		{"clo $t1,$t2", "Count number of leading ones : Set $t1 to the count of leading one bits in $t2 starting at most significant bit position",
			FORMAT_R, "011100 sssss 00000 fffff 00000 100001", func(cpu *Cpu, o [3]int32) error {
				cpu.setGpr(o[0], int32(bits.LeadingZeros32(^uint32(cpu.gpr(o[1])))))
				return nil
			}},
		{"clz $t1,$t2", "Count number of leading zeroes : Set $t1 to the count of leading zero bits in $t2 starting at most significant bit position",
			FORMAT_R, "011100 sssss 00000 fffff 00000 100000", func(cpu *Cpu, o [3]int32) error {
				cpu.setGpr(o[0], int32(bits.LeadingZeros32(uint32(cpu.gpr(o[1])))))
				return nil
			}},

		// Shifts
		{"sll $t1,$t2,10", "Shift left logical : Set $t1 to result of shifting $t2 left by number of bits specified by immediate",
			FORMAT_R, "000000 00000 sssss fffff ttttt 000000", shiftImm(func(v int32, n uint) int32 { return v << n })},
		{"sllv $t1,$t2,$t3", "Shift left logical variable : Set $t1 to result of shifting $t2 left by number of bits specified by value in low-order 5 bits of $t3",
			FORMAT_R, "000000 ttttt sssss fffff 00000 000100", shiftReg(func(v int32, n uint) int32 { return v << n })},
		{"srl $t1,$t2,10", "Shift right logical : Set $t1 to result of shifting $t2 right by number of bits specified by immediate",
			FORMAT_R, "000000 00000 sssss fffff ttttt 000010", shiftImm(func(v int32, n uint) int32 { return int32(uint32(v) >> n) })},
		{"srlv $t1,$t2,$t3", "Shift right logical variable : Set $t1 to result of shifting $t2 right by number of bits specified by value in low-order 5 bits of $t3",
			FORMAT_R, "000000 ttttt sssss fffff 00000 000110", shiftReg(func(v int32, n uint) int32 { return int32(uint32(v) >> n) })},
		{"sra $t1,$t2,10", "Shift right arithmetic : Set $t1 to result of sign-extended shifting $t2 right by number of bits specified by immediate",
			FORMAT_R, "000000 00000 sssss fffff ttttt 000011", shiftImm(func(v int32, n uint) int32 { return v >> n })},
		{"srav $t1,$t2,$t3", "Shift right arithmetic variable : Set $t1 to result of sign-extended shifting $t2 right by number of bits specified by value in low-order 5 bits of $t3",
			FORMAT_R, "000000 ttttt sssss fffff 00000 000111", shiftReg(func(v int32, n uint) int32 { return v >> n })},

		// Comparison and conditional moves
		{"slt $t1,$t2,$t3", "Set less than : If $t2 is less than $t3, then set $t1 to 1 else set $t1 to 0",
			FORMAT_R, "000000 sssss ttttt fffff 00000 101010", compare(lt, false)},
		{"sltu $t1,$t2,$t3", "Set less than unsigned : If $t2 is less than $t3 using unsigned comparision, then set $t1 to 1 else set $t1 to 0",
			FORMAT_R, "000000 sssss ttttt fffff 00000 101011", compare(ltu, false)},
		{"slti $t1,$t2,-100", "Set less than immediate : If $t2 is less than sign-extended 16-bit immediate, then set $t1 to 1 else set $t1 to 0",
			FORMAT_I, "001010 sssss fffff tttttttttttttttt", compare(lt, true)},
		{"sltiu $t1,$t2,-100", "Set less than immediate unsigned : If $t2 is less than  sign-extended 16-bit immediate using unsigned comparison, then set $t1 to 1 else set $t1 to 0",
			FORMAT_I, "001011 sssss fffff tttttttttttttttt", compare(ltu, true)},
		{"movn $t1,$t2,$t3", "Move conditional not zero : Set $t1 to $t2 if $t3 is not zero",
			FORMAT_R, "000000 sssss ttttt fffff 00000 001011", func(cpu *Cpu, o [3]int32) error {
				if cpu.gpr(o[2]) != 0 {
					cpu.setGpr(o[0], cpu.gpr(o[1]))
				}
				return nil
			}},
		{"movz $t1,$t2,$t3", "Move conditional zero : Set $t1 to $t2 if $t3 is zero",
			FORMAT_R, "000000 sssss ttttt fffff 00000 001010", func(cpu *Cpu, o [3]int32) error {
				if cpu.gpr(o[2]) == 0 {
					cpu.setGpr(o[0], cpu.gpr(o[1]))
				}
				return nil
			}},
		{"movf $t1,$t2", "Move if FP condition flag 0 false : Set $t1 to $t2 if FPU (Coprocessor 1) condition flag 0 is false (zero)",
			FORMAT_R, "000000 sssss 000 00 fffff 00000 000001", moveOnFlag(false, false)},
		{"movf $t1,$t2,1", "Move if specified FP condition flag false : Set $t1 to $t2 if FPU (Coprocessor 1) condition flag specified by the immediate is false (zero)",
			FORMAT_R, "000000 sssss ttt 00 fffff 00000 000001", moveOnFlag(false, true)},
		{"movt $t1,$t2", "Move if FP condition flag 0 true : Set $t1 to $t2 if FPU (Coprocessor 1) condition flag 0 is true (one)",
			FORMAT_R, "000000 sssss 000 01 fffff 00000 000001", moveOnFlag(true, false)},
		{"movt $t1,$t2,1", "Move if specfied FP condition flag true : Set $t1 to $t2 if FPU (Coprocessor 1) condition flag specified by the immediate is true (one)",
			FORMAT_R, "000000 sssss ttt 01 fffff 00000 000001", moveOnFlag(true, true)},

		// Traps and system
		{"teq $t1,$t2", "Trap if equal : Trap if $t1 is equal to $t2",
			FORMAT_R, "000000 fffff sssss 00000 00000 110100", trapReg(eq)},
		{"teqi $t1,-100", "Trap if equal to immediate : Trap if $t1 is equal to sign-extended 16 bit immediate",
			FORMAT_I, "000001 fffff 01100 ssssssssssssssss", trapImm(eq)},
		{"tne $t1,$t2", "Trap if not equal : Trap if $t1 is not equal to $t2",
			FORMAT_R, "000000 fffff sssss 00000 00000 110110", trapReg(ne)},
		{"tnei $t1,-100", "Trap if not equal to immediate : Trap if $t1 is not equal to sign-extended 16 bit immediate",
			FORMAT_I, "000001 fffff 01110 ssssssssssssssss", trapImm(ne)},
		{"tge $t1,$t2", "Trap if greater or equal : Trap if $t1 is greater than or equal to $t2",
			FORMAT_R, "000000 fffff sssss 00000 00000 110000", trapReg(ge)},
		{"tgeu $t1,$t2", "Trap if greater or equal unsigned : Trap if $t1 is greater than or equal to $t2 using unsigned comparision",
			FORMAT_R, "000000 fffff sssss 00000 00000 110001", trapReg(geu)},
		{"tgei $t1,-100", "Trap if greater than or equal to immediate : Trap if $t1 greater than or equal to sign-extended 16 bit immediate",
			FORMAT_I, "000001 fffff 01000 ssssssssssssssss", trapImm(ge)},
		{"tgeiu $t1,-100", "Trap if greater or equal to immediate unsigned : Trap if $t1 greater than or equal to sign-extended 16 bit immediate, unsigned comparison",
			FORMAT_I, "000001 fffff 01001 ssssssssssssssss", trapImm(geu)},
		{"tlt $t1,$t2", "Trap if less than: Trap if $t1 less than $t2",
			FORMAT_R, "000000 fffff sssss 00000 00000 110010", trapReg(lt)},
		{"tltu $t1,$t2", "Trap if less than unsigned : Trap if $t1 less than $t2, unsigned comparison",
			FORMAT_R, "000000 fffff sssss 00000 00000 110011", trapReg(ltu)},
		{"tlti $t1,-100", "Trap if less than immediate : Trap if $t1 less than sign-extended 16-bit immediate",
			FORMAT_I, "000001 fffff 01010 ssssssssssssssss", trapImm(lt)},
		{"tltiu $t1,-100", "Trap if less than immediate unsigned : Trap if $t1 less than sign-extended 16-bit immediate, unsigned comparison",
			FORMAT_I, "000001 fffff 01011 ssssssssssssssss", trapImm(ltu)},
		{"syscall", "Issue a system call : Execute the system call specified by value in $v0",
			FORMAT_R, "000000 00000 00000 00000 00000 001100", func(cpu *Cpu, o [3]int32) error {
				return cpu.Syscall()
			}},
		{"break", "Break execution : Terminate program execution with exception",
			FORMAT_R, "000000 00000 00000 00000 00000 001101", func(cpu *Cpu, o [3]int32) error {
				return &ErrTrap{Cause: CAUSE_BREAKPOINT, Err: ErrBreakInstruction}
			}},
		{"break 100", "Break execution with code : Terminate program execution with specified exception code",
			FORMAT_R, "000000 ffffffffffffffffffff 001101", func(cpu *Cpu, o [3]int32) error {
				return &ErrTrap{Cause: CAUSE_BREAKPOINT, Err: ErrBreakInstruction}
			}},
		{"eret", "Exception return : Set Program Counter to Coprocessor 0 EPC register value, set Coprocessor Status register bit 1 (exception level) to zero",
			FORMAT_R, "010000 1 0000000000000000000 011000", func(cpu *Cpu, o [3]int32) error {
				status := cpu.Cop0.Get(register.COP0_STATUS)
				cpu.Cop0.Set(register.COP0_STATUS, status&^register.STATUS_EXCEPTION_LEVEL)
				cpu.Registers.SetPC(uint32(cpu.Cop0.Get(register.COP0_EPC)))
				return nil
			}},
		{"mfc0 $t1,$8", "Move from Coprocessor 0 : Set $t1 to the value stored in Coprocessor 0 register $8",
			FORMAT_R, "010000 00000 fffff sssss 00000 000000", func(cpu *Cpu, o [3]int32) error {
				reg, ok := cpu.Cop0.Register(int(o[1]))
				if !ok {
					return &ErrTrap{Cause: CAUSE_RESERVED, Err: ErrInstructionReserved}
				}
				cpu.setGpr(o[0], reg.Value())
				return nil
			}},
		{"mtc0 $t1,$8", "Move to Coprocessor 0 : Set Coprocessor 0 register $8 to value stored in $t1",
			FORMAT_R, "010000 00100 fffff sssss 00000 000000", func(cpu *Cpu, o [3]int32) error {
				if _, err := cpu.Cop0.Set(int(o[1]), cpu.gpr(o[0])); err != nil {
					return &ErrTrap{Cause: CAUSE_RESERVED, Err: ErrInstructionReserved}
				}
				return nil
			}},

		// Branches and jumps
		{"beq $t1,$t2,label", "Branch if equal : Branch to statement at label's address if $t1 and $t2 are equal",
			FORMAT_I_BRANCH, "000100 fffff sssss tttttttttttttttt", branch2(eq)},
		{"bne $t1,$t2,label", "Branch if not equal : Branch to statement at label's address if $t1 and $t2 are not equal",
			FORMAT_I_BRANCH, "000101 fffff sssss tttttttttttttttt", branch2(ne)},
		{"bgez $t1,label", "Branch if greater than or equal to zero : Branch to statement at label's address if $t1 is greater than or equal to zero",
			FORMAT_I_BRANCH, "000001 fffff 00001 ssssssssssssssss", branch1(func(a int32) bool { return a >= 0 }, false)},
		{"bgezal $t1,label", "Branch if greater then or equal to zero and link : If $t1 is greater than or equal to zero, then set $ra to the Program Counter and branch to statement at label's address",
			FORMAT_I_BRANCH, "000001 fffff 10001 ssssssssssssssss", branch1(func(a int32) bool { return a >= 0 }, true)},
		{"bgtz $t1,label", "Branch if greater than zero : Branch to statement at label's address if $t1 is greater than zero",
			FORMAT_I_BRANCH, "000111 fffff 00000 ssssssssssssssss", branch1(func(a int32) bool { return a > 0 }, false)},
		{"blez $t1,label", "Branch if less than or equal to zero : Branch to statement at label's address if $t1 is less than or equal to zero",
			FORMAT_I_BRANCH, "000110 fffff 00000 ssssssssssssssss", branch1(func(a int32) bool { return a <= 0 }, false)},
		{"bltz $t1,label", "Branch if less than zero : Branch to statement at label's address if $t1 is less than zero",
			FORMAT_I_BRANCH, "000001 fffff 00000 ssssssssssssssss", branch1(func(a int32) bool { return a < 0 }, false)},
		{"bltzal $t1,label", "Branch if less than zero and link : If $t1 is less than or equal to zero, then set $ra to the Program Counter and branch to statement at label's address",
			FORMAT_I_BRANCH, "000001 fffff 10000 ssssssssssssssss", branch1(func(a int32) bool { return a < 0 }, true)},
		{"j target", "Jump unconditionally : Jump to statement at target address",
			FORMAT_J, "000010 ffffffffffffffffffffffffff", func(cpu *Cpu, o [3]int32) error {
				cpu.jump((cpu.Registers.PC() & 0xf0000000) | (uint32(o[0]) << 2))
				return nil
			}},
		{"jal target", "Jump and link : Set $ra to Program Counter (return address) then jump to statement at target address",
			FORMAT_J, "000011 ffffffffffffffffffffffffff", func(cpu *Cpu, o [3]int32) error {
				cpu.setGpr(register.REG_RA, cpu.link())
				cpu.jump((cpu.Registers.PC() & 0xf0000000) | (uint32(o[0]) << 2))
				return nil
			}},
		{"jr $t1", "Jump register unconditionally : Jump to statement whose address is in $t1",
			FORMAT_R, "000000 fffff 00000 00000 00000 001000", func(cpu *Cpu, o [3]int32) error {
				cpu.jump(uint32(cpu.gpr(o[0])))
				return nil
			}},
		{"jalr $t1", "Jump and link register : Set $ra to Program Counter (return address) then jump to statement whose address is in $t1",
			FORMAT_R, "000000 fffff 00000 11111 00000 001001", func(cpu *Cpu, o [3]int32) error {
				target := uint32(cpu.gpr(o[0]))
				cpu.setGpr(register.REG_RA, cpu.link())
				cpu.jump(target)
				return nil
			}},
		{"jalr $t1,$t2", "Jump and link register : Set $t1 to Program Counter (return address) then jump to statement whose address is in $t2",
			FORMAT_R, "000000 sssss 00000 fffff 00000 001001", func(cpu *Cpu, o [3]int32) error {
				target := uint32(cpu.gpr(o[1]))
				cpu.setGpr(o[0], cpu.link())
				cpu.jump(target)
				return nil
			}},

		// Loads and stores
		{"lb $t1,-100($t2)", "Load byte : Set $t1 to sign-extended 8-bit value from effective memory byte address",
			FORMAT_I, "100000 ttttt fffff ssssssssssssssss", loadOp(1, true)},
		{"lh $t1,-100($t2)", "Load halfword : Set $t1 to sign-extended 16-bit value from effective memory halfword address",
			FORMAT_I, "100001 ttttt fffff ssssssssssssssss", loadOp(2, true)},
		{"lwl $t1,-100($t2)", "Load word left : Load from 1 to 4 bytes left-justified into $t1, starting with effective memory byte address and continuing through the low-order byte of its word",
			FORMAT_I, "100010 ttttt fffff ssssssssssssssss", loadLeft},
		{"lw $t1,-100($t2)", "Load word : Set $t1 to contents of effective memory word address",
			FORMAT_I, "100011 ttttt fffff ssssssssssssssss", loadOp(4, false)},
		{"lbu $t1,-100($t2)", "Load byte unsigned : Set $t1 to zero-extended 8-bit value from effective memory byte address",
			FORMAT_I, "100100 ttttt fffff ssssssssssssssss", loadOp(1, false)},
		{"lhu $t1,-100($t2)", "Load halfword unsigned : Set $t1 to zero-extended 16-bit value from effective memory halfword address",
			FORMAT_I, "100101 ttttt fffff ssssssssssssssss", loadOp(2, false)},
		{"lwr $t1,-100($t2)", "Load word right : Load from 1 to 4 bytes right-justified into $t1, starting with effective memory byte address and continuing through the high-order byte of its word",
			FORMAT_I, "100110 ttttt fffff ssssssssssssssss", loadRight},
		{"ll $t1,-100($t2)", "Load linked : Paired with Store Conditional (sc) to perform atomic read-modify-write.  Treated as equivalent to Load Word (lw) because MARS does not simulate multiple processors.",
			FORMAT_I, "110000 ttttt fffff ssssssssssssssss", loadOp(4, false)},
		{"sb $t1,-100($t2)", "Store byte : Store the low-order 8 bits of $t1 into the effective memory byte address",
			FORMAT_I, "101000 ttttt fffff ssssssssssssssss", storeOp(1)},
		{"sh $t1,-100($t2)", "Store halfword : Store the low-order 16 bits of $t1 into the effective memory halfword address",
			FORMAT_I, "101001 ttttt fffff ssssssssssssssss", storeOp(2)},
		{"swl $t1,-100($t2)", "Store word left : Store high-order 1 to 4 bytes of $t1 into memory, starting with effective byte address and continuing through the low-order byte of its word",
			FORMAT_I, "101010 ttttt fffff ssssssssssssssss", storeLeft},
		{"sw $t1,-100($t2)", "Store word : Store contents of $t1 into effective memory word address",
			FORMAT_I, "101011 ttttt fffff ssssssssssssssss", storeOp(4)},
		{"swr $t1,-100($t2)", "Store word right : Store low-order 1 to 4 bytes of $t1 into memory, starting with high-order byte of word containing effective byte address and continuing through that byte address",
			FORMAT_I, "101110 ttttt fffff ssssssssssssssss", storeRight},
		{"sc $t1,-100($t2)", "Store conditional : Paired with Load Linked (ll) to perform atomic read-modify-write.  Stores $t1 value into effective address, then sets $t1 to 1 for success.",
			FORMAT_I, "111000 ttttt fffff ssssssssssssssss", func(cpu *Cpu, o [3]int32) error {
				if err := storeOp(4)(cpu, o); err != nil {
					return err
				}
				cpu.setGpr(o[0], 1)
				return nil
			}},
		{"lwc1 $f1,-100($t2)", "Load word into Coprocessor 1 (FPU) : Set $f1 to 32-bit value from effective memory word address",
			FORMAT_I, "110001 ttttt fffff ssssssssssssssss", fpLoad(false)},
		{"ldc1 $f2,-100($t2)", "Load double word Coprocessor 1 (FPU)) : Set $f2 to 64-bit value from effective memory doubleword address",
			FORMAT_I, "110101 ttttt fffff ssssssssssssssss", fpLoad(true)},
		{"swc1 $f1,-100($t2)", "Store word from Coprocesor 1 (FPU) : Store 32 bit value in $f1 to effective memory word address",
			FORMAT_I, "111001 ttttt fffff ssssssssssssssss", fpStore(false)},
		{"sdc1 $f2,-100($t2)", "Store double word from Coprocessor 1 (FPU)) : Store 64 bit value in $f2 to effective memory doubleword address",
			FORMAT_I, "111101 ttttt fffff ssssssssssssssss", fpStore(true)},

		// Floating point arithmetic
		{"add.s $f0,$f1,$f3", "Floating point addition single precision : Set $f0 to single-precision floating point value of $f1 plus $f3",
			FORMAT_R, "010001 10000 ttttt sssss fffff 000000", fpSingle3(func(a, b float32) float32 { return a + b })},
		{"sub.s $f0,$f1,$f3", "Floating point subtraction single precision : Set $f0 to single-precision floating point value of $f1  minus $f3",
			FORMAT_R, "010001 10000 ttttt sssss fffff 000001", fpSingle3(func(a, b float32) float32 { return a - b })},
		{"mul.s $f0,$f1,$f3", "Floating point multiplication single precision : Set $f0 to single-precision floating point value of $f1 times $f3",
			FORMAT_R, "010001 10000 ttttt sssss fffff 000010", fpSingle3(func(a, b float32) float32 { return a * b })},
		{"div.s $f0,$f1,$f3", "Floating point division single precision : Set $f0 to single-precision floating point value of $f1 divided by $f3",
			FORMAT_R, "010001 10000 ttttt sssss fffff 000011", fpSingle3(func(a, b float32) float32 { return a / b })},
		{"sqrt.s $f0,$f1", "Square root single precision : Set $f0 to single-precision floating point square root of $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 000100", fpBits(func(v uint32) uint32 {
				return math.Float32bits(float32(math.Sqrt(float64(math.Float32frombits(v)))))
			})},
		{"abs.s $f0,$f1", "Floating point absolute value single precision : Set $f0 to absolute value of $f1, single precision",
			FORMAT_R, "010001 10000 00000 sssss fffff 000101", fpBits(func(v uint32) uint32 { return v &^ (1 << 31) })},
		{"mov.s $f0,$f1", "Move floating point single precision : Set single precision $f0 to single precision value in $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 000110", fpBits(func(v uint32) uint32 { return v })},
		{"neg.s $f0,$f1", "Floating point negate single precision : Set single precision $f0 to negation of single precision value in $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 000111", fpBits(func(v uint32) uint32 { return v ^ (1 << 31) })},
		{"add.d $f2,$f4,$f6", "Floating point addition double precision : Set $f2 to double-precision floating point value of $f4 plus $f6",
			FORMAT_R, "010001 10001 ttttt sssss fffff 000000", fpDouble3(func(a, b float64) float64 { return a + b })},
		{"sub.d $f2,$f4,$f6", "Floating point subtraction double precision : Set $f2 to double-precision floating point value of $f4 minus $f6",
			FORMAT_R, "010001 10001 ttttt sssss fffff 000001", fpDouble3(func(a, b float64) float64 { return a - b })},
		{"mul.d $f2,$f4,$f6", "Floating point multiplication double precision : Set $f2 to double-precision floating point value of $f4 times $f6",
			FORMAT_R, "010001 10001 ttttt sssss fffff 000010", fpDouble3(func(a, b float64) float64 { return a * b })},
		{"div.d $f2,$f4,$f6", "Floating point division double precision : Set $f2 to double-precision floating point value of $f4 divided by $f6",
			FORMAT_R, "010001 10001 ttttt sssss fffff 000011", fpDouble3(func(a, b float64) float64 { return a / b })},
		{"sqrt.d $f2,$f4", "Square root double precision : Set $f2 to double-precision floating point square root of $f4",
			FORMAT_R, "010001 10001 00000 sssss fffff 000100", fpLong(func(v uint64) uint64 {
				return math.Float64bits(math.Sqrt(math.Float64frombits(v)))
			})},
		{"abs.d $f2,$f4", "Floating point absolute value double precision : Set $f2 to absolute value of $f4, double precision",
			FORMAT_R, "010001 10001 00000 sssss fffff 000101", fpLong(func(v uint64) uint64 { return v &^ (1 << 63) })},
		{"mov.d $f2,$f4", "Move floating point double precision : Set double precision $f2 to double precision value in $f4",
			FORMAT_R, "010001 10001 00000 sssss fffff 000110", fpLong(func(v uint64) uint64 { return v })},
		{"neg.d $f2,$f4", "Floating point negate double precision : Set double precision $f2 to negation of double precision value in $f4",
			FORMAT_R, "010001 10001 00000 sssss fffff 000111", fpLong(func(v uint64) uint64 { return v ^ (1 << 63) })},

		// Floating point conversion
		{"round.w.s $f0,$f1", "Round single precision to word : Set $f0 to 32-bit integer round of single-precision float in $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 001100", fpRoundSingle(math.RoundToEven)},
		{"trunc.w.s $f0,$f1", "Truncate single precision to word : Set $f0 to 32-bit integer truncation of single-precision float in $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 001101", fpRoundSingle(math.Trunc)},
		{"ceil.w.s $f0,$f1", "Ceiling single precision to word : Set $f0 to 32-bit integer ceiling of single-precision float in $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 001110", fpRoundSingle(math.Ceil)},
		{"floor.w.s $f0,$f1", "Floor single precision to word : Set $f0 to 32-bit integer floor of single-precision float in $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 001111", fpRoundSingle(math.Floor)},
		{"round.w.d $f1,$f2", "Round double precision to word : Set $f1 to 32-bit integer round of double-precision float in $f2",
			FORMAT_R, "010001 10001 00000 sssss fffff 001100", fpRoundDouble(math.RoundToEven)},
		{"trunc.w.d $f1,$f2", "Truncate double precision to word : Set $f1 to 32-bit integer truncation of double-precision float in $f2",
			FORMAT_R, "010001 10001 00000 sssss fffff 001101", fpRoundDouble(math.Trunc)},
		{"ceil.w.d $f1,$f2", "Ceiling double precision to word : Set $f1 to 32-bit integer ceiling of double-precision float in $f2",
			FORMAT_R, "010001 10001 00000 sssss fffff 001110", fpRoundDouble(math.Ceil)},
		{"floor.w.d $f1,$f2", "Floor double precision to word : Set $f1 to 32-bit integer floor of double-precision float in $f2",
			FORMAT_R, "010001 10001 00000 sssss fffff 001111", fpRoundDouble(math.Floor)},
		{"cvt.w.s $f0,$f1", "Convert from single precision to integer : Set $f0 to 32-bit integer equivalent of single-precision value in $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 100100", fpRoundSingle(math.Trunc)},
		{"cvt.w.d $f1,$f2", "Convert from double precision to integer : Set $f1 to 32-bit integer equivalent of double-precision value in $f2",
			FORMAT_R, "010001 10001 00000 sssss fffff 100100", fpRoundDouble(math.Trunc)},
		{"cvt.s.w $f0,$f1", "Convert from integer to single precision : Set $f0 to single precision equivalent of 32-bit integer value in $f1",
			FORMAT_R, "010001 10100 00000 sssss fffff 100000", func(cpu *Cpu, o [3]int32) error {
				cpu.setFloat(o[0], float32(int32(cpu.fpr(o[1]))))
				return nil
			}},
		{"cvt.s.d $f1,$f2", "Convert from double precision to single precision : Set $f1 to single precision equivalent of double precision value in $f2",
			FORMAT_R, "010001 10001 00000 sssss fffff 100000", func(cpu *Cpu, o [3]int32) error {
				value, err := cpu.double(o[1])
				if err != nil {
					return err
				}
				cpu.setFloat(o[0], float32(value))
				return nil
			}},
		{"cvt.d.w $f2,$f1", "Convert from integer to double precision : Set $f2 to double precision equivalent of 32-bit integer value in $f1",
			FORMAT_R, "010001 10100 00000 sssss fffff 100001", func(cpu *Cpu, o [3]int32) error {
				return cpu.setDouble(o[0], float64(int32(cpu.fpr(o[1]))))
			}},
		{"cvt.d.s $f2,$f1", "Convert from single precision to double precision : Set $f2 to double precision equivalent of single precision value in $f1",
			FORMAT_R, "010001 10000 00000 sssss fffff 100001", func(cpu *Cpu, o [3]int32) error {
				return cpu.setDouble(o[0], float64(cpu.float(o[1])))
			}},

		// Floating point comparison and branches
		{"c.eq.s $f0,$f1", "Compare equal single precision : If $f0 is equal to $f1, set Coprocessor 1 condition flag 0 true else set it false",
			FORMAT_R, "010001 10000 sssss fffff 00000 110010", fpCompareSingle(func(a, b float64) bool { return a == b }, false)},
		{"c.eq.s 1,$f0,$f1", "Compare equal single precision : If $f0 is equal to $f1, set Coprocessor 1 condition flag specied by immediate to true else set it to false",
			FORMAT_R, "010001 10000 ttttt sssss fff 00 110010", fpCompareSingle(func(a, b float64) bool { return a == b }, true)},
		{"c.le.s $f0,$f1", "Compare less or equal single precision : If $f0 is less than or equal to $f1, set Coprocessor 1 condition flag 0 true else set it false",
			FORMAT_R, "010001 10000 sssss fffff 00000 111110", fpCompareSingle(func(a, b float64) bool { return a <= b }, false)},
		{"c.le.s 1,$f0,$f1", "Compare less or equal single precision : If $f0 is less than or equal to $f1, set Coprocessor 1 condition flag specified by immediate to true else set it to false",
			FORMAT_R, "010001 10000 ttttt sssss fff 00 111110", fpCompareSingle(func(a, b float64) bool { return a <= b }, true)},
		{"c.lt.s $f0,$f1", "Compare less than single precision : If $f0 is less than $f1, set Coprocessor 1 condition flag 0 true else set it false",
			FORMAT_R, "010001 10000 sssss fffff 00000 111100", fpCompareSingle(func(a, b float64) bool { return a < b }, false)},
		{"c.lt.s 1,$f0,$f1", "Compare less than single precision : If $f0 is less than $f1, set Coprocessor 1 condition flag specified by immediate to true else set it to false",
			FORMAT_R, "010001 10000 ttttt sssss fff 00 111100", fpCompareSingle(func(a, b float64) bool { return a < b }, true)},
		{"c.eq.d $f2,$f4", "Compare equal double precision : If $f2 is equal to $f4 (double-precision), set Coprocessor 1 condition flag 0 true else set it false",
			FORMAT_R, "010001 10001 sssss fffff 00000 110010", fpCompareDouble(func(a, b float64) bool { return a == b }, false)},
		{"c.eq.d 1,$f2,$f4", "Compare equal double precision : If $f2 is equal to $f4 (double-precision), set Coprocessor 1 condition flag specified by immediate true else set it false",
			FORMAT_R, "010001 10001 ttttt sssss fff 00 110010", fpCompareDouble(func(a, b float64) bool { return a == b }, true)},
		{"c.le.d $f2,$f4", "Compare less or equal double precision : If $f2 is less than or equal to $f4 (double-precision), set Coprocessor 1 condition flag 0 true else set it false",
			FORMAT_R, "010001 10001 sssss fffff 00000 111110", fpCompareDouble(func(a, b float64) bool { return a <= b }, false)},
		{"c.le.d 1,$f2,$f4", "Compare less or equal double precision : If $f2 is less than or equal to $f4 (double-precision), set Coprocessor 1 condition flag specfied by immediate true else set it false",
			FORMAT_R, "010001 10001 ttttt sssss fff 00 111110", fpCompareDouble(func(a, b float64) bool { return a <= b }, true)},
		{"c.lt.d $f2,$f4", "Compare less than double precision : If $f2 is less than $f4 (double-precision), set Coprocessor 1 condition flag 0 true else set it false",
			FORMAT_R, "010001 10001 sssss fffff 00000 111100", fpCompareDouble(func(a, b float64) bool { return a < b }, false)},
		{"c.lt.d 1,$f2,$f4", "Compare less than double precision : If $f2 is less than $f4 (double-precision), set Coprocessor 1 condition flag specified by immediate to true else set it to false",
			FORMAT_R, "010001 10001 ttttt sssss fff 00 111100", fpCompareDouble(func(a, b float64) bool { return a < b }, true)},
		{"bc1f label", "Branch if FP condition flag 0 false (BC1F, not BCLF) : If Coprocessor 1 condition flag 0 is false (zero) then branch to statement at label's address",
			FORMAT_I_BRANCH, "010001 01000 00000 ffffffffffffffff", fpBranch(false, false)},
		{"bc1f 1,label", "Branch if specified FP condition flag false (BC1F, not BCLF) : If Coprocessor 1 condition flag specified by immediate is false (zero) then branch to statement at label's address",
			FORMAT_I_BRANCH, "010001 01000 fff 00 ssssssssssssssss", fpBranch(false, true)},
		{"bc1t label", "Branch if FP condition flag 0 true (BC1T, not BCLT) : If Coprocessor 1 condition flag 0 is true (one) then branch to statement at label's address",
			FORMAT_I_BRANCH, "010001 01000 00001 ffffffffffffffff", fpBranch(true, false)},
		{"bc1t 1,label", "Branch if specified FP condition flag true (BC1T, not BCLT) : If Coprocessor 1 condition flag specified by immediate is true (one) then branch to statement at label's address",
			FORMAT_I_BRANCH, "010001 01000 fff 01 ssssssssssssssss", fpBranch(true, true)},

		// Floating point moves
		{"mfc1 $t1,$f1", "Move from Coprocessor 1 (FPU) : Set $t1 to value in Coprocessor 1 register $f1",
			FORMAT_R, "010001 00000 fffff sssss 00000 000000", func(cpu *Cpu, o [3]int32) error {
				cpu.setGpr(o[0], int32(cpu.fpr(o[1])))
				return nil
			}},
		{"mtc1 $t1,$f1", "Move to Coprocessor 1 (FPU) : Set Coprocessor 1 register $f1 to value in $t1",
			FORMAT_R, "010001 00100 fffff sssss 00000 000000", func(cpu *Cpu, o [3]int32) error {
				cpu.setFpr(o[1], uint32(cpu.gpr(o[0])))
				return nil
			}},
		{"movf.s $f0,$f1", "Move floating point single precision if condition flag 0 false : Set single precision $f0 to single precision value in $f1 if condition flag 0 is false",
			FORMAT_R, "010001 10000 000 00 sssss fffff 010001", fpMoveOnFlag(false, false, false)},
		{"movf.s $f0,$f1,1", "Move floating point single precision if specified condition flag false : Set single precision $f0 to single precision value in $f1 if condition flag specified by immediate is false",
			FORMAT_R, "010001 10000 ttt 00 sssss fffff 010001", fpMoveOnFlag(false, true, false)},
		{"movt.s $f0,$f1", "Move floating point single precision if condition flag 0 true : Set single precision $f0 to single precision value in $f1 if condition flag 0 is true",
			FORMAT_R, "010001 10000 000 01 sssss fffff 010001", fpMoveOnFlag(true, false, false)},
		{"movt.s $f0,$f1,1", "Move floating point single precision if specified condition flag true : Set single precision $f0 to single precision value in $f1 if condition flag specified by immediate is true",
			FORMAT_R, "010001 10000 ttt 01 sssss fffff 010001", fpMoveOnFlag(true, true, false)},
		{"movf.d $f2,$f4", "Move floating point double precision if condition flag 0 false : Set double precision $f2 to double precision value in $f4 if condition flag 0 is false",
			FORMAT_R, "010001 10001 000 00 sssss fffff 010001", fpMoveOnFlag(false, false, true)},
		{"movf.d $f2,$f4,1", "Move floating point double precision if specified condition flag false : Set double precision $f2 to double precision value in $f4 if condition flag specified by immediate is false",
			FORMAT_R, "010001 10001 ttt 00 sssss fffff 010001", fpMoveOnFlag(false, true, true)},
		{"movt.d $f2,$f4", "Move floating point double precision if condition flag 0 true : Set double precision $f2 to double precision value in $f4 if condition flag 0 is true",
			FORMAT_R, "010001 10001 000 01 sssss fffff 010001", fpMoveOnFlag(true, false, true)},
		{"movt.d $f2,$f4,1", "Move floating point double precision if specified condition flag true : Set double precision $f2 to double precision value in $f4 if condition flag specified by immediate is true",
			FORMAT_R, "010001 10001 ttt 01 sssss fffff 010001", fpMoveOnFlag(true, true, true)},
		{"movn.s $f0,$f1,$t3", "Move floating point single precision if not zero : Set single precision $f0 to single precision value in $f1 only if $t3 is not zero",
			FORMAT_R, "010001 10000 ttttt sssss fffff 010011", fpMoveOnRegister(func(a int32) bool { return a != 0 }, false)},
		{"movz.s $f0,$f1,$t3", "Move floating point single precision if zero : Set single precision $f0 to single precision value in $f1 only if $t3 is zero",
			FORMAT_R, "010001 10000 ttttt sssss fffff 010010", fpMoveOnRegister(func(a int32) bool { return a == 0 }, false)},
		{"movn.d $f2,$f4,$t3", "Move floating point double precision if not zero : Set double precision $f2 to double precision value in $f4 only if $t3 is not zero",
			FORMAT_R, "010001 10001 ttttt sssss fffff 010011", fpMoveOnRegister(func(a int32) bool { return a != 0 }, true)},
		{"movz.d $f2,$f4,$t3", "Move floating point double precision if zero : Set double precision $f2 to double precision value in $f4 only if $t3 is zero",
			FORMAT_R, "010001 10001 ttttt sssss fffff 010010", fpMoveOnRegister(func(a int32) bool { return a == 0 }, true)},
	}
}
