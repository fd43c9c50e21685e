// Package cpu implements the MIPS32 instruction set and the execution
// context of the simulator.
//
// Instructions are described by a static table. Each entry holds the
// instruction's example syntax ("add $t1,$t2,$t3"), a 32-bit template
// marking its literal bits and operand fields, and its semantics. The
// same template drives encoding in the assembler and decoding in the
// simulator. Pseudo instructions are described by text expansions into
// basic instructions.
//
// The Cpu owns the general purpose, exception and floating point
// registers, the simulated memory, and the assembled Program. Each Tick
// executes one instruction, honoring delayed branching, and dispatches
// traps to the program's exception handler when one is installed.
// Every register and memory write is recorded by the backstepper, so
// that execution may be undone one instruction at a time.
package cpu
