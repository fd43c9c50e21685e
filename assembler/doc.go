// Package assembler translates MIPS32 assembly source into a cpu.Program.
//
// Assembly is done in two passes. The first pass tokenizes each line,
// applies .eqv substitutions and $(...) expressions, expands macros and
// pseudo instructions, binds labels, and encodes instructions and data.
// Label references that cannot be resolved yet are recorded, and patched
// by the second pass once every file has been assembled.
//
// Each file is a separate unit with its own labels, .eqv definitions and
// macros. Labels named by .globl, and those allocated by .extern, are
// shared by all units.
//
// Errors are collected, with their file, line and column, up to the
// MaxErrors setting; warnings are promoted to errors by the
// WarningsAreErrors setting.
package assembler
