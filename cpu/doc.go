// Package cpu implements the virtual machine, assembler and disassembler for
// the 15-bit, eight register, 22 opcode Synacor architecture.
//
// Memory is 32768 words shared by code and data. An operand word is a
// literal (0-32767) or a register reference (32768-32775); all arithmetic is
// performed modulo 32768.
//
// The assembler writes every statement at an explicit address, and the
// disassembler renders statements the assembler reads back, so the two
// share the instruction encoding with the CPU through the opcode table.
package cpu
