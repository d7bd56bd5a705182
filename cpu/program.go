package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated words.
type Opcode struct {
	LineNo  int
	Address Word
	Words   []string // Source tokens after the address.
	Codes   []Word   // Encoded words written at Address.
}

// Program is the output of the assembler: a sparse memory image and its entry address.
type Program struct {
	Entry   Word
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug returns the opcode covering address addr, and the offset of addr in it.
func (prog *Program) Debug(addr Word) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if addr >= op.Address && int(addr) < int(op.Address)+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr - op.Address),
			}
			break
		}
	}

	return
}

// Words iterates over the written addresses of the image, in source order.
func (prog *Program) Words() iter.Seq2[Word, Word] {
	return func(yield func(addr Word, word Word) bool) {
		for _, op := range prog.Opcodes {
			for n, word := range op.Codes {
				if !yield(op.Address+Word(n), word) {
					return
				}
			}
		}
	}
}

// Binary returns the dense image, from address 0 up to the highest written
// address. Unwritten addresses are zero.
func (prog *Program) Binary() (bins []Word) {
	size := 0
	for _, op := range prog.Opcodes {
		end := int(op.Address) + len(op.Codes)
		if end > size {
			size = end
		}
	}

	bins = make([]Word, size)
	for addr, word := range prog.Words() {
		bins[addr] = word
	}

	return
}
