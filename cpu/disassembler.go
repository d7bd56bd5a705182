// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"fmt"
	"io"
	"iter"
)

// Line is a single disassembled statement.
type Line struct {
	Address Word
	Data    bool // Set if the word at Address did not decode as an instruction.
	Code    Code // Decoded instruction, if !Data.
	Word    Word // Raw word, if Data.
}

// Width returns the number of words covered by the line.
func (ln Line) Width() int {
	if ln.Data {
		return 1
	}
	return ln.Code.Width()
}

// String returns the line as an assembler statement.
func (ln Line) String() string {
	if ln.Data {
		return fmt.Sprintf("%d: DATA %d", int(ln.Address), int(ln.Word))
	}
	return fmt.Sprintf("%d: %v", int(ln.Address), ln.Code)
}

// Disassemble walks image forward from start, yielding one Line per decoded
// instruction. Any word that is not a known opcode followed by a complete set
// of legal operands is yielded as a single DATA word, and the walk resumes at
// the next address. The walk ends at the end of image.
func Disassemble(image []Word, start Word) iter.Seq[Line] {
	return func(yield func(ln Line) bool) {
		for addr := int(start); addr < len(image); {
			ln := Line{Address: Word(addr)}
			code, err := DecodeCode(image[addr:])
			if err != nil {
				ln.Data = true
				ln.Word = image[addr]
			} else {
				ln.Code = code
			}
			if !yield(ln) {
				return
			}
			addr += ln.Width()
		}
	}
}

// WriteListing writes the disassembly of image, from start, one line per statement.
func WriteListing(w io.Writer, image []Word, start Word) (err error) {
	for ln := range Disassemble(image, start) {
		_, err = fmt.Fprintln(w, ln.String())
		if err != nil {
			return
		}
	}

	return
}
