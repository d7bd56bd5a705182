package cpu

import (
	"fmt"
)

// Word is a 15-bit machine value held in a 16-bit cell.
type Word uint16

const (
	MODULUS        = 32768            // Arithmetic modulus.
	WORD_MAX       = Word(MODULUS - 1) // Largest literal value.
	MEMORY_SIZE    = MODULUS          // Number of addressable memory words.
	REGISTER_COUNT = 8                // Number of registers.
	REGISTER_BASE  = Word(MODULUS)    // Encoding of R0.
	REGISTER_LAST  = REGISTER_BASE + REGISTER_COUNT - 1
)

// Normalize reduces x modulo 32768.
func Normalize(x uint32) Word {
	return Word(x % MODULUS)
}

// IsLiteral returns true if the encoded operand is a literal value.
func (w Word) IsLiteral() bool {
	return w <= WORD_MAX
}

// IsRegister returns true if the encoded operand refers to a register.
func (w Word) IsRegister() bool {
	return w >= REGISTER_BASE && w <= REGISTER_LAST
}

// IsValid returns true if the encoded operand is a literal or register.
func (w Word) IsValid() bool {
	return w <= REGISTER_LAST
}

// Register returns the register index of a register operand.
func (w Word) Register() (reg int, ok bool) {
	if !w.IsRegister() {
		return
	}

	return int(w - REGISTER_BASE), true
}

// Resolve returns the value of an encoded operand: the literal itself, or the
// content of the referenced register.
func Resolve(w Word, registers *[REGISTER_COUNT]Word) (value Word, err error) {
	switch {
	case w.IsLiteral():
		value = w
	case w.IsRegister():
		value = registers[w-REGISTER_BASE]
	default:
		err = ErrInvalidOperand
	}

	return
}

// EncodeLiteral returns the operand encoding of a literal value.
func EncodeLiteral(value int) (w Word, err error) {
	if value < 0 || value > int(WORD_MAX) {
		err = ErrParseNumber(fmt.Sprintf("%d", value))
		return
	}

	return Word(value), nil
}

// EncodeRegister returns the operand encoding of register reg.
func EncodeRegister(reg int) (w Word, err error) {
	if reg < 0 || reg >= REGISTER_COUNT {
		err = ErrRegisterInvalid
		return
	}

	return REGISTER_BASE + Word(reg), nil
}
