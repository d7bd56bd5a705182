package cpu

import (
	"errors"

	"github.com/ezrec/synacor/translate"
)

var f = translate.From

var (
	// Cpu faults
	ErrIllegalOpcode        = errors.New(f("illegal opcode"))
	ErrInvalidOperand       = errors.New(f("invalid operand"))
	ErrInvalidDestination   = errors.New(f("invalid destination"))
	ErrStackUnderflow       = errors.New(f("stack underflow"))
	ErrDivisionByZero       = errors.New(f("division by zero"))
	ErrUnexpectedEndOfInput = errors.New(f("unexpected end of input"))

	// Assembler errors
	ErrSyntax         = errors.New(f("syntax error"))
	ErrArityMismatch  = errors.New(f("arity mismatch"))
	ErrLayoutConflict = errors.New(f("layout conflict"))

	// Assembler syntax details
	ErrAddressMissing  = errors.New(f("address missing"))
	ErrAddressInvalid  = errors.New(f("address invalid"))
	ErrLabelInvalid    = errors.New(f("label invalid"))
	ErrOpcodeMissing   = errors.New(f("opcode missing"))
	ErrOpcodeInvalid   = errors.New(f("opcode invalid"))
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrStartSyntax     = errors.New(f("$START syntax"))
	ErrStartDuplicate  = errors.New(f("$START duplicated"))
	ErrDataMissing     = errors.New(f("DATA without words"))
)

// Fault is a fatal condition raised while executing an instruction.
type Fault struct {
	Err     error // One of the Cpu fault sentinels.
	Pc      Word  // Address of the faulting instruction.
	Opcode  Word  // Raw instruction word at Pc.
	Operand int   // Index of the offending operand, or -1.
	Word    Word  // Raw offending operand word, if Operand >= 0.
}

func (ft *Fault) Error() string {
	if ft.Operand < 0 {
		return f("%05d: opcode %d (%v) %v", int(ft.Pc), int(ft.Opcode), Op(ft.Opcode), ft.Err)
	}
	return f("%05d: opcode %d (%v) operand %d (%d) %v", int(ft.Pc), int(ft.Opcode), Op(ft.Opcode), ft.Operand+1, int(ft.Word), ft.Err)
}

func (ft *Fault) Unwrap() error {
	return ft.Err
}

// ErrLine indicates the source line of an assembler error.
type ErrLine struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrLine) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrLine) Unwrap() error {
	return err.Err
}

// ErrAddressUsed is a layout conflict on an address already written.
type ErrAddressUsed struct {
	Address Word
	LineNo  int // Line that first wrote the address.
}

func (err ErrAddressUsed) Error() string {
	return f("address %d already written by line %d", int(err.Address), err.LineNo)
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number in range", string(err))
}

type ErrParseOperand string

func (err ErrParseOperand) Error() string {
	return f("'%v' is not a value, address or register", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
