package cpu

import (
	"fmt"
	"strings"
)

// Op is an instruction opcode.
type Op Word

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_HALT = Op(0)  // HALT
	OP_SET  = Op(1)  // SET
	OP_PUSH = Op(2)  // PUSH
	OP_POP  = Op(3)  // POP
	OP_EQ   = Op(4)  // EQ
	OP_GT   = Op(5)  // GT
	OP_JMP  = Op(6)  // JMP
	OP_JT   = Op(7)  // JT
	OP_JF   = Op(8)  // JF
	OP_ADD  = Op(9)  // ADD
	OP_MULT = Op(10) // MULT
	OP_MOD  = Op(11) // MOD
	OP_AND  = Op(12) // AND
	OP_OR   = Op(13) // OR
	OP_NOT  = Op(14) // NOT
	OP_RMEM = Op(15) // RMEM
	OP_WMEM = Op(16) // WMEM
	OP_CALL = Op(17) // CALL
	OP_RET  = Op(18) // RET
	OP_OUT  = Op(19) // OUT
	OP_IN   = Op(20) // IN
	OP_NOOP = Op(21) // NOOP
)

const OP_COUNT = 22

// Role is the part an operand plays in an instruction.
// A dst operand is a register written by the instruction; value and address
// operands are literals or registers read by it.
type Role int

//go:generate go tool stringer -linecomment -type=Role
const (
	ROLE_DST     = Role(0) // dst
	ROLE_VALUE   = Role(1) // value
	ROLE_ADDRESS = Role(2) // address
)

// Form describes the operand roles of an opcode.
type Form struct {
	Roles []Role
}

const (
	rD = ROLE_DST
	rV = ROLE_VALUE
	rA = ROLE_ADDRESS
)

// opTable is indexed by opcode value.
var opTable = [OP_COUNT]Form{
	OP_HALT: {nil},
	OP_SET:  {[]Role{rD, rV}},
	OP_PUSH: {[]Role{rV}},
	OP_POP:  {[]Role{rD}},
	OP_EQ:   {[]Role{rD, rV, rV}},
	OP_GT:   {[]Role{rD, rV, rV}},
	OP_JMP:  {[]Role{rA}},
	OP_JT:   {[]Role{rV, rA}},
	OP_JF:   {[]Role{rV, rA}},
	OP_ADD:  {[]Role{rD, rV, rV}},
	OP_MULT: {[]Role{rD, rV, rV}},
	OP_MOD:  {[]Role{rD, rV, rV}},
	OP_AND:  {[]Role{rD, rV, rV}},
	OP_OR:   {[]Role{rD, rV, rV}},
	OP_NOT:  {[]Role{rD, rV}},
	OP_RMEM: {[]Role{rD, rA}},
	OP_WMEM: {[]Role{rA, rV}},
	OP_CALL: {[]Role{rA}},
	OP_RET:  {nil},
	OP_OUT:  {[]Role{rV}},
	OP_IN:   {[]Role{rD}},
	OP_NOOP: {nil},
}

// mnemonicMap maps upper case mnemonics to opcodes.
var mnemonicMap = func() map[string]Op {
	mm := make(map[string]Op, OP_COUNT)
	for n := range OP_COUNT {
		mm[Op(n).String()] = Op(n)
	}
	return mm
}()

// LookupOp returns the opcode for an instruction word, if it is defined.
func LookupOp(word Word) (op Op, ok bool) {
	if word >= OP_COUNT {
		return
	}

	return Op(word), true
}

// LookupMnemonic returns the opcode for a mnemonic, ignoring case.
func LookupMnemonic(mnemonic string) (op Op, ok bool) {
	op, ok = mnemonicMap[strings.ToUpper(mnemonic)]
	return
}

// Valid returns true if the opcode is defined.
func (op Op) Valid() bool {
	return op < OP_COUNT
}

// Form returns the assembly form of the opcode.
func (op Op) Form() Form {
	if !op.Valid() {
		return Form{}
	}
	return opTable[op]
}

// Arity returns the number of operands the opcode takes.
func (op Op) Arity() int {
	return len(op.Form().Roles)
}

// Width returns the number of words an instruction with this opcode occupies.
func (op Op) Width() int {
	return op.Arity() + 1
}

// Code is a decoded instruction.
type Code struct {
	Op   Op
	Args []Word // Encoded operands, one per role.
}

// MakeCode creates an instruction, checking the operands against the opcode form.
func MakeCode(op Op, args ...Word) (code Code, err error) {
	if !op.Valid() {
		err = ErrIllegalOpcode
		return
	}

	form := op.Form()
	if len(args) != len(form.Roles) {
		err = ErrArityMismatch
		return
	}

	for n, arg := range args {
		if !arg.IsValid() {
			err = ErrInvalidOperand
			return
		}
		if form.Roles[n] == ROLE_DST && !arg.IsRegister() {
			err = ErrInvalidDestination
			return
		}
	}

	code = Code{Op: op, Args: args}

	return
}

// DecodeCode decodes the instruction at the start of words.
// Returns ErrIllegalOpcode for an unknown opcode, ErrInvalidOperand if words
// is too short or holds an operand outside the legal encodings.
func DecodeCode(words []Word) (code Code, err error) {
	if len(words) == 0 {
		err = ErrIllegalOpcode
		return
	}

	op, ok := LookupOp(words[0])
	if !ok {
		err = ErrIllegalOpcode
		return
	}

	arity := op.Arity()
	if len(words) < arity+1 {
		err = ErrInvalidOperand
		return
	}

	args := words[1 : arity+1]
	for _, arg := range args {
		if !arg.IsValid() {
			err = ErrInvalidOperand
			return
		}
	}

	code = Code{Op: op, Args: append([]Word(nil), args...)}

	return
}

// Width returns the number of words occupied by the instruction.
func (code Code) Width() int {
	return code.Op.Width()
}

// Words returns the binary encoding of the instruction.
func (code Code) Words() (words []Word) {
	words = make([]Word, 0, len(code.Args)+1)
	words = append(words, Word(code.Op))
	words = append(words, code.Args...)
	return
}

// FormatOperand renders an encoded operand for the given role.
func FormatOperand(role Role, arg Word) string {
	switch {
	case arg.IsRegister():
		return fmt.Sprintf("R%d", int(arg-REGISTER_BASE))
	case role == ROLE_ADDRESS && arg.IsLiteral():
		return fmt.Sprintf("@%d", int(arg))
	default:
		return fmt.Sprintf("%d", int(arg))
	}
}

// String returns the assembly language representation of the instruction.
func (code Code) String() string {
	var sb strings.Builder

	form := code.Op.Form()
	sb.WriteString(code.Op.String())
	for n, arg := range code.Args {
		role := ROLE_VALUE
		if n < len(form.Roles) {
			role = form.Roles[n]
		}
		sb.WriteByte(' ')
		sb.WriteString(FormatOperand(role, arg))
	}

	return sb.String()
}
