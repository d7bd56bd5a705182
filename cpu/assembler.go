// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates, usable in $(...) expressions.
var sysEquate = func() map[string]string {
	equ := map[string]string{
		"LINENO": "0",
	}
	maps.Copy(equ, _cpu_defines)
	return equ
}()

var (
	reCharacter  = regexp.MustCompile(`'(\\.|[^'\\])'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reRegister   = regexp.MustCompile(`^[Rr][0-9]+$`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// Assembler translates assembly source into a Program.
//
// Each statement names the address it is written at:
//
//	ADDRESS[-LABEL]: MNEMONIC OPERAND...
//	ADDRESS[-LABEL]: DATA WORD...
//	$START ADDRESS
//
// Labels are decoration only, and are never resolved. Operands are decimal
// literals (0-32767), '@' prefixed address literals, registers R0-R7,
// character literals ('A', '\n'), or $(...) expressions. Text after a ';'
// outside a character literal is a comment; blank lines are ignored.
//
// Expressions are evaluated before character literals are replaced, so an
// expression sees 'A' as a Starlark string: $(ord('A')) is 65.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.
	Entry   Word     // Entry address set by $START.

	predefine map[string]string // Predefines
	Equate    map[string]string // Map of expression constants.

	startLine int          // Line of the $START directive.
	owner     map[Word]int // Map of written addresses to line numbers.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple decimal word, within [0, limit].
func (asm *Assembler) valueOf(word string, limit int) (value int, err error) {
	if len(word) == 0 || word[0] < '0' || word[0] > '9' {
		err = ErrParseNumber(word)
		return
	}

	v64, err := strconv.ParseInt(word, 10, 32)
	if err != nil || v64 < 0 || v64 > int64(limit) {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, perr := strconv.ParseInt(str, 0, 64)
		if perr != nil {
			// Ignore non-integer equates.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// characterOf returns the code of a quoted character literal.
func characterOf(quoted string) (code int, err error) {
	str := quoted[1 : len(quoted)-1]
	if str[0] != '\\' {
		return int(str[0]), nil
	}

	switch str[1:] {
	case "\\":
		code = '\\'
	case "'":
		code = '\''
	case "n":
		code = '\n'
	case "r":
		code = '\r'
	case "t":
		code = '\t'
	case "e":
		code = '\033'
	case "0":
		code = 0
	default:
		err = ErrParseCharacter(quoted)
	}

	return
}

// cutComment strips the text after the first ';' that is not inside a
// character literal.
func cutComment(text string) string {
	literals := reCharacter.FindAllStringIndex(text, -1)
	for n := 0; n < len(text); n++ {
		if len(literals) > 0 && n == literals[0][0] {
			n = literals[0][1] - 1
			literals = literals[1:]
			continue
		}
		if text[n] == ';' {
			return text[:n]
		}
	}

	return text
}

// expandLine strips comments, and replaces $(...) expressions and then
// character literals by their decimal values.
func (asm *Assembler) expandLine(text string, lineno int) (line string, err error) {
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	line = strings.TrimSpace(cutComment(text))

	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		err = errors.Join(ErrSyntax, err)
		return
	}

	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		code, _err := characterOf(word)
		if _err != nil {
			err = _err
			return word
		}
		return fmt.Sprintf("%d", code)
	})
	if err != nil {
		err = errors.Join(ErrSyntax, err)
		return
	}

	return
}

// Parse parses an input stream into a Program.
// Translation stops at the first error, and no Program is returned.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrLine{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Opcode = asm.Opcode[:0]
	asm.Entry = 0
	asm.startLine = 0
	asm.owner = make(map[Word]int)
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, asm.predefine)

	for scanner.Scan() {
		line = scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, line)
		}

		var text string
		text, err = asm.expandLine(line, lineno)
		if err != nil {
			return
		}

		if len(text) == 0 {
			continue
		}

		err = asm.parseStatement(text, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		lineno += 1
		line = ""
		err = errors.Join(ErrSyntax, err)
		return
	}

	prog = &Program{
		Entry:   asm.Entry,
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// parseStatement evaluates one expanded, non-empty line.
func (asm *Assembler) parseStatement(text string, lineno int) (err error) {
	words := strings.Fields(text)

	// $START ADDRESS
	if strings.EqualFold(words[0], "$START") {
		if len(words) != 2 {
			err = errors.Join(ErrSyntax, ErrStartSyntax)
			return
		}
		if asm.startLine != 0 {
			err = errors.Join(ErrSyntax, ErrStartDuplicate)
			return
		}
		var entry int
		entry, err = asm.valueOf(strings.TrimPrefix(words[1], "@"), int(WORD_MAX))
		if err != nil {
			err = errors.Join(ErrSyntax, err)
			return
		}
		asm.Entry = Word(entry)
		asm.startLine = lineno
		return
	}

	head, body, ok := strings.Cut(text, ":")
	if !ok {
		err = errors.Join(ErrSyntax, ErrAddressMissing)
		return
	}

	// ADDRESS[-LABEL]
	addrText, label, labeled := strings.Cut(strings.TrimSpace(head), "-")
	addrText = strings.TrimSpace(addrText)
	if len(addrText) == 0 {
		err = errors.Join(ErrSyntax, ErrAddressMissing)
		return
	}
	if labeled && !reLabel.MatchString(strings.TrimSpace(label)) {
		err = errors.Join(ErrSyntax, ErrLabelInvalid)
		return
	}
	address, err := asm.valueOf(addrText, int(WORD_MAX))
	if err != nil {
		err = errors.Join(ErrSyntax, ErrAddressInvalid, err)
		return
	}

	words = strings.Fields(body)
	if len(words) == 0 {
		err = errors.Join(ErrSyntax, ErrOpcodeMissing)
		return
	}

	var codes []Word
	if strings.EqualFold(words[0], "DATA") {
		codes, err = asm.parseData(words[1:])
	} else {
		var code Code
		code, err = asm.parseCode(words[0], words[1:])
		codes = code.Words()
	}
	if err != nil {
		return
	}

	err = asm.place(Word(address), codes, lineno)
	if err != nil {
		return
	}

	asm.Opcode = append(asm.Opcode, Opcode{
		LineNo:  lineno,
		Address: Word(address),
		Words:   words,
		Codes:   codes,
	})

	return
}

// parseData encodes the raw words of a DATA statement.
func (asm *Assembler) parseData(words []string) (codes []Word, err error) {
	if len(words) == 0 {
		err = errors.Join(ErrSyntax, ErrDataMissing)
		return
	}

	for _, word := range words {
		var value int
		value, err = asm.valueOf(strings.TrimPrefix(word, "@"), 0xffff)
		if err != nil {
			err = errors.Join(ErrSyntax, err)
			return
		}
		codes = append(codes, Word(value))
	}

	return
}

// parseCode encodes an instruction, checking arity and operand roles.
func (asm *Assembler) parseCode(mnemonic string, words []string) (code Code, err error) {
	op, ok := LookupMnemonic(mnemonic)
	if !ok {
		err = errors.Join(ErrSyntax, ErrOpcodeInvalid)
		return
	}

	form := op.Form()
	if len(words) != len(form.Roles) {
		err = errors.Join(ErrArityMismatch,
			errors.New(f("%v takes %d operands, %d given", op, len(form.Roles), len(words))))
		return
	}

	args := make([]Word, len(words))
	for n, word := range words {
		args[n], err = asm.operandOf(word)
		if err != nil {
			err = errors.Join(ErrSyntax, err)
			return
		}
		if form.Roles[n] == ROLE_DST && !args[n].IsRegister() {
			err = errors.Join(ErrInvalidDestination, ErrParseOperand(word))
			return
		}
	}

	code, err = MakeCode(op, args...)

	return
}

// operandOf encodes a single operand word.
func (asm *Assembler) operandOf(word string) (arg Word, err error) {
	if reRegister.MatchString(word) {
		reg, aerr := strconv.Atoi(word[1:])
		if aerr != nil {
			reg = -1
		}
		return EncodeRegister(reg)
	}

	text, _ := strings.CutPrefix(word, "@")
	if len(text) == 0 || text[0] < '0' || text[0] > '9' {
		err = ErrParseOperand(word)
		return
	}

	value, err := asm.valueOf(text, int(WORD_MAX))
	if err != nil {
		return
	}

	return EncodeLiteral(value)
}

// place claims the addresses written by a statement.
func (asm *Assembler) place(address Word, codes []Word, lineno int) (err error) {
	if int(address)+len(codes) > MEMORY_SIZE {
		err = errors.Join(ErrLayoutConflict, ErrAddressInvalid)
		return
	}

	for n := range codes {
		addr := address + Word(n)
		prior, used := asm.owner[addr]
		if used {
			err = errors.Join(ErrLayoutConflict, ErrAddressUsed{Address: addr, LineNo: prior})
			return
		}
	}

	for n := range codes {
		asm.owner[address+Word(n)] = lineno
	}

	return
}
