package cpu

import (
	"errors"
	"fmt"
	goio "io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/synacor/io"
)

// State is the execution state of the CPU.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING  = State(0) // running
	STATE_AWAITING = State(1) // awaiting
	STATE_HALTED   = State(2) // halted
	STATE_ERROR    = State(3) // error
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":    fmt.Sprintf("%d", MEMORY_SIZE),
	"MODULUS":        fmt.Sprintf("%d", MODULUS),
	"WORD_MAX":       fmt.Sprintf("%d", WORD_MAX),
	"REGISTER_BASE":  fmt.Sprintf("%d", REGISTER_BASE),
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
}

// Memory is the shared code and data address space.
type Memory [MEMORY_SIZE]Word

// Cpu is the simulation context of the virtual machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Memory   Memory               // Memory, code and data.
	Register [REGISTER_COUNT]Word // Register bank.
	Stack    Stack                // Stack simulation.
	Pc       Word                 // Current program counter.
	State    State                // Execution state.
	Fault    *Fault               // Fault that stopped the CPU, if State is STATE_ERROR.

	Ticks int // Instructions executed since reset.

	Input  io.Input  // Source for IN; nil is an empty, closed source.
	Output io.Output // Sink for OUT; nil discards output.
}

// NewCpu creates a new CPU with zeroed memory.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 5s: %05d\n", "pc", int(cpu.Pc))
	text += fmt.Sprintf("% 5s: %v\n", "state", cpu.State)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("% 5s: %05d\n", fmt.Sprintf("r%d", n), int(val))
	}
	strval := "-----"
	val, ok := cpu.Stack.Peek()
	if ok {
		strval = fmt.Sprintf("%05d (%d deep)", int(val), cpu.Stack.Len())
	}
	text += fmt.Sprintf("% 5s: %v\n", "stack", strval)

	return
}

// Reset the CPU state.
// - Clears the registers and stack.
// - Zeros statistics counters.
// - Sets the program counter to entry.
//
// Memory is left untouched.
func (cpu *Cpu) Reset(entry Word) {
	if cpu.Verbose {
		log.Printf("cpu: reset, entry %05d", int(entry))
	}

	clear(cpu.Register[:])
	cpu.Stack.Reset()
	cpu.Ticks = 0
	cpu.Pc = entry
	cpu.State = STATE_RUNNING
	cpu.Fault = nil
}

// ClearMemory zeros all of memory.
func (cpu *Cpu) ClearMemory() {
	clear(cpu.Memory[:])
}

// LoadProgram copies words into memory starting at offset.
func (cpu *Cpu) LoadProgram(offset Word, words []Word) (err error) {
	if int(offset)+len(words) > MEMORY_SIZE {
		err = errors.Join(ErrAddressInvalid, fmt.Errorf("%d words at %d", len(words), int(offset)))
		return
	}

	copy(cpu.Memory[offset:], words)

	return
}

// fault creates a fault at the current program counter.
func (cpu *Cpu) fault(err error, operand int) *Fault {
	ft := &Fault{Err: err, Pc: cpu.Pc, Operand: operand}
	if cpu.Pc <= WORD_MAX {
		ft.Opcode = cpu.Memory[cpu.Pc]
	}
	if operand >= 0 {
		addr := int(cpu.Pc) + 1 + operand
		if addr < MEMORY_SIZE {
			ft.Word = cpu.Memory[addr]
		}
	}
	return ft
}

// FetchCode decodes the instruction at the program counter.
func (cpu *Cpu) FetchCode() (code Code, err error) {
	if cpu.Pc > WORD_MAX {
		err = cpu.fault(ErrInvalidOperand, -1)
		return
	}

	op, ok := LookupOp(cpu.Memory[cpu.Pc])
	if !ok {
		err = cpu.fault(ErrIllegalOpcode, -1)
		return
	}

	arity := op.Arity()
	args := make([]Word, arity)
	for n := range arity {
		addr := int(cpu.Pc) + 1 + n
		if addr >= MEMORY_SIZE {
			err = cpu.fault(ErrInvalidOperand, n)
			return
		}
		arg := cpu.Memory[addr]
		if !arg.IsValid() {
			err = cpu.fault(ErrInvalidOperand, n)
			return
		}
		args[n] = arg
	}

	code = Code{Op: op, Args: args}

	return
}

// Step executes a single instruction.
// A halted CPU stays halted; a faulted CPU returns its fault again.
func (cpu *Cpu) Step() (state State, err error) {
	switch cpu.State {
	case STATE_HALTED:
		return cpu.State, nil
	case STATE_ERROR:
		return cpu.State, cpu.Fault
	}

	cpu.State = STATE_RUNNING

	code, err := cpu.FetchCode()
	if err == nil {
		err = cpu.Execute(code)
	}

	if err != nil {
		var ft *Fault
		if !errors.As(err, &ft) {
			ft = cpu.fault(err, -1)
		}
		if cpu.Verbose {
			log.Printf("cpu: %v", ft)
		}
		cpu.Fault = ft
		cpu.State = STATE_ERROR
		err = ft
	}

	state = cpu.State

	return
}

// Run steps the CPU until it halts, faults, or awaits input.
func (cpu *Cpu) Run() (state State, err error) {
	for {
		state, err = cpu.Step()
		if err != nil || state != STATE_RUNNING {
			return
		}
	}
}

// Execute executes a single decoded instruction located at the program counter.
func (cpu *Cpu) Execute(code Code) (err error) {
	if cpu.Verbose {
		log.Printf("%05d: %v", int(cpu.Pc), code)
	}

	form := code.Op.Form()
	if !code.Op.Valid() {
		return cpu.fault(ErrIllegalOpcode, -1)
	}
	if len(code.Args) != len(form.Roles) {
		return cpu.fault(ErrInvalidOperand, len(code.Args))
	}

	// Resolve operands by role.
	var value [3]Word
	var reg int
	for n, role := range form.Roles {
		arg := code.Args[n]
		if role == ROLE_DST {
			var ok bool
			reg, ok = arg.Register()
			if !ok {
				return cpu.fault(ErrInvalidDestination, n)
			}
			continue
		}
		value[n], err = Resolve(arg, &cpu.Register)
		if err != nil {
			return cpu.fault(ErrInvalidOperand, n)
		}
		if role == ROLE_ADDRESS && value[n] > WORD_MAX {
			return cpu.fault(ErrInvalidOperand, n)
		}
	}

	set := func(result uint32) {
		cpu.Register[reg] = Normalize(result)
	}
	flag := func(cond bool) uint32 {
		if cond {
			return 1
		}
		return 0
	}

	next_pc := uint32(cpu.Pc) + uint32(code.Width())

	switch code.Op {
	case OP_HALT:
		cpu.State = STATE_HALTED
		next_pc = uint32(cpu.Pc)
	case OP_SET:
		set(uint32(value[1]))
	case OP_PUSH:
		cpu.Stack.Push(Normalize(uint32(value[0])))
	case OP_POP:
		top, ok := cpu.Stack.Pop()
		if !ok {
			return cpu.fault(ErrStackUnderflow, -1)
		}
		set(uint32(top))
	case OP_EQ:
		set(flag(value[1] == value[2]))
	case OP_GT:
		set(flag(value[1] > value[2]))
	case OP_JMP:
		next_pc = uint32(value[0])
	case OP_JT:
		if value[0] != 0 {
			next_pc = uint32(value[1])
		}
	case OP_JF:
		if value[0] == 0 {
			next_pc = uint32(value[1])
		}
	case OP_ADD:
		set(uint32(value[1]) + uint32(value[2]))
	case OP_MULT:
		set(uint32(value[1]) * uint32(value[2]))
	case OP_MOD:
		if value[2] == 0 {
			return cpu.fault(ErrDivisionByZero, 2)
		}
		set(uint32(value[1]) % uint32(value[2]))
	case OP_AND:
		set(uint32(value[1]) & uint32(value[2]))
	case OP_OR:
		set(uint32(value[1]) | uint32(value[2]))
	case OP_NOT:
		set(^uint32(value[1]) & uint32(WORD_MAX))
	case OP_RMEM:
		set(uint32(cpu.Memory[value[1]]))
	case OP_WMEM:
		cpu.Memory[value[0]] = Normalize(uint32(value[1]))
	case OP_CALL:
		cpu.Stack.Push(Normalize(next_pc))
		next_pc = uint32(value[0])
	case OP_RET:
		top, ok := cpu.Stack.Pop()
		if !ok {
			// Returning from the outermost frame ends the program.
			cpu.State = STATE_HALTED
			next_pc = uint32(cpu.Pc)
			break
		}
		next_pc = uint32(top)
	case OP_OUT:
		if cpu.Output != nil {
			err = cpu.Output.Send(uint16(value[0]))
			if err != nil {
				return cpu.fault(err, 0)
			}
		}
	case OP_IN:
		if cpu.Input == nil {
			return cpu.fault(ErrUnexpectedEndOfInput, 0)
		}
		var recv uint16
		recv, err = cpu.Input.Receive()
		switch {
		case err == nil:
			set(uint32(recv))
		case errors.Is(err, io.ErrInputPending):
			// Don't advance to next Pc.
			cpu.State = STATE_AWAITING
			return nil
		case errors.Is(err, goio.EOF):
			return cpu.fault(ErrUnexpectedEndOfInput, 0)
		default:
			return cpu.fault(err, 0)
		}
	case OP_NOOP:
		// pass
	}

	cpu.Pc = Normalize(next_pc)
	cpu.Ticks += 1

	return nil
}
