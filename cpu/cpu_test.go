package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/synacor/io"
)

// regOf returns the operand encoding of register n.
func regOf(n int) Word {
	return REGISTER_BASE + Word(n)
}

func newLoaded(t *testing.T, words ...Word) (cpu *Cpu) {
	cpu = NewCpu()
	assert.NoError(t, cpu.LoadProgram(0, words))
	cpu.Reset(0)
	return
}

func TestCpuExecute(t *testing.T) {
	table := [](struct {
		name     string
		program  []Word
		setup    func(cpu *Cpu)
		steps    int
		pc       Word
		register [REGISTER_COUNT]Word
		stack    []Word
	}){
		{"set_lit", []Word{1, regOf(0), 123}, nil, 1, 3,
			[8]Word{123}, nil},
		{"set_reg", []Word{1, regOf(0), regOf(1)},
			func(cpu *Cpu) { cpu.Register[1] = 77 }, 1, 3,
			[8]Word{77, 77}, nil},
		{"push_pop", []Word{2, 10, 2, regOf(1), 3, regOf(2), 3, regOf(3)},
			func(cpu *Cpu) { cpu.Register[1] = 20 }, 4, 8,
			[8]Word{0, 20, 20, 10}, nil},
		{"eq_true", []Word{4, regOf(0), 5, 5}, nil, 1, 4,
			[8]Word{1}, nil},
		{"eq_false", []Word{4, regOf(0), 5, 6}, nil, 1, 4,
			[8]Word{0}, nil},
		{"gt_true", []Word{5, regOf(0), 6, 5}, nil, 1, 4,
			[8]Word{1}, nil},
		{"gt_false", []Word{5, regOf(0), 5, 5}, nil, 1, 4,
			[8]Word{0}, nil},
		{"jmp", []Word{6, 100}, nil, 1, 100,
			[8]Word{}, nil},
		{"jmp_reg", []Word{6, regOf(2)},
			func(cpu *Cpu) { cpu.Register[2] = 200 }, 1, 200,
			[8]Word{0, 0, 200}, nil},
		{"jt_taken", []Word{7, 1, 50}, nil, 1, 50,
			[8]Word{}, nil},
		{"jt_not_taken", []Word{7, 0, 50}, nil, 1, 3,
			[8]Word{}, nil},
		{"jf_taken", []Word{8, 0, 50}, nil, 1, 50,
			[8]Word{}, nil},
		{"jf_not_taken", []Word{8, 7, 50}, nil, 1, 3,
			[8]Word{}, nil},
		{"add", []Word{9, regOf(0), 16, 17}, nil, 1, 4,
			[8]Word{33}, nil},
		{"add_wrap", []Word{9, regOf(0), 32758, 15}, nil, 1, 4,
			[8]Word{5}, nil},
		{"mult", []Word{10, regOf(0), 16, 10}, nil, 1, 4,
			[8]Word{160}, nil},
		{"mult_wrap", []Word{10, regOf(0), 32767, 2}, nil, 1, 4,
			[8]Word{32766}, nil},
		{"mod", []Word{11, regOf(0), 16, 5}, nil, 1, 4,
			[8]Word{1}, nil},
		{"and", []Word{12, regOf(0), 16, 17}, nil, 1, 4,
			[8]Word{16}, nil},
		{"or", []Word{13, regOf(0), 16, 17}, nil, 1, 4,
			[8]Word{17}, nil},
		{"not", []Word{14, regOf(0), 16}, nil, 1, 3,
			[8]Word{32751}, nil},
		{"not_zero", []Word{14, regOf(0), 0}, nil, 1, 3,
			[8]Word{32767}, nil},
		{"rmem", []Word{15, regOf(0), 3, 4242}, nil, 1, 3,
			[8]Word{4242}, nil},
		{"rmem_normalized", []Word{15, regOf(0), 3, 40000}, nil, 1, 3,
			[8]Word{40000 % MODULUS}, nil},
		{"wmem_rmem", []Word{16, 100, 9999, 15, regOf(1), 100}, nil, 2, 6,
			[8]Word{0, 9999}, nil},
		{"call", []Word{17, 30}, nil, 1, 30,
			[8]Word{}, []Word{2}},
		{"call_reg", []Word{17, regOf(7)},
			func(cpu *Cpu) { cpu.Register[7] = 40 }, 1, 40,
			[8]Word{7: 40}, []Word{2}},
		{"noop", []Word{21, 21}, nil, 2, 2,
			[8]Word{}, nil},
	}

	for _, entry := range table {
		assert := assert.New(t)

		cpu := newLoaded(t, entry.program...)
		if entry.setup != nil {
			entry.setup(cpu)
		}

		for range entry.steps {
			state, err := cpu.Step()
			assert.NoError(err, entry.name)
			assert.Equal(STATE_RUNNING, state, entry.name)
		}

		assert.Equal(entry.pc, cpu.Pc, entry.name)
		assert.Equal(entry.register, cpu.Register, entry.name)
		assert.Equal(len(entry.stack), cpu.Stack.Len(), entry.name)
		if len(entry.stack) > 0 {
			assert.Equal(entry.stack, cpu.Stack.Data, entry.name)
		}
	}
}

func TestCpuFactorial(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t,
		1, regOf(0), 5, // 0: SET R0 5
		1, regOf(1), 1, // 3: SET R1 1
		10, regOf(1), regOf(1), regOf(0), // 6: MULT R1 R1 R0
		9, regOf(0), regOf(0), 32767, // 10: ADD R0 R0 32767
		7, regOf(0), 6, // 14: JT R0 @6
		0, // 17: HALT
	)

	state, err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Equal(Word(120), cpu.Register[1])
	assert.Equal(Word(0), cpu.Register[0])
	assert.Equal(Word(17), cpu.Pc)
	assert.Equal(2+5*3+1, cpu.Ticks)
}

func TestCpuCallReturn(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t,
		17, 10, // 0: CALL @10
		19, 'B', // 2: OUT 'B'
		0,             // 4: HALT
		0, 0, 0, 0, 0, // 5: padding
		19, 'A', // 10: OUT 'A'
		18, // 12: RET
	)
	out := &io.Queue{}
	cpu.Output = out

	state, err := cpu.Step()
	assert.NoError(err)
	assert.Equal(STATE_RUNNING, state)
	assert.Equal(Word(10), cpu.Pc)
	top, ok := cpu.Stack.Peek()
	assert.True(ok)
	assert.Equal(Word(2), top)

	state, err = cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Equal("AB", out.String())
	assert.True(cpu.Stack.Empty())
}

func TestCpuReturnEmptyHalts(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 18)

	state, err := cpu.Step()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Nil(cpu.Fault)

	// Halted stays halted.
	state, err = cpu.Step()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Equal(Word(0), cpu.Pc)
}

func TestCpuStackDiscipline(t *testing.T) {
	assert := assert.New(t)

	values := []Word{1, 2, 3, 32767, 0, 42}
	var program []Word
	for _, v := range values {
		program = append(program, Word(OP_PUSH), v)
	}
	for n := range values {
		program = append(program, Word(OP_POP), regOf(n))
	}
	program = append(program, Word(OP_HALT))

	cpu := newLoaded(t, program...)
	state, err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)

	for n := range values {
		assert.Equal(values[len(values)-1-n], cpu.Register[n])
	}
	assert.True(cpu.Stack.Empty())
}

func TestCpuFaults(t *testing.T) {
	table := [](struct {
		name    string
		program []Word
		setup   func(cpu *Cpu)
		err     error
		pc      Word
		operand int
		word    Word
	}){
		{"illegal_opcode", []Word{21, 22}, nil, ErrIllegalOpcode, 1, -1, 0},
		{"invalid_operand", []Word{19, 32776}, nil, ErrInvalidOperand, 0, 0, 32776},
		{"invalid_operand_third", []Word{9, regOf(0), 1, 40000}, nil, ErrInvalidOperand, 0, 2, 40000},
		{"invalid_destination", []Word{1, 5, 6}, nil, ErrInvalidDestination, 0, 0, 5},
		{"stack_underflow", []Word{3, regOf(0)}, nil, ErrStackUnderflow, 0, -1, 0},
		{"division_by_zero", []Word{11, regOf(0), 5, 0}, nil, ErrDivisionByZero, 0, 2, 0},
		{"division_by_zero_reg", []Word{11, regOf(0), 5, regOf(3)}, nil, ErrDivisionByZero, 0, 2, regOf(3)},
		{"end_of_input", []Word{20, regOf(0)},
			func(cpu *Cpu) { cpu.Input = &io.Queue{Closed: true} },
			ErrUnexpectedEndOfInput, 0, 0, regOf(0)},
		{"no_input", []Word{20, regOf(0)}, nil, ErrUnexpectedEndOfInput, 0, 0, regOf(0)},
		{"truncated", []Word{}, func(cpu *Cpu) {
			cpu.Memory[WORD_MAX-1] = Word(OP_ADD)
			cpu.Pc = WORD_MAX - 1
		}, ErrInvalidOperand, WORD_MAX - 1, 1, 0},
		{"address_register_range", []Word{15, regOf(0), regOf(1)},
			func(cpu *Cpu) { cpu.Register[1] = 40000 },
			ErrInvalidOperand, 0, 1, regOf(1)},
	}

	for _, entry := range table {
		assert := assert.New(t)

		cpu := newLoaded(t, entry.program...)
		if entry.setup != nil {
			entry.setup(cpu)
		}

		state, err := cpu.Run()
		assert.Equal(STATE_ERROR, state, entry.name)
		assert.ErrorIs(err, entry.err, entry.name)

		var ft *Fault
		if assert.True(errors.As(err, &ft), entry.name) {
			assert.Equal(entry.pc, ft.Pc, entry.name)
			assert.Equal(entry.operand, ft.Operand, entry.name)
			assert.Equal(entry.word, ft.Word, entry.name)
		}
		assert.Equal(entry.pc, cpu.Pc, entry.name)

		// No internal retry: the fault is returned again.
		state2, err2 := cpu.Step()
		assert.Equal(STATE_ERROR, state2, entry.name)
		assert.Equal(err, err2, entry.name)
	}
}

func TestCpuFaultString(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 11, regOf(0), 5, 0)
	_, err := cpu.Run()
	assert.Error(err)
	assert.Contains(err.Error(), "MOD")
	assert.Contains(err.Error(), "division by zero")
}

func TestCpuInputAwait(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t,
		20, regOf(0), // 0: IN R0
		19, regOf(0), // 2: OUT R0
		0, // 4: HALT
	)
	queue := &io.Queue{}
	cpu.Input = queue
	cpu.Output = queue

	state, err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_AWAITING, state)
	assert.Equal(Word(0), cpu.Pc)
	assert.Equal(0, cpu.Ticks)

	// Still waiting.
	state, err = cpu.Step()
	assert.NoError(err)
	assert.Equal(STATE_AWAITING, state)

	queue.Feed("x")
	state, err = cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Equal(Word('x'), cpu.Register[0])
	assert.Equal("x", queue.String())
}

func TestCpuInputTape(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t,
		20, regOf(1), // 0: IN R1
		20, regOf(2), // 2: IN R2
		0, // 4: HALT
	)
	cpu.Input = &io.Tape{Input: strings.NewReader("hi")}

	state, err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Equal(Word('h'), cpu.Register[1])
	assert.Equal(Word('i'), cpu.Register[2])
}

func TestCpuSelfModify(t *testing.T) {
	assert := assert.New(t)

	// Rewrite the NOOP at 3 into a HALT before reaching it.
	cpu := newLoaded(t,
		16, 3, 0, // 0: WMEM @3 0
		21,      // 3: NOOP
		19, 'X', // 4: OUT 'X'
		0,
	)
	out := &io.Queue{}
	cpu.Output = out

	state, err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Equal(Word(3), cpu.Pc)
	assert.Equal("", out.String())
}

func TestCpuOutputFull(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 19, 'a', 19, 'b', 0)
	cpu.Output = &io.Queue{Limit: 1}

	state, err := cpu.Run()
	assert.Equal(STATE_ERROR, state)
	assert.ErrorIs(err, io.ErrChannelFull)
	assert.Equal(Word(2), cpu.Pc)
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 2, 5, 1, regOf(3), 9, 3, regOf(0), 3, regOf(0))
	_, err := cpu.Run()
	assert.Error(err)

	cpu.Reset(100)
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.Nil(cpu.Fault)
	assert.Equal(Word(100), cpu.Pc)
	assert.True(cpu.Stack.Empty())
	assert.Equal([REGISTER_COUNT]Word{}, cpu.Register)
	assert.Equal(0, cpu.Ticks)
	// Memory is kept.
	assert.Equal(Word(2), cpu.Memory[0])
}

func TestCpuLoadProgram(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	err := cpu.LoadProgram(1000, []Word{9, 32768, 32769, 4, 19, 32768})
	assert.NoError(err)
	assert.Equal(Word(9), cpu.Memory[1000])
	assert.Equal(Word(32768), cpu.Memory[1005])

	err = cpu.LoadProgram(WORD_MAX, []Word{1, 2})
	assert.ErrorIs(err, ErrAddressInvalid)

	cpu.Reset(1000)
	cpu.Register[1] = 'A' - 4
	out := &io.Queue{}
	cpu.Output = out
	_, err = cpu.Step()
	assert.NoError(err)
	_, err = cpu.Step()
	assert.NoError(err)
	assert.Equal("A", out.String())
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu := newLoaded(t, 2, 7)
	_, err := cpu.Step()
	assert.NoError(err)

	text := cpu.String()
	assert.Contains(text, "   pc: 00002")
	assert.Contains(text, "state: running")
	assert.Contains(text, "stack: 00007 (1 deep)")
}

func TestCpuDefines(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	defines := map[string]string{}
	for k, v := range cpu.Defines() {
		defines[k] = v
	}
	assert.Equal("32768", defines["MEMORY_SIZE"])
	assert.Equal("32767", defines["WORD_MAX"])
	assert.Equal("8", defines["REGISTER_COUNT"])
}

func TestCpuNoChannels(t *testing.T) {
	assert := assert.New(t)

	// Without an output sink, OUT discards.
	cpu := newLoaded(t, 19, 'x', 0)
	state, err := cpu.Run()
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Equal(2, cpu.Ticks)

	// Without an input source, IN is at end of input.
	cpu = newLoaded(t, 20, regOf(0), 0)
	state, err = cpu.Run()
	assert.Equal(STATE_ERROR, state)
	assert.ErrorIs(err, ErrUnexpectedEndOfInput)
}
