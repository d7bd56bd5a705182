// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs assembled programs or binary images on the CPU,
// attached to a byte stream tape for character I/O.
package emulator

import (
	"context"
	"fmt"
	goio "io"
	"iter"
	"maps"

	"github.com/ezrec/synacor/cpu"
	"github.com/ezrec/synacor/internal"
	"github.com/ezrec/synacor/io"
)

const (
	TICK_LIMIT   = 0    // Default tick limit for Run, 0 is unlimited.
	CANCEL_CHECK = 1024 // Ticks between context checks in Run.
)

var _emulator_defines = map[string]string{
	"TICK_LIMIT": fmt.Sprintf("%v", TICK_LIMIT),
}

// Emulator state. CPU + program listing + tape.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program listing.

	Tape      io.Tape // Tape IO channel.
	TickLimit int     // Run stops after this many ticks; 0 is unlimited.
}

// NewEmulator creates a new emulator, with the CPU attached to the tape.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:       cpu.NewCpu(),
		Program:   &cpu.Program{},
		TickLimit: TICK_LIMIT,
	}

	emu.Cpu.Input = &emu.Tape
	emu.Cpu.Output = &emu.Tape

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Assemble compiles source into the program to run, with all defines
// available to $(...) expressions.
func (emu *Emulator) Assemble(source goio.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for equ, value := range emu.Defines() {
		asm.Predefine(equ, value)
	}

	prog, err := asm.Parse(source)
	if err != nil {
		return
	}

	emu.Program = prog

	return
}

// LoadImage sets a binary image, loaded at address 0, as the program to run.
func (emu *Emulator) LoadImage(words []uint16, entry cpu.Word) {
	codes := make([]cpu.Word, len(words))
	for n, word := range words {
		codes[n] = cpu.Word(word)
	}

	emu.Program = &cpu.Program{
		Entry:   entry,
		Opcodes: []cpu.Opcode{{Address: 0, Codes: codes}},
	}
}

// Image returns the program as a binary image.
func (emu *Emulator) Image() (words []uint16) {
	for _, word := range emu.Program.Binary() {
		words = append(words, uint16(word))
	}
	return
}

// Reset clears memory, loads the program, and sets the CPU to its entry address.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.ClearMemory()
	err = emu.Cpu.LoadProgram(0, emu.Program.Binary())
	if err != nil {
		return
	}

	emu.Cpu.Reset(emu.Program.Entry)

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns current program counter.
func (emu *Emulator) Pc() int {
	return int(emu.Cpu.Pc)
}

// LineNo returns the source line number for the executing opcode, or 0 if
// there is none.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
// done is set once the program has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	state, err := emu.Cpu.Step()
	if err != nil {
		return
	}

	done = state == cpu.STATE_HALTED

	return
}

// Run ticks the emulator until the program halts, faults, awaits input, or
// ctx is cancelled.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for ticks := 0; ; ticks++ {
		if ticks%CANCEL_CHECK == 0 {
			err = ctx.Err()
			if err != nil {
				return
			}
		}

		if emu.TickLimit > 0 && emu.Cpu.Ticks >= emu.TickLimit {
			err = ErrTickLimit
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}

		if emu.Cpu.State == cpu.STATE_AWAITING {
			err = ErrAwaitingInput
			return
		}
	}
}
