// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/ezrec/synacor/cpu"
	"github.com/ezrec/synacor/emulator"
	"github.com/ezrec/synacor/io"
)

func main() {
	var compile string
	var binary string
	var entry uint
	var save bool
	var disasm bool
	var input string
	var output string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&binary, "b", "", ".bin image to load")
	flag.UintVar(&entry, "e", 0, "Entry address of a .bin image")
	flag.BoolVar(&save, "s", false, "Save image to the -o file, do not execute")
	flag.BoolVar(&disasm, "d", false, "Disassemble image to the -o file, do not execute")
	flag.StringVar(&input, "i", "-", "Tape input")
	flag.StringVar(&output, "o", "-", "Tape output, or image/listing output with -s/-d")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) != 0 && len(binary) != 0 {
		log.Fatalf("%v: -c and -b are exclusive", os.Args[0])
	}

	if entry > uint(cpu.WORD_MAX) {
		log.Fatalf("%v: -e %v: out of range", os.Args[0], entry)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		err = emu.Assemble(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	if len(binary) != 0 {
		words, err := io.LoadImageFile(binary)
		if err != nil {
			log.Fatal(err)
		}
		emu.LoadImage(words, cpu.Word(entry))
	}

	ouf := os.Stdout
	if output != "-" {
		var err error
		ouf, err = os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
	}

	switch {
	case save:
		err := io.WriteImage(ouf, emu.Image())
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	case disasm:
		err := cpu.WriteListing(ouf, emu.Program.Binary(), emu.Program.Entry)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	if input == "-" {
		emu.Tape.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}
	emu.Tape.Output = ouf

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	err = emu.Run(ctx)
	if err != nil {
		if verbose {
			log.Printf("\n%v", emu.Cpu.String())
		}
		log.Fatal(err)
	}
}
