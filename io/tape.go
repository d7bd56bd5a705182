package io

import (
	"io"
)

// Tape provides sequential character I/O over byte streams.
// Each input byte is one character code; each output code is written as
// one byte, so codes above 255 are truncated.
type Tape struct {
	Input  io.Reader
	Output io.Writer
}

var _ Channel = (*Tape)(nil)

// Rewind is not possible on a tape.
func (tc *Tape) Rewind() {
}

// Receive reads one byte from the input stream, blocking until it is
// available.
func (tc *Tape) Receive() (code uint16, err error) {
	if tc.Input == nil {
		err = io.EOF
		return
	}

	var one [1]byte
	for {
		var n int
		n, err = tc.Input.Read(one[:])
		if n == 1 {
			return uint16(one[0]), nil
		}
		if err != nil {
			return
		}
	}
}

// Send writes a character code to the output stream.
func (tc *Tape) Send(code uint16) (err error) {
	if tc.Output == nil {
		return
	}

	_, err = tc.Output.Write([]byte{byte(code)})

	return
}
