// Package io provides the character and image collaborators of the virtual
// machine: input sources, output sinks, and the binary image format.
package io

// Input is a source of character codes.
type Input interface {
	// Receive returns the next character code.
	// It returns io.EOF at end of stream, and ErrInputPending when no
	// character is available yet but more may arrive.
	Receive() (code uint16, err error)
}

// Output is a sink of character codes.
type Output interface {
	// Send emits a single character code.
	Send(code uint16) error
}

// Channel is a bidirectional character device.
type Channel interface {
	Input
	Output
	// Rewind resets the channel to its initial state.
	Rewind()
}
