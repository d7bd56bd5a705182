package io

import (
	"io"
)

// Queue is an in-memory channel. Input never blocks: an empty, open queue
// reports ErrInputPending so the machine can suspend until the embedder
// feeds it.
type Queue struct {
	FromDevice []uint16 // Codes waiting to be received.
	ToDevice   []uint16 // Codes sent so far.
	Closed     bool     // Set once no more input will arrive.
	Limit      int      // Maximum sent codes kept; 0 is unlimited.
}

var _ Channel = (*Queue)(nil)

// Rewind drops all pending and sent codes and reopens the queue.
func (qc *Queue) Rewind() {
	qc.FromDevice = nil
	qc.ToDevice = nil
	qc.Closed = false
}

// Feed appends the characters of text to the pending input.
func (qc *Queue) Feed(text string) {
	for _, b := range []byte(text) {
		qc.FromDevice = append(qc.FromDevice, uint16(b))
	}
}

// Close marks the end of input.
func (qc *Queue) Close() {
	qc.Closed = true
}

func (qc *Queue) Receive() (code uint16, err error) {
	if len(qc.FromDevice) == 0 {
		if qc.Closed {
			err = io.EOF
		} else {
			err = ErrInputPending
		}
		return
	}

	code = qc.FromDevice[0]
	qc.FromDevice = qc.FromDevice[1:]

	return
}

func (qc *Queue) Send(code uint16) (err error) {
	if qc.Limit > 0 && len(qc.ToDevice) >= qc.Limit {
		err = ErrChannelFull
		return
	}

	qc.ToDevice = append(qc.ToDevice, code)

	return
}

// String returns the sent codes as text.
func (qc *Queue) String() string {
	out := make([]byte, len(qc.ToDevice))
	for n, code := range qc.ToDevice {
		out[n] = byte(code)
	}
	return string(out)
}
