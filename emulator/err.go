package emulator

import (
	"errors"

	"github.com/ezrec/synacor/translate"
)

var f = translate.From

var (
	ErrAwaitingInput = errors.New(f("awaiting input"))
	ErrTickLimit     = errors.New(f("tick limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return err.Err.Error()
	}
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
