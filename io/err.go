package io

import (
	"errors"

	"github.com/ezrec/synacor/translate"
)

var f = translate.From

var (
	// Channel errors
	ErrInputPending = errors.New(f("input pending"))
	ErrChannelFull  = errors.New(f("channel full"))
	ErrImageOdd     = errors.New(f("image has a trailing odd byte"))
	ErrImageLarge   = errors.New(f("image larger than memory"))
)
