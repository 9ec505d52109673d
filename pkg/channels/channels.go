// Package channels holds small helpers for sending on channels from
// contexts that must never block, such as real-time audio callbacks.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed = errors.New("channel closed")
	ErrChannelFull   = errors.New("channel full")
)
