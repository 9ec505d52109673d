package channels

import "errors"

// SendNonBlock attempts to send a message without blocking.
// Returns ErrChannelFull if no receiver is ready and the buffer is full, or
// ErrChannelClosed if the channel has been closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// DropCounter counts messages that could not be delivered.
// The zero value is ready to use. Not safe for concurrent Send calls on the
// same counter; the audio driver invokes its callback from a single thread.
type DropCounter[T any] struct {
	ch      chan<- T
	dropped int64
	closed  bool
}

// NewDropCounter wraps ch so that failed non-blocking sends are tallied.
func NewDropCounter[T any](ch chan<- T) *DropCounter[T] {
	return &DropCounter[T]{ch: ch}
}

// Send delivers msg without blocking and reports whether it was accepted.
func (d *DropCounter[T]) Send(msg T) bool {
	if d.closed {
		d.dropped++
		return false
	}

	err := SendNonBlock(d.ch, msg)
	if err == nil {
		return true
	}

	d.dropped++
	if errors.Is(err, ErrChannelClosed) {
		d.closed = true
	}

	return false
}

// Dropped returns how many messages have been dropped so far.
func (d *DropCounter[T]) Dropped() int64 {
	return d.dropped
}
