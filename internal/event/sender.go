package event

import (
	"errors"
	"sync"
)

// ErrReceiverClosed is returned by Send after the consumer has abandoned
// the channel. Producers treat it as a deliberate shutdown signal, not a
// fault.
var ErrReceiverClosed = errors.New("capture result receiver closed")

// Sender is the producer half of the bounded result conduit. It is safe
// for concurrent use by many capture tasks.
type Sender struct {
	ch   chan CaptureResult
	done chan struct{}
	once sync.Once
}

// Receiver is the consumer half. Closing it wakes every blocked sender
// with ErrReceiverClosed; results already buffered stay readable.
type Receiver struct {
	s *Sender
}

// NewChannel returns connected producer and consumer halves with a fixed
// capacity. When the buffer is full, Send blocks until the consumer frees
// space; no result is ever dropped.
func NewChannel(capacity int) (*Sender, *Receiver) {
	s := &Sender{
		ch:   make(chan CaptureResult, capacity),
		done: make(chan struct{}),
	}
	return s, &Receiver{s: s}
}

// Send delivers one result, blocking while the channel is full. It does not
// observe task cancellation: an in-flight result is delivered rather than
// dropped, so a sender blocked here completes the send before noticing
// shutdown.
func (s *Sender) Send(r CaptureResult) error {
	select {
	case <-s.done:
		return ErrReceiverClosed
	default:
	}
	select {
	case s.ch <- r:
		return nil
	case <-s.done:
		return ErrReceiverClosed
	}
}

// C exposes the receive side for select loops.
func (r *Receiver) C() <-chan CaptureResult {
	return r.s.ch
}

// Close marks the consumer gone. Idempotent.
func (r *Receiver) Close() {
	r.s.once.Do(func() { close(r.s.done) })
}
