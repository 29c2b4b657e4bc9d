// Package transport carries encoded frames from a stream session to a
// consumer.
package transport

import "errors"

// ErrClosed is returned once the consumer is gone.
var ErrClosed = errors.New("transport closed")

// FrameSender sends encoded video frames. A non-nil error means the
// consumer is gone and the session should end.
type FrameSender interface {
	SendFrame(data []byte) error
}

// FrameReceiver receives encoded video frames.
type FrameReceiver interface {
	OnFrame(callback func(data []byte))
}

// FrameSenderFunc adapts a function to FrameSender.
type FrameSenderFunc func(data []byte) error

func (f FrameSenderFunc) SendFrame(data []byte) error { return f(data) }
