// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"

	"github.com/sis0k0/node-mongodb-native/mongo/options"
)

// StreamEventType discriminates events emitted by a Stream.
type StreamEventType int

const (
	// StreamEventData carries one transformed document.
	StreamEventData StreamEventType = iota

	// StreamEventError carries the failure that ended the stream. The
	// cursor is already terminated when this event is observed.
	StreamEventError

	// StreamEventEnd marks natural exhaustion of the result set.
	StreamEventEnd
)

// StreamEvent is a single emission from a Stream. Document is set for data
// events, Err for error events.
type StreamEvent struct {
	Type     StreamEventType
	Document interface{}
	Err      error
}

// Stream pushes a cursor's documents to a channel. The pump goroutine drives
// the cursor until exhaustion, failure or context cancellation; the events
// channel is closed after the terminal End or Error event. Cancelling the
// context closes the cursor and ends the stream, so an abandoned Stream does
// not leak its goroutine.
type Stream struct {
	events chan StreamEvent
}

// Stream returns a push-based view of the cursor. The optional
// StreamOptions.Transform stage runs after the cursor's own transform chain;
// its failures terminate the cursor exactly like a Map transform's. Every
// failure mode, including misuse of a killed or busy cursor, surfaces as an
// error event on the channel.
func (c *Cursor) Stream(ctx context.Context, opts ...*options.StreamOptions) *Stream {
	if ctx == nil {
		ctx = context.Background()
	}
	so := options.MergeStreamOptions(opts...)

	s := &Stream{events: make(chan StreamEvent)}
	go s.pump(ctx, c, so.Transform)
	return s
}

// Events returns the stream's event channel. It is closed once a terminal
// event has been delivered or the context is cancelled.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

func (s *Stream) pump(ctx context.Context, c *Cursor, transform func(interface{}) (interface{}, error)) {
	defer close(s.events)

	if !c.sem.TryAcquire(1) {
		s.emit(ctx, c, StreamEvent{Type: StreamEventError, Err: ErrCursorBusy})
		return
	}
	defer c.sem.Release(1)

	for {
		if err := ctx.Err(); err != nil {
			_ = c.Close(context.Background())
			s.emit(ctx, c, StreamEvent{Type: StreamEventError, Err: err})
			return
		}

		v, err := c.advance(ctx, false)
		if err != nil {
			s.emit(ctx, c, StreamEvent{Type: StreamEventError, Err: err})
			return
		}
		if v == NoValue {
			s.emit(ctx, c, StreamEvent{Type: StreamEventEnd})
			return
		}

		if transform != nil {
			v, err = transform(v)
			if err != nil {
				_ = c.Close(ctx)
				s.emit(ctx, c, StreamEvent{Type: StreamEventError, Err: err})
				return
			}
			if v == NoValue {
				_ = c.Close(ctx)
				s.emit(ctx, c, StreamEvent{Type: StreamEventError, Err: ErrNoValueTransform})
				return
			}
		}

		if !s.emit(ctx, c, StreamEvent{Type: StreamEventData, Document: v}) {
			return
		}
	}
}

// emit delivers ev unless the consumer went away. On cancellation the cursor
// is closed and the pump stops; emit reports whether pumping may continue.
func (s *Stream) emit(ctx context.Context, c *Cursor, ev StreamEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		_ = c.Close(context.Background())
		return false
	}
}
