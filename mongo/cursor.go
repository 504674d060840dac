// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"context"
	"io"
	"iter"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/semaphore"

	"github.com/sis0k0/node-mongodb-native/mongo/options"
	"github.com/sis0k0/node-mongodb-native/x/mongo/driver"
	"github.com/sis0k0/node-mongodb-native/x/mongo/driver/session"
)

// NoValue is the result of pulling from a naturally exhausted cursor. It is
// distinct from every value a document or transform can legitimately carry;
// in particular nil, 0, "", false and NaN are ordinary results and only
// NoValue means "nothing left".
//
// NoValue is also the one output a transform registered with Map must never
// produce; doing so is a usage error that kills the cursor.
var NoValue = noValue{}

type noValue struct{}

func (noValue) String() string { return "<no value>" }

// MapFunc is a transform applied lazily to each document a cursor produces.
type MapFunc func(interface{}) (interface{}, error)

type cursorState int

const (
	cursorOpen cursorState = iota
	cursorIterating
	cursorExhausted
	cursorKilled
)

// terminationCause tags the transition into a terminal state. Exhaustion is
// the only cause that leaves the cursor EXHAUSTED; every other cause kills it.
type terminationCause int

const (
	causeExhaustion terminationCause = iota
	causeClose
	causeTransform
	causeUpstream
)

func (tc terminationCause) String() string {
	switch tc {
	case causeExhaustion:
		return "exhausted"
	case causeClose:
		return "closed"
	case causeTransform:
		return "transform"
	default:
		return "upstream"
	}
}

// Cursor is a lazy iterator over a server-paginated result set. Documents are
// buffered one batch at a time; the next batch is fetched only once the
// buffer is drained and the server still holds a live cursor.
//
// A typical usage of the Cursor type would be:
//
//	cur, err := mongo.NewCursor(src, query)
//	if err != nil { ... }
//	defer cur.Close(ctx)
//
//	for {
//		doc, err := cur.Next(ctx)
//		if err != nil { ... }
//		if doc == mongo.NoValue {
//			break
//		}
//		// do something with doc....
//	}
//
// Cursors are single-consumer: driven operations (Next, TryNext, HasNext,
// All, ForEach, Values, Stream) must not overlap. An overlapping call fails
// with ErrCursorBusy rather than interleaving fetches. Close may be called
// from any goroutine at any time.
type Cursor struct {
	src   driver.BatchSource
	query interface{}

	// sem enforces the single-consumer discipline across driven operations.
	sem *semaphore.Weighted

	// mu serializes fetch, kill and every state transition, so a Close
	// racing an in-flight fetch always kills the current id.
	mu         sync.Mutex
	state      cursorState
	id         int64
	buffer     []bson.D
	transforms []MapFunc
	sess       *session.Session
	batchSize  int32
	log        logrus.FieldLogger
}

// NewCursor creates a cursor over the result set of query. The query is not
// sent until the first consuming call; creation itself performs no I/O.
func NewCursor(src driver.BatchSource, query interface{}, opts ...*options.CursorOptions) (*Cursor, error) {
	if src == nil {
		return nil, ErrNilBatchSource
	}

	co := options.MergeCursorOptions(opts...)
	c := &Cursor{
		src:   src,
		query: query,
		sem:   semaphore.NewWeighted(1),
		log:   co.Logger,
	}
	if co.BatchSize != nil {
		c.batchSize = *co.BatchSize
	}
	if c.log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		c.log = silent
	}
	return c, nil
}

// ID returns the current server cursor id. 0 means the server holds no live
// cursor for this result set.
func (c *Cursor) ID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Closed reports whether the cursor finished by natural exhaustion.
func (c *Cursor) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == cursorExhausted
}

// Killed reports whether the cursor was terminated before exhaustion, either
// by Close or as a side effect of a transform or upstream failure.
func (c *Cursor) Killed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == cursorKilled
}

// Session returns the session owned by this cursor, or nil before the first
// fetch. The returned handle is read-only for callers; the cursor ends it.
func (c *Cursor) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// RemainingBatchLength returns the number of documents buffered locally and
// not yet returned to the consumer.
func (c *Cursor) RemainingBatchLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// SetBatchSize bounds the number of documents fetched per round trip from
// here on. It affects performance only, never the observed ordering.
func (c *Cursor) SetBatchSize(size int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batchSize = size
}

// Map appends fn to the cursor's transform chain and returns the same cursor
// so registrations can be chained. Transforms run in registration order, each
// receiving the previous one's output, and fire only when a document is
// actually produced; HasNext never runs them.
func (c *Cursor) Map(fn MapFunc) *Cursor {
	if fn == nil {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transforms = append(c.transforms, fn)
	return c
}

// Next returns the next transformed document, blocking through as many round
// trips as the server needs to either produce one or report the end of the
// result set. After natural exhaustion it returns NoValue with a nil error,
// on every call. After Close it returns ErrCursorKilled.
func (c *Cursor) Next(ctx context.Context) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.sem.TryAcquire(1) {
		return nil, ErrCursorBusy
	}
	defer c.sem.Release(1)

	return c.advance(ctx, false)
}

// TryNext is Next bounded to at most one fetch attempt. If no document is
// buffered and the single fetch returns an empty batch for a still-live
// cursor, TryNext returns NoValue without exhausting the cursor; a later call
// may produce more documents.
func (c *Cursor) TryNext(ctx context.Context) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.sem.TryAcquire(1) {
		return nil, ErrCursorBusy
	}
	defer c.sem.Release(1)

	return c.advance(ctx, true)
}

// HasNext reports whether another document is available, fetching batches as
// needed. It never consumes the document it finds and never runs transforms.
// A false return means the cursor is exhausted.
func (c *Cursor) HasNext(ctx context.Context) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.sem.TryAcquire(1) {
		return false, ErrCursorBusy
	}
	defer c.sem.Release(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case cursorKilled:
		return false, ErrCursorKilled
	case cursorExhausted:
		return false, nil
	}

	for len(c.buffer) == 0 {
		if c.state == cursorIterating && c.id == 0 {
			c.terminateLocked(ctx, causeExhaustion)
			return false, nil
		}
		if err := c.fetchLocked(ctx); err != nil {
			c.terminateLocked(ctx, causeUpstream)
			return false, err
		}
	}
	return true, nil
}

// Close terminates the cursor. If a live server cursor exists a kill request
// is issued for it, and the session is ended. Closing an already-terminal
// cursor is a no-op. If a fetch is in flight, Close waits for it to resolve
// so the kill targets the current cursor id.
func (c *Cursor) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == cursorExhausted || c.state == cursorKilled {
		return nil
	}
	return c.terminateLocked(ctx, causeClose)
}

// Rewind resets the cursor so iteration restarts from the beginning of the
// result set. Any live server cursor is killed and the buffer discarded; the
// session and registered transforms are kept. Rewinding a terminated cursor
// is an error.
func (c *Cursor) Rewind(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.sem.TryAcquire(1) {
		return ErrCursorBusy
	}
	defer c.sem.Release(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == cursorExhausted || c.state == cursorKilled {
		return ErrCursorTerminated
	}

	var killErr error
	if c.id != 0 {
		killErr = c.src.KillCursor(ctx, c.id, c.sess)
	}
	c.id = 0
	c.buffer = nil
	c.state = cursorOpen
	return killErr
}

// advance is the one producing primitive every consumption adapter drives.
// It ensures the buffer is non-empty, fetching as needed (once, if oneAttempt
// is set), then pops the head document and runs it through the transform
// chain. The sem must be held by the caller.
func (c *Cursor) advance(ctx context.Context, oneAttempt bool) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case cursorKilled:
		return nil, ErrCursorKilled
	case cursorExhausted:
		return NoValue, nil
	}

	for len(c.buffer) == 0 {
		if c.state == cursorIterating && c.id == 0 {
			c.terminateLocked(ctx, causeExhaustion)
			return NoValue, nil
		}
		if err := c.fetchLocked(ctx); err != nil {
			c.terminateLocked(ctx, causeUpstream)
			return nil, err
		}
		if oneAttempt && len(c.buffer) == 0 {
			if c.id == 0 {
				c.terminateLocked(ctx, causeExhaustion)
			}
			return NoValue, nil
		}
	}

	doc := c.buffer[0]
	c.buffer = c.buffer[1:]

	v := interface{}(doc)
	for _, fn := range c.transforms {
		out, err := fn(v)
		if err != nil {
			c.terminateLocked(ctx, causeTransform)
			return nil, err
		}
		if out == NoValue {
			c.terminateLocked(ctx, causeTransform)
			return nil, ErrNoValueTransform
		}
		v = out
	}

	// Returning the last document of the final batch exhausts the cursor.
	// While buffered documents remain, id == 0 alone is not terminal.
	if len(c.buffer) == 0 && c.id == 0 {
		c.terminateLocked(ctx, causeExhaustion)
	}
	return v, nil
}

// fetchLocked performs one round trip: the initial query if the cursor is
// still OPEN, a getMore otherwise. mu must be held; the buffer must be empty
// and, for a getMore, the id live.
func (c *Cursor) fetchLocked(ctx context.Context) error {
	if c.state == cursorOpen {
		fb, err := c.src.FetchInitial(ctx, c.query, c.batchSize)
		if err != nil {
			return err
		}
		c.state = cursorIterating
		c.id = fb.CursorID
		c.buffer = fb.Documents
		if c.sess == nil {
			c.sess = fb.Session
		} else if fb.Session != nil && fb.Session != c.sess {
			// A rewound cursor keeps its original session; hand the
			// redundant one straight back.
			fb.Session.EndSession()
		}
		c.log.WithFields(logrus.Fields{
			"cursorID":  c.id,
			"batchSize": len(fb.Documents),
		}).Debug("fetched initial batch")
		return nil
	}

	b, err := c.src.FetchMore(ctx, c.id, c.sess, c.batchSize)
	if err != nil {
		return err
	}
	c.id = b.CursorID
	c.buffer = b.Documents
	c.log.WithFields(logrus.Fields{
		"cursorID":  c.id,
		"batchSize": len(b.Documents),
	}).Debug("fetched batch")
	return nil
}

// terminateLocked is the single transition into a terminal state, shared by
// all four termination paths. It zeroes the id, discards the buffer, kills
// the server cursor if a live id existed and ends the session exactly once.
// mu must be held. The returned error, if any, comes from the kill request.
func (c *Cursor) terminateLocked(ctx context.Context, cause terminationCause) error {
	if c.state == cursorExhausted || c.state == cursorKilled {
		return nil
	}
	if cause == causeExhaustion {
		c.state = cursorExhausted
	} else {
		c.state = cursorKilled
	}

	id := c.id
	c.id = 0
	c.buffer = nil

	var killErr error
	if id != 0 {
		killErr = c.src.KillCursor(ctx, id, c.sess)
		if killErr != nil {
			c.log.WithField("cursorID", id).WithError(killErr).Warn("killCursors failed")
		}
	}
	if c.sess != nil {
		c.sess.EndSession()
	}

	c.log.WithFields(logrus.Fields{
		"cursorID": id,
		"cause":    cause.String(),
	}).Debug("cursor terminated")
	return killErr
}

// All drains the cursor and returns every transformed document in server
// order. The cursor finishes exhausted on success and killed on failure.
func (c *Cursor) All(ctx context.Context) ([]interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.sem.TryAcquire(1) {
		return nil, ErrCursorBusy
	}
	defer c.sem.Release(1)

	var results []interface{}
	for {
		v, err := c.advance(ctx, false)
		if err != nil {
			return nil, err
		}
		if v == NoValue {
			return results, nil
		}
		results = append(results, v)
	}
}

// ForEach invokes visitor for each transformed document until the cursor is
// exhausted. An error from the visitor aborts iteration, closes the cursor
// and is returned to the caller.
func (c *Cursor) ForEach(ctx context.Context, visitor func(interface{}) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.sem.TryAcquire(1) {
		return ErrCursorBusy
	}
	defer c.sem.Release(1)

	for {
		v, err := c.advance(ctx, false)
		if err != nil {
			return err
		}
		if v == NoValue {
			return nil
		}
		if err := visitor(v); err != nil {
			_ = c.Close(ctx)
			return err
		}
	}
}

// Values returns a range-over-func iterator over the transformed documents:
//
//	for doc, err := range cur.Values(ctx) {
//		if err != nil { ... }
//		// use doc
//	}
//
// The loop ends on natural exhaustion. A fetch or transform failure is
// yielded as the final pair's error. Breaking out of the loop early closes
// the cursor.
func (c *Cursor) Values(ctx context.Context) iter.Seq2[interface{}, error] {
	if ctx == nil {
		ctx = context.Background()
	}
	return func(yield func(interface{}, error) bool) {
		if !c.sem.TryAcquire(1) {
			yield(nil, ErrCursorBusy)
			return
		}
		defer c.sem.Release(1)

		for {
			v, err := c.advance(ctx, false)
			if err != nil {
				yield(nil, err)
				return
			}
			if v == NoValue {
				return
			}
			if !yield(v, nil) {
				_ = c.Close(ctx)
				return
			}
		}
	}
}
