// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package session implements the server session resource that scopes
// consistency for a stream of cursor operations. A session is owned by
// exactly one cursor at a time and is returned to its pool when ended.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is a handle to a server-side session. The owning cursor must call
// EndSession exactly once when it terminates; EndSession is idempotent so a
// second call from another termination path is harmless.
type Session struct {
	SessionID uuid.UUID

	pool     *Pool
	lastUsed time.Time
	next     *Session

	mu    sync.Mutex
	ended bool
}

// UpdateUseTime marks the session as used now. Must be called whenever the
// session is sent to the server with a command.
func (s *Session) UpdateUseTime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.lastUsed = s.pool.clock.Now()
	}
}

// EndSession ends the session and returns it to the pool. Calling EndSession
// on an already-ended session is a no-op.
func (s *Session) EndSession() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.mu.Unlock()

	if s.pool != nil {
		s.pool.ReturnSession(s)
	}
}

// Ended reports whether EndSession has been called.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// expired reports whether the session has less than one minute left before
// the server discards it as stale.
func (s *Session) expired(timeout time.Duration, now time.Time) bool {
	if timeout <= 0 {
		return false
	}
	return now.Sub(s.lastUsed) > timeout-time.Minute
}
