// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Pool is a pool of server sessions that can be reused. Sessions are kept on
// a stack so the most recently used, and therefore least likely to be
// expired, session is handed out first.
type Pool struct {
	mu      sync.Mutex
	head    *Session
	timeout time.Duration
	clock   clockwork.Clock
}

// NewPool creates a pool of sessions that expire after the given timeout of
// inactivity. A zero timeout disables expiry. The clock is injectable for
// tests; pass clockwork.NewRealClock() in production code.
func NewPool(clock clockwork.Clock, timeout time.Duration) *Pool {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pool{clock: clock, timeout: timeout}
}

// GetSession retrieves an unexpired session from the pool, creating a new one
// if none is available.
func (p *Pool) GetSession() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	for p.head != nil {
		sess := p.head
		p.head = sess.next
		sess.next = nil
		if sess.expired(p.timeout, now) {
			continue
		}
		sess.ended = false
		sess.lastUsed = now
		return sess
	}

	return &Session{
		SessionID: uuid.New(),
		pool:      p,
		lastUsed:  now,
	}
}

// ReturnSession returns a session to the pool. Expired sessions are dropped
// rather than reused; the bottom of the stack is pruned of anything that went
// stale while waiting.
func (p *Pool) ReturnSession(s *Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	if s.expired(p.timeout, now) {
		return
	}
	s.next = p.head
	p.head = s
}
