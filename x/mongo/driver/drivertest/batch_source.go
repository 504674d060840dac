// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package drivertest provides an in-memory, scriptable BatchSource used by
// cursor tests and examples.
package drivertest

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/sis0k0/node-mongodb-native/x/mongo/driver"
	"github.com/sis0k0/node-mongodb-native/x/mongo/driver/session"
)

// liveCursorID is the id handed out while undelivered documents remain.
const liveCursorID = int64(10)

// BatchSource serves a fixed document list in batches, emulating a server
// that pages a result set behind a cursor id. The zero value is not usable;
// construct with NewBatchSource.
//
// Failure injection: set ErrInitial, ErrMore or ErrKill to make the matching
// call fail with that error. Set EmptyFetches to have FetchMore serve that
// many empty batches with a live id before resuming delivery, the way a
// server does when it has a cursor but no data ready.
type BatchSource struct {
	ErrInitial error
	ErrMore    error
	ErrKill    error

	mu          sync.Mutex
	docs        []bson.D
	pos         int
	defaultSize int32
	pool        *session.Pool

	EmptyFetches int

	// Recorded calls, readable after the fact via accessors.
	initialCalls int
	moreCalls    int
	killedIDs    []int64
	sessions     []*session.Session
}

// NewBatchSource creates a source over docs. defaultBatchSize bounds batches
// for fetches that do not carry their own bound; 0 means "all remaining".
func NewBatchSource(docs []bson.D, defaultBatchSize int32) *BatchSource {
	return &BatchSource{
		docs:        docs,
		defaultSize: defaultBatchSize,
		pool:        session.NewPool(clockwork.NewRealClock(), 0),
	}
}

var _ driver.BatchSource = (*BatchSource)(nil)

// FetchInitial runs the scripted query. The query value itself is ignored;
// this source always serves the documents it was constructed with.
func (s *BatchSource) FetchInitial(_ context.Context, _ interface{}, batchSize int32) (driver.FirstBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialCalls++
	s.pos = 0
	if s.ErrInitial != nil {
		return driver.FirstBatch{}, s.ErrInitial
	}

	sess := s.pool.GetSession()
	s.sessions = append(s.sessions, sess)
	sess.UpdateUseTime()

	docs, id := s.page(batchSize)
	return driver.FirstBatch{CursorID: id, Documents: docs, Session: sess}, nil
}

// FetchMore serves the next scripted batch.
func (s *BatchSource) FetchMore(_ context.Context, cursorID int64, sess *session.Session, batchSize int32) (driver.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moreCalls++
	if s.ErrMore != nil {
		return driver.Batch{}, s.ErrMore
	}
	if cursorID != liveCursorID {
		return driver.Batch{}, errors.Errorf("cursor id %d not found", cursorID)
	}
	if sess != nil {
		sess.UpdateUseTime()
	}

	if s.EmptyFetches > 0 {
		s.EmptyFetches--
		return driver.Batch{CursorID: liveCursorID}, nil
	}

	docs, id := s.page(batchSize)
	return driver.Batch{CursorID: id, Documents: docs}, nil
}

// KillCursor records the kill.
func (s *BatchSource) KillCursor(_ context.Context, cursorID int64, _ *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrKill != nil {
		return s.ErrKill
	}
	s.killedIDs = append(s.killedIDs, cursorID)
	return nil
}

// page pops up to one batch of remaining documents and reports the cursor id
// the server would return alongside it. mu must be held.
func (s *BatchSource) page(batchSize int32) ([]bson.D, int64) {
	size := batchSize
	if size == 0 {
		size = s.defaultSize
	}

	remaining := len(s.docs) - s.pos
	n := remaining
	if size > 0 && int(size) < n {
		n = int(size)
	}

	docs := s.docs[s.pos : s.pos+n]
	s.pos += n
	if s.pos < len(s.docs) {
		return docs, liveCursorID
	}
	return docs, 0
}

// InitialCalls reports how many times FetchInitial ran.
func (s *BatchSource) InitialCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialCalls
}

// MoreCalls reports how many times FetchMore ran.
func (s *BatchSource) MoreCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moreCalls
}

// KilledIDs reports every cursor id this source was asked to kill.
func (s *BatchSource) KilledIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.killedIDs...)
}

// Sessions reports every session handed out by FetchInitial, oldest first.
func (s *BatchSource) Sessions() []*session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*session.Session(nil), s.sessions...)
}
