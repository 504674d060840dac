// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package driver defines the contract between a cursor and the layer that
// actually talks to the server. Everything below this interface (wire
// encoding, connection pooling, authentication, server selection) is out of
// scope for this module.
package driver

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/sis0k0/node-mongodb-native/x/mongo/driver/session"
)

// FirstBatch is the result of the initial query round trip. A CursorID of 0
// means the server returned the entire result set in Documents and holds no
// live cursor.
type FirstBatch struct {
	CursorID  int64
	Documents []bson.D
	Session   *session.Session
}

// Batch is one getMore round trip's worth of documents plus the updated
// cursor id. A CursorID of 0 means this batch is the last one.
type Batch struct {
	CursorID  int64
	Documents []bson.D
}

// BatchSource performs the initial query and subsequent page fetches for a
// cursor. Implementations must be safe for use by multiple cursors; a single
// cursor serializes its own calls.
//
// Errors are returned verbatim to the consumer that triggered the round
// trip. Retry, timeout and cancellation policy live inside the
// implementation; the cursor layer adds none of its own.
type BatchSource interface {
	// FetchInitial runs the query and returns the first batch together with
	// the session that scopes the rest of the iteration.
	FetchInitial(ctx context.Context, query interface{}, batchSize int32) (FirstBatch, error)

	// FetchMore returns the next batch for a live cursor id. batchSize
	// bounds the number of documents in the returned batch; 0 means server
	// default.
	FetchMore(ctx context.Context, cursorID int64, sess *session.Session, batchSize int32) (Batch, error)

	// KillCursor releases the server-side cursor. Called at most once per
	// live id.
	KillCursor(ctx context.Context, cursorID int64, sess *session.Session) error
}
