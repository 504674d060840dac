// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package mongo

import (
	"github.com/pkg/errors"
)

// Errors returned by cursor operations. Errors raised by a user transform or
// by the BatchSource pass through to the triggering caller unchanged and are
// not listed here.
var (
	// ErrNilBatchSource is returned by NewCursor when no BatchSource is given.
	ErrNilBatchSource = errors.New("batch source must not be nil")

	// ErrCursorKilled is returned by operations on a cursor that was
	// terminated by Close or by an earlier failure. It is distinct from the
	// silent NoValue result of a naturally exhausted cursor.
	ErrCursorKilled = errors.New("cannot read from a killed cursor")

	// ErrCursorBusy is returned when an operation is attempted while another
	// operation is still driving the same cursor. Cursors are
	// single-consumer; callers must serialize their use.
	ErrCursorBusy = errors.New("another operation is in progress on this cursor")

	// ErrNoValueTransform is returned when a registered transform produces
	// NoValue. Transforms may return any legitimate value, including nil,
	// but never the NoValue sentinel.
	ErrNoValueTransform = errors.New("cursor transform returned NoValue")

	// ErrCursorTerminated is returned by Rewind on a cursor that already
	// reached a terminal state.
	ErrCursorTerminated = errors.New("cannot rewind a terminated cursor")
)
