// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package options

import (
	"github.com/sirupsen/logrus"
)

// CursorOptions represent all possible options for iterating a cursor.
type CursorOptions struct {
	BatchSize *int32             // Bounds the number of documents fetched per round trip. A performance knob only; never changes observed ordering.
	Logger    logrus.FieldLogger // Receives debug-level fetch and lifecycle records. Defaults to a silent logger.
}

// Cursor creates a new CursorOptions instance.
func Cursor() *CursorOptions {
	return &CursorOptions{}
}

// SetBatchSize sets the number of documents to fetch in each batch.
func (co *CursorOptions) SetBatchSize(i int32) *CursorOptions {
	co.BatchSize = &i
	return co
}

// SetLogger sets the logger the cursor writes diagnostic records to.
func (co *CursorOptions) SetLogger(l logrus.FieldLogger) *CursorOptions {
	co.Logger = l
	return co
}

// MergeCursorOptions combines the given CursorOptions instances into a single
// one, with later values taking precedence.
func MergeCursorOptions(opts ...*CursorOptions) *CursorOptions {
	co := Cursor()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.BatchSize != nil {
			co.BatchSize = opt.BatchSize
		}
		if opt.Logger != nil {
			co.Logger = opt.Logger
		}
	}
	return co
}

// StreamOptions represent all possible options for the push-stream adapter.
type StreamOptions struct {
	// Transform is an additional mapping stage applied to each document
	// after the cursor's own transform chain, before the data event fires.
	Transform func(interface{}) (interface{}, error)
}

// Stream creates a new StreamOptions instance.
func Stream() *StreamOptions {
	return &StreamOptions{}
}

// SetTransform sets a mapping function applied to each streamed document.
func (so *StreamOptions) SetTransform(fn func(interface{}) (interface{}, error)) *StreamOptions {
	so.Transform = fn
	return so
}

// MergeStreamOptions combines the given StreamOptions instances into a single
// one, with later values taking precedence.
func MergeStreamOptions(opts ...*StreamOptions) *StreamOptions {
	so := Stream()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if opt.Transform != nil {
			so.Transform = opt.Transform
		}
	}
	return so
}
