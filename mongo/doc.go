// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package mongo provides a lazy, batched cursor over server-paginated query
// results.
//
// A Cursor is created over a driver.BatchSource, the collaborator that talks
// to the server:
//
//	cur, err := mongo.NewCursor(src, query, options.Cursor().SetBatchSize(100))
//	if err != nil { log.Fatal(err) }
//	defer cur.Close(ctx)
//
// Documents can be consumed by pulling (Next, TryNext, HasNext), in bulk
// (All), by callback (ForEach), by ranging (Values) or as a push stream
// (Stream). All of these drive the same underlying iteration and observe the
// same document sequence; pick whichever shape fits the call site.
//
// Transforms registered with Map are applied lazily, per produced document,
// in registration order:
//
//	names, err := cur.Map(extractName).All(ctx)
//
// Whichever way iteration ends — exhaustion, Close, a transform failure or a
// server error — the cursor releases its server-side cursor and session
// exactly once.
package mongo
