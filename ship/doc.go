// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

// Package ship implements the batching pipeline between event
// producers and the intake transport: an append-only buffer drained
// in whole batches, a fixed-interval scheduler, and a Writer that
// ties the two to a Sender.
//
// The pipeline favors losing data over blocking the application.
// Enqueueing never waits on network I/O, and a batch whose send
// fails is dropped and logged rather than retried.
package ship
