// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package ship

import "sync"

// Buffer is an unbounded FIFO accumulator of pending events. Append
// holds the lock only long enough to grow a slice, so producers never
// wait on a flush in progress; Drain swaps the slice out whole, so a
// sender works on a private batch while producers keep appending.
//
// Thread-safe: all methods may be called concurrently.
type Buffer[E any] struct {
	mu      sync.Mutex
	pending []E
}

// NewBuffer creates an empty buffer.
func NewBuffer[E any]() *Buffer[E] {
	return &Buffer[E]{}
}

// Append adds events to the end of the buffer.
func (b *Buffer[E]) Append(events ...E) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	b.pending = append(b.pending, events...)
	b.mu.Unlock()
}

// Drain removes and returns all buffered events in append order.
// Returns nil when the buffer is empty. The returned slice is owned
// by the caller; events appended after the swap land in the next
// drain.
func (b *Buffer[E]) Drain() []E {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()
	return batch
}

// Len returns the number of buffered events.
func (b *Buffer[E]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
