// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"sync"

	"github.com/dogship/dogship/wire"
)

// Measure starts timing a block of work and returns a stop function
// that enqueues the elapsed nanoseconds as a single-point
// distribution series. Panics if name is empty.
//
// The intended shape is a deferred call, which records the sample
// even when the measured block panics:
//
//	defer client.Measure("handler.duration", "route:/checkout")()
//
// The stop function records at most once; calling it again is a
// no-op.
func (c *Client) Measure(name string, tags ...string) func() {
	if name == "" {
		panic("client: metric name must not be empty")
	}
	start := c.clk.Now()
	var once sync.Once
	return func() {
		once.Do(func() {
			elapsed := c.clk.Now().Sub(start)
			c.enqueuePoint(wire.KindDistribution, name, float64(elapsed.Nanoseconds()), 0, tags)
		})
	}
}
