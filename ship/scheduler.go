// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package ship

import (
	"fmt"
	"sync"
	"time"

	"github.com/dogship/dogship/lib/clock"
)

// Scheduler runs a callback at a fixed interval on its own goroutine.
// It is a one-shot lifecycle: Start begins ticking, Stop ends it, and
// a stopped scheduler cannot be restarted.
//
// Stop joins the scheduler goroutine: when Stop returns, no callback
// invocation is in progress and none will follow. Stopping does not
// run a final callback; owners that need a closing flush perform it
// themselves before calling Stop.
type Scheduler struct {
	clk      clock.Clock
	interval time.Duration
	fire     func()

	mu      sync.Mutex
	started bool
	stopped bool
	stopc   chan struct{}
	done    chan struct{}
}

// NewScheduler creates a scheduler that invokes fire every interval
// once started. Panics if clk or fire is nil or interval is not
// positive.
func NewScheduler(clk clock.Clock, interval time.Duration, fire func()) *Scheduler {
	if clk == nil {
		panic("ship: scheduler clock must not be nil")
	}
	if fire == nil {
		panic("ship: scheduler callback must not be nil")
	}
	if interval <= 0 {
		panic(fmt.Sprintf("ship: scheduler interval must be positive, got %v", interval))
	}
	return &Scheduler{
		clk:      clk,
		interval: interval,
		fire:     fire,
		stopc:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticking goroutine. Returns an error if the
// scheduler is already running or has been stopped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("ship: scheduler is stopped")
	}
	if s.started {
		return fmt.Errorf("ship: scheduler already started")
	}
	s.started = true
	go s.loop()
	return nil
}

// Stop halts the scheduler and waits for the ticking goroutine to
// exit. Safe to call multiple times and before Start; a scheduler
// stopped before starting can no longer be started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasStarted := s.started
	if !s.stopped {
		s.stopped = true
		close(s.stopc)
	}
	s.mu.Unlock()

	if wasStarted {
		<-s.done
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := s.clk.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopc:
			return
		case <-ticker.C:
			// A tick racing with Stop must not fire: callers rely
			// on Stop returning only after the last invocation.
			select {
			case <-s.stopc:
				return
			default:
			}
			s.fire()
		}
	}
}
