// Package sched runs delayed callbacks for round deadlines and dispute
// voting windows. Delivery is at-least-once from the caller's point of
// view: cancellation is best effort and a callback may fire against an
// already finished round, so callbacks must check state before acting.
package sched

import (
	"sync"
	"time"
)

// Scheduler is what the HTTP layer uses to arm and disarm deadlines.
type Scheduler interface {
	Schedule(key string, delay time.Duration, fn func())
	Cancel(key string)
}

// Timers is the in-process Scheduler built on time.AfterFunc. One
// timer per key; scheduling an existing key replaces its timer.
type Timers struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimers() *Timers {
	return &Timers{timers: make(map[string]*time.Timer)}
}

func (t *Timers) Schedule(key string, delay time.Duration, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[key]; ok {
		old.Stop()
	}
	t.timers[key] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()
		fn()
	})
}

func (t *Timers) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
}

// StopAll cancels every outstanding timer, for shutdown.
func (t *Timers) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
