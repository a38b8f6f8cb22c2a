package sched

import (
	"testing"
	"time"
)

func TestScheduleFires(t *testing.T) {
	timers := NewTimers()
	defer timers.StopAll()

	fired := make(chan struct{})
	timers.Schedule("k1", time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback never fired")
	}
}

func TestScheduleReplacesExistingKey(t *testing.T) {
	timers := NewTimers()
	defer timers.StopAll()

	fired := make(chan string, 2)
	timers.Schedule("k1", time.Hour, func() { fired <- "old" })
	timers.Schedule("k1", time.Millisecond, func() { fired <- "new" })

	select {
	case got := <-fired:
		if got != "new" {
			t.Fatalf("expected replacement callback, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("replacement callback never fired")
	}
	select {
	case got := <-fired:
		t.Fatalf("unexpected extra callback %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelStopsTimer(t *testing.T) {
	timers := NewTimers()
	defer timers.StopAll()

	fired := make(chan struct{}, 1)
	timers.Schedule("k1", 20*time.Millisecond, func() { fired <- struct{}{} })
	timers.Cancel("k1")

	select {
	case <-fired:
		t.Fatalf("canceled callback fired")
	case <-time.After(100 * time.Millisecond):
	}
}
