package app

import (
	"time"

	"sketchspy/internal/domain"
)

// Clock is the time source for rooms, deadlines and sessions.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback that can be cancelled
type Timer interface {
	Stop() bool
}

type realClock struct{}

// RealClock returns a Clock backed by the time package
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// deadline identifies the phase a scheduled callback was armed for. It only
// takes effect if both fields still match when it is delivered to the room.
type deadline struct {
	generation uint64
	stage      domain.Status
}

// phaseTimer holds at most one pending deadline per room
type phaseTimer struct {
	clock   Clock
	pending Timer
}

// schedule arms fire for the absolute instant at, replacing any pending deadline
func (t *phaseTimer) schedule(at time.Time, fire func()) {
	t.cancel()
	t.pending = t.clock.AfterFunc(max(at.Sub(t.clock.Now()), 0), fire)
}

func (t *phaseTimer) cancel() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
