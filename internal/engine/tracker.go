package engine

import (
	"sync"
	"time"

	"github.com/tazhate/camerabot/internal/domain"
)

// Tracker remembers the last motion seen per camera. It is not persisted:
// after a restart every camera starts as "never seen", which the evaluator
// treats as failing any idle-threshold check.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*domain.MotionState
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]*domain.MotionState)}
}

// RecordMotion marks motion on the camera and returns the state as it was
// before this event, so callers can compute the idle gap that preceded it.
// Events older than the recorded last motion do not move the clock backwards.
func (t *Tracker) RecordMotion(camera string, at time.Time) (prev domain.MotionState, hadPrev bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[camera]
	if !ok {
		t.states[camera] = &domain.MotionState{Camera: camera, LastMotionAt: at, Active: true}
		return domain.MotionState{}, false
	}
	prev = *st
	st.Active = true
	if at.After(st.LastMotionAt) {
		st.LastMotionAt = at
	}
	return prev, true
}

// IdleSince returns how long the camera has been without motion. ok is false
// when no motion was ever recorded for the camera.
func (t *Tracker) IdleSince(camera string, now time.Time) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[camera]
	if !ok {
		return 0, false
	}
	return now.Sub(st.LastMotionAt), true
}

func (t *Tracker) State(camera string) (domain.MotionState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[camera]
	if !ok {
		return domain.MotionState{}, false
	}
	return *st, true
}
