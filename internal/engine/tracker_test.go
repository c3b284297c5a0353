package engine

import (
	"testing"
	"time"
)

func TestTrackerUnknownCamera(t *testing.T) {
	tr := NewTracker()

	if _, ok := tr.IdleSince("yard", time.Now()); ok {
		t.Error("IdleSince on never-seen camera should report unknown")
	}
}

func TestTrackerIdleSince(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	prev, hadPrev := tr.RecordMotion("yard", t0)
	if hadPrev {
		t.Errorf("first event reported previous state %+v", prev)
	}

	idle, ok := tr.IdleSince("yard", t0.Add(15*time.Minute))
	if !ok {
		t.Fatal("IdleSince should know the camera after RecordMotion")
	}
	if idle != 15*time.Minute {
		t.Errorf("idle = %v, want 15m", idle)
	}
}

func TestTrackerReturnsPreviousState(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tr.RecordMotion("yard", t0)
	prev, hadPrev := tr.RecordMotion("yard", t0.Add(15*time.Minute))
	if !hadPrev {
		t.Fatal("second event should see previous state")
	}
	if !prev.LastMotionAt.Equal(t0) {
		t.Errorf("previous motion at %v, want %v", prev.LastMotionAt, t0)
	}
}

func TestTrackerIgnoresOutOfOrderEvents(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tr.RecordMotion("yard", t0)
	tr.RecordMotion("yard", t0.Add(-10*time.Minute))

	st, ok := tr.State("yard")
	if !ok {
		t.Fatal("camera should be tracked")
	}
	if !st.LastMotionAt.Equal(t0) {
		t.Errorf("out-of-order event moved last motion to %v, want %v", st.LastMotionAt, t0)
	}
}

func TestTrackerCamerasAreIndependent(t *testing.T) {
	tr := NewTracker()
	t0 := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tr.RecordMotion("yard", t0)

	if _, ok := tr.IdleSince("garage", t0); ok {
		t.Error("motion on yard should not create state for garage")
	}
}
