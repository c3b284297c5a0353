package domain

import "time"

// MotionState is the last known motion for one camera. It lives in memory
// only and is rebuilt from incoming events after a restart.
type MotionState struct {
	Camera       string
	LastMotionAt time.Time
	Active       bool
}
