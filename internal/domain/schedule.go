package domain

import (
	"fmt"
	"time"
)

// ReminderSchedule is a recurring snapshot-and-notify job. A deactivated
// schedule is kept in storage until explicitly removed so /history stays
// meaningful.
type ReminderSchedule struct {
	ID              string    `json:"id"`
	ChatID          int64     `json:"chat_id"`
	IntervalMinutes int       `json:"interval_minutes"`
	Camera          string    `json:"camera,omitempty"` // empty = default camera
	LastRun         time.Time `json:"last_run,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r *ReminderSchedule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("reminder id cannot be empty")
	}
	if r.ChatID == 0 {
		return fmt.Errorf("reminder chat id cannot be empty")
	}
	if r.IntervalMinutes < 1 {
		return fmt.Errorf("reminder interval must be at least 1 minute, got %d", r.IntervalMinutes)
	}
	return nil
}

func (r *ReminderSchedule) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}
