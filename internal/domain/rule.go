package domain

import (
	"fmt"
	"time"
)

// ActiveHours is an inclusive hour-of-day window in local wall-clock time.
// Start > End means the window wraps past midnight (22-6 covers 22:00-06:59).
type ActiveHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (h ActiveHours) Contains(hour int) bool {
	if h.Start <= h.End {
		return hour >= h.Start && hour <= h.End
	}
	return hour >= h.Start || hour <= h.End
}

func (h ActiveHours) Validate() error {
	if h.Start < 0 || h.Start > 23 || h.End < 0 || h.End > 23 {
		return fmt.Errorf("active hours must be within 0-23, got %d-%d", h.Start, h.End)
	}
	return nil
}

func (h ActiveHours) String() string {
	return fmt.Sprintf("%02d-%02d", h.Start, h.End)
}

// AICriteria is an optional vision-model gate on top of the local checks.
type AICriteria struct {
	Enabled bool   `json:"enabled"`
	Prompt  string `json:"prompt,omitempty"`
}

// AlertRule is a motion-triggered snapshot-and-notify condition for one camera.
type AlertRule struct {
	ID                   string      `json:"id"`
	Camera               string      `json:"camera"`
	Enabled              bool        `json:"enabled"`
	IdleThresholdMinutes int         `json:"idle_threshold_minutes"`
	ActiveHours          ActiveHours `json:"active_hours"`
	CooldownMinutes      int         `json:"cooldown_minutes"`
	AI                   AICriteria  `json:"ai_criteria"`
	LastTriggered        *time.Time  `json:"last_triggered,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
}

func (r *AlertRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id cannot be empty")
	}
	if r.Camera == "" {
		return fmt.Errorf("rule camera cannot be empty")
	}
	if r.IdleThresholdMinutes < 0 {
		return fmt.Errorf("idle threshold cannot be negative, got %d", r.IdleThresholdMinutes)
	}
	if r.CooldownMinutes < 0 {
		return fmt.Errorf("cooldown cannot be negative, got %d", r.CooldownMinutes)
	}
	if err := r.ActiveHours.Validate(); err != nil {
		return err
	}
	if r.AI.Enabled && r.AI.Prompt == "" {
		return fmt.Errorf("ai criteria requires a prompt")
	}
	return nil
}

func (r *AlertRule) IdleThreshold() time.Duration {
	return time.Duration(r.IdleThresholdMinutes) * time.Minute
}

func (r *AlertRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// AlertRuleSpec carries operator input for rule creation.
type AlertRuleSpec struct {
	Camera               string
	IdleThresholdMinutes int
	CooldownMinutes      int
	ActiveHours          ActiveHours
	AIPrompt             string // non-empty enables the AI gate
}

// AlertRulePatch is a partial update; nil fields are left unchanged.
type AlertRulePatch struct {
	Enabled              *bool
	IdleThresholdMinutes *int
	CooldownMinutes      *int
	ActiveHours          *ActiveHours
	AIPrompt             *string // empty string disables the AI gate
}
