package engine

import (
	"time"

	"github.com/tazhate/camerabot/internal/domain"
)

// PassesLocalChecks runs the I/O-free part of the firing decision, cheapest
// check first: enabled, cooldown, active hours, idle threshold. The AI gate
// needs a snapshot and a model call, so the caller combines it afterwards.
//
// idleKnown is false when the camera has no recorded motion history; an
// unknown idle duration never satisfies a positive idle threshold, so a
// freshly restarted process cannot alert on the first event it sees.
func PassesLocalChecks(rule *domain.AlertRule, now time.Time, idle time.Duration, idleKnown bool) (bool, string) {
	if !rule.Enabled {
		return false, "disabled"
	}

	if rule.CooldownMinutes > 0 && rule.LastTriggered != nil {
		if now.Sub(*rule.LastTriggered) < rule.Cooldown() {
			return false, "cooldown"
		}
	}

	if !rule.ActiveHours.Contains(now.Hour()) {
		return false, "outside active hours"
	}

	if rule.IdleThresholdMinutes > 0 {
		if !idleKnown {
			return false, "no motion history"
		}
		if idle < rule.IdleThreshold() {
			return false, "idle below threshold"
		}
	}

	return true, "ok"
}
