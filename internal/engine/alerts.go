package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/camerabot/internal/domain"
	"github.com/tazhate/camerabot/internal/storage"
)

// CreateAlertRule validates operator input and persists a new enabled rule.
func (e *Engine) CreateAlertRule(spec domain.AlertRuleSpec) (*domain.AlertRule, error) {
	rule := &domain.AlertRule{
		ID:                   uuid.NewString(),
		Camera:               spec.Camera,
		Enabled:              true,
		IdleThresholdMinutes: spec.IdleThresholdMinutes,
		CooldownMinutes:      spec.CooldownMinutes,
		ActiveHours:          spec.ActiveHours,
		CreatedAt:            e.now(),
	}
	if spec.AIPrompt != "" {
		rule.AI = domain.AICriteria{Enabled: true, Prompt: spec.AIPrompt}
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := e.store.AddRule(rule); err != nil {
		return nil, fmt.Errorf("persist rule: %w", err)
	}

	log.Printf("Alert rule %s created for camera %q (idle %dm, cooldown %dm, hours %s)",
		rule.ID, rule.Camera, rule.IdleThresholdMinutes, rule.CooldownMinutes, rule.ActiveHours)
	return rule, nil
}

// UpdateAlertRule applies a partial update; the result is validated before
// it is persisted, so a bad patch leaves the stored rule untouched.
func (e *Engine) UpdateAlertRule(id string, patch domain.AlertRulePatch) (*domain.AlertRule, error) {
	return e.store.UpdateRule(id, func(r *domain.AlertRule) error {
		if patch.Enabled != nil {
			r.Enabled = *patch.Enabled
		}
		if patch.IdleThresholdMinutes != nil {
			r.IdleThresholdMinutes = *patch.IdleThresholdMinutes
		}
		if patch.CooldownMinutes != nil {
			r.CooldownMinutes = *patch.CooldownMinutes
		}
		if patch.ActiveHours != nil {
			r.ActiveHours = *patch.ActiveHours
		}
		if patch.AIPrompt != nil {
			r.AI = domain.AICriteria{Enabled: *patch.AIPrompt != "", Prompt: *patch.AIPrompt}
		}
		return r.Validate()
	})
}

func (e *Engine) DeleteAlertRule(id string) error {
	if err := e.store.DeleteRule(id); err != nil {
		return err
	}
	e.dropRuleLock(id)
	log.Printf("Alert rule %s deleted", id)
	return nil
}

// ListAlertRules returns all rules, or only the ones bound to camera when it
// is non-empty.
func (e *Engine) ListAlertRules(camera string) ([]*domain.AlertRule, error) {
	if camera != "" {
		return e.store.RulesForCamera(camera)
	}
	snap, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	return snap.Rules, nil
}

// OnMotion is the motion-source entry point. It updates the tracker and
// evaluates every rule bound to the camera. A camera with no rules is not an
// error — no automation is configured for it.
func (e *Engine) OnMotion(camera string, at time.Time) {
	if at.IsZero() {
		at = e.now()
	}

	prev, hadPrev := e.tracker.RecordMotion(camera, at)

	if e.dispatcher == nil {
		return
	}

	rules, err := e.store.RulesForCamera(camera)
	if err != nil {
		log.Printf("Motion on %s: cannot load rules: %v", camera, err)
		return
	}

	for _, rule := range rules {
		e.evaluateRule(rule.ID, camera, at, prev, hadPrev)
	}
}

// evaluateRule decides and fires one rule. It holds the per-rule lock across
// the whole evaluate-and-persist cycle so two close motion events cannot both
// observe a stale LastTriggered and double-fire inside the cooldown window.
// Failures here are contained to this rule.
func (e *Engine) evaluateRule(id, camera string, at time.Time, prev domain.MotionState, hadPrev bool) {
	lock := e.ruleLock(id)
	lock.Lock()
	defer lock.Unlock()

	// Fresh copy: a concurrent firing may have just moved LastTriggered.
	rule, err := e.store.GetRule(id)
	if err != nil {
		log.Printf("Rule %s: %v", id, err)
		return
	}

	now := e.now().In(e.loc)

	idle := time.Duration(0)
	if hadPrev {
		idle = at.Sub(prev.LastMotionAt)
	}

	ok, reason := PassesLocalChecks(rule, now, idle, hadPrev)
	if !ok {
		if rule.Enabled {
			log.Printf("Rule %s on %s: no fire (%s)", id, camera, reason)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), externalCallTimeout)
	defer cancel()

	img, err := e.snapshots.Snapshot(ctx, camera)
	if err != nil {
		log.Printf("Rule %s on %s: snapshot failed: %v", id, camera, err)
		e.recordEvent(storage.EventAlert, id, camera, 0, "error", fmt.Sprintf("snapshot: %v", err))
		return
	}

	commentary := ""
	if rule.AI.Enabled {
		positive, answer := e.aiGate(ctx, img, rule.AI.Prompt)
		if !positive {
			log.Printf("Rule %s on %s: no fire (ai gate)", id, camera)
			return
		}
		commentary = answer
	}

	// Persist the trigger time before dispatching so the cooldown holds even
	// if the process dies mid-send.
	if _, err := e.store.UpdateRule(id, func(r *domain.AlertRule) error {
		t := now
		r.LastTriggered = &t
		return nil
	}); err != nil {
		log.Printf("Rule %s: failed to persist trigger time: %v", id, err)
	}

	caption := fmt.Sprintf("🚨 Motion on %s at %s", camera, now.Format("15:04:05"))
	if commentary != "" {
		caption += "\n🤖 " + commentary
	}

	outcome, detail := "ok", ""
	for _, chatID := range e.alertChats {
		if err := e.dispatcher.SendPhoto(chatID, caption, img); err != nil {
			outcome, detail = "error", fmt.Sprintf("send to %d: %v", chatID, err)
			log.Printf("Rule %s: failed to notify chat %d: %v", id, chatID, err)
		}
	}

	e.recordEvent(storage.EventAlert, id, camera, 0, outcome, detail)
	log.Printf("Rule %s fired on %s", id, camera)
}

// aiGate asks the vision model whether the alert criteria hold on the
// snapshot. Any vision failure is a non-fire, never an abort.
func (e *Engine) aiGate(ctx context.Context, img []byte, prompt string) (bool, string) {
	if e.vision == nil {
		log.Printf("AI gate requested but vision service is not configured")
		return false, ""
	}

	question := fmt.Sprintf("Look at this security camera snapshot. %s\nStart your answer with YES or NO, then explain briefly.", prompt)
	answer, err := e.vision.Query(ctx, img, question)
	if err != nil {
		log.Printf("AI gate error: %v", err)
		return false, ""
	}

	answer = strings.TrimSpace(answer)
	if !strings.HasPrefix(strings.ToUpper(answer), "YES") {
		return false, answer
	}
	return true, answer
}
