package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/tazhate/camerabot/internal/domain"
	"github.com/tazhate/camerabot/internal/storage"
)

// CreateReminder persists a new schedule and arms its timer immediately.
func (e *Engine) CreateReminder(chatID int64, intervalMinutes int, camera string) (*domain.ReminderSchedule, error) {
	rem := &domain.ReminderSchedule{
		ID:              uuid.NewString(),
		ChatID:          chatID,
		IntervalMinutes: intervalMinutes,
		Camera:          camera,
		Active:          true,
		CreatedAt:       e.now(),
	}
	if err := rem.Validate(); err != nil {
		return nil, err
	}

	if err := e.store.AddReminder(rem); err != nil {
		return nil, fmt.Errorf("persist reminder: %w", err)
	}

	if err := e.armReminder(rem); err != nil {
		return nil, fmt.Errorf("arm reminder: %w", err)
	}

	log.Printf("Reminder %s created: every %dm, camera %q, chat %d", rem.ID, rem.IntervalMinutes, rem.Camera, rem.ChatID)
	return rem, nil
}

// StopReminder cancels the timer and deactivates the stored schedule.
// Stopping an already-stopped reminder is a no-op.
func (e *Engine) StopReminder(id string) error {
	e.mu.Lock()
	if entryID, ok := e.entries[id]; ok {
		e.cron.Remove(entryID)
		delete(e.entries, id)
	}
	e.mu.Unlock()

	_, err := e.store.UpdateReminder(id, func(r *domain.ReminderSchedule) error {
		r.Active = false
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Reminder %s stopped", id)
	return nil
}

// ListReminders returns the active schedules for a chat.
func (e *Engine) ListReminders(chatID int64) ([]*domain.ReminderSchedule, error) {
	snap, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	var out []*domain.ReminderSchedule
	for _, r := range snap.Reminders {
		if r.Active && r.ChatID == chatID {
			out = append(out, r)
		}
	}
	return out, nil
}

// reconcile makes the armed timer set mirror the durable active set exactly.
func (e *Engine) reconcile() error {
	snap, err := e.store.Load()
	if err != nil {
		return err
	}

	active := make(map[string]*domain.ReminderSchedule, len(snap.Reminders))
	for _, r := range snap.Reminders {
		if r.Active {
			active[r.ID] = r
		}
	}

	e.mu.Lock()
	var stale []string
	for id := range e.entries {
		if _, ok := active[id]; !ok {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		e.cron.Remove(e.entries[id])
		delete(e.entries, id)
	}
	e.mu.Unlock()

	armed := 0
	for id, r := range active {
		e.mu.Lock()
		_, ok := e.entries[id]
		e.mu.Unlock()
		if ok {
			continue
		}
		if err := e.armReminder(r); err != nil {
			log.Printf("Cannot arm reminder %s: %v", id, err)
			continue
		}
		armed++
	}

	log.Printf("Schedules reconciled: %d active, %d newly armed, %d stale removed", len(active), armed, len(stale))
	return nil
}

func (e *Engine) armReminder(rem *domain.ReminderSchedule) error {
	id := rem.ID
	spec := fmt.Sprintf("@every %dm", rem.IntervalMinutes)

	entryID, err := e.cron.AddFunc(spec, func() {
		e.fireReminder(id)
	})
	if err != nil {
		return fmt.Errorf("add cron entry: %w", err)
	}

	e.mu.Lock()
	e.entries[id] = entryID
	e.mu.Unlock()
	return nil
}

// fireReminder runs one tick: capture, notify, persist LastRun. Any failure
// is reported best-effort and the schedule stays armed; transient problems
// heal on the next tick.
func (e *Engine) fireReminder(id string) {
	if e.dispatcher == nil {
		return
	}

	// Re-read so a tick that raced a stop sees the deactivation.
	rem, err := e.store.GetReminder(id)
	if err != nil {
		log.Printf("Reminder %s fired but not in storage: %v", id, err)
		return
	}
	if !rem.Active {
		return
	}

	camera := rem.Camera
	if camera == "" {
		camera = e.defaultCamera
	}

	outcome, detail := "ok", ""

	ctx, cancel := context.WithTimeout(context.Background(), externalCallTimeout)
	defer cancel()

	img, err := e.snapshots.Snapshot(ctx, camera)
	if err != nil {
		outcome, detail = "error", fmt.Sprintf("snapshot %s: %v", camera, err)
		log.Printf("Reminder %s: %s", id, detail)
		if err := e.dispatcher.SendMessage(rem.ChatID, fmt.Sprintf("⚠️ Reminder snapshot failed for %s: %v", camera, err)); err != nil {
			log.Printf("Reminder %s: failed to send error notice: %v", id, err)
		}
	} else {
		caption := fmt.Sprintf("⏰ Reminder: %s at %s", camera, e.now().In(e.loc).Format("15:04"))
		if err := e.dispatcher.SendPhoto(rem.ChatID, caption, img); err != nil {
			outcome, detail = "error", fmt.Sprintf("send photo: %v", err)
			log.Printf("Reminder %s: %s", id, detail)
		}
	}

	// LastRun records the attempt even when it failed; losing this update is
	// tolerable, so persistence failure only logs.
	now := e.now()
	if _, err := e.store.UpdateReminder(id, func(r *domain.ReminderSchedule) error {
		r.LastRun = now
		return nil
	}); err != nil {
		log.Printf("Reminder %s: failed to persist last run: %v", id, err)
	}

	e.recordEvent(storage.EventReminder, id, camera, rem.ChatID, outcome, detail)
}

func (e *Engine) armedReminders() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.entries))
	for id := range e.entries {
		ids = append(ids, id)
	}
	return ids
}
