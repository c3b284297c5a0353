package engine

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCreateReminderArmsTimer(t *testing.T) {
	e, store, _, _, _, _ := newTestEngine(t)

	rem, err := e.CreateReminder(testChat, 30, "yard")
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	armed := e.armedReminders()
	if len(armed) != 1 || armed[0] != rem.ID {
		t.Errorf("armed = %v, want [%s]", armed, rem.ID)
	}

	stored, err := store.GetReminder(rem.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if !stored.Active || stored.IntervalMinutes != 30 {
		t.Errorf("stored reminder = %+v", stored)
	}
}

func TestCreateReminderRejectsBadInterval(t *testing.T) {
	e, _, _, _, _, _ := newTestEngine(t)

	if _, err := e.CreateReminder(testChat, 0, ""); err == nil {
		t.Error("expected error for zero interval")
	}
	if len(e.armedReminders()) != 0 {
		t.Error("rejected reminder was armed")
	}
}

func TestReminderTick(t *testing.T) {
	e, store, _, _, disp, clock := newTestEngine(t)

	rem, err := e.CreateReminder(testChat, 30, "yard")
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	e.fireReminder(rem.ID)

	if disp.photoCount() != 1 {
		t.Fatalf("photos = %d, want 1", disp.photoCount())
	}
	if disp.photos[0].chatID != testChat {
		t.Errorf("photo sent to %d, want %d", disp.photos[0].chatID, testChat)
	}

	stored, err := store.GetReminder(rem.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if !stored.LastRun.Equal(clock.Now()) {
		t.Errorf("LastRun = %v, want %v", stored.LastRun, clock.Now())
	}
}

func TestReminderTickUsesDefaultCamera(t *testing.T) {
	e, _, _, _, disp, _ := newTestEngine(t)

	rem, err := e.CreateReminder(testChat, 30, "")
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	e.fireReminder(rem.ID)

	if disp.photoCount() != 1 {
		t.Fatalf("photos = %d, want 1", disp.photoCount())
	}
	if !strings.Contains(disp.photos[0].text, "front") {
		t.Errorf("caption %q should name the default camera", disp.photos[0].text)
	}
}

func TestReminderTickSnapshotFailure(t *testing.T) {
	e, store, snaps, _, disp, _ := newTestEngine(t)

	rem, err := e.CreateReminder(testChat, 30, "yard")
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	snaps.errs = []error{errors.New("camera offline")}
	e.fireReminder(rem.ID)

	if disp.photoCount() != 0 {
		t.Errorf("photos = %d, want 0", disp.photoCount())
	}
	if disp.messageCount() != 1 {
		t.Errorf("failure notices = %d, want 1", disp.messageCount())
	}

	// Transient failure must not deactivate the schedule, and the attempt
	// still counts as a run.
	stored, err := store.GetReminder(rem.ID)
	if err != nil {
		t.Fatalf("GetReminder: %v", err)
	}
	if !stored.Active {
		t.Error("schedule deactivated after a transient failure")
	}
	if stored.LastRun.IsZero() {
		t.Error("LastRun not recorded for the failed attempt")
	}
}

func TestStopReminderIdempotent(t *testing.T) {
	e, _, _, _, disp, _ := newTestEngine(t)

	rem, err := e.CreateReminder(testChat, 30, "yard")
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	if err := e.StopReminder(rem.ID); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := e.StopReminder(rem.ID); err != nil {
		t.Fatalf("second stop should be a no-op, got: %v", err)
	}

	if len(e.armedReminders()) != 0 {
		t.Errorf("armed after stop = %v", e.armedReminders())
	}

	active, err := e.ListReminders(testChat)
	if err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("stopped reminder still listed: %+v", active)
	}

	// A tick that was already in flight re-reads the schedule and bails out.
	e.fireReminder(rem.ID)
	if disp.photoCount() != 0 {
		t.Error("stopped reminder still fired")
	}
}

func TestStopReminderUnknownID(t *testing.T) {
	e, _, _, _, _, _ := newTestEngine(t)

	if err := e.StopReminder("no-such-id"); err == nil {
		t.Error("expected error for unknown reminder id")
	}
}

func TestStartRearmsActiveSchedules(t *testing.T) {
	e, store, _, _, _, _ := newTestEngine(t)

	kept, err := e.CreateReminder(testChat, 30, "yard")
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	stopped, err := e.CreateReminder(testChat, 45, "garage")
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if err := e.StopReminder(stopped.ID); err != nil {
		t.Fatalf("StopReminder: %v", err)
	}

	// Simulated restart: a fresh engine over the same durable file.
	restarted := New(store, nil, &fakeSnapshots{img: []byte("jpeg")}, nil, time.UTC, "front", []int64{testChat})
	restarted.SetDispatcher(&fakeDispatcher{})
	if err := restarted.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer restarted.Stop()

	armed := restarted.armedReminders()
	if len(armed) != 1 || armed[0] != kept.ID {
		t.Errorf("armed after restart = %v, want [%s]", armed, kept.ID)
	}
}

func TestListRemindersFiltersByChat(t *testing.T) {
	e, _, _, _, _, _ := newTestEngine(t)

	if _, err := e.CreateReminder(testChat, 30, "yard"); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if _, err := e.CreateReminder(testChat+1, 30, "yard"); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	reminders, err := e.ListReminders(testChat)
	if err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Errorf("reminders for chat %d = %d, want 1", testChat, len(reminders))
	}
	if reminders[0].ChatID != testChat {
		t.Errorf("listed reminder belongs to chat %d", reminders[0].ChatID)
	}
}
