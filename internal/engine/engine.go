package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/camerabot/internal/storage"
)

const externalCallTimeout = 30 * time.Second

// SnapshotProvider captures a still image from a camera.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, camera string) ([]byte, error)
}

// VisionService answers a free-form question about an image.
type VisionService interface {
	Query(ctx context.Context, image []byte, prompt string) (string, error)
}

// Dispatcher delivers messages and photos to a chat. Send failures are
// reported as errors and never unwind scheduler state.
type Dispatcher interface {
	SendMessage(chatID int64, text string) error
	SendPhoto(chatID int64, caption string, photo []byte) error
}

// Engine owns all time-driven automation: recurring reminder snapshots and
// motion-triggered alert rules. All collaborators are injected; the durable
// copy of every schedule and rule lives in the Store, and the in-memory cron
// entries are re-derived from it on Start.
type Engine struct {
	store         *storage.Store
	history       *storage.History
	snapshots     SnapshotProvider
	vision        VisionService
	tracker       *Tracker
	loc           *time.Location
	defaultCamera string
	alertChats    []int64

	now func() time.Time

	dispatcher Dispatcher

	cron    *cron.Cron
	mu      sync.Mutex // guards entries
	entries map[string]cron.EntryID

	locksMu   sync.Mutex
	ruleLocks map[string]*sync.Mutex
}

// New builds an engine. The dispatcher is attached separately because the
// bot needs the engine to handle commands and the engine needs the bot to
// deliver notifications.
func New(store *storage.Store, history *storage.History, snapshots SnapshotProvider, vision VisionService, loc *time.Location, defaultCamera string, alertChats []int64) *Engine {
	return &Engine{
		store:         store,
		history:       history,
		snapshots:     snapshots,
		vision:        vision,
		tracker:       NewTracker(),
		loc:           loc,
		defaultCamera: defaultCamera,
		alertChats:    alertChats,
		now:           time.Now,
		cron:          cron.New(cron.WithLocation(loc)),
		entries:       make(map[string]cron.EntryID),
		ruleLocks:     make(map[string]*sync.Mutex),
	}
}

func (e *Engine) SetDispatcher(d Dispatcher) {
	e.dispatcher = d
}

// Start re-arms a timer for every active schedule found in storage and
// starts the cron loop.
func (e *Engine) Start() error {
	if err := e.reconcile(); err != nil {
		return fmt.Errorf("reconcile schedules: %w", err)
	}
	e.cron.Start()
	return nil
}

// Stop cancels all timers and waits for in-flight ticks to finish.
func (e *Engine) Stop() {
	ctx := e.cron.Stop()
	<-ctx.Done()
}

// Analyze captures a fresh snapshot and asks the vision model about it.
// Unlike the alert AI gate, errors here propagate to the caller.
func (e *Engine) Analyze(ctx context.Context, camera, question string) (string, error) {
	if e.vision == nil {
		return "", fmt.Errorf("vision service is not configured")
	}
	if camera == "" {
		camera = e.defaultCamera
	}
	if camera == "" {
		return "", fmt.Errorf("no camera specified and no default camera configured")
	}

	img, err := e.snapshots.Snapshot(ctx, camera)
	if err != nil {
		return "", fmt.Errorf("capture %s: %w", camera, err)
	}

	answer, err := e.vision.Query(ctx, img, question)
	if err != nil {
		return "", fmt.Errorf("vision query: %w", err)
	}
	return answer, nil
}

// ruleLock returns the mutex serializing evaluation and LastTriggered
// updates for one rule.
func (e *Engine) ruleLock(id string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	l, ok := e.ruleLocks[id]
	if !ok {
		l = &sync.Mutex{}
		e.ruleLocks[id] = l
	}
	return l
}

func (e *Engine) dropRuleLock(id string) {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	delete(e.ruleLocks, id)
}

func (e *Engine) recordEvent(kind, refID, camera string, chatID int64, outcome, detail string) {
	if e.history == nil {
		return
	}
	if err := e.history.Record(&storage.Event{
		Kind:    kind,
		RefID:   refID,
		Camera:  camera,
		ChatID:  chatID,
		Outcome: outcome,
		Detail:  detail,
	}); err != nil {
		log.Printf("Failed to record %s event for %s: %v", kind, refID, err)
	}
}
