package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tazhate/camerabot/internal/storage"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fakeSnapshots struct {
	mu    sync.Mutex
	img   []byte
	errs  []error // popped per call, nil entry = success
	calls int
}

func (f *fakeSnapshots) Snapshot(_ context.Context, camera string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.img, nil
}

type fakeVision struct {
	mu     sync.Mutex
	answer string
	err    error
	calls  int
}

func (f *fakeVision) Query(_ context.Context, image []byte, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type sent struct {
	chatID int64
	text   string
}

type fakeDispatcher struct {
	mu       sync.Mutex
	messages []sent
	photos   []sent
	sendErr  error
}

func (f *fakeDispatcher) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, sent{chatID, text})
	return nil
}

func (f *fakeDispatcher) SendPhoto(chatID int64, caption string, photo []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}
	f.photos = append(f.photos, sent{chatID, caption})
	return nil
}

func (f *fakeDispatcher) photoCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.photos)
}

func (f *fakeDispatcher) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

const testChat int64 = 100

// newTestEngine wires an engine with fakes around a store in a temp dir.
func newTestEngine(t *testing.T) (*Engine, *storage.Store, *fakeSnapshots, *fakeVision, *fakeDispatcher, *fakeClock) {
	t.Helper()

	store := storage.NewStore(filepath.Join(t.TempDir(), "schedules.json"))
	snaps := &fakeSnapshots{img: []byte("jpeg")}
	vis := &fakeVision{answer: "YES, there is a person"}
	disp := &fakeDispatcher{}
	clock := &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}

	e := New(store, nil, snaps, vis, time.UTC, "front", []int64{testChat})
	e.SetDispatcher(disp)
	e.now = clock.Now

	return e, store, snaps, vis, disp, clock
}
