package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/tazhate/camerabot/internal/domain"
)

var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrRuleNotFound     = errors.New("alert rule not found")
)

const snapshotVersion = 1

// Snapshot is the whole durable document: every reminder and alert rule.
type Snapshot struct {
	Version   int                        `json:"version"`
	Reminders []*domain.ReminderSchedule `json:"reminders"`
	Rules     []*domain.AlertRule        `json:"alert_rules"`
}

// Store keeps schedules and alert rules in a single JSON file. Every write
// replaces the file atomically (temp file + rename), and every mutation is a
// locked read-modify-write so concurrent timers cannot drop each other's
// updates.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the current snapshot. A missing or unreadable file is a valid
// first-start condition and yields an empty snapshot.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(snap)
}

func (s *Store) load() (*Snapshot, error) {
	snap := &Snapshot{Version: snapshotVersion}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Cannot read %s, starting empty: %v", s.path, err)
		}
		return snap, nil
	}

	if err := json.Unmarshal(data, snap); err != nil {
		log.Printf("Corrupt schedule file %s, starting empty: %v", s.path, err)
		return &Snapshot{Version: snapshotVersion}, nil
	}
	return snap, nil
}

func (s *Store) save(snap *Snapshot) error {
	snap.Version = snapshotVersion

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) AddReminder(r *domain.ReminderSchedule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	snap.Reminders = append(snap.Reminders, r)
	return s.save(snap)
}

// UpdateReminder applies fn to the stored copy and persists the result.
func (s *Store) UpdateReminder(id string, fn func(*domain.ReminderSchedule) error) (*domain.ReminderSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range snap.Reminders {
		if r.ID != id {
			continue
		}
		if err := fn(r); err != nil {
			return nil, err
		}
		if err := s.save(snap); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, ErrReminderNotFound
}

func (s *Store) GetReminder(id string) (*domain.ReminderSchedule, error) {
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, r := range snap.Reminders {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrReminderNotFound
}

func (s *Store) AddRule(r *domain.AlertRule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	snap.Rules = append(snap.Rules, r)
	return s.save(snap)
}

// UpdateRule applies fn to the stored copy and persists the result.
func (s *Store) UpdateRule(id string, fn func(*domain.AlertRule) error) (*domain.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, r := range snap.Rules {
		if r.ID != id {
			continue
		}
		if err := fn(r); err != nil {
			return nil, err
		}
		if err := s.save(snap); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, ErrRuleNotFound
}

func (s *Store) DeleteRule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	for i, r := range snap.Rules {
		if r.ID == id {
			snap.Rules = append(snap.Rules[:i], snap.Rules[i+1:]...)
			return s.save(snap)
		}
	}
	return ErrRuleNotFound
}

func (s *Store) GetRule(id string) (*domain.AlertRule, error) {
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, r := range snap.Rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrRuleNotFound
}

// RulesForCamera returns every rule bound to the camera, enabled or not.
func (s *Store) RulesForCamera(camera string) ([]*domain.AlertRule, error) {
	snap, err := s.Load()
	if err != nil {
		return nil, err
	}
	var rules []*domain.AlertRule
	for _, r := range snap.Rules {
		if r.Camera == camera {
			rules = append(rules, r)
		}
	}
	return rules, nil
}
