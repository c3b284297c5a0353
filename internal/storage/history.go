package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	EventAlert    = "alert"
	EventReminder = "reminder"
)

// Event is one firing attempt, alert or reminder, kept for /history.
type Event struct {
	ID        int64
	Kind      string
	RefID     string // rule or schedule id
	Camera    string
	ChatID    int64
	Outcome   string // "ok" or "error"
	Detail    string
	CreatedAt time.Time
}

type History struct {
	db *sql.DB
}

func OpenHistory(dbPath string) (*History, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	h := &History{db: db}
	if err := h.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return h, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			ref_id TEXT NOT NULL,
			camera TEXT DEFAULT '',
			chat_id INTEGER DEFAULT 0,
			outcome TEXT NOT NULL,
			detail TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ref_id ON events(ref_id)`,
	}

	for _, m := range migrations {
		if _, err := h.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

func (h *History) Record(e *Event) error {
	_, err := h.db.Exec(
		`INSERT INTO events (kind, ref_id, camera, chat_id, outcome, detail, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.RefID, e.Camera, e.ChatID, e.Outcome, e.Detail, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (h *History) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := h.db.Query(
		`SELECT id, kind, ref_id, camera, chat_id, outcome, detail, created_at
		 FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.Kind, &e.RefID, &e.Camera, &e.ChatID, &e.Outcome, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
