package bot

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type motionEvent struct {
	Camera string `json:"camera"`
	TS     int64  `json:"ts,omitempty"` // unix seconds, 0 = now
}

// handleMotion receives motion notifications from the camera hub and feeds
// them into the alert engine.
func (b *Bot) handleMotion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if b.cfg.MotionSecret != "" && r.Header.Get("X-Motion-Secret") != b.cfg.MotionSecret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var ev motionEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if ev.Camera == "" {
		http.Error(w, "camera is required", http.StatusBadRequest)
		return
	}

	var at time.Time
	if ev.TS > 0 {
		at = time.Unix(ev.TS, 0)
	}

	log.Printf("Motion event: camera %s", ev.Camera)
	b.engine.OnMotion(ev.Camera, at)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
