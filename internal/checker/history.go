package checker

import (
	"sync"
	"time"
)

// historyCap bounds the per-target log. The 1001st record evicts the oldest.
const historyCap = 1000

// HistoryRecord is the narrowed projection of an outcome kept in the
// per-target log and in exported snapshots.
type HistoryRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs float64   `json:"response_time_ms"`
	Error          string    `json:"error,omitempty"`
}

// historyLog keeps an append-ordered, capped record list per target.
type historyLog struct {
	mu      sync.Mutex
	cap     int
	records map[string][]HistoryRecord
}

func newHistoryLog(cap int) *historyLog {
	return &historyLog{cap: cap, records: make(map[string][]HistoryRecord)}
}

func (h *historyLog) append(target string, rec HistoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	log := append(h.records[target], rec)
	if len(log) > h.cap {
		trimmed := make([]HistoryRecord, h.cap)
		copy(trimmed, log[len(log)-h.cap:])
		log = trimmed
	}
	h.records[target] = log
}

// query returns records at or after since, oldest first. A zero since
// returns everything. The result is always a copy.
func (h *historyLog) query(target string, since time.Time) []HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	log := h.records[target]
	if since.IsZero() {
		out := make([]HistoryRecord, len(log))
		copy(out, log)
		return out
	}
	out := make([]HistoryRecord, 0, len(log))
	for _, rec := range log {
		if !rec.Timestamp.Before(since) {
			out = append(out, rec)
		}
	}
	return out
}

func (h *historyLog) snapshotAll() map[string][]HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string][]HistoryRecord, len(h.records))
	for target, log := range h.records {
		cp := make([]HistoryRecord, len(log))
		copy(cp, log)
		out[target] = cp
	}
	return out
}

// replace swaps in a whole new record set, re-applying the cap.
func (h *historyLog) replace(records map[string][]HistoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = make(map[string][]HistoryRecord, len(records))
	for target, log := range records {
		cp := make([]HistoryRecord, len(log))
		copy(cp, log)
		if len(cp) > h.cap {
			cp = cp[len(cp)-h.cap:]
		}
		h.records[target] = cp
	}
}

func (h *historyLog) clear() {
	h.mu.Lock()
	h.records = make(map[string][]HistoryRecord)
	h.mu.Unlock()
}
