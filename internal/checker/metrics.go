package checker

import (
	"encoding/json"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/webwatch/webwatch/internal/probe"
)

// TargetMetrics is the running aggregate per target. MinResponseTimeMs
// starts at +Inf and MaxResponseTimeMs at 0, so a target that has never
// produced a timed probe reports degenerate bounds. Latency fields only
// fold in samples > 0; failed probes count against uptime but never touch
// the latency aggregates.
type TargetMetrics struct {
	Checks              int64      `json:"checks"`
	Successful          int64      `json:"successful"`
	Failed              int64      `json:"failed"`
	TotalResponseTimeMs float64    `json:"total_response_time_ms"`
	MinResponseTimeMs   float64    `json:"min_response_time_ms"`
	MaxResponseTimeMs   float64    `json:"max_response_time_ms"`
	LastCheck           *time.Time `json:"last_check"`
	UptimePercentage    float64    `json:"uptime_percentage"`
}

// MarshalJSON encodes the +Inf minimum sentinel as null, which
// encoding/json cannot do for a plain float64.
func (m TargetMetrics) MarshalJSON() ([]byte, error) {
	type plain TargetMetrics
	doc := struct {
		plain
		MinResponseTimeMs *float64 `json:"min_response_time_ms"`
	}{plain: plain(m)}
	if !math.IsInf(m.MinResponseTimeMs, 1) {
		v := m.MinResponseTimeMs
		doc.MinResponseTimeMs = &v
	}
	return json.Marshal(doc)
}

// UnmarshalJSON restores a null or absent minimum to the +Inf sentinel.
func (m *TargetMetrics) UnmarshalJSON(b []byte) error {
	type plain TargetMetrics
	doc := struct {
		plain
		MinResponseTimeMs *float64 `json:"min_response_time_ms"`
	}{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	*m = TargetMetrics(doc.plain)
	if doc.MinResponseTimeMs != nil {
		m.MinResponseTimeMs = *doc.MinResponseTimeMs
	} else {
		m.MinResponseTimeMs = math.Inf(1)
	}
	return nil
}

// Stats is the read-side snapshot derived from TargetMetrics. An unknown or
// never-checked target yields the zero value; a known target with no timed
// samples reports 0 for the latency fields.
type Stats struct {
	TotalChecks       int64      `json:"total_checks"`
	SuccessRate       float64    `json:"success_rate"`
	AvgResponseTimeMs float64    `json:"avg_response_time_ms"`
	MinResponseTimeMs float64    `json:"min_response_time_ms"`
	MaxResponseTimeMs float64    `json:"max_response_time_ms"`
	UptimePercentage  float64    `json:"uptime_percentage"`
	LastCheck         *time.Time `json:"last_check,omitempty"`
}

type metricsMap struct {
	mu  sync.Mutex
	agg map[string]*TargetMetrics
}

func newMetricsMap() *metricsMap {
	return &metricsMap{agg: make(map[string]*TargetMetrics)}
}

func newTargetMetrics() *TargetMetrics {
	return &TargetMetrics{
		MinResponseTimeMs: math.Inf(1),
		UptimePercentage:  100,
	}
}

// update folds one completed probe into the target's aggregate. Success is
// strictly status 200. All counters for one outcome move under a single
// lock hold, so readers never see a partially applied update.
func (mm *metricsMap) update(target string, out probe.Outcome, now time.Time) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	m, ok := mm.agg[target]
	if !ok {
		m = newTargetMetrics()
		mm.agg[target] = m
	}
	m.Checks++
	t := now
	m.LastCheck = &t
	if out.StatusCode == http.StatusOK {
		m.Successful++
	} else {
		m.Failed++
	}
	if out.ResponseTimeMs > 0 {
		m.TotalResponseTimeMs += out.ResponseTimeMs
		if out.ResponseTimeMs < m.MinResponseTimeMs {
			m.MinResponseTimeMs = out.ResponseTimeMs
		}
		if out.ResponseTimeMs > m.MaxResponseTimeMs {
			m.MaxResponseTimeMs = out.ResponseTimeMs
		}
	}
	m.UptimePercentage = float64(m.Successful) / float64(m.Checks) * 100
}

func (mm *metricsMap) snapshot(target string) Stats {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	m, ok := mm.agg[target]
	if !ok || m.Checks == 0 {
		return Stats{}
	}
	s := Stats{
		TotalChecks:       m.Checks,
		SuccessRate:       float64(m.Successful) / float64(m.Checks) * 100,
		AvgResponseTimeMs: m.TotalResponseTimeMs / float64(m.Checks),
		MaxResponseTimeMs: m.MaxResponseTimeMs,
		UptimePercentage:  m.UptimePercentage,
	}
	if !math.IsInf(m.MinResponseTimeMs, 1) {
		s.MinResponseTimeMs = m.MinResponseTimeMs
	}
	if m.LastCheck != nil {
		t := *m.LastCheck
		s.LastCheck = &t
	}
	return s
}

func (mm *metricsMap) snapshotAll() map[string]TargetMetrics {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	out := make(map[string]TargetMetrics, len(mm.agg))
	for target, m := range mm.agg {
		cp := *m
		if m.LastCheck != nil {
			t := *m.LastCheck
			cp.LastCheck = &t
		}
		out[target] = cp
	}
	return out
}

func (mm *metricsMap) replace(metrics map[string]TargetMetrics) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.agg = make(map[string]*TargetMetrics, len(metrics))
	for target, m := range metrics {
		cp := m
		if m.LastCheck != nil {
			t := *m.LastCheck
			cp.LastCheck = &t
		}
		mm.agg[target] = &cp
	}
}

func (mm *metricsMap) clear() {
	mm.mu.Lock()
	mm.agg = make(map[string]*TargetMetrics)
	mm.mu.Unlock()
}
