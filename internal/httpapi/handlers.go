package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webwatch/webwatch/internal/checker"
	"github.com/webwatch/webwatch/internal/monitor"
	"github.com/webwatch/webwatch/internal/validate"
)

// Bulk requests beyond this are rejected outright.
const maxBulkTargets = 100

type urlPayload struct {
	URL string `json:"url"`
}

type bulkPayload struct {
	URLs []string `json:"urls"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var p urlPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	target := validate.Normalize(strings.TrimSpace(p.URL))
	if !validate.IsValidURL(target) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid url %q", p.URL))
		return
	}
	out := s.checker.Check(r.Context(), target)
	writeJSON(w, http.StatusOK, map[string]any{"url": target, "result": out})
}

func (s *Server) handleBulkCheck(w http.ResponseWriter, r *http.Request) {
	var p bulkPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if len(p.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "no urls")
		return
	}
	if len(p.URLs) > maxBulkTargets {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many urls (max %d)", maxBulkTargets))
		return
	}

	// All-or-nothing validation: one bad URL fails the whole batch before
	// any probe runs.
	targets := make([]string, 0, len(p.URLs))
	for _, raw := range p.URLs {
		t := validate.Normalize(strings.TrimSpace(raw))
		if !validate.IsValidURL(t) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid url %q", raw))
			return
		}
		targets = append(targets, t)
	}

	results := s.checker.BulkCheck(r.Context(), targets)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.All())
}

func (s *Server) handleAddTarget(w http.ResponseWriter, r *http.Request) {
	var p urlPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	entry, err := s.registry.Add(p.URL)
	switch {
	case errors.Is(err, monitor.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, monitor.ErrExists):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "could not add target")
		return
	}

	// One synchronous check for immediate feedback.
	out := s.checker.Check(r.Context(), entry.URL)
	s.log.Info("target_added",
		zap.String("url", entry.URL),
		zap.Bool("up", out.Up()),
		zap.Float64("response_time_ms", out.ResponseTimeMs),
	)
	writeJSON(w, http.StatusOK, map[string]any{"target": entry, "result": out})
}

func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	if err := s.registry.Remove(url); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Info("target_removed", zap.String("url", url))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) targetParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return "", false
	}
	return validate.Normalize(strings.TrimSpace(raw)), true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	target, ok := s.targetParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":   target,
		"stats": s.checker.Statistics(target),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	target, ok := s.targetParam(w, r)
	if !ok {
		return
	}
	var within time.Duration
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			writeError(w, http.StatusBadRequest, "bad days parameter")
			return
		}
		within = time.Duration(days) * 24 * time.Hour
	}
	records := s.checker.History(target, within)
	if records == nil {
		records = []checker.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": target, "history": records})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	target, ok := s.targetParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":          target,
		"health_score": s.checker.HealthScore(target),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.checker.Export(w); err != nil {
		s.log.Error("export_failed", zap.Error(err))
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := s.checker.Import(r.Body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("state_imported")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.checker.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArchiveSave(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured")
		return
	}
	if err := s.archive.Save(r.Context(), s.checker.Snapshot()); err != nil {
		s.log.Error("archive_save_failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "archive save failed")
		return
	}
	s.log.Info("archive_saved")
	w.WriteHeader(http.StatusNoContent)
}
