package checker

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Snapshot is the persisted document: the full history log and metric
// aggregates keyed by target, plus the moment the snapshot was taken.
// Timestamps travel as RFC 3339 strings.
type Snapshot struct {
	History    map[string][]HistoryRecord `json:"history"`
	Metrics    map[string]TargetMetrics   `json:"metrics"`
	ExportDate time.Time                  `json:"export_date"`
}

// Validate checks the parts of a snapshot that Restore cannot tolerate.
// Every history record must carry a timestamp; a metrics entry may have a
// null last_check (a restored target that was imported but never probed).
func (s *Snapshot) Validate() error {
	for target, log := range s.History {
		for i, rec := range log {
			if rec.Timestamp.IsZero() {
				return fmt.Errorf("history record %d for %q: missing timestamp", i, target)
			}
		}
	}
	return nil
}

// Snapshot returns a deep copy of the current history and metrics.
func (c *Checker) Snapshot() *Snapshot {
	return &Snapshot{
		History:    c.history.snapshotAll(),
		Metrics:    c.metrics.snapshotAll(),
		ExportDate: c.now().UTC(),
	}
}

// Restore validates snap and replaces history and metrics with its
// contents. On error nothing changes. Cached outcomes are not part of a
// snapshot and are left alone.
func (c *Checker) Restore(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	c.history.replace(snap.History)
	c.metrics.replace(snap.Metrics)
	c.log.Info("state_restored", zap.Int("targets", len(snap.Metrics)))
	return nil
}

// Export writes the current snapshot as indented JSON.
func (c *Checker) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.Snapshot()); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// Import reads a snapshot document and replaces all state with it. The
// document is parsed and validated in full before anything is touched;
// malformed JSON or a record without a valid timestamp fails the import and
// leaves current state unchanged.
func (c *Checker) Import(r io.Reader) error {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("import: parse document: %w", err)
	}
	if err := c.Restore(&snap); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}
