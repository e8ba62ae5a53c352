// Package checker owns the probing pipeline: one facade in front of the
// prober, the TTL result cache, the capped history log and the per-target
// metric aggregates.
package checker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/webwatch/webwatch/internal/probe"
)

const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultMaxConcurrent = 10
)

// Options configure a Checker. Zero values fall back to the documented
// defaults; a nil Logger means silent.
type Options struct {
	Timeout            time.Duration
	MaxRedirects       int
	InsecureSkipVerify bool
	CacheTTL           time.Duration
	MaxConcurrent      int
	Logger             *zap.Logger
}

// Checker probes targets and keeps every piece of derived state for them.
// Instances are independent: two Checkers share nothing, and all methods
// are safe for concurrent use.
type Checker struct {
	prober        *probe.Prober
	cache         *resultCache
	history       *historyLog
	metrics       *metricsMap
	log           *zap.Logger
	maxConcurrent int

	now func() time.Time
}

func New(opts Options) *Checker {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		prober: probe.New(probe.Options{
			Timeout:            opts.Timeout,
			MaxRedirects:       opts.MaxRedirects,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		}),
		cache:         newResultCache(opts.CacheTTL),
		history:       newHistoryLog(historyCap),
		metrics:       newMetricsMap(),
		log:           log,
		maxConcurrent: opts.MaxConcurrent,
		now:           time.Now,
	}
}

// Check returns the outcome for target, serving a cached one when it is
// still fresh. A cache hit is returned as-is and leaves history and metrics
// untouched. On a miss the probe runs, and its outcome, success or failure,
// is cached and folded into history and metrics before being returned.
func (c *Checker) Check(ctx context.Context, target string) probe.Outcome {
	if out, ok := c.cache.get(target, c.now()); ok {
		c.log.Debug("cache_hit", zap.String("target", target))
		return out
	}

	out := c.prober.Do(ctx, target)
	now := c.now()
	c.cache.put(target, out, now)
	c.metrics.update(target, out, now)
	c.history.append(target, HistoryRecord{
		Timestamp:      now,
		StatusCode:     out.StatusCode,
		ResponseTimeMs: out.ResponseTimeMs,
		Error:          out.Error,
	})

	c.log.Debug("target_checked",
		zap.String("target", target),
		zap.Int("status", out.StatusCode),
		zap.Float64("latency_ms", out.ResponseTimeMs),
		zap.String("error", out.Error),
	)
	return out
}

// Statistics returns the derived aggregate for target. Unknown targets get
// a zeroed snapshot, not an error.
func (c *Checker) Statistics(target string) Stats {
	return c.metrics.snapshot(target)
}

// History returns the records for target no older than within, oldest
// first. A non-positive within returns the whole log.
func (c *Checker) History(target string, within time.Duration) []HistoryRecord {
	var since time.Time
	if within > 0 {
		since = c.now().Add(-within)
	}
	return c.history.query(target, since)
}

// HealthScore grades target 0..100 from its aggregate; a target with no
// completed checks scores 0.
func (c *Checker) HealthScore(target string) float64 {
	return c.metrics.healthScore(target)
}

// ClearAll drops history, metrics and cached outcomes for every target.
func (c *Checker) ClearAll() {
	c.cache.clear()
	c.history.clear()
	c.metrics.clear()
	c.log.Info("state_cleared")
}
