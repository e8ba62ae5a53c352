package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/webwatch/webwatch/internal/checker"
)

var (
	watchCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webwatch_watch_cycles_total",
		Help: "Completed watch passes.",
	})
	watchProbes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webwatch_watch_probes_total",
		Help: "Probe outcomes observed by the watcher, cached or fresh.",
	})
	watchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webwatch_watch_failures_total",
		Help: "Watcher observations that were transport failures.",
	})
	watchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webwatch_watch_latency_seconds",
		Help:    "Latency of timed watcher observations.",
		Buckets: prometheus.DefBuckets,
	})
	watchTargets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webwatch_watch_targets",
		Help: "Targets currently registered for watching.",
	})
)

// Watcher re-checks every registered target on a fixed interval. Passes go
// through the checker and therefore through its result cache: an interval
// shorter than the cache TTL re-serves cached outcomes instead of probing.
type Watcher struct {
	log      *zap.Logger
	checker  *checker.Checker
	registry *Registry
	alerter  *Alerter // optional
	interval time.Duration
}

func NewWatcher(log *zap.Logger, chk *checker.Checker, reg *Registry, alerter *Alerter, interval time.Duration) (*Watcher, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		log:      log,
		checker:  chk,
		registry: reg,
		alerter:  alerter,
		interval: interval,
	}, nil
}

// Run does an immediate pass, then one per tick until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	w.log.Info("watcher_started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("watcher_stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	urls := w.registry.URLs()
	watchTargets.Set(float64(len(urls)))
	if len(urls) == 0 {
		return
	}

	results := w.checker.BulkCheck(ctx, urls)
	for url, out := range results {
		watchProbes.Inc()
		if out.Failed() {
			watchFailures.Inc()
		}
		if out.ResponseTimeMs > 0 {
			watchLatency.Observe(out.ResponseTimeMs / 1000)
		}
		w.log.Debug("watch_checked",
			zap.String("target", url),
			zap.Int("status", out.StatusCode),
			zap.Float64("latency_ms", out.ResponseTimeMs),
			zap.String("error", out.Error),
		)
	}
	if w.alerter != nil {
		w.alerter.Observe(ctx, results)
	}
	watchCycles.Inc()
}
