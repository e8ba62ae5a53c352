package monitor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/webwatch/webwatch/internal/notify"
	"github.com/webwatch/webwatch/internal/probe"
)

type AlerterConfig struct {
	// OnRecovery also announces down -> up transitions.
	OnRecovery bool
	// Cooldown suppresses a down alert that follows a recently sent one,
	// keeping a flapping target from paging on every transition.
	Cooldown time.Duration
}

type alertState struct {
	up         bool
	lastSentAt time.Time
}

// Alerter turns watch results into notifications. Alerts fire on state
// transitions only: a target first seen down alerts, a target first seen up
// just sets the baseline, and a steady state never re-alerts.
type Alerter struct {
	log      *zap.Logger
	notifier notify.Notifier
	cfg      AlerterConfig

	mu   sync.Mutex
	seen map[string]*alertState
	now  func() time.Time
}

func NewAlerter(log *zap.Logger, notifier notify.Notifier, cfg AlerterConfig) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Alerter{
		log:      log,
		notifier: notifier,
		cfg:      cfg,
		seen:     make(map[string]*alertState),
		now:      time.Now,
	}
}

// Observe inspects one watch pass worth of results.
func (a *Alerter) Observe(ctx context.Context, results map[string]probe.Outcome) {
	for target, out := range results {
		a.observeOne(ctx, target, out)
	}
}

func (a *Alerter) observeOne(ctx context.Context, target string, out probe.Outcome) {
	up := out.Up()
	now := a.now()

	a.mu.Lock()
	st, known := a.seen[target]
	if !known {
		st = &alertState{up: up}
		a.seen[target] = st
	}
	changed := !known || st.up != up
	cooled := st.lastSentAt.IsZero() || now.Sub(st.lastSentAt) >= a.cfg.Cooldown
	downAlert := changed && !up && cooled
	recoveryAlert := changed && up && known && a.cfg.OnRecovery
	st.up = up
	a.mu.Unlock()

	if !downAlert && !recoveryAlert {
		return
	}

	title, text := a.compose(ctx, target, out, downAlert)
	if err := a.notifier.Send(ctx, title, text); err != nil {
		a.log.Warn("alert_send_failed", zap.String("target", target), zap.Error(err))
	} else {
		a.log.Info("alert_sent", zap.String("target", target), zap.Bool("down", downAlert))
	}

	// Record the attempt either way so a dead webhook is not hammered.
	a.mu.Lock()
	st.lastSentAt = now
	a.mu.Unlock()
}

func (a *Alerter) compose(ctx context.Context, target string, out probe.Outcome, down bool) (title, text string) {
	if !down {
		return "🟢 Target RECOVERED", fmt.Sprintf(
			"URL: %s\nHTTP: %d\nLatency: %.0fms\nChecked: %s",
			target, out.StatusCode, out.ResponseTimeMs, out.Timestamp.UTC().Format(time.RFC3339))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", target)
	if out.Failed() {
		fmt.Fprintf(&b, "Reason: %s\n", out.Error)
		if host := hostOf(target); host != "" {
			diag := probe.DiagnoseDNS(ctx, host)
			fmt.Fprintf(&b, "DNS: %s", diag.Class)
			if diag.CNAME != "" {
				fmt.Fprintf(&b, " (cname %s)", diag.CNAME)
			}
			b.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&b, "HTTP: %d\nLatency: %.0fms\n", out.StatusCode, out.ResponseTimeMs)
	}
	fmt.Fprintf(&b, "Checked: %s", out.Timestamp.UTC().Format(time.RFC3339))
	return "🔴 Target DOWN", b.String()
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
