package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/webwatch/webwatch/internal/checker"
)

func TestNewWatcher_RejectsNonPositiveInterval(t *testing.T) {
	chk := checker.New(checker.Options{})
	for _, interval := range []time.Duration{0, -time.Second} {
		if _, err := NewWatcher(nil, chk, NewRegistry(), nil, interval); err == nil {
			t.Fatalf("want error for interval %s", interval)
		}
	}
}

func TestWatcher_RunChecksRegisteredTargets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := NewRegistry()
	if _, err := reg.Add(srv.URL); err != nil {
		t.Fatalf("Add: %v", err)
	}

	chk := checker.New(checker.Options{Timeout: time.Second, CacheTTL: time.Nanosecond})
	w, err := NewWatcher(nil, chk, reg, nil, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx) // returns when ctx expires

	s := chk.Statistics(srv.URL)
	if s.TotalChecks < 2 {
		t.Fatalf("want immediate pass plus ticks, got %d checks", s.TotalChecks)
	}
	if s.UptimePercentage != 100 {
		t.Fatalf("want healthy target, got %+v", s)
	}
}

func TestWatcher_EmptyRegistryIdles(t *testing.T) {
	chk := checker.New(checker.Options{Timeout: time.Second})
	w, err := NewWatcher(nil, chk, NewRegistry(), nil, 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	w.Run(ctx) // must return promptly and not panic
}

func TestWatcher_DownTargetsReachAlerter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reg := NewRegistry()
	if _, err := reg.Add(srv.URL); err != nil {
		t.Fatal(err)
	}

	nt := &memNotifier{}
	al := NewAlerter(nil, nt, AlerterConfig{Cooldown: time.Hour})
	chk := checker.New(checker.Options{Timeout: time.Second, CacheTTL: time.Minute})
	w, err := NewWatcher(nil, chk, reg, al, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	w.runOnce(context.Background())

	if len(nt.titles) != 1 {
		t.Fatalf("want one down alert, got %d", len(nt.titles))
	}
}
