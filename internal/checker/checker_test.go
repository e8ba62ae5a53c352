package checker

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

// countingServer returns a test server plus a pointer to its request count.
func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func ok200(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// deadTarget returns a URL on a port nothing listens on.
func deadTarget(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return "http://" + addr
}

func TestCheck_RecordsHistoryAndMetrics(t *testing.T) {
	srv, _ := countingServer(t, ok200)

	// Nanosecond TTL: every Check really probes.
	c := New(Options{Timeout: 2 * time.Second, CacheTTL: time.Nanosecond})
	for i := 0; i < 3; i++ {
		out := c.Check(context.Background(), srv.URL)
		if out.StatusCode != 200 {
			t.Fatalf("check %d: want 200, got %d", i, out.StatusCode)
		}
	}

	s := c.Statistics(srv.URL)
	if s.TotalChecks != 3 {
		t.Fatalf("want 3 checks, got %d", s.TotalChecks)
	}
	if s.SuccessRate != 100 || s.UptimePercentage != 100 {
		t.Fatalf("want fully up, got %+v", s)
	}
	if s.MinResponseTimeMs <= 0 || s.MaxResponseTimeMs < s.MinResponseTimeMs {
		t.Fatalf("implausible latency bounds: %+v", s)
	}
	if got := c.History(srv.URL, 0); len(got) != 3 {
		t.Fatalf("want 3 history records, got %d", len(got))
	}
}

func TestCheck_CacheHitSkipsProbeAndBookkeeping(t *testing.T) {
	srv, hits := countingServer(t, ok200)

	c := New(Options{Timeout: 2 * time.Second, CacheTTL: time.Minute})
	first := c.Check(context.Background(), srv.URL)
	second := c.Check(context.Background(), srv.URL)

	if n := atomic.LoadInt64(hits); n != 1 {
		t.Fatalf("want exactly 1 probe, server saw %d", n)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached outcome must be identical:\nfirst  %+v\nsecond %+v", first, second)
	}
	if s := c.Statistics(srv.URL); s.TotalChecks != 1 {
		t.Fatalf("cache hit must not count as a check, got %d", s.TotalChecks)
	}
	if got := c.History(srv.URL, 0); len(got) != 1 {
		t.Fatalf("cache hit must not append history, got %d records", len(got))
	}
}

func TestCheck_CacheExpiryTriggersReprobe(t *testing.T) {
	srv, hits := countingServer(t, ok200)

	c := New(Options{Timeout: 2 * time.Second, CacheTTL: time.Minute})
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Check(context.Background(), srv.URL)
	current = current.Add(time.Minute) // exactly at TTL: expired
	c.Check(context.Background(), srv.URL)

	if n := atomic.LoadInt64(hits); n != 2 {
		t.Fatalf("want reprobe after expiry, server saw %d", n)
	}
	if s := c.Statistics(srv.URL); s.TotalChecks != 2 {
		t.Fatalf("want 2 recorded checks, got %d", s.TotalChecks)
	}
}

func TestCheck_FailureIsRecordedAndCached(t *testing.T) {
	dead := deadTarget(t)

	c := New(Options{Timeout: time.Second, CacheTTL: time.Minute})
	out := c.Check(context.Background(), dead)
	if !out.Failed() {
		t.Fatalf("want transport failure, got %+v", out)
	}

	s := c.Statistics(dead)
	if s.TotalChecks != 1 || s.UptimePercentage != 0 {
		t.Fatalf("failure not folded into metrics: %+v", s)
	}
	recs := c.History(dead, 0)
	if len(recs) != 1 || recs[0].Error == "" {
		t.Fatalf("failure not recorded in history: %+v", recs)
	}

	// Second check within TTL serves the cached failure and records nothing.
	c.Check(context.Background(), dead)
	if s := c.Statistics(dead); s.TotalChecks != 1 {
		t.Fatalf("cached failure recounted: %d", s.TotalChecks)
	}
}

func TestCheck_UptimeIsExactRatio(t *testing.T) {
	var n int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&n, 1)%4 == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Options{Timeout: 2 * time.Second, CacheTTL: time.Nanosecond})
	for i := 0; i < 4; i++ {
		c.Check(context.Background(), srv.URL)
	}

	s := c.Statistics(srv.URL)
	if s.UptimePercentage != 75 {
		t.Fatalf("want uptime exactly 75, got %f", s.UptimePercentage)
	}
	if s.SuccessRate != 75 {
		t.Fatalf("want success rate exactly 75, got %f", s.SuccessRate)
	}
}

func TestStatistics_UnknownTarget(t *testing.T) {
	c := New(Options{})
	s := c.Statistics("https://never-checked.example.com")
	if !reflect.DeepEqual(s, Stats{}) {
		t.Fatalf("want zero snapshot, got %+v", s)
	}
	if score := c.HealthScore("https://never-checked.example.com"); score != 0 {
		t.Fatalf("want score 0, got %f", score)
	}
}

func TestHistory_WindowFiltering(t *testing.T) {
	srv, _ := countingServer(t, ok200)

	c := New(Options{Timeout: 2 * time.Second, CacheTTL: time.Nanosecond})
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Check(context.Background(), srv.URL) // recorded at current
	current = current.Add(48 * time.Hour)
	c.Check(context.Background(), srv.URL) // recorded two days later

	if got := c.History(srv.URL, 0); len(got) != 2 {
		t.Fatalf("want full log, got %d", len(got))
	}
	if got := c.History(srv.URL, 24*time.Hour); len(got) != 1 {
		t.Fatalf("want 1 record within a day, got %d", len(got))
	}
}

func TestClearAll_DropsEverything(t *testing.T) {
	srv, hits := countingServer(t, ok200)

	c := New(Options{Timeout: 2 * time.Second, CacheTTL: time.Minute})
	c.Check(context.Background(), srv.URL)
	c.ClearAll()

	if s := c.Statistics(srv.URL); s.TotalChecks != 0 {
		t.Fatalf("metrics survived clear: %+v", s)
	}
	if got := c.History(srv.URL, 0); len(got) != 0 {
		t.Fatalf("history survived clear: %d records", len(got))
	}

	// The cache is gone too: the next check really probes.
	c.Check(context.Background(), srv.URL)
	if n := atomic.LoadInt64(hits); n != 2 {
		t.Fatalf("want fresh probe after clear, server saw %d", n)
	}
}
