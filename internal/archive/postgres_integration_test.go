//go:build integration

package archive

// go test -tags=integration ./internal/archive -run PostgresRoundTrip -count=1

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/webwatch/webwatch/internal/checker"
)

func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL empty")
	}
	ctx := context.Background()
	st, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	last := base.Add(time.Minute)
	want := &checker.Snapshot{
		History: map[string][]checker.HistoryRecord{
			"https://a.example.com": {
				{Timestamp: base, StatusCode: 200, ResponseTimeMs: 41.5},
				{Timestamp: last, StatusCode: -1, ResponseTimeMs: -1, Error: "connection refused"},
			},
		},
		Metrics: map[string]checker.TargetMetrics{
			"https://a.example.com": {
				Checks: 2, Successful: 1, Failed: 1,
				TotalResponseTimeMs: 41.5,
				MinResponseTimeMs:   41.5,
				MaxResponseTimeMs:   41.5,
				LastCheck:           &last,
				UptimePercentage:    50,
			},
			"https://never-timed.example.com": {
				Checks: 1, Failed: 1,
				MinResponseTimeMs: math.Inf(1),
			},
		},
		ExportDate: base.Add(time.Hour),
	}

	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	log := got.History["https://a.example.com"]
	if len(log) != 2 || log[0].StatusCode != 200 || log[1].Error != "connection refused" {
		t.Fatalf("unexpected history: %+v", log)
	}
	if !log[0].Timestamp.Equal(base) {
		t.Fatalf("want ts %v, got %v", base, log[0].Timestamp)
	}

	m := got.Metrics["https://a.example.com"]
	if m.Checks != 2 || m.MinResponseTimeMs != 41.5 || m.LastCheck == nil || !m.LastCheck.Equal(last) {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	nt := got.Metrics["https://never-timed.example.com"]
	if !math.IsInf(nt.MinResponseTimeMs, 1) || nt.LastCheck != nil {
		t.Fatalf("sentinel lost in round trip: %+v", nt)
	}
	if !got.ExportDate.Equal(want.ExportDate) {
		t.Fatalf("want export date %v, got %v", want.ExportDate, got.ExportDate)
	}
}
