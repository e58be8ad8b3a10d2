package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bhavcopy-calendar/internal/gateway"
	"bhavcopy-calendar/internal/markethours"
	"bhavcopy-calendar/internal/metrics"
	"bhavcopy-calendar/internal/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []gateway.Event
	alerts []notification.Alert
	err    error
}

func (r *recorder) Publish(ctx context.Context, ev gateway.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) Send(ctx context.Context, a notification.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newWatcher(now time.Time, table markethours.HolidayTable) (*Watcher, *recorder, *clock) {
	rec := &recorder{}
	clk := &clock{t: now}
	cal := markethours.New(table, markethours.WithClock(clk))
	w := &Watcher{
		Calendar:  func() *markethours.Calendar { return cal },
		Publisher: rec,
		Notifier:  rec,
		Metrics:   metrics.NewMetrics(prometheus.NewRegistry()),
		Health:    metrics.NewHealthStatus("memory"),
		Clock:     clk,
	}
	return w, rec, clk
}

func TestCheckAnnouncesOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	w, rec, clk := newWatcher(time.Date(2025, 10, 20, 17, 0, 0, 0, markethours.IST), markethours.DefaultHolidays())

	day, err := w.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := markethours.FormatISO(day); got != "2025-10-17" {
		t.Fatalf("before cutoff day = %s", got)
	}

	// Same day again: nothing new to announce.
	if _, err := w.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 1 || len(rec.alerts) != 1 {
		t.Fatalf("events=%d alerts=%d, want 1 each", len(rec.events), len(rec.alerts))
	}

	clk.t = time.Date(2025, 10, 20, 17, 30, 0, 0, markethours.IST)
	if _, err := w.Check(ctx); err != nil {
		t.Fatal(err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("events = %d after cutoff", len(rec.events))
	}
	ev := rec.events[1]
	if ev.Type != gateway.EventLatest || ev.Day != "2025-10-20" || ev.Status != "market_day" {
		t.Errorf("event = %+v", ev)
	}
	if rec.alerts[1].Day != "2025-10-20" || rec.alerts[1].Level != notification.AlertInfo {
		t.Errorf("alert = %+v", rec.alerts[1])
	}

	if v := testutil.ToFloat64(w.Metrics.PublishRuns); v != 3 {
		t.Errorf("publish runs = %v", v)
	}
	if v := testutil.ToFloat64(w.Metrics.LatestAvailableDay); v != 20251020 {
		t.Errorf("latest gauge = %v", v)
	}
}

func TestCheckOnHoliday(t *testing.T) {
	w, rec, _ := newWatcher(time.Date(2025, 10, 21, 19, 0, 0, 0, markethours.IST), markethours.DefaultHolidays())
	day, err := w.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := markethours.FormatISO(day); got != "2025-10-20" {
		t.Errorf("day = %s", got)
	}
	if len(rec.events) != 1 {
		t.Errorf("events = %d", len(rec.events))
	}
}

func TestCheckReturnsPublishError(t *testing.T) {
	w, rec, _ := newWatcher(time.Date(2025, 10, 20, 18, 0, 0, 0, markethours.IST), markethours.DefaultHolidays())
	rec.err = errors.New("redis down")
	if _, err := w.Check(context.Background()); err == nil {
		t.Error("expected publish error")
	}
	if len(rec.alerts) != 1 {
		t.Error("notifier should still run when publishing fails")
	}
}

func TestCoverageWarningOncePerYear(t *testing.T) {
	ctx := context.Background()
	w, rec, clk := newWatcher(time.Date(2030, 3, 4, 18, 0, 0, 0, markethours.IST), markethours.DefaultHolidays())

	if _, err := w.Check(ctx); err != nil {
		t.Fatal(err)
	}
	clk.t = clk.t.AddDate(0, 0, 1)
	if _, err := w.Check(ctx); err != nil {
		t.Fatal(err)
	}

	warnings := 0
	for _, a := range rec.alerts {
		if a.Level == notification.AlertWarning {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
}

func TestCoverageWarningNextYearInDecember(t *testing.T) {
	table := markethours.MustHolidayTable(nil, 2025)
	w, rec, _ := newWatcher(time.Date(2025, 12, 15, 18, 0, 0, 0, markethours.IST), table)
	if _, err := w.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, a := range rec.alerts {
		if a.Level == notification.AlertWarning {
			found = true
		}
	}
	if !found {
		t.Error("expected warning for missing 2026")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	w, _, _ := newWatcher(time.Date(2025, 10, 20, 18, 0, 0, 0, markethours.IST), markethours.DefaultHolidays())
	if _, err := w.Start(context.Background(), "nope"); err == nil {
		t.Error("expected error")
	}
}

func TestStartRunsInitialCheck(t *testing.T) {
	w, rec, _ := newWatcher(time.Date(2025, 10, 20, 18, 0, 0, 0, markethours.IST), markethours.DefaultHolidays())
	c, err := w.Start(context.Background(), DefaultSchedule)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()
	if len(c.Entries()) != 1 {
		t.Errorf("entries = %d", len(c.Entries()))
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 || rec.events[0].Day != "2025-10-20" {
		t.Errorf("events = %+v", rec.events)
	}
}
