// Package publish watches for the daily BhavCopy release. On each scheduled
// run it recomputes the latest available trading day and, when that day
// changes, announces it to WebSocket clients and notifiers.
package publish

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"bhavcopy-calendar/internal/gateway"
	"bhavcopy-calendar/internal/markethours"
	"bhavcopy-calendar/internal/metrics"
	"bhavcopy-calendar/internal/notification"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule fires at the publish cutoff on weekdays.
const DefaultSchedule = "30 17 * * 1-5"

// Publisher receives latest-day events.
type Publisher interface {
	Publish(ctx context.Context, ev gateway.Event) error
}

// Watcher computes and announces the latest available trading day.
type Watcher struct {
	// Calendar returns the calendar currently in force. It is called on
	// every run so a reloaded holiday table takes effect.
	Calendar  func() *markethours.Calendar
	Publisher Publisher
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Clock     markethours.Clock

	mu         sync.Mutex
	last       time.Time
	warnedYear int
}

// Check runs one publication pass and returns the latest available day.
func (w *Watcher) Check(ctx context.Context) (time.Time, error) {
	cal := w.Calendar()
	clock := w.Clock
	if clock == nil {
		clock = markethours.SystemClock{}
	}
	now := clock.Now().In(markethours.IST)
	day := cal.LatestAvailableTradingDay(now)

	if w.Metrics != nil {
		w.Metrics.PublishRuns.Inc()
		w.Metrics.SetLatestDay(markethours.FormatYMD(day))
	}
	if w.Health != nil {
		w.Health.SetLastPublish(now)
	}

	w.coverageWarning(ctx, cal, now)

	w.mu.Lock()
	changed := !w.last.Equal(day)
	w.last = day
	w.mu.Unlock()
	if !changed {
		return day, nil
	}

	iso := markethours.FormatISO(day)
	log.Printf("[publish] latest available day %s", iso)

	var errs []error
	if w.Publisher != nil {
		ev := gateway.Event{
			Type:   gateway.EventLatest,
			Day:    iso,
			Status: cal.Status(day).String(),
			TS:     now,
		}
		if err := w.Publisher.Publish(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("publish event: %w", err))
		}
	}
	if w.Notifier != nil {
		alert := notification.Alert{
			Level:   notification.AlertInfo,
			Title:   "BhavCopy available",
			Message: "End-of-day files for " + markethours.FormatHuman(day) + " are published.",
			Day:     iso,
		}
		if err := w.Notifier.Send(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	}
	if len(errs) > 0 {
		return day, errs[0]
	}
	return day, nil
}

// coverageWarning alerts once per year when the holiday table lacks the
// current year, or next year during December.
func (w *Watcher) coverageWarning(ctx context.Context, cal *markethours.Calendar, now time.Time) {
	missing := 0
	switch table := cal.Holidays(); {
	case !table.HasYear(now.Year()):
		missing = now.Year()
	case now.Month() == time.December && !table.HasYear(now.Year()+1):
		missing = now.Year() + 1
	}
	if missing == 0 {
		return
	}

	w.mu.Lock()
	if w.warnedYear == missing {
		w.mu.Unlock()
		return
	}
	w.warnedYear = missing
	w.mu.Unlock()

	log.Printf("[publish] WARNING: holiday table has no entry for %d", missing)
	if w.Notifier == nil {
		return
	}
	alert := notification.Alert{
		Level:   notification.AlertWarning,
		Title:   "Holiday table incomplete",
		Message: fmt.Sprintf("No exchange holidays loaded for %d; every weekday will be treated as a market day.", missing),
	}
	if err := w.Notifier.Send(ctx, alert); err != nil {
		log.Printf("[publish] coverage alert: %v", err)
	}
}

// Start schedules Check on schedule (a five-field cron expression evaluated
// in IST) and runs it once immediately. Stop the returned scheduler on
// shutdown.
func (w *Watcher) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(markethours.IST))
	_, err := c.AddFunc(schedule, func() {
		if _, err := w.Check(ctx); err != nil {
			log.Printf("[publish] check: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("publish schedule %q: %w", schedule, err)
	}
	if _, err := w.Check(ctx); err != nil {
		log.Printf("[publish] initial check: %v", err)
	}
	c.Start()
	return c, nil
}
