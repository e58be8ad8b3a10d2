// Package markethours is the NSE/BSE trading calendar: it classifies calendar
// days as market days, weekends, holidays or future dates, steps between
// trading days, and works out which day's end-of-day BhavCopy is already
// published given the 17:30 IST cutoff.
//
// Every date is reasoned about as a civil day in Indian Standard Time,
// whatever location the caller's time.Time carries.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Exchange session hours in IST.
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

// End-of-day files for a trading day are published by 17:30 IST.
const (
	PublishHour   = 17
	PublishMinute = 30
)

// Clock supplies the current instant. Calendar reads "today" through it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Day returns midnight IST of the calendar day t falls on in IST.
func Day(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// Date builds midnight IST for the given civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, IST)
}

// SameDay reports whether a and b fall on the same IST calendar day.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// afterPublish reports whether t is at or after 17:30 IST on its own day.
func afterPublish(t time.Time) bool {
	ist := t.In(IST)
	hm := ist.Hour()*60 + ist.Minute()
	return hm >= PublishHour*60+PublishMinute
}

// IsSessionOpen returns true if t falls within NSE trading hours
// (9:15 AM – 3:30 PM IST on a market day).
func (c *Calendar) IsSessionOpen(t time.Time) bool {
	if !c.IsMarketDay(t) {
		return false
	}
	ist := t.In(IST)
	hm := ist.Hour()*60 + ist.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// NextOpen returns the next session open (9:15 AM IST). If t is before
// today's open on a market day, today's open is returned.
func (c *Calendar) NextOpen(t time.Time) time.Time {
	ist := t.In(IST)
	todayOpen := time.Date(ist.Year(), ist.Month(), ist.Day(), OpenHour, OpenMinute, 0, 0, IST)
	if ist.Before(todayOpen) && c.IsMarketDay(ist) {
		return todayOpen
	}
	d := c.NextTradingDay(ist)
	return time.Date(d.Year(), d.Month(), d.Day(), OpenHour, OpenMinute, 0, 0, IST)
}

// SessionClose returns the 3:30 PM IST close on t's day.
func SessionClose(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), CloseHour, CloseMinute, 0, 0, IST)
}

// SessionStatus returns a human-readable exchange session status.
func (c *Calendar) SessionStatus(t time.Time) string {
	if c.IsSessionOpen(t) {
		return fmt.Sprintf("Market Open — closes in %s", fmtDur(SessionClose(t).Sub(t)))
	}
	next := c.NextOpen(t)
	ist := next.In(IST)
	return fmt.Sprintf("Market Closed — opens %s %s (%s)",
		ist.Weekday().String()[:3], ist.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
