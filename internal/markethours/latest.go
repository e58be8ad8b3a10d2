package markethours

import (
	"fmt"
	"time"
)

// LatestAvailableTradingDay returns the most recent trading day whose
// BhavCopy is published at instant now. From 17:30 IST that is today when
// today is a market day; before 17:30 today's files never count and the
// previous market day is returned.
func (c *Calendar) LatestAvailableTradingDay(now time.Time) time.Time {
	today := Day(now)
	if afterPublish(now) && c.IsMarketDay(today) {
		return today
	}
	return c.PrevTradingDay(today)
}

// DefaultInitialSelection is the day pre-selected when a session starts.
func (c *Calendar) DefaultInitialSelection(now time.Time) time.Time {
	today := Day(now)
	if afterPublish(now) {
		if c.IsMarketDay(today) {
			return today
		}
		return c.PrevTradingDay(today)
	}
	// Before the cutoff today is skipped whether or not it trades.
	return c.PrevTradingDay(today)
}

// LastNTradingDays selects the n tradable days ending at the latest
// available day.
func (c *Calendar) LastNTradingDays(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	end := c.LatestAvailableTradingDay(now)
	return c.ExpandRange(c.TradingDaysBack(end, n-1), end)
}

// MonthToDate selects every tradable day from the 1st of the latest
// available day's month through that day.
func (c *Calendar) MonthToDate(now time.Time) []time.Time {
	end := c.LatestAvailableTradingDay(now)
	return c.ExpandRange(Date(end.Year(), end.Month(), 1), end)
}

// SinceLast selects the tradable days after last up to the latest available
// day. It is empty when last is already at or past that day.
func (c *Calendar) SinceLast(last, now time.Time) []time.Time {
	from := c.NextTradingDay(last)
	to := c.LatestAvailableTradingDay(now)
	if from.After(to) {
		return nil
	}
	return c.ExpandRange(from, to)
}

// Preset names accepted by Preset.
const (
	PresetLast5  = "last5"
	PresetLast10 = "last10"
	PresetMonth  = "month"
)

// Preset resolves a named quick-select range at instant now.
func (c *Calendar) Preset(name string, now time.Time) ([]time.Time, error) {
	switch name {
	case PresetLast5:
		return c.LastNTradingDays(now, 5), nil
	case PresetLast10:
		return c.LastNTradingDays(now, 10), nil
	case PresetMonth:
		return c.MonthToDate(now), nil
	default:
		return nil, fmt.Errorf("unknown preset %q", name)
	}
}
