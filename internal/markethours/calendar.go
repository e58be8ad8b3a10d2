package markethours

import "time"

// Status is the classification shown for a calendar day.
type Status int

const (
	StatusMarketDay Status = iota
	StatusHoliday
	StatusWeekend
	StatusFuture
)

func (s Status) String() string {
	switch s {
	case StatusMarketDay:
		return "market_day"
	case StatusHoliday:
		return "holiday"
	case StatusWeekend:
		return "weekend"
	case StatusFuture:
		return "future"
	default:
		return "unknown"
	}
}

// Calendar answers trading-day questions against one holiday table.
// It is immutable after New and safe for concurrent use.
type Calendar struct {
	holidays HolidayTable
	clock    Clock
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithClock sets the source of "now" used by IsFuture and IsTradableNow.
func WithClock(c Clock) Option {
	return func(cal *Calendar) { cal.clock = c }
}

// New creates a Calendar over the given holiday table.
func New(holidays HolidayTable, opts ...Option) *Calendar {
	c := &Calendar{holidays: holidays, clock: SystemClock{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Holidays returns the table the calendar was built with.
func (c *Calendar) Holidays() HolidayTable { return c.holidays }

// Now returns the clock's current instant in IST.
func (c *Calendar) Now() time.Time { return c.clock.Now().In(IST) }

// Today returns midnight IST of the current day.
func (c *Calendar) Today() time.Time { return Day(c.clock.Now()) }

// IsWeekend returns true if d is a Saturday or Sunday in IST.
func (c *Calendar) IsWeekend(d time.Time) bool {
	wd := d.In(IST).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday returns true if d is listed in the holiday table.
func (c *Calendar) IsHoliday(d time.Time) bool {
	return c.holidays.Contains(d)
}

// HolidayName returns the holiday's display name, or "".
func (c *Calendar) HolidayName(d time.Time) string {
	return c.holidays.Name(d)
}

// IsFuture returns true if d is a later calendar day than today.
func (c *Calendar) IsFuture(d time.Time) bool {
	return Day(d).After(c.Today())
}

// IsMarketDay returns true if d is neither a weekend nor a holiday.
// Past and future days are treated alike.
func (c *Calendar) IsMarketDay(d time.Time) bool {
	return !c.IsWeekend(d) && !c.IsHoliday(d)
}

// IsTradableNow returns true if d is a market day that is not in the future.
// Days failing this are not selectable.
func (c *Calendar) IsTradableNow(d time.Time) bool {
	return c.IsMarketDay(d) && !c.IsFuture(d)
}

// Status classifies d. Holiday wins over weekend, weekend over future.
func (c *Calendar) Status(d time.Time) Status {
	switch {
	case c.IsHoliday(d):
		return StatusHoliday
	case c.IsWeekend(d):
		return StatusWeekend
	case c.IsFuture(d):
		return StatusFuture
	default:
		return StatusMarketDay
	}
}

// StatusText describes d for a hover or focus line, e.g.
// "Tue, 21 Oct 2025 — (Market holiday) Diwali (Laxmi Pujan)".
func (c *Calendar) StatusText(d time.Time) string {
	date := FormatHuman(d)
	switch c.Status(d) {
	case StatusHoliday:
		if name := c.HolidayName(d); name != "" {
			return date + " — (Market holiday) " + name
		}
		return date + " — (Market holiday)"
	case StatusWeekend:
		return date + " — (Weekend)"
	case StatusFuture:
		return date + " — (Future date)"
	default:
		return date + " — (Market day)"
	}
}

// NextTradingDay returns the first market day strictly after d.
// The result may lie in the future.
func (c *Calendar) NextTradingDay(d time.Time) time.Time {
	x := Day(d)
	for {
		x = x.AddDate(0, 0, 1)
		if c.IsMarketDay(x) {
			return x
		}
	}
}

// PrevTradingDay returns the last market day strictly before d.
func (c *Calendar) PrevTradingDay(d time.Time) time.Time {
	x := Day(d)
	for {
		x = x.AddDate(0, 0, -1)
		if c.IsMarketDay(x) {
			return x
		}
	}
}

// TradingDaysBack steps n market days back from d. n <= 0 returns d's day.
func (c *Calendar) TradingDaysBack(d time.Time, n int) time.Time {
	x := Day(d)
	for i := 0; i < n; i++ {
		x = c.PrevTradingDay(x)
	}
	return x
}
