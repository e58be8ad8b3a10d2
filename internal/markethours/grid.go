package markethours

import "time"

// GridCells is the fixed month-grid size: six Sunday-first weeks.
const GridCells = 42

// MonthGrid returns 42 consecutive days starting on the Sunday on or before
// the 1st of month. Cells before and after the month are included; compare
// each cell's Month() against month to tell them apart.
func MonthGrid(year int, month time.Month) []time.Time {
	first := Date(year, month, 1)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	cells := make([]time.Time, GridCells)
	for i := range cells {
		cells[i] = start.AddDate(0, 0, i)
	}
	return cells
}

// Cell is one classified day of a month grid.
type Cell struct {
	Date        time.Time `json:"-"`
	ISO         string    `json:"date"`
	Day         int       `json:"day"`
	InMonth     bool      `json:"inMonth"`
	Today       bool      `json:"today"`
	Status      Status    `json:"-"`
	StatusName  string    `json:"status"`
	Tradable    bool      `json:"tradable"`
	HolidayName string    `json:"holidayName,omitempty"`
	Text        string    `json:"text"`
}

// Cells classifies every day of MonthGrid(year, month).
func (c *Calendar) Cells(year int, month time.Month) []Cell {
	today := c.Today()
	grid := MonthGrid(year, month)
	out := make([]Cell, len(grid))
	for i, d := range grid {
		st := c.Status(d)
		out[i] = Cell{
			Date:        d,
			ISO:         FormatISO(d),
			Day:         d.Day(),
			InMonth:     d.Month() == month,
			Today:       d.Equal(today),
			Status:      st,
			StatusName:  st.String(),
			Tradable:    c.IsTradableNow(d),
			HolidayName: c.HolidayName(d),
			Text:        c.StatusText(d),
		}
	}
	return out
}

// bounds orders a and b by calendar day.
func bounds(a, b time.Time) (lo, hi time.Time) {
	a, b = Day(a), Day(b)
	if b.Before(a) {
		return b, a
	}
	return a, b
}

// ExpandRange returns the tradable days between start and end, inclusive and
// ascending, whichever order they are given in. A zero end means only start
// was picked; start is then returned alone and unfiltered, so a single pick
// is never dropped. A zero start yields nothing.
func (c *Calendar) ExpandRange(start, end time.Time) []time.Time {
	if start.IsZero() {
		return nil
	}
	if end.IsZero() {
		return []time.Time{Day(start)}
	}
	lo, hi := bounds(start, end)
	var out []time.Time
	for x := lo; !x.After(hi); x = x.AddDate(0, 0, 1) {
		if c.IsTradableNow(x) {
			out = append(out, x)
		}
	}
	return out
}

// IsWithinOpenRange reports whether d lies strictly between a and b.
// Used for styling the middle of a range; false if either bound is zero.
func IsWithinOpenRange(d, a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	lo, hi := bounds(a, b)
	x := Day(d)
	return x.After(lo) && x.Before(hi)
}
