// Package selection holds the user's in-progress date range and the click
// cycle that builds it: the first pick sets the start, the second sets the
// end, a third starts over.
package selection

import (
	"fmt"
	"time"

	"bhavcopy-calendar/internal/markethours"
)

// State is a possibly half-built range. The zero value is empty.
// It is not safe for concurrent use; each session owns its own State.
type State struct {
	Start time.Time
	End   time.Time
}

// Seeded returns a State whose start is the calendar's default pick at now.
func Seeded(cal *markethours.Calendar, now time.Time) State {
	return State{Start: cal.DefaultInitialSelection(now)}
}

// Pick applies one click on day d.
func (s *State) Pick(d time.Time) {
	d = markethours.Day(d)
	if s.Start.IsZero() || !s.End.IsZero() {
		s.Start = d
		s.End = time.Time{}
		return
	}
	s.End = d
}

// Set replaces both endpoints, as a quick-select preset does.
func (s *State) Set(start, end time.Time) {
	s.Start = markethours.Day(start)
	s.End = time.Time{}
	if !end.IsZero() {
		s.End = markethours.Day(end)
	}
}

// Clear empties the selection.
func (s *State) Clear() {
	s.Start = time.Time{}
	s.End = time.Time{}
}

// Empty reports whether nothing is selected.
func (s State) Empty() bool {
	return s.Start.IsZero() && s.End.IsZero()
}

// Dates returns the days to request for this selection. A range contributes
// only its tradable days; if that leaves nothing, the start is requested on
// its own so an explicit pick is never lost.
func (s State) Dates(cal *markethours.Calendar) []time.Time {
	dates := cal.ExpandRange(s.Start, s.End)
	if len(dates) == 0 && !s.Start.IsZero() {
		dates = []time.Time{markethours.Day(s.Start)}
	}
	return dates
}

// Summary describes the selection for a status badge.
func (s State) Summary(cal *markethours.Calendar) string {
	dates := cal.ExpandRange(s.Start, s.End)
	switch {
	case len(dates) == 0 && !s.Start.IsZero():
		return fmt.Sprintf("Selected %s (single day)", markethours.FormatHuman(s.Start))
	case len(dates) == 0:
		return "No date selected"
	case len(dates) == 1:
		return fmt.Sprintf("Selected %s", markethours.FormatHuman(dates[0]))
	default:
		return fmt.Sprintf("%d days: %s → %s", len(dates),
			markethours.FormatHuman(dates[0]), markethours.FormatHuman(dates[len(dates)-1]))
	}
}

// Latest returns the most recent of dates, or the zero time if empty.
// It is the value recorded as the last downloaded day.
func Latest(dates []time.Time) time.Time {
	var out time.Time
	for _, d := range dates {
		if d.After(out) {
			out = d
		}
	}
	return out
}
