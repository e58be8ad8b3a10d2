package markethours

import (
	"reflect"
	"testing"
	"time"
)

func isoList(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = FormatISO(d)
	}
	return out
}

func TestMonthGridShape(t *testing.T) {
	for y := 2024; y <= 2027; y++ {
		for m := time.January; m <= time.December; m++ {
			grid := MonthGrid(y, m)
			if len(grid) != GridCells {
				t.Fatalf("%d-%02d: len = %d", y, m, len(grid))
			}
			if grid[0].Weekday() != time.Sunday {
				t.Fatalf("%d-%02d: first cell is %v", y, m, grid[0].Weekday())
			}
			if grid[0].After(Date(y, m, 1)) {
				t.Fatalf("%d-%02d: grid starts after the 1st", y, m)
			}
			last := Date(y, m+1, 1).AddDate(0, 0, -1)
			if grid[len(grid)-1].Before(last) {
				t.Fatalf("%d-%02d: grid ends before month end", y, m)
			}
			for i := 1; i < len(grid); i++ {
				if !grid[i].Equal(grid[i-1].AddDate(0, 0, 1)) {
					t.Fatalf("%d-%02d: cells %d and %d not consecutive", y, m, i-1, i)
				}
			}
		}
	}
}

func TestMonthGridStart(t *testing.T) {
	// October 2025 starts on a Wednesday.
	if got := MonthGrid(2025, time.October)[0]; !got.Equal(Date(2025, 9, 28)) {
		t.Errorf("Oct 2025 grid starts %s, want 2025-09-28", FormatISO(got))
	}
	// June 2025 starts on a Sunday, so no leading days.
	if got := MonthGrid(2025, time.June)[0]; !got.Equal(Date(2025, 6, 1)) {
		t.Errorf("Jun 2025 grid starts %s, want 2025-06-01", FormatISO(got))
	}
}

func TestCells(t *testing.T) {
	cal := testCalendar(at(2025, 10, 20, 12, 0))
	cells := cal.Cells(2025, time.October)
	if len(cells) != GridCells {
		t.Fatalf("len = %d", len(cells))
	}
	if cells[0].InMonth {
		t.Error("2025-09-28 should be outside October")
	}
	byDate := make(map[string]Cell, len(cells))
	for _, c := range cells {
		byDate[c.ISO] = c
	}
	if c := byDate["2025-10-20"]; !c.Today || !c.Tradable || c.StatusName != "market_day" {
		t.Errorf("today cell = %+v", c)
	}
	if c := byDate["2025-10-21"]; c.Status != StatusHoliday || c.HolidayName != "Diwali (Laxmi Pujan)" || c.Tradable {
		t.Errorf("Diwali cell = %+v", c)
	}
	if c := byDate["2025-10-23"]; c.Status != StatusFuture || c.Tradable {
		t.Errorf("future cell = %+v", c)
	}
}

func TestExpandRange(t *testing.T) {
	cal := testCalendar(at(2025, 10, 23, 18, 0))

	got := cal.ExpandRange(Date(2025, 10, 16), Date(2025, 10, 24))
	want := []string{"2025-10-16", "2025-10-17", "2025-10-20", "2025-10-23"}
	if !reflect.DeepEqual(isoList(got), want) {
		t.Errorf("ExpandRange = %v, want %v", isoList(got), want)
	}

	rev := cal.ExpandRange(Date(2025, 10, 24), Date(2025, 10, 16))
	if !reflect.DeepEqual(isoList(rev), want) {
		t.Errorf("reversed ExpandRange = %v, want %v", isoList(rev), want)
	}
}

func TestExpandRangeOrderIndependent(t *testing.T) {
	cal := testCalendar(at(2025, 12, 31, 18, 0))
	days := []time.Time{
		Date(2025, 1, 1), Date(2025, 3, 14), Date(2025, 4, 18),
		Date(2025, 8, 27), Date(2025, 10, 22), Date(2025, 11, 30),
	}
	for _, a := range days {
		for _, b := range days {
			ab := cal.ExpandRange(a, b)
			ba := cal.ExpandRange(b, a)
			if !reflect.DeepEqual(isoList(ab), isoList(ba)) {
				t.Fatalf("ExpandRange(%s,%s) differs from reverse", FormatISO(a), FormatISO(b))
			}
			for i := 1; i < len(ab); i++ {
				if !ab[i].After(ab[i-1]) {
					t.Fatalf("ExpandRange(%s,%s) not ascending", FormatISO(a), FormatISO(b))
				}
			}
		}
	}
}

func TestExpandRangeSingleDay(t *testing.T) {
	cal := testCalendar(at(2025, 10, 20, 12, 0))

	if got := cal.ExpandRange(Date(2025, 10, 17), Date(2025, 10, 17)); len(got) != 1 || !got[0].Equal(Date(2025, 10, 17)) {
		t.Errorf("tradable d..d = %v", isoList(got))
	}
	if got := cal.ExpandRange(Date(2025, 10, 21), Date(2025, 10, 21)); len(got) != 0 {
		t.Errorf("holiday d..d = %v, want empty", isoList(got))
	}
	if got := cal.ExpandRange(Date(2025, 10, 23), Date(2025, 10, 23)); len(got) != 0 {
		t.Errorf("future d..d = %v, want empty", isoList(got))
	}
}

func TestExpandRangeLoneStartUnfiltered(t *testing.T) {
	cal := testCalendar(at(2025, 10, 20, 12, 0))

	got := cal.ExpandRange(at(2025, 10, 21, 15, 0), time.Time{})
	if len(got) != 1 || !got[0].Equal(Date(2025, 10, 21)) {
		t.Errorf("lone holiday start = %v, want [2025-10-21]", isoList(got))
	}
	if got := cal.ExpandRange(time.Time{}, time.Time{}); got != nil {
		t.Errorf("empty range = %v", isoList(got))
	}
	if got := cal.ExpandRange(time.Time{}, Date(2025, 10, 20)); got != nil {
		t.Errorf("end without start = %v", isoList(got))
	}
}

func TestIsWithinOpenRange(t *testing.T) {
	a, b := Date(2025, 10, 16), Date(2025, 10, 20)
	tests := []struct {
		d    time.Time
		want bool
	}{
		{Date(2025, 10, 16), false},
		{Date(2025, 10, 17), true},
		{at(2025, 10, 19, 23, 59), true},
		{Date(2025, 10, 20), false},
		{Date(2025, 10, 21), false},
	}
	for _, tt := range tests {
		if got := IsWithinOpenRange(tt.d, a, b); got != tt.want {
			t.Errorf("IsWithinOpenRange(%s) = %v, want %v", FormatISO(tt.d), got, tt.want)
		}
		if got := IsWithinOpenRange(tt.d, b, a); got != tt.want {
			t.Errorf("IsWithinOpenRange reversed (%s) = %v, want %v", FormatISO(tt.d), got, tt.want)
		}
	}
	if IsWithinOpenRange(Date(2025, 10, 17), a, time.Time{}) {
		t.Error("open range needs both bounds")
	}
}
