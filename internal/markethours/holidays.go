package markethours

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Holiday is a single exchange holiday. Date is "2006-01-02".
type Holiday struct {
	Date string `yaml:"date" json:"date"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// HolidayTable is the curated per-year set of exchange holidays.
// The zero value is an empty table. A year missing from the table is a gap
// in the data, not an error: every date in it classifies as a non-holiday.
type HolidayTable struct {
	days  map[int]map[string]struct{}
	names map[string]string
}

// NewHolidayTable builds a table from holidays grouped by the year their date
// falls in. Years listed in coveredYears but without holidays are recorded
// as covered.
func NewHolidayTable(holidays []Holiday, coveredYears ...int) (HolidayTable, error) {
	t := HolidayTable{
		days:  make(map[int]map[string]struct{}),
		names: make(map[string]string),
	}
	for _, y := range coveredYears {
		t.days[y] = make(map[string]struct{})
	}
	for _, h := range holidays {
		d, err := ParseISO(h.Date)
		if err != nil {
			return HolidayTable{}, fmt.Errorf("holiday %q: %w", h.Date, err)
		}
		key := FormatISO(d)
		set, ok := t.days[d.Year()]
		if !ok {
			set = make(map[string]struct{})
			t.days[d.Year()] = set
		}
		set[key] = struct{}{}
		if h.Name != "" {
			t.names[key] = h.Name
		}
	}
	return t, nil
}

// MustHolidayTable is NewHolidayTable that panics on a malformed date.
func MustHolidayTable(holidays []Holiday, coveredYears ...int) HolidayTable {
	t, err := NewHolidayTable(holidays, coveredYears...)
	if err != nil {
		panic(err)
	}
	return t
}

// Contains reports whether d's IST calendar day is a listed holiday.
func (t HolidayTable) Contains(d time.Time) bool {
	day := Day(d)
	set, ok := t.days[day.Year()]
	if !ok {
		return false
	}
	_, ok = set[FormatISO(day)]
	return ok
}

// Name returns the display name for d, or "" if none is recorded.
func (t HolidayTable) Name(d time.Time) string {
	return t.names[FormatISO(Day(d))]
}

// HasYear reports whether the table carries data for year.
func (t HolidayTable) HasYear(year int) bool {
	_, ok := t.days[year]
	return ok
}

// Years returns the covered years in ascending order.
func (t HolidayTable) Years() []int {
	out := make([]int, 0, len(t.days))
	for y := range t.days {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// Len returns the total number of holidays across all years.
func (t HolidayTable) Len() int {
	n := 0
	for _, set := range t.days {
		n += len(set)
	}
	return n
}

// Holidays returns every holiday in date order.
func (t HolidayTable) Holidays() []Holiday {
	out := make([]Holiday, 0, t.Len())
	for _, set := range t.days {
		for d := range set {
			out = append(out, Holiday{Date: d, Name: t.names[d]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// holidayFile is the on-disk YAML layout:
//
//	years:
//	  2025:
//	    - date: 2025-10-21
//	      name: Diwali (Laxmi Pujan)
type holidayFile struct {
	Years map[int][]Holiday `yaml:"years"`
}

// ParseHolidayYAML decodes a holiday table. Every holiday must fall in the
// year it is listed under.
func ParseHolidayYAML(data []byte) (HolidayTable, error) {
	var f holidayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return HolidayTable{}, fmt.Errorf("parse holiday yaml: %w", err)
	}
	var all []Holiday
	years := make([]int, 0, len(f.Years))
	for y, hs := range f.Years {
		years = append(years, y)
		for _, h := range hs {
			d, err := ParseISO(h.Date)
			if err != nil {
				return HolidayTable{}, fmt.Errorf("holiday %q: %w", h.Date, err)
			}
			if d.Year() != y {
				return HolidayTable{}, fmt.Errorf("holiday %s listed under year %d", h.Date, y)
			}
			all = append(all, h)
		}
	}
	return NewHolidayTable(all, years...)
}

// LoadHolidayFile reads a YAML holiday table from path.
func LoadHolidayFile(path string) (HolidayTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HolidayTable{}, fmt.Errorf("read holiday file: %w", err)
	}
	return ParseHolidayYAML(data)
}

// MarshalYAML encodes the table in the LoadHolidayFile layout.
func (t HolidayTable) MarshalYAML() (interface{}, error) {
	f := holidayFile{Years: make(map[int][]Holiday, len(t.days))}
	for _, y := range t.Years() {
		f.Years[y] = []Holiday{}
	}
	for _, h := range t.Holidays() {
		d, _ := ParseISO(h.Date)
		f.Years[d.Year()] = append(f.Years[d.Year()], h)
	}
	return f, nil
}

// NSE trading holidays. Source: NSE India circulars; update annually.
var nseHolidays = []Holiday{
	{"2025-02-26", "Mahashivratri"},
	{"2025-03-14", "Holi"},
	{"2025-03-31", "Id-Ul-Fitr"},
	{"2025-04-10", "Mahavir Jayanti"},
	{"2025-04-14", "Dr. Baba Saheb Ambedkar Jayanti"},
	{"2025-04-18", "Good Friday"},
	{"2025-05-01", "Maharashtra Day"},
	{"2025-08-15", "Independence Day"},
	{"2025-08-27", "Ganesh Chaturthi"},
	{"2025-10-02", "Mahatma Gandhi Jayanti"},
	{"2025-10-21", "Diwali (Laxmi Pujan)"},
	{"2025-10-22", "Diwali-Balipratipada"},
	{"2025-11-05", "Prakash Gurpurb Sri Guru Nanak Dev"},
	{"2025-12-25", "Christmas"},

	{"2026-01-26", "Republic Day"},
	{"2026-02-17", "Mahashivratri"},
	{"2026-03-10", "Holi"},
	{"2026-03-30", "Id-ul-Fitr (Ramadan)"},
	{"2026-04-02", "Ram Navami"},
	{"2026-04-03", "Good Friday"},
	{"2026-04-14", "Dr. Ambedkar Jayanti"},
	{"2026-05-01", "Maharashtra Day"},
	{"2026-05-25", "Buddha Purnima"},
	{"2026-06-05", "Id-ul-Zuha (Bakri Id)"},
	{"2026-07-06", "Muharram"},
	{"2026-08-15", "Independence Day"},
	{"2026-08-18", "Parsi New Year"},
	{"2026-09-04", "Milad-un-Nabi"},
	{"2026-10-02", "Mahatma Gandhi Jayanti"},
	{"2026-10-20", "Dussehra"},
	{"2026-11-09", "Diwali (Laxmi Pujan)"},
	{"2026-11-10", "Diwali (Balipratipada)"},
	{"2026-11-30", "Guru Nanak Jayanti"},
	{"2026-12-25", "Christmas"},
}

// DefaultHolidays returns the built-in NSE table (2025 and 2026).
func DefaultHolidays() HolidayTable {
	return MustHolidayTable(nseHolidays, 2025, 2026)
}
