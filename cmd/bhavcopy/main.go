// cmd/bhavcopy prints BhavCopy download URLs for a day, a range or a
// quick-select preset, and can show a month's trading calendar.
//
// Usage:
//
//	go run ./cmd/bhavcopy                        # latest available day
//	go run ./cmd/bhavcopy --date=2025-10-20
//	go run ./cmd/bhavcopy --from=2025-10-17 --to=2025-10-23
//	go run ./cmd/bhavcopy --preset=last5 --json
//	go run ./cmd/bhavcopy --grid=2025-10
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"bhavcopy-calendar/internal/bhavcopy"
	"bhavcopy-calendar/internal/markethours"
	"bhavcopy-calendar/internal/selection"
)

func main() {
	log.SetFlags(0)

	date := flag.String("date", "", "Single day (YYYY-MM-DD)")
	from := flag.String("from", "", "Range start (YYYY-MM-DD)")
	to := flag.String("to", "", "Range end (YYYY-MM-DD); only trading days are kept")
	preset := flag.String("preset", "", "Quick select: last5, last10 or month")
	grid := flag.String("grid", "", "Print the calendar for a month (YYYY-MM) instead of URLs")
	holidays := flag.String("holidays", "", "Holiday YAML file (default: built-in table)")
	asJSON := flag.Bool("json", false, "Print JSON instead of text")
	flag.Parse()

	table := markethours.DefaultHolidays()
	if *holidays != "" {
		var err error
		if table, err = markethours.LoadHolidayFile(*holidays); err != nil {
			log.Fatalf("[bhavcopy] %v", err)
		}
	}
	cal := markethours.New(table)

	if *grid != "" {
		if err := printGrid(os.Stdout, cal, *grid); err != nil {
			log.Fatalf("[bhavcopy] %v", err)
		}
		return
	}

	dates, summary, err := resolve(cal, *date, *from, *to, *preset)
	if err != nil {
		log.Fatalf("[bhavcopy] %v", err)
	}
	reqs, err := bhavcopy.ForDates(dates)
	if err != nil {
		log.Fatalf("[bhavcopy] %v", err)
	}
	if *asJSON {
		err = printJSON(os.Stdout, reqs)
	} else {
		err = printText(os.Stdout, summary, reqs)
	}
	if err != nil {
		log.Fatalf("[bhavcopy] %v", err)
	}
}

// resolve turns the flags into the days to print. With no flags it returns
// the latest available trading day.
func resolve(cal *markethours.Calendar, date, from, to, preset string) ([]time.Time, string, error) {
	var sel selection.State
	switch {
	case preset != "":
		dates, err := cal.Preset(preset, cal.Now())
		if err != nil {
			return nil, "", err
		}
		if len(dates) == 0 {
			return nil, "No date selected", nil
		}
		sel.Set(dates[0], dates[len(dates)-1])
	case date != "":
		d, err := bhavcopy.ParseDate(date)
		if err != nil {
			return nil, "", err
		}
		sel.Set(d, time.Time{})
	case from != "":
		start, err := bhavcopy.ParseDate(from)
		if err != nil {
			return nil, "", fmt.Errorf("--from: %w", err)
		}
		var end time.Time
		if to != "" {
			if end, err = bhavcopy.ParseDate(to); err != nil {
				return nil, "", fmt.Errorf("--to: %w", err)
			}
		}
		sel.Set(start, end)
	case to != "":
		return nil, "", fmt.Errorf("--to needs --from")
	default:
		sel = selection.Seeded(cal, cal.Now())
	}
	return sel.Dates(cal), sel.Summary(cal), nil
}

func printText(w io.Writer, summary string, reqs []bhavcopy.Request) error {
	if _, err := fmt.Fprintln(w, summary); err != nil {
		return err
	}
	for _, r := range reqs {
		fmt.Fprintf(w, "\n%s\n", markethours.FormatHuman(r.Date))
		for _, u := range r.URLs {
			fmt.Fprintf(w, "  %s\n", u)
		}
	}
	return nil
}

func printJSON(w io.Writer, reqs []bhavcopy.Request) error {
	type entry struct {
		Date string   `json:"date"`
		URLs []string `json:"urls"`
	}
	out := make([]entry, len(reqs))
	for i, r := range reqs {
		out[i] = entry{Date: markethours.FormatISO(r.Date), URLs: r.URLs}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// printGrid draws the 6x7 month grid. Trading days show their number,
// holidays are marked H, weekends and future days are dimmed with dots.
func printGrid(w io.Writer, cal *markethours.Calendar, ym string) error {
	t, err := time.ParseInLocation("2006-01", ym, markethours.IST)
	if err != nil {
		return fmt.Errorf("--grid: want YYYY-MM, got %q", ym)
	}
	cells := cal.Cells(t.Year(), t.Month())

	fmt.Fprintf(w, "%s\n", t.Format("January 2006"))
	fmt.Fprintln(w, " Su  Mo  Tu  We  Th  Fr  Sa")
	var holidays []string
	for i, c := range cells {
		var mark string
		switch {
		case !c.InMonth:
			mark = "   "
		case c.Status == markethours.StatusHoliday:
			mark = fmt.Sprintf("%2dH", c.Day)
			holidays = append(holidays, fmt.Sprintf("  %s  %s", c.ISO, c.HolidayName))
		case c.Status == markethours.StatusMarketDay:
			mark = fmt.Sprintf("%2d ", c.Day)
		default:
			mark = fmt.Sprintf("%2d.", c.Day)
		}
		fmt.Fprint(w, " "+mark)
		if i%7 == 6 {
			fmt.Fprintln(w)
		}
	}
	if len(holidays) > 0 {
		fmt.Fprintln(w, "\nHolidays:")
		fmt.Fprintln(w, strings.Join(holidays, "\n"))
	}
	return nil
}
