// Package bhavcopy builds the archive URLs for a trading day's end-of-day
// BhavCopy files. It does not check that the files exist.
package bhavcopy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bhavcopy-calendar/internal/markethours"
)

var (
	// ErrDateRequired is returned for an empty request date.
	ErrDateRequired = errors.New("date is required")
	// ErrInvalidDate is returned when a request date cannot be parsed.
	ErrInvalidDate = errors.New("invalid date format")
	// ErrUnknownArchive is returned for an Archive with no URL template.
	ErrUnknownArchive = errors.New("unknown archive")
)

// Archive identifies one of the published files.
type Archive string

const (
	NSEEquity    Archive = "nse_cm"
	BSEEquity    Archive = "bse_cm"
	NSEPressRels Archive = "nse_pr"
)

// Archives lists the files built for every day, in URL order.
var Archives = []Archive{NSEEquity, BSEEquity, NSEPressRels}

// URL returns the download URL of archive a for day d.
func URL(a Archive, d time.Time) (string, error) {
	switch a {
	case NSEEquity:
		return "https://nsearchives.nseindia.com/content/cm/BhavCopy_NSE_CM_0_0_0_" + markethours.FormatYMD(d) + "_F_0000.csv.zip", nil
	case BSEEquity:
		return "https://www.bseindia.com/download/BhavCopy/Equity/BhavCopy_BSE_CM_0_0_0_" + markethours.FormatYMD(d) + "_F_0000.csv", nil
	case NSEPressRels:
		return "https://archives.nseindia.com/archives/equities/bhavcopy/pr/PR" + markethours.FormatDMY2(d) + ".zip", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownArchive, string(a))
	}
}

// BuildURLs returns the URL of every entry in Archives for d's IST
// calendar day.
func BuildURLs(d time.Time) ([]string, error) {
	urls := make([]string, len(Archives))
	for i, a := range Archives {
		u, err := URL(a, d)
		if err != nil {
			return nil, err
		}
		urls[i] = u
	}
	return urls, nil
}

var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses a request date. A bare "2006-01-02" is a civil IST day;
// timestamps are instants resolved to the IST day they fall on.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrDateRequired
	}
	if d, err := markethours.ParseISO(s); err == nil {
		return d, nil
	}
	for _, layout := range instantLayouts {
		loc := time.UTC
		if layout == "2006-01-02T15:04:05" {
			loc = markethours.IST
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Request is the set of URLs for one trading day.
type Request struct {
	Date time.Time
	URLs []string
}

// ForDates builds one Request per day, in the order given.
func ForDates(dates []time.Time) ([]Request, error) {
	out := make([]Request, len(dates))
	for i, d := range dates {
		day := markethours.Day(d)
		urls, err := BuildURLs(day)
		if err != nil {
			return nil, fmt.Errorf("urls for %s: %w", markethours.FormatISO(day), err)
		}
		out[i] = Request{Date: day, URLs: urls}
	}
	return out, nil
}
