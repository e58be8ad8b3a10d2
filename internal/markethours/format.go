package markethours

import "time"

const isoLayout = "2006-01-02"

// FormatISO formats d's IST day as "2006-01-02".
func FormatISO(d time.Time) string {
	return d.In(IST).Format(isoLayout)
}

// FormatYMD formats d's IST day as "20060102", the NSE/BSE archive form.
func FormatYMD(d time.Time) string {
	return d.In(IST).Format("20060102")
}

// FormatDMY2 formats d's IST day as "020106", the press-release archive form.
func FormatDMY2(d time.Time) string {
	return d.In(IST).Format("020106")
}

// FormatHuman formats d for display, e.g. "Mon, 20 Oct 2025".
func FormatHuman(d time.Time) string {
	return d.In(IST).Format("Mon, 02 Jan 2006")
}

// ParseISO parses "2006-01-02" as midnight IST.
func ParseISO(s string) (time.Time, error) {
	return time.ParseInLocation(isoLayout, s, IST)
}
