package api

import (
	"net/http"
	"strconv"
	"time"

	"bhavcopy-calendar/internal/logger"
	"bhavcopy-calendar/internal/markethours"

	ical "github.com/arran4/golang-ical"
	"github.com/pquerna/otp/totp"
)

// AdminOTPHeader carries the TOTP code for admin endpoints.
const AdminOTPHeader = "X-Admin-OTP"

// handleReloadHolidays answers POST /api/admin/holidays/reload. It re-reads
// the holiday file and swaps in a calendar built from it.
func (s *Server) handleReloadHolidays(w http.ResponseWriter, r *http.Request) {
	if s.opts.AdminTOTPSecret == "" {
		writeError(w, http.StatusForbidden, "admin endpoints disabled")
		return
	}
	if !totp.Validate(r.Header.Get(AdminOTPHeader), s.opts.AdminTOTPSecret) {
		writeError(w, http.StatusUnauthorized, "invalid one-time code")
		return
	}
	if s.opts.HolidayFile == "" {
		writeError(w, http.StatusConflict, "no holiday file configured")
		return
	}

	table, err := markethours.LoadHolidayFile(s.opts.HolidayFile)
	if err != nil {
		s.reloadResult("error")
		s.log.Error("reload holidays", append(logger.Attrs(r.Context()), "file", s.opts.HolidayFile, "err", err)...)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	cal := markethours.New(table, markethours.WithClock(s.opts.Clock))
	s.SetCalendar(cal)
	s.reloadResult("ok")
	if s.opts.Metrics != nil {
		s.opts.Metrics.HolidayYears.Set(float64(len(table.Years())))
	}
	if s.opts.OnReload != nil {
		s.opts.OnReload(cal)
	}
	s.log.Info("holidays reloaded", append(logger.Attrs(r.Context()), "years", table.Years(), "holidays", table.Len())...)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"years":    table.Years(),
		"holidays": table.Len(),
	})
}

func (s *Server) reloadResult(result string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.HolidayReloads.WithLabelValues(result).Inc()
	}
}

// handleHolidaysICS answers GET /api/holidays.ics with one all-day event
// per exchange holiday, optionally limited to ?year=.
func (s *Server) handleHolidaysICS(w http.ResponseWriter, r *http.Request) {
	year := 0
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	body := HolidayICS(s.Calendar().Holidays(), year, s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="nse-holidays.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// HolidayICS renders table as an iCalendar document. A zero year exports
// every year.
func HolidayICS(table markethours.HolidayTable, year int, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//bhavcopy-calendar//NSE holidays//EN")
	cal.SetXWRCalName("NSE trading holidays")

	for _, h := range table.Holidays() {
		d, err := markethours.ParseISO(h.Date)
		if err != nil || (year != 0 && d.Year() != year) {
			continue
		}
		name := h.Name
		if name == "" {
			name = "Market holiday"
		}
		ev := cal.AddEvent(h.Date + "@bhavcopy-calendar")
		ev.SetDtStampTime(stamp)
		ev.SetAllDayStartAt(d)
		ev.SetAllDayEndAt(d.AddDate(0, 0, 1))
		ev.SetSummary(name)
	}
	return cal.Serialize()
}
