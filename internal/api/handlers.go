package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bhavcopy-calendar/internal/bhavcopy"
	"bhavcopy-calendar/internal/logger"
	"bhavcopy-calendar/internal/markethours"
	"bhavcopy-calendar/internal/selection"
	"bhavcopy-calendar/internal/store"

	"github.com/gorilla/mux"
)

type dateRequest struct {
	Date string `json:"date"`
}

// handleDownloadURLs answers POST /api/download-urls.
func (s *Server) handleDownloadURLs(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Date is required")
		return
	}
	d, err := bhavcopy.ParseDate(req.Date)
	switch {
	case errors.Is(err, bhavcopy.ErrDateRequired):
		writeError(w, http.StatusBadRequest, "Date is required")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "Invalid date format")
		return
	}

	day := markethours.Day(d)
	urls, err := bhavcopy.BuildURLs(day)
	if err != nil {
		s.log.Error("generate download urls", append(logger.Attrs(r.Context()), "date", req.Date, "err", err)...)
		writeError(w, http.StatusInternalServerError, "Failed to generate download URLs")
		return
	}
	s.audit(r, []time.Time{day}, len(urls))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"urls":    urls,
		"date":    day.Format(time.RFC3339),
	})
}

// MaxBatchDays bounds the calendar span of a batch request, endpoints
// included.
const MaxBatchDays = 366

type batchRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type dayURLs struct {
	Date string   `json:"date"`
	URLs []string `json:"urls"`
}

// handleBatch answers POST /api/download-urls/batch with URL sets for every
// day of a selection.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Date is required")
		return
	}
	start, err := bhavcopy.ParseDate(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, dateErrorText(err))
		return
	}
	var sel selection.State
	if req.End == "" {
		sel.Set(start, time.Time{})
	} else {
		end, err := bhavcopy.ParseDate(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, dateErrorText(err))
			return
		}
		sel.Set(start, end)
	}
	if spanDays(sel.Start, sel.End) > MaxBatchDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Date range exceeds %d days", MaxBatchDays))
		return
	}

	cal := s.Calendar()
	dates := sel.Dates(cal)
	reqs, err := bhavcopy.ForDates(dates)
	if err != nil {
		s.log.Error("generate download urls", append(logger.Attrs(r.Context()), "start", req.Start, "end", req.End, "err", err)...)
		writeError(w, http.StatusInternalServerError, "Failed to generate download URLs")
		return
	}
	days := make([]dayURLs, len(reqs))
	for i, rq := range reqs {
		days[i] = dayURLs{Date: markethours.FormatISO(rq.Date), URLs: rq.URLs}
	}
	s.audit(r, dates, len(bhavcopy.Archives))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": sel.Summary(cal),
		"days":    days,
	})
}

// spanDays counts the calendar days from a to b inclusive, in either order.
// A zero b counts as a single day.
func spanDays(a, b time.Time) int {
	if b.IsZero() {
		return 1
	}
	if b.Before(a) {
		a, b = b, a
	}
	return int(markethours.Day(b).Sub(markethours.Day(a)).Hours()/24) + 1
}

func dateErrorText(err error) string {
	if errors.Is(err, bhavcopy.ErrDateRequired) {
		return "Date is required"
	}
	return "Invalid date format"
}

// audit counts generated URLs and logs them to the download log, if any.
// Audit failures are logged, never returned to the client.
func (s *Server) audit(r *http.Request, days []time.Time, files int) {
	if m := s.opts.Metrics; m != nil {
		m.DaysRequested.Add(float64(len(days)))
		m.URLsGenerated.Add(float64(len(days) * files))
	}
	if s.opts.Downloads == nil || len(days) == 0 {
		return
	}
	if err := s.opts.Downloads.RecordDownloads(r.Context(), days, files); err != nil {
		s.log.Warn("record downloads", append(logger.Attrs(r.Context()), "err", err)...)
	}
}

// handleCalendar answers GET /api/calendar/{year}/{month}.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, _ := strconv.Atoi(vars["year"])
	month, _ := strconv.Atoi(vars["month"])
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12")
		return
	}
	cal := s.Calendar()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"year":  year,
		"month": month,
		"cells": cal.Cells(year, time.Month(month)),
	})
}

// handleStatus answers GET /api/status?date=.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	d, err := bhavcopy.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, dateErrorText(err))
		return
	}
	cal := s.Calendar()
	day := markethours.Day(d)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":        markethours.FormatISO(day),
		"status":      cal.Status(day).String(),
		"text":        cal.StatusText(day),
		"isMarketDay": cal.IsMarketDay(day),
		"isHoliday":   cal.IsHoliday(day),
		"isWeekend":   cal.IsWeekend(day),
		"isFuture":    cal.IsFuture(day),
		"tradable":    cal.IsTradableNow(day),
		"holidayName": cal.HolidayName(day),
	})
}

// handleLatest answers GET /api/latest.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	cal := s.Calendar()
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"latest":           markethours.FormatISO(cal.LatestAvailableTradingDay(now)),
		"defaultSelection": markethours.FormatISO(cal.DefaultInitialSelection(now)),
		"today":            markethours.FormatISO(now),
	})
}

// PresetSince selects every trading day after the last recorded download.
const PresetSince = "since"

// handlePreset answers GET /api/presets/{name}.
func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cal := s.Calendar()
	now := s.now()

	resp := map[string]interface{}{"preset": name}
	var dates []time.Time
	if name == PresetSince {
		last, ok := s.lastDownloaded(w, r)
		if !ok {
			return
		}
		dates = cal.SinceLast(last, now)
		resp["since"] = markethours.FormatISO(last)
		resp["upToDate"] = len(dates) == 0
	} else {
		var err error
		dates, err = cal.Preset(name, now)
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown preset")
			return
		}
	}

	resp["dates"] = isoDates(dates)
	resp["count"] = len(dates)
	writeJSON(w, http.StatusOK, resp)
}

// lastDownloaded reads the marker and writes the error response when there
// is no usable history.
func (s *Server) lastDownloaded(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	last, err := store.LastDownloaded(r.Context(), s.opts.Markers)
	switch {
	case err == nil:
		return last, true
	case errors.Is(err, store.ErrNoMarker):
		writeError(w, http.StatusNotFound, "no download history")
	case errors.Is(err, store.ErrCorruptMarker):
		s.markerError("corrupt")
		s.log.Warn("corrupt download marker cleared", append(logger.Attrs(r.Context()), "err", err)...)
		writeError(w, http.StatusNotFound, "no download history")
	default:
		s.markerError("backend")
		s.log.Error("read download marker", append(logger.Attrs(r.Context()), "err", err)...)
		writeError(w, http.StatusInternalServerError, "marker store unavailable")
	}
	return time.Time{}, false
}

func (s *Server) markerError(kind string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.MarkerErrors.WithLabelValues(kind).Inc()
	}
}

func isoDates(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = markethours.FormatISO(d)
	}
	return out
}

// handleGetHistory answers GET /api/history with the marker and, when an
// audit log is configured, the most recent generated days.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"lastDownloaded": nil}
	last, err := store.LastDownloaded(r.Context(), s.opts.Markers)
	switch {
	case err == nil:
		resp["lastDownloaded"] = markethours.FormatISO(last)
	case errors.Is(err, store.ErrNoMarker):
	case errors.Is(err, store.ErrCorruptMarker):
		s.markerError("corrupt")
		resp["cleared"] = true
	default:
		s.markerError("backend")
		s.log.Error("read download marker", append(logger.Attrs(r.Context()), "err", err)...)
		writeError(w, http.StatusInternalServerError, "marker store unavailable")
		return
	}

	if s.opts.Downloads != nil {
		recent, err := s.opts.Downloads.RecentDownloads(r.Context(), 20)
		if err != nil {
			s.log.Error("recent downloads", append(logger.Attrs(r.Context()), "err", err)...)
			writeError(w, http.StatusInternalServerError, "download log unavailable")
			return
		}
		rows := make([]map[string]interface{}, len(recent))
		for i, d := range recent {
			rows[i] = map[string]interface{}{
				"date":      markethours.FormatISO(d.Day),
				"files":     d.Files,
				"createdAt": d.CreatedAt.Format(time.RFC3339),
			}
		}
		resp["recent"] = rows
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePutHistory answers PUT /api/history, recording the last day the
// client downloaded.
func (s *Server) handlePutHistory(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Date is required")
		return
	}
	d, err := bhavcopy.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, dateErrorText(err))
		return
	}
	if err := store.RecordDownloaded(r.Context(), s.opts.Markers, d); err != nil {
		s.markerError("backend")
		s.log.Error("write download marker", append(logger.Attrs(r.Context()), "err", err)...)
		writeError(w, http.StatusInternalServerError, "marker store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"date":    markethours.FormatISO(d),
	})
}

// handleDeleteHistory answers DELETE /api/history.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Markers.Delete(r.Context()); err != nil {
		s.markerError("backend")
		s.log.Error("delete download marker", append(logger.Attrs(r.Context()), "err", err)...)
		writeError(w, http.StatusInternalServerError, "marker store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleMarketStatus answers GET /api/market/status.
func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	cal := s.Calendar()
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"open":     cal.IsSessionOpen(now),
		"status":   cal.SessionStatus(now),
		"nextOpen": cal.NextOpen(now).Format(time.RFC3339),
	})
}
