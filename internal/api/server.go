// Package api serves the BhavCopy calendar over HTTP: URL generation,
// month grids, day status, quick-select presets and download history.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"bhavcopy-calendar/internal/markethours"
	"bhavcopy-calendar/internal/metrics"
	"bhavcopy-calendar/internal/store"
	"bhavcopy-calendar/internal/store/sqlite"

	"github.com/gorilla/mux"
)

// DownloadLog audits generated URLs. The SQLite store implements it.
type DownloadLog interface {
	RecordDownloads(ctx context.Context, days []time.Time, files int) error
	RecentDownloads(ctx context.Context, limit int) ([]sqlite.Download, error)
}

// Options configures a Server. Calendar and Markers are required.
type Options struct {
	Calendar  *markethours.Calendar
	Clock     markethours.Clock
	Markers   store.MarkerStore
	Downloads DownloadLog
	// WS serves /ws when set.
	WS      http.Handler
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	HolidayFile     string
	AdminTOTPSecret string
	// OnReload is called with the new calendar after a holiday reload.
	OnReload func(*markethours.Calendar)
}

// Server holds the HTTP handlers and the calendar currently in force.
type Server struct {
	cal  atomic.Pointer[markethours.Calendar]
	opts Options
	log  *slog.Logger
}

// NewServer returns a Server for opts.
func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = markethours.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts, log: opts.Logger}
	s.cal.Store(opts.Calendar)
	return s
}

// Calendar returns the calendar currently in force.
func (s *Server) Calendar() *markethours.Calendar {
	return s.cal.Load()
}

// SetCalendar swaps in a new calendar. In-flight requests keep the one
// they loaded.
func (s *Server) SetCalendar(c *markethours.Calendar) {
	s.cal.Store(c)
}

func (s *Server) now() time.Time {
	return s.opts.Clock.Now().In(markethours.IST)
}

// Router builds the route table wrapped in the request middleware.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestContext)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// Routes stay on the root router: MethodNotAllowedHandler does not
	// apply to subrouters.
	r.HandleFunc("/api/download-urls", s.handleDownloadURLs).Methods(http.MethodPost)
	r.HandleFunc("/api/download-urls/batch", s.handleBatch).Methods(http.MethodPost)
	r.HandleFunc("/api/calendar/{year:[0-9]{4}}/{month:[0-9]{1,2}}", s.handleCalendar).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/latest", s.handleLatest).Methods(http.MethodGet)
	r.HandleFunc("/api/presets/{name}", s.handlePreset).Methods(http.MethodGet)
	r.HandleFunc("/api/history", s.handleGetHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/history", s.handlePutHistory).Methods(http.MethodPut)
	r.HandleFunc("/api/history", s.handleDeleteHistory).Methods(http.MethodDelete)
	r.HandleFunc("/api/market/status", s.handleMarketStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/holidays.ics", s.handleHolidaysICS).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/holidays/reload", s.handleReloadHolidays).Methods(http.MethodPost)

	if s.opts.WS != nil {
		r.Handle("/ws", s.opts.WS).Methods(http.MethodGet)
	}

	return ZstdMiddleware(r)
}
