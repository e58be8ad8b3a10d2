package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"bhavcopy-calendar/internal/markethours"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for the BhavCopy calendar service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec   // labels: route, code
	RequestDuration *prometheus.HistogramVec // labels: route

	URLsGenerated prometheus.Counter
	DaysRequested prometheus.Counter

	// Marker store
	MarkerErrors *prometheus.CounterVec // labels: kind=corrupt|backend

	// Holiday table
	HolidayReloads *prometheus.CounterVec // labels: result=ok|error
	HolidayYears   prometheus.Gauge

	// Publication watcher
	LatestAvailableDay prometheus.Gauge // YYYYMMDD
	PublishRuns        prometheus.Counter
	WSClients          prometheus.Gauge

	// Redis circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bhavcopy_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bhavcopy_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"route"}),
		URLsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhavcopy_urls_generated_total",
			Help: "Archive URLs generated",
		}),
		DaysRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhavcopy_days_requested_total",
			Help: "Trading days URLs were generated for",
		}),
		MarkerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bhavcopy_marker_errors_total",
			Help: "Last-download marker failures (corrupt value or backend error)",
		}, []string{"kind"}),
		HolidayReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bhavcopy_holiday_reloads_total",
			Help: "Holiday table reload attempts",
		}, []string{"result"}),
		HolidayYears: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bhavcopy_holiday_years",
			Help: "Number of years covered by the active holiday table",
		}),
		LatestAvailableDay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bhavcopy_latest_available_day",
			Help: "Latest published trading day as YYYYMMDD",
		}),
		PublishRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhavcopy_publish_runs_total",
			Help: "Publication watcher runs",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bhavcopy_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bhavcopy_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bhavcopy_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.URLsGenerated,
		m.DaysRequested,
		m.MarkerErrors,
		m.HolidayReloads,
		m.HolidayYears,
		m.LatestAvailableDay,
		m.PublishRuns,
		m.WSClients,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
	)
	return m
}

// SetLatestDay records d as YYYYMMDD on the LatestAvailableDay gauge.
func (m *Metrics) SetLatestDay(ymd string) {
	if v, err := strconv.ParseFloat(ymd, 64); err == nil {
		m.LatestAvailableDay.Set(v)
	}
}

// HealthStatus tracks dependency health for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	MarkerBackend   string  `json:"marker_backend"`
	RedisConnected  bool    `json:"redis_connected"`
	RedisLatencyMs  float64 `json:"redis_latency_ms"`
	SQLiteOK        bool    `json:"sqlite_ok"`
	SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
	HolidayYears    []int   `json:"holiday_years"`

	LastPublishAt time.Time `json:"last_publish_at"`
	LastCheckAt   time.Time `json:"last_check_at"`
	StartedAt     time.Time `json:"started_at"`

	now func() time.Time
}

// NewHealthStatus returns a health status for the given marker backend.
func NewHealthStatus(backend string) *HealthStatus {
	return &HealthStatus{
		MarkerBackend: backend,
		StartedAt:     time.Now(),
		now:           time.Now,
	}
}

func (h *HealthStatus) SetHolidayYears(years []int) {
	h.mu.Lock()
	h.HolidayYears = years
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastPublish(t time.Time) {
	h.mu.Lock()
	h.LastPublishAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil dependencies
// are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if rdb != nil {
			h.CheckRedis(probeCtx, rdb)
		}
		if sqlDB != nil {
			h.CheckSQLite(probeCtx, sqlDB)
		}
	}
	go func() {
		check()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. The service is degraded when the
// configured marker backend is down or the holiday table has no data for
// the current year.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	backendOK := true
	switch h.MarkerBackend {
	case "redis":
		backendOK = h.RedisConnected
	case "sqlite":
		backendOK = h.SQLiteOK
	}

	year := h.now().In(markethours.IST).Year()
	yearCovered := false
	for _, y := range h.HolidayYears {
		if y == year {
			yearCovered = true
			break
		}
	}

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !backendOK || !yearCovered {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastPublish := ""
	if !h.LastPublishAt.IsZero() {
		lastPublish = h.LastPublishAt.Format(time.RFC3339)
	}

	status := struct {
		Status           string  `json:"status"`
		Uptime           string  `json:"uptime"`
		MarkerBackend    string  `json:"marker_backend"`
		MarkerBackendOK  bool    `json:"marker_backend_ok"`
		RedisConnected   bool    `json:"redis_connected"`
		RedisLatencyMs   float64 `json:"redis_latency_ms"`
		SQLiteOK         bool    `json:"sqlite_ok"`
		SQLiteLatencyMs  float64 `json:"sqlite_latency_ms"`
		HolidayYears     []int   `json:"holiday_years"`
		HolidayYearReady bool    `json:"holiday_year_ready"`
		LastPublishAt    string  `json:"last_publish_at"`
		LastCheckAt      string  `json:"last_check_at"`
	}{
		Status:           overallStatus,
		Uptime:           time.Since(h.StartedAt).Round(time.Second).String(),
		MarkerBackend:    h.MarkerBackend,
		MarkerBackendOK:  backendOK,
		RedisConnected:   h.RedisConnected,
		RedisLatencyMs:   h.RedisLatencyMs,
		SQLiteOK:         h.SQLiteOK,
		SQLiteLatencyMs:  h.SQLiteLatencyMs,
		HolidayYears:     h.HolidayYears,
		HolidayYearReady: yearCovered,
		LastPublishAt:    lastPublish,
		LastCheckAt:      h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, gatherer prometheus.Gatherer, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
