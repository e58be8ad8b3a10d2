// cmd/bhavcopyd serves the BhavCopy trading calendar over HTTP and pushes
// the latest available trading day to WebSocket clients after each daily
// publication.
//
// Configuration comes from the environment (and an optional .env file);
// run with -help-env to list the variables.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bhavcopy-calendar/config"
	"bhavcopy-calendar/internal/api"
	"bhavcopy-calendar/internal/gateway"
	"bhavcopy-calendar/internal/logger"
	"bhavcopy-calendar/internal/markethours"
	"bhavcopy-calendar/internal/metrics"
	"bhavcopy-calendar/internal/notification"
	"bhavcopy-calendar/internal/publish"
	"bhavcopy-calendar/internal/store"
	redisstore "bhavcopy-calendar/internal/store/redis"
	sqlitestore "bhavcopy-calendar/internal/store/sqlite"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	helpEnv := flag.Bool("help-env", false, "List environment variables and exit")
	flag.Parse()
	if *helpEnv {
		if err := config.Usage(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[bhavcopyd] %v", err)
	}
	slogger := logger.Init("bhavcopyd", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Holiday table
	table := markethours.DefaultHolidays()
	if cfg.HolidayFile != "" {
		table, err = markethours.LoadHolidayFile(cfg.HolidayFile)
		if err != nil {
			log.Fatalf("[bhavcopyd] holidays: %v", err)
		}
	}
	clock := markethours.SystemClock{}
	cal := markethours.New(table, markethours.WithClock(clock))
	slogger.Info("holiday table loaded", "years", table.Years(), "holidays", table.Len())

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	m.HolidayYears.Set(float64(len(table.Years())))
	health := metrics.NewHealthStatus(cfg.MarkerBackend)
	health.SetHolidayYears(table.Years())

	// Marker store
	var (
		markers   store.MarkerStore
		downloads api.DownloadLog
		rdb       *goredis.Client
		sqlDB     *sql.DB
	)
	switch cfg.MarkerBackend {
	case config.BackendRedis:
		rs, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Fatalf("[bhavcopyd] %v", err)
		}
		defer rs.Close()
		rs.Breaker().OnStateChange = func(from, to redisstore.State) {
			m.RedisCircuitBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				m.RedisCircuitBreakerTrips.Inc()
			}
			log.Printf("[bhavcopyd] redis breaker %s -> %s", from, to)
		}
		markers, rdb = rs, rs.Client()
		log.Printf("[bhavcopyd] redis marker store at %s", cfg.RedisAddr)
	case config.BackendSQLite:
		ss, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[bhavcopyd] %v", err)
		}
		defer ss.Close()
		markers, downloads, sqlDB = ss, ss, ss.DB()
		log.Printf("[bhavcopyd] sqlite marker store at %s", cfg.SQLitePath)
	default:
		markers = store.NewMemory()
		log.Println("[bhavcopyd] in-memory marker store")
	}
	health.StartLivenessChecker(ctx, rdb, sqlDB, 10*time.Second)

	// Notifications
	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}

	// WebSocket hub
	hub := gateway.NewHub(rdb)
	hub.OnCount = func(n int) { m.WSClients.Set(float64(n)) }
	go hub.Run(ctx)

	// HTTP API
	srv := api.NewServer(api.Options{
		Calendar:        cal,
		Clock:           clock,
		Markers:         markers,
		Downloads:       downloads,
		WS:              hub,
		Metrics:         m,
		Logger:          slogger,
		HolidayFile:     cfg.HolidayFile,
		AdminTOTPSecret: cfg.AdminTOTPSecret,
		OnReload: func(c *markethours.Calendar) {
			health.SetHolidayYears(c.Holidays().Years())
		},
	})

	// Publication watcher
	watcher := &publish.Watcher{
		Calendar:  srv.Calendar,
		Publisher: hub,
		Notifier:  notifiers,
		Metrics:   m,
		Health:    health,
		Clock:     clock,
	}
	sched, err := watcher.Start(ctx, cfg.PublishSchedule)
	if err != nil {
		log.Fatalf("[bhavcopyd] %v", err)
	}

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, reg, health)
	metricsSrv.Start()

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slogger.Info("serving", "addr", cfg.ListenAddr, "backend", cfg.MarkerBackend)
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[bhavcopyd] server error: %v", err)
		}
	}()

	<-sigCh
	log.Println("[bhavcopyd] shutting down...")
	<-sched.Stop().Done()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	slog.Info("stopped")
}
