package api

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bhavcopy-calendar/internal/logger"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/zstd"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	r.code = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// requestContext tags the request with an ID, then logs and counts it
// under its route template.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = logger.NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := logger.WithRequestID(r.Context(), id)

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		if m := s.opts.Metrics; m != nil {
			m.RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
			m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}
		s.log.LogAttrs(ctx, slog.LevelDebug, "http request",
			slog.String("request_id", id),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("code", rec.code),
			slog.Duration("elapsed", elapsed),
		)
	})
}

type zstdResponseWriter struct {
	http.ResponseWriter
	encoder *zstd.Encoder
}

func (w *zstdResponseWriter) Write(b []byte) (int, error) {
	return w.encoder.Write(b)
}

func (w *zstdResponseWriter) WriteHeader(code int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)
}

// ZstdMiddleware compresses responses for clients that accept zstd.
// WebSocket upgrades pass through untouched.
func ZstdMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "zstd") ||
			strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		encoder, err := zstd.NewWriter(w)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer encoder.Close()

		w.Header().Set("Content-Encoding", "zstd")
		w.Header().Add("Vary", "Accept-Encoding")

		next.ServeHTTP(&zstdResponseWriter{ResponseWriter: w, encoder: encoder}, r)
	})
}
