// Package api exposes the mapping engine over HTTP: allocation runs,
// adjustment CRUD, quality reports and strip test patterns.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/agwosdz/pianoled/internal/config"
	"github.com/agwosdz/pianoled/internal/db"
	"github.com/agwosdz/pianoled/internal/leddriver"
)

// ANSI escape codes for request logging.
const (
	colorCyan     = "\033[36m"
	colorReset    = "\033[0m"
	colorYellow   = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server holds the API's collaborators. The painter may be nil when the
// process runs without LED hardware; endpoints that need it answer 503.
type Server struct {
	cfg     *config.LightingConfig
	db      *db.DB
	painter *leddriver.Painter
}

// NewServer wires the API against a configuration, settings store and
// optional painter.
func NewServer(cfg *config.LightingConfig, database *db.DB, painter *leddriver.Painter) *Server {
	return &Server{cfg: cfg, db: database, painter: painter}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/mapping", s.handleMapping)
	mux.HandleFunc("/api/quality", s.handleQuality)
	mux.HandleFunc("/api/adjustments", s.handleAdjustments)
	mux.HandleFunc("/api/adjustments/offset", s.handleOffset)
	mux.HandleFunc("/api/adjustments/trim", s.handleTrim)
	mux.HandleFunc("/api/test", s.handleTestPattern)
	return mux
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
