package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/homealarm/internal/service"
)

// AssetReader serves blobs back over HTTP. Only the local backend needs it;
// S3 URLs are fetched from the bucket directly.
type AssetReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Houses *service.HouseService
	Hosts  *service.HostService
	Alarms *service.AlarmService
	Auth   *Authenticator

	// Optional.
	Assets  AssetReader
	Metrics prometheus.Gatherer
	DB      pinger
}

type Server struct {
	houses  *service.HouseService
	hosts   *service.HostService
	alarms  *service.AlarmService
	auth    *Authenticator
	assets  AssetReader
	metrics prometheus.Gatherer
	db      pinger
	mux     *http.ServeMux
	logger  *slog.Logger
}

func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		houses:  deps.Houses,
		hosts:   deps.Hosts,
		alarms:  deps.Alarms,
		auth:    deps.Auth,
		assets:  deps.Assets,
		metrics: deps.Metrics,
		db:      deps.DB,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	if s.assets != nil {
		s.mux.HandleFunc("GET /assets/{key...}", s.handleGetAsset)
	}

	s.mux.HandleFunc("GET /houses", s.requireUser(s.handleListHouses))
	s.mux.HandleFunc("POST /houses", s.requireAdmin(s.handleCreateHouse))
	s.mux.HandleFunc("GET /houses/{id}", s.requireUser(s.handleGetHouse))
	s.mux.HandleFunc("PUT /houses/{id}", s.requireAdmin(s.handleUpdateHouse))
	s.mux.HandleFunc("DELETE /houses/{id}", s.requireAdmin(s.handleDeleteHouse))

	s.mux.HandleFunc("POST /houses/{id}/hosts", s.requireUser(s.handleCreateHost))
	s.mux.HandleFunc("DELETE /houses/{id}/hosts/{host_id}", s.requireUser(s.handleDeleteHost))

	s.mux.HandleFunc("POST /houses/{id}/alarms", s.requireUser(s.handleCreateAlarm))
	s.mux.HandleFunc("GET /houses/{id}/alarms/{alarm_id}", s.requireUser(s.handleGetAlarm))
	s.mux.HandleFunc("PUT /houses/{id}/alarms/{alarm_id}", s.requireUser(s.handleUpdateAlarm))
	s.mux.HandleFunc("DELETE /houses/{id}/alarms/{alarm_id}", s.requireUser(s.handleDeleteAlarm))
}

func (s *Server) ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; media-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}
