package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/metrics"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/session"
)

// SessionHeader carries the session id on every response.
const SessionHeader = "Mcp-Session-Id"

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Addr        string
	CORSOrigins []string

	// MetricsPath serves Gatherer when both are set.
	MetricsPath string
	Gatherer    prometheus.Gatherer
	Metrics     *metrics.Metrics

	ShutdownTimeout time.Duration
}

// HTTPServer serves one session: POST /mcp takes one JSON-RPC message and
// streams the frames it produces back as NDJSON.
type HTTPServer struct {
	session *session.Session
	cfg     HTTPConfig
	router  chi.Router
	logger  *slog.Logger
}

// NewHTTPServer builds the router for sess.
func NewHTTPServer(sess *session.Session, cfg HTTPConfig) *HTTPServer {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &HTTPServer{session: sess, cfg: cfg, logger: slog.Default()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cfg.Metrics.Middleware())
	r.Use(corsMiddleware(cfg.CORSOrigins))

	r.Post("/mcp", s.handleMessage)
	r.Delete("/mcp", s.handleClose)
	r.Get("/healthz", s.handleHealth)
	if cfg.MetricsPath != "" && cfg.Gatherer != nil {
		r.Handle(cfg.MetricsPath, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled or the session closes, then
// shuts the listener down gracefully.
func (s *HTTPServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http_transport_started", slog.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		_ = s.session.Close()
		return err
	case <-ctx.Done():
	case <-s.session.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	_ = s.session.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http_shutdown_failed", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("http_transport_stopped")
	return ctx.Err()
}

func (s *HTTPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxMessageSize))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	w.Header().Set(SessionHeader, s.session.ID())
	sink := newHTTPSink(w)
	defer sink.detach()

	done := s.session.Handle(r.Context(), body, sink)
	select {
	case <-done:
	case <-r.Context().Done():
		s.logger.Debug("http_client_disconnected",
			slog.String("request_id", middleware.GetReqID(r.Context())))
		return
	}

	if !sink.started() {
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *HTTPServer) handleClose(w http.ResponseWriter, _ *http.Request) {
	_ = s.session.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"session_id": s.session.ID(),
		"state":      s.session.State().String(),
		"in_flight":  s.session.InFlight(),
	})
}

// httpSink writes frames to one response. Frames arriving after the
// handler returned are dropped.
type httpSink struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	enc      *json.Encoder
	flusher  http.Flusher
	wrote    bool
	detached bool
}

func newHTTPSink(w http.ResponseWriter) *httpSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	flusher, _ := w.(http.Flusher)
	return &httpSink{w: w, enc: enc, flusher: flusher}
}

func (s *httpSink) Emit(f session.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return errors.New("response already finished")
	}
	if !s.wrote {
		s.w.Header().Set("Content-Type", "application/x-ndjson")
		s.w.WriteHeader(http.StatusOK)
		s.wrote = true
	}
	if err := s.enc.Encode(f); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *httpSink) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wrote
}

func (s *httpSink) detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}
