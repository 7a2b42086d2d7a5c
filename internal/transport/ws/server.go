package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/parley-chat/parley/internal/config"
)

// Server exposes the chat endpoint, a health check, and optionally the
// metrics endpoint over HTTP. It satisfies the lifecycle Service
// interface.
type Server struct {
	cfg    config.ServerConfig
	logger *zap.Logger
	router *mux.Router
	srv    *http.Server
}

// NewServer wires the WebSocket handler into an HTTP server.
//
// Precondition: handler and logger are non-nil. gatherer may be nil when
// metrics are disabled.
func NewServer(cfg config.ServerConfig, metricsCfg config.MetricsConfig, handler http.Handler, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	router := mux.NewRouter()
	router.Handle(cfg.WSPath, handler)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if metricsCfg.Enabled && gatherer != nil {
		router.Handle(metricsCfg.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		srv: &http.Server{
			Addr:    cfg.Addr(),
			Handler: router,
		},
	}
}

// Router returns the request router. Exposed for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start listens on the configured address and blocks until the server
// shuts down. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr()), zap.String("wsPath", s.cfg.WSPath))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}
