package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the run's Prometheus metrics over HTTP
type Server struct {
	metricsServer *http.Server
	logger        *slog.Logger
}

// NewServer creates a new metrics server
func NewServer(metricsPort int, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		metricsServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", metricsPort),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
		},
		logger: logger,
	}
}

// Start serves metrics until the context is cancelled, then shuts down
// gracefully
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.logger.Info("starting metrics server",
			"addr", s.metricsServer.Addr)
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error",
				"error", err.Error())
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down metrics server")

	if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("metrics server shutdown error",
			"error", err.Error())
		return err
	}

	return nil
}
