package registerdemo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"regdemo/go-backend/internal/adapters/acsclient"
	"regdemo/go-backend/internal/adapters/mockregistrar"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// MockServer exposes a mock registrar over HTTP together with /healthz and
// /metrics.
type MockServer struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewMockServer(addr, appKey string, registrar *mockregistrar.Registrar, registry *prometheus.Registry, logger *slog.Logger) (*MockServer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "mock",
		Name:      "http_requests_total",
		Help:      "Registration requests served by the mock registrar.",
	}, []string{"code", "method"})
	if err := registry.Register(requests); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle(acsclient.CreateUserPath, promhttp.InstrumentHandlerCounter(requests, registrar.Handler(appKey)))
	mux.Handle("GET /metrics", MetricsHandler(registry))

	return &MockServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *MockServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *MockServer) Run(ctx context.Context) error {
	s.logger.Info("mock registrar listening",
		"component", "mockserver",
		"operation", "run",
		"addr", s.httpServer.Addr,
	)
	return Serve(ctx, s.httpServer)
}

func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewMetricsServer serves gatherer on addr at /metrics.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", MetricsHandler(gatherer))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs srv until ctx is done, then shuts it down within shutdownTimeout.
func Serve(ctx context.Context, srv *http.Server) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
