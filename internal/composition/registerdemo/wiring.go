package registerdemo

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"regdemo/go-backend/internal/adapters/acsclient"
	"regdemo/go-backend/internal/adapters/mockregistrar"
	"regdemo/go-backend/internal/bootstrap/clientconfig"
	"regdemo/go-backend/internal/domains/registration"
	"regdemo/go-backend/internal/platform/metrics"
	"regdemo/go-backend/internal/platform/privacylog"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "regdemo"

// NewLogger returns a privacy-sanitizing JSON logger at the named level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return privacylog.NewJSONLogger(w, lvl), nil
}

// NewMockRegistrar builds the in-process registrar from the mock section.
func NewMockRegistrar(cfg clientconfig.Config, logger *slog.Logger) (*mockregistrar.Registrar, error) {
	return mockregistrar.New(mockregistrar.Options{
		Latency:           cfg.Mock.Latency,
		AttemptsPerMinute: cfg.Mock.AttemptsPerMinute,
		StatePath:         cfg.Mock.StatePath,
		StateSecret:       cfg.Mock.StateSecret,
		Logger:            logger,
	})
}

// NewClient selects the registration transport configured in cfg.
func NewClient(cfg clientconfig.Config, logger *slog.Logger) (registration.Client, error) {
	switch cfg.Transport {
	case clientconfig.TransportMock:
		registrar, err := NewMockRegistrar(cfg, logger)
		if err != nil {
			return nil, err
		}
		return registrar, nil
	case clientconfig.TransportHTTP:
		client, err := acsclient.New(acsclient.Options{
			BaseURL:        cfg.Endpoint,
			AppKey:         cfg.AppKey,
			Timeout:        cfg.RequestTimeout,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// NewScreen builds a registration screen whose coordinator metrics are
// registered on reg. A nil reg leaves the metrics unregistered.
func NewScreen(cfg clientconfig.Config, client registration.Client, logger *slog.Logger, reg prometheus.Registerer) (*registration.Screen, error) {
	coordinatorMetrics := metrics.NewCoordinator(metricsNamespace, "registration")
	if reg != nil {
		if err := coordinatorMetrics.Register(reg); err != nil {
			return nil, err
		}
	}
	return registration.NewScreen(registration.ScreenOptions{
		Client:        client,
		DismissPolicy: cfg.DismissPolicy,
		Logger:        logger,
		Metrics:       coordinatorMetrics,
		EventBuffer:   cfg.EventBuffer,
	})
}
