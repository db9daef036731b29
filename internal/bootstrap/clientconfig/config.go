package clientconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"regdemo/go-backend/internal/domains/registration"
	"regdemo/go-backend/internal/platform/notify"

	"gopkg.in/yaml.v3"
)

const (
	TransportHTTP = "http"
	TransportMock = "mock"

	DismissCancel = registration.DismissCancel
	DismissDetach = registration.DismissDetach
)

type Config struct {
	Transport      string
	Endpoint       string
	AppKey         string
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	DismissPolicy  string
	EventBuffer    int
	MetricsAddr    string
	LogLevel       string
	Mock           MockConfig
}

type MockConfig struct {
	ListenAddr        string
	Latency           time.Duration
	AttemptsPerMinute int
	StatePath         string
	StateSecret       string
}

type FileConfig struct {
	Registration RegistrationFileConfig `yaml:"registration"`
	Metrics      MetricsFileConfig      `yaml:"metrics"`
	Mock         MockFileConfig         `yaml:"mock"`
}

type RegistrationFileConfig struct {
	Transport      string        `yaml:"transport"`
	Endpoint       string        `yaml:"endpoint"`
	AppKey         string        `yaml:"appKey"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	RateLimitRPS   float64       `yaml:"rateLimitRPS"`
	RateLimitBurst int           `yaml:"rateLimitBurst"`
	DismissPolicy  string        `yaml:"dismissPolicy"`
	EventBuffer    int           `yaml:"eventBuffer"`
	LogLevel       string        `yaml:"logLevel"`
}

type MetricsFileConfig struct {
	ListenAddress string `yaml:"listenAddress"`
}

type MockFileConfig struct {
	ListenAddress     string        `yaml:"listenAddress"`
	Latency           time.Duration `yaml:"latency"`
	AttemptsPerMinute *int          `yaml:"attemptsPerMinute"`
	StatePath         string        `yaml:"statePath"`
	StateSecret       string        `yaml:"stateSecret"`
}

func DefaultConfig() Config {
	return Config{
		Transport:      TransportHTTP,
		Endpoint:       "http://127.0.0.1:8790",
		RequestTimeout: 15 * time.Second,
		RateLimitRPS:   2,
		RateLimitBurst: 1,
		DismissPolicy:  DismissCancel,
		EventBuffer:    notify.DefaultSubscriberBuffer,
		LogLevel:       "info",
		Mock: MockConfig{
			ListenAddr:        "127.0.0.1:8790",
			Latency:           300 * time.Millisecond,
			AttemptsPerMinute: 5,
		},
	}
}

// LoadFromPath reads configPath, or the first readable default candidate when
// configPath is empty, merges it over the defaults and applies env overrides.
// Only an explicit configPath that cannot be read or parsed is an error.
func LoadFromPath(configPath string) (Config, error) {
	cfg := DefaultConfig()

	candidates := []string{"configs/register-demo.yaml"}
	explicit := strings.TrimSpace(configPath) != ""
	if explicit {
		candidates = []string{strings.TrimSpace(configPath)}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if explicit {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}
		var parsed FileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			if explicit {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			continue
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Merge(dst *Config, src FileConfig) {
	reg := src.Registration
	if reg.Transport != "" {
		dst.Transport = reg.Transport
	}
	if reg.Endpoint != "" {
		dst.Endpoint = reg.Endpoint
	}
	if reg.AppKey != "" {
		dst.AppKey = reg.AppKey
	}
	if reg.RequestTimeout > 0 {
		dst.RequestTimeout = reg.RequestTimeout
	}
	if reg.RateLimitRPS > 0 {
		dst.RateLimitRPS = reg.RateLimitRPS
	}
	if reg.RateLimitBurst > 0 {
		dst.RateLimitBurst = reg.RateLimitBurst
	}
	if reg.DismissPolicy != "" {
		dst.DismissPolicy = reg.DismissPolicy
	}
	if reg.EventBuffer > 0 {
		dst.EventBuffer = reg.EventBuffer
	}
	if reg.LogLevel != "" {
		dst.LogLevel = reg.LogLevel
	}
	if src.Metrics.ListenAddress != "" {
		dst.MetricsAddr = src.Metrics.ListenAddress
	}
	mock := src.Mock
	if mock.ListenAddress != "" {
		dst.Mock.ListenAddr = mock.ListenAddress
	}
	if mock.Latency > 0 {
		dst.Mock.Latency = mock.Latency
	}
	if mock.AttemptsPerMinute != nil {
		dst.Mock.AttemptsPerMinute = *mock.AttemptsPerMinute
	}
	if mock.StatePath != "" {
		dst.Mock.StatePath = mock.StatePath
	}
	if mock.StateSecret != "" {
		dst.Mock.StateSecret = mock.StateSecret
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := envString("REGDEMO_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := envString("REGDEMO_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := envString("REGDEMO_APP_KEY"); v != "" {
		cfg.AppKey = v
	}
	if v := envString("REGDEMO_DISMISS_POLICY"); v != "" {
		cfg.DismissPolicy = v
	}
	if v := envString("REGDEMO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	timeoutMS := envBoundedIntWithFallback("REGDEMO_REQUEST_TIMEOUT_MS", int(cfg.RequestTimeout/time.Millisecond), 100, 300_000)
	cfg.RequestTimeout = time.Duration(timeoutMS) * time.Millisecond
	cfg.EventBuffer = envBoundedIntWithFallback("REGDEMO_EVENT_BUFFER", cfg.EventBuffer, 1, 4096)
	cfg.RateLimitRPS = envPositiveFloatWithFallback("REGDEMO_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.Mock.StateSecret = envStringWithFallback("REGDEMO_MOCK_STATE_SECRET", cfg.Mock.StateSecret)
}

func (c *Config) Validate() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	c.DismissPolicy = strings.ToLower(strings.TrimSpace(c.DismissPolicy))
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")

	var errs []error
	switch c.Transport {
	case TransportHTTP:
		if c.Endpoint == "" {
			errs = append(errs, errors.New("registration endpoint is required for http transport"))
		}
	case TransportMock:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportHTTP, TransportMock))
	}
	switch c.DismissPolicy {
	case DismissCancel, DismissDetach:
	default:
		errs = append(errs, fmt.Errorf("unknown dismiss policy %q (want %s or %s)", c.DismissPolicy, DismissCancel, DismissDetach))
	}
	if c.Mock.StatePath != "" && strings.TrimSpace(c.Mock.StateSecret) == "" {
		errs = append(errs, errors.New("mock state path requires a state secret"))
	}
	return errors.Join(errs...)
}
