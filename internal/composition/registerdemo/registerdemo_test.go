package registerdemo

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"regdemo/go-backend/internal/adapters/acsclient"
	"regdemo/go-backend/internal/adapters/mockregistrar"
	"regdemo/go-backend/internal/bootstrap/clientconfig"
	"regdemo/go-backend/internal/domains/registration"
	"regdemo/go-backend/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
)

func testConfig() clientconfig.Config {
	cfg := clientconfig.DefaultConfig()
	cfg.Mock.Latency = 0
	cfg.RateLimitRPS = 0
	return cfg
}

func TestNewLoggerParsesLevel(t *testing.T) {
	var out bytes.Buffer
	logger, err := NewLogger(&out, "warn")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "password", "hunter2")
	if strings.Contains(out.String(), "hidden") || !strings.Contains(out.String(), "shown") {
		t.Fatalf("unexpected level filtering: %s", out.String())
	}
	if strings.Contains(out.String(), "hunter2") {
		t.Fatalf("logger leaked password: %s", out.String())
	}
	if _, err := NewLogger(&out, "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewClientSelectsTransport(t *testing.T) {
	cfg := testConfig()
	cfg.Transport = clientconfig.TransportMock
	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("mock client: %v", err)
	}
	if _, ok := client.(*mockregistrar.Registrar); !ok {
		t.Fatalf("expected mock registrar, got %T", client)
	}

	cfg.Transport = clientconfig.TransportHTTP
	client, err = NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("http client: %v", err)
	}
	if _, ok := client.(*acsclient.Client); !ok {
		t.Fatalf("expected acsclient, got %T", client)
	}

	cfg.Transport = "carrier-pigeon"
	if _, err := NewClient(cfg, nil); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}

func TestScreenRegistersThroughMockServer(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()
	registrar, err := NewMockRegistrar(cfg, nil)
	if err != nil {
		t.Fatalf("mock registrar: %v", err)
	}
	server, err := NewMockServer("127.0.0.1:0", "demo-key", registrar, registry, nil)
	if err != nil {
		t.Fatalf("mock server: %v", err)
	}
	httpSrv := httptest.NewServer(server.Handler())
	defer httpSrv.Close()

	cfg.Endpoint = httpSrv.URL
	cfg.AppKey = "demo-key"
	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	screen, err := NewScreen(cfg, client, nil, registry)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = screen.Close(ctx)
	}()

	_, events, stop := screen.Events(0)
	defer stop()
	if _, err := screen.Submit(context.Background(), models.RegistrationForm{
		Username:             "ada",
		Email:                "ada@example.com",
		Password:             "pw-123456",
		PasswordConfirmation: "pw-123456",
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case event := <-events:
			switch event.Method {
			case registration.EventSucceeded:
				done = true
			case registration.EventFailed:
				t.Fatalf("registration failed: %+v", event.Payload)
			}
		case <-deadline:
			t.Fatal("timed out waiting for registration outcome")
		}
	}
	if registrar.Count() != 1 {
		t.Fatalf("expected one account on the mock, got %d", registrar.Count())
	}

	resp, err := http.Get(httpSrv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{
		`regdemo_registration_submissions_total{outcome="succeeded"} 1`,
		`regdemo_mock_http_requests_total{code="200",method="post"} 1`,
	} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("expected %s in metrics output:\n%s", name, body)
		}
	}
}

func TestMockServerHealthAndDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	registrar, err := NewMockRegistrar(testConfig(), nil)
	if err != nil {
		t.Fatalf("mock registrar: %v", err)
	}
	server, err := NewMockServer("", "", registrar, registry, nil)
	if err != nil {
		t.Fatalf("mock server: %v", err)
	}

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}

	if _, err := NewMockServer("", "", registrar, registry, nil); err == nil {
		t.Fatal("expected duplicate metrics registration to fail")
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	srv := NewMetricsServer("127.0.0.1:0", prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Serve(ctx, srv) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop")
	}
}
