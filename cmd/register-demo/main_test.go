package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestSubmitWithMockTransportPrintsAccount(t *testing.T) {
	t.Setenv("REGDEMO_PASSWORD", "pw-from-env")
	out, err := runCLI(t, "--transport", "mock", "--log-level", "error",
		"submit", "--username", "ada", "--email", "Ada@Example.com")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, want := range []string{"started", "user_id: usr1", "email: ada@example.com", "recovery_phrase: "} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestSubmitReportsRegistrarFailure(t *testing.T) {
	_, err := runCLI(t, "--transport", "mock", "--log-level", "error",
		"submit", "--username", "ada", "--email", "ada@example.com",
		"--password", "one", "--password-confirmation", "two")
	if err == nil || !strings.Contains(err.Error(), "password confirmation does not match") {
		t.Fatalf("expected confirmation failure, got %v", err)
	}
}

func TestSubmitDismissAfterCancelsInFlightRequest(t *testing.T) {
	out, err := runCLI(t, "--transport", "mock", "--log-level", "error",
		"submit", "--username", "ada", "--email", "ada@example.com", "--password", "pw",
		"--dismiss-after", "10ms")
	if !errors.Is(err, errDismissed) {
		t.Fatalf("expected errDismissed, got %v", err)
	}
	if !strings.Contains(out, "dismissed while in flight") {
		t.Fatalf("expected dismissal notice, got:\n%s", out)
	}
}

func TestSubmitRejectsUnknownDismissPolicy(t *testing.T) {
	_, err := runCLI(t, "--transport", "mock", "submit", "--username", "ada", "--dismiss-policy", "ignore")
	if err == nil || !strings.Contains(err.Error(), "dismiss policy") {
		t.Fatalf("expected dismiss policy error, got %v", err)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := runCLI(t, "version", "--json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode version output %q: %v", out, err)
	}
	if info["version"] != version || info["commit"] != commit {
		t.Fatalf("unexpected version info: %v", info)
	}
}
