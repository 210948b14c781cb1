package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// setRunEnv points run() at a temp database, an in-process Redis and a
// silent telemetry exporter.
func setRunEnv(t *testing.T, port string) {
	t.Helper()

	mr := miniredis.RunT(t)

	t.Setenv("DATABASE_PATH", t.TempDir()+"/test-run.db")
	t.Setenv("PORT", port)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("SESSION_SIGNING_KEY", "test-signing-key")
	t.Setenv("ADMIN_EMAIL", "ops@talladmin.io")
	t.Setenv("ADMIN_PASSWORD", "correct horse")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("OTEL_EXPORTER", "none")
	t.Setenv("OTEL_ENVIRONMENT", "test")
}

func get(t *testing.T, method, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	return http.DefaultClient.Do(req)
}

// TestRun exercises the real run() function end-to-end: telemetry, SQLite,
// River, Redis, the HTTP server and graceful shutdown.
func TestRun(t *testing.T) {
	setRunEnv(t, "19876")

	errCh := make(chan error, 1)
	go func() { errCh <- run() }()

	serverURL := "http://localhost:19876"
	ready := false
	for i := 0; i < 50; i++ {
		resp, reqErr := get(t, http.MethodGet, serverURL+"/metrics")
		if reqErr == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ready {
		t.Fatal("server did not start within 5 seconds")
	}

	// Tenant routes require a session.
	resp, err := get(t, http.MethodGet, serverURL+"/api/v1/tenants")
	if err != nil {
		t.Fatalf("GET /api/v1/tenants failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	// Auth routes are open.
	resp, err = get(t, http.MethodPost, serverURL+"/api/v1/auth/login")
	if err != nil {
		t.Fatalf("POST /api/v1/auth/login failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	resp, err = get(t, http.MethodGet, serverURL+"/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("/metrics should expose the Go collector")
	}

	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("finding process: %v", err)
	}
	if err := proc.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("sending SIGINT: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() returned error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not exit within 15 seconds")
	}
}

// TestRun_InvalidDB verifies run() returns an error for an invalid database path.
func TestRun_InvalidDB(t *testing.T) {
	setRunEnv(t, "19877")
	t.Setenv("DATABASE_PATH", "/nonexistent/path/db.sqlite")

	if err := run(); err == nil {
		t.Fatal("expected error for invalid database path, got nil")
	}
}

func TestRun_MissingSigningKey(t *testing.T) {
	setRunEnv(t, "19878")
	t.Setenv("SESSION_SIGNING_KEY", "")

	err := run()
	if err == nil || !strings.Contains(err.Error(), "SESSION_SIGNING_KEY") {
		t.Fatalf("expected missing signing key error, got %v", err)
	}
}

func TestRun_RedisUnreachable(t *testing.T) {
	setRunEnv(t, "19879")
	t.Setenv("REDIS_URL", "redis://127.0.0.1:1")

	if err := run(); err == nil {
		t.Fatal("expected error for unreachable redis, got nil")
	}
}
