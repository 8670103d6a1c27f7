package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func serveTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})
	return server
}

func TestServerServesConversions(t *testing.T) {
	server := serveTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/roman/1994", server.Addr()))
	if err != nil {
		t.Fatalf("request conversion: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body struct {
		Arabic int    `json:"arabic"`
		Roman  string `json:"roman"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Arabic != 1994 || body.Roman != "MCMXCIV" {
		t.Fatalf("body = %+v, want 1994/MCMXCIV", body)
	}
}

func TestServerServesHealthAndMetrics(t *testing.T) {
	server := serveTestServer(t)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", server.Addr(), path))
		if err != nil {
			t.Fatalf("request %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}

func TestServerUsesSQLiteBackendFromEnv(t *testing.T) {
	t.Setenv("NUMERAL_SPACE_STORAGE_BACKEND", "sqlite")
	t.Setenv("NUMERAL_SPACE_DB_PATH", filepath.Join(t.TempDir(), "numeral.db"))

	server := serveTestServer(t)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/arabic/IX", server.Addr()))
	if err != nil {
		t.Fatalf("request conversion: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestServerRejectsUnknownBackend(t *testing.T) {
	t.Setenv("NUMERAL_SPACE_STORAGE_BACKEND", "cassandra")

	if _, err := NewWithAddr("127.0.0.1:0"); err == nil {
		t.Fatal("expected unknown backend to be rejected")
	}
}
