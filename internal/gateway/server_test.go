package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthOK(t *testing.T) {
	s := NewServer("127.0.0.1:0", "v1.2.3", func() map[string]bool {
		return map[string]bool{"telegram": true}
	})

	rec := httptest.NewRecorder()
	s.BuildMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Version != "v1.2.3" || !body.Channels["telegram"] {
		t.Errorf("body = %+v", body)
	}
}

func TestHealthDegraded(t *testing.T) {
	s := NewServer("127.0.0.1:0", "dev", func() map[string]bool {
		return map[string]bool{"telegram": false}
	})

	rec := httptest.NewRecorder()
	s.BuildMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleRegistersRoute(t *testing.T) {
	s := NewServer("127.0.0.1:0", "dev", nil)
	s.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "metrics")
	}))

	rec := httptest.NewRecorder()
	s.BuildMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Body.String() != "metrics" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestStartServesUntilCancelled(t *testing.T) {
	s := NewServer("127.0.0.1:0", "dev", nil)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
