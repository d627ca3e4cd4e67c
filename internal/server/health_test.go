package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct {
	name string
	err  error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }
func (f *fakePinger) Name() string                 { return f.name }

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{}, &Config{
		Pingers: []Pinger{&fakePinger{name: "corpus"}},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !resp.Ready || len(resp.Checks) != 1 || !resp.Checks[0].OK {
		t.Errorf("unexpected readiness: %+v", resp)
	}
}

func TestHandleReady_DependencyDown(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{}, &Config{
		Pingers: []Pinger{
			&fakePinger{name: "corpus"},
			&fakePinger{name: "downstream", err: errors.New("unreachable")},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Ready {
		t.Error("ready reported true with a failing dependency")
	}
	if len(resp.Checks) != 2 || resp.Checks[0].OK != true || resp.Checks[1].OK != false {
		t.Errorf("unexpected checks: %+v", resp.Checks)
	}
	if resp.Checks[1].Error == "" {
		t.Error("failing check carries no error detail")
	}
}

func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("liveness-only mode must return 200, got %d", w.Code)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, Deps{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", w.Code)
	}
}
