package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// fakeRemote implements Embedder for Provider tests.
type fakeRemote struct {
	// vec is returned when err is nil.
	vec []float32
	// err forces the remote path to fail.
	err error
	// calls counts invocations.
	calls int
}

func (f *fakeRemote) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

// marked returns a Dimensions-length vector with a recognizable first slot.
func marked(v float32) []float32 {
	vec := make([]float32, Dimensions)
	vec[0] = v
	return vec
}

func TestProvider_RemoteSuccess(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{vec: marked(0.5)}
	p := NewProvider(remote)

	vec, err := p.Embed(context.Background(), "query")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if vec[0] != 0.5 {
		t.Errorf("expected remote vector, got fallback (vec[0]=%v)", vec[0])
	}
	if remote.calls != 1 {
		t.Errorf("remote calls: got %d, want 1", remote.calls)
	}
}

func TestProvider_RemoteErrorFallsBack(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{err: errors.New("boom")}
	p := NewProvider(remote, WithMetrics(prometheus.NewRegistry()))

	vec, err := p.Embed(context.Background(), "the cell membrane")
	if err != nil {
		t.Fatalf("provider must never fail, got %v", err)
	}
	if len(vec) != Dimensions {
		t.Fatalf("fallback vector: got %d dimensions, want %d", len(vec), Dimensions)
	}

	// The fallback is deterministic — a direct call must agree.
	want, _ := NewFallbackEmbedder().Embed(context.Background(), "the cell membrane")
	for i := range vec {
		if vec[i] != want[i] {
			t.Fatalf("fallback vector mismatch at index %d", i)
		}
	}
}

func TestProvider_NoRemoteUsesFallback(t *testing.T) {
	t.Parallel()

	p := NewProvider(nil)
	vec, err := p.Embed(context.Background(), "offline corpus")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != Dimensions {
		t.Errorf("got %d dimensions, want %d", len(vec), Dimensions)
	}
}

// newEmbedTestServer builds an httptest server answering the embeddings API
// with the given handler.
func newEmbedTestServer(t *testing.T, handler http.HandlerFunc) *RemoteEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemoteEmbedder(&RemoteConfig{
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Model:    "text-embedding-3-large",
	})
}

func TestRemote_Success(t *testing.T) {
	t.Parallel()

	e := newEmbedTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: got %q", got)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Input != "hello" {
			t.Errorf("input: got %q", req.Input)
		}

		vec := make([]float32, Dimensions)
		vec[7] = 1
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		})
	})

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if vec[7] != 1 {
		t.Errorf("vector content lost in transit")
	}
}

func TestRemote_DimensionMismatch(t *testing.T) {
	t.Parallel()

	e := newEmbedTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 2, 3}}},
		})
	})

	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestRemote_EmptyData(t *testing.T) {
	t.Parallel()

	e := newEmbedTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for empty data array")
	}
}

func TestRemote_HTTPError(t *testing.T) {
	t.Parallel()

	e := newEmbedTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited"},
		})
	})

	_, err := e.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("error %q should mention the server message", err)
	}
}

func TestRemote_MalformedBody(t *testing.T) {
	t.Parallel()

	e := newEmbedTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not json at all")
	})

	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected decode error")
	}
}
