package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRouter_Healthz(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	cases := []struct {
		name   string
		deps   map[string]Pinger
		status int
		body   string
	}{
		{name: "no dependencies", deps: nil, status: http.StatusOK, body: `"ok"`},
		{name: "healthy graph", deps: map[string]Pinger{"graph": healthy}, status: http.StatusOK, body: `"ok"`},
		{name: "graph down", deps: map[string]Pinger{"graph": down}, status: http.StatusServiceUnavailable, body: "graph: connection refused"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(discardLogger(), RouterDependencies{Health: DependencyHealth{Deps: tc.deps}})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.body) {
				t.Fatalf("expected body to contain %q, got %s", tc.body, rec.Body.String())
			}
		})
	}
}

func TestRouter_RoutesAnalyze(t *testing.T) {
	router := NewRouter(discardLogger(), RouterDependencies{API: newHandlers(HandlerOptions{})})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(cycleCSV))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON response, got %q", ct)
	}
}

func TestRouter_CORS(t *testing.T) {
	router := NewRouter(discardLogger(), RouterDependencies{
		API:            newHandlers(HandlerOptions{}),
		AllowedOrigins: []string{"https://dashboard.example"},
	})

	preflight := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	preflight.Header.Set("Origin", "https://dashboard.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, preflight)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for allowed pre-flight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Content-Disposition") {
		t.Fatalf("download header must be exposed, got %q", got)
	}

	blocked := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	blocked.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, blocked)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown origin, got %d", rec.Code)
	}
}

func TestRouter_RequestID(t *testing.T) {
	router := NewRouter(discardLogger(), RouterDependencies{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected caller request id to be echoed, got %q", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := recoverMiddleware(discardLogger(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}
