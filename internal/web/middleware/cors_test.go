package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSLocalhostAlwaysAllowed(t *testing.T) {
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected localhost origin echoed, got %q", got)
	}
}

func TestCORSUnknownOriginGetsNoAllowHeader(t *testing.T) {
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recognize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for preflight, got %d", rec.Code)
	}
	if called {
		t.Error("preflight must not reach the next handler")
	}
}

func TestIsOriginAllowedFromEnvList(t *testing.T) {
	allowed := map[string]struct{}{"https://attendance.example.com": {}}

	if !isOriginAllowed("https://attendance.example.com", allowed) {
		t.Error("whitelisted origin should be allowed")
	}
	if isOriginAllowed("https://other.example.com", allowed) {
		t.Error("non-whitelisted origin should be rejected")
	}
	if isOriginAllowed("", allowed) {
		t.Error("empty origin should be rejected")
	}
}
