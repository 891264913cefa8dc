package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// TestDemoRouter_Root verifies that GET / always answers 200 with the fixed greeting,
// whatever the request carries.
func TestDemoRouter_Root(t *testing.T) {
	router := NewDemoRouter(zap.NewNop())
	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"plain", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) }},
		{"query and headers", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/?name=x", nil)
			r.Header.Set("Accept", "application/json")
			r.Header.Set("Authorization", "Bearer abc")
			return r
		}},
		{"body", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/", strings.NewReader(`{"ignored":true}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.req())
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
			if got := w.Body.String(); got != DemoGreeting {
				t.Errorf("body = %q, want %q", got, DemoGreeting)
			}
			if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestDemoRouter_OtherPaths(t *testing.T) {
	router := NewDemoRouter(zap.NewNop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /other status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST / status = %d, want 405", w.Code)
	}
}

func TestDemoRouter_Head(t *testing.T) {
	router := NewDemoRouter(zap.NewNop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("HEAD / status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}
