package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeaders_Production(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: "production"})

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	handler(testHandler).ServeHTTP(w, req)

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"X-XSS-Protection", "1; mode=block"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Cross-Origin-Opener-Policy", "same-origin"},
	}

	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.expected {
			t.Errorf("Header %s: got %q, want %q", tt.header, got, tt.expected)
		}
	}

	if csp := w.Header().Get("Content-Security-Policy"); csp == "" {
		t.Error("Content-Security-Policy header missing")
	} else if !strings.Contains(csp, "default-src 'self';") {
		t.Errorf("CSP should be strict in production: %s", csp)
	}

	if pp := w.Header().Get("Permissions-Policy"); pp == "" {
		t.Error("Permissions-Policy header missing")
	}
}

func TestSecurityHeaders_Development(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: "development"})

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	handler(testHandler).ServeHTTP(w, req)

	csp := w.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Error("Content-Security-Policy header missing")
	}
	if !strings.Contains(csp, "'unsafe-inline'") {
		t.Errorf("development CSP should allow inline assets: %s", csp)
	}

	// HSTS must never be set outside production HTTPS
	if hsts := w.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("HSTS should not be set in development, got %q", hsts)
	}
}

func TestSecurityHeaders_HSTSOnlyForForwardedHTTPS(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersConfig{Env: "production"})

	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	plain := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler(testHandler).ServeHTTP(w, plain)
	if hsts := w.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("HSTS should not be set for plain HTTP, got %q", hsts)
	}

	forwarded := httptest.NewRequest("GET", "/", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	handler(testHandler).ServeHTTP(w, forwarded)
	if hsts := w.Header().Get("Strict-Transport-Security"); hsts == "" {
		t.Error("HSTS should be set for forwarded HTTPS in production")
	}
}
