package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/caremont/hospital-api/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_DirectConnection_IgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.10:54321"

	// Attacker tries to spoof their IP via forwarding headers
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	req.Header.Set("X-Real-IP", "192.168.1.1")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8", "127.0.0.1/32"},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.10", ip, "should use RemoteAddr when not from trusted proxy")
}

func TestExtractClientIP_TrustedProxy_UsesXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "203.0.113.42, 10.0.0.5")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8"},
	}

	ip := pkghttp.ExtractClientIP(req, config)

	assert.Equal(t, "203.0.113.42", ip)
}

func TestExtractClientIP_TrustedProxy_FallsBackToXRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Real-IP", "203.0.113.42")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8"},
	}

	assert.Equal(t, "203.0.113.42", pkghttp.ExtractClientIP(req, config))
}

func TestExtractClientIP_NilConfig(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	assert.Equal(t, "198.51.100.7", pkghttp.ExtractClientIP(req, nil))
}

func TestExtractClientIP_InvalidForwardedEntriesSkipped(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:54321"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.9")

	config := &pkghttp.IPConfig{
		TrustedProxies: []string{"10.0.0.0/8"},
	}

	assert.Equal(t, "203.0.113.9", pkghttp.ExtractClientIP(req, config))
}
