package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdGxd/todo-list/pkg/logger"
)

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	l := logger.NewWithWriter("test", "info", &bytes.Buffer{})
	handler := rateLimit(newVisitorStore(1, 2), clientResolver{}, l)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_BucketsArePerIP(t *testing.T) {
	l := logger.NewWithWriter("test", "info", &bytes.Buffer{})
	handler := rateLimit(newVisitorStore(1, 1), clientResolver{}, l)(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, addr)
	}
}

func TestVisitorStore_Evict(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newVisitorStore(1, 1)
	s.now = func() time.Time { return now }

	s.limiter("1.1.1.1")
	now = now.Add(time.Minute)
	s.limiter("2.2.2.2")
	now = now.Add(visitorTTL)

	s.evict(visitorTTL)
	assert.Equal(t, 1, s.size())
}

func TestRateLimit_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	l := logger.NewWithWriter("test", "info", &bytes.Buffer{})
	handler := rateLimit(newVisitorStore(1, 1), clientResolver{}, l)(okHandler())

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code == http.StatusOK {
			allowed++
		}
	}

	assert.Equal(t, 1, allowed)
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.10 ", "", "2001:db8::/32"})
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.10/32"),
		netip.MustParsePrefix("2001:db8::/32"),
	}, prefixes)

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	trusted := clientResolver{trusted: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}}

	tests := []struct {
		name     string
		resolver clientResolver
		headers  map[string]string
		remote   string
		want     string
	}{
		{name: "no trusted proxies ignores forwarded", resolver: clientResolver{}, headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, remote: "192.0.2.7:1234", want: "192.0.2.7"},
		{name: "no trusted proxies ignores real ip", resolver: clientResolver{}, headers: map[string]string{"X-Real-IP": "203.0.113.9"}, remote: "192.0.2.7:1234", want: "192.0.2.7"},
		{name: "untrusted peer", resolver: trusted, headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, remote: "192.0.2.7:1234", want: "192.0.2.7"},
		{name: "trusted peer uses forwarded", resolver: trusted, headers: map[string]string{"X-Forwarded-For": "203.0.113.9"}, remote: "10.0.0.1:80", want: "203.0.113.9"},
		{name: "spoofed left hop skipped", resolver: trusted, headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.9, 10.0.0.2"}, remote: "10.0.0.1:80", want: "203.0.113.9"},
		{name: "trusted peer uses real ip", resolver: trusted, headers: map[string]string{"X-Real-IP": "198.51.100.4"}, remote: "10.0.0.1:80", want: "198.51.100.4"},
		{name: "trusted peer garbage forwarded", resolver: trusted, headers: map[string]string{"X-Forwarded-For": "nope"}, remote: "10.0.0.1:80", want: "10.0.0.1"},
		{name: "remote addr", resolver: clientResolver{}, remote: "192.0.2.7:1234", want: "192.0.2.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, tt.resolver.clientIP(req))
		})
	}
}
