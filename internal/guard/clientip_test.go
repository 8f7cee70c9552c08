package guard

import (
	"net/http/httptest"
	"testing"
)

func TestClientIPForwardedForWinsOverRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("X-Real-Ip", "5.6.7.8")

	if ip := ClientIP(req); ip != "1.2.3.4" {
		t.Errorf("ClientIP = %q, want 1.2.3.4", ip)
	}
}

func TestClientIPForwardedForFirstValue(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1, 10.0.0.2")

	if ip := ClientIP(req); ip != "9.9.9.9" {
		t.Errorf("ClientIP = %q, want 9.9.9.9", ip)
	}
}

func TestClientIPForwardedHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Forwarded", `for="9.9.9.9";proto=https`)

	if ip := ClientIP(req); ip != "9.9.9.9" {
		t.Errorf("ClientIP = %q, want 9.9.9.9", ip)
	}
}

func TestClientIPForwardedIPv6Bracketed(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Forwarded", `for="[2001:db8::1]"`)

	if ip := ClientIP(req); ip != "2001:db8::1" {
		t.Errorf("ClientIP = %q, want 2001:db8::1", ip)
	}
}

func TestClientIPHeaderPrecedence(t *testing.T) {
	cases := []struct {
		header string
		value  string
	}{
		{"X-Real-Ip", "5.6.7.8"},
		{"X-Vercel-Forwarded-For", "6.7.8.9"},
		{"Cf-Connecting-Ip", "7.8.9.10"},
		{"Fastly-Client-Ip", "8.9.10.11"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(tc.header, tc.value)
		if ip := ClientIP(req); ip != tc.value {
			t.Errorf("%s: ClientIP = %q, want %q", tc.header, ip, tc.value)
		}
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"

	if ip := ClientIP(req); ip != "192.0.2.7" {
		t.Errorf("ClientIP = %q, want 192.0.2.7", ip)
	}
}

func TestNormalizeIP(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`"1.2.3.4"`, "1.2.3.4"},
		{"1.2.3.4:8080", "1.2.3.4"},
		{"[::1]:443", "::1"},
		{"::1", "::1"},
		{"fe80::1%eth0", "fe80::1"},
		{"::ffff:127.0.0.1:3000", "::ffff:127.0.0.1"},
		{"  10.0.0.1 ", "10.0.0.1"},
	}
	for _, tc := range cases {
		if got := normalizeIP(tc.in); got != tc.want {
			t.Errorf("normalizeIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsLocalAddress(t *testing.T) {
	local := []string{"", "0", "localhost", "127.0.0.1", "::1", "0:0:0:0:0:0:0:1", "::ffff:127.0.0.1", "[::1]:8080", "127.0.0.1:9000", "LOCALHOST"}
	for _, addr := range local {
		if !isLocalAddress(addr) {
			t.Errorf("isLocalAddress(%q) = false, want true", addr)
		}
	}

	remote := []string{"1.2.3.4", "192.168.1.10", "2001:db8::1", "example.com"}
	for _, addr := range remote {
		if isLocalAddress(addr) {
			t.Errorf("isLocalAddress(%q) = true, want false", addr)
		}
	}
}
