package guard

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

// ipFallback is reported when no header or transport address yields a usable
// client address. It normalizes to a local address, so unattributable
// requests are never rate limited against a shared bucket.
const ipFallback = "0"

var forwardedForRe = regexp.MustCompile(`(?i)for=(?:"?)(\[?[A-Fa-f0-9:.]+\]?)`)

// ClientIP resolves the caller's address using the proxy-header precedence
// chain: X-Forwarded-For (first value), X-Real-Ip, X-Vercel-Forwarded-For,
// CF-Connecting-Ip, Fastly-Client-Ip, the RFC 7239 Forwarded header, then the
// transport-level remote address.
func ClientIP(r *http.Request) string {
	headers := r.Header

	for _, name := range []string{"X-Forwarded-For", "X-Real-Ip", "X-Vercel-Forwarded-For", "Cf-Connecting-Ip", "Fastly-Client-Ip"} {
		if v := firstHeaderValue(headers.Get(name)); v != "" {
			return v
		}
	}

	if v := fromForwarded(headers.Get("Forwarded")); v != "" {
		return v
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}

	return ipFallback
}

// firstHeaderValue takes the first comma-separated element of a header value.
func firstHeaderValue(value string) string {
	if value == "" {
		return ""
	}
	first, _, _ := strings.Cut(value, ",")
	return strings.TrimSpace(first)
}

// fromForwarded extracts the for= token from an RFC 7239 Forwarded header.
func fromForwarded(value string) string {
	if value == "" {
		return ""
	}
	m := forwardedForRe.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], "[]")
}

// stripPort removes a port suffix without mangling bare IPv6 addresses.
func stripPort(host string) string {
	if m := regexp.MustCompile(`^\[(.*)\]:\d+$`).FindStringSubmatch(host); m != nil {
		return m[1]
	}

	candidate := strings.Trim(host, "[]")
	base, port, found := cutLastColon(candidate)
	if !found || port == "" {
		return candidate
	}
	if !isDigits(port) {
		return candidate
	}
	// "1.2.3.4:8080" and "::ffff:127.0.0.1:8080" carry ports; a bare IPv6
	// address like "::1" does not.
	if strings.Contains(base, ".") || strings.HasPrefix(base, "::ffff:") {
		return base
	}
	if !strings.Contains(base, ":") {
		return base
	}
	return candidate
}

func cutLastColon(s string) (string, string, bool) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// normalizeIP strips quoting, a trailing non-IPv6 port, and an IPv6 zone id.
func normalizeIP(value string) string {
	trimmed := strings.Trim(strings.TrimSpace(value), `"`)
	if trimmed == "" {
		return ""
	}
	withoutPort := stripPort(trimmed)
	if zone := strings.IndexByte(withoutPort, '%'); zone >= 0 {
		withoutPort = withoutPort[:zone]
	}
	return withoutPort
}

// isLocalAddress reports whether the address normalizes to a loopback form.
// Loopback callers bypass rate limiting entirely.
func isLocalAddress(value string) bool {
	normalized := strings.ToLower(normalizeIP(value))
	switch normalized {
	case "", "0", "localhost", "127.0.0.1", "::1", "0:0:0:0:0:0:0:1":
		return true
	}
	return strings.HasPrefix(normalized, "::ffff:127.0.0.1")
}
