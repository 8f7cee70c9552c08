package guard

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

// CheckSameOrigin accepts requests whose Origin (preferred) or Referer host
// matches the request's own host or the configured allow-list.
//
// The Origin header is more reliable than Referer for state-changing
// requests, so a present-but-mismatched Origin is rejected immediately.
// Some browsers and privacy extensions strip both headers; safe methods
// (GET, HEAD, OPTIONS) are therefore allowed through with neither header,
// while mutating methods without either header are rejected.
func CheckSameOrigin(r *http.Request, allowedHosts []string) error {
	allow := make(map[string]struct{}, len(allowedHosts)+1)
	allow[strings.ToLower(r.Host)] = struct{}{}
	for _, host := range allowedHosts {
		if h := strings.ToLower(strings.TrimSpace(host)); h != "" {
			allow[h] = struct{}{}
		}
	}

	origin := r.Header.Get("Origin")
	if origin != "" {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			if _, ok := allow[strings.ToLower(u.Host)]; ok {
				return nil
			}
			return httperror.New(http.StatusForbidden, "forbidden_origin")
		}
		// Unparseable Origin falls through to the Referer check.
	}

	referer := r.Header.Get("Referer")
	if referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Host != "" {
			if _, ok := allow[strings.ToLower(u.Host)]; ok {
				return nil
			}
		}
	}

	if isMutatingMethod(r.Method) {
		if origin == "" && referer == "" {
			return httperror.New(http.StatusForbidden, "missing_origin_header")
		}
		return httperror.New(http.StatusForbidden, "forbidden_origin")
	}

	if origin == "" && referer == "" {
		return nil
	}

	return httperror.New(http.StatusForbidden, "forbidden_origin")
}

func isMutatingMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
