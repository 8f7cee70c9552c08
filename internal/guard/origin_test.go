package guard

import (
	"net/http/httptest"
	"testing"

	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

func originErrCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	httpErr, ok := httperror.From(err)
	if !ok {
		t.Fatalf("error is %T, want *httperror.Error", err)
	}
	return httpErr.Code
}

func TestCheckSameOriginMutatingWithoutHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "http://app.example.edu/api/classes", nil)

	err := CheckSameOrigin(req, nil)
	if code := originErrCode(t, err); code != "missing_origin_header" {
		t.Errorf("code = %q, want missing_origin_header", code)
	}
}

func TestCheckSameOriginMatchingOwnHost(t *testing.T) {
	req := httptest.NewRequest("POST", "http://app.example.edu/api/classes", nil)
	req.Header.Set("Origin", "http://app.example.edu")

	if err := CheckSameOrigin(req, nil); err != nil {
		t.Errorf("CheckSameOrigin = %v, want nil", err)
	}
}

func TestCheckSameOriginAllowList(t *testing.T) {
	req := httptest.NewRequest("POST", "http://app.example.edu/api/classes", nil)
	req.Header.Set("Origin", "https://admin.example.edu")

	if err := CheckSameOrigin(req, []string{"admin.example.edu"}); err != nil {
		t.Errorf("CheckSameOrigin = %v, want nil", err)
	}
}

func TestCheckSameOriginMismatchRejectsImmediately(t *testing.T) {
	req := httptest.NewRequest("POST", "http://app.example.edu/api/classes", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	// A matching Referer must not rescue a mismatched Origin.
	req.Header.Set("Referer", "http://app.example.edu/admin")

	err := CheckSameOrigin(req, nil)
	if code := originErrCode(t, err); code != "forbidden_origin" {
		t.Errorf("code = %q, want forbidden_origin", code)
	}
}

func TestCheckSameOriginRefererFallback(t *testing.T) {
	req := httptest.NewRequest("DELETE", "http://app.example.edu/api/audit", nil)
	req.Header.Set("Referer", "http://app.example.edu/admin/audit")

	if err := CheckSameOrigin(req, nil); err != nil {
		t.Errorf("CheckSameOrigin = %v, want nil", err)
	}
}

func TestCheckSameOriginSafeMethodWithoutHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "http://app.example.edu/api/audit", nil)

	if err := CheckSameOrigin(req, nil); err != nil {
		t.Errorf("GET without headers should pass, got %v", err)
	}
}

func TestCheckSameOriginSafeMethodMismatchedOrigin(t *testing.T) {
	req := httptest.NewRequest("GET", "http://app.example.edu/api/audit", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	err := CheckSameOrigin(req, nil)
	if code := originErrCode(t, err); code != "forbidden_origin" {
		t.Errorf("code = %q, want forbidden_origin", code)
	}
}

func TestCheckSameOriginMutatingMismatchedReferer(t *testing.T) {
	req := httptest.NewRequest("PUT", "http://app.example.edu/api/classes/4", nil)
	req.Header.Set("Referer", "https://evil.example.com/page")

	err := CheckSameOrigin(req, nil)
	if code := originErrCode(t, err); code != "forbidden_origin" {
		t.Errorf("code = %q, want forbidden_origin", code)
	}
}

func TestCheckSameOriginHostCaseInsensitive(t *testing.T) {
	req := httptest.NewRequest("POST", "http://App.Example.edu/api/classes", nil)
	req.Host = "App.Example.edu"
	req.Header.Set("Origin", "http://app.example.EDU")

	if err := CheckSameOrigin(req, nil); err != nil {
		t.Errorf("CheckSameOrigin = %v, want nil", err)
	}
}
