package httperror

import (
	"errors"
	"testing"
)

func TestNewNormalizesCode(t *testing.T) {
	err := New(400, "Invalid-Request!!!123")
	if err.Code != "invalid_request_123" {
		t.Errorf("code = %q, want %q", err.Code, "invalid_request_123")
	}
	if err.Status != 400 {
		t.Errorf("status = %d, want 400", err.Status)
	}
	// Non-code input keeps the original text as the message.
	if err.Message != "Invalid-Request!!!123" {
		t.Errorf("message = %q, want original input", err.Message)
	}
}

func TestNewDerivesMessageFromCode(t *testing.T) {
	err := New(404, "not_found")
	if err.Message != "Not Found" {
		t.Errorf("message = %q, want %q", err.Message, "Not Found")
	}
	if err.Code != "not_found" {
		t.Errorf("code = %q, want %q", err.Code, "not_found")
	}
}

func TestNewEmptyInput(t *testing.T) {
	err := New(500, "   ")
	if err.Code != "unknown_error" {
		t.Errorf("code = %q, want unknown_error", err.Code)
	}
}

func TestWithDetailsStringOverridesMessage(t *testing.T) {
	err := WithDetails(500, "rate_limit_unavailable", "Rate limiting disabled: counter unreachable.")
	if err.Message != "Rate limiting disabled: counter unreachable." {
		t.Errorf("message = %q", err.Message)
	}
	if err.Details != nil {
		t.Errorf("details = %v, want nil", err.Details)
	}
}

func TestWithDetailsMapExtractsMessage(t *testing.T) {
	err := WithDetails(500, "unsupported_guard_role", map[string]any{
		"message": "Unsupported roles requested: editor",
		"roles":   []string{"editor"},
	})
	if err.Message != "Unsupported roles requested: editor" {
		t.Errorf("message = %q", err.Message)
	}
	details, ok := err.Details.(map[string]any)
	if !ok {
		t.Fatalf("details = %T, want map", err.Details)
	}
	if _, ok := details["roles"]; !ok {
		t.Errorf("details missing roles key: %v", details)
	}
	if _, ok := details["message"]; ok {
		t.Errorf("message should not remain in details: %v", details)
	}
}

func TestWithDetailsPayloadKept(t *testing.T) {
	err := WithDetails(429, "rate_limited", map[string]any{"resetAt": "2025-01-01T00:00:00Z"})
	body := err.Body()
	details, ok := body["details"].(map[string]any)
	if !ok {
		t.Fatalf("body details = %T, want map", body["details"])
	}
	if details["resetAt"] != "2025-01-01T00:00:00Z" {
		t.Errorf("resetAt = %v", details["resetAt"])
	}
}

func TestBodyOmitsNilDetails(t *testing.T) {
	body := New(403, "forbidden").Body()
	if _, ok := body["details"]; ok {
		t.Errorf("body should not include details: %v", body)
	}
	if body["code"] != "forbidden" || body["message"] != "Forbidden" {
		t.Errorf("body = %v", body)
	}
}

func TestFrom(t *testing.T) {
	he := New(403, "forbidden")
	if got, ok := From(he); !ok || got != he {
		t.Errorf("From(httperror) = %v, %v", got, ok)
	}
	if _, ok := From(errors.New("plain")); ok {
		t.Error("From(plain error) should report false")
	}
	if _, ok := From(nil); ok {
		t.Error("From(nil) should report false")
	}
}
