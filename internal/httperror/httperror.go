// Package httperror defines the error type that guarded API handlers use to
// short-circuit with a specific HTTP status. Codes are normalized snake_case
// tokens; the client-facing message is either supplied explicitly or derived
// from the code by title-casing its parts.
package httperror

import (
	"fmt"
	"regexp"
	"strings"
)

// Error is a propagatable request failure: {status, code, message, details?}.
type Error struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

var codeRe = regexp.MustCompile(`^[a-z0-9_]+$`)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// toCode normalizes arbitrary input into a snake_case code token.
func toCode(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "unknown_error"
	}
	if codeRe.MatchString(trimmed) {
		return trimmed
	}
	code := nonAlnumRe.ReplaceAllString(strings.ToLower(trimmed), "_")
	code = strings.Trim(code, "_")
	if code == "" {
		return "unknown_error"
	}
	return code
}

// codeToMessage derives a human-readable message from a snake_case code,
// e.g. "not_found" -> "Not Found".
func codeToMessage(code string) string {
	parts := strings.Split(code, "_")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, strings.ToUpper(part[:1])+part[1:])
	}
	return strings.Join(out, " ")
}

// New builds an Error from a status and a code-or-message string. When the
// input is already a snake_case code the message is derived from it;
// otherwise the input itself becomes the message and the code is a
// normalized form of it.
func New(status int, codeOrMessage string) *Error {
	return WithDetails(status, codeOrMessage, nil)
}

// WithDetails builds an Error carrying an extra details payload. A string
// payload overrides the derived message; a map payload with a "message" key
// contributes that message and keeps the remaining keys as details.
func WithDetails(status int, codeOrMessage string, details any) *Error {
	code := toCode(codeOrMessage)
	isCodeForm := codeRe.MatchString(codeOrMessage)

	message := codeOrMessage
	if isCodeForm {
		message = codeToMessage(code)
	}

	var payload any
	switch d := details.(type) {
	case nil:
	case string:
		if isCodeForm && d != "" {
			message = d
		} else if !isCodeForm {
			payload = map[string]any{"value": d}
		}
	case map[string]any:
		rest := make(map[string]any, len(d))
		for k, v := range d {
			if k == "message" {
				if s, ok := v.(string); ok && isCodeForm {
					message = s
					continue
				}
			}
			rest[k] = v
		}
		if len(rest) > 0 {
			payload = rest
		}
	default:
		payload = details
	}

	return &Error{Status: status, Code: code, Message: message, Details: payload}
}

// From extracts an *Error from an arbitrary error value.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	he, ok := err.(*Error)
	return he, ok
}

// Body shapes the JSON error body sent to API consumers. Internal messages
// never leak here: anything that was not already an *Error must be converted
// to one (see guard.Wrap) before this is called.
func (e *Error) Body() map[string]any {
	body := map[string]any{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return body
}
