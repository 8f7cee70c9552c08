// Package audit implements the audit trail writer: detail sanitization,
// before/after diffing, and the suppression-aware insert sequence.
package audit

import (
	"reflect"
	"strings"
)

// Redacted replaces the value of any sensitive key before persistence.
// Redaction is one-way: the original value is never stored.
const Redacted = "[REDACTED]"

// sensitiveKeys holds normalized (lowercase, alphanumeric-only) field names
// whose values must never reach the audit table.
var sensitiveKeys = map[string]struct{}{
	"password":         {},
	"newpassword":      {},
	"currentpassword":  {},
	"oldpassword":      {},
	"passcode":         {},
	"secret":           {},
	"token":            {},
	"apikey":           {},
	"accesstoken":      {},
	"refreshtoken":     {},
	"sessiontoken":     {},
	"credential":       {},
	"authorization":    {},
	"bearer":           {},
	"jwt":              {},
	"privatekey":       {},
	"secretkey":        {},
	"encryptionkey":    {},
	"ssn":              {},
	"socialsecurity":   {},
	"creditcard":       {},
	"cardnumber":       {},
	"cvv":              {},
	"cvc":              {},
	"pin":              {},
	"authtoken":        {},
	"otp":              {},
	"totp":             {},
	"2facode":          {},
	"twofactorcode":    {},
	"backupcode":       {},
	"recoverycode":     {},
	"resettoken":       {},
	"verificationcode": {},
	"magiclink":        {},
	"accountnumber":    {},
	"routingnumber":    {},
	"iban":             {},
	"swift":            {},
	"driverslicense":   {},
	"passportnumber":   {},
	"taxid":            {},
}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shouldRedact(key string) bool {
	_, ok := sensitiveKeys[normalizeKey(key)]
	return ok
}

// Sanitize recursively walks JSON-shaped values (maps, slices, scalars) and
// replaces the value of every sensitive key with Redacted. Everything else
// passes through unchanged.
func Sanitize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		next := make(map[string]any, len(v))
		for key, nested := range v {
			if shouldRedact(key) {
				next[key] = Redacted
			} else {
				next[key] = Sanitize(nested)
			}
		}
		return next
	case []any:
		next := make([]any, len(v))
		for i, entry := range v {
			next[i] = Sanitize(entry)
		}
		return next
	default:
		return value
	}
}

// Options carries the optional payload of one audit entry. Before/After, when
// present, produce a compact per-key diff in addition to the sanitized blobs.
type Options struct {
	Details any
	Before  any
	After   any
}

func deepEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// computeChanges derives the per-key diff of two sanitized objects: for every
// key present on either side with non-equal values, record the differing
// sides. Returns nil when there is nothing object-shaped to diff or no key
// differs.
func computeChanges(before, after any) map[string]map[string]any {
	beforeObj, _ := Sanitize(before).(map[string]any)
	afterObj, _ := Sanitize(after).(map[string]any)
	if beforeObj == nil && afterObj == nil {
		return nil
	}

	keys := make(map[string]struct{}, len(beforeObj)+len(afterObj))
	for k := range beforeObj {
		keys[k] = struct{}{}
	}
	for k := range afterObj {
		keys[k] = struct{}{}
	}

	diff := make(map[string]map[string]any)
	for key := range keys {
		prev, hadPrev := beforeObj[key]
		next, hadNext := afterObj[key]
		if deepEqual(prev, next) && hadPrev == hadNext {
			continue
		}
		entry := make(map[string]any, 2)
		if hadPrev {
			entry["before"] = prev
		}
		if hadNext {
			entry["after"] = next
		}
		diff[key] = entry
	}

	if len(diff) == 0 {
		return nil
	}
	return diff
}

// normalizeDetails shapes the stored details payload: sanitized details,
// both sanitized before/after sides for audit completeness, and the derived
// changes diff. Returns nil when there is nothing to store.
func normalizeDetails(opts *Options) any {
	if opts == nil {
		return nil
	}

	if opts.Before == nil && opts.After == nil {
		if opts.Details == nil {
			return nil
		}
		return Sanitize(opts.Details)
	}

	payload := make(map[string]any, 4)
	if opts.Details != nil {
		payload["details"] = Sanitize(opts.Details)
	}
	if opts.Before != nil {
		payload["before"] = Sanitize(opts.Before)
	}
	if opts.After != nil {
		payload["after"] = Sanitize(opts.After)
	}
	if changes := computeChanges(opts.Before, opts.After); changes != nil {
		payload["changes"] = changes
	}

	if len(payload) == 0 {
		return nil
	}
	return payload
}
