// errors.go holds error translation shared by the admin handlers.
package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lib/pq"

	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

// newStrictDecoder returns a JSON decoder that rejects unknown fields.
func newStrictDecoder(data []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec
}

// fieldIssue is one validation failure, addressed by field path.
type fieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// validationError wraps field issues into a 422 response.
func validationError(issues []fieldIssue) error {
	return httperror.WithDetails(http.StatusUnprocessableEntity, "validation_failed", map[string]any{
		"message": "Validation failed",
		"issues":  issues,
	})
}

// mapDatabaseError translates constraint violations into client errors:
// unique violations to 409 and foreign key violations to 422. Anything else
// returns nil so the caller falls through to its own classification.
func mapDatabaseError(err error, conflictMessage string) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case "23505":
		return httperror.WithDetails(http.StatusConflict, "duplicate_record", conflictMessage)
	case "23503":
		return httperror.WithDetails(http.StatusUnprocessableEntity, "related_record_not_found",
			"Related record not found.")
	default:
		return nil
	}
}
