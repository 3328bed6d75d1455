package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/docsense/aicore/pkg/retrieval"
)

// Error codes of the public surface. Internal error text never leaks; it is
// mapped onto this fixed set.
const (
	CodeInvalidTable    = "INVALID_TABLE"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// envelope is the wire shape of every response.
type envelope struct {
	Success    bool                  `json:"success"`
	Data       any                   `json:"data,omitempty"`
	Error      string                `json:"error,omitempty"`
	ErrorCode  string                `json:"error_code,omitempty"`
	Pagination *retrieval.Pagination `json:"pagination,omitempty"`
	Metadata   metadata              `json:"metadata"`
}

type metadata struct {
	Timestamp        time.Time `json:"timestamp"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
}

func writeData(w http.ResponseWriter, started time.Time, data any, page *retrieval.Pagination) {
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       data,
		Pagination: page,
		Metadata:   newMetadata(started),
	})
}

func writeError(w http.ResponseWriter, started time.Time, status int, code, message string) {
	writeJSON(w, status, envelope{
		Success:   false,
		Error:     message,
		ErrorCode: code,
		Metadata:  newMetadata(started),
	})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newMetadata(started time.Time) metadata {
	return metadata{
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMS: time.Since(started).Milliseconds(),
	}
}
