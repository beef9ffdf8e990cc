package response

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/hotel-frontdesk/pkg/apperr"
	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Message is the body of replies that carry nothing but a confirmation.
type Message struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, status int, message, code string) {
	JSON(w, status, ErrorResponse{Message: message, Code: code})
}

// Error maps err onto a status code. Internal causes are logged and replaced
// with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.NewInternal(err)
	}

	status := statusOf(e)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, status, "Internal server error", apperr.CodeInternal)
		return
	}

	code := e.Code
	if code == "" {
		code = defaultCode(e.Kind)
	}
	WriteError(w, status, e.Message, code)
}

// Room scheduling conflicts are 400; duplicate-key conflicts are 409.
func statusOf(e *apperr.Error) int {
	if e.Kind == apperr.Conflict && e.Code == apperr.CodeRoomUnavailable {
		return http.StatusBadRequest
	}
	return StatusFor(e.Kind)
}

func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func defaultCode(kind apperr.Kind) string {
	switch kind {
	case apperr.Validation:
		return apperr.CodeInvalidInput
	case apperr.Conflict:
		return apperr.CodeConflict
	case apperr.NotFound:
		return apperr.CodeNotFound
	case apperr.Unauthorized:
		return apperr.CodeUnauthorized
	case apperr.Forbidden:
		return apperr.CodeForbidden
	case apperr.TooManyRequests:
		return apperr.CodeRateLimited
	default:
		return apperr.CodeInternal
	}
}

// Convenience functions for handler-level failures
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, apperr.CodeInvalidInput)
}

func InvalidJSON(w http.ResponseWriter) {
	BadRequest(w, "Invalid JSON format")
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, apperr.CodeUnauthorized)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, apperr.CodeNotFound)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, apperr.CodeRateLimited)
}

func InternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "Internal server error", apperr.CodeInternal)
}
