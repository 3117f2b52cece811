package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/rdGxd/todo-list/pkg/errors"
	"github.com/rdGxd/todo-list/pkg/logger"
	"github.com/rdGxd/todo-list/pkg/validator"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

// Response is the envelope used for error bodies and wrapped payloads.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of Response.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are gone by now; an encode failure can only be dropped.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto the error envelope. AppErrors keep their code,
// message and status; anything else becomes a logged 500 whose detail never
// reaches the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = fromSentinel(err)
	}

	if appErr.Status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, appErr.Status, Response{
		Error: &ErrorResponse{Code: appErr.Code, Message: appErr.Message, RequestID: requestID},
	})
}

func fromSentinel(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return &apperrors.AppError{Code: "NOT_FOUND", Message: "resource not found", Status: http.StatusNotFound}
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return &apperrors.AppError{Code: "ALREADY_EXISTS", Message: "resource already exists", Status: http.StatusConflict}
	case errors.Is(err, apperrors.ErrInvalidInput):
		return &apperrors.AppError{Code: "INVALID_INPUT", Message: err.Error(), Status: http.StatusBadRequest}
	default:
		return apperrors.Internal(err)
	}
}

// WriteValidationError writes a 400 listing per-field validation failures, or
// a plain INVALID_INPUT when err is not a validation error.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error(), RequestID: requestID},
	})
}

// DecodeJSON reads at most MaxBodyBytes of JSON from the request into dst and
// validates it. Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return validator.Validate(dst)
}

// ParseUUID parses a path parameter. On failure it writes a 400 and returns
// false so the caller can return immediately.
func ParseUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "INVALID_PARAMETER",
				Message:   "invalid UUID: " + param,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return uuid.Nil, false
	}
	return id, true
}
