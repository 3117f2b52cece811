package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rdGxd/todo-list/pkg/errors"
	"github.com/rdGxd/todo-list/pkg/logger"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("test", "info", buf)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "1"})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"1"}`, rec.Body.String())
}

// --- WriteError ---

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
	WriteError(rec, req, apperrors.Forbidden("insufficient role"), testLogger(&bytes.Buffer{}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "FORBIDDEN", e.Code)
	assert.Equal(t, "insufficient role", e.Message)
}

func TestWriteError_WrappedAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	WriteError(rec, req, fmt.Errorf("login: %w", apperrors.InvalidCredentials()), testLogger(&bytes.Buffer{}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, rec).Code)
}

func TestWriteError_SentinelNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteError(rec, req, fmt.Errorf("find: %w", apperrors.ErrNotFound), testLogger(&bytes.Buffer{}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestWriteError_UnknownErrorIsHiddenAndLogged(t *testing.T) {
	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	WriteError(rec, req, fmt.Errorf("pq: connection refused"), testLogger(&buf))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", e.Code)
	assert.NotContains(t, e.Message, "connection refused")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(context.Background(), "corr-9"))
	WriteError(rec, req, apperrors.Unauthenticated(), testLogger(&bytes.Buffer{}))

	assert.Equal(t, "corr-9", decodeError(t, rec).RequestID)
}

// --- DecodeJSON ---

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestDecodeJSON_Valid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","password":"pw"}`))
	var body loginBody
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &body))
	assert.Equal(t, "a@b.com", body.Email)
}

func TestDecodeJSON_UnknownField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","password":"pw","roles":["admin"]}`))
	var body loginBody
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), req, &body))
}

func TestDecodeJSON_ValidationFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope"}`))
	var body loginBody
	err := DecodeJSON(httptest.NewRecorder(), req, &body)
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, req, err)
	e := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", e.Code)
	assert.Contains(t, e.Fields, "email")
	assert.Contains(t, e.Fields, "password")
}

// --- ParseUUID ---

func TestParseUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	id, ok := ParseUUID(httptest.NewRecorder(), req, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.True(t, ok)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id.String())

	rec := httptest.NewRecorder()
	_, ok = ParseUUID(rec, req, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decodeError(t, rec).Code)
}
