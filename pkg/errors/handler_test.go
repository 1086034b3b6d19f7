package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_AppErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		retryable  bool
	}{
		{"invalid identity", NewInvalidIdentityError("empty"), http.StatusBadRequest, CodeInvalidIdentity, false},
		{"insufficient pool", NewInsufficientPoolError(2, 30), http.StatusUnprocessableEntity, CodeInsufficientPool, false},
		{"stale submission", NewStaleSubmissionError("a.png", "b.png"), http.StatusConflict, CodeStaleSubmission, false},
		{"session not found", NewSessionNotFoundError("bob"), http.StatusNotFound, CodeSessionNotFound, false},
		{"sink unavailable", NewSinkUnavailableError("csv", errors.New("disk full")), http.StatusServiceUnavailable, CodeSinkUnavailable, true},
		{"wrapped", Wrap(NewAlreadyCompleteError("alice"), "submit"), http.StatusConflict, CodeAlreadyComplete, false},
	}

	h := NewErrorHandler(zap.NewNop(), false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil), tt.err)

			body := decode(t, rec)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.retryable, body.Retryable)
			if tt.retryable {
				assert.Equal(t, "2", rec.Header().Get("Retry-After"))
			} else {
				assert.Empty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestErrorHandler_HidesPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	NewErrorHandler(zap.NewNop(), false).Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("secret path /etc/x"))

	body := decode(t, rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An internal error occurred", body.Message)
	assert.Nil(t, body.Details)
}

func TestErrorHandler_DebugAddsCauseWithoutMutatingError(t *testing.T) {
	appErr := NewSinkUnavailableError("sheets", errors.New("quota exceeded"))
	rec := httptest.NewRecorder()

	NewErrorHandler(zap.NewNop(), true).Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), appErr)

	body := decode(t, rec)
	assert.Equal(t, "quota exceeded", body.Details["cause"])
	assert.NotEmpty(t, body.Details["stack_trace"])
	assert.Nil(t, appErr.Details)
}

func TestErrorHandler_MiddlewareRecoversPanics(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(ErrorTypeInternal), decode(t, rec).Type)
}
