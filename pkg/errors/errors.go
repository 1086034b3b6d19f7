package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeConflict    ErrorType = "CONFLICT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeInternal    ErrorType = "INTERNAL"
)

// Codes for the assignment and recording failures callers branch on.
const (
	CodeInvalidIdentity  = "INVALID_IDENTITY"
	CodeInsufficientPool = "INSUFFICIENT_POOL"
	CodeAlreadyComplete  = "ALREADY_COMPLETE"
	CodeSinkUnavailable  = "SINK_UNAVAILABLE"
	CodeStaleSubmission  = "STALE_SUBMISSION"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeItemNotFound     = "ITEM_NOT_FOUND"
	CodeInvalidScores    = "INVALID_SCORES"
	CodeCursorConflict   = "CURSOR_CONFLICT"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a single detail entry
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

func newError(t ErrorType, code, message string, status int) *AppError {
	return &AppError{
		Type:       t,
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		StackTrace: captureStackTrace(),
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, "", message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, "", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, "", message, http.StatusConflict)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, "", message, http.StatusInternalServerError)
}

// NewInvalidIdentityError rejects an empty or malformed rater key.
func NewInvalidIdentityError(reason string) *AppError {
	return newError(ErrorTypeValidation, CodeInvalidIdentity, "invalid rater identity: "+reason, http.StatusBadRequest)
}

// NewInsufficientPoolError is returned when the pool cannot cover the sample size.
func NewInsufficientPoolError(distinct, requested int) *AppError {
	return newError(
		ErrorTypeValidation,
		CodeInsufficientPool,
		fmt.Sprintf("pool has %d distinct items, %d requested", distinct, requested),
		http.StatusUnprocessableEntity,
	).WithDetail("distinct", distinct).WithDetail("requested", requested)
}

// NewAlreadyCompleteError signals advance on a finished session.
func NewAlreadyCompleteError(raterID string) *AppError {
	return newError(ErrorTypeConflict, CodeAlreadyComplete, "session already complete", http.StatusConflict).
		WithDetail("rater_id", raterID)
}

// NewSinkUnavailableError wraps a failed durable append. The caller may resubmit.
func NewSinkUnavailableError(sink string, cause error) *AppError {
	e := newError(ErrorTypeUnavailable, CodeSinkUnavailable, fmt.Sprintf("rating sink '%s' is unavailable", sink), http.StatusServiceUnavailable)
	e.Retryable = true
	return e.WithCause(cause)
}

// NewStaleSubmissionError rejects a rating for an item other than the current one.
func NewStaleSubmissionError(submitted, current string) *AppError {
	return newError(ErrorTypeConflict, CodeStaleSubmission, "submitted item is not the current item", http.StatusConflict).
		WithDetail("submitted_item", submitted).
		WithDetail("current_item", current)
}

// NewSessionNotFoundError is returned for a rater with no started session.
func NewSessionNotFoundError(raterID string) *AppError {
	return newError(ErrorTypeNotFound, CodeSessionNotFound, "session not found", http.StatusNotFound).
		WithDetail("rater_id", raterID)
}

// NewItemNotFoundError is returned when the catalog has no row for an item.
func NewItemNotFoundError(itemID string) *AppError {
	return newError(ErrorTypeNotFound, CodeItemNotFound, fmt.Sprintf("item '%s' not found", itemID), http.StatusNotFound)
}

// NewInvalidScoresError rejects scores that do not match the rubric.
func NewInvalidScoresError(message string) *AppError {
	return newError(ErrorTypeValidation, CodeInvalidScores, message, http.StatusBadRequest)
}

// NewCursorConflictError is returned by stores when a compare-and-set on the cursor loses.
func NewCursorConflictError(raterID string, expected int) *AppError {
	return newError(ErrorTypeConflict, CodeCursorConflict, "session cursor changed concurrently", http.StatusConflict).
		WithDetail("rater_id", raterID).
		WithDetail("expected_cursor", expected)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// HasCode checks if an error carries a specific code
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsSinkUnavailable checks if a durable append failed
func IsSinkUnavailable(err error) bool {
	return HasCode(err, CodeSinkUnavailable)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
