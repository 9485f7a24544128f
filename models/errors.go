package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidURL         = "INVALID_URL"
	ErrCodeBodyReadFailed     = "BODY_READ_FAILED"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeSessionCreation    = "SESSION_CREATION_FAILED"
	ErrCodeNavigation         = "NAVIGATION_FAILED"
	ErrCodeScriptExecution    = "SCRIPT_EXECUTION_FAILED"
	ErrCodeSerialization      = "SERIALIZATION_FAILED"
	ErrCodeSourceRetrieval    = "SOURCE_RETRIEVAL_FAILED"
	ErrCodeTimeout            = "RENDER_TIMEOUT"
	ErrCodeCanceled           = "RENDER_CANCELED"
	ErrCodeFetchFailed        = "FETCH_FAILED"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrInvalidURL         = &RenderError{Code: ErrCodeInvalidURL}
	ErrBodyReadFailed     = &RenderError{Code: ErrCodeBodyReadFailed}
	ErrBackendUnavailable = &RenderError{Code: ErrCodeBackendUnavailable}
	ErrSessionCreation    = &RenderError{Code: ErrCodeSessionCreation}
	ErrNavigation         = &RenderError{Code: ErrCodeNavigation}
	ErrScriptExecution    = &RenderError{Code: ErrCodeScriptExecution}
	ErrSerialization      = &RenderError{Code: ErrCodeSerialization}
	ErrSourceRetrieval    = &RenderError{Code: ErrCodeSourceRetrieval}
	ErrRenderTimeout      = &RenderError{Code: ErrCodeTimeout}
	ErrRenderCanceled     = &RenderError{Code: ErrCodeCanceled}
	ErrFetchFailed        = &RenderError{Code: ErrCodeFetchFailed}
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RenderError is the internal error type carrying an error code that
// identifies which phase of a render failed.
// It implements the error interface and supports error wrapping via Unwrap.
type RenderError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *RenderError with the same code.
func (e *RenderError) Is(target error) bool {
	t, ok := target.(*RenderError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewRenderError creates a new RenderError.
func NewRenderError(code, message string, err error) *RenderError {
	return &RenderError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *RenderError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
