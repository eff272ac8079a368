package models

import "fmt"

// Error kinds used in API responses and internal error handling.
const (
	ErrKindValidation = "VALIDATION_ERROR"
	ErrKindRateLimit  = "RATE_LIMITED"
	ErrKindTooLarge   = "REQUEST_TOO_LARGE"
	ErrKindRendering  = "RENDERING_FAILED"
	ErrKindTimeout    = "RENDERING_TIMEOUT"
	ErrKindNetwork    = "NETWORK_ERROR"
	ErrKindExtraction = "EXTRACTION_FAILED"
	ErrKindTransform  = "TRANSFORM_FAILED"
	ErrKindNotFound   = "NOT_FOUND"
	ErrKindConflict   = "INVALID_STATE"
	ErrKindInternal   = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	URL       string `json:"url,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// TaskError is the internal error type carrying an error kind.
// It implements the error interface and supports wrapping via Unwrap.
type TaskError struct {
	Kind    string
	Message string
	Err     error
}

func (e *TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError creates a new TaskError.
func NewTaskError(kind, message string, err error) *TaskError {
	return &TaskError{Kind: kind, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *TaskError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Kind: e.Kind, Message: e.Message}
}
