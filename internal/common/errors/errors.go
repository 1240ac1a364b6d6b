// Package errors provides standardized error handling for the investigation
// workflow, its HTTP surface and its Zeebe job workers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Input errors: reported to the caller, never logged as interactions.
const (
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeUnsupportedFormat     ErrorCode = "UNSUPPORTED_FORMAT"
)

// Collaborator errors: recovered inside the workflow.
const (
	ErrCodeDocumentExtractionFailed ErrorCode = "DOCUMENT_EXTRACTION_FAILED"
	ErrCodeLLMServiceUnavailable    ErrorCode = "LLM_SERVICE_UNAVAILABLE"
	ErrCodeLLMRateLimited           ErrorCode = "LLM_RATE_LIMITED"
	ErrCodeLLMTimeout               ErrorCode = "LLM_TIMEOUT"
	ErrCodeCacheReadFailed          ErrorCode = "CACHE_READ_FAILED"
	ErrCodeCacheWriteFailed         ErrorCode = "CACHE_WRITE_FAILED"
	ErrCodeInteractionLogFailed     ErrorCode = "INTERACTION_LOG_FAILED"
)

// Resume errors.
const (
	ErrCodeSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeWorkflowNotSuspended ErrorCode = "WORKFLOW_NOT_SUSPENDED"
	ErrCodeSessionStoreFailed   ErrorCode = "SESSION_STORE_FAILED"
)

const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// FromCode rebuilds an error from a code and message that crossed a
// serialization boundary.
func FromCode(code ErrorCode, message string) *StandardError {
	if code == "" {
		code = ErrCodeInternal
	}
	return newError(code, message, "", GetRetryCount(code) > 0, nil)
}

// NewInputValidationError creates a non-retryable input error.
func NewInputValidationError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Request validation failed", details, false, nil)
}

// NewUnsupportedFormatError creates a non-retryable unsupported document error.
func NewUnsupportedFormatError(filename, extension string, cause error) *StandardError {
	return newError(ErrCodeUnsupportedFormat, "Unsupported document format",
		fmt.Sprintf("file: %s, extension: %s", filename, extension), false, cause).
		WithMetadata("filename", filename).
		WithMetadata("extension", extension)
}

// NewDocumentExtractionFailedError creates a retryable extraction error.
func NewDocumentExtractionFailedError(err error) *StandardError {
	return newError(ErrCodeDocumentExtractionFailed, "Document text extraction failed", err.Error(), true, err)
}

// NewLLMServiceUnavailableError creates a retryable model endpoint error.
func NewLLMServiceUnavailableError(err error) *StandardError {
	return newError(ErrCodeLLMServiceUnavailable, "LLM service unavailable", err.Error(), true, err)
}

// NewLLMRateLimitedError creates a retryable rate limit error.
func NewLLMRateLimitedError(err error) *StandardError {
	return newError(ErrCodeLLMRateLimited, "LLM rate limit exceeded", err.Error(), true, err)
}

// NewLLMTimeoutError creates a retryable timeout error.
func NewLLMTimeoutError(err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM call timed out", err.Error(), true, err)
}

// NewCacheReadFailedError wraps a cache lookup fault.
func NewCacheReadFailedError(key string, err error) *StandardError {
	return newError(ErrCodeCacheReadFailed, "Cache read failed", err.Error(), true, err).
		WithMetadata("cacheKey", key)
}

// NewCacheWriteFailedError wraps a cache write fault.
func NewCacheWriteFailedError(key string, err error) *StandardError {
	return newError(ErrCodeCacheWriteFailed, "Cache write failed", err.Error(), true, err).
		WithMetadata("cacheKey", key)
}

// NewInteractionLogFailedError wraps an interaction log append fault.
func NewInteractionLogFailedError(err error) *StandardError {
	return newError(ErrCodeInteractionLogFailed, "Interaction log append failed", err.Error(), true, err)
}

// NewSessionNotFoundError reports an unknown or expired resume token.
func NewSessionNotFoundError(token string) *StandardError {
	return newError(ErrCodeSessionNotFound, "No suspended investigation for token",
		fmt.Sprintf("token: %s", token), false, nil)
}

// NewWorkflowNotSuspendedError reports a resume attempt on a workflow that is not awaiting evaluation.
func NewWorkflowNotSuspendedError(state string) *StandardError {
	return newError(ErrCodeWorkflowNotSuspended, "Investigation is not awaiting evaluation",
		fmt.Sprintf("state: %s", state), false, nil)
}

// NewSessionStoreFailedError wraps a suspension store fault.
func NewSessionStoreFailedError(err error) *StandardError {
	return newError(ErrCodeSessionStoreFailed, "Suspension store failed", err.Error(), true, err)
}

// NewInternalError wraps an unexpected fault.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDocumentExtractionFailed,
		ErrCodeLLMServiceUnavailable,
		ErrCodeCacheReadFailed,
		ErrCodeCacheWriteFailed,
		ErrCodeInteractionLogFailed,
		ErrCodeSessionStoreFailed:
		return 3

	case ErrCodeLLMRateLimited:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code onto the status the API returns for it.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInputValidationFailed, ErrCodeUnsupportedFormat:
		return http.StatusBadRequest
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeWorkflowNotSuspended:
		return http.StatusConflict
	case ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeLLMServiceUnavailable, ErrCodeSessionStoreFailed:
		return http.StatusServiceUnavailable
	case ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard returns err as a StandardError, wrapping unknown errors as internal.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// AsValidation returns err as a StandardError, treating unknown errors as
// input validation failures.
func AsValidation(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInputValidationError(err.Error())
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return errors.As(err, &stdErr) && stdErr.Code == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for dashboards and log fields.
func GetErrorCategory(code ErrorCode) string {
	c := string(code)
	switch {
	case code == ErrCodeInputValidationFailed || code == ErrCodeUnsupportedFormat:
		return "input"
	case strings.HasPrefix(c, "LLM_"):
		return "model"
	case strings.HasPrefix(c, "CACHE_") || code == ErrCodeInteractionLogFailed:
		return "storage"
	case strings.HasPrefix(c, "SESSION_") || code == ErrCodeWorkflowNotSuspended:
		return "resume"
	case code == ErrCodeDocumentExtractionFailed:
		return "extraction"
	default:
		return "internal"
	}
}
