// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Onboarding form / completion
	ErrCodeFormValidationFailed ErrorCode = "FORM_VALIDATION_FAILED"
	ErrCodeUnknownDocumentType  ErrorCode = "UNKNOWN_DOCUMENT_TYPE"
	ErrCodeDocumentNotReady     ErrorCode = "DOCUMENT_NOT_READY"
	ErrCodeClientNotFound       ErrorCode = "CLIENT_NOT_FOUND"

	// Backend REST API
	ErrCodeBackendUnavailable       ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeBackendTimeout           ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeBackendRejected          ErrorCode = "BACKEND_REJECTED"
	ErrCodeSessionExpired           ErrorCode = "SESSION_EXPIRED"
	ErrCodeDocumentGenerationFailed ErrorCode = "DOCUMENT_GENERATION_FAILED"

	// Storage
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeCacheUnavailable         ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchIndexFailed             ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the error.
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

func newStandardError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewFormValidationFailedError creates a non-retryable form validation error.
func NewFormValidationFailedError(details string) *StandardError {
	return newStandardError(ErrCodeFormValidationFailed, "Onboarding form validation failed", details, false)
}

// NewUnknownDocumentTypeError creates a non-retryable document type error.
func NewUnknownDocumentTypeError(documentType string) *StandardError {
	return newStandardError(ErrCodeUnknownDocumentType, "Unknown document type",
		fmt.Sprintf("documentType: %s", documentType), false)
}

// NewDocumentNotReadyError reports a generation request for an incomplete document.
func NewDocumentNotReadyError(documentType string, percentage int, missing []string) *StandardError {
	err := newStandardError(ErrCodeDocumentNotReady, "Document is not ready for generation",
		fmt.Sprintf("documentType: %s, completion: %d%%, missing: %s", documentType, percentage, strings.Join(missing, ",")), false)
	return err.WithMetadata("missingFields", missing).WithMetadata("percentage", percentage)
}

// NewClientNotFoundError creates a non-retryable missing client error.
func NewClientNotFoundError(clientID string) *StandardError {
	return newStandardError(ErrCodeClientNotFound, "Client not found", fmt.Sprintf("clientId: %s", clientID), false)
}

// NewBackendUnavailableError creates a retryable backend transport or 5xx error.
func NewBackendUnavailableError(err error) *StandardError {
	return newStandardError(ErrCodeBackendUnavailable, "Backend API unavailable", err.Error(), true)
}

// NewBackendTimeoutError creates a retryable backend timeout error.
func NewBackendTimeoutError(operation string) *StandardError {
	return newStandardError(ErrCodeBackendTimeout, "Backend API timeout", fmt.Sprintf("operation: %s", operation), true)
}

// NewBackendRejectedError creates a non-retryable 4xx backend error.
func NewBackendRejectedError(status int, detail string) *StandardError {
	return newStandardError(ErrCodeBackendRejected, "Backend API rejected the request",
		fmt.Sprintf("status: %d, detail: %s", status, detail), false)
}

// NewSessionExpiredError is raised when the token refresh fails.
func NewSessionExpiredError() *StandardError {
	return newStandardError(ErrCodeSessionExpired, "Backend session expired", "token refresh failed, login required", false)
}

// NewDocumentGenerationFailedError creates a retryable generation error.
func NewDocumentGenerationFailedError(documentType string, err error) *StandardError {
	return newStandardError(ErrCodeDocumentGenerationFailed, "Document generation failed",
		fmt.Sprintf("documentType: %s, error: %s", documentType, err.Error()), true)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newStandardError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newStandardError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return newStandardError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("queryType: %s", queryType), true)
}

// NewCacheUnavailableError creates a retryable redis error.
func NewCacheUnavailableError(err error) *StandardError {
	return newStandardError(ErrCodeCacheUnavailable, "Cache unavailable", err.Error(), true)
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newStandardError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err.Error(), true)
}

// NewSearchIndexFailedError creates a retryable indexing error.
func NewSearchIndexFailedError(index string, err error) *StandardError {
	return newStandardError(ErrCodeSearchIndexFailed, "Elasticsearch index operation failed",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(index string) *StandardError {
	return newStandardError(ErrCodeSearchTimeout, "Elasticsearch timeout", fmt.Sprintf("index: %s", index), true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newStandardError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
}

// NewEngineUnavailableError creates a retryable Zeebe gateway error.
func NewEngineUnavailableError(operation string, err error) *StandardError {
	return newStandardError(ErrCodeEngineUnavailable, "Workflow engine unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

// NewInvalidInputError reports job variables that cannot be used.
func NewInvalidInputError(details string) *StandardError {
	return newStandardError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return newStandardError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the codes caught by boundary events.
// Backend transport failures share one boundary event.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeFormValidationFailed:          "FORM_VALIDATION_FAILED",
	ErrCodeUnknownDocumentType:           "UNKNOWN_DOCUMENT_TYPE",
	ErrCodeDocumentNotReady:              "DOCUMENT_NOT_READY",
	ErrCodeClientNotFound:                "CLIENT_NOT_FOUND",
	ErrCodeBackendUnavailable:            "BACKEND_UNAVAILABLE",
	ErrCodeBackendTimeout:                "BACKEND_UNAVAILABLE",
	ErrCodeBackendRejected:               "BACKEND_REJECTED",
	ErrCodeSessionExpired:                "SESSION_EXPIRED",
	ErrCodeDocumentGenerationFailed:      "DOCUMENT_GENERATION_FAILED",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:                  "QUERY_TIMEOUT",
	ErrCodeCacheUnavailable:              "CACHE_UNAVAILABLE",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchIndexFailed:             "SEARCH_INDEX_FAILED",
	ErrCodeSearchTimeout:                 "SEARCH_TIMEOUT",
	ErrCodeNotificationSendFailed:        "NOTIFICATION_SEND_FAILED",
	ErrCodeEngineUnavailable:             "ENGINE_UNAVAILABLE",
	ErrCodeInvalidInput:                  "INVALID_INPUT",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeBackendUnavailable,
		ErrCodeDocumentGenerationFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeCacheUnavailable,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchIndexFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeEngineUnavailable:
		return 3 // technical

	case ErrCodeBackendTimeout,
		ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION"):
		return "AUTH"
	case strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "BACKEND") || strings.Contains(codeStr, "CLIENT"):
		return "BACKEND"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "ENGINE"):
		return "ENGINE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
