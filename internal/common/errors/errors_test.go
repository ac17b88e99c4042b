package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRetryCount(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeBackendUnavailable, 3},
		{ErrCodeDocumentGenerationFailed, 3},
		{ErrCodeQueryExecutionFailed, 3},
		{ErrCodeSearchIndexFailed, 3},
		{ErrCodeNotificationSendFailed, 3},
		{ErrCodeEngineUnavailable, 3},
		{ErrCodeBackendTimeout, 2},
		{ErrCodeQueryTimeout, 2},
		{ErrCodeSearchTimeout, 2},
		{ErrCodeDocumentNotReady, 0},
		{ErrCodeFormValidationFailed, 0},
		{ErrCodeSessionExpired, 0},
		{ErrorCode("SOMETHING_ELSE"), 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetRetryCount(tt.code))
			assert.Equal(t, tt.want > 0, IsRetryableErrorCode(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable keeps retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewBackendUnavailableError(fmt.Errorf("connection refused")))
		assert.Equal(t, "BACKEND_UNAVAILABLE", bpmn.Code)
		assert.Equal(t, 3, bpmn.Retries)
		assert.True(t, bpmn.Retryable)
		assert.Equal(t, "BACKEND_UNAVAILABLE", bpmn.ErrorVariables["originalErrorCode"])
	})

	t.Run("timeouts share the backend boundary code", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewBackendTimeoutError("GetClient"))
		assert.Equal(t, "BACKEND_UNAVAILABLE", bpmn.Code)
		assert.Equal(t, 2, bpmn.Retries)
		assert.Equal(t, "BACKEND_TIMEOUT", bpmn.ErrorVariables["originalErrorCode"])
	})

	t.Run("business error carries metadata", func(t *testing.T) {
		stdErr := NewDocumentNotReadyError("DER", 75, []string{"t1_email"})
		bpmn := ConvertToBPMNError(stdErr)
		assert.Equal(t, "DOCUMENT_NOT_READY", bpmn.Code)
		assert.Equal(t, 0, bpmn.Retries)

		vars := bpmn.ToErrorVariables()
		assert.Equal(t, "DOCUMENT_NOT_READY", vars["errorCode"])
		assert.Equal(t, []string{"t1_email"}, vars["missingFields"])
		assert.Equal(t, 75, vars["percentage"])
		assert.Contains(t, vars["errorDetails"], "completion: 75%")
	})

	t.Run("unmapped code falls back to itself", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewInternalError(fmt.Errorf("nil map")))
		assert.Equal(t, "INTERNAL_ERROR", bpmn.Code)
		assert.False(t, bpmn.Retryable)
	})
}

func TestNormalize(t *testing.T) {
	original := NewSessionExpiredError()
	wrapped := fmt.Errorf("load client: %w", original)

	got := Normalize(wrapped)
	require.NotNil(t, got)
	assert.Same(t, original, got)

	plain := Normalize(fmt.Errorf("plain"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "plain", plain.Details)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeSessionExpired))
	assert.Equal(t, "DOCUMENT", GetErrorCategory(ErrCodeDocumentNotReady))
	assert.Equal(t, "BACKEND", GetErrorCategory(ErrCodeBackendUnavailable))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheUnavailable))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchIndexFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "ENGINE", GetErrorCategory(ErrCodeEngineUnavailable))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeFormValidationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestStandardError_Error(t *testing.T) {
	err := NewUnknownDocumentTypeError("XYZ")
	assert.Equal(t, "StandardError[UNKNOWN_DOCUMENT_TYPE]: Unknown document type", err.Error())
	assert.Equal(t, "documentType: XYZ", err.Details)
}
