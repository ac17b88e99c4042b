// internal/common/backend/errors.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	apperrors "cif-onboarding/internal/common/errors"
)

var (
	// ErrSessionExpired is returned when the refresh token is rejected. The
	// stored tokens are cleared and a new login is required.
	ErrSessionExpired = errors.New("SESSION_EXPIRED")

	// ErrGenerationFailed is returned when /documents/generate answers
	// success=false.
	ErrGenerationFailed = errors.New("DOCUMENT_GENERATION_FAILED")
)

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Detail     string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Detail: parseDetail(status, body), Body: body}
}

// parseDetail extracts a human readable message from an error body. The
// backend answers {"detail": ...} where detail is a string, a list of
// validation entries or an object.
func parseDetail(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d", status)
	if text := http.StatusText(status); text != "" {
		fallback = fmt.Sprintf("HTTP %d %s", status, text)
	}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" && len(trimmed) < 512 {
			return trimmed
		}
		return fallback
	}

	raw := bytes.TrimSpace(payload.Detail)
	if len(raw) == 0 || string(raw) == "null" {
		if payload.Message != "" {
			return payload.Message
		}
		return fallback
	}

	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if m := detailMessage(item); m != "" {
					msgs = append(msgs, m)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, ", ")
			}
		}
	case '{':
		if m := detailMessage(raw); m != "" {
			return m
		}
	}
	return string(raw)
}

func detailMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj map[string]interface{}
	if json.Unmarshal(raw, &obj) != nil {
		return string(raw)
	}
	for _, key := range []string{"msg", "message"} {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
	}
	return string(raw)
}

// StatusCode returns the HTTP status carried by err, 0 when there is none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// Classify maps a client error onto the worker error codes. operation names
// the call for timeout details.
func Classify(err error, operation string) *apperrors.StandardError {
	if err == nil {
		return nil
	}

	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}

	if errors.Is(err, ErrSessionExpired) {
		return apperrors.NewSessionExpiredError()
	}
	if errors.Is(err, ErrGenerationFailed) {
		return apperrors.NewDocumentGenerationFailedError(operation, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewBackendTimeoutError(operation)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewBackendTimeoutError(operation)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return apperrors.NewSessionExpiredError()
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
			return apperrors.NewBackendUnavailableError(apiErr)
		default:
			return apperrors.NewBackendRejectedError(apiErr.StatusCode, apiErr.Detail)
		}
	}

	return apperrors.NewBackendUnavailableError(err)
}
