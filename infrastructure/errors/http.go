// Package errors provides shared error types for upstream HTTP failures.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MinErrorStatusCode is the lowest status treated as a failure.
const MinErrorStatusCode = 300

// maxErrorBody caps how much of an error body is kept on the error.
const maxErrorBody = 4 << 10

// HTTPError is a non-success response from an upstream service.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

// ParseHTTPError returns nil for 2xx responses, otherwise an *HTTPError with
// whatever message the body carries. It understands the flat
// {"error": "...", "message": "..."} shape and Sanity's
// {"error": {"description": "...", "type": "..."}} shape.
func ParseHTTPError(resp *http.Response) error {
	if resp.StatusCode < MinErrorStatusCode {
		return nil
	}

	httpErr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		httpErr.Message = fmt.Sprintf("failed to read error response body: %v", err)
		return httpErr
	}
	httpErr.Body = string(body)
	httpErr.Message = messageFromBody(body)

	return httpErr
}

func messageFromBody(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return string(body)
	}

	var flat string
	if json.Unmarshal(envelope.Error, &flat) == nil && flat != "" {
		return flat
	}

	var structured struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	}
	if json.Unmarshal(envelope.Error, &structured) == nil && structured.Description != "" {
		if structured.Type != "" {
			return structured.Type + ": " + structured.Description
		}
		return structured.Description
	}

	if envelope.Message != "" {
		return envelope.Message
	}
	return string(body)
}

// GetHTTPStatusCode extracts the status code from a wrapped *HTTPError.
func GetHTTPStatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}
