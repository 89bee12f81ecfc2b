package toolerr

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is a backend HTTP failure. Backend clients should return it (or
// any error exposing StatusCode) so the normalizer can classify the failure.
type StatusError struct {
	Code    int
	Message string
	// CorrelationID is the backend request id, when the response carried one.
	CorrelationID string
	Header        http.Header
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d %s", e.Code, http.StatusText(e.Code))
}

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() int { return e.Code }

// RequestID implements RequestIDer.
func (e *StatusError) RequestID() string { return e.CorrelationID }

// ResponseHeader implements HeaderCarrier.
func (e *StatusError) ResponseHeader() http.Header { return e.Header }

// FromResponse builds a *StatusError from a non-2xx backend response. body
// may be nil. A JSON body of the form {"error":{"message":...}} or
// {"message":...} supplies the message.
func FromResponse(resp *http.Response, body []byte) *StatusError {
	if resp == nil {
		return &StatusError{Message: "no response"}
	}
	if body == nil && resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	}
	e := &StatusError{Code: resp.StatusCode, Header: resp.Header}
	e.CorrelationID = headerRequestID(resp.Header)
	e.Message = backendMessage(body)
	return e
}

func backendMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != nil && payload.Error.Message != "" {
			return payload.Error.Message
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}

// NotFoundError indicates a requested item (index, job, document) doesn't
// exist. It normalizes to resource_not_found.
type NotFoundError struct {
	Type string // "index", "indexer", "document"
	Name string // identifier that wasn't found
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.Name)
}

// StatusCode implements StatusCoder.
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// InvalidParamsError indicates that the provided tool parameters are invalid.
// It normalizes to invalid_request.
type InvalidParamsError struct {
	Field  string // which field is invalid
	Reason string // why it's invalid
}

func (e *InvalidParamsError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid parameters: %s", e.Reason)
}

// StatusCode implements StatusCoder.
func (e *InvalidParamsError) StatusCode() int { return http.StatusBadRequest }
