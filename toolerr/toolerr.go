// Package toolerr maps heterogeneous failures onto the fixed error taxonomy
// reported to the protocol host.
//
// Every failure that reaches a tool boundary is first classified into a
// Cause (HTTP status, timeout, or unknown) and then rendered as an Envelope.
// Normalization is pure and total: any error value, including nil, produces
// exactly one Envelope and the normalizer never panics.
package toolerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ggoodman/mcp-toolguard/guard"
)

// Kind is the semantic error category reported to the caller.
type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindUnauthorized     Kind = "unauthorized"
	KindResourceNotFound Kind = "resource_not_found"
	KindConflict         Kind = "conflict"
	KindRateLimited      Kind = "rate_limited"
	KindServerError      Kind = "server_error"
	KindUnknown          Kind = "unknown_error"
)

// Envelope is the normalized error payload embedded as text in an error
// result.
type Envelope struct {
	Error     Kind   `json:"error"`
	Status    int    `json:"status,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// StatusCoder is implemented by errors that carry a backend HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// RequestIDer is implemented by errors that carry a backend correlation id.
type RequestIDer interface {
	RequestID() string
}

// HeaderCarrier is implemented by errors that kept the backend response
// headers.
type HeaderCarrier interface {
	ResponseHeader() http.Header
}

// ResponseCarrier is implemented by errors that kept the raw backend response.
type ResponseCarrier interface {
	HTTPResponse() *http.Response
}

// traceHeaders are checked in order for a backend correlation id.
var traceHeaders = []string{"x-ms-request-id", "request-id", "x-request-id", "x-ms-client-request-id"}

// Cause is the tagged union of failure shapes understood by the normalizer.
type Cause interface {
	cause()
}

// HTTPCause is a failure derived from a backend HTTP status.
type HTTPCause struct {
	Status int
	Err    error
}

// TimeoutCause is a failure where an operation exceeded its budget.
// Operation and Timeout are zero when the deadline came from elsewhere.
type TimeoutCause struct {
	Operation string
	Timeout   time.Duration
	Err       error
}

// UnknownCause is anything else, including a nil error.
type UnknownCause struct {
	Err error
}

func (HTTPCause) cause()    {}
func (TimeoutCause) cause() {}
func (UnknownCause) cause() {}

type timeouter interface {
	Timeout() bool
}

// Classify inspects err (and its wrap chain) and returns its Cause.
func Classify(err error) Cause {
	if err == nil {
		return UnknownCause{}
	}
	var ge *guard.TimeoutError
	if errors.As(err, &ge) {
		return TimeoutCause{Operation: ge.Operation, Timeout: ge.Timeout, Err: err}
	}
	var to timeouter
	if errors.As(err, &to) && to.Timeout() {
		return TimeoutCause{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutCause{Err: err}
	}
	if status := statusOf(err); status > 0 {
		return HTTPCause{Status: status, Err: err}
	}
	return UnknownCause{Err: err}
}

func statusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		if s := sc.StatusCode(); s > 0 {
			return s
		}
	}
	var rc ResponseCarrier
	if errors.As(err, &rc) {
		if resp := rc.HTTPResponse(); resp != nil {
			return resp.StatusCode
		}
	}
	return 0
}

// KindForStatus maps an HTTP status to its Kind.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindInvalidRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindResourceNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	if status >= 500 {
		return KindServerError
	}
	return KindUnknown
}

// Normalize produces the Envelope for err. requestID, when non-empty, takes
// priority over any correlation id found on the error.
func Normalize(err error, requestID string) (env Envelope) {
	defer func() {
		// A misbehaving Error or StatusCode method must not take the caller down.
		if r := recover(); r != nil {
			env = Envelope{Error: KindUnknown, Message: fmt.Sprintf("error normalization failed: %v", r), RequestID: requestID}
		}
	}()

	env = Envelope{Error: KindUnknown}
	if c, ok := Classify(err).(HTTPCause); ok {
		env = Envelope{Error: KindForStatus(c.Status), Status: c.Status}
	}
	env.Message = messageOf(err)
	env.RequestID = correlationID(err, requestID)
	return env
}

func messageOf(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func correlationID(err error, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if err == nil {
		return ""
	}
	var ri RequestIDer
	if errors.As(err, &ri) {
		if id := ri.RequestID(); id != "" {
			return id
		}
	}
	var hc HeaderCarrier
	if errors.As(err, &hc) {
		if id := headerRequestID(hc.ResponseHeader()); id != "" {
			return id
		}
	}
	var rc ResponseCarrier
	if errors.As(err, &rc) {
		if resp := rc.HTTPResponse(); resp != nil {
			return headerRequestID(resp.Header)
		}
	}
	return ""
}

func headerRequestID(h http.Header) string {
	if h == nil {
		return ""
	}
	for _, k := range traceHeaders {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}
