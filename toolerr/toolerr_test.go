package toolerr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ggoodman/mcp-toolguard/guard"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	cases := map[int]Kind{
		400: KindInvalidRequest,
		401: KindUnauthorized,
		403: KindUnauthorized,
		404: KindResourceNotFound,
		409: KindConflict,
		412: KindConflict,
		429: KindRateLimited,
		500: KindServerError,
		503: KindServerError,
		599: KindServerError,
		302: KindUnknown,
		418: KindUnknown,
		0:   KindUnknown,
	}
	for status, want := range cases {
		assert.Equal(t, want, KindForStatus(status), "status %d", status)
	}
}

func TestNormalize_NotFound(t *testing.T) {
	err := &StatusError{Code: 404, Message: "Index 'foo' not found"}
	env := Normalize(err, "")
	assert.Equal(t, KindResourceNotFound, env.Error)
	assert.Equal(t, 404, env.Status)
	assert.Contains(t, env.Message, "Index 'foo' not found")
	assert.Empty(t, env.RequestID)
}

func TestNormalize_ServiceUnavailableWithRequestID(t *testing.T) {
	err := &StatusError{Code: 503, Message: "busy", CorrelationID: "abc"}
	env := Normalize(err, "")
	assert.Equal(t, Envelope{Error: KindServerError, Status: 503, Message: err.Error(), RequestID: "abc"}, env)
}

func TestNormalize_PlainObjectLikeError(t *testing.T) {
	env := Normalize(errors.New("{}"), "")
	assert.Equal(t, KindUnknown, env.Error)
	assert.Zero(t, env.Status)
	assert.Equal(t, "{}", env.Message)
}

func TestNormalize_Nil(t *testing.T) {
	env := Normalize(nil, "")
	assert.Equal(t, KindUnknown, env.Error)
	assert.NotEmpty(t, env.Message)
}

func TestNormalize_GuardTimeout(t *testing.T) {
	_, err := guard.Do(context.Background(), "listIndexes", 5*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return 0, nil
	})
	require.Error(t, err)

	c, ok := Classify(err).(TimeoutCause)
	require.True(t, ok)
	assert.Equal(t, "listIndexes", c.Operation)
	assert.Equal(t, 5*time.Millisecond, c.Timeout)

	env := Normalize(err, "")
	assert.Equal(t, KindUnknown, env.Error)
	assert.Zero(t, env.Status)
	assert.Contains(t, env.Message, "timed out")
}

func TestNormalize_WrappedStatus(t *testing.T) {
	base := &NotFoundError{Type: "index", Name: "hotels"}
	err := fmt.Errorf("get index: %w", base)
	env := Normalize(err, "")
	assert.Equal(t, KindResourceNotFound, env.Error)
	assert.Equal(t, 404, env.Status)
	assert.Equal(t, "get index: index not found: hotels", env.Message)
}

func TestNormalize_InvalidParams(t *testing.T) {
	env := Normalize(&InvalidParamsError{Field: "top", Reason: "must be positive"}, "")
	assert.Equal(t, KindInvalidRequest, env.Error)
	assert.Equal(t, 400, env.Status)
}

type respErr struct {
	resp *http.Response
}

func (e respErr) Error() string {
	return "response error"
}

func (e respErr) HTTPResponse() *http.Response {
	return e.resp
}

func TestNormalize_HTTPResponseCarrier(t *testing.T) {
	h := http.Header{}
	h.Set("X-Request-Id", "req-7")
	env := Normalize(respErr{resp: &http.Response{StatusCode: 429, Header: h}}, "")
	assert.Equal(t, KindRateLimited, env.Error)
	assert.Equal(t, 429, env.Status)
	assert.Equal(t, "req-7", env.RequestID)
}

func TestNormalize_CorrelationPriority(t *testing.T) {
	h := http.Header{}
	h.Set("x-ms-request-id", "from-header")
	err := &StatusError{Code: 500, CorrelationID: "from-error", Header: h}

	assert.Equal(t, "explicit", Normalize(err, "explicit").RequestID)
	assert.Equal(t, "from-error", Normalize(err, "").RequestID)

	err.CorrelationID = ""
	assert.Equal(t, "from-header", Normalize(err, "").RequestID)
}

func TestHeaderRequestID_Order(t *testing.T) {
	h := http.Header{}
	h.Set("x-request-id", "third")
	h.Set("request-id", "second")
	assert.Equal(t, "second", headerRequestID(h))
	h.Set("x-ms-request-id", "first")
	assert.Equal(t, "first", headerRequestID(h))
	assert.Empty(t, headerRequestID(nil))
}

type panicky struct{}

func (panicky) Error() string { panic("boom") }

func TestNormalize_NeverPanics(t *testing.T) {
	var env Envelope
	require.NotPanics(t, func() { env = Normalize(panicky{}, "rid") })
	assert.Equal(t, KindUnknown, env.Error)
	assert.Equal(t, "rid", env.RequestID)
}

func TestNormalize_StatusProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("envelope kind follows the status table", prop.ForAll(
		func(status int) bool {
			env := Normalize(&StatusError{Code: status}, "")
			return env.Error == KindForStatus(status) && env.Status == status
		},
		gen.IntRange(100, 599),
	))
	properties.Property("every status >= 500 not otherwise mapped is a server error", prop.ForAll(
		func(status int) bool {
			return KindForStatus(status) == KindServerError
		},
		gen.IntRange(500, 999),
	))

	properties.TestingRun(t)
}

func TestFromResponse(t *testing.T) {
	h := http.Header{}
	h.Set("request-id", "r-1")
	resp := &http.Response{
		StatusCode: 404,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(`{"error":{"code":"NotFound","message":"Index 'foo' not found"}}`)),
	}
	err := FromResponse(resp, nil)
	assert.Equal(t, 404, err.StatusCode())
	assert.Equal(t, "Index 'foo' not found", err.Message)
	assert.Equal(t, "r-1", err.RequestID())

	env := Normalize(err, "")
	assert.Equal(t, KindResourceNotFound, env.Error)
	assert.Equal(t, "r-1", env.RequestID)
}

func TestFromResponse_PlainBody(t *testing.T) {
	err := FromResponse(&http.Response{StatusCode: 502}, []byte("  bad gateway \n"))
	assert.Equal(t, "bad gateway", err.Message)
	assert.Equal(t, "backend returned 502: bad gateway", err.Error())

	err = FromResponse(&http.Response{StatusCode: 500}, nil)
	assert.Equal(t, "backend returned 500 Internal Server Error", err.Error())
}

func TestClassify_ContextDeadline(t *testing.T) {
	_, ok := Classify(fmt.Errorf("search: %w", context.DeadlineExceeded)).(TimeoutCause)
	assert.True(t, ok)
	_, ok = Classify(context.Canceled).(UnknownCause)
	assert.True(t, ok)
}
