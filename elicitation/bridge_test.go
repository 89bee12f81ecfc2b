package elicitation

import (
	"context"
	"errors"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggoodman/mcp-toolguard/mcp"
)

func indexRequest(t *testing.T) *mcp.ElicitRequest {
	t.Helper()
	req, err := NewBuilder().
		String("indexName", Required(), MinLength(2)).
		Integer("top", Optional(), Minimum(1), Maximum(50)).
		EnumString("mode", []string{"simple", "full"}, Optional()).
		Request("Which index should be searched?")
	require.NoError(t, err)
	return req
}

func respond(action mcp.ElicitAction, content map[string]any) HostFunc {
	return func(context.Context, *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
		return &mcp.ElicitResult{Action: action, Content: content}, nil
	}
}

type provider struct {
	h  Host
	ok bool
}

func (p provider) ElicitationHost() (Host, bool) { return p.h, p.ok }

func TestHostFrom(t *testing.T) {
	h := respond(mcp.ElicitActionAccept, nil)

	got, ok := HostFrom(h)
	assert.True(t, ok)
	assert.NotNil(t, got)

	_, ok = HostFrom(provider{h: h, ok: true})
	assert.True(t, ok)

	_, ok = HostFrom(provider{h: h, ok: false})
	assert.False(t, ok)

	_, ok = HostFrom(nil)
	assert.False(t, ok)

	var nilFunc HostFunc
	_, ok = HostFrom(nilFunc)
	assert.False(t, ok)

	_, ok = HostFrom(struct{ Name string }{"not a host"})
	assert.False(t, ok)

	_, ok = HostFrom(&mcpsdk.CallToolRequest{})
	assert.False(t, ok, "a request without a session has no capability")
}

type fakeSession struct {
	got *mcpsdk.ElicitParams
}

func (s *fakeSession) Elicit(_ context.Context, p *mcpsdk.ElicitParams) (*mcpsdk.ElicitResult, error) {
	s.got = p
	return &mcpsdk.ElicitResult{Action: "accept", Content: map[string]any{"indexName": "hotels"}}, nil
}

func TestHostFrom_SDKSession(t *testing.T) {
	sess := &fakeSession{}
	h, ok := HostFrom(sess)
	require.True(t, ok)

	res := Elicit(context.Background(), h, indexRequest(t))
	assert.Equal(t, OutcomeValidated, res.Outcome)
	assert.Equal(t, "hotels", res.Content["indexName"])
	require.NotNil(t, sess.got)
	assert.Equal(t, "Which index should be searched?", sess.got.Message)
}

func TestSDKSchema(t *testing.T) {
	s := SDKSchema(indexRequest(t).RequestedSchema)
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, []string{"indexName"}, s.Required)
	require.Contains(t, s.Properties, "top")
	assert.Equal(t, "integer", s.Properties["top"].Type)
	require.NotNil(t, s.Properties["top"].Maximum)
	assert.Equal(t, 50.0, *s.Properties["top"].Maximum)
	assert.Len(t, s.Properties["mode"].Enum, 2)
}

func TestElicit_NotSupported(t *testing.T) {
	res := Elicit(context.Background(), nil, indexRequest(t))
	assert.Equal(t, OutcomeNotSupported, res.Outcome)
	assert.False(t, res.OK())
	assert.Nil(t, res.Content)
	assert.NoError(t, res.Err)
}

func TestElicit_Validated(t *testing.T) {
	res := Elicit(context.Background(), respond(mcp.ElicitActionAccept, map[string]any{"indexName": "hotels", "top": 10}), indexRequest(t))
	require.True(t, res.OK())
	assert.Equal(t, mcp.ElicitActionAccept, res.Action)
	assert.Equal(t, "hotels", res.Content["indexName"])
}

func TestElicit_Rejected(t *testing.T) {
	for name, content := range map[string]map[string]any{
		"missing required": {"top": 3},
		"wrong type":       {"indexName": 7},
		"out of range":     {"indexName": "hotels", "top": 51},
		"enum":             {"indexName": "hotels", "mode": "fuzzy"},
		"too short":        {"indexName": "h"},
		"no content":       nil,
	} {
		t.Run(name, func(t *testing.T) {
			res := Elicit(context.Background(), respond(mcp.ElicitActionAccept, content), indexRequest(t))
			assert.Equal(t, OutcomeRejected, res.Outcome)
			assert.Nil(t, res.Content)
			assert.Error(t, res.Err)
		})
	}
}

func TestElicit_StrictRejectsUnknownKeys(t *testing.T) {
	h := respond(mcp.ElicitActionAccept, map[string]any{"indexName": "hotels", "surprise": true})
	assert.Equal(t, OutcomeValidated, Elicit(context.Background(), h, indexRequest(t)).Outcome)
	assert.Equal(t, OutcomeRejected, Elicit(context.Background(), h, indexRequest(t), WithStrict()).Outcome)
}

func TestElicit_DropsUndeclaredKeys(t *testing.T) {
	content := map[string]any{"indexName": "hotels", "top": 5, "surprise": true}
	res := Elicit(context.Background(), respond(mcp.ElicitActionAccept, content), indexRequest(t))
	require.True(t, res.OK())
	assert.Equal(t, map[string]any{"indexName": "hotels", "top": 5}, res.Content)
	assert.Contains(t, content, "surprise", "host content is not modified")
}

func TestElicit_DeclineAndCancel(t *testing.T) {
	res := Elicit(context.Background(), respond(mcp.ElicitActionDecline, nil), indexRequest(t))
	assert.Equal(t, OutcomeDeclined, res.Outcome)

	res = Elicit(context.Background(), respond(mcp.ElicitActionCancel, nil), indexRequest(t))
	assert.Equal(t, OutcomeCancelled, res.Outcome)

	res = Elicit(context.Background(), respond("", map[string]any{"indexName": "hotels"}), indexRequest(t))
	assert.Equal(t, OutcomeCancelled, res.Outcome, "missing action defaults to cancel")
	assert.Nil(t, res.Content)

	nilResult := HostFunc(func(context.Context, *mcp.ElicitRequest) (*mcp.ElicitResult, error) { return nil, nil })
	assert.Equal(t, OutcomeCancelled, Elicit(context.Background(), nilResult, indexRequest(t)).Outcome)
}

func TestElicit_TimedOut(t *testing.T) {
	slow := HostFunc(func(ctx context.Context, _ *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	res := Elicit(context.Background(), slow, indexRequest(t), WithTimeout(10*time.Millisecond))
	assert.Equal(t, OutcomeTimedOut, res.Outcome)
	assert.Error(t, res.Err)
}

func TestElicit_HostError(t *testing.T) {
	boom := errors.New("transport closed")
	h := HostFunc(func(context.Context, *mcp.ElicitRequest) (*mcp.ElicitResult, error) { return nil, boom })
	res := Elicit(context.Background(), h, indexRequest(t))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)
}

func TestElicit_InvalidSchemaNeverReachesHost(t *testing.T) {
	called := false
	h := HostFunc(func(context.Context, *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
		called = true
		return &mcp.ElicitResult{Action: mcp.ElicitActionAccept}, nil
	})
	res := Elicit(context.Background(), h, &mcp.ElicitRequest{Message: "?"})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.False(t, called)

	assert.Equal(t, OutcomeFailed, Elicit(context.Background(), h, nil).Outcome)
}

func TestElicit_DoesNotMutateRequest(t *testing.T) {
	req := indexRequest(t)
	req.RequestedSchema.Required = []string{"indexName", "indexName"}
	Elicit(context.Background(), respond(mcp.ElicitActionCancel, nil), req)
	assert.Equal(t, []string{"indexName", "indexName"}, req.RequestedSchema.Required)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "validated", OutcomeValidated.String())
	assert.Equal(t, "not_supported", OutcomeNotSupported.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
