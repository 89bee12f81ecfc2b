package sdkbridge

import (
	"context"
	"maps"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ggoodman/mcp-toolguard/logging"
)

// sessionLogger matches *mcpsdk.ServerSession.
type sessionLogger interface {
	Log(ctx context.Context, params *mcpsdk.LoggingMessageParams) error
}

// SessionSink forwards log entries to a connected client as
// notifications/message. The session applies the level the client asked
// for.
type SessionSink struct {
	session sessionLogger
}

// NewSessionSink returns a sink bound to session.
func NewSessionSink(session sessionLogger) *SessionSink {
	return &SessionSink{session: session}
}

// Emit implements logging.Sink.
func (s *SessionSink) Emit(ctx context.Context, e logging.Entry) error {
	if s == nil || s.session == nil {
		return nil
	}
	data := make(map[string]any, len(e.Attrs)+1)
	maps.Copy(data, e.Attrs)
	data["message"] = e.Message
	return s.session.Log(ctx, &mcpsdk.LoggingMessageParams{
		Level:  mcpsdk.LoggingLevel(e.Level),
		Logger: e.Logger,
		Data:   data,
	})
}

var _ logging.Sink = (*SessionSink)(nil)
