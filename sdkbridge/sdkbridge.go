// Package sdkbridge connects the execution layer to servers built on the
// official MCP Go SDK.
package sdkbridge

import (
	"context"
	"encoding/json"
	"maps"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ggoodman/mcp-toolguard/formatter"
	"github.com/ggoodman/mcp-toolguard/mcp"
	"github.com/ggoodman/mcp-toolguard/toolcall"
	"github.com/ggoodman/mcp-toolguard/toolerr"
)

// FormatParam is the tool argument that selects the formatter mode when the
// call template does not fix one.
const FormatParam = "format"

// ToSDK converts a result to the SDK representation. Every content block
// becomes a TextContent; the structured mirror is carried only when set.
func ToSDK(res *mcp.CallToolResult) *mcpsdk.CallToolResult {
	if res == nil {
		return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{}}
	}
	out := &mcpsdk.CallToolResult{
		Content: make([]mcpsdk.Content, 0, len(res.Content)),
		IsError: res.IsError,
	}
	for _, c := range res.Content {
		out.Content = append(out.Content, &mcpsdk.TextContent{Text: c.Text})
	}
	if len(res.StructuredContent) > 0 && !res.IsError {
		out.StructuredContent = res.StructuredContent
	}
	if len(res.Meta) > 0 {
		out.Meta = mcpsdk.Meta(maps.Clone(res.Meta))
	}
	return out
}

// Handler adapts an invocation template to an SDK tool handler. For every
// request the template is copied, Params is filled from the request
// arguments and Server is set to the request so that elicitation reaches the
// calling session. Tool-level failures are reported in the result, never as
// a protocol error.
func Handler(inv *toolcall.Invoker, tmpl toolcall.Call) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		c := tmpl
		c.Server = req

		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
			if c.Name == "" {
				c.Name = req.Params.Name
			}
		}
		params, err := arguments(raw)
		if err != nil {
			env := toolerr.Normalize(&toolerr.InvalidParamsError{Reason: err.Error()}, c.RequestID)
			return ToSDK(formatter.ErrorResult(env)), nil
		}
		c.Params = params
		if c.Format == "" {
			if s, ok := params[FormatParam].(string); ok {
				c.Format = formatter.ParseMode(s)
			}
		}
		return ToSDK(inv.Invoke(ctx, c)), nil
	}
}

// AddTool registers tmpl on s under t.
func AddTool(s *mcpsdk.Server, t *mcpsdk.Tool, inv *toolcall.Invoker, tmpl toolcall.Call) {
	if tmpl.Name == "" {
		tmpl.Name = t.Name
	}
	s.AddTool(t, Handler(inv, tmpl))
}

func arguments(raw json.RawMessage) (map[string]any, error) {
	params := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return params, nil
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}
