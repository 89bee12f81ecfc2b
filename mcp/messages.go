package mcp

import "strings"

// Method is an MCP method identifier used in JSON-RPC messages.
type Method string

// MCP method names and notifications used by this module.
const (
	ToolsCallMethod                  Method = "tools/call"
	ElicitationCreateMethod          Method = "elicitation/create"
	LoggingSetLevelMethod            Method = "logging/setLevel"
	LoggingMessageNotificationMethod Method = "notifications/message"
)

// BaseMetadata carries optional metadata for responses.
type BaseMetadata struct {
	Meta map[string]any `json:"_meta,omitempty"`
}

// CallToolResult represents a tool invocation result.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	// StructuredContent mirrors the text payload as a typed object. It is
	// always nil when IsError is set.
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError,omitzero"`
	BaseMetadata
}

// Text concatenates the text of every content block.
func (r *CallToolResult) Text() string {
	if r == nil {
		return ""
	}
	if len(r.Content) == 1 {
		return r.Content[0].Text
	}
	var sb strings.Builder
	for _, c := range r.Content {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// TextResult builds a successful result with a single text block.
func TextResult(text string) *CallToolResult {
	return &CallToolResult{Content: []ContentBlock{{Type: ContentTypeText, Text: text}}}
}

// ErrorTextResult builds an error result with a single text block.
func ErrorTextResult(text string) *CallToolResult {
	return &CallToolResult{Content: []ContentBlock{{Type: ContentTypeText, Text: text}}, IsError: true}
}

// SetLevelRequest sets the server logging level.
type SetLevelRequest struct {
	Level LoggingLevel `json:"level"`
}

// LoggingMessageNotification conveys a structured log message.
type LoggingMessageNotification struct {
	Level  LoggingLevel `json:"level"`
	Data   any          `json:"data"`
	Logger string       `json:"logger,omitzero"`
}

// ElicitRequest asks for structured input per schema.
type ElicitRequest struct {
	Message         string            `json:"message"`
	RequestedSchema ElicitationSchema `json:"requestedSchema"`
}

// ElicitAction is the caller's response to an elicitation request.
type ElicitAction string

const (
	ElicitActionAccept  ElicitAction = "accept"
	ElicitActionDecline ElicitAction = "decline"
	ElicitActionCancel  ElicitAction = "cancel"
)

// ElicitResult returns schema-conformant values.
type ElicitResult struct {
	Action  ElicitAction   `json:"action"`
	Content map[string]any `json:"content,omitempty"`
	BaseMetadata
}
