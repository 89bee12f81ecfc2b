package elicitation

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ggoodman/mcp-toolguard/mcp"
)

// sdkElicitor matches *mcpsdk.ServerSession.
type sdkElicitor interface {
	Elicit(ctx context.Context, params *mcpsdk.ElicitParams) (*mcpsdk.ElicitResult, error)
}

type sdkHost struct {
	s sdkElicitor
}

func (h sdkHost) Elicit(ctx context.Context, req *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
	res, err := h.s.Elicit(ctx, &mcpsdk.ElicitParams{
		Message:         req.Message,
		RequestedSchema: SDKSchema(req.RequestedSchema),
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &mcp.ElicitResult{}, nil
	}
	return &mcp.ElicitResult{Action: mcp.ElicitAction(res.Action), Content: res.Content}, nil
}

// sdkSession unwraps the session carried by a go-sdk tool call request.
func sdkSession(v any) (any, bool) {
	req, ok := v.(*mcpsdk.CallToolRequest)
	if !ok || req == nil || req.Session == nil {
		return nil, false
	}
	return req.Session, true
}

// SDKSchema converts an elicitation schema to the JSON Schema type used by
// the go-sdk.
func SDKSchema(s mcp.ElicitationSchema) *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(s.Properties)),
		Required:   s.Required,
	}
	for name, p := range s.Properties {
		out.Properties[name] = &jsonschema.Schema{
			Type:        p.Type,
			Title:       p.Title,
			Description: p.Description,
			Enum:        p.Enum,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
			MinLength:   p.MinLength,
			MaxLength:   p.MaxLength,
		}
	}
	return out
}
