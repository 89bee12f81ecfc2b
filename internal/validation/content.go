package validation

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ggoodman/mcp-toolguard/mcp"
)

// Content validates elicited content against the schema it was requested
// with: property types, enum membership, length and numeric bounds and
// required presence. With strict set, keys not declared in the schema are
// rejected as well.
func Content(s mcp.ElicitationSchema, content map[string]any, strict bool) error {
	if content == nil {
		return fmt.Errorf("content is empty")
	}
	schemaDoc, err := schemaDocument(s, strict)
	if err != nil {
		return err
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("elicitation.json", schemaDoc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("elicitation.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	// Round trip so Go integer and struct values reach the validator in their
	// JSON form.
	b, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	var payload any
	if err := json.Unmarshal(b, &payload); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	return schema.Validate(payload)
}

func schemaDocument(s mcp.ElicitationSchema, strict bool) (any, error) {
	if s.Type == "" {
		s.Type = "object"
	}
	// Required must hold unique items under the 2020-12 metaschema.
	s.Required = slices.Compact(slices.Sorted(slices.Values(s.Required)))
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if strict {
		doc["additionalProperties"] = false
	}
	return doc, nil
}
