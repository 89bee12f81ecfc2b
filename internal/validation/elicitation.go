package validation

import (
	"fmt"

	"github.com/ggoodman/mcp-toolguard/mcp"
)

// ElicitationSchema validates and normalizes an elicitation schema in-place.
// It de-duplicates Required preserving first-occurrence order.
func ElicitationSchema(s *mcp.ElicitationSchema) error {
	if s == nil {
		return fmt.Errorf("nil schema")
	}
	if s.Type == "" {
		s.Type = "object"
	}
	if s.Type != "object" {
		return fmt.Errorf("elicitation schema type must be object")
	}
	if len(s.Properties) == 0 {
		return fmt.Errorf("elicitation schema requires at least one property")
	}
	seen := map[string]struct{}{}
	var req []string
	for _, name := range s.Required {
		if _, ok := s.Properties[name]; !ok {
			return fmt.Errorf("required property missing: %s", name)
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			req = append(req, name)
		}
	}
	s.Required = req
	for name, p := range s.Properties {
		if err := property(name, p); err != nil {
			return err
		}
	}
	return nil
}

func property(name string, p mcp.PrimitiveSchemaDefinition) error {
	switch p.Type {
	case mcp.SchemaTypeString, mcp.SchemaTypeNumber, mcp.SchemaTypeInteger, mcp.SchemaTypeBoolean:
	case "":
		return fmt.Errorf("property %s missing type", name)
	default:
		return fmt.Errorf("property %s has unsupported type %q", name, p.Type)
	}
	if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
		return fmt.Errorf("property %s minimum greater than maximum", name)
	}
	if (p.Minimum != nil || p.Maximum != nil) && p.Type != mcp.SchemaTypeNumber && p.Type != mcp.SchemaTypeInteger {
		return fmt.Errorf("property %s: numeric bounds on %s", name, p.Type)
	}
	if p.MinLength != nil && *p.MinLength < 0 {
		return fmt.Errorf("property %s minLength negative", name)
	}
	if p.MinLength != nil && p.MaxLength != nil && *p.MinLength > *p.MaxLength {
		return fmt.Errorf("property %s minLength greater than maxLength", name)
	}
	if (p.MinLength != nil || p.MaxLength != nil) && p.Type != mcp.SchemaTypeString {
		return fmt.Errorf("property %s: length bounds on %s", name, p.Type)
	}
	if len(p.Enum) > 0 && p.Type != mcp.SchemaTypeString {
		return fmt.Errorf("property %s: enum only on string", name)
	}
	uniq := make(map[string]struct{}, len(p.Enum))
	for _, v := range p.Enum {
		sv, ok := v.(string)
		if !ok {
			return fmt.Errorf("property %s: enum value %v is not a string", name, v)
		}
		uniq[sv] = struct{}{}
	}
	if len(uniq) != len(p.Enum) {
		return fmt.Errorf("duplicate enum values for property %s", name)
	}
	return nil
}
