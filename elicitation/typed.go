package elicitation

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	ielicitation "github.com/ggoodman/mcp-toolguard/internal/elicitation"
	"github.com/ggoodman/mcp-toolguard/mcp"
)

// SchemaFor derives an elicitation schema from struct type T. Exported
// fields become properties named by their json tag. Pointer fields and
// fields tagged omitempty are optional. The jsonschema tag carries
// description, title, enum, minimum, maximum, minLength and maxLength.
func SchemaFor[T any]() (mcp.ElicitationSchema, error) {
	p, err := ielicitation.Project(reflect.TypeFor[T]())
	if err != nil {
		return mcp.ElicitationSchema{}, err
	}
	s := p.Schema
	s.Properties = maps.Clone(s.Properties)
	s.Required = slices.Clone(s.Required)
	return s, nil
}

// RequestFor builds an elicitation request whose schema is derived from T.
func RequestFor[T any](message string) (*mcp.ElicitRequest, error) {
	s, err := SchemaFor[T]()
	if err != nil {
		return nil, err
	}
	return &mcp.ElicitRequest{Message: message, RequestedSchema: s}, nil
}

// ErrNoValue is returned by Decode when the round trip produced no usable
// content.
var ErrNoValue = errors.New("elicitation: no value obtained")

// Decode hydrates a T, which must be a struct type, from a validated Result.
func Decode[T any](r Result) (T, error) {
	var out T
	if !r.OK() {
		return out, fmt.Errorf("%w (%s)", ErrNoValue, r.Outcome)
	}
	p, err := ielicitation.Project(reflect.TypeFor[T]())
	if err != nil {
		return out, err
	}
	if err := p.Decode(&out, r.Content, false); err != nil {
		return out, err
	}
	return out, nil
}
