package elicitation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ggoodman/mcp-toolguard/internal/validation"
	"github.com/ggoodman/mcp-toolguard/mcp"
)

// Builder constructs a flat object schema programmatically.
// Usage:
//
//	schema, err := NewBuilder().
//	    String("indexName", Required(), Description("Index to query"), MinLength(2)).
//	    Integer("top", Optional(), Minimum(1), Maximum(1000)).
//	    EnumString("mode", []string{"simple", "full"}, Optional()).
//	    Build()
//
// Properties keep their insertion order in Required. Builders are not safe
// for concurrent use.
type Builder struct {
	props map[string]*property
	order []string
	err   error
}

type property struct {
	def      mcp.PrimitiveSchemaDefinition
	required bool
}

// NewBuilder returns a new Builder instance.
func NewBuilder() *Builder { return &Builder{props: make(map[string]*property)} }

// String adds a string property.
func (b *Builder) String(name string, opts ...PropOption) *Builder {
	return b.add(name, mcp.SchemaTypeString, opts...)
}

// Number adds a number property.
func (b *Builder) Number(name string, opts ...PropOption) *Builder {
	return b.add(name, mcp.SchemaTypeNumber, opts...)
}

// Integer adds an integer property.
func (b *Builder) Integer(name string, opts ...PropOption) *Builder {
	return b.add(name, mcp.SchemaTypeInteger, opts...)
}

// Boolean adds a boolean property.
func (b *Builder) Boolean(name string, opts ...PropOption) *Builder {
	return b.add(name, mcp.SchemaTypeBoolean, opts...)
}

// EnumString adds a string property restricted to values.
func (b *Builder) EnumString(name string, values []string, opts ...PropOption) *Builder {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return b.add(name, mcp.SchemaTypeString, append([]PropOption{func(p *property) { p.def.Enum = enum }}, opts...)...)
}

func (b *Builder) add(name, typ string, opts ...PropOption) *Builder {
	if strings.TrimSpace(name) == "" {
		b.err = errors.Join(b.err, errors.New("elicitation: empty property name"))
		return b
	}
	p, ok := b.props[name]
	if !ok {
		p = &property{}
		b.props[name] = p
		b.order = append(b.order, name)
	}
	p.def.Type = typ
	for _, o := range opts {
		if o != nil {
			o(p)
		}
	}
	return b
}

// PropOption mutates a property configuration.
type PropOption func(*property)

// Required marks the property required.
func Required() PropOption { return func(p *property) { p.required = true } }

// Optional marks the property optional. Properties are optional by default.
func Optional() PropOption { return func(p *property) { p.required = false } }

// Title sets the display title.
func Title(title string) PropOption { return func(p *property) { p.def.Title = title } }

// Description adds human-readable description.
func Description(desc string) PropOption { return func(p *property) { p.def.Description = desc } }

// MinLength sets string minimum length.
func MinLength(n int) PropOption { return func(p *property) { p.def.MinLength = &n } }

// MaxLength sets string maximum length.
func MaxLength(n int) PropOption { return func(p *property) { p.def.MaxLength = &n } }

// Minimum sets numeric minimum.
func Minimum(f float64) PropOption { return func(p *property) { p.def.Minimum = &f } }

// Maximum sets numeric maximum.
func Maximum(f float64) PropOption { return func(p *property) { p.def.Maximum = &f } }

// Build validates the accumulated properties and returns the schema.
func (b *Builder) Build() (mcp.ElicitationSchema, error) {
	if b.err != nil {
		return mcp.ElicitationSchema{}, b.err
	}
	s := mcp.ElicitationSchema{Type: "object", Properties: make(map[string]mcp.PrimitiveSchemaDefinition, len(b.order))}
	for _, name := range b.order {
		p := b.props[name]
		s.Properties[name] = p.def
		if p.required {
			s.Required = append(s.Required, name)
		}
	}
	if err := validation.ElicitationSchema(&s); err != nil {
		return mcp.ElicitationSchema{}, fmt.Errorf("elicitation: %w", err)
	}
	return s, nil
}

// MustBuild panics on error.
func (b *Builder) MustBuild() mcp.ElicitationSchema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Request builds the schema and wraps it in an elicitation request.
func (b *Builder) Request(message string) (*mcp.ElicitRequest, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	return &mcp.ElicitRequest{Message: message, RequestedSchema: s}, nil
}
