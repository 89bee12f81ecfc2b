// Package elicitation projects Go struct types onto flat elicitation schemas
// and decodes accepted content back into them.
package elicitation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	js "github.com/invopop/jsonschema"

	"github.com/ggoodman/mcp-toolguard/internal/validation"
	"github.com/ggoodman/mcp-toolguard/mcp"
)

// field captures per-field decoding expectations.
type field struct {
	name      string
	index     []int
	required  bool
	kind      reflect.Kind // base kind, pointer stripped
	enum      map[string]struct{}
	min, max  *float64
	minLen    *int
	maxLen    *int
	isPointer bool
}

// Projection is the elicitation schema derived from a struct type plus the
// metadata needed to decode content into that type.
type Projection struct {
	Schema mcp.ElicitationSchema
	fields []field
}

var cache sync.Map // reflect.Type -> *Projection

// Project derives the projection for t, which must be a struct or a pointer
// to one. Exported non-pointer fields tagged required by the reflector
// become required properties; pointer fields are always optional. Results
// are cached per type.
func Project(t reflect.Type) (*Projection, error) {
	if t == nil {
		return nil, errors.New("elicitation: nil type")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("elicitation: type must be struct kind, got %s", t.Kind())
	}
	// The reflector cannot expand unnamed struct types.
	if t.Name() == "" {
		return nil, errors.New("elicitation: anonymous struct types cannot be projected")
	}
	if v, ok := cache.Load(t); ok {
		return v.(*Projection), nil
	}

	byName := map[string]reflect.StructField{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonName(f)
		if name == "-" {
			continue
		}
		byName[name] = f
	}

	r := &js.Reflector{DoNotReference: true, ExpandedStruct: true}
	root := r.Reflect(reflect.New(t).Interface())
	if root == nil || root.Type != "object" {
		return nil, fmt.Errorf("elicitation: projected root not object")
	}
	requiredSet := map[string]struct{}{}
	for _, n := range root.Required {
		requiredSet[n] = struct{}{}
	}

	p := &Projection{Schema: mcp.ElicitationSchema{Type: "object", Properties: map[string]mcp.PrimitiveSchemaDefinition{}}}
	if root.Properties != nil {
		for el := root.Properties.Oldest(); el != nil; el = el.Next() {
			def, meta, err := projectField(el.Key, el.Value, byName, requiredSet)
			if err != nil {
				return nil, err
			}
			p.Schema.Properties[el.Key] = def
			if meta.required {
				p.Schema.Required = append(p.Schema.Required, el.Key)
			}
			p.fields = append(p.fields, meta)
		}
	}
	if len(p.Schema.Properties) == 0 {
		return nil, fmt.Errorf("elicitation: struct has no exported fields")
	}
	if err := validation.ElicitationSchema(&p.Schema); err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(t, p)
	return actual.(*Projection), nil
}

func projectField(name string, v *js.Schema, byName map[string]reflect.StructField, requiredSet map[string]struct{}) (mcp.PrimitiveSchemaDefinition, field, error) {
	var def mcp.PrimitiveSchemaDefinition
	var meta field
	if v == nil {
		return def, meta, fmt.Errorf("elicitation: nil property schema for %s", name)
	}
	if v.Type == "object" || v.Type == "array" || v.Ref != "" || len(v.AllOf) > 0 || len(v.AnyOf) > 0 || len(v.OneOf) > 0 || v.Not != nil {
		return def, meta, fmt.Errorf("elicitation: unsupported schema feature on field %s", name)
	}
	if v.Items != nil || v.AdditionalProperties != nil {
		return def, meta, fmt.Errorf("elicitation: complex collection feature on field %s", name)
	}
	if v.Pattern != "" || v.Format != "" || v.Default != nil || v.ContentEncoding != "" || v.ContentMediaType != "" {
		return def, meta, fmt.Errorf("elicitation: unsupported keyword on field %s", name)
	}

	sf, ok := byName[name]
	if !ok {
		return def, meta, fmt.Errorf("elicitation: property %s not matched to struct field", name)
	}
	ft := sf.Type
	isPtr := ft.Kind() == reflect.Pointer
	if isPtr {
		ft = ft.Elem()
	}
	typ, ok := protocolType(v.Type, ft.Kind())
	if !ok {
		return def, meta, fmt.Errorf("elicitation: unsupported type mapping for field %s", name)
	}

	def = mcp.PrimitiveSchemaDefinition{Type: typ, Title: v.Title, Description: v.Description}
	_, isReq := requiredSet[name]
	meta = field{name: name, index: sf.Index, required: isReq && !isPtr, kind: ft.Kind(), isPointer: isPtr}

	if len(v.Enum) > 0 {
		if typ != mcp.SchemaTypeString {
			return def, meta, fmt.Errorf("elicitation: enum only on string (%s)", name)
		}
		def.Enum = make([]any, len(v.Enum))
		meta.enum = make(map[string]struct{}, len(v.Enum))
		for i, ev := range v.Enum {
			sv, ok := ev.(string)
			if !ok {
				return def, meta, fmt.Errorf("elicitation: non-string enum value field %s", name)
			}
			def.Enum[i] = sv
			meta.enum[sv] = struct{}{}
		}
	}
	if f, ok := parseBound(v.Minimum); ok {
		def.Minimum, meta.min = &f, &f
	}
	if f, ok := parseBound(v.Maximum); ok {
		def.Maximum, meta.max = &f, &f
	}
	if v.MinLength != nil {
		n := int(*v.MinLength)
		def.MinLength, meta.minLen = &n, &n
	}
	if v.MaxLength != nil {
		n := int(*v.MaxLength)
		def.MaxLength, meta.maxLen = &n, &n
	}
	return def, meta, nil
}

func parseBound(n json.Number) (float64, bool) {
	if n == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(n), 64)
	return f, err == nil
}

// Decode populates dst, a non-nil pointer to the projected struct type, from
// content. It enforces required fields, enum membership, length and numeric
// bounds and, with strict set, rejects keys outside the schema. dst is left
// untouched on failure.
func (p *Projection) Decode(dst any, content map[string]any, strict bool) error {
	if dst == nil {
		return errors.New("elicitation: decode target nil")
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("elicitation: decode target must be non-nil pointer")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return errors.New("elicitation: decode target must point to struct")
	}
	if content == nil {
		return errors.New("elicitation: response content not an object")
	}

	byName := make(map[string]field, len(p.fields))
	for _, f := range p.fields {
		byName[f.name] = f
	}
	if strict {
		for k := range content {
			if _, ok := byName[k]; !ok {
				return fmt.Errorf("elicitation: unknown field %s in response", k)
			}
		}
	}

	fresh := reflect.New(rv.Type()).Elem()
	fresh.Set(rv)
	seen := make(map[string]struct{}, len(content))
	for name, val := range content {
		f, ok := byName[name]
		if !ok {
			continue
		}
		if val == nil {
			if f.required {
				return fmt.Errorf("elicitation: required field %s is null", name)
			}
			continue
		}
		seen[name] = struct{}{}
		target := fresh.FieldByIndex(f.index)
		if f.isPointer {
			target.Set(reflect.New(target.Type().Elem()))
			target = target.Elem()
		}
		if err := assign(target, f, val); err != nil {
			return err
		}
	}
	for _, f := range p.fields {
		if _, ok := seen[f.name]; f.required && !ok {
			return fmt.Errorf("elicitation: missing required field %s", f.name)
		}
	}
	rv.Set(fresh)
	return nil
}

func assign(target reflect.Value, f field, val any) error {
	switch f.kind {
	case reflect.String:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("elicitation: field %s expected string", f.name)
		}
		if f.enum != nil {
			if _, ok := f.enum[s]; !ok {
				return fmt.Errorf("elicitation: field %s enum mismatch", f.name)
			}
		}
		n := utf8.RuneCountInString(s)
		if f.minLen != nil && n < *f.minLen {
			return fmt.Errorf("elicitation: field %s shorter than %d", f.name, *f.minLen)
		}
		if f.maxLen != nil && n > *f.maxLen {
			return fmt.Errorf("elicitation: field %s longer than %d", f.name, *f.maxLen)
		}
		target.SetString(s)
	case reflect.Bool:
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("elicitation: field %s expected boolean", f.name)
		}
		target.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := number(f, val)
		if err != nil {
			return err
		}
		if n != float64(int64(n)) {
			return fmt.Errorf("elicitation: field %s expected integer", f.name)
		}
		target.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := number(f, val)
		if err != nil {
			return err
		}
		if n < 0 || n != float64(uint64(n)) {
			return fmt.Errorf("elicitation: field %s expected non-negative integer", f.name)
		}
		target.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		n, err := number(f, val)
		if err != nil {
			return err
		}
		target.SetFloat(n)
	default:
		return fmt.Errorf("elicitation: unsupported field kind %s", f.kind)
	}
	return nil
}

func number(f field, val any) (float64, error) {
	n, ok := toFloat(val)
	if !ok {
		return 0, fmt.Errorf("elicitation: field %s expected number", f.name)
	}
	if f.min != nil && n < *f.min {
		return 0, fmt.Errorf("elicitation: field %s below minimum", f.name)
	}
	if f.max != nil && n > *f.max {
		return 0, fmt.Errorf("elicitation: field %s above maximum", f.name)
	}
	return n, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(n).Int()), true
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(n).Uint()), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

func protocolType(schemaType string, k reflect.Kind) (string, bool) {
	switch schemaType {
	case "string":
		if k == reflect.String {
			return mcp.SchemaTypeString, true
		}
	case "integer":
		if (k >= reflect.Int && k <= reflect.Int64) || (k >= reflect.Uint && k <= reflect.Uint64) {
			return mcp.SchemaTypeInteger, true
		}
	case "number":
		if k == reflect.Float32 || k == reflect.Float64 {
			return mcp.SchemaTypeNumber, true
		}
	case "boolean":
		if k == reflect.Bool {
			return mcp.SchemaTypeBoolean, true
		}
	}
	return "", false
}
