package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// PropertyType represents a JSON Schema type
type PropertyType string

const (
	TypeString  PropertyType = "string"
	TypeNumber  PropertyType = "number"
	TypeInteger PropertyType = "integer"
	TypeBoolean PropertyType = "boolean"
	TypeArray   PropertyType = "array"
	TypeObject  PropertyType = "object"
)

// Property defines a single property in a JSON Schema
type Property struct {
	Type        PropertyType `json:"type"`
	Description string       `json:"description,omitempty"`
	Items       *Property    `json:"items,omitempty"`      // For array types
	Properties  PropertyMap  `json:"properties,omitempty"` // For nested objects
	Required    []string     `json:"required,omitempty"`   // For nested objects
}

// PropertyMap is a map of property names to their definitions
type PropertyMap map[string]Property

// Schema describes the inputs or outputs a solver advertises to the planner.
type Schema struct {
	Type       PropertyType `json:"type"`
	Properties PropertyMap  `json:"properties"`
	Required   []string     `json:"required,omitempty"`
}

// Object builds an object schema. Every named property in required must exist in props.
func Object(props PropertyMap, required ...string) Schema {
	return Schema{Type: TypeObject, Properties: props, Required: required}
}

// String returns the JSON representation of the schema
func (s Schema) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Names returns the property names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRequired reports whether name is listed as required.
func (s Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Definition converts the schema to a jsonschema.Definition. Properties
// without a type, and arrays without an item type, are left out.
func (s Schema) Definition() jsonschema.Definition {
	return jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: definitions(s.Properties),
		Required:   s.Required,
	}
}

func definitions(props PropertyMap) map[string]jsonschema.Definition {
	defs := make(map[string]jsonschema.Definition, len(props))
	for name, p := range props {
		if d, ok := p.definition(); ok {
			defs[name] = d
		}
	}
	return defs
}

func (p Property) definition() (jsonschema.Definition, bool) {
	d := jsonschema.Definition{Type: jsonschema.DataType(p.Type), Description: p.Description}
	switch p.Type {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
	case TypeArray:
		if p.Items == nil {
			return d, false
		}
		items, ok := p.Items.definition()
		if !ok {
			return d, false
		}
		d.Items = &items
	case TypeObject:
		d.Properties = definitions(p.Properties)
		d.Required = p.Required
	default:
		return d, false
	}
	return d, true
}

// Validate checks values against the schema: required properties must be
// present and present properties must match their declared type, including
// nested array items and object fields. Properties not declared in the
// schema and nil values are ignored.
func (s Schema) Validate(values map[string]any) error {
	var missing []string
	for _, name := range s.Required {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	for _, name := range s.Names() {
		v, ok := values[name]
		if !ok || v == nil {
			continue
		}
		if err := checkType(s.Properties[name], v); err != nil {
			return fmt.Errorf("field '%s': %w", name, err)
		}
	}

	doc, err := normalize(values)
	if err != nil {
		return err
	}
	if !jsonschema.Validate(s.Definition(), doc) {
		return fmt.Errorf("values do not match schema %s", s)
	}
	return nil
}

// normalize round-trips values through JSON so nested values have the
// shapes encoding/json produces.
func normalize(values map[string]any) (map[string]any, error) {
	present := make(map[string]any, len(values))
	for k, v := range values {
		if v != nil {
			present[k] = v
		}
	}
	b, err := json.Marshal(present)
	if err != nil {
		return nil, fmt.Errorf("encode values: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return doc, nil
}

func checkType(p Property, v any) error {
	switch p.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
	case TypeNumber, TypeInteger:
		switch v.(type) {
		case int, int32, int64, float32, float64, json.Number:
		default:
			return fmt.Errorf("expected %s, got %T", p.Type, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", v)
		}
	case TypeArray:
		switch v.(type) {
		case []any, []string:
		default:
			return fmt.Errorf("expected array, got %T", v)
		}
	case TypeObject:
		switch v.(type) {
		case map[string]any, map[string]string:
		default:
			return fmt.Errorf("expected object, got %T", v)
		}
	}
	return nil
}
