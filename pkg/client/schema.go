package client

import "encoding/json"

// Schema is the JSON-schema subset the backends can all express
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// Schema types
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Object builds an object schema requiring every listed property
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// Array builds an array schema
func Array(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// String builds a string schema, optionally restricted to enum values
func String(enum ...string) *Schema {
	return &Schema{Type: TypeString, Enum: enum}
}

// Integer builds an integer schema bounded to [lo,hi]
func Integer(lo, hi float64) *Schema {
	return &Schema{Type: TypeInteger, Minimum: &lo, Maximum: &hi}
}

// Number builds a number schema bounded to [lo,hi]
func Number(lo, hi float64) *Schema {
	return &Schema{Type: TypeNumber, Minimum: &lo, Maximum: &hi}
}

// JSON renders the schema as a JSON document
func (s *Schema) JSON() json.RawMessage {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return b
}
