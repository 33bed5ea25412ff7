package jsonschema

// Draft is the JSON Schema dialect written on root schemas.
const Draft = "http://json-schema.org/draft-04/schema#"

// Schema is a minimal JSON Schema representation used for export.
type Schema struct {
	// Core
	SchemaURI   string `json:"$schema,omitempty"`
	ID          string `json:"id,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Default     any    `json:"default,omitempty"`

	// String
	Enum            []string `json:"enum,omitempty"`
	ContentEncoding string   `json:"contentEncoding,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	PatternProperties    map[string]*Schema `json:"patternProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty"`

	Definitions map[string]*Schema `json:"definitions,omitempty"`
}
