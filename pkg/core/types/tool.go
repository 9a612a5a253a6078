package types

// ToolDescriptor declares a callable tool to the model: its name, a
// free-text description, and the JSON schema of its arguments. Descriptors
// are immutable for the process lifetime.
type ToolDescriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Schema is a minimal JSON schema for tool parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Schema type names, matching JSON schema primitives.
const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// ObjectSchema builds an object schema from property schemas.
func ObjectSchema(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: properties, Required: required}
}

// StringSchema builds a described string schema.
func StringSchema(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

// IntSchema builds a described integer schema.
func IntSchema(description string) *Schema {
	return &Schema{Type: TypeInteger, Description: description}
}

// BoolSchema builds a described boolean schema.
func BoolSchema(description string) *Schema {
	return &Schema{Type: TypeBoolean, Description: description}
}

// EnumSchema builds a string schema restricted to the given values.
func EnumSchema(description string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: description, Enum: values}
}
