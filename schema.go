package attrschema

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// CompiledSchema is the validator compiled from one AttributeSet. It is owned
// by the editing session that compiled it and is discarded, never patched,
// when the session selects another set.
type CompiledSchema interface {
	// SetID returns the id of the attribute set the schema was compiled from.
	SetID() int64
	// Codes returns the compiled attribute codes in declared order.
	Codes() []string
	// Definition returns the definition behind a compiled field.
	Definition(code string) (AttributeDefinition, bool)
	// Diagnostics lists the definition problems that were dropped during compilation.
	Diagnostics() []Diagnostic

	// ValidateField coerces and evaluates a single raw value.
	ValidateField(code string, raw any) (any, error)
	// Validate coerces and evaluates a whole record.
	Validate(data AttributesData) ValidationResult
	// ApplyDefaults fills absent attributes from their declared defaults.
	ApplyDefaults(data AttributesData) AttributesData

	// JSONSchema exports the compiled constraints as a JSON Schema document.
	JSONSchema() *jsonschema.Schema
}

// Diagnostic describes a definition-level problem recovered during
// compilation. Diagnostics are for developers and administrators; they never
// block validation.
type Diagnostic struct {
	Attribute string `json:"attribute"`
	Rule      string `json:"rule,omitempty"`
	Reason    string `json:"reason"`
}

// FieldError is the single failure reported for one attribute.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldErrors keeps field failures in the attribute set's declared order.
type FieldErrors []FieldError

// Len returns the number of failing fields.
func (e FieldErrors) Len() int { return len(e) }

// Get returns the message reported for code.
func (e FieldErrors) Get(code string) (string, bool) {
	for _, fe := range e {
		if fe.Code == code {
			return fe.Message, true
		}
	}
	return "", false
}

// Map returns the errors keyed by attribute code.
func (e FieldErrors) Map() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Code] = fe.Message
	}
	return out
}

// ValidationResult is the outcome of validating one record.
type ValidationResult struct {
	Data   AttributesData `json:"data"`
	Errors FieldErrors    `json:"errors"`
}

// Valid reports whether every field passed.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err converts a failed result into an *AttrError carrying the field map.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return NewRecordValidationError(r.Errors)
}
