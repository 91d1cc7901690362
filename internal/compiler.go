package internal

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
)

// Schema is the compiled validator of one attribute set. It implements
// attrschema.CompiledSchema and is immutable once built.
type Schema struct {
	setID       int64
	setName     string
	fields      []*FieldValidator
	byCode      map[string]*FieldValidator
	diagnostics []attrschema.Diagnostic
}

var _ attrschema.CompiledSchema = (*Schema)(nil)

// Compile builds the validator for set. Definition problems never fail
// compilation; they are dropped and reported through Diagnostics.
func Compile(set *attrschema.AttributeSet) (*Schema, error) {
	if set == nil {
		return nil, attrschema.NewDefinitionError("", "attribute set is nil")
	}
	schema := compile(set.ID, set.Name, set.Attributes)
	return schema, nil
}

// CompileDefinitions builds a validator from a bare definition list.
func CompileDefinitions(defs []attrschema.AttributeDefinition) *Schema {
	return compile(0, "", defs)
}

func compile(setID int64, setName string, defs []attrschema.AttributeDefinition) *Schema {
	schema := &Schema{
		setID:   setID,
		setName: setName,
		fields:  make([]*FieldValidator, 0, len(defs)),
		byCode:  make(map[string]*FieldValidator, len(defs)),
	}

	for i, def := range defs {
		if def.Code == "" {
			schema.report(attrschema.Diagnostic{
				Attribute: fmt.Sprintf("#%d", i),
				Reason:    fmt.Sprintf("attribute %q has no code", def.Label()),
			})
			continue
		}
		if _, dup := schema.byCode[def.Code]; dup {
			schema.report(attrschema.Diagnostic{
				Attribute: def.Code,
				Reason:    "duplicate attribute code",
			})
			continue
		}

		field, diags := NewFieldValidator(def)
		for _, d := range diags {
			schema.report(d)
		}
		for _, d := range CheckDefault(def) {
			schema.report(d)
		}

		schema.fields = append(schema.fields, field)
		schema.byCode[def.Code] = field
	}

	zap.S().Debugw("compiled attribute schema",
		"attribute_set_id", setID,
		"fields", len(schema.fields),
		"diagnostics", len(schema.diagnostics))
	return schema
}

func (s *Schema) report(d attrschema.Diagnostic) {
	s.diagnostics = append(s.diagnostics, d)
	zap.S().Warnw("attribute definition problem dropped",
		"attribute_set_id", s.setID,
		"attribute", d.Attribute,
		"rule", d.Rule,
		"reason", d.Reason)
}

// SetID returns the id of the attribute set the schema was compiled from.
func (s *Schema) SetID() int64 { return s.setID }

// Codes returns the compiled attribute codes in declared order.
func (s *Schema) Codes() []string {
	codes := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		codes = append(codes, f.Code())
	}
	return codes
}

// Definition returns the definition behind a compiled field.
func (s *Schema) Definition(code string) (attrschema.AttributeDefinition, bool) {
	f, ok := s.byCode[code]
	if !ok {
		return attrschema.AttributeDefinition{}, false
	}
	return f.Definition(), true
}

// Field returns the compiled validator of one attribute.
func (s *Schema) Field(code string) (*FieldValidator, bool) {
	f, ok := s.byCode[code]
	return f, ok
}

// Diagnostics lists the definition problems dropped during compilation.
func (s *Schema) Diagnostics() []attrschema.Diagnostic {
	out := make([]attrschema.Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// ValidateField coerces and evaluates one raw value.
func (s *Schema) ValidateField(code string, raw any) (any, error) {
	f, ok := s.byCode[code]
	if !ok {
		return nil, attrschema.NewUnknownAttributeError(code)
	}
	return f.Validate(raw)
}

// Validate runs every field validator over data. On success Data holds the
// coerced record restricted to compiled codes; keys absent from data stay
// absent. On failure Data is nil and Errors lists one message per failing
// field in declared order.
func (s *Schema) Validate(data attrschema.AttributesData) attrschema.ValidationResult {
	out := make(attrschema.AttributesData, len(s.fields))
	var errs attrschema.FieldErrors

	for _, f := range s.fields {
		raw, present := data[f.Code()]
		value, err := f.Validate(raw)
		if err != nil {
			errs = append(errs, attrschema.FieldError{Code: f.Code(), Message: attrschema.FieldMessage(err)})
			continue
		}
		if present {
			out[f.Code()] = attrschema.CloneValue(value)
		}
	}

	if len(errs) > 0 {
		return attrschema.ValidationResult{Errors: errs}
	}
	return attrschema.ValidationResult{Data: out}
}

// ApplyDefaults fills absent attributes from their declared defaults.
func (s *Schema) ApplyDefaults(data attrschema.AttributesData) attrschema.AttributesData {
	return ApplyDefaults(s, data)
}
