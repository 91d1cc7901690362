package internal

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
)

// JSONSchema describes the canonical record accepted by the schema as a
// JSON Schema object. Optional attributes also accept null.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	root := &jsonschema.Schema{
		Type:          "object",
		Title:         s.setName,
		Properties:    make(map[string]*jsonschema.Schema, len(s.fields)),
		PropertyOrder: s.Codes(),
	}

	for _, f := range s.fields {
		def := f.Definition()
		prop := fieldJSONSchema(f)
		prop.Title = def.Label()
		prop.Description = def.Description
		if def.DefaultValue != nil {
			if raw, err := json.Marshal(def.DefaultValue); err == nil {
				prop.Default = raw
			} else {
				zap.S().Warnw("default value is not JSON encodable", "attribute", def.Code, "error", err)
			}
		}
		if def.IsRequired {
			root.Required = append(root.Required, def.Code)
		} else {
			allowNull(prop)
		}
		root.Properties[def.Code] = prop
	}
	return root
}

func fieldJSONSchema(f *FieldValidator) *jsonschema.Schema {
	rules := f.Rules()
	switch f.Definition().Type {
	case attrschema.AttributeTypeText, attrschema.AttributeTypeTextarea:
		prop := &jsonschema.Schema{Type: "string", MinLength: rules.MinLength, MaxLength: rules.MaxLength}
		if rules.Pattern != nil {
			prop.Pattern = rules.Pattern.String()
		}
		return prop
	case attrschema.AttributeTypeNumber:
		return &jsonschema.Schema{Type: "number", Minimum: rules.Min, Maximum: rules.Max}
	case attrschema.AttributeTypeBoolean:
		return &jsonschema.Schema{Type: "boolean"}
	case attrschema.AttributeTypeSelect:
		return &jsonschema.Schema{Enum: optionEnum(f.Options())}
	case attrschema.AttributeTypeMultiselect:
		return &jsonschema.Schema{
			Type:        "array",
			Items:       &jsonschema.Schema{Enum: optionEnum(f.Options())},
			UniqueItems: true,
		}
	case attrschema.AttributeTypeDate:
		return &jsonschema.Schema{Type: "string", Format: "date", Pattern: datePattern.String()}
	case attrschema.AttributeTypeDateTime:
		return &jsonschema.Schema{Type: "string", Format: "date-time"}
	case attrschema.AttributeTypeJSON:
		return &jsonschema.Schema{Type: "string", ContentMediaType: "application/json"}
	default:
		// Unsupported types only ever accept an empty value.
		return &jsonschema.Schema{Type: "null"}
	}
}

func optionEnum(options []attrschema.Option) []any {
	values := make([]any, 0, len(options))
	for _, opt := range options {
		values = append(values, opt.Value)
	}
	return values
}

func allowNull(prop *jsonschema.Schema) {
	switch {
	case prop.Type == "null":
	case prop.Type != "":
		prop.Types = []string{prop.Type, "null"}
		prop.Type = ""
	case prop.Enum != nil:
		prop.Enum = append(prop.Enum, nil)
	}
}
