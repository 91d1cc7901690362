package attrschema

import (
	"encoding/json"
	"strings"

	"github.com/dlclark/regexp2"
)

// AttributeType enumerates the supported attribute value types.
type AttributeType string

const (
	AttributeTypeText        AttributeType = "text"
	AttributeTypeTextarea    AttributeType = "textarea"
	AttributeTypeNumber      AttributeType = "number"
	AttributeTypeBoolean     AttributeType = "boolean"
	AttributeTypeSelect      AttributeType = "select"
	AttributeTypeMultiselect AttributeType = "multiselect"
	AttributeTypeDate        AttributeType = "date"     // YYYY-MM-DD
	AttributeTypeDateTime    AttributeType = "datetime" // ISO-8601 instant
	AttributeTypeJSON        AttributeType = "json"     // validated string, stored as text
)

// AttributeTypes lists every known type in declaration order.
var AttributeTypes = []AttributeType{
	AttributeTypeText,
	AttributeTypeTextarea,
	AttributeTypeNumber,
	AttributeTypeBoolean,
	AttributeTypeSelect,
	AttributeTypeMultiselect,
	AttributeTypeDate,
	AttributeTypeDateTime,
	AttributeTypeJSON,
}

// IsKnown reports whether t is one of the supported attribute types.
func (t AttributeType) IsKnown() bool {
	for _, known := range AttributeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UsesOptions reports whether values of this type are constrained to an option set.
func (t AttributeType) UsesOptions() bool {
	return t == AttributeTypeSelect || t == AttributeTypeMultiselect
}

// IsText reports whether the type is stored as free text.
func (t AttributeType) IsText() bool {
	return t == AttributeTypeText || t == AttributeTypeTextarea
}

// Rule names accepted in ValidationRules.
const (
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RulePattern   = "pattern"
)

// ValidationRules holds the author-supplied rules exactly as stored.
// Values are not trusted: the schema compiler normalises them and drops the
// ones that are malformed or do not apply to the attribute type.
type ValidationRules map[string]any

// Rules is the normalised form of ValidationRules. Nil fields mean the rule
// is absent or was dropped.
type Rules struct {
	Min       *float64
	Max       *float64
	MinLength *int
	MaxLength *int
	Pattern   *regexp2.Regexp // ECMAScript syntax
}

// IsZero reports whether no rule is set.
func (r Rules) IsZero() bool {
	return r.Min == nil && r.Max == nil && r.MinLength == nil && r.MaxLength == nil && r.Pattern == nil
}

// Option is one selectable value of a select or multiselect attribute.
type Option struct {
	Value any    `json:"value"` // string or number
	Label string `json:"label"`
}

// AttributeDefinition describes one dynamic product attribute.
type AttributeDefinition struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	DisplayName     string          `json:"display_name,omitempty"`
	Description     string          `json:"description,omitempty"`
	Type            AttributeType   `json:"type"`
	IsRequired      bool            `json:"is_required"`
	DefaultValue    any             `json:"default_value"`
	Options         []Option        `json:"options"`
	ValidationRules ValidationRules `json:"validation_rules"`
}

// Label returns the name used in user-facing messages.
func (d AttributeDefinition) Label() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	if strings.TrimSpace(d.DisplayName) != "" {
		return d.DisplayName
	}
	return d.Code
}

// OptionValues returns the values of the attribute's options in order.
func (d AttributeDefinition) OptionValues() []any {
	values := make([]any, 0, len(d.Options))
	for _, opt := range d.Options {
		values = append(values, opt.Value)
	}
	return values
}

// AttributeSet is an ordered, duplicate-free list of attribute definitions
// describing one product type.
type AttributeSet struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Code        string                `json:"code"`
	Description *string               `json:"description"`
	IsActive    bool                  `json:"is_active"`
	Category    *int64                `json:"category"`
	Brand       *int64                `json:"brand"`
	Attributes  []AttributeDefinition `json:"attributes_detail"`
}

// Attribute returns the definition with the given code.
func (s *AttributeSet) Attribute(code string) (AttributeDefinition, bool) {
	for _, def := range s.Attributes {
		if def.Code == code {
			return def, true
		}
	}
	return AttributeDefinition{}, false
}

// AttributeByID returns the definition with the given id.
func (s *AttributeSet) AttributeByID(id int64) (AttributeDefinition, bool) {
	for _, def := range s.Attributes {
		if def.ID == id {
			return def, true
		}
	}
	return AttributeDefinition{}, false
}

// Codes returns the attribute codes in declared order.
func (s *AttributeSet) Codes() []string {
	codes := make([]string, 0, len(s.Attributes))
	for _, def := range s.Attributes {
		codes = append(codes, def.Code)
	}
	return codes
}

// Clone returns a deep copy of the set so that cached sets are never shared.
func (s *AttributeSet) Clone() *AttributeSet {
	if s == nil {
		return nil
	}
	out := *s
	if s.Description != nil {
		d := *s.Description
		out.Description = &d
	}
	if s.Category != nil {
		c := *s.Category
		out.Category = &c
	}
	if s.Brand != nil {
		b := *s.Brand
		out.Brand = &b
	}
	if s.Attributes != nil {
		out.Attributes = make([]AttributeDefinition, len(s.Attributes))
		for i, def := range s.Attributes {
			out.Attributes[i] = def.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the definition.
func (d AttributeDefinition) Clone() AttributeDefinition {
	out := d
	out.DefaultValue = CloneValue(d.DefaultValue)
	if d.Options != nil {
		out.Options = make([]Option, len(d.Options))
		copy(out.Options, d.Options)
	}
	if d.ValidationRules != nil {
		out.ValidationRules = make(ValidationRules, len(d.ValidationRules))
		for k, v := range d.ValidationRules {
			out.ValidationRules[k] = CloneValue(v)
		}
	}
	return out
}

// AttributesData maps attribute codes to values. Before coercion values are
// whatever the form captured; after a successful validation they are canonical.
type AttributesData map[string]any

// Clone returns a deep copy of the record. Nested lists and objects are copied
// so that callers can mutate the result freely.
func (d AttributesData) Clone() AttributesData {
	if d == nil {
		return AttributesData{}
	}
	out := make(AttributesData, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies lists and objects produced by JSON decoding.
func CloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case json.RawMessage:
		out := make(json.RawMessage, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
