package internal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/lychee-technology/attrschema"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

// FieldValidator is the compiled coerce-then-evaluate pipeline of one attribute.
type FieldValidator struct {
	def       attrschema.AttributeDefinition
	label     string
	rules     attrschema.Rules
	options   []attrschema.Option
	optionSet *Set[string]
	supported bool
}

// NewFieldValidator normalises def and returns its validator together with
// the definition problems that were dropped on the way.
func NewFieldValidator(def attrschema.AttributeDefinition) (*FieldValidator, []attrschema.Diagnostic) {
	var diags []attrschema.Diagnostic

	_, supported := ConstraintsAllowedFor(def.Type)
	if !supported {
		diags = append(diags, attrschema.Diagnostic{
			Attribute: def.Code,
			Reason:    fmt.Sprintf("unsupported attribute type %q", def.Type),
		})
	}

	rules, ruleDiags := NormalizeRules(def)
	diags = append(diags, ruleDiags...)

	options, optionDiags := NormalizeOptions(def)
	diags = append(diags, optionDiags...)

	optionSet := NewSet[string]()
	for _, opt := range options {
		key, _ := scalarKey(opt.Value)
		optionSet.Add(key)
	}

	return &FieldValidator{
		def:       def,
		label:     def.Label(),
		rules:     rules,
		options:   options,
		optionSet: optionSet,
		supported: supported,
	}, diags
}

// Code returns the attribute code.
func (f *FieldValidator) Code() string { return f.def.Code }

// Definition returns the definition the validator was built from.
func (f *FieldValidator) Definition() attrschema.AttributeDefinition { return f.def }

// Rules returns the normalised rules.
func (f *FieldValidator) Rules() attrschema.Rules { return f.rules }

// Options returns the usable options.
func (f *FieldValidator) Options() []attrschema.Option { return f.options }

// Validate coerces raw and evaluates the result. A coercion failure is the
// field's only error.
func (f *FieldValidator) Validate(raw any) (any, error) {
	value, err := f.Coerce(raw)
	if err != nil {
		return nil, err
	}
	if err := f.Evaluate(value); err != nil {
		return nil, err
	}
	return value, nil
}

// Evaluate checks a coerced value and returns the first failing rule.
func (f *FieldValidator) Evaluate(value any) error {
	if isEmptyValue(value) {
		if f.def.IsRequired {
			return attrschema.NewRequiredError(f.def.Code, f.label+" is required.")
		}
		return nil
	}
	if !f.supported {
		return f.fail("has an unsupported attribute type.")
	}

	switch f.def.Type {
	case attrschema.AttributeTypeText, attrschema.AttributeTypeTextarea:
		return f.evaluateText(value)
	case attrschema.AttributeTypeNumber:
		return f.evaluateNumber(value)
	case attrschema.AttributeTypeBoolean:
		if _, ok := value.(bool); !ok {
			return f.fail("must be a boolean (true/false).")
		}
	case attrschema.AttributeTypeSelect:
		if !f.isOption(value) {
			return f.fail("has an invalid selection.")
		}
	case attrschema.AttributeTypeMultiselect:
		items, ok := asList(value)
		if !ok {
			return f.fail("must be a list of selections.")
		}
		for _, item := range items {
			if !f.isOption(item) {
				return f.fail("contains one or more invalid selections.")
			}
		}
	case attrschema.AttributeTypeDate:
		s, ok := value.(string)
		if !ok || !isDate(s) {
			return f.fail("must be a valid date (YYYY-MM-DD).")
		}
	case attrschema.AttributeTypeDateTime:
		s, ok := value.(string)
		if !ok || !isDateTime(s) {
			return f.fail("must be a valid datetime string.")
		}
	case attrschema.AttributeTypeJSON:
		s, ok := value.(string)
		if !ok || !json.Valid([]byte(s)) {
			return f.fail("must be valid JSON.")
		}
	}
	return nil
}

func (f *FieldValidator) evaluateText(value any) error {
	s, ok := value.(string)
	if !ok {
		return f.fail("must be a string.")
	}
	length := utf8.RuneCountInString(s)
	if f.rules.MinLength != nil && length < *f.rules.MinLength {
		return f.fail(fmt.Sprintf("must be at least %d characters long.", *f.rules.MinLength))
	}
	if f.rules.MaxLength != nil && length > *f.rules.MaxLength {
		return f.fail(fmt.Sprintf("must not exceed %d characters.", *f.rules.MaxLength))
	}
	if f.rules.Pattern != nil {
		// a match that times out counts as a mismatch
		matched, err := f.rules.Pattern.MatchString(s)
		if err != nil || !matched {
			return f.fail("does not match the required pattern.")
		}
	}
	return nil
}

func (f *FieldValidator) evaluateNumber(value any) error {
	var n float64
	var ok bool
	if s, isString := value.(string); isString {
		n, ok = parseNumber(s)
	} else {
		n, ok = toFloat64(value)
		ok = ok && isFinite(n)
	}
	if !ok {
		return f.fail("must be a valid number.")
	}
	if f.rules.Min != nil && n < *f.rules.Min {
		return f.fail("must be at least " + formatNumber(*f.rules.Min) + ".")
	}
	if f.rules.Max != nil && n > *f.rules.Max {
		return f.fail("must not exceed " + formatNumber(*f.rules.Max) + ".")
	}
	return nil
}

func (f *FieldValidator) isOption(value any) bool {
	key, ok := scalarKey(value)
	if !ok {
		return false
	}
	return f.optionSet.Contains(key)
}

func (f *FieldValidator) fail(reason string) error {
	return attrschema.NewConstraintError(f.def.Code, f.label+" "+reason)
}

func isDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func isDateTime(s string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
