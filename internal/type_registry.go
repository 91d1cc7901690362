package internal

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/lychee-technology/attrschema"
)

// RuleSet is the set of rule names an attribute type accepts.
type RuleSet map[string]struct{}

// Has reports whether rule is in the set.
func (s RuleSet) Has(rule string) bool {
	_, ok := s[rule]
	return ok
}

// Names returns the rule names in sorted order.
func (s RuleSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	textRules   = RuleSet{attrschema.RuleMinLength: {}, attrschema.RuleMaxLength: {}, attrschema.RulePattern: {}}
	numberRules = RuleSet{attrschema.RuleMin: {}, attrschema.RuleMax: {}}
	noRules     = RuleSet{}

	knownRules = RuleSet{
		attrschema.RuleMin:       {},
		attrschema.RuleMax:       {},
		attrschema.RuleMinLength: {},
		attrschema.RuleMaxLength: {},
		attrschema.RulePattern:   {},
	}
)

// patternMatchTimeout bounds a single pattern evaluation.
const patternMatchTimeout = 100 * time.Millisecond

// ConstraintsAllowedFor returns the rules accepted by t. The boolean is false
// for unknown types.
func ConstraintsAllowedFor(t attrschema.AttributeType) (RuleSet, bool) {
	switch {
	case t.IsText():
		return textRules, true
	case t == attrschema.AttributeTypeNumber:
		return numberRules, true
	case t.IsKnown():
		return noRules, true
	default:
		return nil, false
	}
}

// NormalizeRules converts the raw rules of def into Rules. Malformed and
// inapplicable rules are dropped one at a time and reported.
func NormalizeRules(def attrschema.AttributeDefinition) (attrschema.Rules, []attrschema.Diagnostic) {
	var rules attrschema.Rules
	var diags []attrschema.Diagnostic
	if len(def.ValidationRules) == 0 {
		return rules, nil
	}

	allowed, _ := ConstraintsAllowedFor(def.Type)

	names := make([]string, 0, len(def.ValidationRules))
	for name := range def.ValidationRules {
		names = append(names, name)
	}
	sort.Strings(names)

	drop := func(rule, reason string) {
		diags = append(diags, attrschema.Diagnostic{Attribute: def.Code, Rule: rule, Reason: reason})
	}

	for _, name := range names {
		raw := def.ValidationRules[name]
		if raw == nil {
			continue
		}
		if !knownRules.Has(name) {
			drop(name, "unknown rule")
			continue
		}
		if !allowed.Has(name) {
			drop(name, fmt.Sprintf("rule does not apply to type %q", def.Type))
			continue
		}

		switch name {
		case attrschema.RuleMin, attrschema.RuleMax:
			n, ok := ruleNumber(raw)
			if !ok {
				drop(name, "expected a number, got "+describeValue(raw))
				continue
			}
			if name == attrschema.RuleMin {
				rules.Min = &n
			} else {
				rules.Max = &n
			}
		case attrschema.RuleMinLength, attrschema.RuleMaxLength:
			n, ok := ruleNumber(raw)
			if !ok || n != math.Trunc(n) {
				drop(name, "expected a whole number, got "+describeValue(raw))
				continue
			}
			if n < 0 {
				drop(name, "length must not be negative")
				continue
			}
			length := int(n)
			if name == attrschema.RuleMinLength {
				rules.MinLength = &length
			} else {
				rules.MaxLength = &length
			}
		case attrschema.RulePattern:
			expr, ok := raw.(string)
			if !ok {
				drop(name, "expected a string, got "+describeValue(raw))
				continue
			}
			if expr == "" {
				continue
			}
			re, err := regexp2.Compile(expr, regexp2.ECMAScript)
			if err != nil {
				drop(name, "pattern does not compile: "+err.Error())
				continue
			}
			re.MatchTimeout = patternMatchTimeout
			rules.Pattern = re
		}
	}

	return rules, diags
}

// ruleNumber accepts the numeric shapes rules arrive in: JSON numbers, Go
// numeric kinds and numeric strings.
func ruleNumber(raw any) (float64, bool) {
	if s, ok := raw.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || !isFinite(f) {
			return 0, false
		}
		return f, true
	}
	f, ok := toFloat64(raw)
	if !ok || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// NormalizeOptions keeps the usable options of a select or multiselect
// attribute. Options on other types are ignored.
func NormalizeOptions(def attrschema.AttributeDefinition) ([]attrschema.Option, []attrschema.Diagnostic) {
	var diags []attrschema.Diagnostic
	if !def.Type.UsesOptions() {
		if len(def.Options) > 0 {
			diags = append(diags, attrschema.Diagnostic{
				Attribute: def.Code,
				Reason:    fmt.Sprintf("options ignored for type %q", def.Type),
			})
		}
		return nil, diags
	}

	options := make([]attrschema.Option, 0, len(def.Options))
	seen := NewSet[string]()
	for i, opt := range def.Options {
		key, ok := scalarKey(opt.Value)
		if !ok {
			diags = append(diags, attrschema.Diagnostic{
				Attribute: def.Code,
				Reason:    fmt.Sprintf("option %d has a non-scalar value (%s)", i, describeValue(opt.Value)),
			})
			continue
		}
		if seen.Contains(key) {
			diags = append(diags, attrschema.Diagnostic{
				Attribute: def.Code,
				Reason:    fmt.Sprintf("option %d repeats value %v", i, opt.Value),
			})
			continue
		}
		seen.Add(key)
		if opt.Label == "" {
			opt.Label = fmt.Sprint(opt.Value)
		}
		options = append(options, opt)
	}

	if len(options) == 0 {
		diags = append(diags, attrschema.Diagnostic{
			Attribute: def.Code,
			Reason:    fmt.Sprintf("%s attribute has no options", def.Type),
		})
	}
	return options, diags
}

// CheckDefault reports a declared default that the attribute itself would reject.
func CheckDefault(def attrschema.AttributeDefinition) []attrschema.Diagnostic {
	if def.DefaultValue == nil || !def.Type.IsKnown() {
		return nil
	}
	field, _ := NewFieldValidator(def)
	if _, err := field.Validate(def.DefaultValue); err != nil {
		return []attrschema.Diagnostic{{
			Attribute: def.Code,
			Rule:      "default_value",
			Reason:    "default value rejected: " + attrschema.FieldMessage(err),
		}}
	}
	return nil
}
