package internal

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/lychee-technology/attrschema"
)

var (
	errNotNumeric = errors.New("value is not numeric")
	errNotBoolean = errors.New(`value is not "true" or "false"`)
	errNotList    = errors.New("value is not a list")
)

// Coerce converts a raw form value into the attribute's canonical
// representation. Empty input is returned untouched.
func (f *FieldValidator) Coerce(raw any) (any, error) {
	if isEmptyValue(raw) {
		return raw, nil
	}

	switch f.def.Type {
	case attrschema.AttributeTypeNumber:
		return f.coerceNumber(raw)
	case attrschema.AttributeTypeBoolean:
		return f.coerceBoolean(raw)
	case attrschema.AttributeTypeMultiselect:
		return f.coerceMultiselect(raw)
	case attrschema.AttributeTypeJSON:
		return f.coerceJSON(raw)
	default:
		return raw, nil
	}
}

func (f *FieldValidator) coerceNumber(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		n, ok := parseNumber(s)
		if !ok {
			return nil, attrschema.NewCoercionError(f.def.Code, f.label+" must be a valid number.", errNotNumeric).
				WithDetail("raw", s)
		}
		return n, nil
	}
	n, ok := toFloat64(raw)
	if !ok || !isFinite(n) {
		return nil, attrschema.NewCoercionError(f.def.Code, f.label+" must be a valid number.", errNotNumeric).
			WithDetail("raw_type", describeValue(raw))
	}
	return n, nil
}

func (f *FieldValidator) coerceBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch v {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, attrschema.NewCoercionError(f.def.Code, f.label+" must be a boolean (true/false).", errNotBoolean)
}

func (f *FieldValidator) coerceMultiselect(raw any) (any, error) {
	if items, ok := asList(raw); ok {
		return dedupe(items), nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, attrschema.NewCoercionError(f.def.Code, f.label+" must be a list of selections.", errNotList)
	}
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, attrschema.NewCoercionError(f.def.Code, f.label+" must be a list of selections.", err)
	}
	if items == nil {
		// "null" decodes to a nil slice.
		items = []any{}
	}
	return dedupe(items), nil
}

func (f *FieldValidator) coerceJSON(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		if !json.Valid([]byte(v)) {
			return nil, attrschema.NewCoercionError(f.def.Code, f.label+" must be valid JSON.", errors.New("invalid JSON text"))
		}
		return v, nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, attrschema.NewCoercionError(f.def.Code, f.label+" must be valid JSON.", errors.New("invalid JSON text"))
		}
		return string(v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, attrschema.NewCoercionError(f.def.Code, f.label+" must be valid JSON.", err)
		}
		return string(encoded), nil
	}
}

// parseNumber parses trimmed decimal text into a finite float.
func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !isFinite(n) {
		return 0, false
	}
	return n, true
}

// asList widens the slice shapes a form or a JSON decoder can produce.
func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	case []int64:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

// dedupe drops repeated scalars keeping the first occurrence. Non-scalar
// items are kept so that evaluation can reject them.
func dedupe(items []any) []any {
	out := make([]any, 0, len(items))
	seen := NewSet[string]()
	for _, item := range items {
		if key, ok := scalarKey(item); ok {
			if seen.Contains(key) {
				continue
			}
			seen.Add(key)
		}
		out = append(out, item)
	}
	return out
}
