package internal

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lychee-technology/attrschema"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		def     attrschema.AttributeDefinition
		raw     any
		want    any
		wantMsg string
	}{
		{"empty passes through", numberDef(0, 1), "", "", ""},
		{"nil passes through", boolDef(), nil, nil, ""},

		{"number from string", numberDef(0, 100), "150", 150.0, ""},
		{"number trims", numberDef(0, 100), " 12.5 ", 12.5, ""},
		{"number exponent", numberDef(0, 100), "1e2", 100.0, ""},
		{"number from int", numberDef(0, 100), 7, 7.0, ""},
		{"number from json number", numberDef(0, 100), json.Number("3"), 3.0, ""},
		{"number not zero on garbage", numberDef(0, 100), "12abc", nil, "Weight must be a valid number."},
		{"number rejects infinity", numberDef(0, 100), "Inf", nil, "Weight must be a valid number."},
		{"number rejects NaN", numberDef(0, 100), "NaN", nil, "Weight must be a valid number."},
		{"number rejects bool", numberDef(0, 100), true, nil, "Weight must be a valid number."},

		{"boolean true", boolDef(), "true", true, ""},
		{"boolean false", boolDef(), "false", false, ""},
		{"boolean native", boolDef(), true, true, ""},
		{"boolean case sensitive", boolDef(), "True", nil, "Featured must be a boolean (true/false)."},
		{"boolean number", boolDef(), 1, nil, "Featured must be a boolean (true/false)."},

		{"multiselect json string", selectDef(attrschema.AttributeTypeMultiselect), `["a","b"]`, []any{"a", "b"}, ""},
		{"multiselect list passes", selectDef(attrschema.AttributeTypeMultiselect), []any{"red"}, []any{"red"}, ""},
		{"multiselect string slice widened", selectDef(attrschema.AttributeTypeMultiselect), []string{"red", "blue"}, []any{"red", "blue"}, ""},
		{"multiselect dedupes", selectDef(attrschema.AttributeTypeMultiselect), []any{"red", "blue", "red", 3.0, 3}, []any{"red", "blue", 3.0}, ""},
		{"multiselect null", selectDef(attrschema.AttributeTypeMultiselect), "null", []any{}, ""},
		{"multiselect not json", selectDef(attrschema.AttributeTypeMultiselect), "not json", nil, "Color must be a list of selections."},
		{"multiselect json object", selectDef(attrschema.AttributeTypeMultiselect), `{"a":1}`, nil, "Color must be a list of selections."},
		{"multiselect number", selectDef(attrschema.AttributeTypeMultiselect), 4.0, nil, "Color must be a list of selections."},

		{"json string kept verbatim", jsonDef(), `{ "a": 1 }`, `{ "a": 1 }`, ""},
		{"json raw message", jsonDef(), json.RawMessage(`[1,2]`), "[1,2]", ""},
		{"json structured marshalled", jsonDef(), map[string]any{"a": 1.0}, `{"a":1}`, ""},
		{"json invalid string", jsonDef(), "{oops", nil, "Specs must be valid JSON."},

		{"text untouched", textDef(nil), " padded ", " padded ", ""},
		{"select untouched", selectDef(attrschema.AttributeTypeSelect), "red", "red", ""},
		{"date untouched", dateDef(attrschema.AttributeTypeDate), "2024-01-01", "2024-01-01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestField(t, tt.def)
			got, err := f.Coerce(tt.raw)
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantMsg, attrschema.FieldMessage(err))

				var attrErr *attrschema.AttrError
				require.True(t, errors.As(err, &attrErr))
				assert.Equal(t, attrschema.ErrCodeCoercionFailed, attrErr.Code)
				assert.Equal(t, attrschema.ErrorTypeCoercion, attrErr.Type)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateCoercionFailureSkipsEvaluation(t *testing.T) {
	f := newTestField(t, attrschema.AttributeDefinition{
		Code: "weight", Name: "Weight", Type: attrschema.AttributeTypeNumber, IsRequired: true,
		ValidationRules: attrschema.ValidationRules{"min": 10.0},
	})

	_, err := f.Validate("heavy")
	require.Error(t, err)
	assert.Equal(t, "Weight must be a valid number.", attrschema.FieldMessage(err))

	value, err := f.Validate("12")
	require.NoError(t, err)
	assert.Equal(t, 12.0, value)

	_, err = f.Validate("5")
	assert.Equal(t, "Weight must be at least 10.", attrschema.FieldMessage(err))
}

func TestAsList(t *testing.T) {
	items, ok := asList([]int64{1, 2})
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), int64(2)}, items)

	_, ok = asList("a")
	assert.False(t, ok)
}
