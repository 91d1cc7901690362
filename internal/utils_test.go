package internal

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeIdentifier(t *testing.T) {
	assert.Equal(t, "", sanitizeIdentifier(""))
	assert.Equal(t, pgx.Identifier{"products_productattribute"}.Sanitize(), sanitizeIdentifier("products_productattribute"))
	assert.Equal(t, pgx.Identifier{"catalog", "attrs"}.Sanitize(), sanitizeIdentifier(`catalog."attrs"`))
}

func TestIsEmptyValue(t *testing.T) {
	blank := "   "
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"whitespace string", " \t", true},
		{"blank string pointer", &blank, true},
		{"empty list", []any{}, true},
		{"empty string list", []string{}, true},
		{"zero", 0.0, false},
		{"false", false, false},
		{"text", "x", false},
		{"list", []any{"a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isEmptyValue(tt.value))
		})
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{name: "float64", input: 3.5, want: 3.5, wantOK: true},
		{name: "int", input: 7, want: 7, wantOK: true},
		{name: "int64", input: int64(-2), want: -2, wantOK: true},
		{name: "uint8", input: uint8(9), want: 9, wantOK: true},
		{name: "json number", input: json.Number("1e3"), want: 1000, wantOK: true},
		{name: "bad json number", input: json.Number("x"), wantOK: false},
		{name: "string is not numeric", input: "42", wantOK: false},
		{name: "bool", input: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toFloat64(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestIsFiniteAndFormatNumber(t *testing.T) {
	assert.True(t, isFinite(1))
	assert.False(t, isFinite(math.NaN()))
	assert.False(t, isFinite(math.Inf(1)))

	assert.Equal(t, "100", formatNumber(100))
	assert.Equal(t, "0.5", formatNumber(0.5))
	assert.Equal(t, "-3", formatNumber(-3))
}

func TestScalarKey(t *testing.T) {
	k1, ok := scalarKey(1)
	assert.True(t, ok)
	k2, _ := scalarKey(1.0)
	assert.Equal(t, k1, k2)

	k3, _ := scalarKey("1")
	assert.NotEqual(t, k1, k3)

	k4, _ := scalarKey(json.Number("2"))
	k5, _ := scalarKey(int64(2))
	assert.Equal(t, k4, k5)

	_, ok = scalarKey(true)
	assert.False(t, ok)

	_, ok = scalarKey(map[string]any{})
	assert.False(t, ok)
}
