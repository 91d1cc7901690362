package internal

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lychee-technology/attrschema"
)

func TestProperty_NumberRangeIsInclusive(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("values inside [min, max] pass and one step outside fails", prop.ForAll(
		func(min, span, frac float64) bool {
			max := min + span
			f := newTestField(t, numberDef(min, max))

			inside := min + frac*(max-min)
			if _, err := f.Validate(inside); err != nil {
				return false
			}
			_, below := f.Validate(min - 1)
			_, above := f.Validate(max + 1)
			return below != nil && above != nil &&
				strings.Contains(attrschema.FieldMessage(below), "must be at least") &&
				strings.Contains(attrschema.FieldMessage(above), "must not exceed")
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(0, 1e4),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestProperty_OptionalFieldsAcceptEmptyValues(t *testing.T) {
	empties := []any{nil, "", []any{}}
	properties := gopter.NewProperties(nil)

	properties.Property("non required attributes accept emptiness whatever their rules", prop.ForAll(
		func(typeIndex, emptyIndex int, minLength int) bool {
			def := attrschema.AttributeDefinition{
				Code: "field",
				Type: attrschema.AttributeTypes[typeIndex],
				ValidationRules: attrschema.ValidationRules{
					"min_length": float64(minLength), "min": 5.0, "pattern": "^never$",
				},
				Options: []attrschema.Option{{Value: "a"}},
			}
			_, err := newTestField(t, def).Validate(empties[emptyIndex])
			return err == nil
		},
		gen.IntRange(0, len(attrschema.AttributeTypes)-1),
		gen.IntRange(0, len(empties)-1),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}

func TestProperty_ApplyDefaultsKeepsPopulatedRecords(t *testing.T) {
	properties := gopter.NewProperties(nil)
	schema := defaultsSchema()

	properties.Property("a fully populated record is returned unchanged", prop.ForAll(
		func(title string, featured bool) bool {
			record := attrschema.AttributesData{"title": title, "featured": featured, "tags": []any{}, "notes": ""}
			return reflect.DeepEqual(record, schema.ApplyDefaults(record))
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_MultiselectCoercionDecodesJSONLists(t *testing.T) {
	properties := gopter.NewProperties(nil)
	f := newTestField(t, selectDef(attrschema.AttributeTypeMultiselect))

	properties.Property("a JSON encoded list decodes to the deduplicated list", prop.ForAll(
		func(items []string) bool {
			encoded, err := json.Marshal(items)
			if err != nil {
				return false
			}
			got, err := f.Coerce(string(encoded))
			if err != nil {
				return false
			}

			want := make([]any, 0, len(items))
			seen := make(map[string]bool)
			for _, item := range items {
				if !seen[item] {
					seen[item] = true
					want = append(want, item)
				}
			}
			return reflect.DeepEqual(want, got)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestProperty_CompilationIsPure(t *testing.T) {
	properties := gopter.NewProperties(nil)
	first, _ := Compile(productSet())
	second, _ := Compile(productSet())

	properties.Property("two compilations of one set agree on every record", prop.ForAll(
		func(color, weight string) bool {
			record := attrschema.AttributesData{"color": color, "weight": weight}
			return reflect.DeepEqual(first.Validate(record), second.Validate(record))
		},
		gen.OneConstOf("red", "blue", "green", ""),
		gen.NumString(),
	))

	properties.TestingRun(t)
}
