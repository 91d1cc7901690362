package internal

import (
	"github.com/lychee-technology/attrschema"
)

// ApplyDefaults returns a copy of record with every absent attribute that
// declares a default filled in. Present keys are never touched, whatever
// their value.
func ApplyDefaults(schema attrschema.CompiledSchema, record attrschema.AttributesData) attrschema.AttributesData {
	out := record.Clone()
	for _, code := range schema.Codes() {
		if _, present := out[code]; present {
			continue
		}
		def, ok := schema.Definition(code)
		if !ok || def.DefaultValue == nil {
			continue
		}
		out[code] = attrschema.CloneValue(def.DefaultValue)
	}
	return out
}
