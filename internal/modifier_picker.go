package internal

import (
	"fmt"

	"github.com/lychee-technology/attrschema"
)

// PickerChoice is one entry of a price-modifier picker.
type PickerChoice struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// ModifierAttributeChoices lists the attributes of set a price modifier can
// target: the select and multiselect ones, keyed by attribute id.
func ModifierAttributeChoices(set *attrschema.AttributeSet) []PickerChoice {
	choices := make([]PickerChoice, 0)
	if set == nil {
		return choices
	}
	for _, def := range set.Attributes {
		if !def.Type.UsesOptions() {
			continue
		}
		choices = append(choices, PickerChoice{Value: def.ID, Label: def.Label()})
	}
	return choices
}

// ModifierValueChoices lists the option values of one targetable attribute.
func ModifierValueChoices(set *attrschema.AttributeSet, attributeID int64) ([]PickerChoice, error) {
	def, err := modifierAttribute(set, attributeID)
	if err != nil {
		return nil, err
	}
	options, _ := NormalizeOptions(def)
	choices := make([]PickerChoice, 0, len(options))
	for _, opt := range options {
		choices = append(choices, PickerChoice{Value: opt.Value, Label: opt.Label})
	}
	return choices, nil
}

// ValidateModifierTarget checks that value is one option of the attribute a
// price modifier targets. A modifier always targets a single value, also for
// multiselect attributes.
func ValidateModifierTarget(set *attrschema.AttributeSet, attributeID int64, value any) error {
	def, err := modifierAttribute(set, attributeID)
	if err != nil {
		return err
	}
	def.Type = attrschema.AttributeTypeSelect
	def.IsRequired = true
	def.DefaultValue = nil

	field, _ := NewFieldValidator(def)
	if _, err := field.Validate(value); err != nil {
		return attrschema.NewModifierTargetError("attribute_value", attrschema.FieldMessage(err)).
			WithCause(err).
			WithDetail("attribute_id", attributeID)
	}
	return nil
}

func modifierAttribute(set *attrschema.AttributeSet, attributeID int64) (attrschema.AttributeDefinition, error) {
	if set == nil {
		return attrschema.AttributeDefinition{}, attrschema.NewModifierTargetError("attribute", "no attribute set selected").
			WithCause(attrschema.ErrNoSelection)
	}
	def, ok := set.AttributeByID(attributeID)
	if !ok {
		return attrschema.AttributeDefinition{}, attrschema.NewModifierTargetError("attribute",
			fmt.Sprintf("attribute %d is not part of attribute set %d", attributeID, set.ID)).
			WithCause(attrschema.ErrUnknownAttribute)
	}
	if !def.Type.UsesOptions() {
		return attrschema.AttributeDefinition{}, attrschema.NewModifierTargetError("attribute",
			fmt.Sprintf("%s is a %s attribute; price modifiers need a select or multiselect attribute", def.Label(), def.Type))
	}
	return def, nil
}
