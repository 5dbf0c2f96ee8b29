package domain

import "sort"

// Choice pairs an attribute with the value picked for it.
type Choice struct {
	AttributeID int64 `json:"attribute_id" validate:"required,gt=0"`
	ValueID     int64 `json:"value_id" validate:"required,gt=0"`
}

// Selection maps an attribute id to the chosen value id. It is built one
// choice at a time and may be incomplete.
type Selection map[int64]int64

// NewSelection builds a Selection from choices. A later choice for the same
// attribute replaces an earlier one.
func NewSelection(choices ...Choice) Selection {
	sel := make(Selection, len(choices))
	for _, c := range choices {
		sel.Choose(c)
	}
	return sel
}

// Choose sets or replaces the value chosen for an attribute.
func (s Selection) Choose(c Choice) {
	s[c.AttributeID] = c.ValueID
}

// Choices returns the selection as choices ordered by attribute id.
func (s Selection) Choices() []Choice {
	out := make([]Choice, 0, len(s))
	for attrID, valueID := range s {
		out = append(out, Choice{AttributeID: attrID, ValueID: valueID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttributeID < out[j].AttributeID })
	return out
}
