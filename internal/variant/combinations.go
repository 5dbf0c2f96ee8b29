package variant

import (
	"errors"

	"storefront-variant-service/internal/domain"
)

// MaxCombinations caps how many combinations Combinations will enumerate.
const MaxCombinations = 10000

var ErrTooManyCombinations = errors.New("variant: too many attribute combinations")

// Combination is one full selection of a product's variable attributes and
// the canonical key it maps to.
type Combination struct {
	Choices []domain.Choice `json:"choices"`
	Labels  []string        `json:"labels"`
	Key     string          `json:"key"`
}

// Combinations enumerates every full selection of the variable attributes,
// walking attributes and values in declared order. Products without
// variable attributes yield a single empty combination.
func Combinations(storeID, productID int64, attrs []domain.Attribute) ([]Combination, error) {
	variable := make([]domain.Attribute, 0, len(attrs))
	total := 1
	for _, attr := range attrs {
		if !attr.IsVariable() {
			continue
		}
		variable = append(variable, attr)
		total *= len(attr.Values)
		if total > MaxCombinations {
			return nil, ErrTooManyCombinations
		}
	}

	out := make([]Combination, 0, total)
	idx := make([]int, len(variable))
	for {
		sel := make(domain.Selection, len(variable))
		c := Combination{
			Choices: make([]domain.Choice, len(variable)),
			Labels:  make([]string, len(variable)),
		}
		for i, attr := range variable {
			v := attr.Values[idx[i]]
			c.Choices[i] = domain.Choice{AttributeID: attr.ID, ValueID: v.ID}
			c.Labels[i] = attr.Name + ": " + v.Value
			sel[attr.ID] = v.ID
		}
		c.Key = BuildCanonicalKey(storeID, productID, sel, variable)
		out = append(out, c)

		// odometer increment, last attribute fastest
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(variable[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out, nil
		}
	}
}
