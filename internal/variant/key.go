package variant

import (
	"sort"
	"strconv"
	"strings"

	"storefront-variant-service/internal/domain"
)

const keySeparator = "|"

// BuildCanonicalKey derives the canonical key for a selection. Each chosen
// attribute contributes a "name-value" pair (both lowercased); pairs are
// sorted so the key does not depend on the order values were picked in.
// Choices that name an unknown attribute or value contribute nothing.
func BuildCanonicalKey(storeID, productID int64, sel domain.Selection, attrs []domain.Attribute) string {
	pairs := make([]string, 0, len(sel))
	for _, attr := range attrs {
		valueID, ok := sel[attr.ID]
		if !ok {
			continue
		}
		value, ok := attr.Value(valueID)
		if !ok {
			continue
		}
		pairs = append(pairs, pair(attr.Name, value.Value))
	}
	sort.Strings(pairs)

	parts := make([]string, 0, len(pairs)+2)
	parts = append(parts, strconv.FormatInt(storeID, 10), strconv.FormatInt(productID, 10))
	parts = append(parts, pairs...)
	return strings.Join(parts, keySeparator)
}

func pair(name, value string) string {
	return strings.ToLower(name) + "-" + strings.ToLower(value)
}

// RequiredCount is the number of attributes that participate in variation,
// i.e. that declare at least one value.
func RequiredCount(attrs []domain.Attribute) int {
	n := 0
	for _, attr := range attrs {
		if attr.IsVariable() {
			n++
		}
	}
	return n
}

// SelectedCount is the number of selection entries that pick a declared
// value of a variable attribute.
func SelectedCount(sel domain.Selection, attrs []domain.Attribute) int {
	n := 0
	for _, attr := range attrs {
		valueID, ok := sel[attr.ID]
		if !ok {
			continue
		}
		if _, ok := attr.Value(valueID); ok {
			n++
		}
	}
	return n
}
