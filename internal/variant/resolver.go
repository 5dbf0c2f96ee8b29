package variant

import (
	"context"
	"errors"
	"fmt"

	"storefront-variant-service/internal/domain"
)

// ErrIdentifierLookupFailed is returned by Resolve when the store identifier
// could not be obtained. The underlying cause is wrapped alongside it.
var ErrIdentifierLookupFailed = errors.New("variant: store identifier lookup failed")

// Status is the outcome of a resolution.
type Status int

const (
	StatusIncomplete Status = iota + 1
	StatusValid
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusIncomplete:
		return "incomplete"
	case StatusValid:
		return "valid"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Resolution describes what a selection resolved to. Key is empty for
// incomplete selections and Variant is only set when Status is StatusValid.
type Resolution struct {
	Status   Status
	Selected int
	Required int
	Key      string
	Variant  *domain.Variant
}

// StoreIDSource yields the identifier of the store the caller acts for.
type StoreIDSource interface {
	StoreID(ctx context.Context) (int64, error)
}

// StoreIDFunc adapts a function to StoreIDSource.
type StoreIDFunc func(ctx context.Context) (int64, error)

func (f StoreIDFunc) StoreID(ctx context.Context) (int64, error) {
	return f(ctx)
}

// StaticStoreID is a StoreIDSource for an identifier the caller already holds.
type StaticStoreID int64

func (s StaticStoreID) StoreID(context.Context) (int64, error) {
	return int64(s), nil
}

// Resolve turns a selection into a resolution. Incomplete selections are
// reported without consulting src. A failing or invalid store identifier
// yields an error wrapping ErrIdentifierLookupFailed; no store id is ever
// assumed.
func Resolve(ctx context.Context, src StoreIDSource, product *domain.Product, sel domain.Selection) (Resolution, error) {
	if product == nil {
		return Resolution{}, errors.New("variant: product is required")
	}

	res := Resolution{
		Selected: SelectedCount(sel, product.Attributes),
		Required: RequiredCount(product.Attributes),
	}
	if res.Selected < res.Required {
		res.Status = StatusIncomplete
		return res, nil
	}

	if src == nil {
		return Resolution{}, fmt.Errorf("%w: no store identifier source", ErrIdentifierLookupFailed)
	}
	storeID, err := src.StoreID(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %w", ErrIdentifierLookupFailed, err)
	}
	if storeID <= 0 {
		return Resolution{}, fmt.Errorf("%w: invalid store id %d", ErrIdentifierLookupFailed, storeID)
	}

	res.Key = BuildCanonicalKey(storeID, product.ID, sel, product.Attributes)
	for i := range product.Variants {
		if product.Variants[i].SKU == res.Key {
			v := product.Variants[i]
			res.Status = StatusValid
			res.Variant = &v
			return res, nil
		}
	}
	res.Status = StatusUnavailable
	return res, nil
}
