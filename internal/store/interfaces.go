package store

import (
	"context"

	"storefront-variant-service/internal/domain"
)

// ProductReader loads catalog products with their attributes and variants.
type ProductReader interface {
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
}

// VariantStorer defines the database operations for product variants.
// Reads and writes are scoped by the caller; the store does not check tenancy.
type VariantStorer interface {
	GetVariantByID(ctx context.Context, id int64) (*domain.Variant, error)
	CreateVariant(ctx context.Context, v *domain.Variant) (*domain.Variant, error)
	UpdateVariantStock(ctx context.Context, variantID int64, quantityChange int32) (*domain.Variant, error)
}
