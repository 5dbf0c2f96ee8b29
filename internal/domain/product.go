package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog product together with the attributes it varies
// on and the variants the store owner has declared for it.
type Product struct {
	ID          int64       `json:"id"`
	StoreID     int64       `json:"store_id"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"` // Pointer for nullable fields
	IsActive    bool        `json:"is_active"`
	Attributes  []Attribute `json:"attributes"`
	Variants    []Variant   `json:"variants"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Attribute is a dimension a product varies on, e.g. "Color" or "Size".
// Values are kept in the order the store owner declared them.
type Attribute struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name"`
	Values []AttributeValue `json:"values"`
}

// AttributeValue is one permitted value of an Attribute.
type AttributeValue struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

// Variant is a purchasable combination of attribute values. SKU holds the
// canonical key the combination resolves to.
type Variant struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"product_id"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int32           `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Value returns the attribute value with the given id.
func (a Attribute) Value(id int64) (AttributeValue, bool) {
	for _, v := range a.Values {
		if v.ID == id {
			return v, true
		}
	}
	return AttributeValue{}, false
}

// IsVariable reports whether the attribute participates in variation.
func (a Attribute) IsVariable() bool {
	return len(a.Values) > 0
}
