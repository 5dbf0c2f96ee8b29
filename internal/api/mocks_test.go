package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"storefront-variant-service/internal/domain"
	"storefront-variant-service/internal/session"
	"storefront-variant-service/internal/store"
	"storefront-variant-service/internal/variant"
)

// MockProductReader is a mock implementation of store.ProductReader
type MockProductReader struct {
	mock.Mock
}

func (m *MockProductReader) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// MockVariantStorer is a mock implementation of store.VariantStorer
type MockVariantStorer struct {
	mock.Mock
}

func (m *MockVariantStorer) GetVariantByID(ctx context.Context, id int64) (*domain.Variant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *MockVariantStorer) CreateVariant(ctx context.Context, v *domain.Variant) (*domain.Variant, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

func (m *MockVariantStorer) UpdateVariantStock(ctx context.Context, variantID int64, quantityChange int32) (*domain.Variant, error) {
	args := m.Called(ctx, variantID, quantityChange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Variant), args.Error(1)
}

// fakeSessions resolves every request to the same store id, or fails.
type fakeSessions struct {
	storeID int64
	err     error
	calls   int
}

func (f *fakeSessions) Source(cookies []*http.Cookie) variant.StoreIDSource {
	return variant.StoreIDFunc(func(context.Context) (int64, error) {
		f.calls++
		if f.err != nil {
			return 0, f.err
		}
		return f.storeID, nil
	})
}

var _ store.VariantStorer = (*MockVariantStorer)(nil)

var errSessionDown = errors.New("dial tcp: connection refused")

var _ SessionSource = (*session.Client)(nil)

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, pr *MockProductReader, vs *MockVariantStorer, sessions SessionSource) *httptest.Server {
	handler := NewHTTPHandler(pr, vs, sessions)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// tshirt is product 42 of store 7 varying on Color (1) and Size (2).
func tshirt() *domain.Product {
	return &domain.Product{
		ID:      42,
		StoreID: 7,
		Name:    "T-Shirt",
		Attributes: []domain.Attribute{
			{ID: 1, Name: "Color", Values: []domain.AttributeValue{{ID: 10, Value: "Red"}, {ID: 11, Value: "Blue"}}},
			{ID: 2, Name: "Size", Values: []domain.AttributeValue{{ID: 20, Value: "S"}, {ID: 21, Value: "M"}}},
		},
		Variants: []domain.Variant{
			{ID: 100, ProductID: 42, SKU: "7|42|color-blue|size-s", Price: decimal.RequireFromString("19.99"), StockQuantity: 5, IsActive: true},
			{ID: 101, ProductID: 42, SKU: "7|42|color-red|size-s", Price: decimal.RequireFromString("19.99"), StockQuantity: 0, IsActive: true},
		},
	}
}
