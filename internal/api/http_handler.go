package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"storefront-variant-service/internal/domain"
	"storefront-variant-service/internal/session"
	"storefront-variant-service/internal/store"
	"storefront-variant-service/internal/variant"
)

// SessionSource yields the store identifier source for a shopper's cookies.
// *session.Client satisfies it.
type SessionSource interface {
	Source(cookies []*http.Cookie) variant.StoreIDSource
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	products store.ProductReader
	variants store.VariantStorer
	sessions SessionSource
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(pr store.ProductReader, vs store.VariantStorer, sessions SessionSource) *HTTPHandler {
	return &HTTPHandler{
		products: pr,
		variants: vs,
		sessions: sessions,
		validate: validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
		}
	}
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// respondWithLookupError maps a failed store identifier lookup to a status.
func respondWithLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnauthenticated):
		respondWithError(w, http.StatusUnauthorized, "Session is not authenticated")
	case errors.Is(err, session.ErrNoStore):
		respondWithError(w, http.StatusForbidden, "Session is not bound to a store")
	default:
		respondWithError(w, http.StatusBadGateway, "Could not determine the current store")
	}
}

func (h *HTTPHandler) respondWithProductError(w http.ResponseWriter, productID int64, err error) {
	log.Printf("ERROR: GetProductByID store operation for ID %d failed: %v", productID, err)
	if errors.Is(err, store.ErrProductNotFound) {
		respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		return
	}
	respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
}

// loadProductAndStore fetches the product and the caller's store id
// concurrently. The first failure cancels the other lookup.
func (h *HTTPHandler) loadProductAndStore(ctx context.Context, productID int64, src variant.StoreIDSource) (*domain.Product, int64, error) {
	var (
		product *domain.Product
		storeID int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := h.products.GetProductByID(gctx, productID)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	g.Go(func() error {
		id, err := src.StoreID(gctx)
		if err != nil {
			return fmt.Errorf("%w: %w", variant.ErrIdentifierLookupFailed, err)
		}
		if id <= 0 {
			return fmt.Errorf("%w: invalid store id %d", variant.ErrIdentifierLookupFailed, id)
		}
		storeID = id
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return product, storeID, nil
}

func (h *HTTPHandler) respondWithLoadError(w http.ResponseWriter, productID int64, err error) {
	if errors.Is(err, variant.ErrIdentifierLookupFailed) {
		log.Printf("WARN: Store identifier lookup failed for product %d: %v", productID, err)
		respondWithLookupError(w, err)
		return
	}
	h.respondWithProductError(w, productID, err)
}

// loadOwnedProduct loads a product for a dashboard route and checks it
// belongs to the caller's store. It writes the error response itself and
// reports whether the handler should continue.
func (h *HTTPHandler) loadOwnedProduct(w http.ResponseWriter, r *http.Request, productID int64) (*domain.Product, int64, bool) {
	product, storeID, err := h.loadProductAndStore(r.Context(), productID, h.sessions.Source(r.Cookies()))
	if err != nil {
		h.respondWithLoadError(w, productID, err)
		return nil, 0, false
	}
	if product.StoreID != storeID {
		log.Printf("WARN: Store %d denied access to product %d of store %d", storeID, productID, product.StoreID)
		respondWithError(w, http.StatusForbidden, "Product belongs to another store")
		return nil, 0, false
	}
	return product, storeID, true
}

// --- Product Handlers ---

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, err := h.products.GetProductByID(r.Context(), productID)
	if err != nil {
		h.respondWithProductError(w, productID, err)
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

// --- Variant Resolution ---

// ResolveVariantInput is a shopper's in-progress selection.
type ResolveVariantInput struct {
	Selection []domain.Choice `json:"selection" validate:"dive"`
}

// ResolveVariantResponse reports what a selection resolved to.
type ResolveVariantResponse struct {
	Status      string          `json:"status"`
	Selection   []domain.Choice `json:"selection"`
	Selected    int             `json:"selected"`
	Required    int             `json:"required"`
	Key         string          `json:"key,omitempty"`
	Variant     *domain.Variant `json:"variant,omitempty"`
	Purchasable bool            `json:"purchasable"`
	Message     string          `json:"message"`
}

func newResolveVariantResponse(sel domain.Selection, res variant.Resolution) ResolveVariantResponse {
	out := ResolveVariantResponse{
		Status:    res.Status.String(),
		Selection: sel.Choices(),
		Selected:  res.Selected,
		Required:  res.Required,
		Key:       res.Key,
		Variant:   res.Variant,
	}
	switch res.Status {
	case variant.StatusIncomplete:
		out.Message = fmt.Sprintf("Select %d more option(s)", res.Required-res.Selected)
	case variant.StatusUnavailable:
		out.Message = "This combination is unavailable"
	case variant.StatusValid:
		switch {
		case !res.Variant.IsActive:
			out.Message = "This combination is unavailable"
		case res.Variant.StockQuantity <= 0:
			out.Message = "Out of stock"
		default:
			out.Purchasable = true
			out.Message = "In stock"
		}
	}
	return out
}

func (h *HTTPHandler) ResolveVariant(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input ResolveVariantInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	product, err := h.products.GetProductByID(r.Context(), productID)
	if err != nil {
		h.respondWithProductError(w, productID, err)
		return
	}

	sel := domain.NewSelection(input.Selection...)
	res, err := variant.Resolve(r.Context(), h.sessions.Source(r.Cookies()), product, sel)
	if err != nil {
		log.Printf("WARN: ResolveVariant for product %d failed: %v", productID, err)
		respondWithLookupError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, newResolveVariantResponse(sel, res))
}

// --- Variant Admin Handlers ---

func (h *HTTPHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, _, ok := h.loadOwnedProduct(w, r, productID)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": product.Variants})
}

// VariantCreateInput defines the expected input for creating a variant.
// The SKU is never taken from the client; it is derived from the selection.
type VariantCreateInput struct {
	Selection     []domain.Choice `json:"selection" validate:"dive"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int32           `json:"stock_quantity" validate:"gte=0"`
	IsActive      *bool           `json:"is_active"` // Pointer to distinguish between not set and false
}

func (h *HTTPHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	var input VariantCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if input.Price.IsNegative() {
		respondWithError(w, http.StatusBadRequest, "Validation failed: price must not be negative")
		return
	}

	product, storeID, ok := h.loadOwnedProduct(w, r, productID)
	if !ok {
		return
	}

	sel := domain.NewSelection(input.Selection...)
	selected := variant.SelectedCount(sel, product.Attributes)
	if selected != len(sel) {
		respondWithError(w, http.StatusBadRequest, "Selection references an unknown attribute or value")
		return
	}
	if required := variant.RequiredCount(product.Attributes); selected < required {
		respondWithError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Selection is incomplete: %d of %d attributes chosen", selected, required))
		return
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	v := &domain.Variant{
		ProductID:     product.ID,
		SKU:           variant.BuildCanonicalKey(storeID, product.ID, sel, product.Attributes),
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		IsActive:      isActive,
	}

	created, err := h.variants.CreateVariant(r.Context(), v)
	if err != nil {
		log.Printf("ERROR: CreateVariant store operation for product %d failed: %v", productID, err)
		switch {
		case errors.Is(err, store.ErrVariantKeyExists):
			respondWithError(w, http.StatusConflict, store.ErrVariantKeyExists.Error())
		case errors.Is(err, store.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to create variant")
		}
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// CombinationResponse is one enumerated combination and the variant
// declared for it, if any.
type CombinationResponse struct {
	variant.Combination
	VariantID *int64 `json:"variant_id,omitempty"`
}

func (h *HTTPHandler) ListCombinations(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(r, "productId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	product, storeID, ok := h.loadOwnedProduct(w, r, productID)
	if !ok {
		return
	}

	combos, err := variant.Combinations(storeID, product.ID, product.Attributes)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	byKey := make(map[string]int64, len(product.Variants))
	for _, v := range product.Variants {
		byKey[v.SKU] = v.ID
	}
	data := make([]CombinationResponse, len(combos))
	for i, c := range combos {
		data[i] = CombinationResponse{Combination: c}
		if id, ok := byKey[c.Key]; ok {
			data[i].VariantID = &id
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// VariantStockInput carries a stock delta.
type VariantStockInput struct {
	QuantityChange int32 `json:"quantity_change" validate:"required"`
}

func (h *HTTPHandler) UpdateVariantStock(w http.ResponseWriter, r *http.Request) {
	variantID, ok := parseIDParam(r, "variantId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid variant ID format")
		return
	}

	var input VariantStockInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	current, err := h.variants.GetVariantByID(r.Context(), variantID)
	if err != nil {
		log.Printf("ERROR: GetVariantByID store operation for ID %d failed: %v", variantID, err)
		if errors.Is(err, store.ErrVariantNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrVariantNotFound.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve variant")
		return
	}
	if _, _, ok := h.loadOwnedProduct(w, r, current.ProductID); !ok {
		return
	}

	updated, err := h.variants.UpdateVariantStock(r.Context(), variantID, input.QuantityChange)
	if err != nil {
		log.Printf("ERROR: UpdateVariantStock store operation for ID %d failed: %v", variantID, err)
		switch {
		case errors.Is(err, store.ErrVariantNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrVariantNotFound.Error())
		case errors.Is(err, store.ErrInsufficientStock):
			respondWithError(w, http.StatusConflict, store.ErrInsufficientStock.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update stock")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/products/{productId}", func(r chi.Router) {
		r.Get("/", h.GetProductByID)
		r.Route("/variants", func(r chi.Router) {
			r.Get("/", h.ListVariants)
			r.Post("/", h.CreateVariant)
			r.Post("/resolve", h.ResolveVariant)
			r.Get("/combinations", h.ListCombinations)
		})
	})

	r.Patch("/api/v1/variants/{variantId}/stock", h.UpdateVariantStock)
}
