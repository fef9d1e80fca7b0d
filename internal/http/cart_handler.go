package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"go.uber.org/zap"
)

const maxQuantity = 99

type CartUseCases interface {
	GetCart(ctx context.Context) (domain.Cart, error)
	GetItem(ctx context.Context, productID int64) (domain.LineItem, bool, error)
	AddToCart(ctx context.Context, productID int64, quantity int, portion string) error
	UpdateQuantity(ctx context.Context, productID int64, quantity int) error
	RemoveItem(ctx context.Context, productID int64) error
	ClearCart(ctx context.Context) error
	Summary(ctx context.Context) (service.CartSummary, error)
}

type CartHandler struct {
	cart    CartUseCases
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(cart CartUseCases, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Portion   string `json:"portion"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.respondCart(ctx, w, r, http.StatusOK)
}

// GET /api/v1/cart/summary
func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.cart.Summary(ctx)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// GET /api/v1/cart/items/{product_id}
func (h *CartHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r, "product_id")
	if !ok {
		return
	}

	item, found, err := h.cart.GetItem(ctx, productID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "not_in_cart", "product is not in the cart")
		return
	}
	respondJSON(w, http.StatusOK, toCartItemResponse(item))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	if err := h.cart.AddToCart(ctx, req.ProductID, req.Quantity, req.Portion); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusCreated)
}

// PUT /api/v1/cart/items/{product_id}
// A quantity of 0 removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r, "product_id")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	if err := h.cart.UpdateQuantity(ctx, productID, req.Quantity); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r, "product_id")
	if !ok {
		return
	}

	if err := h.cart.RemoveItem(ctx, productID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.cart.ClearCart(ctx); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.respondCart(ctx, w, r, http.StatusOK)
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, r *http.Request, status int) {
	c, err := h.cart.GetCart(ctx)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, status, toCartResponse(c))
}
