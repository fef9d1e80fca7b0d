package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/filter"
	"github.com/fjod/go_cart/storefront/internal/service"
	"go.uber.org/zap"
)

type CatalogUseCases interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	PriceBands() []domain.PriceBand
	Search(ctx context.Context, query string) ([]domain.Product, error)
	BrowseCategory(ctx context.Context, category string, c filter.Criteria) (service.Listing, error)
	RemoveProduct(ctx context.Context, id int64) error
}

type CatalogHandler struct {
	catalog CatalogUseCases
	timeout time.Duration
	logger  *zap.Logger
}

func NewCatalogHandler(catalog CatalogUseCases, timeout time.Duration, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
	}
}

// GET /api/v1/products?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: toProductResponses(products)})
}

// GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

// DELETE /api/v1/products/{id}
func (h *CatalogHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalog.RemoveProduct(ctx, id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cats, err := h.catalog.Categories(ctx)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

// GET /api/v1/price-bands
func (h *CatalogHandler) PriceBands(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]PriceBandResponse{
		"price_bands": toPriceBandResponses(h.catalog.PriceBands()),
	})
}

// GET /api/v1/categories/products?category=&band=&portion=
// portion may repeat; each value is one tag.
func (h *CatalogHandler) Browse(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	if category == "" {
		respondError(w, http.StatusBadRequest, "missing_category", "category is required")
		return
	}

	var criteria filter.Criteria
	if raw := q.Get("band"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_band", "band must be an integer")
			return
		}
		band, ok := domain.LookupPriceBand(domain.BandID(n))
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid_band", "unknown price band")
			return
		}
		criteria.PriceRange = &band.Range
	}
	for _, tag := range q["portion"] {
		if tag = strings.TrimSpace(tag); tag != "" {
			criteria.Portions = append(criteria.Portions, tag)
		}
	}

	l, err := h.catalog.BrowseCategory(ctx, category, criteria)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, ListingResponse{
		Category:     l.Category,
		Products:     toProductResponses(l.Products),
		Filtered:     l.Filtered,
		EmptyMessage: l.EmptyMessage,
	})
}
