// Package http exposes the storefront over a JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

type Handlers struct {
	Cart     *CartHandler
	Catalog  *CatalogHandler
	Checkout *CheckoutHandler
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDHeader)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodyBytes(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Catalog.Search)
			r.Get("/{id}", h.Catalog.GetProduct)
			r.Delete("/{id}", h.Catalog.RemoveProduct)
		})
		r.Get("/categories", h.Catalog.Categories)
		r.Get("/categories/products", h.Catalog.Browse)
		r.Get("/price-bands", h.Catalog.PriceBands)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Get("/summary", h.Cart.Summary)
			r.Post("/items", h.Cart.AddItem)
			r.Get("/items/{product_id}", h.Cart.GetItem)
			r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})

		r.Post("/checkout", h.Checkout.Checkout)
		r.Get("/orders", h.Checkout.ListOrders)
		r.Get("/orders/{id}", h.Checkout.GetOrder)
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
