package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/filter"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/search"
	"go.uber.org/zap"
)

const (
	MessageEmptyCategory = "No products in this category yet."
	MessageNoMatches     = "No products match the selected filters."
)

// Listing is one page of a category browse. EmptyMessage is set only when
// Products is empty and says whether filters caused it.
type Listing struct {
	Category     string           `json:"category"`
	Products     []domain.Product `json:"products"`
	Filtered     bool             `json:"filtered"`
	EmptyMessage string           `json:"empty_message,omitempty"`
}

type CatalogService struct {
	products catalog.Store
	carts    *CartService
	logger   *zap.Logger
}

func NewCatalogService(products catalog.Store, carts *CartService, logger *zap.Logger) *CatalogService {
	return &CatalogService{products: products, carts: carts, logger: logger}
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, ok, err := s.products.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return p, nil
}

// Categories returns the distinct labels sorted for display.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	sort.Strings(cats)
	return cats, nil
}

func (s *CatalogService) PriceBands() []domain.PriceBand {
	return domain.PriceBands()
}

// Search returns every product while the query is blank.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	var (
		out []domain.Product
		err error
	)
	if search.IsActive(query) {
		out, err = s.products.Search(ctx, query)
	} else {
		out, err = s.products.GetAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return nonNil(out), nil
}

// BrowseCategory lists a category narrowed by c. With portion tags each tag
// is queried on its own and the results are merged by product id in tag
// order.
func (s *CatalogService) BrowseCategory(ctx context.Context, category string, c filter.Criteria) (Listing, error) {
	products, err := s.query(ctx, category, c)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to browse category %q: %w", category, err)
	}

	l := Listing{Category: category, Products: nonNil(products), Filtered: !c.IsEmpty()}
	if len(l.Products) == 0 {
		if l.Filtered {
			l.EmptyMessage = MessageNoMatches
		} else {
			l.EmptyMessage = MessageEmptyCategory
		}
	}
	return l, nil
}

func (s *CatalogService) query(ctx context.Context, category string, c filter.Criteria) ([]domain.Product, error) {
	switch {
	case c.IsEmpty():
		return s.products.GetByCategory(ctx, category)
	case len(c.Portions) == 0:
		return s.products.GetByCategoryAndPriceRange(ctx, category, *c.PriceRange)
	}

	groups := make([][]domain.Product, 0, len(c.Portions))
	for _, tag := range c.Portions {
		var (
			matched []domain.Product
			err     error
		)
		if c.PriceRange == nil {
			matched, err = s.products.GetByCategoryAndPortion(ctx, category, tag)
		} else {
			matched, err = s.products.GetByCategoryPriceAndPortion(ctx, category, *c.PriceRange, tag)
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, matched)
	}
	return filter.Union(groups...), nil
}

// RemoveProduct deletes a product and its cart line.
func (s *CatalogService) RemoveProduct(ctx context.Context, id int64) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	if s.carts != nil {
		if err := s.carts.RemoveItem(ctx, id); err != nil {
			return fmt.Errorf("failed to drop cart line for product %d: %w", id, err)
		}
	}
	logger.WithTrace(ctx, s.logger).Info("product removed", zap.Int64("product_id", id))
	return nil
}

func nonNil(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}
