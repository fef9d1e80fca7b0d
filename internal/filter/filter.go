// Package filter narrows product lists by price range and portion tags.
package filter

import (
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Criteria struct {
	PriceRange *domain.PriceRange
	Portions   []string
}

// ForBand builds criteria from a band id. Unknown ids yield no price range.
func ForBand(id domain.BandID, portions ...string) Criteria {
	c := Criteria{Portions: portions}
	if band, ok := domain.LookupPriceBand(id); ok {
		r := band.Range
		c.PriceRange = &r
	}
	return c
}

// IsEmpty reports whether no filter is selected. Callers use it to decide
// between the "empty category" and "nothing matches filters" messages.
func (c Criteria) IsEmpty() bool {
	return c.PriceRange == nil && len(c.Portions) == 0
}

func InRange(p domain.Product, r domain.PriceRange) bool {
	return r.Contains(p.Price)
}

// HasPortion reports whether tag is a case-insensitive substring of the
// product detail.
func HasPortion(p domain.Product, tag string) bool {
	return strings.Contains(strings.ToLower(p.Detail), strings.ToLower(tag))
}

// Apply filters products that were already narrowed to a category.
// With portion tags, each tag is matched independently and the results are
// unioned in tag order, keeping the first occurrence of each product.
//
// Apply is the in-memory reference form of a filtered browse. Stores answer
// the same criteria with their own queries, and CatalogService.BrowseCategory
// composes those queries with Union; the two must return the same products
// in the same order.
func Apply(products []domain.Product, c Criteria) []domain.Product {
	if c.IsEmpty() {
		return products
	}

	if len(c.Portions) == 0 {
		return keep(products, func(p domain.Product) bool { return InRange(p, *c.PriceRange) })
	}

	groups := make([][]domain.Product, 0, len(c.Portions))
	for _, tag := range c.Portions {
		groups = append(groups, keep(products, func(p domain.Product) bool {
			if c.PriceRange != nil && !InRange(p, *c.PriceRange) {
				return false
			}
			return HasPortion(p, tag)
		}))
	}
	return Union(groups...)
}

// Union concatenates groups and drops repeated product ids.
func Union(groups ...[]domain.Product) []domain.Product {
	seen := make(map[int64]struct{})
	out := make([]domain.Product, 0)
	for _, g := range groups {
		for _, p := range g {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func keep(products []domain.Product, pred func(domain.Product) bool) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}
