// Package search implements free-text product matching.
package search

import (
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Matches reports whether query is a case-insensitive substring of the
// product name, description or category. The empty query matches everything.
func Matches(p domain.Product, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}

// Match keeps the products matching query, preserving input order.
func Match(products []domain.Product, query string) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if Matches(p, query) {
			out = append(out, p)
		}
	}
	return out
}

// IsActive reports whether a query should narrow results at all. Callers
// show the full catalog for blank input.
func IsActive(query string) bool {
	return strings.TrimSpace(query) != ""
}
