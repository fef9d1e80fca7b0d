package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidProduct = errors.New("invalid product")

// Nutrient is one row of a product's nutrition table. The table is ordered,
// so products carry a slice rather than a map.
type Nutrient struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type Product struct {
	ID          int64           `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Detail      string          `json:"detail" yaml:"detail"`
	ImageURL    string          `json:"image_url" yaml:"image_url"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Description string          `json:"description" yaml:"description"`
	Category    string          `json:"category" yaml:"category"`
	Nutrition   []Nutrient      `json:"nutrition,omitempty" yaml:"nutrition"`
	Review      int             `json:"review" yaml:"review"`
}

// Validate reports whether p can be stored in the catalog.
func (p Product) Validate() error {
	switch {
	case p.ID <= 0:
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidProduct, p.ID)
	case p.Name == "":
		return fmt.Errorf("%w: product %d has no name", ErrInvalidProduct, p.ID)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: product %d has negative price %s", ErrInvalidProduct, p.ID, p.Price)
	case !p.Price.Equal(p.Price.Truncate(2)):
		// stores keep whole cents
		return fmt.Errorf("%w: product %d price %s has more than two decimal places", ErrInvalidProduct, p.ID, p.Price)
	case p.Review < 0 || p.Review > 5:
		return fmt.Errorf("%w: product %d review %d outside 0..5", ErrInvalidProduct, p.ID, p.Review)
	}
	return nil
}

// ValidateAll stops at the first invalid product.
func ValidateAll(products []Product) error {
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
