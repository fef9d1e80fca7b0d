package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is the stored form of one cart row.
type CartLine struct {
	ProductID int64     `json:"product_id" bson:"_id"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	Portion   string    `json:"portion" bson:"portion"`
	AddedAt   time.Time `json:"added_at" bson:"added_at"`
}

type LineItem struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	Portion   string          `json:"portion"`
	AddedAt   time.Time       `json:"added_at"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Cart is derived from cart lines and catalog products. It is never stored
// apart from its items; totals are computed by Join.
type Cart struct {
	Items      []LineItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalItems int             `json:"total_items"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ProductLookup resolves a product id against the catalog.
type ProductLookup func(id int64) (Product, bool)

// Join materializes lines in their given order. Lines whose product cannot be
// resolved are dropped and do not contribute to totals.
func Join(lines []CartLine, lookup ProductLookup) Cart {
	cart := Cart{Items: make([]LineItem, 0, len(lines)), TotalPrice: decimal.Zero}
	for _, line := range lines {
		product, ok := lookup(line.ProductID)
		if !ok {
			continue
		}
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		cart.Items = append(cart.Items, LineItem{
			Product:   product,
			Quantity:  line.Quantity,
			Portion:   line.Portion,
			AddedAt:   line.AddedAt,
			LineTotal: lineTotal,
		})
		cart.TotalPrice = cart.TotalPrice.Add(lineTotal)
		cart.TotalItems += line.Quantity
	}
	return cart
}

// LookupFrom indexes products by id.
func LookupFrom(products []Product) ProductLookup {
	byID := make(map[int64]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return func(id int64) (Product, bool) {
		p, ok := byID[id]
		return p, ok
	}
}
