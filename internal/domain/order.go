package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "CONFIRMED"

	DefaultCurrency = "USD"
)

type OrderItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Portion     string          `json:"portion"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalItems  int             `json:"total_items"`
	Currency    string          `json:"currency"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewOrder snapshots a materialized cart.
func NewOrder(cart Cart, now time.Time) *Order {
	items := make([]OrderItem, len(cart.Items))
	for i, it := range cart.Items {
		items[i] = OrderItem{
			ProductID:   it.Product.ID,
			ProductName: it.Product.Name,
			Portion:     it.Portion,
			Quantity:    it.Quantity,
			UnitPrice:   it.Product.Price,
			Subtotal:    it.LineTotal,
		}
	}
	return &Order{
		ID:          uuid.New(),
		Items:       items,
		TotalAmount: cart.TotalPrice,
		TotalItems:  cart.TotalItems,
		Currency:    DefaultCurrency,
		Status:      OrderStatusConfirmed,
		CreatedAt:   now,
	}
}
