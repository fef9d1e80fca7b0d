package http

import (
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ProductResponse renders money as a fixed two decimal string, as do the
// other responses here.
type ProductResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Detail      string            `json:"detail"`
	ImageURL    string            `json:"image_url"`
	Price       string            `json:"price"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category"`
	Nutrition   []domain.Nutrient `json:"nutrition,omitempty"`
	Review      int               `json:"review"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

type ListingResponse struct {
	Category     string            `json:"category"`
	Products     []ProductResponse `json:"products"`
	Filtered     bool              `json:"filtered"`
	EmptyMessage string            `json:"empty_message,omitempty"`
}

type PriceBandResponse struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Min   string `json:"min"`
	Max   string `json:"max,omitempty"`
}

type CartItemResponse struct {
	ProductID int64     `json:"product_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	Portion   string    `json:"portion"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
	AddedAt   time.Time `json:"added_at"`
}

type CartResponse struct {
	Items      []CartItemResponse `json:"items"`
	TotalPrice string             `json:"total_price"`
	TotalItems int                `json:"total_items"`
}

type OrderItemResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Portion     string `json:"portion"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"total_amount"`
	TotalItems  int                 `json:"total_items"`
	Currency    string              `json:"currency"`
	Items       []OrderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
}

type OrdersResponse struct {
	Orders []OrderResponse `json:"orders"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Detail:      p.Detail,
		ImageURL:    p.ImageURL,
		Price:       p.Price.StringFixed(2),
		Description: p.Description,
		Category:    p.Category,
		Nutrition:   p.Nutrition,
		Review:      p.Review,
	}
}

func toProductResponses(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	return out
}

func toCartItemResponse(it domain.LineItem) CartItemResponse {
	return CartItemResponse{
		ProductID: it.Product.ID,
		Name:      it.Product.Name,
		ImageURL:  it.Product.ImageURL,
		Portion:   it.Portion,
		Quantity:  it.Quantity,
		UnitPrice: it.Product.Price.StringFixed(2),
		LineTotal: it.LineTotal.StringFixed(2),
		AddedAt:   it.AddedAt,
	}
}

func toCartResponse(c domain.Cart) CartResponse {
	items := make([]CartItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = toCartItemResponse(it)
	}
	return CartResponse{
		Items:      items,
		TotalPrice: c.TotalPrice.StringFixed(2),
		TotalItems: c.TotalItems,
	}
}

func toPriceBandResponses(bands []domain.PriceBand) []PriceBandResponse {
	out := make([]PriceBandResponse, len(bands))
	for i, b := range bands {
		out[i] = PriceBandResponse{
			ID:    int(b.ID),
			Label: b.Label,
			Min:   b.Range.Min.StringFixed(2),
		}
		if !b.Range.Unbounded {
			out[i].Max = b.Range.Max.StringFixed(2)
		}
	}
	return out
}

func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Portion:     it.Portion,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Subtotal:    it.Subtotal.StringFixed(2),
		}
	}
	return OrderResponse{
		ID:          o.ID.String(),
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		TotalItems:  o.TotalItems,
		Currency:    o.Currency,
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
}
