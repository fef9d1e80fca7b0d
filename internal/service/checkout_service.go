package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

type CheckoutService struct {
	view   CartMaterializer
	carts  *CartService
	orders orders.Repository
	events OrderEventPublisher
	logger *zap.Logger
	now    func() time.Time
}

func NewCheckoutService(view CartMaterializer, carts *CartService, repo orders.Repository, events OrderEventPublisher, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		view:   view,
		carts:  carts,
		orders: repo,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Checkout turns the current cart into a confirmed order and empties the
// cart. The cart is materialized directly so a cached copy is never billed.
func (s *CheckoutService) Checkout(ctx context.Context) (*domain.Order, error) {
	c, err := s.view.Materialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	order := domain.NewOrder(c, s.now())
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	// the order is recorded at this point; later failures are logged only
	log := logger.WithTrace(ctx, s.logger).With(zap.Stringer("order_id", order.ID))
	if err := s.carts.ClearCart(ctx); err != nil {
		log.Error("failed to clear cart after checkout", zap.Error(err))
	}
	if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
		log.Error("failed to publish order event", zap.Error(err))
	}

	log.Info("order placed",
		zap.Int("items", order.TotalItems), zap.String("total", order.TotalAmount.StringFixed(2)))
	return order, nil
}

func (s *CheckoutService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.GetOrderByID(ctx, id)
}

func (s *CheckoutService) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	return s.orders.ListOrders(ctx, limit)
}
