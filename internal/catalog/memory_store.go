package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/filter"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/search"
)

// MemoryStore implements Store with an insertion-ordered slice.
type MemoryStore struct {
	mu       sync.RWMutex
	products []domain.Product
	index    map[int64]int // productID -> position in products

	changes *notify.Broadcaster[[]domain.Product]
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		index:   make(map[int64]int),
		changes: notify.NewBroadcaster[[]domain.Product](),
	}
	s.changes.Publish([]domain.Product{})
	return s
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (domain.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Product{}, false, nil
	}
	return s.products[i], true, nil
}

func (s *MemoryStore) GetAll(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(), nil
}

func (s *MemoryStore) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range s.products {
		if _, dup := seen[p.Category]; dup {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out, nil
}

func (s *MemoryStore) GetByCategory(_ context.Context, category string) ([]domain.Product, error) {
	return s.where(func(p domain.Product) bool {
		return strings.EqualFold(p.Category, category)
	}), nil
}

func (s *MemoryStore) GetByCategoryAndPriceRange(_ context.Context, category string, r domain.PriceRange) ([]domain.Product, error) {
	return s.where(func(p domain.Product) bool {
		return strings.EqualFold(p.Category, category) && filter.InRange(p, r)
	}), nil
}

func (s *MemoryStore) GetByCategoryAndPortion(_ context.Context, category, portion string) ([]domain.Product, error) {
	return s.where(func(p domain.Product) bool {
		return strings.EqualFold(p.Category, category) && filter.HasPortion(p, portion)
	}), nil
}

func (s *MemoryStore) GetByCategoryPriceAndPortion(_ context.Context, category string, r domain.PriceRange, portion string) ([]domain.Product, error) {
	return s.where(func(p domain.Product) bool {
		return strings.EqualFold(p.Category, category) && filter.InRange(p, r) && filter.HasPortion(p, portion)
	}), nil
}

func (s *MemoryStore) Search(_ context.Context, query string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return search.Match(s.products, query), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, p domain.Product) error {
	return s.UpsertMany(ctx, []domain.Product{p})
}

// UpsertMany replaces products by id. A product keeps its original position
// when replaced; new products are appended.
func (s *MemoryStore) UpsertMany(_ context.Context, products []domain.Product) error {
	if err := domain.ValidateAll(products); err != nil {
		return err
	}

	s.mu.Lock()
	for _, p := range products {
		if i, ok := s.index[p.ID]; ok {
			s.products[i] = p
			continue
		}
		s.index[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	s.publishLocked()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return nil
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.products); j++ {
		s.index[s.products[j].ID] = j
	}
	s.publishLocked()
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, fn func([]domain.Product)) (func(), error) {
	return s.changes.Subscribe(fn), nil
}

// Close stops delivering snapshots to subscribers.
func (s *MemoryStore) Close() error {
	s.changes.Close()
	return nil
}

func (s *MemoryStore) where(pred func(domain.Product) bool) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0)
	for _, p := range s.products {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *MemoryStore) snapshot() []domain.Product {
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out
}

// publishLocked is called with s.mu held so snapshots are published in
// mutation order.
func (s *MemoryStore) publishLocked() {
	s.changes.Publish(s.snapshot())
}
