package cart

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notify"
)

// MemoryStore implements Store with in-memory storage
type MemoryStore struct {
	mu    sync.RWMutex
	lines map[int64]domain.CartLine // productID -> line
	now   Clock

	changes *notify.Broadcaster[[]domain.CartLine]
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now Clock) *MemoryStore {
	s := &MemoryStore{
		lines:   make(map[int64]domain.CartLine),
		now:     now,
		changes: notify.NewBroadcaster[[]domain.CartLine](),
	}
	s.changes.Publish([]domain.CartLine{})
	return s
}

func (s *MemoryStore) GetAll(_ context.Context) ([]domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(), nil
}

func (s *MemoryStore) GetByProductID(_ context.Context, productID int64) (domain.CartLine, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	line, ok := s.lines[productID]
	return line, ok, nil
}

func (s *MemoryStore) Add(_ context.Context, productID int64, quantity int, portion string) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.lines[productID]; ok {
		quantity += existing.Quantity
	}
	s.lines[productID] = domain.CartLine{
		ProductID: productID,
		Quantity:  quantity,
		Portion:   portion,
		AddedAt:   s.now(),
	}
	s.publishLocked()
	return nil
}

func (s *MemoryStore) SetQuantity(_ context.Context, productID int64, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[productID]
	if !ok {
		return nil
	}
	line.Quantity = quantity
	s.lines[productID] = line
	s.publishLocked()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lines[productID]; !ok {
		return nil
	}
	delete(s.lines, productID)
	s.publishLocked()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = make(map[int64]domain.CartLine)
	s.publishLocked()
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines), nil
}

func (s *MemoryStore) TotalQuantity(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total, nil
}

func (s *MemoryStore) Subscribe(_ context.Context, fn func([]domain.CartLine)) (func(), error) {
	return s.changes.Subscribe(fn), nil
}

func (s *MemoryStore) Close() error {
	s.changes.Close()
	return nil
}

func (s *MemoryStore) snapshot() []domain.CartLine {
	out := make([]domain.CartLine, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, line)
	}
	SortLines(out)
	return out
}

func (s *MemoryStore) publishLocked() {
	s.changes.Publish(s.snapshot())
}
