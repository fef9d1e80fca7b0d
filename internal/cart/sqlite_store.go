package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notify"
)

// SQLiteStore keeps cart lines next to the products table. Lines reference
// products with ON DELETE CASCADE, so the database must be shared with the
// catalog SQLiteStore.
type SQLiteStore struct {
	db  *sql.DB
	now Clock

	writeMu sync.Mutex
	changes *notify.Broadcaster[[]domain.CartLine]
}

func NewSQLiteStore(db *sql.DB, now Clock) *SQLiteStore {
	if now == nil {
		now = time.Now
	}
	return &SQLiteStore{
		db:      db,
		now:     now,
		changes: notify.NewBroadcaster[[]domain.CartLine](),
	}
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]domain.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, portion, added_at
		FROM cart_lines
		ORDER BY added_at DESC, product_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.CartLine, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

func (s *SQLiteStore) GetByProductID(ctx context.Context, productID int64) (domain.CartLine, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT product_id, quantity, portion, added_at
		FROM cart_lines
		WHERE product_id = $1
	`, productID)

	line, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartLine{}, false, nil
	}
	if err != nil {
		return domain.CartLine{}, false, err
	}
	return line, true, nil
}

func (s *SQLiteStore) Add(ctx context.Context, productID int64, quantity int, portion string) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	return s.mutate(ctx, "add cart line", `
		INSERT INTO cart_lines (product_id, quantity, portion, added_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id) DO UPDATE SET
			quantity = cart_lines.quantity + excluded.quantity,
			portion = excluded.portion,
			added_at = excluded.added_at
	`, productID, quantity, portion, s.now().UnixNano())
}

func (s *SQLiteStore) SetQuantity(ctx context.Context, productID int64, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	return s.mutate(ctx, "update cart line quantity",
		`UPDATE cart_lines SET quantity = $1 WHERE product_id = $2`, quantity, productID)
}

func (s *SQLiteStore) Remove(ctx context.Context, productID int64) error {
	return s.mutate(ctx, "remove cart line", `DELETE FROM cart_lines WHERE product_id = $1`, productID)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear cart", `DELETE FROM cart_lines`)
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_lines`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cart lines: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) TotalQuantity(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM cart_lines`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to sum cart quantities: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, fn func([]domain.CartLine)) (func(), error) {
	if !s.changes.Primed() {
		s.writeMu.Lock()
		err := s.refreshLocked(ctx)
		s.writeMu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return s.changes.Subscribe(fn), nil
}

func (s *SQLiteStore) Close() error {
	s.changes.Close()
	return nil
}

func (s *SQLiteStore) mutate(ctx context.Context, op, query string, args ...any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return s.refreshLocked(ctx)
}

func (s *SQLiteStore) refreshLocked(ctx context.Context) error {
	lines, err := s.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	s.changes.Publish(lines)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLine(row rowScanner) (domain.CartLine, error) {
	var (
		line    domain.CartLine
		addedAt int64
	)
	if err := row.Scan(&line.ProductID, &line.Quantity, &line.Portion, &addedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return line, err
		}
		return line, fmt.Errorf("failed to scan cart line: %w", err)
	}
	line.AddedAt = time.Unix(0, addedAt).UTC()
	return line, nil
}
