package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/shopspring/decimal"
)

const selectProducts = `
	SELECT id, name, detail, image_url, price_cents, description, category, nutrition, review
	FROM products
`

const upsertProduct = `
	INSERT INTO products (id, name, detail, image_url, price_cents, description, category, nutrition, review, seq)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, (SELECT COALESCE(MAX(seq), 0) + 1 FROM products))
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		detail = excluded.detail,
		image_url = excluded.image_url,
		price_cents = excluded.price_cents,
		description = excluded.description,
		category = excluded.category,
		nutrition = excluded.nutrition,
		review = excluded.review
`

// SQLiteStore implements Store on the products table. Prices are stored as
// integer cents so range predicates run in SQL without rounding surprises.
type SQLiteStore struct {
	db *sql.DB

	// writeMu orders mutation+snapshot pairs so subscribers never see an
	// older snapshot after a newer one.
	writeMu sync.Mutex
	changes *notify.Broadcaster[[]domain.Product]
}

// NewSQLiteStore expects the schema from sqlitedb.RunMigrations.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:      db,
		changes: notify.NewBroadcaster[[]domain.Product](),
	}
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Product, bool, error) {
	products, err := s.query(ctx, selectProducts+` WHERE id = $1`, id)
	if err != nil {
		return domain.Product{}, false, err
	}
	if len(products) == 0 {
		return domain.Product{}, false, nil
	}
	return products[0], true, nil
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]domain.Product, error) {
	return s.query(ctx, selectProducts+` ORDER BY seq`)
}

func (s *SQLiteStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category FROM products GROUP BY category ORDER BY MIN(seq)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

func (s *SQLiteStore) GetByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return s.query(ctx, selectProducts+`
		WHERE category = $1 COLLATE NOCASE
		ORDER BY seq`, category)
}

func (s *SQLiteStore) GetByCategoryAndPriceRange(ctx context.Context, category string, r domain.PriceRange) ([]domain.Product, error) {
	min, max := rangeCents(r)
	return s.query(ctx, selectProducts+`
		WHERE category = $1 COLLATE NOCASE
		  AND price_cents >= $2 AND ($3 < 0 OR price_cents <= $3)
		ORDER BY seq`, category, min, max)
}

func (s *SQLiteStore) GetByCategoryAndPortion(ctx context.Context, category, portion string) ([]domain.Product, error) {
	if portion == "" {
		return s.GetByCategory(ctx, category)
	}
	return s.query(ctx, selectProducts+`
		WHERE category = $1 COLLATE NOCASE
		  AND instr(lower(detail), lower($2)) > 0
		ORDER BY seq`, category, portion)
}

func (s *SQLiteStore) GetByCategoryPriceAndPortion(ctx context.Context, category string, r domain.PriceRange, portion string) ([]domain.Product, error) {
	if portion == "" {
		return s.GetByCategoryAndPriceRange(ctx, category, r)
	}
	min, max := rangeCents(r)
	return s.query(ctx, selectProducts+`
		WHERE category = $1 COLLATE NOCASE
		  AND price_cents >= $2 AND ($3 < 0 OR price_cents <= $3)
		  AND instr(lower(detail), lower($4)) > 0
		ORDER BY seq`, category, min, max, portion)
}

func (s *SQLiteStore) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if query == "" {
		return s.GetAll(ctx)
	}
	return s.query(ctx, selectProducts+`
		WHERE instr(lower(name), lower($1)) > 0
		   OR instr(lower(description), lower($1)) > 0
		   OR instr(lower(category), lower($1)) > 0
		ORDER BY seq`, query)
}

func (s *SQLiteStore) Upsert(ctx context.Context, p domain.Product) error {
	return s.UpsertMany(ctx, []domain.Product{p})
}

// UpsertMany applies all products in one transaction.
func (s *SQLiteStore) UpsertMany(ctx context.Context, products []domain.Product) error {
	if err := domain.ValidateAll(products); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertProduct)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		nutrition, err := json.Marshal(p.Nutrition)
		if err != nil {
			return fmt.Errorf("failed to marshal nutrition for product %d: %w", p.ID, err)
		}
		if p.Nutrition == nil {
			nutrition = []byte("[]")
		}
		_, err = stmt.ExecContext(ctx,
			p.ID,
			p.Name,
			p.Detail,
			p.ImageURL,
			toCents(p.Price),
			p.Description,
			p.Category,
			string(nutrition),
			p.Review,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert product %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	return s.refreshLocked(ctx)
}

// Delete removes a product. Cart lines referencing it are removed by the
// foreign key cascade.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return s.refreshLocked(ctx)
}

func (s *SQLiteStore) Subscribe(ctx context.Context, fn func([]domain.Product)) (func(), error) {
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

// Close stops subscriber delivery. The database handle is owned by the caller.
func (s *SQLiteStore) Close() error {
	s.changes.Close()
	return nil
}

func (s *SQLiteStore) refreshLocked(ctx context.Context) error {
	products, err := s.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog snapshot: %w", err)
	}
	s.changes.Publish(products)
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p         domain.Product
			cents     int64
			nutrition string
		)
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Detail,
			&p.ImageURL,
			&cents,
			&p.Description,
			&p.Category,
			&nutrition,
			&p.Review,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.Price = decimal.New(cents, -2)
		if err := json.Unmarshal([]byte(nutrition), &p.Nutrition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal nutrition for product %d: %w", p.ID, err)
		}
		if len(p.Nutrition) == 0 {
			p.Nutrition = nil
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// rangeCents converts an inclusive price range to cents. An unbounded range
// reports max = -1.
func rangeCents(r domain.PriceRange) (int64, int64) {
	min := r.Min.Shift(2).Ceil().IntPart()
	if r.Unbounded {
		return min, -1
	}
	return min, r.Max.Shift(2).Floor().IntPart()
}
