package service

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*CatalogService, *fixture) {
	f := newFixture(t)
	return NewCatalogService(f.svc.TrackCatalog(f.products), f.svc, discardLogger()), f
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestBrowseCategory_NoFilters(t *testing.T) {
	s, _ := newCatalog(t)
	ctx := context.Background()

	l, err := s.BrowseCategory(ctx, "fruits", filter.Criteria{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 4}, ids(l.Products))
	assert.False(t, l.Filtered)
	assert.Empty(t, l.EmptyMessage)

	l, err = s.BrowseCategory(ctx, "Dairy", filter.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, l.Products)
	assert.NotNil(t, l.Products)
	assert.Equal(t, MessageEmptyCategory, l.EmptyMessage)
}

func TestBrowseCategory_PriceOnly(t *testing.T) {
	s, _ := newCatalog(t)

	// band 3 is $4-$6
	l, err := s.BrowseCategory(context.Background(), "Fruits", filter.ForBand(3))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(l.Products))
	assert.True(t, l.Filtered)
}

func TestBrowseCategory_NoMatchesMessage(t *testing.T) {
	s, _ := newCatalog(t)

	// only a $1.00 carrot lives in Vegetables; band 5 is $8-$10
	l, err := s.BrowseCategory(context.Background(), "Vegetables", filter.ForBand(5))
	require.NoError(t, err)
	assert.Empty(t, l.Products)
	assert.Equal(t, MessageNoMatches, l.EmptyMessage)
}

func TestBrowseCategory_PortionUnionDedup(t *testing.T) {
	s, _ := newCatalog(t)

	l, err := s.BrowseCategory(context.Background(), "Fruits", filter.Criteria{Portions: []string{"500g", "1kg"}})
	require.NoError(t, err)
	// tag order first: 500g matches 2 and 4, then 1kg adds 1
	assert.Equal(t, []int64{2, 4, 1}, ids(l.Products))
}

func TestBrowseCategory_PriceAndPortion(t *testing.T) {
	s, _ := newCatalog(t)

	// band 5 ($8-$10) keeps only the nuts, which match both tags
	l, err := s.BrowseCategory(context.Background(), "FRUITS", filter.ForBand(5, "1KG", "500g"))
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(l.Products))
}

func TestBrowseCategory_MatchesPureFilter(t *testing.T) {
	s, f := newCatalog(t)
	ctx := context.Background()
	all, err := f.products.GetByCategory(ctx, "Fruits")
	require.NoError(t, err)

	criteria := []filter.Criteria{
		{},
		filter.ForBand(3),
		{Portions: []string{"500g", "1kg"}},
		filter.ForBand(5, "1kg", "500g"),
	}
	for _, c := range criteria {
		l, err := s.BrowseCategory(ctx, "Fruits", c)
		require.NoError(t, err)
		assert.Equal(t, ids(filter.Apply(all, c)), ids(l.Products))
	}
}

func TestSearch(t *testing.T) {
	s, _ := newCatalog(t)
	ctx := context.Background()

	all, err := s.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Len(t, all, len(testProducts()))

	got, err := s.Search(ctx, "APP")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(got))

	got, err = s.Search(ctx, "vegetables")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(got))

	got, err = s.Search(ctx, "smoothie")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestGetProduct(t *testing.T) {
	s, _ := newCatalog(t)
	ctx := context.Background()

	p, err := s.GetProduct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Banana", p.Name)

	_, err = s.GetProduct(ctx, 404)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCategoriesSorted(t *testing.T) {
	s, _ := newCatalog(t)

	cats, err := s.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Fruits", "Vegetables"}, cats)
}

func TestPriceBands(t *testing.T) {
	s, _ := newCatalog(t)

	bands := s.PriceBands()
	require.Len(t, bands, 8)
	assert.Equal(t, domain.BandID(1), bands[0].ID)
	assert.True(t, bands[7].Range.Unbounded)
}

func TestRemoveProduct_DropsCartLine(t *testing.T) {
	s, f := newCatalog(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddToCart(ctx, 1, 1, ""))
	require.NoError(t, f.svc.AddToCart(ctx, 2, 1, ""))

	require.NoError(t, s.RemoveProduct(ctx, 1))

	_, err := s.GetProduct(ctx, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	in, err := f.svc.IsInCart(ctx, 1)
	require.NoError(t, err)
	assert.False(t, in)

	assert.ErrorIs(t, s.RemoveProduct(ctx, 1), ErrProductNotFound)
}
