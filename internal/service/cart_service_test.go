package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theAriful7/E-CommerceBackend/internal/cache"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
	"github.com/theAriful7/E-CommerceBackend/internal/memstore"
	"github.com/theAriful7/E-CommerceBackend/internal/repository"
	"go.uber.org/zap"
)

// noopCache always misses; cart reads fall through to the store.
type noopCache struct{}

func (noopCache) Get(context.Context, int64) (*domain.Cart, error) { return nil, cache.ErrCacheMiss }
func (noopCache) Set(context.Context, int64, *domain.Cart) error   { return nil }
func (noopCache) Delete(context.Context, int64) error              { return nil }

func seedStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.NewStore()
	store.SetUser(domain.User{ID: 1, FullName: "Alice"})
	store.AddAddress(1)
	store.SetProduct(domain.Product{ID: 10, Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Stock: 100})
	store.SetProduct(domain.Product{ID: 20, Name: "Mouse", Price: decimal.RequireFromString("25.00"), Stock: 5})
	return store
}

func newCartService(t *testing.T) (*CartService, *memstore.Store) {
	t.Helper()
	store := seedStore(t)
	return NewCartService(store, noopCache{}, zap.NewNop()), store
}

// sumOfLines asserts the invariant that the stored cart total always equals
// the sum of its line totals.
func sumOfLines(t *testing.T, cart *domain.Cart) {
	t.Helper()
	total := decimal.Zero
	for i := range cart.Lines {
		total = total.Add(cart.Lines[i].TotalPrice)
	}
	assert.True(t, cart.TotalPrice.Equal(total),
		"cart total %s != sum of lines %s", cart.TotalPrice, total)
}

func TestCartService_GetOrCreate(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.NotZero(t, cart.ID)
	assert.True(t, cart.TotalPrice.IsZero())

	// Second call returns the same cart instead of creating another.
	again, err := svc.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestCartService_GetOrCreate_UnknownUser(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.GetOrCreate(context.Background(), 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestCartService_AddLine_CreatesCartOnFirstAdd(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.AddLine(ctx, 1, 10, 2)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("20.00")),
		"got %s", cart.TotalPrice)
	sumOfLines(t, cart)
}

func TestCartService_AddLine_MergesSameProduct(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, 1, 10, 2)
	require.NoError(t, err)
	cart, err := svc.AddLine(ctx, 1, 10, 3)
	require.NoError(t, err)

	// One line with the merged quantity, not two lines.
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("50.00")),
		"got %s", cart.TotalPrice)
	sumOfLines(t, cart)
}

func TestCartService_AddLine_KeepsOriginalPriceOnMerge(t *testing.T) {
	svc, store := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, 1, 10, 1)
	require.NoError(t, err)

	// Catalog price moves; the merged line keeps its snapshot.
	store.SetProduct(domain.Product{ID: 10, Name: "Keyboard", Price: decimal.RequireFromString("99.00"), Stock: 100})

	cart, err := svc.AddLine(ctx, 1, 10, 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].PricePerUnit.Equal(decimal.RequireFromString("10.00")),
		"got %s", cart.Lines[0].PricePerUnit)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("20.00")))
}

func TestCartService_AddLine_InvalidQuantity(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddLine(context.Background(), 1, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AddLine(context.Background(), 1, 10, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_AddLine_UnknownProduct(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.AddLine(context.Background(), 1, 999, 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestCartService_AddLine_DoesNotTouchStock(t *testing.T) {
	svc, store := newCartService(t)

	_, err := svc.AddLine(context.Background(), 1, 20, 50) // way over the 5 in stock
	require.NoError(t, err)
	assert.Equal(t, 5, store.ProductStock(20))
}

func TestCartService_UpdateLineQuantity(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.AddLine(ctx, 1, 10, 2)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	cart, err = svc.UpdateLineQuantity(ctx, lineID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Lines[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("70.00")))
	sumOfLines(t, cart)
}

func TestCartService_UpdateLineQuantity_ZeroRemovesLine(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.AddLine(ctx, 1, 10, 2)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	cart, err = svc.UpdateLineQuantity(ctx, lineID, 0)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.True(t, cart.TotalPrice.IsZero())
}

func TestCartService_UpdateLineQuantity_NotFound(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.UpdateLineQuantity(context.Background(), 999, 1)
	assert.ErrorIs(t, err, repository.ErrCartLineNotFound)
}

func TestCartService_RemoveLine(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.AddLine(ctx, 1, 10, 2)
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, 1, 20, 1)
	require.NoError(t, err)

	cart, err = svc.RemoveLine(ctx, cart.ID, 10)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(20), cart.Lines[0].ProductID)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("25.00")))
	sumOfLines(t, cart)

	_, err = svc.RemoveLine(ctx, cart.ID, 10)
	assert.ErrorIs(t, err, repository.ErrCartLineNotFound)
}

func TestCartService_Clear_Idempotent(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.AddLine(ctx, 1, 10, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, cart.ID))
	got, err := svc.GetByID(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Lines)
	assert.True(t, got.TotalPrice.IsZero())

	// Clearing an already-empty cart still succeeds.
	require.NoError(t, svc.Clear(ctx, cart.ID))
}

func TestCartService_CountUnitsAndSubtotal(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.AddLine(ctx, 1, 10, 2)
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, 1, 20, 3)
	require.NoError(t, err)

	units, err := svc.CountUnits(ctx, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, units)

	subtotal, err := svc.Subtotal(ctx, cart.ID)
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(decimal.RequireFromString("95.00")), "got %s", subtotal)
}

func TestCartService_HasProduct(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.AddLine(ctx, 1, 10, 1)
	require.NoError(t, err)

	has, err := svc.HasProduct(ctx, cart.ID, 10)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasProduct(ctx, cart.ID, 20)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCartService_GetByUser_MissingCartServedEmpty(t *testing.T) {
	svc, _ := newCartService(t)

	cart, err := svc.GetByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, cart.ID)
	assert.Empty(t, cart.Lines)
	assert.True(t, cart.TotalPrice.IsZero())
}

func TestCartService_Delete(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	cart, err := svc.AddLine(ctx, 1, 10, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, cart.ID))
	_, err = svc.GetByID(ctx, cart.ID)
	assert.ErrorIs(t, err, repository.ErrCartNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, cart.ID), repository.ErrCartNotFound)
}
