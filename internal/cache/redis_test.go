package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, 15*time.Minute), mr
}

func testCart(userID int64) *domain.Cart {
	cart := &domain.Cart{
		ID:     1,
		UserID: userID,
		Lines: []domain.CartLine{
			{ID: 1, CartID: 1, ProductID: 10, Quantity: 2,
				PricePerUnit: domain.NewLivePrice(decimal.RequireFromString("10.00"))},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	cart.Lines[0].RecomputeTotal()
	cart.RecomputeTotal()
	return cart
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	cart := testCart(123)
	cartJSON, _ := json.Marshal(cart)
	mr.Set(cacheKey(123), string(cartJSON))

	result, err := cache.Get(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), result.UserID)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, int64(10), result.Lines[0].ProductID)
	assert.True(t, result.TotalPrice.Equal(cart.TotalPrice))
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	result, err := cache.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, mr.Set(cacheKey(123), `{"user_id":`))

	_, err := cache.Get(context.Background(), 123)
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestSet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	err := cache.Set(ctx, 456, testCart(456))
	require.NoError(t, err)

	stored, err := mr.Get(cacheKey(456))
	require.NoError(t, err)

	var storedCart domain.Cart
	require.NoError(t, json.Unmarshal([]byte(stored), &storedCart))
	assert.Equal(t, int64(456), storedCart.UserID)
	assert.Len(t, storedCart.Lines, 1)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	err := cache.Set(context.Background(), 789, testCart(789))
	require.NoError(t, err)

	// Base TTL plus up to a third of it in jitter.
	ttl := mr.TTL(cacheKey(789))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestDelete_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	cartJSON, _ := json.Marshal(testCart(999))
	mr.Set(cacheKey(999), string(cartJSON))
	assert.True(t, mr.Exists(cacheKey(999)))

	require.NoError(t, cache.Delete(ctx, 999))
	assert.False(t, mr.Exists(cacheKey(999)))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _ := setupTestRedis(t)

	assert.NoError(t, cache.Delete(context.Background(), 404))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:123", cacheKey(123))
}
