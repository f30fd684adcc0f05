package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
)

// flakyCache fails every call with err until it is cleared.
type flakyCache struct {
	err   error
	calls int
}

func (f *flakyCache) Get(context.Context, int64) (*domain.Cart, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Cart{UserID: 1}, nil
}

func (f *flakyCache) Set(context.Context, int64, *domain.Cart) error {
	f.calls++
	return f.err
}

func (f *flakyCache) Delete(context.Context, int64) error {
	f.calls++
	return f.err
}

func TestBreakerCache_PassesThroughWhenHealthy(t *testing.T) {
	inner := &flakyCache{}
	breaker := NewBreakerCache(inner)
	ctx := context.Background()

	cart, err := breaker.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cart.UserID)

	assert.NoError(t, breaker.Set(ctx, 1, cart))
	assert.NoError(t, breaker.Delete(ctx, 1))
}

func TestBreakerCache_MissDoesNotTrip(t *testing.T) {
	inner := &flakyCache{err: ErrCacheMiss}
	breaker := NewBreakerCache(inner)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := breaker.Get(ctx, 1)
		assert.ErrorIs(t, err, ErrCacheMiss)
	}
	// Every call reached the inner cache; the breaker never opened.
	assert.Equal(t, 20, inner.calls)
}

func TestBreakerCache_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyCache{err: errors.New("redis down")}
	breaker := NewBreakerCache(inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := breaker.Get(ctx, 1)
		require.Error(t, err)
	}

	_, err := breaker.Get(ctx, 1)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	// The open breaker short-circuits before the inner cache.
	assert.Equal(t, 5, inner.calls)
}
