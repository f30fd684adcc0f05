package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
)

// BreakerCache wraps a CartCache with a circuit breaker so a struggling Redis
// cannot stall the read path: once the breaker opens, cache calls fail fast
// and callers fall through to the store.
type BreakerCache struct {
	inner CartCache
	cb    *gobreaker.CircuitBreaker[*domain.Cart]
}

func NewBreakerCache(inner CartCache) *BreakerCache {
	cb := gobreaker.NewCircuitBreaker[*domain.Cart](gobreaker.Settings{
		Name:    "cart-cache",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A miss is a normal outcome, not a Redis failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
	})
	return &BreakerCache{inner: inner, cb: cb}
}

func (b *BreakerCache) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	return b.cb.Execute(func() (*domain.Cart, error) {
		return b.inner.Get(ctx, userID)
	})
}

func (b *BreakerCache) Set(ctx context.Context, userID int64, cart *domain.Cart) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.inner.Set(ctx, userID, cart)
	})
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, userID int64) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.inner.Delete(ctx, userID)
	})
	return err
}
