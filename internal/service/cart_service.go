package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/theAriful7/E-CommerceBackend/internal/cache"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
	"github.com/theAriful7/E-CommerceBackend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CartService owns the cart aggregate and its lines. Every mutation runs in
// one transaction that rewrites the affected line(s) and re-derives the cart
// total before commit, so a concurrent reader never sees a stale total.
// Cart mutation never touches stock; stock moves only at the order boundary.
type CartService struct {
	store  repository.Store
	cache  cache.CartCache
	logger *zap.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewCartService(store repository.Store, cartCache cache.CartCache, logger *zap.Logger) *CartService {
	return &CartService{
		store:  store,
		cache:  cartCache,
		logger: logger,
	}
}

// GetOrCreate returns the user's cart, creating an empty one if none exists.
func (s *CartService) GetOrCreate(ctx context.Context, userID int64) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Carts().GetByUserID(ctx, userID)
		if err == nil {
			cart = existing
			return nil
		}
		if !errors.Is(err, repository.ErrCartNotFound) {
			return err
		}
		if _, uerr := tx.Catalog().GetUser(ctx, userID); uerr != nil {
			return uerr
		}
		cart, err = tx.Carts().Create(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetByUser is the cached read path. A missing cart is served as an empty,
// unsaved one so the caller can render it without a create round-trip.
func (s *CartService) GetByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.Error(err)) // log cache error but continue
		}

		cart, errGet := s.store.Carts().GetByUserID(ctx, userID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{
				UserID:     userID,
				TotalPrice: decimal.Zero,
				CreatedAt:  now,
				UpdatedAt:  now,
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, userID, cart); errSet != nil {
				s.logger.Warn("cache set error", zap.Error(errSet))
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (s *CartService) GetByID(ctx context.Context, cartID int64) (*domain.Cart, error) {
	return s.store.Carts().GetByID(ctx, cartID)
}

func (s *CartService) List(ctx context.Context) ([]*domain.Cart, error) {
	return s.store.Carts().List(ctx)
}

// Delete removes the cart and cascades to its lines.
func (s *CartService) Delete(ctx context.Context, cartID int64) error {
	var userID int64
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		cart, err := tx.Carts().GetByID(ctx, cartID)
		if err != nil {
			return err
		}
		userID = cart.UserID
		return tx.Carts().Delete(ctx, cartID)
	})
	if err != nil {
		return err
	}
	s.invalidateCache(userID)
	return nil
}

// AddLine adds qty units of a product to the user's cart, creating the cart
// on first add. Re-adding a product merges into the existing line; the merged
// line keeps its original price snapshot, a new line snapshots the current
// catalog price.
func (s *CartService) AddLine(ctx context.Context, userID, productID int64, qty int) (*domain.Cart, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var out *domain.Cart
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		cart, err := tx.Carts().GetByUserID(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			if _, uerr := tx.Catalog().GetUser(ctx, userID); uerr != nil {
				return uerr
			}
			cart, err = tx.Carts().Create(ctx, userID)
		}
		if err != nil {
			return err
		}

		product, err := tx.Catalog().GetProduct(ctx, productID)
		if err != nil {
			return err
		}

		line, err := tx.Carts().GetLine(ctx, cart.ID, productID)
		switch {
		case err == nil:
			line.Quantity += qty
			line.RecomputeTotal()
			if e2 := tx.Carts().UpdateLine(ctx, line); e2 != nil {
				return e2
			}
		case errors.Is(err, repository.ErrCartLineNotFound):
			line = &domain.CartLine{
				CartID:       cart.ID,
				ProductID:    productID,
				ProductName:  product.Name,
				Quantity:     qty,
				PricePerUnit: domain.NewLivePrice(product.Price),
			}
			line.RecomputeTotal()
			if e2 := tx.Carts().InsertLine(ctx, line); e2 != nil {
				return e2
			}
		default:
			return err
		}

		out, err = recomputeCartTotal(ctx, tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return out, nil
}

// UpdateLineQuantity overwrites a line's quantity. A zero or negative
// quantity means "remove".
func (s *CartService) UpdateLineQuantity(ctx context.Context, lineID int64, qty int) (*domain.Cart, error) {
	var out *domain.Cart
	var userID int64
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		line, err := tx.Carts().GetLineByID(ctx, lineID)
		if err != nil {
			return err
		}

		if qty <= 0 {
			if e2 := tx.Carts().DeleteLine(ctx, lineID); e2 != nil {
				return e2
			}
		} else {
			line.Quantity = qty
			line.RecomputeTotal()
			if e2 := tx.Carts().UpdateLine(ctx, line); e2 != nil {
				return e2
			}
		}

		out, err = recomputeCartTotal(ctx, tx, line.CartID)
		if err != nil {
			return err
		}
		userID = out.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return out, nil
}

// RemoveLine deletes the line for (cart, product).
func (s *CartService) RemoveLine(ctx context.Context, cartID, productID int64) (*domain.Cart, error) {
	var out *domain.Cart
	var userID int64
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		line, err := tx.Carts().GetLine(ctx, cartID, productID)
		if err != nil {
			return err
		}
		if e2 := tx.Carts().DeleteLine(ctx, line.ID); e2 != nil {
			return e2
		}
		out, err = recomputeCartTotal(ctx, tx, cartID)
		if err != nil {
			return err
		}
		userID = out.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return out, nil
}

// RemoveLineByID deletes a line addressed directly by its id.
func (s *CartService) RemoveLineByID(ctx context.Context, lineID int64) (*domain.Cart, error) {
	var out *domain.Cart
	var userID int64
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		line, err := tx.Carts().GetLineByID(ctx, lineID)
		if err != nil {
			return err
		}
		if e2 := tx.Carts().DeleteLine(ctx, lineID); e2 != nil {
			return e2
		}
		out, err = recomputeCartTotal(ctx, tx, line.CartID)
		if err != nil {
			return err
		}
		userID = out.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return out, nil
}

// Clear removes every line from the cart. Clearing an already-empty cart is
// a no-op that still succeeds.
func (s *CartService) Clear(ctx context.Context, cartID int64) error {
	var userID int64
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		cart, err := tx.Carts().GetByID(ctx, cartID)
		if err != nil {
			return err
		}
		userID = cart.UserID
		if _, e2 := tx.Carts().DeleteLines(ctx, cartID); e2 != nil {
			return e2
		}
		return tx.Carts().UpdateTotal(ctx, cartID, decimal.Zero)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// CountUnits returns the total number of units across the cart's lines.
func (s *CartService) CountUnits(ctx context.Context, cartID int64) (int, error) {
	cart, err := s.store.Carts().GetByID(ctx, cartID)
	if err != nil {
		return 0, err
	}
	return cart.Units(), nil
}

// Subtotal sums the cart's line totals without mutating anything.
func (s *CartService) Subtotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	cart, err := s.store.Carts().GetByID(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range cart.Lines {
		total = total.Add(cart.Lines[i].TotalPrice)
	}
	return total, nil
}

// HasProduct reports whether the cart holds a line for productID.
func (s *CartService) HasProduct(ctx context.Context, cartID, productID int64) (bool, error) {
	_, err := s.store.Carts().GetLine(ctx, cartID, productID)
	if errors.Is(err, repository.ErrCartLineNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// recomputeCartTotal re-derives the cart total from its current lines and
// persists it, returning the refreshed cart.
func recomputeCartTotal(ctx context.Context, tx repository.Store, cartID int64) (*domain.Cart, error) {
	cart, err := tx.Carts().GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	cart.RecomputeTotal()
	if err := tx.Carts().UpdateTotal(ctx, cartID, cart.TotalPrice); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", zap.Int64("user_id", userID), zap.Error(err))
	}
}
