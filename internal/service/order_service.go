package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/theAriful7/E-CommerceBackend/internal/cache"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
	"github.com/theAriful7/E-CommerceBackend/internal/repository"
	"go.uber.org/zap"
)

// Outbox event types emitted by the order service.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// ItemInput is one requested (product, quantity) pair for explicit order creation.
type ItemInput struct {
	ProductID int64
	Quantity  int
}

// OrderService builds orders out of carts or explicit item lists and owns all
// post-creation line mutation. Every mutation is one transaction covering the
// stock move, the line change, and the re-derived order total; none of the
// three ever commits alone.
type OrderService struct {
	store  repository.Store
	cache  cache.CartCache
	logger *zap.Logger
}

func NewOrderService(store repository.Store, cartCache cache.CartCache, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:  store,
		cache:  cartCache,
		logger: logger,
	}
}

// Checkout converts the user's cart into a new PENDING order. The current
// catalog price is re-read and frozen per line (the cart snapshot may be
// stale), stock is reserved for every line, and the cart is emptied — all or
// nothing.
func (s *OrderService) Checkout(ctx context.Context, userID, addressID int64) (*domain.Order, error) {
	var created *domain.Order
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Catalog().GetUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Catalog().AddressExists(ctx, addressID); err != nil {
			return err
		}

		cart, err := tx.Carts().GetByUserID(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if len(cart.Lines) == 0 {
			return ErrEmptyCart
		}

		order := &domain.Order{
			OrderNumber: uuid.NewString(),
			UserID:      userID,
			AddressID:   addressID,
			Status:      domain.OrderStatusPending,
		}

		for i := range cart.Lines {
			line, err := s.buildLine(ctx, tx, cart.Lines[i].ProductID, cart.Lines[i].Quantity)
			if err != nil {
				return err
			}
			order.Lines = append(order.Lines, *line)
		}
		order.RecomputeTotal()

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		// Empty the cart but keep it, so the user can keep shopping.
		if _, err := tx.Carts().DeleteLines(ctx, cart.ID); err != nil {
			return err
		}
		if err := tx.Carts().UpdateTotal(ctx, cart.ID, decimal.Zero); err != nil {
			return err
		}

		if err := appendOrderEvent(ctx, tx, EventOrderCreated, order); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCart(userID)
	s.logger.Info("checkout completed",
		zap.Int64("user_id", userID),
		zap.String("order_number", created.OrderNumber),
		zap.String("total_amount", created.TotalAmount.String()))
	return created, nil
}

// CreateFromItems builds a PENDING order from an explicit item list,
// bypassing the cart. Duplicate product ids are merged before lines are
// built; stock is reserved the same way checkout does.
func (s *OrderService) CreateFromItems(ctx context.Context, userID, addressID int64, items []ItemInput) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	merged := make([]ItemInput, 0, len(items))
	byProduct := make(map[int64]int)
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if idx, seen := byProduct[item.ProductID]; seen {
			merged[idx].Quantity += item.Quantity
			continue
		}
		byProduct[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	var created *domain.Order
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Catalog().GetUser(ctx, userID); err != nil {
			return err
		}
		if err := tx.Catalog().AddressExists(ctx, addressID); err != nil {
			return err
		}

		order := &domain.Order{
			OrderNumber: uuid.NewString(),
			UserID:      userID,
			AddressID:   addressID,
			Status:      domain.OrderStatusPending,
		}
		for _, item := range merged {
			line, err := s.buildLine(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			order.Lines = append(order.Lines, *line)
		}
		order.RecomputeTotal()

		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		if err := appendOrderEvent(ctx, tx, EventOrderCreated, order); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// buildLine reserves stock for one requested quantity and returns an order
// line with the current catalog price frozen in.
func (s *OrderService) buildLine(ctx context.Context, tx repository.Store, productID int64, qty int) (*domain.OrderLine, error) {
	product, err := tx.Catalog().GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Stock().Reserve(ctx, productID, qty); err != nil {
		return nil, err
	}
	line := &domain.OrderLine{
		ProductID:    productID,
		ProductName:  product.Name,
		Quantity:     qty,
		PricePerUnit: domain.NewFrozenPrice(product.Price),
	}
	line.RecomputeTotal()
	return line, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.store.Orders().GetByID(ctx, orderID)
}

func (s *OrderService) List(ctx context.Context) ([]*domain.Order, error) {
	return s.store.Orders().List(ctx)
}

func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.store.Orders().ListByUserID(ctx, userID)
}

// UpdateStatus moves the order through the status machine. A transition to
// CANCELLED returns every line's quantity to the ledger in the same
// transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, next domain.OrderStatus) (*domain.Order, error) {
	var updated *domain.Order
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, order.Status, next)
		}

		if next == domain.OrderStatusCancelled {
			for i := range order.Lines {
				if err := tx.Stock().Release(ctx, order.Lines[i].ProductID, order.Lines[i].Quantity); err != nil {
					return err
				}
			}
		}

		if err := tx.Orders().UpdateStatus(ctx, orderID, next); err != nil {
			return err
		}
		order.Status = next

		if err := appendOrderEvent(ctx, tx, EventOrderStatusChanged, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", string(next)))
	return updated, nil
}

// Delete removes an order. A PENDING order still holds reservations, so its
// line quantities go back to the ledger first.
func (s *OrderService) Delete(ctx context.Context, orderID int64) error {
	return s.store.ExecTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == domain.OrderStatusPending {
			for i := range order.Lines {
				if err := tx.Stock().Release(ctx, order.Lines[i].ProductID, order.Lines[i].Quantity); err != nil {
					return err
				}
			}
		}
		return tx.Orders().Delete(ctx, orderID)
	})
}

// AddItem adds qty units of a product to a PENDING order. Merging into an
// existing line reserves only the added quantity and keeps the line's frozen
// price; a new line freezes the current catalog price.
func (s *OrderService) AddItem(ctx context.Context, orderID, productID int64, qty int) (*domain.Order, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	var out *domain.Order
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.Modifiable() {
			return ErrOrderNotModifiable
		}

		line, err := tx.Orders().GetLine(ctx, orderID, productID)
		switch {
		case err == nil:
			if _, e2 := tx.Stock().Reserve(ctx, productID, qty); e2 != nil {
				return e2
			}
			line.Quantity += qty
			line.RecomputeTotal()
			if e2 := tx.Orders().UpdateLine(ctx, line); e2 != nil {
				return e2
			}
		case errors.Is(err, repository.ErrOrderLineNotFound):
			newLine, e2 := s.buildLine(ctx, tx, productID, qty)
			if e2 != nil {
				return e2
			}
			newLine.OrderID = orderID
			if e3 := tx.Orders().InsertLine(ctx, newLine); e3 != nil {
				return e3
			}
		default:
			return err
		}

		out, err = recomputeOrderTotal(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItem overwrites a line's quantity, reserving or releasing only the
// delta. A zero or negative quantity removes the line.
func (s *OrderService) UpdateItem(ctx context.Context, orderID, productID int64, newQty int) (*domain.Order, error) {
	var out *domain.Order
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.Modifiable() {
			return ErrOrderNotModifiable
		}

		line, err := tx.Orders().GetLine(ctx, orderID, productID)
		if err != nil {
			return err
		}

		if newQty <= 0 {
			if e2 := s.dropLine(ctx, tx, line); e2 != nil {
				return e2
			}
			out, err = recomputeOrderTotal(ctx, tx, orderID)
			return err
		}

		delta := newQty - line.Quantity
		if delta > 0 {
			if _, e2 := tx.Stock().Reserve(ctx, productID, delta); e2 != nil {
				return e2
			}
		} else if delta < 0 {
			if e2 := tx.Stock().Release(ctx, productID, -delta); e2 != nil {
				return e2
			}
		}

		line.Quantity = newQty
		line.RecomputeTotal()
		if e2 := tx.Orders().UpdateLine(ctx, line); e2 != nil {
			return e2
		}

		out, err = recomputeOrderTotal(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem deletes a line and returns its full quantity to the ledger.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, productID int64) (*domain.Order, error) {
	var out *domain.Order
	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.Modifiable() {
			return ErrOrderNotModifiable
		}

		line, err := tx.Orders().GetLine(ctx, orderID, productID)
		if err != nil {
			return err
		}
		if e2 := s.dropLine(ctx, tx, line); e2 != nil {
			return e2
		}

		out, err = recomputeOrderTotal(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListItems returns the order's lines in insertion order.
func (s *OrderService) ListItems(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	if _, err := s.store.Orders().GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.Orders().ListLines(ctx, orderID)
}

func (s *OrderService) dropLine(ctx context.Context, tx repository.Store, line *domain.OrderLine) error {
	if err := tx.Stock().Release(ctx, line.ProductID, line.Quantity); err != nil {
		return err
	}
	return tx.Orders().DeleteLine(ctx, line.ID)
}

// recomputeOrderTotal re-derives the order total from its current lines and
// persists it, returning the refreshed order.
func recomputeOrderTotal(ctx context.Context, tx repository.Store, orderID int64) (*domain.Order, error) {
	order, err := tx.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.RecomputeTotal()
	if err := tx.Orders().UpdateTotal(ctx, orderID, order.TotalAmount); err != nil {
		return nil, err
	}
	return order, nil
}

func appendOrderEvent(ctx context.Context, tx repository.Store, eventType string, order *domain.Order) error {
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
		"status":       order.Status,
		"total_amount": order.TotalAmount,
		"occurred_at":  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event payload: %w", err)
	}
	return tx.Outbox().Append(ctx, &repository.OutboxEvent{
		AggregateID: order.OrderNumber,
		EventType:   eventType,
		Payload:     payload,
	})
}

func (s *OrderService) invalidateCart(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate error", zap.Int64("user_id", userID), zap.Error(err))
	}
}
