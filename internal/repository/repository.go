package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
)

// Common errors returned by the store
var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartLineNotFound  = errors.New("cart line not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderLineNotFound = errors.New("order line not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrAddressNotFound   = errors.New("address not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateLine     = errors.New("line for this product already exists")
)

// Store bundles the repositories behind a single transactional boundary.
// ExecTx runs fn against a store bound to one transaction; any error rolls
// back every change made through that store.
type Store interface {
	Carts() CartRepository
	Orders() OrderRepository
	Stock() StockLedger
	Catalog() CatalogRepository
	Outbox() OutboxRepository
	ExecTx(ctx context.Context, fn func(Store) error) error
}

type CartRepository interface {
	// GetByID returns the cart with its lines in insertion order.
	GetByID(ctx context.Context, id int64) (*domain.Cart, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Cart, error)
	Create(ctx context.Context, userID int64) (*domain.Cart, error)
	List(ctx context.Context) ([]*domain.Cart, error)
	// Delete cascades to the cart's lines.
	Delete(ctx context.Context, id int64) error
	UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error

	GetLine(ctx context.Context, cartID, productID int64) (*domain.CartLine, error)
	GetLineByID(ctx context.Context, lineID int64) (*domain.CartLine, error)
	InsertLine(ctx context.Context, line *domain.CartLine) error
	UpdateLine(ctx context.Context, line *domain.CartLine) error
	DeleteLine(ctx context.Context, lineID int64) error
	// DeleteLines removes every line of the cart and returns how many were removed.
	DeleteLines(ctx context.Context, cartID int64) (int64, error)
}

type OrderRepository interface {
	// Create inserts the order and all of its lines, assigning IDs.
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error
	Delete(ctx context.Context, id int64) error

	GetLine(ctx context.Context, orderID, productID int64) (*domain.OrderLine, error)
	ListLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error)
	InsertLine(ctx context.Context, line *domain.OrderLine) error
	UpdateLine(ctx context.Context, line *domain.OrderLine) error
	DeleteLine(ctx context.Context, lineID int64) error
}

// StockLedger is the only mutator of product stock. Both operations must be
// called inside an ExecTx scope so stock moves commit together with the line
// and total changes they back.
type StockLedger interface {
	// Reserve atomically decrements available stock and returns the new
	// level. Fails with ErrInsufficientStock when fewer than qty units are
	// available; two concurrent reservations can never both pass a stale read.
	Reserve(ctx context.Context, productID int64, qty int) (int, error)
	// Release returns qty units to the available pool. It never fails for a
	// product that exists; qty is always bounded by a prior Reserve.
	Release(ctx context.Context, productID int64, qty int) error
}

// CatalogRepository covers the collaborator lookups this core consumes but
// does not own: products, users, shipping addresses.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	AddressExists(ctx context.Context, id int64) error
}

// OutboxEvent is one pending domain event, written in the same transaction
// as the mutation it describes and published asynchronously by the poller.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type OutboxRepository interface {
	Append(ctx context.Context, event *OutboxEvent) error
	GetUnprocessed(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id int64) error
}
