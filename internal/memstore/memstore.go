// Package memstore provides an in-memory implementation of repository.Store.
// It backs the service unit tests and the local dev mode; the mutation rules
// mirror the Postgres implementation, including transactional rollback.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
	"github.com/theAriful7/E-CommerceBackend/internal/repository"
)

type data struct {
	products  map[int64]*domain.Product
	users     map[int64]*domain.User
	addresses map[int64]struct{}
	carts     map[int64]*domain.Cart
	orders    map[int64]*domain.Order
	outbox    []*repository.OutboxEvent

	nextCartID      int64
	nextCartLineID  int64
	nextOrderID     int64
	nextOrderLineID int64
	nextEventID     int64
}

func newData() *data {
	return &data{
		products:  make(map[int64]*domain.Product),
		users:     make(map[int64]*domain.User),
		addresses: make(map[int64]struct{}),
		carts:     make(map[int64]*domain.Cart),
		orders:    make(map[int64]*domain.Order),
	}
}

func (d *data) clone() *data {
	c := newData()
	*c = *d
	c.products = make(map[int64]*domain.Product, len(d.products))
	for id, p := range d.products {
		cp := *p
		c.products[id] = &cp
	}
	c.users = make(map[int64]*domain.User, len(d.users))
	for id, u := range d.users {
		cu := *u
		c.users[id] = &cu
	}
	c.addresses = make(map[int64]struct{}, len(d.addresses))
	for id := range d.addresses {
		c.addresses[id] = struct{}{}
	}
	c.carts = make(map[int64]*domain.Cart, len(d.carts))
	for id, cart := range d.carts {
		c.carts[id] = copyCart(cart)
	}
	c.orders = make(map[int64]*domain.Order, len(d.orders))
	for id, order := range d.orders {
		c.orders[id] = copyOrder(order)
	}
	c.outbox = make([]*repository.OutboxEvent, len(d.outbox))
	for i, ev := range d.outbox {
		ce := *ev
		c.outbox[i] = &ce
	}
	return c
}

func copyCart(cart *domain.Cart) *domain.Cart {
	c := *cart
	c.Lines = make([]domain.CartLine, len(cart.Lines))
	copy(c.Lines, cart.Lines)
	return &c
}

func copyOrder(order *domain.Order) *domain.Order {
	o := *order
	o.Lines = make([]domain.OrderLine, len(order.Lines))
	copy(o.Lines, order.Lines)
	return &o
}

// Store implements repository.Store with mutex-guarded maps. ExecTx takes the
// store lock for the whole unit of work and restores a pre-transaction
// snapshot when fn fails, so partial mutations are never observable.
type Store struct {
	mu   *sync.Mutex
	data *data
	inTx bool
}

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, data: newData()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Carts() repository.CartRepository      { return &cartRepo{s} }
func (s *Store) Orders() repository.OrderRepository    { return &orderRepo{s} }
func (s *Store) Stock() repository.StockLedger         { return &stockLedger{s} }
func (s *Store) Catalog() repository.CatalogRepository { return &catalogRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository   { return &outboxRepo{s} }

func (s *Store) ExecTx(_ context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, inTx: true}
	if err := fn(tx); err != nil {
		*s.data = *snap
		return err
	}
	return nil
}

// SetProduct seeds or replaces a catalog product.
func (s *Store) SetProduct(p domain.Product) {
	defer s.lock()()
	cp := p
	s.data.products[p.ID] = &cp
}

// SetUser seeds a user for existence and display-name lookups.
func (s *Store) SetUser(u domain.User) {
	defer s.lock()()
	cu := u
	s.data.users[u.ID] = &cu
}

// AddAddress seeds a shipping address id.
func (s *Store) AddAddress(id int64) {
	defer s.lock()()
	s.data.addresses[id] = struct{}{}
}

// ProductStock returns the current stock level, for assertions.
func (s *Store) ProductStock(id int64) int {
	defer s.lock()()
	if p, ok := s.data.products[id]; ok {
		return p.Stock
	}
	return 0
}

type cartRepo struct {
	s *Store
}

func (r *cartRepo) GetByID(_ context.Context, id int64) (*domain.Cart, error) {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (r *cartRepo) GetByUserID(_ context.Context, userID int64) (*domain.Cart, error) {
	defer r.s.lock()()
	if cart := r.s.findCartByUser(userID); cart != nil {
		return copyCart(cart), nil
	}
	return nil, repository.ErrCartNotFound
}

func (s *Store) findCartByUser(userID int64) *domain.Cart {
	for _, cart := range s.data.carts {
		if cart.UserID == userID {
			return cart
		}
	}
	return nil
}

func (r *cartRepo) Create(_ context.Context, userID int64) (*domain.Cart, error) {
	defer r.s.lock()()
	if r.s.findCartByUser(userID) != nil {
		return nil, fmt.Errorf("cart already exists for user %d", userID)
	}
	r.s.data.nextCartID++
	now := time.Now()
	cart := &domain.Cart{
		ID:         r.s.data.nextCartID,
		UserID:     userID,
		TotalPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.s.data.carts[cart.ID] = cart
	return copyCart(cart), nil
}

func (r *cartRepo) List(_ context.Context) ([]*domain.Cart, error) {
	defer r.s.lock()()
	carts := make([]*domain.Cart, 0, len(r.s.data.carts))
	for id := int64(1); id <= r.s.data.nextCartID; id++ {
		if cart, ok := r.s.data.carts[id]; ok {
			carts = append(carts, copyCart(cart))
		}
	}
	return carts, nil
}

func (r *cartRepo) Delete(_ context.Context, id int64) error {
	defer r.s.lock()()
	if _, ok := r.s.data.carts[id]; !ok {
		return repository.ErrCartNotFound
	}
	delete(r.s.data.carts, id)
	return nil
}

func (r *cartRepo) UpdateTotal(_ context.Context, id int64, total decimal.Decimal) error {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[id]
	if !ok {
		return repository.ErrCartNotFound
	}
	cart.TotalPrice = total
	cart.UpdatedAt = time.Now()
	return nil
}

func (r *cartRepo) GetLine(_ context.Context, cartID, productID int64) (*domain.CartLine, error) {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[cartID]
	if !ok {
		return nil, repository.ErrCartLineNotFound
	}
	if line := cart.Line(productID); line != nil {
		cl := *line
		return &cl, nil
	}
	return nil, repository.ErrCartLineNotFound
}

func (r *cartRepo) GetLineByID(_ context.Context, lineID int64) (*domain.CartLine, error) {
	defer r.s.lock()()
	for _, cart := range r.s.data.carts {
		for i := range cart.Lines {
			if cart.Lines[i].ID == lineID {
				cl := cart.Lines[i]
				return &cl, nil
			}
		}
	}
	return nil, repository.ErrCartLineNotFound
}

func (r *cartRepo) InsertLine(_ context.Context, line *domain.CartLine) error {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[line.CartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if cart.Line(line.ProductID) != nil {
		return repository.ErrDuplicateLine
	}
	r.s.data.nextCartLineID++
	line.ID = r.s.data.nextCartLineID
	line.AddedAt = time.Now()
	cart.Lines = append(cart.Lines, *line)
	return nil
}

func (r *cartRepo) UpdateLine(_ context.Context, line *domain.CartLine) error {
	defer r.s.lock()()
	for _, cart := range r.s.data.carts {
		for i := range cart.Lines {
			if cart.Lines[i].ID == line.ID {
				cart.Lines[i] = *line
				return nil
			}
		}
	}
	return repository.ErrCartLineNotFound
}

func (r *cartRepo) DeleteLine(_ context.Context, lineID int64) error {
	defer r.s.lock()()
	for _, cart := range r.s.data.carts {
		for i := range cart.Lines {
			if cart.Lines[i].ID == lineID {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrCartLineNotFound
}

func (r *cartRepo) DeleteLines(_ context.Context, cartID int64) (int64, error) {
	defer r.s.lock()()
	cart, ok := r.s.data.carts[cartID]
	if !ok {
		return 0, nil
	}
	removed := int64(len(cart.Lines))
	cart.Lines = nil
	return removed, nil
}

type orderRepo struct {
	s *Store
}

func (r *orderRepo) Create(_ context.Context, order *domain.Order) error {
	defer r.s.lock()()
	r.s.data.nextOrderID++
	order.ID = r.s.data.nextOrderID
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Lines {
		r.s.data.nextOrderLineID++
		order.Lines[i].ID = r.s.data.nextOrderLineID
		order.Lines[i].OrderID = order.ID
		order.Lines[i].AddedAt = now
	}
	r.s.data.orders[order.ID] = copyOrder(order)
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	defer r.s.lock()()
	order, ok := r.s.data.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (r *orderRepo) List(_ context.Context) ([]*domain.Order, error) {
	defer r.s.lock()()
	orders := make([]*domain.Order, 0, len(r.s.data.orders))
	for id := int64(1); id <= r.s.data.nextOrderID; id++ {
		if order, ok := r.s.data.orders[id]; ok {
			orders = append(orders, copyOrder(order))
		}
	}
	return orders, nil
}

func (r *orderRepo) ListByUserID(_ context.Context, userID int64) ([]*domain.Order, error) {
	defer r.s.lock()()
	var orders []*domain.Order
	for id := int64(1); id <= r.s.data.nextOrderID; id++ {
		if order, ok := r.s.data.orders[id]; ok && order.UserID == userID {
			orders = append(orders, copyOrder(order))
		}
	}
	return orders, nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	defer r.s.lock()()
	order, ok := r.s.data.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}

func (r *orderRepo) UpdateTotal(_ context.Context, id int64, total decimal.Decimal) error {
	defer r.s.lock()()
	order, ok := r.s.data.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.TotalAmount = total
	order.UpdatedAt = time.Now()
	return nil
}

func (r *orderRepo) Delete(_ context.Context, id int64) error {
	defer r.s.lock()()
	if _, ok := r.s.data.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(r.s.data.orders, id)
	return nil
}

func (r *orderRepo) GetLine(_ context.Context, orderID, productID int64) (*domain.OrderLine, error) {
	defer r.s.lock()()
	order, ok := r.s.data.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderLineNotFound
	}
	if line := order.Line(productID); line != nil {
		ol := *line
		return &ol, nil
	}
	return nil, repository.ErrOrderLineNotFound
}

func (r *orderRepo) ListLines(_ context.Context, orderID int64) ([]domain.OrderLine, error) {
	defer r.s.lock()()
	order, ok := r.s.data.orders[orderID]
	if !ok {
		return nil, nil
	}
	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	return lines, nil
}

func (r *orderRepo) InsertLine(_ context.Context, line *domain.OrderLine) error {
	defer r.s.lock()()
	order, ok := r.s.data.orders[line.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Line(line.ProductID) != nil {
		return repository.ErrDuplicateLine
	}
	r.s.data.nextOrderLineID++
	line.ID = r.s.data.nextOrderLineID
	line.AddedAt = time.Now()
	order.Lines = append(order.Lines, *line)
	return nil
}

func (r *orderRepo) UpdateLine(_ context.Context, line *domain.OrderLine) error {
	defer r.s.lock()()
	for _, order := range r.s.data.orders {
		for i := range order.Lines {
			if order.Lines[i].ID == line.ID {
				order.Lines[i] = *line
				return nil
			}
		}
	}
	return repository.ErrOrderLineNotFound
}

func (r *orderRepo) DeleteLine(_ context.Context, lineID int64) error {
	defer r.s.lock()()
	for _, order := range r.s.data.orders {
		for i := range order.Lines {
			if order.Lines[i].ID == lineID {
				order.Lines = append(order.Lines[:i], order.Lines[i+1:]...)
				return nil
			}
		}
	}
	return repository.ErrOrderLineNotFound
}

type stockLedger struct {
	s *Store
}

func (l *stockLedger) Reserve(_ context.Context, productID int64, qty int) (int, error) {
	defer l.s.lock()()
	product, ok := l.s.data.products[productID]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	if product.Stock < qty {
		return 0, repository.ErrInsufficientStock
	}
	product.Stock -= qty
	return product.Stock, nil
}

func (l *stockLedger) Release(_ context.Context, productID int64, qty int) error {
	defer l.s.lock()()
	product, ok := l.s.data.products[productID]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.Stock += qty
	return nil
}

type catalogRepo struct {
	s *Store
}

func (r *catalogRepo) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	defer r.s.lock()()
	product, ok := r.s.data.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *product
	return &cp, nil
}

func (r *catalogRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	defer r.s.lock()()
	user, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cu := *user
	return &cu, nil
}

func (r *catalogRepo) AddressExists(_ context.Context, id int64) error {
	defer r.s.lock()()
	if _, ok := r.s.data.addresses[id]; !ok {
		return repository.ErrAddressNotFound
	}
	return nil
}

type outboxRepo struct {
	s *Store
}

func (r *outboxRepo) Append(_ context.Context, event *repository.OutboxEvent) error {
	defer r.s.lock()()
	r.s.data.nextEventID++
	event.ID = r.s.data.nextEventID
	event.CreatedAt = time.Now()
	ce := *event
	r.s.data.outbox = append(r.s.data.outbox, &ce)
	return nil
}

func (r *outboxRepo) GetUnprocessed(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	defer r.s.lock()()
	var events []*repository.OutboxEvent
	for _, ev := range r.s.data.outbox {
		if ev.ProcessedAt != nil {
			continue
		}
		ce := *ev
		events = append(events, &ce)
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

func (r *outboxRepo) MarkProcessed(_ context.Context, id int64) error {
	defer r.s.lock()()
	for _, ev := range r.s.data.outbox {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			return nil
		}
	}
	return nil
}
