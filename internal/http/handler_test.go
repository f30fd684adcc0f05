package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theAriful7/E-CommerceBackend/internal/cache"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
	"github.com/theAriful7/E-CommerceBackend/internal/memstore"
	"github.com/theAriful7/E-CommerceBackend/internal/service"
	"go.uber.org/zap"
)

type noopCache struct{}

func (noopCache) Get(context.Context, int64) (*domain.Cart, error) { return nil, cache.ErrCacheMiss }
func (noopCache) Set(context.Context, int64, *domain.Cart) error   { return nil }
func (noopCache) Delete(context.Context, int64) error              { return nil }

// setupServer wires a memstore-backed stack behind the real router.
func setupServer(t *testing.T) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.NewStore()
	store.SetUser(domain.User{ID: 1, FullName: "Alice"})
	store.AddAddress(1)
	store.SetProduct(domain.Product{ID: 10, Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Stock: 100})
	store.SetProduct(domain.Product{ID: 20, Name: "Mouse", Price: decimal.RequireFromString("25.00"), Stock: 5})

	logger := zap.NewNop()
	router := NewRouter(
		NewCartHandler(service.NewCartService(store, noopCache{}, logger), logger),
		NewOrderHandler(service.NewOrderService(store, noopCache{}, logger), logger),
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCartHandler_AddLineAndGet(t *testing.T) {
	server, _ := setupServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/users/1/cart/lines",
		AddLineRequestDTO{ProductID: 10, Quantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cart domain.Cart
	decode(t, resp, &cart)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("20.00")))

	resp = doJSON(t, http.MethodGet, server.URL+"/users/1/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &cart)
	assert.Len(t, cart.Lines, 1)
}

func TestCartHandler_AddLine_Validation(t *testing.T) {
	server, _ := setupServer(t)

	// Unknown user.
	resp := doJSON(t, http.MethodPost, server.URL+"/users/999/cart/lines",
		AddLineRequestDTO{ProductID: 10, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Unknown product.
	resp = doJSON(t, http.MethodPost, server.URL+"/users/1/cart/lines",
		AddLineRequestDTO{ProductID: 999, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Negative quantity.
	resp = doJSON(t, http.MethodPost, server.URL+"/users/1/cart/lines",
		AddLineRequestDTO{ProductID: 10, Quantity: -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Malformed body.
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/users/1/cart/lines",
		bytes.NewBufferString("{"))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
	raw.Body.Close()
}

func TestCartHandler_UpdateLineQuantity(t *testing.T) {
	server, _ := setupServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/users/1/cart/lines",
		AddLineRequestDTO{ProductID: 10, Quantity: 2})
	var cart domain.Cart
	decode(t, resp, &cart)
	lineID := cart.Lines[0].ID

	resp = doJSON(t, http.MethodPut, server.URL+"/cart-lines/"+itoa(lineID),
		UpdateQuantityRequestDTO{Quantity: 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &cart)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("50.00")))

	// Unknown line id.
	resp = doJSON(t, http.MethodPut, server.URL+"/cart-lines/999",
		UpdateQuantityRequestDTO{Quantity: 5})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCartHandler_ClearAndSubtotal(t *testing.T) {
	server, _ := setupServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/users/1/cart/lines",
		AddLineRequestDTO{ProductID: 10, Quantity: 3})
	var cart domain.Cart
	decode(t, resp, &cart)
	cartID := itoa(cart.ID)

	resp = doJSON(t, http.MethodGet, server.URL+"/carts/"+cartID+"/subtotal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var subtotal map[string]string
	decode(t, resp, &subtotal)
	assert.Equal(t, "30", subtotal["subtotal"])

	resp = doJSON(t, http.MethodDelete, server.URL+"/carts/"+cartID+"/lines", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/carts/"+cartID+"/count", nil)
	var count map[string]int
	decode(t, resp, &count)
	assert.Equal(t, 0, count["units"])
}

func TestOrderHandler_CheckoutFlow(t *testing.T) {
	server, store := setupServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/users/1/cart/lines",
		AddLineRequestDTO{ProductID: 10, Quantity: 2})
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, server.URL+"/users/1/cart/lines",
		AddLineRequestDTO{ProductID: 20, Quantity: 1})
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/checkout",
		CheckoutRequestDTO{UserID: 1, AddressID: 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var order domain.Order
	decode(t, resp, &order)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Len(t, order.Lines, 2)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("45.00")))
	assert.Equal(t, 98, store.ProductStock(10))

	// Checkout again: the cart is now empty.
	resp = doJSON(t, http.MethodPost, server.URL+"/checkout",
		CheckoutRequestDTO{UserID: 1, AddressID: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestOrderHandler_Create_InsufficientStock(t *testing.T) {
	server, store := setupServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/orders",
		CreateOrderRequestDTO{
			UserID:    1,
			AddressID: 1,
			Items:     []OrderItemDTO{{ProductID: 20, Quantity: 6}}, // only 5 in stock
		})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var errResp ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, "conflict", errResp.Code)
	assert.Equal(t, 5, store.ProductStock(20))
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	server, _ := setupServer(t)
	orderID := createOrder(t, server)

	resp := doJSON(t, http.MethodPatch, server.URL+"/orders/"+orderID+"/status",
		UpdateStatusRequestDTO{Status: "SHIPPED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var order domain.Order
	decode(t, resp, &order)
	assert.Equal(t, domain.OrderStatusShipped, order.Status)

	// Illegal transition.
	resp = doJSON(t, http.MethodPatch, server.URL+"/orders/"+orderID+"/status",
		UpdateStatusRequestDTO{Status: "PENDING"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Unknown status value.
	resp = doJSON(t, http.MethodPatch, server.URL+"/orders/"+orderID+"/status",
		UpdateStatusRequestDTO{Status: "PAID"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestOrderHandler_ItemMutations(t *testing.T) {
	server, store := setupServer(t)
	orderID := createOrder(t, server)

	resp := doJSON(t, http.MethodPost, server.URL+"/orders/"+orderID+"/items",
		AddOrderItemRequestDTO{ProductID: 20, Quantity: 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var order domain.Order
	decode(t, resp, &order)
	assert.Len(t, order.Lines, 2)
	assert.Equal(t, 3, store.ProductStock(20))

	resp = doJSON(t, http.MethodPut, server.URL+"/orders/"+orderID+"/items/20",
		UpdateOrderItemRequestDTO{Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &order)
	assert.Equal(t, 4, store.ProductStock(20))

	resp = doJSON(t, http.MethodDelete, server.URL+"/orders/"+orderID+"/items/20", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &order)
	assert.Len(t, order.Lines, 1)
	assert.Equal(t, 5, store.ProductStock(20))
}

func TestOrderHandler_ItemMutations_AfterShipping(t *testing.T) {
	server, _ := setupServer(t)
	orderID := createOrder(t, server)

	resp := doJSON(t, http.MethodPatch, server.URL+"/orders/"+orderID+"/status",
		UpdateStatusRequestDTO{Status: "SHIPPED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, server.URL+"/orders/"+orderID+"/items",
		AddOrderItemRequestDTO{ProductID: 20, Quantity: 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestOrderHandler_Get_NotFound(t *testing.T) {
	server, _ := setupServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/orders/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/orders/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func createOrder(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/orders",
		CreateOrderRequestDTO{
			UserID:    1,
			AddressID: 1,
			Items:     []OrderItemDTO{{ProductID: 10, Quantity: 2}},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var order domain.Order
	decode(t, resp, &order)
	return itoa(order.ID)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
