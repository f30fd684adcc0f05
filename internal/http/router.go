package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the controller surface. Authentication/authorization is a
// collaborator concern: callers arrive with an already-resolved identity.
func NewRouter(carts *CartHandler, orders *OrderHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", carts.CreateOrGet)
		r.Get("/", carts.List)
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", carts.Get)
			r.Delete("/", carts.Delete)
			r.Get("/count", carts.CountUnits)
			r.Get("/subtotal", carts.Subtotal)
			r.Delete("/lines", carts.Clear)
			r.Get("/lines/{productID}/exists", carts.HasProduct)
			r.Delete("/lines/{productID}", carts.RemoveLine)
		})
	})

	r.Route("/users/{userID}/cart", func(r chi.Router) {
		r.Get("/", carts.GetByUser)
		r.Post("/lines", carts.AddLine)
	})

	r.Put("/cart-lines/{lineID}", carts.UpdateLineQuantity)

	r.Post("/checkout", orders.Checkout)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orders.Create)
		r.Get("/", orders.List)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", orders.Get)
			r.Delete("/", orders.Delete)
			r.Patch("/status", orders.UpdateStatus)
			r.Get("/items", orders.ListItems)
			r.Post("/items", orders.AddItem)
			r.Put("/items/{productID}", orders.UpdateItem)
			r.Delete("/items/{productID}", orders.RemoveItem)
		})
	})

	return r
}
