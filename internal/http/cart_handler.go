package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/theAriful7/E-CommerceBackend/internal/service"
	"go.uber.org/zap"
)

type CartHandler struct {
	svc      *service.CartService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewCartHandler(svc *service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

type CreateCartRequestDTO struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type AddLineRequestDTO struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) CreateOrGet(w http.ResponseWriter, r *http.Request) {
	var req CreateCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cart, err := h.svc.GetOrCreate(r.Context(), req.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	carts, err := h.svc.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, carts)
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartID")
	if !ok {
		return
	}
	cart, err := h.svc.GetByID(r.Context(), cartID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) GetByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	cart, err := h.svc.GetByUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartID")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), cartID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	var req AddLineRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cart, err := h.svc.AddLine(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateLineQuantity(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.svc.UpdateLineQuantity(r.Context(), lineID, req.Quantity)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartID")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	cart, err := h.svc.RemoveLine(r.Context(), cartID, productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartID")
	if !ok {
		return
	}
	if err := h.svc.Clear(r.Context(), cartID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) CountUnits(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartID")
	if !ok {
		return
	}
	units, err := h.svc.CountUnits(r.Context(), cartID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"units": units})
}

func (h *CartHandler) Subtotal(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartID")
	if !ok {
		return
	}
	subtotal, err := h.svc.Subtotal(r.Context(), cartID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"subtotal": subtotal.String()})
}

func (h *CartHandler) HasProduct(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathID(w, r, "cartID")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}
	exists, err := h.svc.HasProduct(r.Context(), cartID, productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// pathID parses a positive int64 URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
