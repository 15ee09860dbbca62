package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CartAPI is the cart store as seen by the REST surface.
type CartAPI interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID primitive.ObjectID, color string) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID primitive.ObjectID) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID primitive.ObjectID, quantity int) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID primitive.ObjectID) error
	ApplyCoupon(ctx context.Context, userID primitive.ObjectID, code string) (*domain.Cart, error)
}

type CartHandler struct {
	carts   CartAPI
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(carts CartAPI, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	Color     string `json:"color"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type ApplyCouponRequestDTO struct {
	Coupon string `json:"coupon"`
}

// POST /api/v1/cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	productID, ok := parseObjectID(w, req.ProductID, "productId")
	if !ok {
		return
	}

	cart, err := h.carts.AddItem(ctx, user.ID, productID, req.Color)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondCart(w, http.StatusOK, "product added successfully to your cart", cart)
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, err := h.carts.GetCart(ctx, user.ID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondCart(w, http.StatusOK, "", cart)
}

// DELETE /api/v1/cart/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	itemID, ok := parseObjectID(w, chi.URLParam(r, "itemId"), "itemId")
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, user.ID, itemID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondCart(w, http.StatusOK, "", cart)
}

// PUT /api/v1/cart/{itemId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	itemID, ok := parseObjectID(w, chi.URLParam(r, "itemId"), "itemId")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.UpdateItemQuantity(ctx, user.ID, itemID, req.Quantity)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondCart(w, http.StatusOK, "", cart)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.ClearCart(ctx, user.ID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PUT /api/v1/cart/applycoupon
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ApplyCouponRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.ApplyCoupon(ctx, user.ID, req.Coupon)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondCart(w, http.StatusOK, "", cart)
}
