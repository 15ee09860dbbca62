package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/payment"
	"github.com/shoaibhajj/E-shop/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CheckoutAPI is the checkout orchestrator as seen by the REST surface.
type CheckoutAPI interface {
	CashCheckout(ctx context.Context, userID, cartID primitive.ObjectID, address domain.ShippingAddress) (*domain.Order, error)
	CreateCheckoutSession(ctx context.Context, buyer *domain.User, cartID primitive.ObjectID, address domain.ShippingAddress, urls service.SessionURLs) (*payment.Session, error)
}

// OrderAPI is the order ledger as seen by the REST surface.
type OrderAPI interface {
	ListOrders(ctx context.Context, caller domain.Caller) ([]*domain.Order, error)
	GetOrder(ctx context.Context, caller domain.Caller, id primitive.ObjectID) (*domain.Order, error)
	MarkPaid(ctx context.Context, caller domain.Caller, id primitive.ObjectID) (*domain.Order, error)
	MarkDelivered(ctx context.Context, caller domain.Caller, id primitive.ObjectID) (*domain.Order, error)
}

type OrdersHandler struct {
	checkout CheckoutAPI
	orders   OrderAPI
	baseURL  string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewOrdersHandler builds the order endpoints. baseURL is the public shop
// origin the hosted payment page returns the buyer to.
func NewOrdersHandler(checkout CheckoutAPI, orders OrderAPI, baseURL string, timeout time.Duration, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		checkout: checkout,
		orders:   orders,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		logger:   logger,
	}
}

type CashOrderRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
}

type OrdersListResponseDTO struct {
	Status  string          `json:"status"`
	Results int             `json:"results"`
	Data    []*domain.Order `json:"data"`
}

// POST /api/v1/orders/{id}, where id is the cart id
func (h *OrdersHandler) CreateCashOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cartID, ok := parseObjectID(w, chi.URLParam(r, "id"), "cartId")
	if !ok {
		return
	}

	// the shipping address is optional, so an empty body is allowed
	var req CashOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondDecodeError(w, err)
		return
	}

	order, err := h.checkout.CashCheckout(ctx, user.ID, cartID, req.ShippingAddress)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondSuccess(w, http.StatusCreated, order)
}

// GET /api/v1/orders/checkout-session/{cartId}
func (h *OrdersHandler) CheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cartID, ok := parseObjectID(w, chi.URLParam(r, "cartId"), "cartId")
	if !ok {
		return
	}

	q := r.URL.Query()
	address := domain.ShippingAddress{
		Details:    q.Get("details"),
		Phone:      q.Get("phone"),
		City:       q.Get("city"),
		PostalCode: q.Get("postalCode"),
	}

	session, err := h.checkout.CreateCheckoutSession(ctx, user, cartID, address, service.SessionURLs{
		SuccessURL: h.baseURL + "/orders",
		CancelURL:  h.baseURL + "/cart",
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondSuccess(w, http.StatusOK, session)
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListOrders(ctx, user.Caller())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if orders == nil {
		orders = make([]*domain.Order, 0)
	}

	respondJSON(w, http.StatusOK, OrdersListResponseDTO{
		Status:  "success",
		Results: len(orders),
		Data:    orders,
	})
}

// GET /api/v1/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.orders.GetOrder)
}

// PUT /api/v1/orders/{id}/pay
func (h *OrdersHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.orders.MarkPaid)
}

// PUT /api/v1/orders/{id}/deliver
func (h *OrdersHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, h.orders.MarkDelivered)
}

func (h *OrdersHandler) orderAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, domain.Caller, primitive.ObjectID) (*domain.Order, error),
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID, ok := parseObjectID(w, chi.URLParam(r, "id"), "order id")
	if !ok {
		return
	}

	order, err := action(ctx, user.Caller(), orderID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondSuccess(w, http.StatusOK, order)
}
