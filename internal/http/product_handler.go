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

type ProductAPI interface {
	GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	RecomputeRatings(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
}

type ProductHandler struct {
	products ProductAPI
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProductHandler(products ProductAPI, timeout time.Duration, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
		logger:   logger,
	}
}

// GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.productAction(w, r, h.products.GetProduct)
}

// POST /api/v1/products/{id}/ratings/recompute
func (h *ProductHandler) RecomputeRatings(w http.ResponseWriter, r *http.Request) {
	h.productAction(w, r, h.products.RecomputeRatings)
}

func (h *ProductHandler) productAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, primitive.ObjectID) (*domain.Product, error),
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseObjectID(w, chi.URLParam(r, "id"), "product id")
	if !ok {
		return
	}

	product, err := action(ctx, productID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondSuccess(w, http.StatusOK, product)
}
