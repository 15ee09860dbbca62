package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"github.com/shoaibhajj/E-shop/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Status            string `json:"status"`
	Message           string `json:"message,omitempty"`
	NumberOfCartItems *int   `json:"numberOfCartItems,omitempty"`
	Data              any    `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondSuccess(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, SuccessResponse{Status: "success", Data: data})
}

// respondCart writes the cart with its line count. A nil cart is an empty one.
func respondCart(w http.ResponseWriter, status int, message string, cart *domain.Cart) {
	n := 0
	if cart != nil {
		n = len(cart.Items)
	}
	respondJSON(w, status, SuccessResponse{
		Status:            "success",
		Message:           message,
		NumberOfCartItems: &n,
		Data:              cart,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError converts service and repository errors to HTTP errors.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		httpStatus = http.StatusConflict
		code = "insufficient_stock"
	case errors.Is(err, repository.ErrConcurrentUpdate),
		errors.Is(err, repository.ErrDuplicateCheckout):
		httpStatus = http.StatusConflict
		code = "conflict"
	case errors.Is(err, service.ErrInvalidCoupon):
		httpStatus = http.StatusBadRequest
		code = "invalid_coupon"
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrEmptyCart):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, service.ErrForbidden):
		httpStatus = http.StatusForbidden
		code = "permission_denied"
	case errors.Is(err, service.ErrPaymentUnavailable):
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
	default:
		logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}

// parseObjectID reads a hex object id path parameter and writes a 400 when it
// is malformed.
func parseObjectID(w http.ResponseWriter, value, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_argument", "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

// decodeJSON reads the request body into v. Bodies are capped by the
// router's request size limit.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondDecodeError(w, err)
		return false
	}
	return true
}

func respondDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		return
	}
	respondError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
}
