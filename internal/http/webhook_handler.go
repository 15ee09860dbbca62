package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/shoaibhajj/E-shop/internal/payment"
	"go.uber.org/zap"
)

// EventHandler processes a verified payment provider event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *payment.Event) error
}

type WebhookHandler struct {
	verifier *payment.Verifier
	events   EventHandler
	maxBody  int64
	timeout  time.Duration
	logger   *zap.Logger
}

func NewWebhookHandler(verifier *payment.Verifier, events EventHandler, maxBody int64, timeout time.Duration, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		events:   events,
		maxBody:  maxBody,
		timeout:  timeout,
		logger:   logger,
	}
}

type WebhookAckDTO struct {
	Received bool `json:"received"`
}

// POST /webhook-checkout
//
// Only signature failures are reported to the provider. Processing errors
// are logged and acknowledged so the provider does not retry a delivery
// that was already recorded.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	event, err := h.verifier.ConstructEvent(payload, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		h.logger.Warn("webhook rejected", zap.Error(err))
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.events.HandleEvent(ctx, event); err != nil {
		h.logger.Error("webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err))
	}

	respondJSON(w, http.StatusOK, WebhookAckDTO{Received: true})
}
