package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth     *Authenticator
	Cart     *CartHandler
	Orders   *OrdersHandler
	Products *ProductHandler
	Webhook  *WebhookHandler
}

// NewRouter mounts the REST API under /api/v1 and the provider webhook at
// the root. API request bodies are capped at maxBodySize bytes.
func NewRouter(h Handlers, requestTimeout time.Duration, maxBodySize int64, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Signed by the provider, no bearer token
	r.Post("/webhook-checkout", h.Webhook.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequestSize(maxBodySize))

		r.Get("/products/{id}", h.Products.Get)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Protect)

			r.With(AllowedTo(domain.RoleAdmin, domain.RoleManager)).
				Post("/products/{id}/ratings/recompute", h.Products.RecomputeRatings)

			r.Route("/cart", func(r chi.Router) {
				r.Use(AllowedTo(domain.RoleUser))
				r.Post("/", h.Cart.AddItem)
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Put("/applycoupon", h.Cart.ApplyCoupon)
				r.Put("/{itemId}", h.Cart.UpdateQuantity)
				r.Delete("/{itemId}", h.Cart.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(AllowedTo(domain.RoleUser)).
					Get("/checkout-session/{cartId}", h.Orders.CheckoutSession)
				// {id} is the cart id here; chi needs one param name per segment
				r.With(AllowedTo(domain.RoleUser)).
					Post("/{id}", h.Orders.CreateCashOrder)

				r.With(AllowedTo(domain.RoleUser, domain.RoleAdmin, domain.RoleManager)).
					Get("/", h.Orders.ListOrders)
				r.With(AllowedTo(domain.RoleUser, domain.RoleAdmin, domain.RoleManager)).
					Get("/{id}", h.Orders.GetOrder)

				r.Group(func(r chi.Router) {
					r.Use(AllowedTo(domain.RoleAdmin, domain.RoleManager))
					r.Put("/{id}/pay", h.Orders.MarkPaid)
					r.Put("/{id}/deliver", h.Orders.MarkDelivered)
				})
			})
		})
	})

	return otelhttp.NewHandler(r, "eshop-api")
}
