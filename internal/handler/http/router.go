package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/madukaneranga/Kixora-sub002/internal/service"
	"github.com/madukaneranga/Kixora-sub002/pkg/health"
	"github.com/madukaneranga/Kixora-sub002/pkg/middleware"
)

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	engine *service.Engine,
	orderService *service.OrderService,
	ledger *service.Ledger,
	processor *service.WebhookProcessor,
	healthHandler *health.Handler,
	pprofCIDRs []string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("storefront"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	cartHandler := NewCartHandler(engine, logger)
	orderHandler := NewOrderHandler(orderService, logger)
	inventoryHandler := NewInventoryHandler(ledger, logger)
	webhookHandler := NewWebhookHandler(processor, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Use(SessionFromHeader)
			r.Use(ContentTypeJSON)

			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.Clear)
			r.Post("/items", cartHandler.AddLine)
			r.Patch("/items/{lineID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{lineID}", cartHandler.RemoveLine)
			r.Post("/identity", cartHandler.ChangeIdentity)
		})

		r.With(SessionFromHeader, ContentTypeJSON).Post("/checkout", orderHandler.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Use(UserIDFromHeader)

			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.GetOrder)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/{variantID}/availability", inventoryHandler.CheckAvailability)
			r.With(ContentTypeJSON).Post("/{variantID}/restock", inventoryHandler.Restock)
			r.With(ContentTypeJSON).Patch("/{variantID}/active", inventoryHandler.SetActive)
		})
	})

	// The gateway authenticates with the notification signature, never a
	// session; this route stays outside the API middleware stack.
	r.Post("/webhooks/payment", webhookHandler.HandleNotification)

	return r
}
