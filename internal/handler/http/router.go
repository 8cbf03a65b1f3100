package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saumyadesai17/maayaro-sub001/internal/service"
	"github.com/saumyadesai17/maayaro-sub001/pkg/health"
	"github.com/saumyadesai17/maayaro-sub001/pkg/middleware"
)

// NewRouter creates a chi router with all order engine routes registered.
func NewRouter(
	orderService *service.OrderService,
	paymentService *service.PaymentService,
	shipmentService *service.ShipmentService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("order-engine"))
	r.Use(middleware.Tracing("order-engine"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	orderHandler := NewOrderHandler(orderService, logger)
	paymentHandler := NewPaymentHandler(paymentService, logger)
	shipmentHandler := NewShipmentHandler(shipmentService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/checkout", orderHandler.Checkout)
		r.Post("/checkout/quote", orderHandler.Quote)

		r.Get("/orders", orderHandler.ListOrders)
		r.Get("/orders/{id}", orderHandler.GetOrder)

		r.Post("/payments/verify", paymentHandler.VerifyPayment)
		r.Post("/payments/failed", paymentHandler.PaymentFailed)

		r.Post("/shipments", shipmentHandler.CreateShipment)
		r.Get("/shipments/{id}", shipmentHandler.GetShipment)
		r.Post("/shipments/{id}/track", shipmentHandler.TrackShipment)
	})

	// Webhooks bypass the JSON content-type guard: the gateway and carrier
	// set their own headers and sign the raw body.
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/payment", paymentHandler.GatewayWebhook)
		r.Post("/carrier", shipmentHandler.CarrierWebhook)
	})

	return r
}
