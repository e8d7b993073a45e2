package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novamart/novamart-backend/api/controllers"
	ordercontrollers "github.com/novamart/novamart-backend/api/controllers/orders"
	paymentcontrollers "github.com/novamart/novamart-backend/api/controllers/payments"
	"github.com/novamart/novamart-backend/api/middleware"
	"github.com/novamart/novamart-backend/internal/orders"
	"github.com/novamart/novamart-backend/internal/payments"
	"github.com/novamart/novamart-backend/pkg/config"
	"github.com/novamart/novamart-backend/pkg/logger"
	"github.com/novamart/novamart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	paymentsSvc payments.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Get("/{orderId}/track", ordercontrollers.Track(ordersSvc, logg))
			r.Patch("/{orderId}/status", ordercontrollers.UpdateStatus(ordersSvc, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
			r.Post("/{orderId}/return", ordercontrollers.RequestReturn(ordersSvc, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intent", paymentcontrollers.CreateIntent(paymentsSvc, logg))
			r.Post("/verify", paymentcontrollers.Verify(paymentsSvc, logg))
			r.Post("/{orderId}/fail", paymentcontrollers.MarkFailed(paymentsSvc, logg))
			r.Get("/history", paymentcontrollers.History(paymentsSvc, logg))
		})
	})

	return r
}
