package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/wa-returns-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/wa-returns-backend/api/controllers/webhooks"
	"github.com/angelmondragon/wa-returns-backend/api/middleware"
	"github.com/angelmondragon/wa-returns-backend/pkg/config"
	"github.com/angelmondragon/wa-returns-backend/pkg/db"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/redis"
)

// WebhookHandlers bundles the collaborators behind the provider callbacks.
type WebhookHandlers struct {
	Inbound         webhookcontrollers.InboundRouter
	Razorpay        webhookcontrollers.RazorpayWebhookService
	RazorpayClient  webhookcontrollers.RazorpaySignatureVerifier
	Shiprocket      webhookcontrollers.ShiprocketWebhookService
	WhatsAppGuard   webhookcontrollers.WebhookGuard
	RazorpayGuard   webhookcontrollers.WebhookGuard
	ShiprocketGuard webhookcontrollers.WebhookGuard
	Metrics         webhookcontrollers.WebhookMetrics
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gatherer prometheus.Gatherer,
	hooks WebhookHandlers,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if redisP != nil {
		deps["redis"] = redisP
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Get("/whatsapp", webhookcontrollers.WhatsAppVerify(cfg.WhatsApp, logg))
		r.Post("/whatsapp", webhookcontrollers.WhatsAppWebhook(hooks.Inbound, cfg.WhatsApp, hooks.WhatsAppGuard, hooks.Metrics, logg))
		r.Post("/razorpay", webhookcontrollers.RazorpayWebhook(hooks.Razorpay, hooks.RazorpayClient, hooks.RazorpayGuard, hooks.Metrics, logg))
		r.Post("/shiprocket/return", webhookcontrollers.ShiprocketWebhook(hooks.Shiprocket, cfg.Shiprocket.WebhookToken, hooks.ShiprocketGuard, hooks.Metrics, logg))
	})

	return r
}
