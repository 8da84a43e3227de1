package webhooks

import (
	"context"
	"strings"

	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

type WebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type WebhookMetrics interface {
	IncWebhook(provider, outcome string)
}

const (
	providerWhatsApp   = "whatsapp"
	providerRazorpay   = "razorpay"
	providerShiprocket = "shiprocket"
)

func countOutcome(m WebhookMetrics, provider, outcome string) {
	if m != nil {
		m.IncWebhook(provider, outcome)
	}
}

// releaseGuard drops the dedupe key so a provider retry is processed again.
func releaseGuard(ctx context.Context, guard WebhookGuard, key string, logg *logger.Logger) {
	if guard == nil || strings.TrimSpace(key) == "" {
		return
	}
	if err := guard.Delete(ctx, key); err != nil && logg != nil {
		logg.Error(ctx, "failed to release webhook idempotency key", err)
	}
}
