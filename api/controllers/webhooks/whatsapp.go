package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/wa-returns-backend/api/responses"
	"github.com/angelmondragon/wa-returns-backend/api/validators"
	webhookoutcome "github.com/angelmondragon/wa-returns-backend/internal/webhooks"
	"github.com/angelmondragon/wa-returns-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/whatsapp"
)

const whatsappSignatureHeader = "X-Hub-Signature-256"

type InboundRouter interface {
	Route(ctx context.Context, phone, text string)
}

// WhatsAppVerify answers the Meta subscription handshake by echoing
// hub.challenge when the verify token matches.
func WhatsAppVerify(cfg config.WhatsAppConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode := q.Get("hub.mode")
		token := q.Get("hub.verify_token")
		challenge := q.Get("hub.challenge")

		if mode == "subscribe" && cfg.VerifyToken != "" && token == cfg.VerifyToken {
			if logg != nil {
				logg.Info(r.Context(), "whatsapp webhook verified")
			}
			responses.WriteText(w, http.StatusOK, challenge)
			return
		}
		if logg != nil {
			logg.Warn(logg.WithField(r.Context(), "mode", mode), "whatsapp webhook verification failed")
		}
		responses.WriteText(w, http.StatusForbidden, "forbidden")
	}
}

// WhatsAppWebhook routes every inbound text message through the bot. Messages
// are handled in payload order so one sender's dialogue stays sequential.
// Anything past signature checks is acknowledged with 200 so Meta does not
// redeliver messages the bot already answered.
func WhatsAppWebhook(router InboundRouter, cfg config.WhatsAppConfig, guard WebhookGuard, metrics WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if router == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "message router unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if cfg.AppSecret != "" && !whatsapp.VerifySignature(cfg.AppSecret, body, r.Header.Get(whatsappSignatureHeader)) {
			countOutcome(metrics, providerWhatsApp, string(webhookoutcome.OutcomeRejected))
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		var payload whatsapp.WebhookPayload
		if err := validators.DecodeJSONBytes(body, &payload); err != nil {
			if logg != nil {
				logg.Warn(ctx, "dropping malformed whatsapp payload")
			}
			countOutcome(metrics, providerWhatsApp, string(webhookoutcome.OutcomeIgnored))
			responses.WriteSuccess(w, nil)
			return
		}

		for _, msg := range payload.TextMessages() {
			msgCtx := ctx
			if logg != nil {
				msgCtx = logg.WithFields(ctx, map[string]any{"message_id": msg.MessageID})
			}

			if guard != nil && strings.TrimSpace(msg.MessageID) != "" {
				dup, err := guard.CheckAndMark(msgCtx, msg.MessageID)
				if err != nil {
					if logg != nil {
						logg.Error(msgCtx, "failed to check message idempotency", err)
					}
				} else if dup {
					countOutcome(metrics, providerWhatsApp, string(webhookoutcome.OutcomeDuplicate))
					continue
				}
			}

			router.Route(msgCtx, whatsapp.NormalizePhone(msg.Phone), msg.Text)
			countOutcome(metrics, providerWhatsApp, string(webhookoutcome.OutcomeRouted))
		}

		responses.WriteSuccess(w, nil)
	}
}
