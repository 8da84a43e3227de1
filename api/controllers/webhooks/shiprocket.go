package webhooks

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/wa-returns-backend/api/responses"
	"github.com/angelmondragon/wa-returns-backend/api/validators"
	webhookoutcome "github.com/angelmondragon/wa-returns-backend/internal/webhooks"
	shiprocketwebhook "github.com/angelmondragon/wa-returns-backend/internal/webhooks/shiprocket"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

const shiprocketTokenHeader = "X-Api-Key"

type ShiprocketWebhookService interface {
	HandleStatus(ctx context.Context, event shiprocketwebhook.ShippingStatusEvent) (webhookoutcome.Outcome, error)
}

type shiprocketStatusRequest struct {
	OrderID       validators.FlexibleString `json:"order_id" validate:"required"`
	Status        string                    `json:"status"`
	CurrentStatus string                    `json:"current_status"`
	AWB           validators.FlexibleString `json:"awb"`
}

func (r shiprocketStatusRequest) status() string {
	if s := strings.TrimSpace(r.Status); s != "" {
		return s
	}
	return strings.TrimSpace(r.CurrentStatus)
}

// ShiprocketWebhook applies return/exchange shipping updates. Rejected and
// unmatched updates are acknowledged; only store failures answer 5xx.
func ShiprocketWebhook(svc ShiprocketWebhookService, token string, guard WebhookGuard, metrics WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(shiprocketTokenHeader)), []byte(token)) != 1 {
			countOutcome(metrics, providerShiprocket, string(webhookoutcome.OutcomeRejected))
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook token"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		var req shiprocketStatusRequest
		if err := validators.DecodeJSONBytes(body, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status := req.status()
		if status == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"status": "is required"}))
			return
		}

		event := shiprocketwebhook.ShippingStatusEvent{
			Ref:    req.OrderID.String(),
			Status: status,
			AWB:    req.AWB.String(),
		}
		key := event.Ref + ":" + shiprocketwebhook.NormalizeStatus(status)
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"shiprocket_ref": event.Ref, "status": status})
		}

		if guard != nil {
			dup, err := guard.CheckAndMark(ctx, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if dup {
				countOutcome(metrics, providerShiprocket, string(webhookoutcome.OutcomeDuplicate))
				responses.WriteSuccess(w, nil)
				return
			}
		}

		outcome, err := svc.HandleStatus(ctx, event)
		countOutcome(metrics, providerShiprocket, string(outcome))
		if err != nil {
			releaseGuard(ctx, guard, key, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
