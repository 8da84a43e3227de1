package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/wa-returns-backend/api/responses"
	"github.com/angelmondragon/wa-returns-backend/api/validators"
	webhookoutcome "github.com/angelmondragon/wa-returns-backend/internal/webhooks"
	razorpaywebhook "github.com/angelmondragon/wa-returns-backend/internal/webhooks/razorpay"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/razorpay"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	razorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

type RazorpayWebhookService interface {
	HandleEvent(ctx context.Context, event razorpaywebhook.PaymentEvent) (webhookoutcome.Outcome, error)
}

type RazorpaySignatureVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

type razorpayWebhookBody struct {
	Event   string `json:"event" validate:"required"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string          `json:"id"`
				Amount           int64           `json:"amount"`
				ErrorDescription string          `json:"error_description"`
				Notes            json.RawMessage `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// orderID reads notes.order_id. Razorpay sends notes as an empty array when a
// payment carries none.
func (b razorpayWebhookBody) orderID() string {
	var notes map[string]any
	if err := json.Unmarshal(b.Payload.Payment.Entity.Notes, &notes); err != nil {
		return ""
	}
	if v, ok := notes["order_id"]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func (b razorpayWebhookBody) toEvent() razorpaywebhook.PaymentEvent {
	entity := b.Payload.Payment.Entity
	return razorpaywebhook.PaymentEvent{
		Event:     b.Event,
		OrderID:   b.orderID(),
		PaymentID: entity.ID,
		Amount:    razorpay.FromPaise(entity.Amount),
		ErrorText: entity.ErrorDescription,
	}
}

// RazorpayWebhook verifies and dedupes payment callbacks before handing them
// to the exchange payment flow. Processing failures answer 5xx and release the
// dedupe key so Razorpay retries.
func RazorpayWebhook(svc RazorpayWebhookService, verifier RazorpaySignatureVerifier, guard WebhookGuard, metrics WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "razorpay client unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sig := r.Header.Get(razorpaySignatureHeader)
		if sig == "" {
			countOutcome(metrics, providerRazorpay, string(webhookoutcome.OutcomeRejected))
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "razorpay signature missing"))
			return
		}
		if !verifier.VerifyWebhookSignature(body, sig) {
			countOutcome(metrics, providerRazorpay, string(webhookoutcome.OutcomeRejected))
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid signature"))
			return
		}

		var payload razorpayWebhookBody
		if err := validators.DecodeJSONBytes(body, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		event := payload.toEvent()

		eventID := strings.TrimSpace(r.Header.Get(razorpayEventIDHeader))
		if eventID == "" {
			eventID = event.Event + ":" + event.PaymentID
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "event_id", eventID)
		}

		if guard != nil {
			dup, err := guard.CheckAndMark(ctx, eventID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if dup {
				countOutcome(metrics, providerRazorpay, string(webhookoutcome.OutcomeDuplicate))
				responses.WriteSuccess(w, nil)
				return
			}
		}

		outcome, err := svc.HandleEvent(ctx, event)
		countOutcome(metrics, providerRazorpay, string(outcome))
		if err != nil {
			releaseGuard(ctx, guard, eventID, logg)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", string(outcome)), "razorpay event processed")
		}
		responses.WriteSuccess(w, nil)
	}
}
