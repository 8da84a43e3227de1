package shiprocketwebhook

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/wa-returns-backend/internal/returns"
	"github.com/angelmondragon/wa-returns-backend/internal/webhooks"
	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/metrics"
	"github.com/angelmondragon/wa-returns-backend/pkg/pubsub"
)

const alertTransitionRejected = "lifecycle.transition_rejected"

// ShippingStatusEvent is a status callback from the shipping provider. Ref is
// the provider's return or exchange reference.
type ShippingStatusEvent struct {
	Ref    string
	Status string
	AWB    string
}

type lifecycle interface {
	ApplyReturnStatus(ctx context.Context, ref string, status enums.ReturnStatus, awb string) (*returns.ReturnUpdate, error)
	ApplyExchangeStatus(ctx context.Context, ref string, status enums.ExchangeStatus, awb string) (*returns.ExchangeUpdate, error)
	ReturnByShippingRef(ctx context.Context, ref string) (*models.Return, error)
	ExchangeByShippingRef(ctx context.Context, ref string) (*models.Exchange, error)
}

type messenger interface {
	SendText(ctx context.Context, phone, text string) error
}

type alertPublisher interface {
	PublishAlert(ctx context.Context, alert pubsub.OpsAlert) error
}

type ServiceParams struct {
	Returns        lifecycle
	Messenger      messenger
	Alerts         alertPublisher
	Metrics        *metrics.WorkflowMetrics
	Logger         *logger.Logger
	CurrencySymbol string
}

type Service struct {
	returns   lifecycle
	messenger messenger
	alerts    alertPublisher
	metrics   *metrics.WorkflowMetrics
	logg      *logger.Logger
	currency  string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Returns == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "returns service required")
	}
	if params.Messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "messenger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	currency := strings.TrimSpace(params.CurrencySymbol)
	if currency == "" {
		currency = "₹"
	}
	return &Service{
		returns:   params.Returns,
		messenger: params.Messenger,
		alerts:    params.Alerts,
		metrics:   params.Metrics,
		logg:      params.Logger,
		currency:  currency,
	}, nil
}

// NormalizeStatus turns provider labels such as "PICKUP SCHEDULED" or
// "Picked-Up" into lifecycle status values.
func NormalizeStatus(raw string) string {
	status := strings.ToLower(strings.TrimSpace(raw))
	status = strings.NewReplacer(" ", "_", "-", "_").Replace(status)
	return status
}

// HandleStatus applies a shipping status to the matching return, or to the
// matching exchange when no return carries the reference, and tells the
// customer. Refused moves are reported to operators instead of the customer.
func (s *Service) HandleStatus(ctx context.Context, event ShippingStatusEvent) (webhooks.Outcome, error) {
	ref := strings.TrimSpace(event.Ref)
	if ref == "" {
		return webhooks.OutcomeIgnored, pkgerrors.New(pkgerrors.CodeValidation, "shipping reference required")
	}
	status := NormalizeStatus(event.Status)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"shiprocket_ref": ref,
		"status":         status,
	})

	returnStatus := enums.ReturnStatus(status)
	exchangeStatus := enums.ExchangeStatus(status)
	if !returnStatus.IsValid() && !exchangeStatus.IsValid() {
		s.reject(ctx, "unknown", ref, "", status)
		return webhooks.OutcomeRejected, nil
	}

	if returnStatus.IsValid() {
		update, err := s.returns.ApplyReturnStatus(ctx, ref, returnStatus, event.AWB)
		switch {
		case errors.Is(err, returns.ErrTransitionNotAllowed) && update != nil:
			s.reject(ctx, string(enums.RequestKindReturn), update.Return.ReturnID, string(update.Previous), status)
			return webhooks.OutcomeRejected, nil
		case err != nil:
			return webhooks.OutcomeFailed, err
		case update != nil:
			return s.notifyReturn(ctx, update), nil
		}
	}

	if exchangeStatus.IsValid() {
		update, err := s.returns.ApplyExchangeStatus(ctx, ref, exchangeStatus, event.AWB)
		switch {
		case errors.Is(err, returns.ErrTransitionNotAllowed) && update != nil:
			s.reject(ctx, string(enums.RequestKindExchange), update.Exchange.ExchangeID, string(update.Previous), status)
			return webhooks.OutcomeRejected, nil
		case err != nil:
			return webhooks.OutcomeFailed, err
		case update != nil:
			return s.notifyExchange(ctx, update), nil
		}
	}

	return s.rejectForOtherKind(ctx, ref, status, returnStatus.IsValid(), exchangeStatus.IsValid())
}

// rejectForOtherKind handles a reference that no apply matched. The record may
// still exist under the other kind, whose lifecycle has no such status.
func (s *Service) rejectForOtherKind(ctx context.Context, ref, status string, returnValid, exchangeValid bool) (webhooks.Outcome, error) {
	if !exchangeValid {
		exc, err := s.returns.ExchangeByShippingRef(ctx, ref)
		if err != nil {
			return webhooks.OutcomeFailed, err
		}
		if exc != nil {
			s.reject(ctx, string(enums.RequestKindExchange), exc.ExchangeID, string(exc.Status), status)
			return webhooks.OutcomeRejected, nil
		}
	}
	if !returnValid {
		ret, err := s.returns.ReturnByShippingRef(ctx, ref)
		if err != nil {
			return webhooks.OutcomeFailed, err
		}
		if ret != nil {
			s.reject(ctx, string(enums.RequestKindReturn), ret.ReturnID, string(ret.Status), status)
			return webhooks.OutcomeRejected, nil
		}
	}
	s.logg.Warn(ctx, "no return or exchange matches shipping reference")
	return webhooks.OutcomeUnmatched, nil
}

func (s *Service) notifyReturn(ctx context.Context, update *returns.ReturnUpdate) webhooks.Outcome {
	ret := update.Return
	ctx = s.logg.WithRecordID(ctx, string(enums.RequestKindReturn), ret.ReturnID)
	if !update.Changed {
		s.logg.Debug(ctx, "return status unchanged")
		return webhooks.OutcomeUnchanged
	}
	s.logg.Info(ctx, "return status updated")
	text := returnStatusMessage(ret, s.currency)
	if text == "" {
		return webhooks.OutcomeUnchanged
	}
	s.send(ctx, ret.CustomerPhone, text)
	return webhooks.OutcomeNotified
}

func (s *Service) notifyExchange(ctx context.Context, update *returns.ExchangeUpdate) webhooks.Outcome {
	exc := update.Exchange
	ctx = s.logg.WithRecordID(ctx, string(enums.RequestKindExchange), exc.ExchangeID)
	if !update.Changed {
		s.logg.Debug(ctx, "exchange status unchanged")
		return webhooks.OutcomeUnchanged
	}
	s.logg.Info(ctx, "exchange status updated")
	text := exchangeStatusMessage(exc)
	if text == "" {
		return webhooks.OutcomeUnchanged
	}
	s.send(ctx, exc.CustomerPhone, text)
	return webhooks.OutcomeNotified
}

func (s *Service) reject(ctx context.Context, kind, reference, from, to string) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"kind":        kind,
		"reference":   reference,
		"from_status": from,
		"to_status":   to,
	})
	s.logg.Warn(ctx, "lifecycle transition rejected")
	s.metrics.IncRejected(kind, from, to)
	if s.alerts == nil {
		return
	}
	err := s.alerts.PublishAlert(ctx, pubsub.OpsAlert{
		Event:     alertTransitionRejected,
		Reference: reference,
		Details: map[string]any{
			"kind": kind,
			"from": from,
			"to":   to,
		},
	})
	if err != nil {
		s.logg.Error(ctx, "failed to publish ops alert", err)
	}
}

func (s *Service) send(ctx context.Context, phone, text string) {
	if phone == "" {
		s.logg.Warn(ctx, "record has no customer phone")
		return
	}
	if err := s.messenger.SendText(ctx, phone, text); err != nil {
		s.logg.Error(ctx, "failed to send whatsapp message", err)
	}
}

// returnStatusMessage renders the customer update for the return's current
// status, or "" when the status has no message.
func returnStatusMessage(ret *models.Return, currency string) string {
	var body string
	switch ret.Status {
	case enums.ReturnStatusPickupScheduled:
		body = "📅 *Pickup Scheduled*\n\nYour return pickup is scheduled. Please keep items ready with original packaging."
	case enums.ReturnStatusPickedUp:
		body = "📦 *Items Picked Up*\n\nYour return items have been picked up and are on their way to our warehouse."
	case enums.ReturnStatusDeliveredToWarehouse:
		body = "🏭 *Received at Warehouse*\n\nYour items have reached our warehouse. Quality check in progress."
	case enums.ReturnStatusQCPassed:
		body = "✅ *Quality Check Passed*\n\nYour return has been approved. Refund will be processed within 3-5 business days."
	case enums.ReturnStatusQCFailed:
		body = "❌ *Quality Check Failed*\n\nYour return could not be approved. Items will be sent back to you. Please contact support for details."
	case enums.ReturnStatusRefundProcessed:
		body = "💰 *Refund Processed*\n\nYour refund of " + currency + returns.FormatAmount(ret.RefundAmount) +
			" has been initiated. It will reflect in your account within 5-7 business days."
	case enums.ReturnStatusCompleted:
		body = "✅ *Return Completed*\n\nYour return has been successfully completed. Thank you!"
	default:
		return ""
	}
	return "🔄 Return ID: " + ret.ReturnID + "\n\n" + body
}

func exchangeStatusMessage(exc *models.Exchange) string {
	var body string
	switch exc.Status {
	case enums.ExchangeStatusPickupScheduled:
		body = "📅 *Pickup Scheduled*\n\nYour exchange pickup is scheduled. Please keep old items ready."
	case enums.ExchangeStatusPickedUp:
		body = "📦 *Items Picked Up*\n\nYour old items have been picked up. Quality check in progress."
	case enums.ExchangeStatusQCPassed:
		body = "✅ *Quality Check Passed*\n\nYour exchange has been approved. New items will be shipped shortly!"
	case enums.ExchangeStatusQCFailed:
		body = "❌ *Quality Check Failed*\n\nYour exchange could not be approved. Please contact support."
	case enums.ExchangeStatusNewOrderCreated:
		body = "📦 *New Order Created*\n\nYour new items have been shipped! You'll receive tracking details soon."
	case enums.ExchangeStatusCompleted:
		body = "✅ *Exchange Completed*\n\nYour exchange has been successfully completed. Enjoy your new items!"
	default:
		return ""
	}
	return "🔄 Exchange ID: " + exc.ExchangeID + "\n\n" + body
}
