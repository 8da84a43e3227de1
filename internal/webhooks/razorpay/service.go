package razorpaywebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wa-returns-backend/internal/returns"
	"github.com/angelmondragon/wa-returns-backend/internal/webhooks"
	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"

	defaultFailureReason = "Payment declined"
)

// PaymentEvent is a payment callback reduced to what the exchange flow needs.
// OrderID comes from the notes attached when the payment link was created.
type PaymentEvent struct {
	Event     string
	OrderID   string
	PaymentID string
	Amount    decimal.Decimal
	ErrorText string
}

type exchangePayments interface {
	CompleteExchangePayment(ctx context.Context, orderID, paymentID string) (*returns.PaymentOutcome, error)
	FailExchangePayment(ctx context.Context, orderID string) (*models.Exchange, error)
}

type messenger interface {
	SendText(ctx context.Context, phone, text string) error
}

type ServiceParams struct {
	Exchanges exchangePayments
	Messenger messenger
	Logger    *logger.Logger
}

type Service struct {
	exchanges exchangePayments
	messenger messenger
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Exchanges == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "exchange service required")
	}
	if params.Messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "messenger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		exchanges: params.Exchanges,
		messenger: params.Messenger,
		logg:      params.Logger,
	}, nil
}

// HandleEvent settles or reports the exchange payment named by the event.
// Events for payments that carry no order id, or whose order has no pending
// exchange, are ignored.
func (s *Service) HandleEvent(ctx context.Context, event PaymentEvent) (webhooks.Outcome, error) {
	orderID := strings.TrimSpace(event.OrderID)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event":      event.Event,
		"order_id":   orderID,
		"payment_id": event.PaymentID,
	})

	switch event.Event {
	case EventPaymentCaptured, EventPaymentFailed:
	default:
		s.logg.Debug(ctx, "ignoring payment event")
		return webhooks.OutcomeIgnored, nil
	}
	if orderID == "" {
		s.logg.Warn(ctx, "payment event has no order id")
		return webhooks.OutcomeIgnored, nil
	}

	if event.Event == EventPaymentCaptured {
		return s.handleCaptured(ctx, orderID, event)
	}
	return s.handleFailed(ctx, orderID, event)
}

func (s *Service) handleCaptured(ctx context.Context, orderID string, event PaymentEvent) (webhooks.Outcome, error) {
	outcome, err := s.exchanges.CompleteExchangePayment(ctx, orderID, event.PaymentID)
	if errors.Is(err, returns.ErrRecordNotFound) {
		s.logg.Warn(ctx, "no pending exchange for captured payment")
		return webhooks.OutcomeUnmatched, nil
	}
	if err != nil {
		s.logg.Error(ctx, "failed to complete exchange payment", err)
		return webhooks.OutcomeFailed, err
	}

	exc := outcome.Exchange
	ctx = s.logg.WithRecordID(ctx, string(enums.RequestKindExchange), exc.ExchangeID)
	if outcome.PickupPending {
		s.send(ctx, exc.CustomerPhone, paymentReceivedPickupPendingMessage(event.PaymentID, exc.ExchangeID))
		return webhooks.OutcomeNotified, nil
	}
	s.send(ctx, exc.CustomerPhone, paymentReceivedMessage(event.PaymentID, exc.ExchangeID, outcome.PickupDate))
	return webhooks.OutcomeNotified, nil
}

func (s *Service) handleFailed(ctx context.Context, orderID string, event PaymentEvent) (webhooks.Outcome, error) {
	exc, err := s.exchanges.FailExchangePayment(ctx, orderID)
	if errors.Is(err, returns.ErrRecordNotFound) {
		s.logg.Warn(ctx, "no pending exchange for failed payment")
		return webhooks.OutcomeUnmatched, nil
	}
	if err != nil {
		s.logg.Error(ctx, "failed to load exchange for failed payment", err)
		return webhooks.OutcomeFailed, err
	}

	ctx = s.logg.WithRecordID(ctx, string(enums.RequestKindExchange), exc.ExchangeID)
	s.logg.Info(ctx, "exchange payment failed")
	s.send(ctx, exc.CustomerPhone, paymentFailedMessage(exc.ExchangeID, event.ErrorText))
	return webhooks.OutcomeNotified, nil
}

func (s *Service) send(ctx context.Context, phone, text string) {
	if err := s.messenger.SendText(ctx, phone, text); err != nil {
		s.logg.Error(ctx, "failed to send whatsapp message", err)
	}
}

func paymentReceivedMessage(paymentID, exchangeID, pickupDate string) string {
	return fmt.Sprintf("✅ *Payment Received!*\n\n💳 Payment ID: %s\n🔄 Exchange ID: %s\n\n📅 Pickup scheduled for: %s\n\n"+
		"📦 Next Steps:\n1. Keep old items ready\n2. Courier will pick up on %s\n3. New items ship after quality check\n\n"+
		"Track status: Reply \"exchange status %s\"", paymentID, exchangeID, pickupDate, pickupDate, exchangeID)
}

func paymentReceivedPickupPendingMessage(paymentID, exchangeID string) string {
	return fmt.Sprintf("✅ *Payment Received!*\n\n💳 Payment ID: %s\n🔄 Exchange ID: %s\n\n"+
		"⏳ Pickup pending: we could not book the courier yet. Support will confirm the pickup date.\n\n"+
		"Track status: Reply \"exchange status %s\"", paymentID, exchangeID, exchangeID)
}

func paymentFailedMessage(exchangeID, reason string) string {
	if strings.TrimSpace(reason) == "" {
		reason = defaultFailureReason
	}
	return fmt.Sprintf("❌ *Payment Failed*\n\n🔄 Exchange ID: %s\n\nYour payment could not be processed. "+
		"Please try again or contact support.\n\nReason: %s", exchangeID, reason)
}
