package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

const defaultLinkExpiry = 24 * time.Hour

type linkExpirer interface {
	ExpirePaymentLinks(ctx context.Context, cutoff time.Time) ([]models.Exchange, error)
}

type messenger interface {
	SendText(ctx context.Context, phone, text string) error
}

type PaymentLinkExpiryJobParams struct {
	Logger    *logger.Logger
	Exchanges linkExpirer
	Messenger messenger
	Expiry    time.Duration
}

// NewPaymentLinkExpiryJob fails exchanges whose payment link was never paid
// and tells the customer. The order is free for a new request afterwards.
func NewPaymentLinkExpiryJob(params PaymentLinkExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Exchanges == nil {
		return nil, fmt.Errorf("exchange service required")
	}
	expiry := params.Expiry
	if expiry <= 0 {
		expiry = defaultLinkExpiry
	}
	return &paymentLinkExpiryJob{
		logg:      params.Logger,
		exchanges: params.Exchanges,
		messenger: params.Messenger,
		expiry:    expiry,
		now:       time.Now,
	}, nil
}

type paymentLinkExpiryJob struct {
	logg      *logger.Logger
	exchanges linkExpirer
	messenger messenger
	expiry    time.Duration
	now       func() time.Time
}

func (j *paymentLinkExpiryJob) Name() string { return "payment-link-expiry" }

func (j *paymentLinkExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.expiry)
	expired, err := j.exchanges.ExpirePaymentLinks(ctx, cutoff)
	for _, exc := range expired {
		excCtx := j.logg.WithRecordID(ctx, string(enums.RequestKindExchange), exc.ExchangeID)
		j.logg.Info(excCtx, "payment link expired")
		if j.messenger == nil || exc.CustomerPhone == "" {
			continue
		}
		if sendErr := j.messenger.SendText(excCtx, exc.CustomerPhone, linkExpiredMessage(exc.ExchangeID)); sendErr != nil {
			j.logg.Error(excCtx, "failed to send whatsapp message", sendErr)
		}
	}
	if err != nil {
		return fmt.Errorf("expire payment links: %w", err)
	}
	return nil
}

func linkExpiredMessage(exchangeID string) string {
	return "⏰ *Payment Link Expired*\n\n🔄 Exchange ID: " + exchangeID +
		"\n\nThe payment was not received in time, so this exchange was cancelled.\n\nReply \"exchange\" to start a new request."
}
