package main

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/wa-returns-backend/api/routes"
	"github.com/angelmondragon/wa-returns-backend/internal/catalog"
	"github.com/angelmondragon/wa-returns-backend/internal/conversation"
	"github.com/angelmondragon/wa-returns-backend/internal/cron"
	"github.com/angelmondragon/wa-returns-backend/internal/messages"
	"github.com/angelmondragon/wa-returns-backend/internal/orders"
	"github.com/angelmondragon/wa-returns-backend/internal/returns"
	"github.com/angelmondragon/wa-returns-backend/internal/webhooks"
	razorpaywebhook "github.com/angelmondragon/wa-returns-backend/internal/webhooks/razorpay"
	shiprocketwebhook "github.com/angelmondragon/wa-returns-backend/internal/webhooks/shiprocket"
	"github.com/angelmondragon/wa-returns-backend/pkg/config"
	"github.com/angelmondragon/wa-returns-backend/pkg/db"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/metrics"
	"github.com/angelmondragon/wa-returns-backend/pkg/pubsub"
	"github.com/angelmondragon/wa-returns-backend/pkg/razorpay"
	"github.com/angelmondragon/wa-returns-backend/pkg/redis"
	"github.com/angelmondragon/wa-returns-backend/pkg/shiprocket"
	"github.com/angelmondragon/wa-returns-backend/pkg/whatsapp"
)

const (
	dailyInterval = 24 * time.Hour

	guardScopeWhatsApp   = "whatsapp"
	guardScopeRazorpay   = "razorpay"
	guardScopeShiprocket = "shiprocket"
)

type app struct {
	returns        *returns.Service
	sessions       conversation.Store
	messageRepo    messages.Repository
	messenger      *messages.LoggingMessenger
	inbound        *messages.Router
	razorpay       *razorpay.Client
	razorpayHook   *razorpaywebhook.Service
	shiprocketHook *shiprocketwebhook.Service
	pubsub         *pubsub.Client

	whatsappGuard   *webhooks.IdempotencyGuard
	razorpayGuard   *webhooks.IdempotencyGuard
	shiprocketGuard *webhooks.IdempotencyGuard
}

func buildApp(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, wf *metrics.WorkflowMetrics) (*app, error) {
	a := &app{}

	waClient, err := whatsapp.NewClient(cfg.WhatsApp)
	if err != nil {
		return nil, fmt.Errorf("whatsapp client: %w", err)
	}
	shipClient, err := shiprocket.NewClient(cfg.Shiprocket)
	if err != nil {
		return nil, fmt.Errorf("shiprocket client: %w", err)
	}

	a.messageRepo = messages.NewRepository(dbClient.DB())
	a.messenger = messages.NewLoggingMessenger(waClient, a.messageRepo, logg)

	returnsParams := returns.ServiceParams{
		Repository:        returns.NewRepository(dbClient.DB()),
		Orders:            orders.NewRepository(dbClient.DB()),
		Shipping:          shipClient,
		TransactionRunner: dbClient,
		Logger:            logg,
		WindowDays:        cfg.Returns.WindowDays,
		Location:          cfg.Returns.Location(),
	}
	if cfg.Razorpay.Enabled() {
		a.razorpay, err = razorpay.NewClient(ctx, cfg.Razorpay, cfg.Returns.PaymentLinkExpiry, logg)
		if err != nil {
			return nil, fmt.Errorf("razorpay client: %w", err)
		}
		returnsParams.Payments = a.razorpay
	} else {
		logg.Warn(ctx, "razorpay keys not set, exchanges with a balance and refunds are disabled")
	}
	a.returns, err = returns.NewService(returnsParams)
	if err != nil {
		return nil, err
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}

	if cfg.Sessions.UsesRedis() {
		a.sessions, err = conversation.NewRedisStore(redisClient, cfg.Sessions.IdleTTL)
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
	} else {
		a.sessions = conversation.NewMemoryStore(cfg.Sessions.IdleTTL, nil)
	}

	handler, err := conversation.NewHandler(conversation.HandlerParams{
		Store:          a.sessions,
		Returns:        a.returns,
		Catalog:        catalogSvc,
		Tracking:       shipClient,
		Messenger:      a.messenger,
		Metrics:        wf,
		Logger:         logg,
		CurrencySymbol: cfg.Returns.CurrencySymbol,
		SupportContact: cfg.Returns.SupportContact,
		LinkExpiry:     cfg.Returns.PaymentLinkExpiry,
		Location:       cfg.Returns.Location(),
	})
	if err != nil {
		return nil, err
	}

	orderStatus, err := messages.NewOrderStatusResponder(messages.OrderStatusParams{
		Orders:         orders.NewRepository(dbClient.DB()),
		Tracking:       shipClient,
		CurrencySymbol: cfg.Returns.CurrencySymbol,
		Location:       cfg.Returns.Location(),
	})
	if err != nil {
		return nil, err
	}

	a.inbound, err = messages.NewRouter(messages.RouterParams{
		Repository:     a.messageRepo,
		Conversation:   handler,
		OrderStatus:    orderStatus,
		Messenger:      a.messenger,
		Logger:         logg,
		SupportContact: cfg.Returns.SupportContact,
	})
	if err != nil {
		return nil, err
	}

	shipParams := shiprocketwebhook.ServiceParams{
		Returns:        a.returns,
		Messenger:      a.messenger,
		Metrics:        wf,
		Logger:         logg,
		CurrencySymbol: cfg.Returns.CurrencySymbol,
	}
	if cfg.PubSub.Enabled() {
		a.pubsub, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, fmt.Errorf("pubsub client: %w", err)
		}
		if alerts := pubsub.NewAlertPublisher(a.pubsub.OpsAlertPublisher()); alerts != nil {
			shipParams.Alerts = alerts
		}
	}
	a.shiprocketHook, err = shiprocketwebhook.NewService(shipParams)
	if err != nil {
		return nil, err
	}

	a.razorpayHook, err = razorpaywebhook.NewService(razorpaywebhook.ServiceParams{
		Exchanges: a.returns,
		Messenger: a.messenger,
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}

	ttl := cfg.Eventing.WebhookIdempotencyTTL
	if a.whatsappGuard, err = webhooks.NewIdempotencyGuard(redisClient, ttl, guardScopeWhatsApp); err != nil {
		return nil, err
	}
	if a.razorpayGuard, err = webhooks.NewIdempotencyGuard(redisClient, ttl, guardScopeRazorpay); err != nil {
		return nil, err
	}
	if a.shiprocketGuard, err = webhooks.NewIdempotencyGuard(redisClient, ttl, guardScopeShiprocket); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *app) Webhooks(wf *metrics.WorkflowMetrics) routes.WebhookHandlers {
	hooks := routes.WebhookHandlers{
		Inbound:         a.inbound,
		Razorpay:        a.razorpayHook,
		Shiprocket:      a.shiprocketHook,
		WhatsAppGuard:   a.whatsappGuard,
		RazorpayGuard:   a.razorpayGuard,
		ShiprocketGuard: a.shiprocketGuard,
		Metrics:         wf,
	}
	if a.razorpay != nil {
		hooks.RazorpayClient = a.razorpay
	}
	return hooks
}

func (a *app) Close() error {
	return a.pubsub.Close()
}

// buildSchedulers returns one cron service per cadence. Memory sessions are
// owned by this replica, so a local lock is used; otherwise replicas share a
// Redis lock.
func buildSchedulers(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, a *app, cronMetrics *metrics.CronJobMetrics) ([]*cron.Service, error) {
	sessionJob, err := cron.NewSessionExpiryJob(a.sessions, logg)
	if err != nil {
		return nil, err
	}
	linkJob, err := cron.NewPaymentLinkExpiryJob(cron.PaymentLinkExpiryJobParams{
		Logger:    logg,
		Exchanges: a.returns,
		Messenger: a.messenger,
		Expiry:    cfg.Returns.PaymentLinkExpiry,
	})
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewMessageRetentionJob(cron.MessageRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: a.messageRepo,
		Retention:  cfg.Returns.MessageRetention,
	})
	if err != nil {
		return nil, err
	}

	frequentLock, err := schedulerLock(cfg, redisClient, "frequent")
	if err != nil {
		return nil, err
	}
	dailyLock, err := schedulerLock(cfg, redisClient, "daily")
	if err != nil {
		return nil, err
	}

	frequent, err := cron.NewService(cron.ServiceParams{
		Name:     "frequent",
		Logger:   logg,
		Registry: cron.NewRegistry(sessionJob, linkJob),
		Lock:     frequentLock,
		Metrics:  cronMetrics,
		Interval: cfg.Sessions.SweepInterval,
	})
	if err != nil {
		return nil, err
	}
	daily, err := cron.NewService(cron.ServiceParams{
		Name:     "daily",
		Logger:   logg,
		Registry: cron.NewRegistry(retentionJob),
		Lock:     dailyLock,
		Metrics:  cronMetrics,
		Interval: dailyInterval,
	})
	if err != nil {
		return nil, err
	}
	return []*cron.Service{frequent, daily}, nil
}

func schedulerLock(cfg *config.Config, redisClient *redis.Client, name string) (cron.Lock, error) {
	if !cfg.Sessions.UsesRedis() {
		return cron.NewLocalLock(), nil
	}
	return cron.NewRedisLock(redisClient, redisClient.LockKey("cron-"+name), 0)
}
