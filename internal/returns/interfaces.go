package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/razorpay"
	"github.com/angelmondragon/wa-returns-backend/pkg/shiprocket"
)

// Repository persists returns and exchanges. Finders return (nil, nil) when
// nothing matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateReturn(ctx context.Context, ret *models.Return) error
	CreateExchange(ctx context.Context, exc *models.Exchange) error
	DeleteReturn(ctx context.Context, id uuid.UUID) error
	DeleteExchange(ctx context.Context, id uuid.UUID) error
	LockOrder(ctx context.Context, orderID string) error
	FindReturnByReturnID(ctx context.Context, returnID string) (*models.Return, error)
	FindExchangeByExchangeID(ctx context.Context, exchangeID string) (*models.Exchange, error)
	FindReturnByShiprocketID(ctx context.Context, ref string) (*models.Return, error)
	FindExchangeByShiprocketID(ctx context.Context, ref string) (*models.Exchange, error)
	FindPendingExchangeByOrderID(ctx context.Context, orderID string) (*models.Exchange, error)
	ListPendingPaymentsBefore(ctx context.Context, cutoff time.Time) ([]models.Exchange, error)
	HasActiveRequest(ctx context.Context, orderID string) (bool, error)
	UpdateReturn(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateExchange(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// OrderReader loads the upstream order snapshot.
type OrderReader interface {
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
}

// ShippingProvider creates reverse shipments and books pickups.
type ShippingProvider interface {
	CreateReturn(ctx context.Context, req shiprocket.ReturnRequest) (*shiprocket.ReturnResult, error)
	SchedulePickup(ctx context.Context, returnRef, pickupDate string) (*shiprocket.PickupResult, error)
}

// PaymentProvider collects exchange balances and refunds returns.
type PaymentProvider interface {
	CreatePaymentLink(ctx context.Context, amount decimal.Decimal, orderID string, customer razorpay.Customer) (*razorpay.PaymentLink, error)
	CancelPaymentLink(ctx context.Context, linkID string) error
	Refund(ctx context.Context, paymentID string, amount decimal.Decimal, notes map[string]string) (*razorpay.Refund, error)
}
