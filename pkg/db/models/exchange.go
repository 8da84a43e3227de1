package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	"github.com/angelmondragon/wa-returns-backend/pkg/types"
)

// Exchange swaps delivered items for new ones. PriceDifference is
// Σnew − Σold: positive means the customer pays, negative means a refund.
type Exchange struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ExchangeID           string               `gorm:"column:exchange_id;not null;uniqueIndex"`
	OrderID              string               `gorm:"column:order_id;not null;index;uniqueIndex:idx_exchanges_open_order,where:status <> 'completed' AND status <> 'qc_failed' AND payment_status <> 'failed'"`
	CustomerPhone        string               `gorm:"column:customer_phone;not null"`
	OldItems             types.Items          `gorm:"column:old_items;type:jsonb;not null"`
	NewItems             types.Items          `gorm:"column:new_items;type:jsonb;not null"`
	Reason               string               `gorm:"column:reason;not null"`
	PriceDifference      decimal.Decimal      `gorm:"column:price_difference;type:numeric(12,2);not null"`
	PaymentStatus        enums.PaymentStatus  `gorm:"column:payment_status;not null"`
	Status               enums.ExchangeStatus `gorm:"column:status;not null"`
	PaymentLinkID        *string              `gorm:"column:payment_link_id"`
	PaymentLinkURL       *string              `gorm:"column:payment_link_url"`
	PaymentID            *string              `gorm:"column:payment_id"`
	ShiprocketExchangeID *string              `gorm:"column:shiprocket_exchange_id;index"`
	AWBCode              *string              `gorm:"column:awb_code"`
	PickupScheduledDate  *string              `gorm:"column:pickup_scheduled_date"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *Exchange) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
