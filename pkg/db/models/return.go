package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	"github.com/angelmondragon/wa-returns-backend/pkg/types"
)

// Return is a customer's request to send items back for a refund.
// RefundAmount is fixed at creation. An order holds at most one open return.
type Return struct {
	ID                  uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ReturnID            string             `gorm:"column:return_id;not null;uniqueIndex"`
	OrderID             string             `gorm:"column:order_id;not null;index;uniqueIndex:idx_returns_open_order,where:status <> 'completed' AND status <> 'qc_failed'"`
	CustomerPhone       string             `gorm:"column:customer_phone;not null"`
	Items               types.Items        `gorm:"column:items;type:jsonb;not null"`
	Reason              string             `gorm:"column:reason;not null"`
	Status              enums.ReturnStatus `gorm:"column:status;not null"`
	RefundAmount        decimal.Decimal    `gorm:"column:refund_amount;type:numeric(12,2);not null"`
	RefundStatus        enums.RefundStatus `gorm:"column:refund_status;not null"`
	ShiprocketReturnID  *string            `gorm:"column:shiprocket_return_id;index"`
	AWBCode             *string            `gorm:"column:awb_code"`
	PickupScheduledDate *string            `gorm:"column:pickup_scheduled_date"`
	RefundID            *string            `gorm:"column:refund_id"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Return) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
