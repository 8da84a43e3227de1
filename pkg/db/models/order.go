package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
)

// Order is the upstream order snapshot. This service only reads it.
type Order struct {
	OrderID         string            `gorm:"column:order_id;primaryKey"`
	Status          enums.OrderStatus `gorm:"column:status;not null"`
	DeliveredAt     *time.Time        `gorm:"column:delivered_at"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	CustomerPhone   string            `gorm:"column:customer_phone;not null"`
	CustomerEmail   *string           `gorm:"column:customer_email"`
	ShippingAddress string            `gorm:"column:shipping_address;not null"`
	ShippingCity    string            `gorm:"column:shipping_city;not null"`
	ShippingState   string            `gorm:"column:shipping_state;not null"`
	ShippingPincode string            `gorm:"column:shipping_pincode;not null"`
	ShippingCountry string            `gorm:"column:shipping_country;not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentID       *string           `gorm:"column:payment_id"`
	LineItems       []OrderLineItem   `gorm:"foreignKey:OrderID;references:OrderID"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLineItem captures one purchased item of an order.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   string          `gorm:"column:order_id;not null;index"`
	SKU       string          `gorm:"column:sku;not null"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (l *OrderLineItem) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
