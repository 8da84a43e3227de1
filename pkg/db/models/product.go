package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry used to price replacement items.
type Product struct {
	SKU       string          `gorm:"column:sku;primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
