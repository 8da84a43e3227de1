package orders

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
)

const nationalNumberLength = 10

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByOrderID loads an order with its line items. A missing order yields
// (nil, nil).
func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByCustomerPhone returns the newest orders placed from a phone number.
// WhatsApp senders carry the country code while upstream orders may not, so
// the national number and its prefixed forms all match.
func (r *repository) ListByCustomerPhone(ctx context.Context, phone string, limit int) ([]models.Order, error) {
	variants := phoneVariants(phone)
	if len(variants) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Where("customer_phone IN ?", variants).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func phoneVariants(phone string) []string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return nil
	}
	variants := []string{digits, "+" + digits}
	if len(digits) > nationalNumberLength {
		national := digits[len(digits)-nationalNumberLength:]
		variants = append(variants, national, "+"+national)
	}
	return variants
}
