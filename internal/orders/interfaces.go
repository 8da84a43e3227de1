package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
)

// Repository reads upstream orders. Orders are never written here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	ListByCustomerPhone(ctx context.Context, phone string, limit int) ([]models.Order, error)
}
