package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
)

// Repository looks up active catalog products.
type Repository interface {
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	FindByName(ctx context.Context, name string) (*models.Product, error)
	SearchByName(ctx context.Context, fragment string, limit int) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("UPPER(sku) = ? AND is_active = ?", strings.ToUpper(sku), true).
		First(&product).Error
	return firstOrNil(&product, err)
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ? AND is_active = ?", strings.ToLower(name), true).
		First(&product).Error
	return firstOrNil(&product, err)
}

func (r *repository) SearchByName(ctx context.Context, fragment string, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 5
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? AND is_active = ?", "%"+strings.ToLower(fragment)+"%", true).
		Order("name ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func firstOrNil(product *models.Product, err error) (*models.Product, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return product, nil
}
