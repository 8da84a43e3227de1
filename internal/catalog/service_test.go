package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))

	products := []models.Product{
		{SKU: "TEE-BLK-L", Name: "Black Tee Large", Price: decimal.NewFromInt(1200), IsActive: true},
		{SKU: "TEE-BLK-M", Name: "Black Tee Medium", Price: decimal.NewFromInt(1000), IsActive: true},
		{SKU: "HOODIE-GRY", Name: "Grey Hoodie", Price: decimal.NewFromInt(2500), IsActive: true},
		{SKU: "OLD-CAP", Name: "Retired Cap", Price: decimal.NewFromInt(300), IsActive: true},
	}
	require.NoError(t, db.Create(&products).Error)
	require.NoError(t, db.Model(&models.Product{}).Where("sku = ?", "OLD-CAP").Update("is_active", false).Error)
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(setupCatalogTestDB(t)))
	require.NoError(t, err)
	return svc
}

func TestResolveBySKUCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	product, err := svc.Resolve(context.Background(), " tee-blk-l ")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "TEE-BLK-L", product.SKU)
	assert.True(t, product.Price.Equal(decimal.NewFromInt(1200)))
}

func TestResolveByExactName(t *testing.T) {
	svc := newTestService(t)
	product, err := svc.Resolve(context.Background(), "black tee medium")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "TEE-BLK-M", product.SKU)
}

func TestResolveByUniqueFragment(t *testing.T) {
	svc := newTestService(t)
	product, err := svc.Resolve(context.Background(), "hoodie")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "HOODIE-GRY", product.SKU)
}

func TestResolveAmbiguousOrInactiveReturnsNil(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product, err := svc.Resolve(ctx, "black tee")
	require.NoError(t, err)
	assert.Nil(t, product, "two tees match the fragment")

	product, err = svc.Resolve(ctx, "OLD-CAP")
	require.NoError(t, err)
	assert.Nil(t, product, "inactive products are not offered")

	product, err = svc.Resolve(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, product)
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
