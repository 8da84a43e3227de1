package returns

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgdb "github.com/angelmondragon/wa-returns-backend/pkg/db"
	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/types"
)

func setupReturnsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderLineItem{}, &models.Return{}, &models.Exchange{}))
	return db
}

func strPtr(v string) *string { return &v }

func sampleItems(price int64) types.Items {
	return types.Items{{SKU: "TEE-M", Name: "Tee", Price: decimal.NewFromInt(price), Quantity: 1}}
}

func TestReturnRoundTripAndShiprocketLookup(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	ret := &models.Return{
		ReturnID:           "RET-1-ABCDEFGHI",
		OrderID:            "ORD-1001",
		CustomerPhone:      "919876543210",
		Items:              sampleItems(999),
		Reason:             "Wrong size",
		Status:             enums.ReturnStatusInitiated,
		RefundAmount:       decimal.NewFromInt(999),
		RefundStatus:       enums.RefundStatusPending,
		ShiprocketReturnID: strPtr("SR-77"),
	}
	require.NoError(t, repo.CreateReturn(ctx, ret))
	assert.NotEqual(t, uuid.Nil, ret.ID)

	found, err := repo.FindReturnByReturnID(ctx, "RET-1-ABCDEFGHI")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ORD-1001", found.OrderID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "TEE-M", found.Items[0].SKU)
	assert.True(t, found.RefundAmount.Equal(decimal.NewFromInt(999)))

	bySR, err := repo.FindReturnByShiprocketID(ctx, "SR-77")
	require.NoError(t, err)
	require.NotNil(t, bySR)
	assert.Equal(t, ret.ID, bySR.ID)

	require.NoError(t, repo.UpdateReturn(ctx, ret.ID, map[string]any{"status": enums.ReturnStatusPickedUp, "awb_code": "AWB1"}))
	updated, err := repo.FindReturnByReturnID(ctx, "RET-1-ABCDEFGHI")
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusPickedUp, updated.Status)
	require.NotNil(t, updated.AWBCode)
	assert.Equal(t, "AWB1", *updated.AWBCode)

	missing, err := repo.FindReturnByShiprocketID(ctx, "SR-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindPendingExchangeByOrderIDIgnoresSettled(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	settled := &models.Exchange{
		ExchangeID: "EXC-1", OrderID: "ORD-2", CustomerPhone: "91",
		OldItems: sampleItems(1000), NewItems: sampleItems(1200), Reason: "Wrong size",
		PriceDifference: decimal.NewFromInt(200), PaymentStatus: enums.PaymentStatusCompleted,
		Status: enums.ExchangeStatusCompleted, ShiprocketExchangeID: strPtr("SR-9"),
	}
	pending := &models.Exchange{
		ExchangeID: "EXC-2", OrderID: "ORD-2", CustomerPhone: "91",
		OldItems: sampleItems(1000), NewItems: sampleItems(1200), Reason: "Wrong size",
		PriceDifference: decimal.NewFromInt(200), PaymentStatus: enums.PaymentStatusPending,
		Status: enums.ExchangeStatusPaymentPending, PaymentLinkID: strPtr("plink_1"),
	}
	require.NoError(t, repo.CreateExchange(ctx, settled))
	require.NoError(t, repo.CreateExchange(ctx, pending))

	found, err := repo.FindPendingExchangeByOrderID(ctx, "ORD-2")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "EXC-2", found.ExchangeID)

	bySR, err := repo.FindExchangeByShiprocketID(ctx, "SR-9")
	require.NoError(t, err)
	require.NotNil(t, bySR)
	assert.Equal(t, "EXC-1", bySR.ExchangeID)

	none, err := repo.FindPendingExchangeByOrderID(ctx, "ORD-3")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestHasActiveRequest(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateReturn(ctx, &models.Return{
		ReturnID: "RET-DONE", OrderID: "ORD-A", CustomerPhone: "91", Items: sampleItems(10),
		Reason: "Other", Status: enums.ReturnStatusCompleted, RefundAmount: decimal.NewFromInt(10),
		RefundStatus: enums.RefundStatusCompleted,
	}))
	active, err := repo.HasActiveRequest(ctx, "ORD-A")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, repo.CreateReturn(ctx, &models.Return{
		ReturnID: "RET-OPEN", OrderID: "ORD-A", CustomerPhone: "91", Items: sampleItems(10),
		Reason: "Other", Status: enums.ReturnStatusPickedUp, RefundAmount: decimal.NewFromInt(10),
		RefundStatus: enums.RefundStatusPending,
	}))
	active, err = repo.HasActiveRequest(ctx, "ORD-A")
	require.NoError(t, err)
	assert.True(t, active)

	expired := &models.Exchange{
		ExchangeID: "EXC-X", OrderID: "ORD-B", CustomerPhone: "91",
		OldItems: sampleItems(1000), NewItems: sampleItems(1200), Reason: "Other",
		PriceDifference: decimal.NewFromInt(200), PaymentStatus: enums.PaymentStatusFailed,
		Status: enums.ExchangeStatusPaymentPending,
	}
	require.NoError(t, repo.CreateExchange(ctx, expired))
	active, err = repo.HasActiveRequest(ctx, "ORD-B")
	require.NoError(t, err)
	assert.False(t, active)

	require.NoError(t, repo.UpdateExchange(ctx, expired.ID, map[string]any{"payment_status": enums.PaymentStatusPending}))
	active, err = repo.HasActiveRequest(ctx, "ORD-B")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestListPendingPaymentsBefore(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	old := &models.Exchange{
		ExchangeID: "EXC-OLD", OrderID: "ORD-1", CustomerPhone: "91",
		OldItems: sampleItems(1000), NewItems: sampleItems(1200), Reason: "Other",
		PriceDifference: decimal.NewFromInt(200), PaymentStatus: enums.PaymentStatusPending,
		Status: enums.ExchangeStatusPaymentPending,
	}
	fresh := &models.Exchange{
		ExchangeID: "EXC-NEW", OrderID: "ORD-2", CustomerPhone: "91",
		OldItems: sampleItems(1000), NewItems: sampleItems(1200), Reason: "Other",
		PriceDifference: decimal.NewFromInt(200), PaymentStatus: enums.PaymentStatusPending,
		Status: enums.ExchangeStatusPaymentPending,
	}
	require.NoError(t, repo.CreateExchange(ctx, old))
	require.NoError(t, repo.CreateExchange(ctx, fresh))
	require.NoError(t, db.Model(&models.Exchange{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	list, err := repo.ListPendingPaymentsBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "EXC-OLD", list[0].ExchangeID)
}

func TestUpdateWithEmptyMapIsNoop(t *testing.T) {
	repo := NewRepository(setupReturnsTestDB(t))
	assert.NoError(t, repo.UpdateReturn(context.Background(), uuid.New(), nil))
	assert.NoError(t, repo.UpdateExchange(context.Background(), uuid.New(), map[string]any{}))
}

func openReturn(id, orderID string, status enums.ReturnStatus) *models.Return {
	return &models.Return{
		ReturnID: id, OrderID: orderID, CustomerPhone: "91", Items: sampleItems(10),
		Reason: "Other", Status: status, RefundAmount: decimal.NewFromInt(10),
		RefundStatus: enums.RefundStatusPending,
	}
}

func TestOpenRequestIndexesAllowOneOpenRowPerOrder(t *testing.T) {
	db := setupReturnsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateReturn(ctx, openReturn("RET-DONE", "ORD-A", enums.ReturnStatusCompleted)))
	require.NoError(t, repo.CreateReturn(ctx, openReturn("RET-OPEN", "ORD-A", enums.ReturnStatusInitiated)))

	err := repo.CreateReturn(ctx, openReturn("RET-DUP", "ORD-A", enums.ReturnStatusInitiated))
	require.Error(t, err)
	assert.True(t, isOpenRequestConflict(err), "unexpected error %v", err)

	failed := &models.Exchange{
		ExchangeID: "EXC-F", OrderID: "ORD-A", CustomerPhone: "91",
		OldItems: sampleItems(1000), NewItems: sampleItems(1200), Reason: "Other",
		PriceDifference: decimal.NewFromInt(200), PaymentStatus: enums.PaymentStatusFailed,
		Status: enums.ExchangeStatusPaymentPending,
	}
	retry := *failed
	retry.ID = uuid.Nil
	retry.ExchangeID = "EXC-R"
	retry.PaymentStatus = enums.PaymentStatusPending
	require.NoError(t, repo.CreateExchange(ctx, failed))
	require.NoError(t, repo.CreateExchange(ctx, &retry))

	dup := retry
	dup.ID = uuid.Nil
	dup.ExchangeID = "EXC-D"
	err = repo.CreateExchange(ctx, &dup)
	require.Error(t, err)
	assert.True(t, isOpenRequestConflict(err), "unexpected error %v", err)
}

func TestDeleteReturnReleasesOrder(t *testing.T) {
	repo := NewRepository(setupReturnsTestDB(t))
	ctx := context.Background()

	ret := openReturn("RET-1", "ORD-A", enums.ReturnStatusInitiated)
	require.NoError(t, repo.CreateReturn(ctx, ret))
	require.NoError(t, repo.DeleteReturn(ctx, ret.ID))

	active, err := repo.HasActiveRequest(ctx, "ORD-A")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestCreateReturnClaimWithDatabase(t *testing.T) {
	db := setupReturnsTestDB(t)
	delivered := serviceNow.Add(-24 * time.Hour)
	order := &models.Order{
		OrderID: "ORD-1001", Status: enums.OrderStatusDelivered, DeliveredAt: &delivered,
		CustomerName: "Asha", CustomerPhone: "919876543210", ShippingAddress: "12 MG Road",
		ShippingCity: "Pune", ShippingState: "MH", ShippingPincode: "411001", ShippingCountry: "India",
		Total: decimal.NewFromInt(1000),
	}
	require.NoError(t, db.Create(order).Error)

	repo := NewRepository(db)
	shipping := &fakeShipping{}
	svc, err := NewService(ServiceParams{
		Repository:        repo,
		Orders:            stubOrders{orders: map[string]*models.Order{order.OrderID: order}},
		Shipping:          shipping,
		TransactionRunner: pkgdb.Wrap(db, pkgdb.DialectSQLite),
		Logger:            logger.New(logger.Options{ServiceName: "returns-test", Output: io.Discard}),
		Clock:             func() time.Time { return serviceNow },
	})
	require.NoError(t, err)

	ctx := context.Background()
	var innerErr error
	shipping.onCreate = func() {
		_, innerErr = svc.CreateReturn(ctx, ReturnRequest{Order: order, Phone: "919800000001", Items: sampleItems(1000), Reason: "Other"})
	}
	res, err := svc.CreateReturn(ctx, ReturnRequest{Order: order, Phone: "919876543210", Items: sampleItems(1000), Reason: "Other"})
	require.NoError(t, err)
	assert.ErrorIs(t, innerErr, ErrActiveRequestExists)

	var count int64
	require.NoError(t, db.Model(&models.Return{}).Where("order_id = ?", "ORD-1001").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindReturnByReturnID(ctx, res.Return.ReturnID)
	require.NoError(t, err)
	require.NotNil(t, stored.ShiprocketReturnID)
	assert.Equal(t, "SR-1", *stored.ShiprocketReturnID)
	require.NotNil(t, stored.PickupScheduledDate)
	assert.Equal(t, "2026-09-11", *stored.PickupScheduledDate)
}
