package returns

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
)

var (
	terminalReturnStatuses   = []enums.ReturnStatus{enums.ReturnStatusCompleted, enums.ReturnStatusQCFailed}
	terminalExchangeStatuses = []enums.ExchangeStatus{enums.ExchangeStatusCompleted, enums.ExchangeStatusQCFailed}
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateReturn(ctx context.Context, ret *models.Return) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *repository) CreateExchange(ctx context.Context, exc *models.Exchange) error {
	return r.db.WithContext(ctx).Create(exc).Error
}

func (r *repository) DeleteReturn(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Return{}).Error
}

func (r *repository) DeleteExchange(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Exchange{}).Error
}

// LockOrder takes a row lock on the order snapshot for the rest of the
// transaction. SQLite has no row locks and serialises writers instead.
func (r *repository) LockOrder(ctx context.Context, orderID string) error {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("order_id").
		Where("order_id = ?", orderID).
		Take(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (r *repository) FindReturnByReturnID(ctx context.Context, returnID string) (*models.Return, error) {
	return r.findReturn(ctx, "return_id = ?", returnID)
}

func (r *repository) FindReturnByShiprocketID(ctx context.Context, ref string) (*models.Return, error) {
	return r.findReturn(ctx, "shiprocket_return_id = ?", ref)
}

func (r *repository) FindExchangeByExchangeID(ctx context.Context, exchangeID string) (*models.Exchange, error) {
	return r.findExchange(ctx, r.db.WithContext(ctx).Where("exchange_id = ?", exchangeID))
}

func (r *repository) FindExchangeByShiprocketID(ctx context.Context, ref string) (*models.Exchange, error) {
	return r.findExchange(ctx, r.db.WithContext(ctx).Where("shiprocket_exchange_id = ?", ref))
}

// FindPendingExchangeByOrderID returns the newest exchange of the order that
// is still waiting for payment.
func (r *repository) FindPendingExchangeByOrderID(ctx context.Context, orderID string) (*models.Exchange, error) {
	query := r.db.WithContext(ctx).
		Where("order_id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Order("created_at DESC")
	return r.findExchange(ctx, query)
}

func (r *repository) ListPendingPaymentsBefore(ctx context.Context, cutoff time.Time) ([]models.Exchange, error) {
	var exchanges []models.Exchange
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND created_at < ?", enums.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Find(&exchanges).Error
	if err != nil {
		return nil, err
	}
	return exchanges, nil
}

// HasActiveRequest reports whether the order has a return or exchange that
// has not reached a terminal status. Exchanges whose payment failed or expired
// no longer hold the order.
func (r *repository) HasActiveRequest(ctx context.Context, orderID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Return{}).
		Where("order_id = ? AND status NOT IN ?", orderID, terminalReturnStatuses).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Exchange{}).
		Where("order_id = ? AND status NOT IN ? AND payment_status <> ?", orderID, terminalExchangeStatuses, enums.PaymentStatusFailed).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) UpdateReturn(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Return{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) UpdateExchange(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Exchange{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) findReturn(ctx context.Context, where string, arg any) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).Where(where, arg).First(&ret).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ret, nil
}

func (r *repository) findExchange(_ context.Context, query *gorm.DB) (*models.Exchange, error) {
	var exc models.Exchange
	if err := query.First(&exc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &exc, nil
}
