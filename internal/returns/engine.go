package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
)

const (
	DefaultWindowDays = 7
	pickupDateLayout  = "2006-01-02"
)

// EligibilityCode distinguishes why an order can or cannot be returned.
type EligibilityCode string

const (
	EligibilityOK            EligibilityCode = "eligible"
	EligibilityNotFound      EligibilityCode = "not_found"
	EligibilityNotDelivered  EligibilityCode = "not_delivered"
	EligibilityWindowExpired EligibilityCode = "window_expired"
	EligibilityActiveRequest EligibilityCode = "active_request"
)

// Eligibility is the outcome of CheckEligibility. Order is set only when the
// order is eligible.
type Eligibility struct {
	Eligible      bool
	Code          EligibilityCode
	Reason        string
	DaysRemaining int
	Order         *models.Order
}

type activeRequestChecker interface {
	HasActiveRequest(ctx context.Context, orderID string) (bool, error)
}

// Engine evaluates whether an order may start a return or exchange.
type Engine struct {
	orders     OrderReader
	requests   activeRequestChecker
	windowDays int
	now        func() time.Time
}

// NewEngine builds an eligibility engine. A non-positive window falls back to
// seven days.
func NewEngine(orders OrderReader, requests activeRequestChecker, windowDays int, now func() time.Time) (*Engine, error) {
	if orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order reader required")
	}
	if requests == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "request repository required")
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		orders:     orders,
		requests:   requests,
		windowDays: windowDays,
		now:        now,
	}, nil
}

// CheckEligibility applies the delivery window rule: whole days elapsed since
// delivery must not exceed the window, so exactly the window length is still
// eligible with zero days remaining.
func (e *Engine) CheckEligibility(ctx context.Context, orderID string) (*Eligibility, error) {
	order, err := e.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return ineligible(EligibilityNotFound, "Order not found"), nil
	}
	if order.Status != enums.OrderStatusDelivered || order.DeliveredAt == nil {
		return ineligible(EligibilityNotDelivered, "Order must be delivered to initiate return/exchange"), nil
	}

	elapsed := ElapsedDays(*order.DeliveredAt, e.now())
	if elapsed > e.windowDays {
		return ineligible(EligibilityWindowExpired, windowExpiredReason(e.windowDays)), nil
	}

	active, err := e.requests.HasActiveRequest(ctx, order.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open requests")
	}
	if active {
		return ineligible(EligibilityActiveRequest, "A return or exchange is already in progress for this order"), nil
	}

	return &Eligibility{
		Eligible:      true,
		Code:          EligibilityOK,
		DaysRemaining: e.windowDays - elapsed,
		Order:         order,
	}, nil
}

// WindowDays reports the configured eligibility window.
func (e *Engine) WindowDays() int {
	return e.windowDays
}

// ElapsedDays counts whole 24h periods between delivery and now. Deliveries
// stamped in the future count as zero.
func ElapsedDays(deliveredAt, now time.Time) int {
	diff := now.Sub(deliveredAt)
	if diff < 0 {
		return 0
	}
	return int(diff / (24 * time.Hour))
}

// NextPickupDate is the calendar day after now in loc, formatted YYYY-MM-DD.
func NextPickupDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).AddDate(0, 0, 1).Format(pickupDateLayout)
}

func ineligible(code EligibilityCode, reason string) *Eligibility {
	return &Eligibility{Eligible: false, Code: code, Reason: reason}
}

func windowExpiredReason(days int) string {
	return fmt.Sprintf("Return/exchange window has expired (%d days from delivery)", days)
}
