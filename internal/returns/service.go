package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	pkgdb "github.com/angelmondragon/wa-returns-backend/pkg/db"
	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/razorpay"
	"github.com/angelmondragon/wa-returns-backend/pkg/shiprocket"
	"github.com/angelmondragon/wa-returns-backend/pkg/types"
)

const defaultCustomerName = "Customer"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repository        Repository
	Orders            OrderReader
	Shipping          ShippingProvider
	Payments          PaymentProvider
	TransactionRunner txRunner
	Logger            *logger.Logger
	WindowDays        int
	Location          *time.Location
	Clock             func() time.Time
}

// Service creates returns and exchanges and records their lifecycle.
type Service struct {
	repo     Repository
	orders   OrderReader
	shipping ShippingProvider
	payments PaymentProvider
	tx       txRunner
	logg     *logger.Logger
	engine   *Engine
	loc      *time.Location
	now      func() time.Time
}

// NewService wires the return/exchange service. Payments may be nil, in which
// case exchanges that need a balance payment fail and refunds are skipped.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "returns repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order reader required")
	}
	if params.Shipping == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shipping provider required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	engine, err := NewEngine(params.Orders, params.Repository, params.WindowDays, now)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:     params.Repository,
		orders:   params.Orders,
		shipping: params.Shipping,
		payments: params.Payments,
		tx:       params.TransactionRunner,
		logg:     params.Logger,
		engine:   engine,
		loc:      loc,
		now:      now,
	}, nil
}

// ReturnRequest is a confirmed return dialogue.
type ReturnRequest struct {
	Order  *models.Order
	Phone  string
	Items  types.Items
	Reason string
}

// ReturnResult is what the customer is told after a return is created.
// PickupPending is set when the shipment exists but the courier could not be
// booked; PickupDate is empty then.
type ReturnResult struct {
	Return        *models.Return
	PickupDate    string
	PickupPending bool
}

// ExchangeRequest is a confirmed exchange dialogue.
type ExchangeRequest struct {
	Order    *models.Order
	Phone    string
	OldItems types.Items
	NewItems types.Items
	Reason   string
}

// ExchangeResult carries the persisted exchange plus whichever follow-up was
// started: a payment link when a balance is owed, a pickup otherwise.
type ExchangeResult struct {
	Exchange      *models.Exchange
	PaymentLink   *razorpay.PaymentLink
	PickupDate    string
	PickupPending bool
}

// PaymentOutcome is the exchange touched by a payment webhook.
type PaymentOutcome struct {
	Exchange      *models.Exchange
	PickupDate    string
	PickupPending bool
}

// ReturnUpdate reports the effect of a shipping status on a return.
type ReturnUpdate struct {
	Return   *models.Return
	Previous enums.ReturnStatus
	Changed  bool
}

// ExchangeUpdate reports the effect of a shipping status on an exchange.
type ExchangeUpdate struct {
	Exchange *models.Exchange
	Previous enums.ExchangeStatus
	Changed  bool
}

// CheckEligibility delegates to the eligibility engine.
func (s *Service) CheckEligibility(ctx context.Context, orderID string) (*Eligibility, error) {
	return s.engine.CheckEligibility(ctx, orderID)
}

// NextPickupDate is tomorrow in the service's timezone.
func (s *Service) NextPickupDate() string {
	return NextPickupDate(s.now(), s.loc)
}

// CreateReturn claims the order with a new return, registers the reverse
// shipment and books a pickup for tomorrow. The claim is dropped when the
// shipment cannot be created. A failed pickup booking keeps the return and
// reports the pickup as pending.
func (s *Service) CreateReturn(ctx context.Context, req ReturnRequest) (*ReturnResult, error) {
	if err := validateRequest(req.Order, req.Phone, req.Items); err != nil {
		return nil, err
	}

	ret := &models.Return{
		ReturnID:      NewReturnID(s.now()),
		OrderID:       req.Order.OrderID,
		CustomerPhone: req.Phone,
		Items:         req.Items,
		Reason:        req.Reason,
		Status:        enums.ReturnStatusInitiated,
		RefundAmount:  ComputeRefund(req.Items),
		RefundStatus:  enums.RefundStatusPending,
	}
	err := s.claimOrder(ctx, ret.OrderID, func(repo Repository) error {
		return repo.CreateReturn(ctx, ret)
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithRecordID(ctx, string(enums.RequestKindReturn), ret.ReturnID)

	created, err := s.shipping.CreateReturn(ctx, s.shippingRequest(req.Order, req.Phone, req.Items, req.Reason))
	if err != nil {
		if delErr := s.repo.DeleteReturn(ctx, ret.ID); delErr != nil {
			s.logg.Error(ctx, "failed to release return claim", delErr)
		}
		return nil, err
	}
	refs := map[string]any{"shiprocket_return_id": created.ReturnRef}
	if created.AWB != "" {
		refs["awb_code"] = created.AWB
	}
	if err := s.repo.UpdateReturn(ctx, ret.ID, refs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record shipment")
	}
	ret.ShiprocketReturnID = optionalString(created.ReturnRef)
	ret.AWBCode = optionalString(created.AWB)

	pickup, err := s.schedulePickup(ctx, created.ReturnRef)
	if err != nil {
		s.logg.Error(ctx, "return pickup scheduling failed", err)
		return &ReturnResult{Return: ret, PickupPending: true}, nil
	}
	updates := map[string]any{"pickup_scheduled_date": pickup.PickupDate}
	if pickup.AWB != "" {
		updates["awb_code"] = pickup.AWB
		ret.AWBCode = optionalString(pickup.AWB)
	}
	if err := s.repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record pickup")
	}
	ret.PickupScheduledDate = optionalString(pickup.PickupDate)

	s.logg.Info(ctx, "return created")
	return &ReturnResult{Return: ret, PickupDate: pickup.PickupDate}, nil
}

// CreateExchange stores the exchange with its payment status. When the
// customer owes a balance a payment link is created before anything is stored;
// otherwise the pickup of the old items is booked right away.
func (s *Service) CreateExchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	if err := validateRequest(req.Order, req.Phone, req.OldItems); err != nil {
		return nil, err
	}
	if len(req.NewItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new items required")
	}

	diff := ComputePriceDifference(req.OldItems, req.NewItems)
	exc := &models.Exchange{
		ExchangeID:      NewExchangeID(s.now()),
		OrderID:         req.Order.OrderID,
		CustomerPhone:   req.Phone,
		OldItems:        req.OldItems,
		NewItems:        req.NewItems,
		Reason:          req.Reason,
		PriceDifference: diff,
		PaymentStatus:   PaymentStatusFor(diff),
		Status:          enums.ExchangeStatusInitiated,
	}
	ctx = s.logg.WithRecordID(ctx, string(enums.RequestKindExchange), exc.ExchangeID)

	if exc.PaymentStatus == enums.PaymentStatusPending {
		return s.createPaidExchange(ctx, req.Order, exc)
	}

	err := s.claimOrder(ctx, exc.OrderID, func(repo Repository) error {
		return repo.CreateExchange(ctx, exc)
	})
	if err != nil {
		return nil, err
	}
	booking, err := s.bookExchangePickup(ctx, req.Order, exc)
	if err != nil {
		if booking.shipped {
			return nil, err
		}
		if delErr := s.repo.DeleteExchange(ctx, exc.ID); delErr != nil {
			s.logg.Error(ctx, "failed to release exchange claim", delErr)
		}
		return nil, err
	}
	s.logg.Info(ctx, "exchange created")
	return &ExchangeResult{Exchange: exc, PickupDate: booking.date, PickupPending: booking.pending}, nil
}

func (s *Service) createPaidExchange(ctx context.Context, order *models.Order, exc *models.Exchange) (*ExchangeResult, error) {
	if s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider not configured")
	}
	if err := s.ensureNoActiveRequest(ctx, order.OrderID); err != nil {
		return nil, err
	}
	link, err := s.payments.CreatePaymentLink(ctx, exc.PriceDifference, order.OrderID, customerFor(order, exc.CustomerPhone))
	if err != nil {
		return nil, err
	}

	exc.Status = enums.ExchangeStatusPaymentPending
	exc.PaymentLinkID = optionalString(link.ID)
	exc.PaymentLinkURL = optionalString(link.URL)
	err = s.claimOrder(ctx, exc.OrderID, func(repo Repository) error {
		return repo.CreateExchange(ctx, exc)
	})
	if err != nil {
		if cancelErr := s.payments.CancelPaymentLink(ctx, link.ID); cancelErr != nil {
			s.logg.Error(ctx, "failed to cancel payment link of unsaved exchange", cancelErr)
		}
		return nil, err
	}
	s.logg.Info(ctx, "exchange created with payment link")
	return &ExchangeResult{Exchange: exc, PaymentLink: link}, nil
}

// CompleteExchangePayment settles the pending exchange of an order and books
// the pickup of the old items. The payment is recorded before the shipping
// calls so a provider failure leaves a paid exchange for manual follow-up.
func (s *Service) CompleteExchangePayment(ctx context.Context, orderID, paymentID string) (*PaymentOutcome, error) {
	exc, err := s.repo.FindPendingExchangeByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pending exchange")
	}
	if exc == nil {
		return nil, ErrRecordNotFound
	}
	ctx = s.logg.WithRecordID(ctx, string(enums.RequestKindExchange), exc.ExchangeID)

	if !CanTransitionExchange(exc.Status, enums.ExchangeStatusPaymentCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, exc.Status, enums.ExchangeStatusPaymentCompleted)
	}
	updates := map[string]any{
		"payment_status": enums.PaymentStatusCompleted,
		"status":         enums.ExchangeStatusPaymentCompleted,
	}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}
	if err := s.repo.UpdateExchange(ctx, exc.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
	}
	exc.PaymentStatus = enums.PaymentStatusCompleted
	exc.Status = enums.ExchangeStatusPaymentCompleted
	exc.PaymentID = optionalString(paymentID)

	order, err := s.orders.FindByOrderID(ctx, exc.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	booking, err := s.bookExchangePickup(ctx, order, exc)
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "exchange payment completed")
	return &PaymentOutcome{Exchange: exc, PickupDate: booking.date, PickupPending: booking.pending}, nil
}

// FailExchangePayment returns the pending exchange of an order so the
// customer can be told. The exchange is left untouched and its link stays
// payable until it expires.
func (s *Service) FailExchangePayment(ctx context.Context, orderID string) (*models.Exchange, error) {
	exc, err := s.repo.FindPendingExchangeByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load pending exchange")
	}
	if exc == nil {
		return nil, ErrRecordNotFound
	}
	return exc, nil
}

// ExpirePaymentLinks marks exchanges whose link has been pending since before
// cutoff as failed and cancels the link at the provider when possible. The
// expired exchanges are returned so the caller can notify customers.
func (s *Service) ExpirePaymentLinks(ctx context.Context, cutoff time.Time) ([]models.Exchange, error) {
	pending, err := s.repo.ListPendingPaymentsBefore(ctx, cutoff)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending payments")
	}

	var (
		expired []models.Exchange
		errs    error
	)
	for _, exc := range pending {
		excCtx := s.logg.WithRecordID(ctx, string(enums.RequestKindExchange), exc.ExchangeID)
		if s.payments != nil && exc.PaymentLinkID != nil && *exc.PaymentLinkID != "" {
			if err := s.payments.CancelPaymentLink(excCtx, *exc.PaymentLinkID); err != nil {
				s.logg.Warn(s.logg.WithField(excCtx, "error", err.Error()), "failed to cancel expired payment link")
			}
		}
		if err := s.repo.UpdateExchange(excCtx, exc.ID, map[string]any{"payment_status": enums.PaymentStatusFailed}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", exc.ExchangeID, err))
			continue
		}
		exc.PaymentStatus = enums.PaymentStatusFailed
		expired = append(expired, exc)
	}
	return expired, errs
}

// GetReturn returns nil when no return has that id.
func (s *Service) GetReturn(ctx context.Context, returnID string) (*models.Return, error) {
	ret, err := s.repo.FindReturnByReturnID(ctx, strings.TrimSpace(returnID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load return")
	}
	return ret, nil
}

// GetExchange returns nil when no exchange has that id.
func (s *Service) GetExchange(ctx context.Context, exchangeID string) (*models.Exchange, error) {
	exc, err := s.repo.FindExchangeByExchangeID(ctx, strings.TrimSpace(exchangeID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load exchange")
	}
	return exc, nil
}

// ReturnByShippingRef returns nil when no return carries the Shiprocket
// reference.
func (s *Service) ReturnByShippingRef(ctx context.Context, ref string) (*models.Return, error) {
	ret, err := s.repo.FindReturnByShiprocketID(ctx, strings.TrimSpace(ref))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load return")
	}
	return ret, nil
}

// ExchangeByShippingRef returns nil when no exchange carries the Shiprocket
// reference.
func (s *Service) ExchangeByShippingRef(ctx context.Context, ref string) (*models.Exchange, error) {
	exc, err := s.repo.FindExchangeByShiprocketID(ctx, strings.TrimSpace(ref))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load exchange")
	}
	return exc, nil
}

// ApplyReturnStatus moves the return with the given Shiprocket reference to
// status. It returns (nil, nil) when no return matches. Re-delivery of the
// current status is a no-op and a move the lifecycle forbids yields
// ErrTransitionNotAllowed together with the untouched record.
func (s *Service) ApplyReturnStatus(ctx context.Context, ref string, status enums.ReturnStatus, awb string) (*ReturnUpdate, error) {
	var update *ReturnUpdate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ret, err := repo.FindReturnByShiprocketID(ctx, ref)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load return")
		}
		if ret == nil {
			return nil
		}
		update = &ReturnUpdate{Return: ret, Previous: ret.Status}
		if ret.Status == status {
			return nil
		}
		if !CanTransitionReturn(ret.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, ret.Status, status)
		}
		updates := map[string]any{"status": status}
		if awb != "" {
			updates["awb_code"] = awb
		}
		if err := repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update return status")
		}
		ret.Status = status
		if awb != "" {
			ret.AWBCode = optionalString(awb)
		}
		update.Changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransitionNotAllowed) {
			return update, err
		}
		return nil, err
	}

	if update != nil && update.Changed && status == enums.ReturnStatusQCPassed {
		s.ProcessRefund(ctx, update.Return)
	}
	return update, nil
}

// ApplyExchangeStatus is the exchange counterpart of ApplyReturnStatus.
func (s *Service) ApplyExchangeStatus(ctx context.Context, ref string, status enums.ExchangeStatus, awb string) (*ExchangeUpdate, error) {
	var update *ExchangeUpdate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exc, err := repo.FindExchangeByShiprocketID(ctx, ref)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load exchange")
		}
		if exc == nil {
			return nil
		}
		update = &ExchangeUpdate{Exchange: exc, Previous: exc.Status}
		if exc.Status == status {
			return nil
		}
		if !CanTransitionExchange(exc.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, exc.Status, status)
		}
		updates := map[string]any{"status": status}
		if awb != "" {
			updates["awb_code"] = awb
		}
		if err := repo.UpdateExchange(ctx, exc.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update exchange status")
		}
		exc.Status = status
		if awb != "" {
			exc.AWBCode = optionalString(awb)
		}
		update.Changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransitionNotAllowed) {
			return update, err
		}
		return nil, err
	}
	return update, nil
}

// ProcessRefund issues the refund of a QC-passed return against the order's
// captured payment. Orders without a payment id are left pending for manual
// settlement. Failures are recorded on the return and logged, never returned.
func (s *Service) ProcessRefund(ctx context.Context, ret *models.Return) {
	if ret == nil || ret.RefundStatus != enums.RefundStatusPending {
		return
	}
	ctx = s.logg.WithRecordID(ctx, string(enums.RequestKindReturn), ret.ReturnID)
	if s.payments == nil {
		s.logg.Warn(ctx, "refund skipped; payment provider not configured")
		return
	}
	order, err := s.orders.FindByOrderID(ctx, ret.OrderID)
	if err != nil {
		s.logg.Error(ctx, "refund order lookup failed", err)
		return
	}
	if order == nil || order.PaymentID == nil || *order.PaymentID == "" {
		s.logg.Warn(ctx, "refund skipped; order has no captured payment")
		return
	}

	refund, err := s.payments.Refund(ctx, *order.PaymentID, ret.RefundAmount, map[string]string{
		"return_id": ret.ReturnID,
		"order_id":  ret.OrderID,
	})
	updates := map[string]any{}
	if err != nil {
		s.logg.Error(ctx, "refund failed", err)
		updates["refund_status"] = enums.RefundStatusFailed
		ret.RefundStatus = enums.RefundStatusFailed
	} else {
		updates["refund_status"] = enums.RefundStatusProcessing
		updates["refund_id"] = refund.ID
		ret.RefundStatus = enums.RefundStatusProcessing
		ret.RefundID = optionalString(refund.ID)
	}
	if err := s.repo.UpdateReturn(ctx, ret.ID, updates); err != nil {
		s.logg.Error(ctx, "failed to record refund status", err)
	}
}

// claimOrder runs create inside a transaction that holds the order's row lock,
// after checking that no open return or exchange exists. The partial unique
// indexes on open rows catch anything the lock cannot.
func (s *Service) claimOrder(ctx context.Context, orderID string, create func(repo Repository) error) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.LockOrder(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		active, err := repo.HasActiveRequest(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open requests")
		}
		if active {
			return ErrActiveRequestExists
		}
		if err := create(repo); err != nil {
			if isOpenRequestConflict(err) {
				return ErrActiveRequestExists
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist request")
		}
		return nil
	})
}

func isOpenRequestConflict(err error) bool {
	for _, name := range []string{"idx_returns_open_order", "idx_exchanges_open_order", "returns.order_id", "exchanges.order_id"} {
		if pkgdb.IsUniqueViolation(err, name) {
			return true
		}
	}
	return false
}

func (s *Service) ensureNoActiveRequest(ctx context.Context, orderID string) error {
	active, err := s.repo.HasActiveRequest(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check open requests")
	}
	if active {
		return ErrActiveRequestExists
	}
	return nil
}

func (s *Service) schedulePickup(ctx context.Context, returnRef string) (*shiprocket.PickupResult, error) {
	requested := s.NextPickupDate()
	pickup, err := s.shipping.SchedulePickup(ctx, returnRef, requested)
	if err != nil {
		return nil, err
	}
	if pickup.PickupDate == "" {
		pickup.PickupDate = requested
	}
	return pickup, nil
}

type pickupBooking struct {
	date    string
	pending bool
	shipped bool
}

// bookExchangePickup creates the reverse shipment for the old items and books
// its pickup, moving exc to pickup_scheduled. Once the shipment exists a failed
// booking is reported as pending rather than as an error.
func (s *Service) bookExchangePickup(ctx context.Context, order *models.Order, exc *models.Exchange) (pickupBooking, error) {
	created, err := s.shipping.CreateReturn(ctx, s.shippingRequest(order, exc.CustomerPhone, exc.OldItems, exc.Reason))
	if err != nil {
		s.logg.Error(ctx, "exchange shipment creation failed", err)
		return pickupBooking{}, err
	}
	booking := pickupBooking{shipped: true}
	refs := map[string]any{"shiprocket_exchange_id": created.ReturnRef}
	if created.AWB != "" {
		refs["awb_code"] = created.AWB
	}
	if err := s.repo.UpdateExchange(ctx, exc.ID, refs); err != nil {
		return booking, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record exchange shipment")
	}
	exc.ShiprocketExchangeID = optionalString(created.ReturnRef)
	exc.AWBCode = optionalString(created.AWB)

	pickup, err := s.schedulePickup(ctx, created.ReturnRef)
	if err != nil {
		s.logg.Error(ctx, "exchange pickup scheduling failed", err)
		booking.pending = true
		return booking, nil
	}
	updates := map[string]any{
		"pickup_scheduled_date": pickup.PickupDate,
		"status":                enums.ExchangeStatusPickupScheduled,
	}
	if pickup.AWB != "" {
		updates["awb_code"] = pickup.AWB
	}
	if err := s.repo.UpdateExchange(ctx, exc.ID, updates); err != nil {
		return booking, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record exchange pickup")
	}
	exc.PickupScheduledDate = optionalString(pickup.PickupDate)
	exc.Status = enums.ExchangeStatusPickupScheduled
	if pickup.AWB != "" {
		exc.AWBCode = optionalString(pickup.AWB)
	}
	booking.date = pickup.PickupDate
	return booking, nil
}

func (s *Service) shippingRequest(order *models.Order, phone string, items types.Items, reason string) shiprocket.ReturnRequest {
	lines := make([]shiprocket.ReturnItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, shiprocket.ReturnItem{
			SKU:          item.SKU,
			Name:         item.Name,
			Units:        item.Quantity,
			SellingPrice: item.Price.InexactFloat64(),
		})
	}
	customer := customerFor(order, phone)
	return shiprocket.ReturnRequest{
		OrderID:   order.OrderID,
		OrderDate: order.CreatedAt,
		Pickup: shiprocket.Address{
			Name:    customer.Name,
			Phone:   customer.Phone,
			Email:   customer.Email,
			Line:    order.ShippingAddress,
			City:    order.ShippingCity,
			State:   order.ShippingState,
			Pincode: order.ShippingPincode,
			Country: order.ShippingCountry,
		},
		Items:  lines,
		Reason: reason,
	}
}

func customerFor(order *models.Order, phone string) razorpay.Customer {
	name := strings.TrimSpace(order.CustomerName)
	if name == "" {
		name = defaultCustomerName
	}
	if strings.TrimSpace(phone) == "" {
		phone = order.CustomerPhone
	}
	customer := razorpay.Customer{Name: name, Phone: phone}
	if order.CustomerEmail != nil {
		customer.Email = strings.TrimSpace(*order.CustomerEmail)
	}
	return customer
}

func validateRequest(order *models.Order, phone string, items types.Items) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order snapshot required")
	}
	if strings.TrimSpace(phone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "items required")
	}
	for _, item := range items {
		if item.Quantity <= 0 || item.Price.LessThan(decimal.Zero) {
			return pkgerrors.New(pkgerrors.CodeValidation, "items need a positive quantity and a non-negative price")
		}
	}
	return nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
