package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/wa-returns-backend/internal/returns"
	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/metrics"
	"github.com/angelmondragon/wa-returns-backend/pkg/shiprocket"
	"github.com/angelmondragon/wa-returns-backend/pkg/types"
)

const (
	defaultCurrency   = "₹"
	placeholderSKU    = "ITEM-001"
	placeholderName   = "Product"
	defaultLinkExpiry = 24 * time.Hour
)

// Messenger delivers a text to a phone number.
type Messenger interface {
	SendText(ctx context.Context, phone, text string) error
}

type returnsService interface {
	CheckEligibility(ctx context.Context, orderID string) (*returns.Eligibility, error)
	CreateReturn(ctx context.Context, req returns.ReturnRequest) (*returns.ReturnResult, error)
	CreateExchange(ctx context.Context, req returns.ExchangeRequest) (*returns.ExchangeResult, error)
	GetReturn(ctx context.Context, returnID string) (*models.Return, error)
	GetExchange(ctx context.Context, exchangeID string) (*models.Exchange, error)
}

type itemResolver interface {
	Resolve(ctx context.Context, description string) (*models.Product, error)
}

type trackingSource interface {
	GetTracking(ctx context.Context, awb string) ([]shiprocket.TrackingEvent, error)
}

type HandlerParams struct {
	Store          Store
	Returns        returnsService
	Catalog        itemResolver
	Tracking       trackingSource
	Messenger      Messenger
	Metrics        *metrics.WorkflowMetrics
	Logger         *logger.Logger
	CurrencySymbol string
	SupportContact string
	LinkExpiry     time.Duration
	Location       *time.Location
	Clock          func() time.Time
}

// Handler drives return and exchange dialogues for inbound chat messages.
// Messages from one phone are processed one at a time and in order.
type Handler struct {
	store      Store
	returns    returnsService
	catalog    itemResolver
	tracking   trackingSource
	messenger  Messenger
	metrics    *metrics.WorkflowMetrics
	logg       *logger.Logger
	tmpl       templates
	linkExpiry time.Duration
	now        func() time.Time
	locks      *keyedMutex
}

// NewHandler wires the conversation handler. Catalog, Tracking and Metrics
// are optional.
func NewHandler(params HandlerParams) (*Handler, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store required")
	}
	if params.Returns == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "returns service required")
	}
	if params.Messenger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "messenger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	currency := strings.TrimSpace(params.CurrencySymbol)
	if currency == "" {
		currency = defaultCurrency
	}
	expiry := params.LinkExpiry
	if expiry <= 0 {
		expiry = defaultLinkExpiry
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &Handler{
		store:      params.Store,
		returns:    params.Returns,
		catalog:    params.Catalog,
		tracking:   params.Tracking,
		messenger:  params.Messenger,
		metrics:    params.Metrics,
		logg:       params.Logger,
		tmpl:       templates{currency: currency, support: strings.TrimSpace(params.SupportContact), loc: params.Location},
		linkExpiry: expiry,
		now:        now,
		locks:      newKeyedMutex(),
	}, nil
}

// Handle consumes one inbound text. It reports false when the text is not
// part of a return or exchange conversation so another responder can answer.
// Only session store failures are returned; provider failures end the
// dialogue with a customer message.
func (h *Handler) Handle(ctx context.Context, phone, text string) (bool, error) {
	unlock := h.locks.Lock(phone)
	defer unlock()

	ctx = h.logg.WithPhone(ctx, phone)

	if kind, ok := Trigger(text); ok {
		sess, action := Start(phone, kind, h.now())
		if err := h.store.Save(ctx, sess); err != nil {
			return true, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save session")
		}
		h.metrics.IncTransition(string(kind), "", string(sess.Step))
		h.send(ctx, phone, action.Reply)
		return true, nil
	}

	sess, err := h.store.Get(ctx, phone)
	if err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session")
	}
	if sess != nil {
		return true, h.advance(ctx, *sess, text)
	}

	if kind, id, ok := parseStatusQuery(text); ok {
		h.sendStatus(ctx, phone, kind, id)
		return true, nil
	}
	return false, nil
}

func (h *Handler) advance(ctx context.Context, sess Session, text string) error {
	next, action := Transition(sess, text)
	phone := sess.Phone

	switch action.Kind {
	case ActionReply:
		if err := h.store.Save(ctx, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save session")
		}
		h.recordStep(sess, next)
		h.send(ctx, phone, action.Reply)
		return nil

	case ActionCheckEligibility:
		return h.checkEligibility(ctx, sess, next, action.OrderID)

	case ActionProcessReturn:
		h.processReturn(ctx, sess)
		return h.end(ctx, sess)

	case ActionProcessExchange:
		h.processExchange(ctx, sess)
		return h.end(ctx, sess)

	default:
		err := h.end(ctx, sess)
		h.send(ctx, phone, action.Reply)
		return err
	}
}

func (h *Handler) checkEligibility(ctx context.Context, sess Session, next *Session, orderID string) error {
	ctx = h.logg.WithField(ctx, "order_id", orderID)
	eligibility, err := h.returns.CheckEligibility(ctx, orderID)
	if err != nil {
		h.logg.Error(ctx, "eligibility check failed", err)
		endErr := h.end(ctx, sess)
		h.send(ctx, sess.Phone, h.tmpl.genericFailure())
		return endErr
	}
	if !eligibility.Eligible {
		h.logg.Info(h.logg.WithField(ctx, "eligibility", string(eligibility.Code)), "order not eligible")
		endErr := h.end(ctx, sess)
		h.send(ctx, sess.Phone, h.tmpl.ineligible(eligibility.Reason))
		return endErr
	}

	next.Data.Order = eligibility.Order
	next.Data.DaysRemaining = eligibility.DaysRemaining
	if err := h.store.Save(ctx, next); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save session")
	}
	h.recordStep(sess, next)
	h.send(ctx, sess.Phone, reasonPrompt(orderID, eligibility.DaysRemaining, sess.Type))
	return nil
}

func (h *Handler) processReturn(ctx context.Context, sess Session) {
	phone := sess.Phone
	order := sess.Data.Order
	if order == nil {
		h.send(ctx, phone, sessionExpiredMessage)
		return
	}
	h.send(ctx, phone, h.tmpl.processing(enums.RequestKindReturn))

	result, err := h.returns.CreateReturn(ctx, returns.ReturnRequest{
		Order:  order,
		Phone:  phone,
		Items:  OrderItems(order),
		Reason: sess.Data.Reason,
	})
	if err != nil {
		h.logg.Error(ctx, "return creation failed", err)
		h.send(ctx, phone, h.tmpl.failure(enums.RequestKindReturn, customerError(err)))
		return
	}
	if result.PickupPending {
		h.send(ctx, phone, h.tmpl.returnPickupPending(result.Return))
		return
	}
	h.send(ctx, phone, h.tmpl.returnCreated(result.Return, result.PickupDate))
}

func (h *Handler) processExchange(ctx context.Context, sess Session) {
	phone := sess.Phone
	order := sess.Data.Order
	if order == nil {
		h.send(ctx, phone, sessionExpiredMessage)
		return
	}
	h.send(ctx, phone, h.tmpl.processing(enums.RequestKindExchange))

	oldItems := OrderItems(order)
	newItems, err := h.newItems(ctx, oldItems, sess.Data.NewItemDescription)
	if err != nil {
		h.logg.Error(ctx, "catalog lookup failed", err)
		h.send(ctx, phone, h.tmpl.failure(enums.RequestKindExchange, customerError(err)))
		return
	}

	result, err := h.returns.CreateExchange(ctx, returns.ExchangeRequest{
		Order:    order,
		Phone:    phone,
		OldItems: oldItems,
		NewItems: newItems,
		Reason:   sess.Data.Reason,
	})
	if err != nil {
		h.logg.Error(ctx, "exchange creation failed", err)
		h.send(ctx, phone, h.tmpl.failure(enums.RequestKindExchange, customerError(err)))
		return
	}

	exc := result.Exchange
	switch {
	case result.PaymentLink != nil:
		h.send(ctx, phone, h.tmpl.exchangePaymentRequired(exc, result.PaymentLink.URL, h.linkExpiry))
	case result.PickupPending:
		h.send(ctx, phone, h.tmpl.exchangePickupPending(exc))
	case exc.PriceDifference.IsNegative():
		h.send(ctx, phone, h.tmpl.exchangeRefundDue(exc, result.PickupDate))
	default:
		h.send(ctx, phone, h.tmpl.exchangeNoPayment(exc, result.PickupDate))
	}
}

// newItems prices the described replacement. A catalog match replaces the
// order's items; anything else is treated as a variant of the same items at
// the same price.
func (h *Handler) newItems(ctx context.Context, oldItems types.Items, description string) (types.Items, error) {
	if h.catalog != nil && description != "" {
		product, err := h.catalog.Resolve(ctx, description)
		if err != nil {
			return nil, err
		}
		if product != nil {
			quantity := 1
			if len(oldItems) == 1 {
				quantity = oldItems[0].Quantity
			}
			return types.Items{{
				SKU:      product.SKU,
				Name:     product.Name,
				Price:    product.Price,
				Quantity: quantity,
			}}, nil
		}
	}

	variants := make(types.Items, 0, len(oldItems))
	for _, item := range oldItems {
		variant := item
		if description != "" {
			variant.Name = item.Name + " (" + description + ")"
		}
		variants = append(variants, variant)
	}
	return variants, nil
}

func (h *Handler) sendStatus(ctx context.Context, phone string, kind enums.RequestKind, id string) {
	ctx = h.logg.WithRecordID(ctx, string(kind), id)
	switch kind {
	case enums.RequestKindExchange:
		exc, err := h.returns.GetExchange(ctx, id)
		if err != nil {
			h.logg.Error(ctx, "exchange status lookup failed", err)
			h.send(ctx, phone, h.tmpl.genericFailure())
			return
		}
		if exc == nil {
			h.send(ctx, phone, h.tmpl.notFound(kind, id))
			return
		}
		h.send(ctx, phone, h.tmpl.exchangeStatus(exc, h.latestScan(ctx, exc.AWBCode)))
	default:
		ret, err := h.returns.GetReturn(ctx, id)
		if err != nil {
			h.logg.Error(ctx, "return status lookup failed", err)
			h.send(ctx, phone, h.tmpl.genericFailure())
			return
		}
		if ret == nil {
			h.send(ctx, phone, h.tmpl.notFound(kind, id))
			return
		}
		h.send(ctx, phone, h.tmpl.returnStatus(ret, h.latestScan(ctx, ret.AWBCode)))
	}
}

// latestScan returns the newest courier scan for awb, or nil when tracking is
// unavailable.
func (h *Handler) latestScan(ctx context.Context, awb *string) *shiprocket.TrackingEvent {
	if h.tracking == nil || awb == nil || *awb == "" {
		return nil
	}
	events, err := h.tracking.GetTracking(ctx, *awb)
	if err != nil {
		h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), "tracking lookup failed")
		return nil
	}
	if len(events) == 0 {
		return nil
	}
	return &events[0]
}

func (h *Handler) end(ctx context.Context, sess Session) error {
	h.recordStep(sess, nil)
	if err := h.store.Delete(ctx, sess.Phone); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete session")
	}
	return nil
}

func (h *Handler) recordStep(from Session, to *Session) {
	next := ""
	if to != nil {
		next = string(to.Step)
	}
	if next == string(from.Step) {
		return
	}
	h.metrics.IncTransition(string(from.Type), string(from.Step), next)
}

func (h *Handler) send(ctx context.Context, phone, text string) {
	if text == "" {
		return
	}
	if err := h.messenger.SendText(ctx, phone, text); err != nil {
		h.logg.Error(ctx, "failed to send whatsapp message", err)
	}
}

// OrderItems converts the order's line items into the item snapshot stored on
// a return or exchange. Orders without line items fall back to one line
// priced at the order total.
func OrderItems(order *models.Order) types.Items {
	if order == nil {
		return nil
	}
	if len(order.LineItems) == 0 {
		return types.Items{{
			SKU:      placeholderSKU,
			Name:     placeholderName,
			Price:    order.Total,
			Quantity: 1,
		}}
	}
	items := make(types.Items, 0, len(order.LineItems))
	for _, line := range order.LineItems {
		items = append(items, types.Item{
			SKU:      line.SKU,
			Name:     line.Name,
			Price:    line.Price,
			Quantity: line.Quantity,
		})
	}
	return items
}

// parseStatusQuery recognises "return status <id>" and "exchange status <id>".
func parseStatusQuery(text string) (enums.RequestKind, string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	var kind enums.RequestKind
	switch {
	case strings.HasPrefix(lower, "return status"):
		kind = enums.RequestKindReturn
	case strings.HasPrefix(lower, "exchange status"):
		kind = enums.RequestKindExchange
	default:
		return "", "", false
	}
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return "", "", false
	}
	return kind, strings.ToUpper(fields[len(fields)-1]), true
}

func customerError(err error) string {
	switch {
	case errors.Is(err, returns.ErrActiveRequestExists):
		return "a return or exchange is already in progress for this order"
	case errors.Is(err, returns.ErrOrderNotFound):
		return "order not found"
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInternal {
		return "internal error"
	}
	return pkgerrors.PublicText(err)
}
