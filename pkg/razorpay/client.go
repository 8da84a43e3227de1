package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wa-returns-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
)

const (
	defaultCurrency   = "INR"
	defaultLinkExpiry = 24 * time.Hour
	exchangeNoteType  = "exchange_balance"
)

var errKeysRequired = errors.New("razorpay key id and key secret are required")

type paymentLinkAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Cancel(id string, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client wraps the Razorpay SDK for payment links, refunds and webhook checks.
type Client struct {
	links         paymentLinkAPI
	payments      paymentAPI
	webhookSecret string
	callbackURL   string
	currency      string
	linkExpiry    time.Duration
	now           func() time.Time
}

// NewClient initializes the Razorpay SDK with the configured keys.
func NewClient(ctx context.Context, cfg config.RazorpayConfig, linkExpiry time.Duration, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errKeysRequired
	}
	api := razorpay.NewClient(strings.TrimSpace(cfg.KeyID), strings.TrimSpace(cfg.KeySecret))

	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	if linkExpiry <= 0 {
		linkExpiry = defaultLinkExpiry
	}
	if logg != nil {
		logg.Info(ctx, "razorpay client initialized")
	}
	return &Client{
		links:         api.PaymentLink,
		payments:      api.Payment,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		callbackURL:   strings.TrimSpace(cfg.CallbackURL),
		currency:      currency,
		linkExpiry:    linkExpiry,
		now:           time.Now,
	}, nil
}

// Customer identifies who a payment link is addressed to.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// PaymentLink is the hosted checkout a customer pays through.
type PaymentLink struct {
	ID        string
	URL       string
	Amount    decimal.Decimal
	ExpiresAt time.Time
}

// Refund is a refund issued against a captured payment.
type Refund struct {
	ID     string
	Amount decimal.Decimal
	Status string
}

// CreatePaymentLink requests a link for the exchange balance of an order.
func (c *Client) CreatePaymentLink(ctx context.Context, amount decimal.Decimal, orderID string, customer Customer) (*PaymentLink, error) {
	if c == nil || c.links == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay not configured")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment link")
	}

	name := customer.Name
	if name == "" {
		name = "Customer"
	}
	email := customer.Email
	if email == "" {
		email = customer.Phone + "@customer.com"
	}
	expireBy := c.now().Add(c.linkExpiry).Unix()

	data := map[string]interface{}{
		"amount":      ToPaise(amount),
		"currency":    c.currency,
		"description": fmt.Sprintf("Exchange balance for Order %s", orderID),
		"customer": map[string]interface{}{
			"name":    name,
			"contact": customer.Phone,
			"email":   email,
		},
		"notify": map[string]interface{}{
			"sms":   true,
			"email": false,
		},
		"reminder_enable": true,
		"notes": map[string]interface{}{
			"order_id": orderID,
			"type":     exchangeNoteType,
		},
		"expire_by": expireBy,
	}
	if c.callbackURL != "" {
		data["callback_url"] = c.callbackURL
		data["callback_method"] = "get"
	}

	resp, err := c.links.Create(data, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment link")
	}
	link := &PaymentLink{
		ID:        stringField(resp, "id"),
		URL:       stringField(resp, "short_url"),
		Amount:    amount,
		ExpiresAt: time.Unix(expireBy, 0).UTC(),
	}
	if v, ok := resp["expire_by"].(float64); ok && v > 0 {
		link.ExpiresAt = time.Unix(int64(v), 0).UTC()
	}
	if link.ID == "" || link.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay payment link response missing id or short_url")
	}
	return link, nil
}

// CancelPaymentLink cancels an unpaid link.
func (c *Client) CancelPaymentLink(ctx context.Context, linkID string) error {
	if c == nil || c.links == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "razorpay not configured")
	}
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment link")
	}
	if _, err := c.links.Cancel(linkID, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment link")
	}
	return nil
}

// Refund issues a normal-speed refund against a captured payment.
func (c *Client) Refund(ctx context.Context, paymentID string, amount decimal.Decimal, notes map[string]string) (*Refund, error) {
	if c == nil || c.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay not configured")
	}
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund payment")
	}

	noteMap := map[string]interface{}{}
	for k, v := range notes {
		noteMap[k] = v
	}
	resp, err := c.payments.Refund(paymentID, int(ToPaise(amount)), map[string]interface{}{
		"speed": "normal",
		"notes": noteMap,
	}, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund payment")
	}
	refund := &Refund{
		ID:     stringField(resp, "id"),
		Amount: amount,
		Status: stringField(resp, "status"),
	}
	if v, ok := resp["amount"].(float64); ok {
		refund.Amount = FromPaise(int64(v))
	}
	return refund, nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw request body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil || c.webhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, c.webhookSecret)
}

// ToPaise converts rupees to the integer minor unit Razorpay expects.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromPaise converts a Razorpay minor-unit amount to rupees.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
