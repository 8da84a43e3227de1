package messages

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
	"github.com/angelmondragon/wa-returns-backend/pkg/shiprocket"
)

const (
	historyLimit      = 10
	timelineLimit     = 5
	maxReferenceWords = 4
	orderDateLayout   = "02 Jan 2006"

	trackPromptText = "📦 Please send me your order ID or AWB number to check the status."
	noHistoryText   = "📋 No previous orders found."
)

var (
	referencePrefix  = regexp.MustCompile(`(?i)\b(order\s*(id|number|no\.?|#)?|awb)\s*[:#]?\s*`)
	referenceToken   = regexp.MustCompile(`[A-Za-z0-9_-]{4,20}`)
	awbPattern       = regexp.MustCompile(`^[0-9]{10,15}$`)
	orderStatusEmoji = map[string]string{
		"pending":          "⏳",
		"confirmed":        "✅",
		"shipped":          "🚚",
		"in_transit":       "📍",
		"out_for_delivery": "🏃",
		"delivered":        "✅",
		"cancelled":        "❌",
		"returned":         "↩️",
	}
)

type orderFinder interface {
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	ListByCustomerPhone(ctx context.Context, phone string, limit int) ([]models.Order, error)
}

type trackingSource interface {
	GetTracking(ctx context.Context, awb string) ([]shiprocket.TrackingEvent, error)
}

type OrderStatusParams struct {
	Orders         orderFinder
	Tracking       trackingSource
	CurrencySymbol string
	Location       *time.Location
}

// OrderStatusResponder answers order lookups, AWB tracking and order history
// for texts no conversation claimed.
type OrderStatusResponder struct {
	orders   orderFinder
	tracking trackingSource
	currency string
	loc      *time.Location
}

// NewOrderStatusResponder wires the responder. Tracking is optional; without
// it AWB numbers are looked up as order IDs.
func NewOrderStatusResponder(params OrderStatusParams) (*OrderStatusResponder, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	currency := strings.TrimSpace(params.CurrencySymbol)
	if currency == "" {
		currency = "₹"
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &OrderStatusResponder{
		orders:   params.Orders,
		tracking: params.Tracking,
		currency: currency,
		loc:      loc,
	}, nil
}

// Respond reports whether the text was an order command or reference and,
// if so, the reply to send.
func (o *OrderStatusResponder) Respond(ctx context.Context, phone, text string) (string, bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "history", "orders", "my orders", "order history":
		reply, err := o.history(ctx, phone)
		return reply, true, err
	case "status", "track", "order status", "track order":
		return trackPromptText, true, nil
	}

	ref, ok := extractReference(text)
	if !ok {
		return "", false, nil
	}
	if o.tracking != nil && awbPattern.MatchString(ref) {
		reply, err := o.timeline(ctx, ref)
		return reply, true, err
	}

	orderID := strings.ToUpper(ref)
	order, err := o.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return "", true, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order")
	}
	if order == nil {
		return fmt.Sprintf("❌ Sorry, I couldn't find order #%s", orderID), true, nil
	}
	return o.orderStatus(order), true, nil
}

func (o *OrderStatusResponder) history(ctx context.Context, phone string) (string, error) {
	rows, err := o.orders.ListByCustomerPhone(ctx, phone, historyLimit)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	if len(rows) == 0 {
		return noHistoryText, nil
	}
	var b strings.Builder
	b.WriteString("📋 *Your Recent Orders:*\n")
	for i, order := range rows {
		fmt.Fprintf(&b, "\n%d. #%s %s %s\n   %s%s • %s",
			i+1, order.OrderID, statusIcon(string(order.Status)), statusName(string(order.Status)),
			o.currency, order.Total.StringFixed(2), order.CreatedAt.In(o.loc).Format(orderDateLayout))
	}
	b.WriteString("\n\nSend me an order ID to see details!")
	return b.String(), nil
}

func (o *OrderStatusResponder) orderStatus(order *models.Order) string {
	status := string(order.Status)
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Order #%s*\n\n", statusIcon(status), order.OrderID)
	fmt.Fprintf(&b, "Status: *%s*\n", statusName(status))
	fmt.Fprintf(&b, "Total: %s%s\n", o.currency, order.Total.StringFixed(2))
	fmt.Fprintf(&b, "Placed: %s", order.CreatedAt.In(o.loc).Format(orderDateLayout))
	if order.DeliveredAt != nil {
		fmt.Fprintf(&b, "\nDelivered: %s", order.DeliveredAt.In(o.loc).Format(orderDateLayout))
	}
	if n := len(order.LineItems); n > 0 {
		fmt.Fprintf(&b, "\nItems: %d", n)
	}
	return b.String()
}

func (o *OrderStatusResponder) timeline(ctx context.Context, awb string) (string, error) {
	events, err := o.tracking.GetTracking(ctx, awb)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch tracking")
	}
	if len(events) == 0 {
		return fmt.Sprintf("📦 AWB %s\n\nNo tracking updates yet. Please check again later.", awb), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🚚 *Tracking AWB %s*\n", awb)
	for i, event := range events {
		if i == timelineLimit {
			break
		}
		marker := "⚪"
		if i == 0 {
			marker = "🔵"
		}
		fmt.Fprintf(&b, "\n%s %s", marker, event.Activity)
		if event.Location != "" {
			fmt.Fprintf(&b, " (%s)", event.Location)
		}
		if event.Date != "" {
			fmt.Fprintf(&b, "\n   %s", event.Date)
		}
	}
	return b.String(), nil
}

// extractReference pulls an order ID or AWB out of a short message. Only
// tokens carrying a digit count, so ordinary words are not taken for IDs.
func extractReference(text string) (string, bool) {
	stripped := referencePrefix.ReplaceAllString(strings.TrimSpace(text), " ")
	if len(strings.Fields(stripped)) > maxReferenceWords {
		return "", false
	}
	for _, token := range referenceToken.FindAllString(stripped, -1) {
		if strings.ContainsAny(token, "0123456789") {
			return token, true
		}
	}
	return "", false
}

func statusIcon(status string) string {
	if emoji, ok := orderStatusEmoji[status]; ok {
		return emoji
	}
	return "📦"
}

func statusName(status string) string {
	return strings.ToUpper(strings.ReplaceAll(status, "_", " "))
}
