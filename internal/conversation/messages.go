package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wa-returns-backend/internal/returns"
	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
	"github.com/angelmondragon/wa-returns-backend/pkg/shiprocket"
)

const (
	invalidReasonMessage     = "❌ Invalid selection. Please reply with a number from 1-6."
	returnCancelledMessage   = "❌ Return cancelled."
	exchangeCancelledMessage = "❌ Exchange cancelled."
	sessionExpiredMessage    = "Session expired. Please start again."

	createdDateLayout = "02 Jan 2006"
)

var statusEmojis = map[string]string{
	"initiated":              "🔄",
	"payment_pending":        "💳",
	"payment_completed":      "💳",
	"pickup_scheduled":       "📅",
	"picked_up":              "📦",
	"delivered_to_warehouse": "🏭",
	"qc_passed":              "✅",
	"qc_failed":              "❌",
	"refund_processed":       "💰",
	"new_order_created":      "📦",
	"completed":              "✅",
}

func orderIDPrompt(kind enums.RequestKind) string {
	if kind == enums.RequestKindExchange {
		return "🔄 *Exchange Request*\n\nPlease send your *Order ID* to initiate the exchange process.\n\nExample: ORD-2024-001"
	}
	return "🔄 *Return Request*\n\nPlease send your *Order ID* to initiate the return process.\n\nExample: ORD-2024-001"
}

func reasonPrompt(orderID string, daysRemaining int, kind enums.RequestKind) string {
	return fmt.Sprintf("✅ Order found!\n\n📦 Order: %s\n⏰ %d days remaining for %s\n\n*Select reason:*\n\n"+
		"1️⃣ Wrong size\n2️⃣ Defective/Damaged\n3️⃣ Wrong item received\n4️⃣ Quality issues\n5️⃣ Changed mind\n6️⃣ Other\n\n"+
		"Reply with the number (1-6)", orderID, daysRemaining, kind)
}

func itemSelectionPrompt(kind enums.RequestKind, reason string) string {
	if kind == enums.RequestKindExchange {
		return fmt.Sprintf("📝 Reason: %s\n\n*What would you like to exchange?*\n\nPlease describe the new size/product you want.\n\n"+
			"Example: \"Size L instead of M\" or \"Blue color instead of Red\"", reason)
	}
	return fmt.Sprintf("📝 Reason: %s\n\n*Confirm return of all items?*\n\n1️⃣ Yes, return all items\n2️⃣ Cancel\n\nReply with 1 or 2", reason)
}

func exchangeNotedPrompt(description string) string {
	return fmt.Sprintf("✅ Exchange request noted: \"%s\"\n\n*Price difference:*\n\n"+
		"If the new item costs more, you'll receive a payment link.\nIf it costs less, you'll get a refund.\n\n"+
		"*Confirm exchange?*\n\n1️⃣ Yes, proceed\n2️⃣ Cancel\n\nReply with 1 or 2", description)
}

// templates renders messages that depend on deployment settings.
type templates struct {
	currency string
	support  string
	loc      *time.Location
}

func (t templates) money(amount decimal.Decimal) string {
	return t.currency + returns.FormatAmount(amount)
}

func (t templates) ineligible(reason string) string {
	return fmt.Sprintf("❌ %s\n\nPlease contact support if you need assistance.%s", reason, t.supportLine())
}

func (t templates) processing(kind enums.RequestKind) string {
	return fmt.Sprintf("⏳ Processing your %s request...", kind)
}

func (t templates) failure(kind enums.RequestKind, detail string) string {
	return fmt.Sprintf("❌ Failed to create %s: %s\n\nPlease contact support.%s", kind, detail, t.supportLine())
}

func (t templates) genericFailure() string {
	return "❌ Something went wrong on our side. Please try again later." + t.supportLine()
}

func (t templates) returnCreated(ret *models.Return, pickupDate string) string {
	return fmt.Sprintf("✅ *Return Request Created!*\n\n🔄 Return ID: %s\n📦 Order ID: %s\n📅 Pickup Date: %s\n💰 Refund Amount: %s\n\n"+
		"📍 *Next Steps:*\n1. Keep items ready with original packaging\n2. Courier will pick up on %s\n"+
		"3. Refund processed after quality check (3-5 days)\n\n📊 Track status: Reply \"return status %s\"",
		ret.ReturnID, ret.OrderID, pickupDate, t.money(ret.RefundAmount), pickupDate, ret.ReturnID)
}

func (t templates) returnPickupPending(ret *models.Return) string {
	return fmt.Sprintf("✅ *Return Request Created!*\n\n🔄 Return ID: %s\n📦 Order ID: %s\n💰 Refund Amount: %s\n\n"+
		"⏳ Pickup pending: we could not book the courier yet. Support will confirm the pickup date.\n\n"+
		"📊 Track status: Reply \"return status %s\"%s",
		ret.ReturnID, ret.OrderID, t.money(ret.RefundAmount), ret.ReturnID, t.supportLine())
}

func (t templates) exchangePaymentRequired(exc *models.Exchange, url string, expiry time.Duration) string {
	return fmt.Sprintf("🔄 *Exchange Request Created!*\n\n🆔 Exchange ID: %s\n📦 Order ID: %s\n\n"+
		"💰 *Payment Required:*\nOld Item: %s\nNew Item: %s\nBalance: %s\n\n💳 *Pay Now:*\n%s\n\n"+
		"⏰ Link expires in %s\n\n✅ After payment:\n• Pickup scheduled automatically\n• New item ships after quality check",
		exc.ExchangeID, exc.OrderID, t.money(exc.OldItems.Total()), t.money(exc.NewItems.Total()),
		t.money(exc.PriceDifference), url, humanHours(expiry))
}

func (t templates) exchangeRefundDue(exc *models.Exchange, pickupDate string) string {
	return fmt.Sprintf("✅ *Exchange Request Created!*\n\n🆔 Exchange ID: %s\n📦 Order ID: %s\n\n"+
		"💰 *Refund Due:*\nOld Item: %s\nNew Item: %s\nRefund: %s\n\n📅 Pickup scheduled for: %s\n💸 Refund processed after quality check",
		exc.ExchangeID, exc.OrderID, t.money(exc.OldItems.Total()), t.money(exc.NewItems.Total()),
		t.money(exc.PriceDifference.Abs()), pickupDate)
}

func (t templates) exchangeNoPayment(exc *models.Exchange, pickupDate string) string {
	return fmt.Sprintf("✅ *Exchange Request Created!*\n\n🆔 Exchange ID: %s\n📦 Order ID: %s\n\n"+
		"✨ No payment required (same price)\n📅 Pickup scheduled for: %s", exc.ExchangeID, exc.OrderID, pickupDate)
}

func (t templates) exchangePickupPending(exc *models.Exchange) string {
	return fmt.Sprintf("✅ *Exchange Request Created!*\n\n🆔 Exchange ID: %s\n📦 Order ID: %s\n\n"+
		"⏳ Pickup pending: we could not book the courier yet. Support will confirm the pickup date.\n\n"+
		"📊 Track status: Reply \"exchange status %s\"%s",
		exc.ExchangeID, exc.OrderID, exc.ExchangeID, t.supportLine())
}

func (t templates) returnStatus(ret *models.Return, latest *shiprocket.TrackingEvent) string {
	status := string(ret.Status)
	body := fmt.Sprintf("%s *RETURN Status*\n\n🆔 ID: %s\n📦 Order: %s\n📊 Status: %s\n\n💰 Refund: %s\n💳 Refund Status: %s",
		statusEmoji(status), ret.ReturnID, ret.OrderID, statusLabel(status), t.money(ret.RefundAmount), ret.RefundStatus)
	return body + trackingLine(latest) + t.createdLine(ret.CreatedAt)
}

func (t templates) exchangeStatus(exc *models.Exchange, latest *shiprocket.TrackingEvent) string {
	status := string(exc.Status)
	body := fmt.Sprintf("%s *EXCHANGE Status*\n\n🆔 ID: %s\n📦 Order: %s\n📊 Status: %s\n\n💰 Price Difference: %s\n💳 Payment: %s",
		statusEmoji(status), exc.ExchangeID, exc.OrderID, statusLabel(status), t.money(exc.PriceDifference), exc.PaymentStatus)
	return body + trackingLine(latest) + t.createdLine(exc.CreatedAt)
}

func (t templates) notFound(kind enums.RequestKind, id string) string {
	label := string(kind)
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	return fmt.Sprintf("❌ %s not found: %s", label, id)
}

func (t templates) createdLine(created time.Time) string {
	loc := t.loc
	if loc == nil {
		loc = time.UTC
	}
	return "\n\n📅 Created: " + created.In(loc).Format(createdDateLayout)
}

func (t templates) supportLine() string {
	if strings.TrimSpace(t.support) == "" {
		return ""
	}
	return "\n📞 Support: " + t.support
}

func trackingLine(latest *shiprocket.TrackingEvent) string {
	if latest == nil || latest.Activity == "" {
		return ""
	}
	line := "\n🚚 Latest: " + latest.Activity
	if latest.Location != "" {
		line += " (" + latest.Location + ")"
	}
	return line
}

func statusEmoji(status string) string {
	if emoji, ok := statusEmojis[status]; ok {
		return emoji
	}
	return "📊"
}

// statusLabel renders pickup_scheduled as PICKUP SCHEDULED.
func statusLabel(status string) string {
	return strings.ToUpper(strings.ReplaceAll(status, "_", " "))
}

func humanHours(d time.Duration) string {
	if d <= 0 {
		d = 24 * time.Hour
	}
	hours := int(d.Round(time.Hour) / time.Hour)
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
