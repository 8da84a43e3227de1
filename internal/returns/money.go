package returns

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wa-returns-backend/pkg/types"
)

// ComputeRefund is Σ price × quantity over the returned items.
func ComputeRefund(items types.Items) decimal.Decimal {
	return items.Total()
}

// ComputePriceDifference is Σnew − Σold. Positive means the customer pays.
func ComputePriceDifference(oldItems, newItems types.Items) decimal.Decimal {
	return newItems.Total().Sub(oldItems.Total())
}

// FormatAmount renders whole amounts without decimals and others with two.
func FormatAmount(amount decimal.Decimal) string {
	if amount.IsInteger() {
		return amount.String()
	}
	return amount.StringFixed(2)
}
