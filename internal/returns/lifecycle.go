package returns

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
)

// Edges of the return lifecycle. QC failure is terminal.
var returnTransitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusInitiated:            {enums.ReturnStatusPickupScheduled},
	enums.ReturnStatusPickupScheduled:      {enums.ReturnStatusPickedUp},
	enums.ReturnStatusPickedUp:             {enums.ReturnStatusDeliveredToWarehouse},
	enums.ReturnStatusDeliveredToWarehouse: {enums.ReturnStatusQCPassed, enums.ReturnStatusQCFailed},
	enums.ReturnStatusQCPassed:             {enums.ReturnStatusRefundProcessed},
	enums.ReturnStatusRefundProcessed:      {enums.ReturnStatusCompleted},
}

// Edges of the exchange lifecycle. The payment branch is skipped when nothing
// is owed.
var exchangeTransitions = map[enums.ExchangeStatus][]enums.ExchangeStatus{
	enums.ExchangeStatusInitiated:        {enums.ExchangeStatusPaymentPending, enums.ExchangeStatusPickupScheduled},
	enums.ExchangeStatusPaymentPending:   {enums.ExchangeStatusPaymentCompleted},
	enums.ExchangeStatusPaymentCompleted: {enums.ExchangeStatusPickupScheduled},
	enums.ExchangeStatusPickupScheduled:  {enums.ExchangeStatusPickedUp},
	enums.ExchangeStatusPickedUp:         {enums.ExchangeStatusQCPassed, enums.ExchangeStatusQCFailed},
	enums.ExchangeStatusQCPassed:         {enums.ExchangeStatusNewOrderCreated},
	enums.ExchangeStatusNewOrderCreated:  {enums.ExchangeStatusCompleted},
}

// CanTransitionReturn reports whether a return may move from one status to
// another. Any status reachable along the table is accepted, including skipped
// intermediate steps. Regressions and exits from terminal states are not.
func CanTransitionReturn(from, to enums.ReturnStatus) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	return reachable(returnTransitions, from, to)
}

// CanTransitionExchange is the exchange counterpart of CanTransitionReturn.
// Payment states are only reachable before pickup.
func CanTransitionExchange(from, to enums.ExchangeStatus) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	return reachable(exchangeTransitions, from, to)
}

func reachable[S comparable](edges map[S][]S, from, to S) bool {
	seen := map[S]bool{from: true}
	queue := []S{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range edges[current] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// PaymentStatusFor is pending iff the customer owes money.
func PaymentStatusFor(priceDifference decimal.Decimal) enums.PaymentStatus {
	if priceDifference.IsPositive() {
		return enums.PaymentStatusPending
	}
	return enums.PaymentStatusNotRequired
}
