package enums

import (
	"fmt"
	"strings"
)

// ExchangeStatus tracks an exchange from request to the replacement shipment.
type ExchangeStatus string

const (
	ExchangeStatusInitiated        ExchangeStatus = "initiated"
	ExchangeStatusPaymentPending   ExchangeStatus = "payment_pending"
	ExchangeStatusPaymentCompleted ExchangeStatus = "payment_completed"
	ExchangeStatusPickupScheduled  ExchangeStatus = "pickup_scheduled"
	ExchangeStatusPickedUp         ExchangeStatus = "picked_up"
	ExchangeStatusQCPassed         ExchangeStatus = "qc_passed"
	ExchangeStatusQCFailed         ExchangeStatus = "qc_failed"
	ExchangeStatusNewOrderCreated  ExchangeStatus = "new_order_created"
	ExchangeStatusCompleted        ExchangeStatus = "completed"
)

var validExchangeStatuses = []ExchangeStatus{
	ExchangeStatusInitiated,
	ExchangeStatusPaymentPending,
	ExchangeStatusPaymentCompleted,
	ExchangeStatusPickupScheduled,
	ExchangeStatusPickedUp,
	ExchangeStatusQCPassed,
	ExchangeStatusQCFailed,
	ExchangeStatusNewOrderCreated,
	ExchangeStatusCompleted,
}

// String implements fmt.Stringer.
func (e ExchangeStatus) String() string {
	return string(e)
}

// Label renders the status for customers.
func (e ExchangeStatus) Label() string {
	return strings.ToUpper(strings.ReplaceAll(string(e), "_", " "))
}

// IsValid reports whether the value is a known ExchangeStatus.
func (e ExchangeStatus) IsValid() bool {
	for _, candidate := range validExchangeStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are expected.
func (e ExchangeStatus) IsTerminal() bool {
	return e == ExchangeStatusCompleted || e == ExchangeStatusQCFailed
}

// ParseExchangeStatus converts raw input into an ExchangeStatus.
func ParseExchangeStatus(value string) (ExchangeStatus, error) {
	for _, candidate := range validExchangeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exchange status %q", value)
}
