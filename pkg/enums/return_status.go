package enums

import (
	"fmt"
	"strings"
)

// ReturnStatus tracks a return from request to refund.
type ReturnStatus string

const (
	ReturnStatusInitiated            ReturnStatus = "initiated"
	ReturnStatusPickupScheduled      ReturnStatus = "pickup_scheduled"
	ReturnStatusPickedUp             ReturnStatus = "picked_up"
	ReturnStatusDeliveredToWarehouse ReturnStatus = "delivered_to_warehouse"
	ReturnStatusQCPassed             ReturnStatus = "qc_passed"
	ReturnStatusQCFailed             ReturnStatus = "qc_failed"
	ReturnStatusRefundProcessed      ReturnStatus = "refund_processed"
	ReturnStatusCompleted            ReturnStatus = "completed"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusInitiated,
	ReturnStatusPickupScheduled,
	ReturnStatusPickedUp,
	ReturnStatusDeliveredToWarehouse,
	ReturnStatusQCPassed,
	ReturnStatusQCFailed,
	ReturnStatusRefundProcessed,
	ReturnStatusCompleted,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// Label renders the status for customers, e.g. "PICKUP SCHEDULED".
func (r ReturnStatus) Label() string {
	return strings.ToUpper(strings.ReplaceAll(string(r), "_", " "))
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are expected.
func (r ReturnStatus) IsTerminal() bool {
	return r == ReturnStatusCompleted || r == ReturnStatusQCFailed
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
