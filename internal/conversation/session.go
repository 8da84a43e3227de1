package conversation

import (
	"time"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
)

// Step is where an open dialogue is waiting for input.
type Step string

const (
	StepAwaitingOrderID          Step = "awaiting_order_id"
	StepAwaitingReason           Step = "awaiting_reason"
	StepAwaitingItemSelection    Step = "awaiting_item_selection"
	StepAwaitingNewItemSelection Step = "awaiting_new_item_selection"
)

var validSteps = []Step{
	StepAwaitingOrderID,
	StepAwaitingReason,
	StepAwaitingItemSelection,
	StepAwaitingNewItemSelection,
}

func (s Step) IsValid() bool {
	for _, candidate := range validSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// Session is one customer's open return or exchange dialogue.
type Session struct {
	Phone     string            `json:"phone"`
	Type      enums.RequestKind `json:"type"`
	Step      Step              `json:"step"`
	Data      SessionData       `json:"data"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SessionData accumulates what the customer has answered so far.
type SessionData struct {
	OrderID            string        `json:"order_id,omitempty"`
	Order              *models.Order `json:"order,omitempty"`
	DaysRemaining      int           `json:"days_remaining,omitempty"`
	Reason             string        `json:"reason,omitempty"`
	NewItemDescription string        `json:"new_item_description,omitempty"`
}
