package conversation

import (
	"strings"
	"time"

	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
)

// ActionKind tells the handler which side effect a transition needs.
type ActionKind string

const (
	ActionReply            ActionKind = "reply"
	ActionCheckEligibility ActionKind = "check_eligibility"
	ActionProcessReturn    ActionKind = "process_return"
	ActionProcessExchange  ActionKind = "process_exchange"
	ActionCancel           ActionKind = "cancel"
	ActionExpire           ActionKind = "expire"
)

// Action is the effect a transition asks for. Reply is sent as is when set.
type Action struct {
	Kind    ActionKind
	Reply   string
	OrderID string
}

const confirmChoice = "1"

var reasons = map[string]string{
	"1": "Wrong size",
	"2": "Defective/Damaged",
	"3": "Wrong item received",
	"4": "Quality issues",
	"5": "Changed mind",
	"6": "Other",
}

// ReasonFor maps a menu choice to its reason text.
func ReasonFor(choice string) (string, bool) {
	reason, ok := reasons[strings.TrimSpace(choice)]
	return reason, ok
}

// Trigger reports whether text opens a new dialogue and of which kind. An
// exchange keyword wins when both appear.
func Trigger(text string) (enums.RequestKind, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower != "return" && lower != "exchange" &&
		!strings.Contains(lower, "return order") && !strings.Contains(lower, "exchange order") {
		return "", false
	}
	if strings.Contains(lower, "exchange") {
		return enums.RequestKindExchange, true
	}
	return enums.RequestKindReturn, true
}

// Start opens a dialogue waiting for the order id.
func Start(phone string, kind enums.RequestKind, now time.Time) (*Session, Action) {
	sess := &Session{
		Phone:     phone,
		Type:      kind,
		Step:      StepAwaitingOrderID,
		UpdatedAt: now,
	}
	return sess, Action{Kind: ActionReply, Reply: orderIDPrompt(kind)}
}

// Transition advances sess by one inbound text. A nil session means the
// dialogue ends once the action is carried out. For check_eligibility the
// returned session is the one to keep when the order turns out eligible.
func Transition(sess Session, text string) (*Session, Action) {
	trimmed := strings.TrimSpace(text)

	switch sess.Step {
	case StepAwaitingOrderID:
		orderID := strings.ToUpper(trimmed)
		if orderID == "" {
			return &sess, Action{Kind: ActionReply, Reply: orderIDPrompt(sess.Type)}
		}
		next := sess
		next.Step = StepAwaitingReason
		next.Data.OrderID = orderID
		return &next, Action{Kind: ActionCheckEligibility, OrderID: orderID}

	case StepAwaitingReason:
		reason, ok := ReasonFor(trimmed)
		if !ok {
			return &sess, Action{Kind: ActionReply, Reply: invalidReasonMessage}
		}
		next := sess
		next.Step = StepAwaitingItemSelection
		next.Data.Reason = reason
		return &next, Action{Kind: ActionReply, Reply: itemSelectionPrompt(sess.Type, reason)}

	case StepAwaitingItemSelection:
		if sess.Type == enums.RequestKindExchange {
			next := sess
			next.Step = StepAwaitingNewItemSelection
			next.Data.NewItemDescription = trimmed
			return &next, Action{Kind: ActionReply, Reply: exchangeNotedPrompt(text)}
		}
		if trimmed == confirmChoice {
			return nil, Action{Kind: ActionProcessReturn}
		}
		return nil, Action{Kind: ActionCancel, Reply: returnCancelledMessage}

	case StepAwaitingNewItemSelection:
		if trimmed == confirmChoice {
			return nil, Action{Kind: ActionProcessExchange}
		}
		return nil, Action{Kind: ActionCancel, Reply: exchangeCancelledMessage}
	}

	return nil, Action{Kind: ActionExpire, Reply: sessionExpiredMessage}
}
