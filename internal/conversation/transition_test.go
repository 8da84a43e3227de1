package conversation

import (
	"testing"
	"time"

	"github.com/angelmondragon/wa-returns-backend/pkg/enums"
)

func TestTrigger(t *testing.T) {
	cases := []struct {
		text string
		kind enums.RequestKind
		ok   bool
	}{
		{"return", enums.RequestKindReturn, true},
		{"  Exchange ", enums.RequestKindExchange, true},
		{"I want to return order 55", enums.RequestKindReturn, true},
		{"return order or exchange order?", enums.RequestKindExchange, true},
		{"returns", "", false},
		{"return status RET-1", "", false},
		{"hello", "", false},
	}
	for _, tc := range cases {
		kind, ok := Trigger(tc.text)
		if ok != tc.ok || kind != tc.kind {
			t.Fatalf("%q: expected (%s,%v) got (%s,%v)", tc.text, tc.kind, tc.ok, kind, ok)
		}
	}
}

func TestStartWaitsForOrderID(t *testing.T) {
	sess, action := Start("91", enums.RequestKindReturn, time.Now())
	if sess.Step != StepAwaitingOrderID || sess.Type != enums.RequestKindReturn {
		t.Fatalf("unexpected session %+v", sess)
	}
	if action.Kind != ActionReply || action.Reply == "" {
		t.Fatalf("expected order id prompt")
	}
}

func TestTransitionOrderIDIsNormalised(t *testing.T) {
	sess := Session{Phone: "91", Type: enums.RequestKindReturn, Step: StepAwaitingOrderID}
	next, action := Transition(sess, "  ord-1001 ")
	if action.Kind != ActionCheckEligibility || action.OrderID != "ORD-1001" {
		t.Fatalf("unexpected action %+v", action)
	}
	if next.Step != StepAwaitingReason || next.Data.OrderID != "ORD-1001" {
		t.Fatalf("unexpected next %+v", next)
	}
	if sess.Step != StepAwaitingOrderID {
		t.Fatalf("input session must not be mutated")
	}
}

func TestTransitionReasonMenu(t *testing.T) {
	sess := Session{Phone: "91", Type: enums.RequestKindReturn, Step: StepAwaitingReason}

	for _, bad := range []string{"7", "0", "two", ""} {
		next, action := Transition(sess, bad)
		if next == nil || next.Step != StepAwaitingReason {
			t.Fatalf("%q: expected to stay at awaiting_reason", bad)
		}
		if action.Kind != ActionReply || action.Reply != invalidReasonMessage {
			t.Fatalf("%q: expected re-prompt, got %+v", bad, action)
		}
	}

	next, action := Transition(sess, "2")
	if next.Step != StepAwaitingItemSelection || next.Data.Reason != "Defective/Damaged" {
		t.Fatalf("unexpected next %+v", next)
	}
	if action.Kind != ActionReply {
		t.Fatalf("expected reply, got %s", action.Kind)
	}
}

func TestTransitionReturnConfirmation(t *testing.T) {
	sess := Session{Phone: "91", Type: enums.RequestKindReturn, Step: StepAwaitingItemSelection}

	next, action := Transition(sess, "1")
	if next != nil || action.Kind != ActionProcessReturn {
		t.Fatalf("expected process_return, got %+v %+v", next, action)
	}
	next, action = Transition(sess, "2")
	if next != nil || action.Kind != ActionCancel || action.Reply != returnCancelledMessage {
		t.Fatalf("expected cancel, got %+v %+v", next, action)
	}
}

func TestTransitionExchangeFlow(t *testing.T) {
	sess := Session{Phone: "91", Type: enums.RequestKindExchange, Step: StepAwaitingItemSelection}

	next, action := Transition(sess, " Size L instead of M ")
	if next.Step != StepAwaitingNewItemSelection || next.Data.NewItemDescription != "Size L instead of M" {
		t.Fatalf("unexpected next %+v", next)
	}
	if action.Kind != ActionReply {
		t.Fatalf("expected reply, got %s", action.Kind)
	}

	done, action := Transition(*next, "1")
	if done != nil || action.Kind != ActionProcessExchange {
		t.Fatalf("expected process_exchange, got %+v", action)
	}
	done, action = Transition(*next, "no")
	if done != nil || action.Kind != ActionCancel || action.Reply != exchangeCancelledMessage {
		t.Fatalf("expected cancel, got %+v", action)
	}
}

func TestTransitionUnknownStepExpires(t *testing.T) {
	next, action := Transition(Session{Phone: "91", Step: Step("awaiting_confirmation")}, "1")
	if next != nil || action.Kind != ActionExpire || action.Reply != sessionExpiredMessage {
		t.Fatalf("expected expire, got %+v", action)
	}
}
