package webhooks

// Outcome labels what a provider callback did. It feeds the webhook metrics.
type Outcome string

const (
	OutcomeNotified  Outcome = "notified"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRejected  Outcome = "rejected"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
	OutcomeRouted    Outcome = "routed"
)

func (o Outcome) String() string {
	return string(o)
}
