package enums

import "fmt"

// MessageDirection marks a logged WhatsApp message as inbound or outbound.
type MessageDirection string

const (
	MessageDirectionIncoming MessageDirection = "incoming"
	MessageDirectionOutgoing MessageDirection = "outgoing"
)

var validMessageDirections = []MessageDirection{
	MessageDirectionIncoming,
	MessageDirectionOutgoing,
}

// String implements fmt.Stringer.
func (m MessageDirection) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MessageDirection.
func (m MessageDirection) IsValid() bool {
	for _, candidate := range validMessageDirections {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMessageDirection converts raw input into a MessageDirection.
func ParseMessageDirection(value string) (MessageDirection, error) {
	for _, candidate := range validMessageDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid message direction %q", value)
}
