package enums

import "fmt"

// RequestKind distinguishes the two after-sales flows.
type RequestKind string

const (
	RequestKindReturn   RequestKind = "return"
	RequestKindExchange RequestKind = "exchange"
)

var validRequestKinds = []RequestKind{
	RequestKindReturn,
	RequestKindExchange,
}

// String implements fmt.Stringer.
func (r RequestKind) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestKind.
func (r RequestKind) IsValid() bool {
	for _, candidate := range validRequestKinds {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRequestKind converts raw input into a RequestKind.
func ParseRequestKind(value string) (RequestKind, error) {
	for _, candidate := range validRequestKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request kind %q", value)
}
