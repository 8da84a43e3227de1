package returns

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	returnIDPrefix   = "RET"
	exchangeIDPrefix = "EXC"
	idSuffixLength   = 9
)

// NewReturnID builds a shareable id such as RET-1756720800000-8F3A1C2B9.
func NewReturnID(now time.Time) string {
	return newRequestID(returnIDPrefix, now)
}

// NewExchangeID builds a shareable id such as EXC-1756720800000-0B77D4E1A.
func NewExchangeID(now time.Time) string {
	return newRequestID(exchangeIDPrefix, now)
}

func newRequestID(prefix string, now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), random[:idSuffixLength])
}
