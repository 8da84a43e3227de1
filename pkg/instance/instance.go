package instance

import (
	"os"
	"strings"
)

// ID identifies this replica in logs. WARB_INSTANCE_ID wins over the DYNO name
// Heroku sets, then the hostname.
func ID() string {
	for _, key := range []string{"WARB_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
