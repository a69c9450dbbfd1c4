package instance

import (
	"os"
	"strings"
)

const EnvInstanceID = "ROCKETSHOP_INSTANCE_ID"

// ID identifies this process in logs and lock ownership. It prefers an
// explicit id, then the platform dyno name, then the hostname.
func ID() string {
	for _, key := range []string{EnvInstanceID, "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
