package instance

import (
	"os"

	"github.com/angelmondragon/vitora-backend/pkg/env"
)

// GetID returns the process instance identifier. Cloud Run exposes the
// revision; local runs fall back to the hostname.
func GetID() string {
	if id, ok := env.First("VITORA_INSTANCE_ID", "K_REVISION"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
