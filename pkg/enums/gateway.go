package enums

import (
	"fmt"
	"strings"
)

// Gateway identifies the payment integration that owns a transaction.
type Gateway string

const (
	GatewayWompi     Gateway = "wompi"
	GatewayFastTrack Gateway = "fasttrack"
)

var validGateways = []Gateway{GatewayWompi, GatewayFastTrack}

// String implements fmt.Stringer.
func (g Gateway) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Gateway.
func (g Gateway) IsValid() bool {
	for _, candidate := range validGateways {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGateway converts raw input into a Gateway, ignoring case.
func ParseGateway(value string) (Gateway, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validGateways {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway %q", value)
}
