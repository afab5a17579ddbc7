package wompi

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ExpirationLayout is the timestamp format the checkout expects for
// expiration-time, both in the URL and in the integrity hash.
const ExpirationLayout = "2006-01-02T15:04:05.000Z"

// IntegritySignature signs the outgoing checkout parameters:
// sha256(reference + amountInCents + currency + [expiration] + secret), hex encoded.
func IntegritySignature(reference string, amountInCents int64, currency string, expiration *time.Time, secret string) string {
	var b strings.Builder
	b.WriteString(reference)
	b.WriteString(strconv.FormatInt(amountInCents, 10))
	b.WriteString(currency)
	if expiration != nil && !expiration.IsZero() {
		b.WriteString(FormatExpiration(*expiration))
	}
	b.WriteString(secret)
	return sha256Hex(b.String())
}

// FormatExpiration renders t the way the checkout and the integrity hash expect.
func FormatExpiration(t time.Time) string {
	return t.UTC().Format(ExpirationLayout)
}

// VerifyEventSignature reports whether body is a well-formed event whose
// checksum matches the one computed with eventSecret. Anything unexpected
// fails closed.
func VerifyEventSignature(body []byte, eventSecret string) bool {
	if strings.TrimSpace(eventSecret) == "" || len(body) == 0 {
		return false
	}
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return false
	}
	expected, err := EventChecksum(event, eventSecret)
	if err != nil {
		return false
	}
	provided := strings.ToLower(strings.TrimSpace(event.Signature.Checksum))
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// EventChecksum computes the checksum of event: the values named by
// signature.properties (resolved against data, missing values contribute
// nothing), then the timestamp, then the secret.
func EventChecksum(event Event, eventSecret string) (string, error) {
	if len(event.Signature.Properties) == 0 {
		return "", fmt.Errorf("event signature has no properties")
	}
	timestamp, err := event.timestampString()
	if err != nil {
		return "", err
	}

	var data map[string]any
	if len(event.Data) > 0 {
		dec := json.NewDecoder(bytes.NewReader(event.Data))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return "", fmt.Errorf("decode event data: %w", err)
		}
	}

	var b strings.Builder
	for _, path := range event.Signature.Properties {
		b.WriteString(resolveProperty(data, path))
	}
	b.WriteString(timestamp)
	b.WriteString(eventSecret)
	return sha256Hex(b.String()), nil
}

// Sign fills event.Signature.Checksum for the given properties.
func Sign(event *Event, eventSecret string, properties ...string) error {
	event.Signature.Properties = properties
	checksum, err := EventChecksum(*event, eventSecret)
	if err != nil {
		return err
	}
	event.Signature.Checksum = strings.ToUpper(checksum)
	return nil
}

func resolveProperty(data map[string]any, path string) string {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current, ok = obj[part]
		if !ok {
			return ""
		}
	}
	switch v := current.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
