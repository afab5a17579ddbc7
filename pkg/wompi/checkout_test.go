package wompi

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutBuilderURL(t *testing.T) {
	builder := NewCheckoutBuilder("", "pub_test_123", "integrity-secret")
	expiration := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("COT", -5*3600))

	raw := builder.URL(CheckoutParams{
		Reference:     "100001",
		AmountInCents: 5000000,
		Currency:      "COP",
		RedirectURL:   "https://shop.example/thanks",
		Expiration:    &expiration,
		Customer:      &CustomerData{Email: "ana@example.com", FullName: "Ana Ruiz", LegalID: "1020304050", LegalIDType: "CC"},
		Shipping:      &ShippingAddress{AddressLine1: "Calle 1 # 2-3", City: "Medellin", Region: "Antioquia", Country: "CO"},
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "checkout.wompi.co", u.Host)
	assert.Equal(t, "/p/", u.Path)

	q := u.Query()
	assert.Equal(t, "pub_test_123", q.Get("public-key"))
	assert.Equal(t, "COP", q.Get("currency"))
	assert.Equal(t, "5000000", q.Get("amount-in-cents"))
	assert.Equal(t, "100001", q.Get("reference"))
	assert.Equal(t, "https://shop.example/thanks", q.Get("redirect-url"))
	assert.Equal(t, "2026-01-02T08:04:05.000Z", q.Get("expiration-time"))
	assert.Equal(t, "ana@example.com", q.Get("customer-data:email"))
	assert.Equal(t, "CC", q.Get("customer-data:legal-id-type"))
	assert.Equal(t, "Medellin", q.Get("shipping-address:city"))
	assert.Equal(t, IntegritySignature("100001", 5000000, "COP", &expiration, "integrity-secret"), q.Get("signature:integrity"))
}

func TestCheckoutBuilderOmitsEmptyOptionalFields(t *testing.T) {
	builder := NewCheckoutBuilder("https://checkout.test/p/", "pub", "secret")
	values := builder.Values(CheckoutParams{Reference: "100002", AmountInCents: 100, Currency: "COP"})

	for _, key := range []string{"redirect-url", "expiration-time", "customer-data:email", "shipping-address:city"} {
		_, ok := values[key]
		assert.False(t, ok, key)
	}
}
