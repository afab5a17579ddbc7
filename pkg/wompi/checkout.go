package wompi

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultCheckoutURL = "https://checkout.wompi.co/p/"

// CheckoutParams are the fields of a web checkout redirect.
type CheckoutParams struct {
	Reference     string
	AmountInCents int64
	Currency      string
	RedirectURL   string
	Expiration    *time.Time

	Customer *CustomerData
	Shipping *ShippingAddress
}

type CustomerData struct {
	Email       string
	FullName    string
	PhoneNumber string
	LegalID     string
	LegalIDType string
}

type ShippingAddress struct {
	AddressLine1 string
	City         string
	Region       string
	Country      string
	PhoneNumber  string
}

// CheckoutBuilder assembles signed checkout URLs. It performs no I/O.
type CheckoutBuilder struct {
	checkoutURL     string
	publicKey       string
	integritySecret string
}

func NewCheckoutBuilder(checkoutURL, publicKey, integritySecret string) *CheckoutBuilder {
	if strings.TrimSpace(checkoutURL) == "" {
		checkoutURL = defaultCheckoutURL
	}
	return &CheckoutBuilder{
		checkoutURL:     strings.TrimSpace(checkoutURL),
		publicKey:       strings.TrimSpace(publicKey),
		integritySecret: integritySecret,
	}
}

// Signature returns the integrity signature for params.
func (b *CheckoutBuilder) Signature(params CheckoutParams) string {
	return IntegritySignature(params.Reference, params.AmountInCents, params.Currency, params.Expiration, b.integritySecret)
}

// Values returns the query parameters of the checkout redirect, signature included.
func (b *CheckoutBuilder) Values(params CheckoutParams) url.Values {
	values := url.Values{}
	values.Set("public-key", b.publicKey)
	values.Set("currency", params.Currency)
	values.Set("amount-in-cents", strconv.FormatInt(params.AmountInCents, 10))
	values.Set("reference", params.Reference)
	values.Set("signature:integrity", b.Signature(params))

	setIf(values, "redirect-url", params.RedirectURL)
	if params.Expiration != nil && !params.Expiration.IsZero() {
		values.Set("expiration-time", FormatExpiration(*params.Expiration))
	}
	if c := params.Customer; c != nil {
		setIf(values, "customer-data:email", c.Email)
		setIf(values, "customer-data:full-name", c.FullName)
		setIf(values, "customer-data:phone-number", c.PhoneNumber)
		setIf(values, "customer-data:legal-id", c.LegalID)
		setIf(values, "customer-data:legal-id-type", c.LegalIDType)
	}
	if s := params.Shipping; s != nil {
		setIf(values, "shipping-address:address-line-1", s.AddressLine1)
		setIf(values, "shipping-address:city", s.City)
		setIf(values, "shipping-address:region", s.Region)
		setIf(values, "shipping-address:country", s.Country)
		setIf(values, "shipping-address:phone-number", s.PhoneNumber)
	}
	return values
}

// URL returns the full redirect URL for params.
func (b *CheckoutBuilder) URL(params CheckoutParams) string {
	u, err := url.Parse(b.checkoutURL)
	if err != nil {
		return b.checkoutURL + "?" + b.Values(params).Encode()
	}
	u.RawQuery = b.Values(params).Encode()
	return u.String()
}

func setIf(values url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		values.Set(key, value)
	}
}
