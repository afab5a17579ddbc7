package checkout

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/fasttrack"
	"github.com/angelmondragon/vitora-backend/pkg/wompi"
)

const defaultGatewayTimeout = 10 * time.Second

// PaymentRequest is what a gateway needs to start collecting a payment.
type PaymentRequest struct {
	Reference     int64
	AmountInCents int64
	Currency      string
	Customer      CustomerInput
	Shipping      ShippingInput
}

// Authorization is the gateway's answer to a payment request.
type Authorization struct {
	CheckoutURL          string
	Signature            string
	GatewayTransactionID string
}

// Gateway starts a payment. Synchronous gateways are called inside the write
// transaction so a rejection leaves nothing behind; the others are called
// after the local records commit.
type Gateway interface {
	Name() enums.Gateway
	Synchronous() bool
	Authorize(ctx context.Context, req PaymentRequest) (*Authorization, error)
}

// WompiGateway builds a signed redirect to the hosted checkout. It makes no
// network call.
type WompiGateway struct {
	builder     *wompi.CheckoutBuilder
	redirectURL string
	ttl         time.Duration
	now         func() time.Time
}

// NewWompiGateway returns the redirect gateway. A positive ttl adds an
// expiration time to the signed parameters.
func NewWompiGateway(builder *wompi.CheckoutBuilder, redirectURL string, ttl time.Duration) (*WompiGateway, error) {
	if builder == nil {
		return nil, errors.New("wompi checkout builder required")
	}
	return &WompiGateway{builder: builder, redirectURL: redirectURL, ttl: ttl, now: time.Now}, nil
}

func (g *WompiGateway) Name() enums.Gateway { return enums.GatewayWompi }

func (g *WompiGateway) Synchronous() bool { return false }

func (g *WompiGateway) Authorize(_ context.Context, req PaymentRequest) (*Authorization, error) {
	params := wompi.CheckoutParams{
		Reference:     strconv.FormatInt(req.Reference, 10),
		AmountInCents: req.AmountInCents,
		Currency:      req.Currency,
		RedirectURL:   g.redirectURL,
		Customer: &wompi.CustomerData{
			Email:       deref(req.Customer.Email),
			FullName:    req.Customer.FullName,
			PhoneNumber: deref(req.Customer.Phone),
			LegalID:     req.Customer.Identification,
			LegalIDType: strings.ToUpper(req.Customer.IdentificationType),
		},
	}
	if g.ttl > 0 {
		expiration := g.now().UTC().Add(g.ttl)
		params.Expiration = &expiration
	}
	if req.Shipping.Address != "" {
		params.Shipping = &wompi.ShippingAddress{
			AddressLine1: req.Shipping.Address,
			City:         req.Shipping.City,
			Region:       req.Shipping.Department,
			Country:      "CO",
			PhoneNumber:  deref(req.Customer.Phone),
		}
	}
	return &Authorization{
		CheckoutURL: g.builder.URL(params),
		Signature:   g.builder.Signature(params),
	}, nil
}

type paymentCreator interface {
	CreatePayment(ctx context.Context, req fasttrack.PaymentRequest) (*fasttrack.PaymentResponse, error)
}

// FastTrackGateway registers the payment with the synchronous gateway before
// the checkout is considered created.
type FastTrackGateway struct {
	client          paymentCreator
	integritySecret string
	redirectURL     string
	timeout         time.Duration
}

func NewFastTrackGateway(client paymentCreator, integritySecret, redirectURL string, timeout time.Duration) (*FastTrackGateway, error) {
	if client == nil {
		return nil, errors.New("fasttrack client required")
	}
	if strings.TrimSpace(integritySecret) == "" {
		return nil, errors.New("fasttrack integrity secret required")
	}
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &FastTrackGateway{client: client, integritySecret: integritySecret, redirectURL: redirectURL, timeout: timeout}, nil
}

func (g *FastTrackGateway) Name() enums.Gateway { return enums.GatewayFastTrack }

func (g *FastTrackGateway) Synchronous() bool { return true }

func (g *FastTrackGateway) Authorize(ctx context.Context, req PaymentRequest) (*Authorization, error) {
	reference := strconv.FormatInt(req.Reference, 10)
	signature := wompi.IntegritySignature(reference, req.AmountInCents, req.Currency, nil, g.integritySecret)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreatePayment(ctx, fasttrack.PaymentRequest{
		Reference:     reference,
		AmountInCents: req.AmountInCents,
		Currency:      req.Currency,
		Signature:     signature,
		RedirectURL:   g.redirectURL,
		CustomerName:  req.Customer.FullName,
		CustomerEmail: deref(req.Customer.Email),
		LegalID:       req.Customer.Identification,
		LegalIDType:   strings.ToUpper(req.Customer.IdentificationType),
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fasttrack payment request")
	}
	return &Authorization{
		CheckoutURL:          resp.RedirectURL,
		Signature:            signature,
		GatewayTransactionID: strings.TrimSpace(resp.TransactionID),
	}, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
