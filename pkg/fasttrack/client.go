// Package fasttrack talks to the legacy synchronous payment gateway, which
// approves a payment request up front and hands back a redirect URL.
package fasttrack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
)

const (
	defaultTimeout           = 10 * time.Second
	errorBodyReadLimit int64 = 1024

	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

var (
	errAPIKeyRequired  = errors.New("fasttrack api key is required")
	errBaseURLRequired = errors.New("fasttrack base url is required")
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds every outbound call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type PaymentRequest struct {
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amount_in_cents"`
	Currency      string `json:"currency"`
	Signature     string `json:"signature"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	LegalID       string `json:"legal_id,omitempty"`
	LegalIDType   string `json:"legal_id_type,omitempty"`
}

type PaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	RedirectURL   string `json:"redirect_url"`
	Message       string `json:"message,omitempty"`
}

// CreatePayment registers a payment and returns where to send the customer.
// A rejection or a response without redirect URL is CodeGatewayRejected;
// transport failures, timeouts and non-2xx answers are CodeDependency.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fasttrack client not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal payment request")
	}

	url := strings.TrimRight(c.baseURL, "/") + "/payments"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "payment request failed")
	}

	var out PaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment response")
	}

	if strings.EqualFold(out.Status, StatusRejected) {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayRejected, "payment rejected by gateway").
			WithDetails(map[string]any{"reason": out.Message})
	}
	if strings.TrimSpace(out.RedirectURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayRejected, "gateway response is missing the redirect url")
	}
	return &out, nil
}
