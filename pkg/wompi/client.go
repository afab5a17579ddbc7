package wompi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://production.wompi.co/v1"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1 << 20
	errorBodyReadLimit    int64 = 1024
)

var errPrivateKeyRequired = errors.New("wompi private key is required")

// Client reads transaction state from the gateway API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	privateKey string
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

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
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

func NewClient(privateKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(privateKey)
	if trimmedKey == "" {
		return nil, errPrivateKeyRequired
	}

	client := &Client{
		privateKey: trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Lookup is the result of polling the gateway for a reference.
type Lookup struct {
	Transactions []Transaction
	Raw          json.RawMessage
}

// Latest returns the most recently created transaction, if any.
func (l Lookup) Latest() *Transaction {
	var latest *Transaction
	for i := range l.Transactions {
		tx := &l.Transactions[i]
		if latest == nil || tx.CreatedAt >= latest.CreatedAt {
			latest = tx
		}
	}
	return latest
}

// TransactionsByReference lists the gateway transactions created for reference.
// Transport failures and non-2xx answers are dependency errors and never
// imply a status.
func (c *Client) TransactionsByReference(ctx context.Context, reference string) (*Lookup, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wompi client not configured")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	endpoint := fmt.Sprintf("%s/transactions?%s", strings.TrimRight(c.baseURL, "/"), url.Values{"reference": {reference}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build transaction lookup request")
	}
	req.Header.Set("Authorization", "Bearer "+c.privateKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute transaction lookup request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "transaction lookup failed").
			WithDetails(map[string]any{"gateway_status": resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read transaction lookup response")
	}

	var apiResp struct {
		Data []Transaction `json:"data"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode transaction lookup response")
	}

	return &Lookup{Transactions: apiResp.Data, Raw: json.RawMessage(body)}, nil
}
