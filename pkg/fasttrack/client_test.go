package fasttrack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://fasttrack.test/api", "key-123", WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	return client
}

func TestCreatePaymentAccepted(t *testing.T) {
	var captured PaymentRequest
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "http://fasttrack.test/api/payments", req.URL.String())
		assert.Equal(t, "Bearer key-123", req.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
		return respond(http.StatusOK, `{"transaction_id":"ft-1","status":"ACCEPTED","redirect_url":"https://pay.test/ft-1"}`), nil
	})

	resp, err := client.CreatePayment(context.Background(), PaymentRequest{Reference: "100001", AmountInCents: 5000000, Currency: "COP", Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/ft-1", resp.RedirectURL)
	assert.Equal(t, "100001", captured.Reference)
	assert.EqualValues(t, 5000000, captured.AmountInCents)
}

func TestCreatePaymentFailures(t *testing.T) {
	cases := []struct {
		name string
		rt   roundTripFunc
		code pkgerrors.Code
	}{
		{
			name: "rejected",
			rt: func(*http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `{"status":"REJECTED","message":"insufficient funds"}`), nil
			},
			code: pkgerrors.CodeGatewayRejected,
		},
		{
			name: "missing redirect",
			rt: func(*http.Request) (*http.Response, error) {
				return respond(http.StatusOK, `{"status":"ACCEPTED","transaction_id":"ft-2"}`), nil
			},
			code: pkgerrors.CodeGatewayRejected,
		},
		{
			name: "server error",
			rt: func(*http.Request) (*http.Response, error) {
				return respond(http.StatusBadGateway, `upstream down`), nil
			},
			code: pkgerrors.CodeDependency,
		},
		{
			name: "timeout",
			rt: func(req *http.Request) (*http.Response, error) {
				<-req.Context().Done()
				return nil, req.Context().Err()
			},
			code: pkgerrors.CodeDependency,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient("http://fasttrack.test", "key", WithHTTPClient(&http.Client{Transport: tc.rt}), WithTimeout(50*time.Millisecond))
			require.NoError(t, err)
			_, err = client.CreatePayment(context.Background(), PaymentRequest{Reference: "1"})
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient("", "key")
	assert.Error(t, err)
	_, err = NewClient("http://x", "")
	assert.Error(t, err)
}
