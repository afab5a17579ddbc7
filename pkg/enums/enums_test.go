package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionStatusTerminalSet(t *testing.T) {
	assert.False(t, TransactionStatusInProcess.IsTerminal())
	for _, status := range []TransactionStatus{TransactionStatusApproved, TransactionStatusDeclined, TransactionStatusVoided} {
		assert.True(t, status.IsTerminal(), status)
	}
}

func TestOrderStatusFulfillmentPath(t *testing.T) {
	assert.True(t, OrderStatusPaid.CanFulfillTo(OrderStatusInPreparation))
	assert.True(t, OrderStatusInPreparation.CanFulfillTo(OrderStatusShipped))
	assert.False(t, OrderStatusPaid.CanFulfillTo(OrderStatusShipped))
	assert.False(t, OrderStatusPaymentPending.CanFulfillTo(OrderStatusInPreparation))
	assert.False(t, OrderStatusCancelled.CanFulfillTo(OrderStatusInPreparation))
	assert.False(t, OrderStatusShipped.CanFulfillTo(OrderStatusPaid))
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, OrderStatusInitiated.IsTerminal())
	assert.False(t, OrderStatusPaymentPending.IsTerminal())
	assert.True(t, OrderStatusPaid.IsPaymentTerminal())
	assert.True(t, OrderStatusCancelled.IsPaymentTerminal())
	assert.False(t, OrderStatusShipped.IsPaymentTerminal())
	assert.True(t, OrderStatusShipped.IsTerminal())
}

func TestParsers(t *testing.T) {
	status, err := ParseOrderStatus("PAID")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPaid, status)

	_, err = ParseOrderStatus("paid")
	assert.Error(t, err)

	gw, err := ParseGateway(" Wompi ")
	require.NoError(t, err)
	assert.Equal(t, GatewayWompi, gw)

	_, err = ParseTransactionStatus("PENDING")
	assert.Error(t, err)
}
