package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/internal/transactions"
	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/redis"
)

type countingSender struct {
	mu    sync.Mutex
	sent  []Confirmation
	fails map[uuid.UUID]error
}

func (s *countingSender) SendConfirmation(_ context.Context, conf Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fails[conf.Order.ID]; err != nil {
		return err
	}
	s.sent = append(s.sent, conf)
	return nil
}

func (s *countingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newDispatcher(t *testing.T, client *db.Client, sender ConfirmationSender, claims claimStore) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherParams{
		Orders:       orders.NewRepository(client.DB()),
		Transactions: transactions.NewRepository(client.DB()),
		Sender:       sender,
		Claims:       claims,
	})
	require.NoError(t, err)
	return d
}

func TestNotifyIfNewlyPaidSendsOnce(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.SeedCheckout(t, client, dbtest.FixtureOptions{OrderStatus: enums.OrderStatusPaid, Email: "laura@example.com"})
	sender := &countingSender{}
	claims := redis.NewMemoryStore()
	d := newDispatcher(t, client, sender, claims)
	ctx := context.Background()

	sent, err := d.NotifyIfNewlyPaid(ctx, fx.Order.ID)
	require.NoError(t, err)
	assert.True(t, sent)
	require.Equal(t, 1, sender.count())
	require.NotNil(t, sender.sent[0].Transaction)
	assert.Equal(t, fx.Transaction.Reference, sender.sent[0].Transaction.Reference)
	require.NotNil(t, sender.sent[0].Customer)
	assert.Equal(t, fx.Customer.ID, sender.sent[0].Customer.ID)
	assert.Zero(t, claims.Len(), "claim released after recording")

	sent, err = d.NotifyIfNewlyPaid(ctx, fx.Order.ID)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, 1, sender.count())

	order, err := orders.NewRepository(client.DB()).FindByID(ctx, fx.Order.ID)
	require.NoError(t, err)
	assert.True(t, order.NotificationSent)
}

func TestNotifyIfNewlyPaidSkipsUnpaid(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.SeedCheckout(t, client, dbtest.FixtureOptions{})
	sender := &countingSender{}
	d := newDispatcher(t, client, sender, nil)

	sent, err := d.NotifyIfNewlyPaid(context.Background(), fx.Order.ID)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, sender.count())
}

func TestNotifyIfNewlyPaidMissingOrder(t *testing.T) {
	client := dbtest.Open(t)
	d := newDispatcher(t, client, &countingSender{}, nil)

	_, err := d.NotifyIfNewlyPaid(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNotifyIfNewlyPaidFailureKeepsFlag(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.SeedCheckout(t, client, dbtest.FixtureOptions{OrderStatus: enums.OrderStatusPaid})
	sender := &countingSender{fails: map[uuid.UUID]error{fx.Order.ID: errors.New("provider down")}}
	claims := redis.NewMemoryStore()
	d := newDispatcher(t, client, sender, claims)
	ctx := context.Background()

	sent, err := d.NotifyIfNewlyPaid(ctx, fx.Order.ID)
	assert.False(t, sent)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Zero(t, claims.Len(), "claim released so the sweep can retry")

	order, err := orders.NewRepository(client.DB()).FindByID(ctx, fx.Order.ID)
	require.NoError(t, err)
	assert.False(t, order.NotificationSent)
}

func TestNotifyIfNewlyPaidRespectsForeignClaim(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.SeedCheckout(t, client, dbtest.FixtureOptions{OrderStatus: enums.OrderStatusPaid})
	sender := &countingSender{}
	claims := redis.NewMemoryStore()
	_, err := claims.SetNX(context.Background(), claims.ClaimKey(claimScope, fx.Order.ID.String()), "other-worker", 0)
	require.NoError(t, err)
	d := newDispatcher(t, client, sender, claims)

	sent, err := d.NotifyIfNewlyPaid(context.Background(), fx.Order.ID)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, sender.count())
}

func TestConcurrentDispatchersSendOnce(t *testing.T) {
	client := dbtest.Open(t)
	fx := dbtest.SeedCheckout(t, client, dbtest.FixtureOptions{OrderStatus: enums.OrderStatusPaid, Email: "laura@example.com"})
	sender := &countingSender{}
	d := newDispatcher(t, client, sender, redis.NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.NotifyIfNewlyPaid(context.Background(), fx.Order.ID); err != nil {
				t.Errorf("notify: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, sender.count())
}

func TestSweepPending(t *testing.T) {
	client := dbtest.Open(t)
	ok := dbtest.SeedCheckout(t, client, dbtest.FixtureOptions{Reference: 100001, OrderStatus: enums.OrderStatusPaid})
	broken := dbtest.SeedCheckout(t, client, dbtest.FixtureOptions{Reference: 100002, OrderStatus: enums.OrderStatusPaid})
	dbtest.SeedCheckout(t, client, dbtest.FixtureOptions{Reference: 100003})

	sender := &countingSender{fails: map[uuid.UUID]error{broken.Order.ID: ErrNoRecipients}}
	d := newDispatcher(t, client, sender, redis.NewMemoryStore())

	result, err := d.SweepPending(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Equal(t, SweepResult{Attempted: 2, Sent: 1, Failed: 1}, result)
	require.Equal(t, 1, sender.count())
	assert.Equal(t, ok.Order.ID, sender.sent[0].Order.ID)

	result, err = d.SweepPending(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, SweepResult{Attempted: 1, Sent: 0, Failed: 1}, result)
}
