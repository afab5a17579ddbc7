package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/vitora-backend/internal/customers"
	"github.com/angelmondragon/vitora-backend/internal/orders"
	"github.com/angelmondragon/vitora-backend/internal/transactions"
	"github.com/angelmondragon/vitora-backend/pkg/db"
	"github.com/angelmondragon/vitora-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vitora-backend/pkg/db/models"
	"github.com/angelmondragon/vitora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
	"github.com/angelmondragon/vitora-backend/pkg/wompi"
)

type stubGateway struct {
	mu          sync.Mutex
	synchronous bool
	err         error
	calls       int
}

func (g *stubGateway) Name() enums.Gateway {
	if g.synchronous {
		return enums.GatewayFastTrack
	}
	return enums.GatewayWompi
}

func (g *stubGateway) Synchronous() bool { return g.synchronous }

func (g *stubGateway) Authorize(_ context.Context, req PaymentRequest) (*Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &Authorization{CheckoutURL: "https://pay.example/" + url.PathEscape(req.Customer.FullName), GatewayTransactionID: "ft-1"}, nil
}

type flakyRunner struct {
	inner    txRunner
	failures int
	calls    int
}

func (r *flakyRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	r.calls++
	if r.calls <= r.failures {
		return errors.New("UNIQUE constraint failed: transactions.reference")
	}
	return r.inner.WithTx(ctx, fn)
}

func newCheckoutService(t *testing.T, client *db.Client, runner txRunner, gateway Gateway) *Service {
	t.Helper()
	customerSvc, err := customers.NewService(customers.NewRepository(client.DB()))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		DB:           runner,
		Transactions: transactions.NewRepository(client.DB()),
		Orders:       orders.NewRepository(client.DB()),
		Customers:    customerSvc,
		Gateway:      gateway,
	})
	require.NoError(t, err)
	return svc
}

func sampleInput() CheckoutInput {
	email := "laura@example.com"
	return CheckoutInput{
		Customer: CustomerInput{
			Identification:     "1020304050",
			IdentificationType: "cc",
			FullName:           "Laura Gómez",
			Email:              &email,
		},
		Amount:    decimal.NewFromInt(50000),
		LineItems: json.RawMessage(`[{"nombre":"Colágeno","cantidad":1,"precio_unitario":50000}]`),
		Shipping:  ShippingInput{Department: "Antioquia", City: "Medellín", Address: "Calle 10 # 43-12"},
	}
}

func countRows(t *testing.T, client *db.Client, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(model).Count(&n).Error)
	return n
}

func TestCreateIntentStoresPendingCheckout(t *testing.T) {
	client := dbtest.Open(t)
	gateway := &stubGateway{}
	svc := newCheckoutService(t, client, client, gateway)
	ctx := context.Background()

	intent, err := svc.CreateIntent(ctx, sampleInput())
	require.NoError(t, err)
	assert.EqualValues(t, 100001, intent.Reference)
	assert.EqualValues(t, 5000000, intent.AmountInCents)
	assert.Equal(t, "COP", intent.Currency)
	assert.Equal(t, enums.GatewayWompi, intent.Gateway)
	assert.NotEmpty(t, intent.CheckoutURL)
	assert.Equal(t, 1, gateway.calls)

	txn, err := transactions.NewRepository(client.DB()).FindByReference(ctx, intent.Reference)
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusInProcess, txn.Status())
	assert.Equal(t, enums.StatusSourceCheckout, txn.CurrentStatus.Source)
	assert.Nil(t, txn.GatewayTransactionID)

	order, err := orders.NewRepository(client.DB()).FindByID(ctx, intent.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaymentPending, order.Status)
	require.NotNil(t, order.TransactionID)
	assert.Equal(t, txn.ID, *order.TransactionID)
	assert.Equal(t, "Medellín", order.City)
	require.NotNil(t, order.Customer)
	assert.Equal(t, "CC", order.Customer.IdentificationType)
}

func TestCreateIntentReusesCustomer(t *testing.T) {
	client := dbtest.Open(t)
	svc := newCheckoutService(t, client, client, &stubGateway{})
	ctx := context.Background()

	first, err := svc.CreateIntent(ctx, sampleInput())
	require.NoError(t, err)
	second, err := svc.CreateIntent(ctx, sampleInput())
	require.NoError(t, err)

	assert.Equal(t, first.Reference+1, second.Reference)
	assert.EqualValues(t, 1, countRows(t, client, &models.Customer{}))
	assert.EqualValues(t, 2, countRows(t, client, &models.Order{}))
}

func TestCreateIntentValidation(t *testing.T) {
	client := dbtest.Open(t)
	gateway := &stubGateway{}
	svc := newCheckoutService(t, client, client, gateway)

	in := sampleInput()
	in.LineItems = json.RawMessage(`null`)
	_, err := svc.CreateIntent(context.Background(), in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	in = sampleInput()
	in.Amount = decimal.Zero
	in.Customer.FullName = " "
	_, err = svc.CreateIntent(context.Background(), in)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "amount")
	assert.Contains(t, details, "customer.full_name")

	assert.Zero(t, gateway.calls)
	assert.Zero(t, countRows(t, client, &models.Transaction{}))
}

func TestCreateIntentSynchronousRejectionRollsBack(t *testing.T) {
	client := dbtest.Open(t)
	gateway := &stubGateway{synchronous: true, err: pkgerrors.New(pkgerrors.CodeGatewayRejected, "payment rejected by gateway")}
	svc := newCheckoutService(t, client, client, gateway)

	_, err := svc.CreateIntent(context.Background(), sampleInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGatewayRejected))

	assert.Zero(t, countRows(t, client, &models.Transaction{}))
	assert.Zero(t, countRows(t, client, &models.TransactionStatusEvent{}))
	assert.Zero(t, countRows(t, client, &models.Order{}))
	assert.Zero(t, countRows(t, client, &models.Customer{}))
}

func TestCreateIntentSynchronousStoresGatewayID(t *testing.T) {
	client := dbtest.Open(t)
	svc := newCheckoutService(t, client, client, &stubGateway{synchronous: true})

	intent, err := svc.CreateIntent(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, enums.GatewayFastTrack, intent.Gateway)

	txn, err := transactions.NewRepository(client.DB()).FindByID(context.Background(), intent.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, txn.GatewayTransactionID)
	assert.Equal(t, "ft-1", *txn.GatewayTransactionID)
	assert.Equal(t, enums.GatewayFastTrack, txn.Gateway)
}

func TestCreateIntentRetriesReferenceCollision(t *testing.T) {
	client := dbtest.Open(t)
	runner := &flakyRunner{inner: client, failures: 2}
	svc := newCheckoutService(t, client, runner, &stubGateway{})

	intent, err := svc.CreateIntent(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.EqualValues(t, 100001, intent.Reference)
	assert.Equal(t, 3, runner.calls)
}

func TestCreateIntentGivesUpAfterMaxAttempts(t *testing.T) {
	client := dbtest.Open(t)
	runner := &flakyRunner{inner: client, failures: 100}
	svc := newCheckoutService(t, client, runner, &stubGateway{})

	_, err := svc.CreateIntent(context.Background(), sampleInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, defaultMaxAttempts, runner.calls)
}

func TestConcurrentCheckoutsGetUniqueReferences(t *testing.T) {
	client := dbtest.Open(t)
	svc := newCheckoutService(t, client, client, &stubGateway{})

	const n = 10
	refs := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			intent, err := svc.CreateIntent(context.Background(), sampleInput())
			if err != nil {
				t.Errorf("create intent: %v", err)
				return
			}
			refs <- intent.Reference
		}()
	}
	wg.Wait()
	close(refs)

	var got []int64
	for ref := range refs {
		got = append(got, ref)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Len(t, got, n)
	for i, ref := range got {
		assert.EqualValues(t, 100001+i, ref)
	}
}

func TestCreateIntentWithWompiGateway(t *testing.T) {
	client := dbtest.Open(t)
	builder := wompi.NewCheckoutBuilder("https://checkout.wompi.co/p/", "pub_test_abc", "test_integrity_secret")
	gateway, err := NewWompiGateway(builder, "https://vitoracolombia.com/gracias", 0)
	require.NoError(t, err)
	svc := newCheckoutService(t, client, client, gateway)

	intent, err := svc.CreateIntent(context.Background(), sampleInput())
	require.NoError(t, err)

	u, err := url.Parse(intent.CheckoutURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "100001", q.Get("reference"))
	assert.Equal(t, "5000000", q.Get("amount-in-cents"))
	assert.Equal(t, "COP", q.Get("currency"))
	assert.Equal(t, "pub_test_abc", q.Get("public-key"))
	assert.Equal(t, "https://vitoracolombia.com/gracias", q.Get("redirect-url"))
	assert.Equal(t, "CC", q.Get("customer-data:legal-id-type"))

	want := wompi.IntegritySignature("100001", 5000000, "COP", nil, "test_integrity_secret")
	assert.Equal(t, want, q.Get("signature:integrity"))
	assert.Equal(t, want, intent.Signature)
}
