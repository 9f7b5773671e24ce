package shop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkvend/vendbot/internal/domain/buyer"
	"github.com/mkvend/vendbot/internal/domain/catalog"
	"github.com/mkvend/vendbot/internal/domain/order"
	"github.com/mkvend/vendbot/internal/domain/payment"
	"github.com/mkvend/vendbot/internal/infrastructure/memory"
)

// fakeGateway issues sequential payment refs and lets tests script the
// reported status per ref.
type fakeGateway struct {
	mu        sync.Mutex
	nextRef   int
	created   int
	statuses  map[string]*payment.Status
	createErr error
	statusErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]*payment.Status)}
}

func (g *fakeGateway) CreatePayment(_ context.Context, amount decimal.Decimal, _ string) (*payment.Creation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.nextRef++
	g.created++
	ref := fmt.Sprintf("pay-%d", g.nextRef)
	g.statuses[ref] = &payment.Status{
		PaymentRef: ref,
		Status:     payment.StatusPending,
		Amount:     amount,
	}
	return &payment.Creation{
		PaymentRef:  ref,
		RedirectURL: "https://gateway.test/confirm/" + ref,
		Status:      payment.StatusPending,
	}, nil
}

func (g *fakeGateway) PaymentStatus(_ context.Context, ref string) (*payment.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	st, ok := g.statuses[ref]
	if !ok {
		return &payment.Status{PaymentRef: ref, Status: "canceled"}, nil
	}
	return st, nil
}

func (g *fakeGateway) confirm(ref string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[ref] = &payment.Status{PaymentRef: ref, Status: payment.StatusSucceeded, Paid: true}
}

type fixture struct {
	service *Service
	catalog *memory.CatalogRepository
	orders  *memory.OrderRepository
	buyers  *memory.BuyerRepository
	gateway *fakeGateway
}

func newFixture() *fixture {
	catalogRepo := memory.NewCatalogRepository()
	orderRepo := memory.NewOrderRepository()
	buyerRepo := memory.NewBuyerRepository()
	gateway := newFakeGateway()
	service := NewService(
		catalogRepo, orderRepo, buyerRepo,
		gateway, memory.NewSettler(catalogRepo, orderRepo),
		nil, nil,
	)
	return &fixture{service: service, catalog: catalogRepo, orders: orderRepo, buyers: buyerRepo, gateway: gateway}
}

func (f *fixture) addProduct(t *testing.T, name, price string, kind catalog.Kind, units ...string) int64 {
	t.Helper()
	p, err := catalog.New(name, "desc", decimal.RequireFromString(price), kind, units)
	require.NoError(t, err)
	id, err := f.catalog.Create(context.Background(), p)
	require.NoError(t, err)
	return id
}

func TestStartPurchaseCreatesPendingOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.addProduct(t, "Key-A", "100", catalog.KindKey, "K1", "K2")

	result, err := f.service.StartPurchase(ctx, StartPurchaseInput{BuyerID: 7, BuyerName: "alice", ProductID: id})
	require.NoError(t, err)
	assert.Equal(t, "pay-1", result.PaymentRef)
	assert.NotEmpty(t, result.RedirectURL)

	o, err := f.orders.FindByPaymentRef(ctx, result.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "Key-A", o.ProductName)
	assert.True(t, o.Price.Equal(decimal.NewFromInt(100)))

	// No unit consumed before settlement.
	p, err := f.catalog.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, p.StockCount())
}

func TestStartPurchaseOutOfStockAtIntent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.addProduct(t, "Key-B", "50", catalog.KindKey)

	_, err := f.service.StartPurchase(ctx, StartPurchaseInput{BuyerID: 7, ProductID: id})
	assert.ErrorIs(t, err, catalog.ErrOutOfStock)

	// No order and no payment were created.
	assert.Equal(t, 0, f.gateway.created)
	orders, err := f.orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestStartPurchaseUnknownProduct(t *testing.T) {
	f := newFixture()
	_, err := f.service.StartPurchase(context.Background(), StartPurchaseInput{BuyerID: 7, ProductID: 99})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Equal(t, 0, f.gateway.created)
}

func TestStartPurchaseGatewayError(t *testing.T) {
	f := newFixture()
	id := f.addProduct(t, "Key-A", "100", catalog.KindKey, "K1")
	f.gateway.createErr = fmt.Errorf("%w: 500 Internal Server Error: boom", payment.ErrGateway)

	_, err := f.service.StartPurchase(context.Background(), StartPurchaseInput{BuyerID: 7, ProductID: id})
	assert.ErrorIs(t, err, payment.ErrGateway)

	orders, err := f.orders.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPollPurchasePendingThenDelivered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.addProduct(t, "Key-A", "100", catalog.KindKey, "K1", "K2")

	result, err := f.service.StartPurchase(ctx, StartPurchaseInput{BuyerID: 7, ProductID: id})
	require.NoError(t, err)

	poll, err := f.service.PollPurchase(ctx, result.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, PollPending, poll.State)

	f.gateway.confirm(result.PaymentRef)

	poll, err = f.service.PollPurchase(ctx, result.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, PollDelivered, poll.State)
	assert.Equal(t, "K1", poll.Unit)
	assert.Equal(t, catalog.KindKey, poll.Kind)

	o, err := f.orders.FindByPaymentRef(ctx, result.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status)

	p, err := f.catalog.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"K2"}, p.Units)
}

func TestPollPurchaseRepeatAfterSuccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.addProduct(t, "Key-A", "100", catalog.KindKey, "K1", "K2")

	result, err := f.service.StartPurchase(ctx, StartPurchaseInput{BuyerID: 7, ProductID: id})
	require.NoError(t, err)
	f.gateway.confirm(result.PaymentRef)

	first, err := f.service.PollPurchase(ctx, result.PaymentRef)
	require.NoError(t, err)
	require.Equal(t, PollDelivered, first.State)

	second, err := f.service.PollPurchase(ctx, result.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, PollAlreadyDelivered, second.State)
	assert.Empty(t, second.Unit)

	// Inventory untouched by the replay.
	p, err := f.catalog.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockCount())
}

func TestPollPurchaseExhaustedAfterPayment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.addProduct(t, "Key-C", "50", catalog.KindKey, "K1")

	// Two buyers pay before either settles.
	first, err := f.service.StartPurchase(ctx, StartPurchaseInput{BuyerID: 1, ProductID: id})
	require.NoError(t, err)
	second, err := f.service.StartPurchase(ctx, StartPurchaseInput{BuyerID: 2, ProductID: id})
	require.NoError(t, err)
	f.gateway.confirm(first.PaymentRef)
	f.gateway.confirm(second.PaymentRef)

	poll, err := f.service.PollPurchase(ctx, first.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, PollDelivered, poll.State)
	assert.Equal(t, "K1", poll.Unit)

	poll, err = f.service.PollPurchase(ctx, second.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, PollExhausted, poll.State)

	// The losing order stays pending forever.
	o, err := f.orders.FindByPaymentRef(ctx, second.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
}

func TestPollPurchaseCancelledPayment(t *testing.T) {
	f := newFixture()
	poll, err := f.service.PollPurchase(context.Background(), "unknown-ref")
	require.NoError(t, err)
	assert.Equal(t, PollNotFound, poll.State)
}

func TestPollPurchaseGatewayErrorSurfaced(t *testing.T) {
	f := newFixture()
	f.gateway.statusErr = fmt.Errorf("%w: 503 Service Unavailable: maintenance", payment.ErrGateway)

	_, err := f.service.PollPurchase(context.Background(), "pay-1")
	assert.ErrorIs(t, err, payment.ErrGateway)
}

func TestPollPurchaseFileKindDelivery(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := f.addProduct(t, "File-A", "200", catalog.KindFile, "tok")

	result, err := f.service.StartPurchase(ctx, StartPurchaseInput{BuyerID: 7, ProductID: id})
	require.NoError(t, err)
	f.gateway.confirm(result.PaymentRef)

	poll, err := f.service.PollPurchase(ctx, result.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, PollDelivered, poll.State)
	assert.Equal(t, "tok", poll.Unit)
	assert.Equal(t, catalog.KindFile, poll.Kind)

	// The token remains sellable until the admin replaces it.
	p, err := f.catalog.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockCount())
}

func TestRecordBuyer(t *testing.T) {
	f := newFixture()
	b := &buyer.Buyer{ID: 7, Username: "alice"}
	require.NoError(t, f.service.RecordBuyer(context.Background(), b))
	require.NoError(t, f.service.RecordBuyer(context.Background(), b))
	assert.Equal(t, 1, f.buyers.Count())
}

func TestErrAlreadySettledNotLeaked(t *testing.T) {
	// The sentinel is internal to settlement; PollPurchase must translate it.
	f := newFixture()
	ctx := context.Background()
	id := f.addProduct(t, "Key-A", "100", catalog.KindKey, "K1")

	result, err := f.service.StartPurchase(ctx, StartPurchaseInput{BuyerID: 7, ProductID: id})
	require.NoError(t, err)
	f.gateway.confirm(result.PaymentRef)

	_, err = f.service.PollPurchase(ctx, result.PaymentRef)
	require.NoError(t, err)
	res, err := f.service.PollPurchase(ctx, result.PaymentRef)
	require.NoError(t, err)
	assert.False(t, errors.Is(err, order.ErrAlreadySettled))
	assert.Equal(t, PollAlreadyDelivered, res.State)
}
