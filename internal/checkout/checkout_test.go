package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"freetime_shop/internal/apperr"
	"freetime_shop/internal/downloads"
	"freetime_shop/internal/models"
	"freetime_shop/internal/payment"
	"freetime_shop/internal/store"
	"freetime_shop/internal/wallet"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu       sync.Mutex
	sent     []models.Order
	links    [][]downloads.Link
	statuses []models.OrderStatus
	err      error
}

func (m *recordingMailer) SendOrderStatus(_ context.Context, order models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, order.Status)
	return m.err
}

func (m *recordingMailer) SendOrderConfirmation(_ context.Context, order models.Order, links []downloads.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, order)
	m.links = append(m.links, links)
	return m.err
}

type staticSigner struct{}

func (staticSigner) Links(_ context.Context, order models.Order) ([]downloads.Link, error) {
	links := make([]downloads.Link, 0, len(order.Items))
	for _, item := range order.Items {
		links = append(links, downloads.Link{WallpaperID: item.Wallpaper.ID, URL: "https://files.example/" + item.Wallpaper.ID})
	}
	return links, nil
}

type fixture struct {
	svc    *Service
	store  *store.Store
	sim    *payment.Simulator
	mailer *recordingMailer
}

func newFixture(t *testing.T, draw float64, opts ...payment.Option) fixture {
	t.Helper()
	return newFixtureWithSigner(t, staticSigner{}, draw, opts...)
}

func newFixtureWithSigner(t *testing.T, signer downloads.Signer, draw float64, opts ...payment.Option) fixture {
	t.Helper()
	dir, err := wallet.Default(wallet.ParseInstalled("com.wallet.crypto.trustapp"))
	require.NoError(t, err)
	log, _ := test.NewNullLogger()

	st := store.New(store.WithLogger(log))
	opts = append([]payment.Option{
		payment.WithDelay(0),
		payment.WithSource(payment.FixedSource(draw)),
		payment.WithWallets(dir),
		payment.WithLogger(log),
	}, opts...)
	sim := payment.New(opts...)
	mailer := &recordingMailer{}
	return fixture{svc: New(st, sim, signer, mailer, log), store: st, sim: sim, mailer: mailer}
}

func wallpaper(id, price string) models.Wallpaper {
	return models.Wallpaper{ID: id, Name: id, Price: decimal.RequireFromString(price)}
}

func (f fixture) fillCart(t *testing.T, customer string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.AddToCart(ctx, customer, wallpaper("wp-a", "2.00"), 2))
	require.NoError(t, f.store.AddToCart(ctx, customer, wallpaper("wp-b", "1.99"), 1))
}

func TestBegin(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")

	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, started.Order.Status)
	assert.True(t, started.Order.TotalAmount.Equal(decimal.RequireFromString("5.99")))
	assert.Equal(t, started.Payment.Session.PaymentID, started.Order.PaymentID)
	assert.Equal(t, started.Order.ID, started.Payment.Session.OrderID)
	assert.Equal(t, "USD", started.Payment.Session.Currency)
	assert.Equal(t, "alice", started.Payment.Session.CustomerID)
	assert.Equal(t, "Freetime Maker Shop order "+started.Order.ID, started.Payment.Session.Description)
	assert.Len(t, started.Payment.AvailableWallets, 3)
	assert.Empty(t, f.store.CartItems("alice"))
}

func TestBeginEmptyCart(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.svc.Begin(context.Background(), "alice", "alice@example.com")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBeginRestoresCartWhenPaymentCannotStart(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")

	_, err := f.svc.Begin(ctx, "alice", "not-an-email")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Len(t, f.store.CartItems("alice"), 2)
	history, err := f.store.OrderHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.OrderStatusCancelled, history[0].Status)
}

func TestPaySuccessSendsConfirmation(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	paid, err := f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, paid.Order.Status)
	assert.Equal(t, models.PaymentStatusCompleted, paid.Result.Status)

	f.svc.Wait()
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, started.Order.ID, f.mailer.sent[0].ID)
	assert.Len(t, f.mailer.links[0], 2)

	links, err := f.svc.Downloads(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	_, err = f.svc.Pay(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestMailFailureDoesNotFailPayment(t *testing.T) {
	f := newFixture(t, 1)
	f.mailer.err = errors.New("smtp down")
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	paid, err := f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	f.svc.Wait()
	assert.Equal(t, models.OrderStatusPaid, paid.Order.Status)
}

func TestPayFailureThenRetry(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	failed, err := f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, failed.Order.Status)
	require.NotNil(t, failed.Result.ErrorMessage)

	_, err = f.svc.Downloads(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	again, err := f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.NotEqual(t, started.Order.PaymentID, again.Order.PaymentID)
	assert.Equal(t, models.OrderStatusFailed, again.Order.Status)
	f.svc.Wait()
	assert.Empty(t, f.mailer.sent)
	assert.Equal(t, []models.OrderStatus{models.OrderStatusFailed, models.OrderStatusFailed}, f.mailer.statuses)
}

func TestPayOtherCustomersOrder(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, "mallory", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPayExpiredSessionCancelsOrder(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, 1, payment.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = f.svc.Pay(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	order, err := f.store.Order(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	order, err := f.svc.Cancel(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	status, err := f.sim.Status(started.Order.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, status)

	_, err = f.svc.Cancel(ctx, "alice", started.Order.ID)
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	f.svc.Wait()
	assert.Equal(t, []models.OrderStatus{models.OrderStatusCancelled}, f.mailer.statuses)
}

func TestRefund(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	_, err = f.svc.Refund(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	_, err = f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	f.svc.Wait()

	_, err = f.svc.Cancel(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	order, err := f.svc.Refund(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, order.Status)

	status, err := f.sim.Status(started.Order.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, status)

	f.svc.Wait()
	assert.Equal(t, []models.OrderStatus{models.OrderStatusRefunded}, f.mailer.statuses)
}

func TestDownloadsDisabled(t *testing.T) {
	f := newFixtureWithSigner(t, nil, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	_, err = f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	f.svc.Wait()

	links, err := f.svc.Downloads(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestOrderFollowsPaymentCompletedElsewhere(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	_, err = f.sim.ProcessPayment(ctx, started.Order.PaymentID)
	require.NoError(t, err)

	order, err := f.store.Order(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	links, err := f.svc.Downloads(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)

	_, err = f.svc.Pay(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
	_, err = f.svc.Cancel(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	f.svc.Wait()
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, models.OrderStatusPaid, f.mailer.sent[0].Status)
}

func TestOrderFollowsPaymentRefundedElsewhere(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	_, err = f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)

	require.NoError(t, f.sim.RefundPayment(ctx, started.Order.PaymentID, nil))

	order, err := f.store.Order(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, order.Status)

	_, err = f.svc.Downloads(ctx, "alice", started.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	again, err := f.svc.Refund(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, again.Status)

	f.svc.Wait()
	assert.Equal(t, []models.OrderStatus{models.OrderStatusRefunded}, f.mailer.statuses)
}

func TestExpirySweepCancelsOrder(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, 1, payment.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, f.sim.ExpireStale(ctx))

	history, err := f.store.OrderHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, started.Order.ID, history[0].ID)
	assert.Equal(t, models.OrderStatusCancelled, history[0].Status)

	f.svc.Wait()
	assert.Equal(t, []models.OrderStatus{models.OrderStatusCancelled}, f.mailer.statuses)
}

func TestReplacedPaymentNoLongerMovesOrder(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.fillCart(t, "alice")
	started, err := f.svc.Begin(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	_, err = f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)

	retried, err := f.svc.Pay(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	require.NotEqual(t, started.Order.PaymentID, retried.Order.PaymentID)

	require.NoError(t, f.sim.CancelPayment(ctx, started.Order.PaymentID))

	order, err := f.store.Order(ctx, "alice", started.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, order.Status)
	f.svc.Wait()
}

func TestBeginKeepsConcurrentCartAdds(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	const adds = 50

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < adds; i++ {
			_ = f.store.AddToCart(ctx, "alice", wallpaper(fmt.Sprintf("wp-%d", i), "1.00"), 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < adds; i++ {
			_, _ = f.svc.Begin(ctx, "alice", "alice@example.com")
		}
	}()
	wg.Wait()

	seen := map[string]int{}
	history, err := f.store.OrderHistory(ctx, "alice")
	require.NoError(t, err)
	for _, o := range history {
		for _, item := range o.Items {
			seen[item.Wallpaper.ID] += item.Quantity
		}
	}
	for _, item := range f.store.CartItems("alice") {
		seen[item.Wallpaper.ID] += item.Quantity
	}
	assert.Len(t, seen, adds)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}
