package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbox/internal/models"
	"ticketbox/internal/services/gateway"
	"ticketbox/internal/status"
	"ticketbox/internal/store"
)

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
}

func (n *recordingNotifier) BookingConfirmed(ctx context.Context, b *models.Booking, e *models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, b.Reference)
}

func (n *recordingNotifier) BookingCancelled(ctx context.Context, b *models.Booking, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, b.Reference)
}

func (n *recordingNotifier) cancelledCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cancelled)
}

type paymentFixture struct {
	db       *store.MemoryStore
	bookings *BookingService
	payments *PaymentService
	notifier *recordingNotifier
	mock     *gateway.Mock
}

func newPaymentFixture(t *testing.T, reservationTTL time.Duration) *paymentFixture {
	t.Helper()

	db := store.NewMemoryStore()
	seedEvent(t, db, 100, 10)

	registry := gateway.NewRegistry(gateway.NewFactory())
	require.NoError(t, registry.Register(context.Background(), gateway.ProviderMock, &gateway.MockConfig{SuccessRate: 1.0}))
	require.NoError(t, registry.SetPrimary(gateway.ProviderMock))

	gw, err := registry.Get(gateway.ProviderMock)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	return &paymentFixture{
		db:       db,
		bookings: NewBookingService(db, reservationTTL),
		payments: NewPaymentService(db, registry, nil, notifier, "EUR", 10*time.Minute),
		notifier: notifier,
		mock:     gw.(*gateway.Mock),
	}
}

func (f *paymentFixture) reserveAndPay(t *testing.T) (*models.Booking, *CheckoutInfo) {
	t.Helper()
	booking, err := f.bookings.Reserve(context.Background(), validReserveRequest(2))
	require.NoError(t, err)
	checkout, err := f.payments.Initiate(context.Background(), booking.Reference, "qr_code")
	require.NoError(t, err)
	return booking, checkout
}

func TestInitiatePayment(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)

	booking, checkout := f.reserveAndPay(t)

	assert.NotEmpty(t, checkout.PaymentID)
	assert.NotEmpty(t, checkout.OrderID)
	assert.NotEmpty(t, checkout.CheckoutURL)
	assert.Equal(t, "61.29", checkout.Amount)
	assert.Equal(t, "EUR", checkout.Currency)

	stored, err := f.db.FindBookingByReference(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, stored.Status)
	assert.Equal(t, checkout.PaymentID, stored.PaymentID)

	payment, err := f.db.FindPaymentByID(context.Background(), checkout.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, checkout.OrderID, payment.GatewayOrderID)
}

func TestInitiateTerminalBooking(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, checkout := f.reserveAndPay(t)

	require.NoError(t, f.payments.HandleNotification(context.Background(), &models.PaymentNotification{
		OrderID: checkout.OrderID,
		Status:  "success",
	}))

	_, err := f.payments.Initiate(context.Background(), booking.Reference, "qr_code")
	assert.ErrorIs(t, err, status.ErrInvalidState)
}

func TestWebhookConfirmsBooking(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, checkout := f.reserveAndPay(t)

	err := f.payments.HandleNotification(context.Background(), &models.PaymentNotification{
		OrderID:       checkout.OrderID,
		Status:        "success",
		TransactionID: "txn123",
	})
	require.NoError(t, err)

	stored, err := f.db.FindBookingByReference(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)

	payment, err := f.db.FindPaymentByID(context.Background(), checkout.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, payment.Status)
	require.NotNil(t, payment.ProcessedAt)

	// Inventory stays sold and the tickets stay valid.
	cat, err := f.db.FindCategory(context.Background(), "cat1")
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Sold)
	tickets, err := f.db.ListTickets(context.Background(), stored.ID)
	require.NoError(t, err)
	for _, ticket := range tickets {
		assert.Equal(t, models.TicketValid, ticket.Status)
	}
}

func TestWebhookReplayIsNoop(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, checkout := f.reserveAndPay(t)

	n := &models.PaymentNotification{OrderID: checkout.OrderID, Status: "success"}
	require.NoError(t, f.payments.HandleNotification(context.Background(), n))
	require.NoError(t, f.payments.HandleNotification(context.Background(), n))

	// A late failure notification must not unwind a confirmed booking.
	require.NoError(t, f.payments.HandleNotification(context.Background(), &models.PaymentNotification{
		OrderID: checkout.OrderID,
		Status:  "failed",
	}))

	stored, err := f.db.FindBookingByReference(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)

	cat, err := f.db.FindCategory(context.Background(), "cat1")
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Sold)
}

func TestWebhookFailureReleasesSeats(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, checkout := f.reserveAndPay(t)

	err := f.payments.HandleNotification(context.Background(), &models.PaymentNotification{
		OrderID: checkout.OrderID,
		Status:  "failed",
	})
	require.NoError(t, err)

	stored, err := f.db.FindBookingByReference(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, stored.Status)

	cat, err := f.db.FindCategory(context.Background(), "cat1")
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Sold)

	tickets, err := f.db.ListTickets(context.Background(), stored.ID)
	require.NoError(t, err)
	for _, ticket := range tickets {
		assert.Equal(t, models.TicketCancelled, ticket.Status)
	}

	payment, err := f.db.FindPaymentByID(context.Background(), checkout.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, payment.Status)

	assert.Equal(t, 1, f.notifier.cancelledCount())
}

func TestWebhookUnknownOrder(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)

	err := f.payments.HandleNotification(context.Background(), &models.PaymentNotification{
		OrderID: "mock_ord_unknown",
		Status:  "success",
	})
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestWebhookDedupViaRedis(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, checkout := f.reserveAndPay(t)

	redisClient, redisMock := redismock.NewClientMock()
	f.payments.redis = redisClient

	key := "payment:notify:" + checkout.OrderID + ":success"
	redisMock.Regexp().ExpectSetNX(key, `.*`, notificationDedupTTL).SetVal(true)
	redisMock.Regexp().ExpectSetNX(key, `.*`, notificationDedupTTL).SetVal(false)

	n := &models.PaymentNotification{OrderID: checkout.OrderID, Status: "success"}
	require.NoError(t, f.payments.HandleNotification(context.Background(), n))
	require.NoError(t, f.payments.HandleNotification(context.Background(), n))

	stored, err := f.db.FindBookingByReference(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

// flakyStore fails booking lookups on demand, standing in for a database
// hiccup while a webhook is being applied.
type flakyStore struct {
	store.Store
	failLookups bool
}

func (f *flakyStore) FindBookingByGatewayOrder(ctx context.Context, orderID string) (*models.Booking, error) {
	if f.failLookups {
		return nil, errors.New("store unavailable")
	}
	return f.Store.FindBookingByGatewayOrder(ctx, orderID)
}

func TestWebhookRedeliveryAfterFailedApply(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, checkout := f.reserveAndPay(t)

	flaky := &flakyStore{Store: f.db}
	registry := gateway.NewRegistry(gateway.NewFactory())
	require.NoError(t, registry.Register(context.Background(), gateway.ProviderMock, &gateway.MockConfig{SuccessRate: 1.0}))
	require.NoError(t, registry.SetPrimary(gateway.ProviderMock))

	redisClient, redisMock := redismock.NewClientMock()
	payments := NewPaymentService(flaky, registry, redisClient, f.notifier, "EUR", 10*time.Minute)

	key := "payment:notify:" + checkout.OrderID + ":success"
	redisMock.Regexp().ExpectSetNX(key, `.*`, notificationDedupTTL).SetVal(true)
	redisMock.ExpectDel(key).SetVal(1)
	redisMock.Regexp().ExpectSetNX(key, `.*`, notificationDedupTTL).SetVal(true)

	n := &models.PaymentNotification{OrderID: checkout.OrderID, Status: "success"}

	// First delivery hits a store outage: the dedup marker must be
	// rolled back so the gateway's retry is not treated as a duplicate.
	flaky.failLookups = true
	require.Error(t, payments.HandleNotification(context.Background(), n))

	flaky.failLookups = false
	require.NoError(t, payments.HandleNotification(context.Background(), n))

	stored, err := f.db.FindBookingByReference(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestStateExpiresLapsedReservation(t *testing.T) {
	f := newPaymentFixture(t, -time.Minute)

	booking, err := f.bookings.Reserve(context.Background(), validReserveRequest(2))
	require.NoError(t, err)

	state, err := f.payments.State(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingExpired, state.Status)

	cat, err := f.db.FindCategory(context.Background(), "cat1")
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Sold)
}

func TestStatePollConfirmsViaGateway(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, _ := f.reserveAndPay(t)

	// No webhook arrives; the mock gateway settles on first verify.
	state, err := f.payments.State(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, state.Status)
	assert.Equal(t, models.PaymentCompleted, state.PaymentStatus)

	stored, err := f.db.FindBookingByReference(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, stored.Status)
}

func TestExpireStaleReservationsSweep(t *testing.T) {
	f := newPaymentFixture(t, -time.Minute)

	_, err := f.bookings.Reserve(context.Background(), validReserveRequest(1))
	require.NoError(t, err)
	_, err = f.bookings.Reserve(context.Background(), validReserveRequest(1))
	require.NoError(t, err)

	expired, err := f.payments.ExpireStaleReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	cat, err := f.db.FindCategory(context.Background(), "cat1")
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Sold)
}

func TestRefundConfirmedBooking(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, checkout := f.reserveAndPay(t)

	require.NoError(t, f.mock.Settle(checkout.OrderID, true))
	require.NoError(t, f.payments.HandleNotification(context.Background(), &models.PaymentNotification{
		OrderID: checkout.OrderID,
		Status:  "success",
	}))

	require.NoError(t, f.payments.Refund(context.Background(), booking.Reference))

	stored, err := f.db.FindBookingByReference(context.Background(), booking.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.BookingRefunded, stored.Status)

	payment, err := f.db.FindPaymentByID(context.Background(), checkout.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, payment.Status)

	cat, err := f.db.FindCategory(context.Background(), "cat1")
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Sold)
}

func TestRefundRequiresConfirmed(t *testing.T) {
	f := newPaymentFixture(t, 15*time.Minute)
	booking, _ := f.reserveAndPay(t)

	err := f.payments.Refund(context.Background(), booking.Reference)
	assert.ErrorIs(t, err, status.ErrInvalidState)
}
