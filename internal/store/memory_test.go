package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbox/internal/models"
	"ticketbox/internal/status"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	m := NewMemoryStore()
	m.PutEvent(models.Event{ID: "evt1", Name: "Showcase", StartsAt: time.Now().Add(time.Hour)})
	m.PutCategory(models.TicketCategory{
		ID:       "cat1",
		EventID:  "evt1",
		Name:     "Standard",
		Price:    decimal.RequireFromString("10.00"),
		Quantity: 5,
	})
	return m
}

func TestReserveSeatsGuardsInventory(t *testing.T) {
	m := seedStore(t)
	ctx := context.Background()

	require.NoError(t, m.ReserveSeats(ctx, "cat1", 3))
	require.NoError(t, m.ReserveSeats(ctx, "cat1", 2))

	err := m.ReserveSeats(ctx, "cat1", 1)
	assert.ErrorIs(t, err, status.ErrInsufficientInventory)

	err = m.ReserveSeats(ctx, "missing", 1)
	assert.ErrorIs(t, err, status.ErrNotFound)

	cat, err := m.FindCategory(ctx, "cat1")
	require.NoError(t, err)
	assert.Equal(t, 5, cat.Sold)
	assert.Equal(t, 0, cat.Available())
}

func TestReleaseSeatsFloorsAtZero(t *testing.T) {
	m := seedStore(t)
	ctx := context.Background()

	require.NoError(t, m.ReserveSeats(ctx, "cat1", 2))
	require.NoError(t, m.ReleaseSeats(ctx, "cat1", 4))

	cat, err := m.FindCategory(ctx, "cat1")
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Sold)
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	m := seedStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := m.RunInTransaction(ctx, func(tx Store) error {
		if err := tx.ReserveSeats(ctx, "cat1", 2); err != nil {
			return err
		}
		if err := tx.CreateBooking(ctx, &models.Booking{
			Reference:  "TKT-TEST-1",
			EventID:    "evt1",
			CategoryID: "cat1",
			Quantity:   2,
			Status:     models.BookingReserved,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	cat, err := m.FindCategory(ctx, "cat1")
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Sold, "seat increment must roll back")

	_, err = m.FindBookingByReference(ctx, "TKT-TEST-1")
	assert.ErrorIs(t, err, status.ErrNotFound, "booking row must roll back")
}

func TestTransitionBookingFromGuard(t *testing.T) {
	m := seedStore(t)
	ctx := context.Background()

	b := &models.Booking{
		Reference:  "TKT-TEST-2",
		EventID:    "evt1",
		CategoryID: "cat1",
		Quantity:   1,
		Status:     models.BookingReserved,
	}
	require.NoError(t, m.CreateBooking(ctx, b))

	require.NoError(t, m.TransitionBooking(ctx, b.ID,
		[]models.BookingStatus{models.BookingReserved, models.BookingPending}, models.BookingConfirmed))

	// Terminal booking refuses a second transition.
	err := m.TransitionBooking(ctx, b.ID,
		[]models.BookingStatus{models.BookingReserved, models.BookingPending}, models.BookingCancelled)
	assert.ErrorIs(t, err, status.ErrInvalidState)

	got, err := m.FindBookingByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, got.Status)
}

func TestRedeemTicketSwapsOnce(t *testing.T) {
	m := seedStore(t)
	ctx := context.Background()

	b := &models.Booking{Reference: "TKT-TEST-3", EventID: "evt1", CategoryID: "cat1", Quantity: 1, Status: models.BookingConfirmed}
	require.NoError(t, m.CreateBooking(ctx, b))
	ticket := &models.Ticket{BookingID: b.ID, CategoryID: "cat1", Seq: 1, Code: "TKT-TEST-3-01-ABCD1234", Status: models.TicketValid}
	require.NoError(t, m.CreateTicket(ctx, ticket))

	at := time.Now()
	require.NoError(t, m.RedeemTicket(ctx, ticket.Code, "gate@example.com", at))

	err := m.RedeemTicket(ctx, ticket.Code, "gate@example.com", at)
	assert.ErrorIs(t, err, status.ErrAlreadyUsed)

	got, err := m.FindTicketByCode(ctx, ticket.Code)
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, got.Status)
	require.NotNil(t, got.RedeemedAt)
}

func TestListExpiredReservations(t *testing.T) {
	m := seedStore(t)
	ctx := context.Background()
	now := time.Now()

	stale := &models.Booking{Reference: "TKT-OLD", EventID: "evt1", CategoryID: "cat1", Quantity: 1,
		Status: models.BookingReserved, ExpiresAt: now.Add(-time.Minute)}
	fresh := &models.Booking{Reference: "TKT-NEW", EventID: "evt1", CategoryID: "cat1", Quantity: 1,
		Status: models.BookingReserved, ExpiresAt: now.Add(time.Minute)}
	done := &models.Booking{Reference: "TKT-DONE", EventID: "evt1", CategoryID: "cat1", Quantity: 1,
		Status: models.BookingConfirmed, ExpiresAt: now.Add(-time.Minute)}
	for _, b := range []*models.Booking{stale, fresh, done} {
		require.NoError(t, m.CreateBooking(ctx, b))
	}

	expired, err := m.ListExpiredReservations(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "TKT-OLD", expired[0].Reference)
}
