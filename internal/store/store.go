package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ticketbox/internal/models"
)

// EventSales is one dashboard row: confirmed sales for a single event.
type EventSales struct {
	EventID     string          `json:"event_id"`
	EventName   string          `json:"event_name"`
	Bookings    int             `json:"bookings"`
	TicketsSold int             `json:"tickets_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// Store is the persistence boundary of the booking workflow. The relational
// database behind it must provide multi-statement atomic transactions; the
// inventory guard and the redemption check-and-set are single conditional
// updates so concurrent callers cannot both pass a stale read.
type Store interface {
	// RunInTransaction executes fn atomically. The Store handed to fn runs
	// against the transaction; any error aborts every write made inside.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Events and categories.
	FindEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
	FindCategory(ctx context.Context, id string) (*models.TicketCategory, error)
	ListCategories(ctx context.Context, eventID string) ([]*models.TicketCategory, error)

	// Inventory ledger. ReserveSeats increments sold only while
	// sold + qty <= quantity holds and reports ErrInsufficientInventory
	// otherwise; ReleaseSeats gives the units back, never below zero.
	ReserveSeats(ctx context.Context, categoryID string, qty int) error
	ReleaseSeats(ctx context.Context, categoryID string, qty int) error

	// Bookings and tickets.
	CreateBooking(ctx context.Context, b *models.Booking) error
	CreateTicket(ctx context.Context, t *models.Ticket) error
	FindBookingByReference(ctx context.Context, ref string) (*models.Booking, error)
	FindBookingByID(ctx context.Context, id string) (*models.Booking, error)
	FindBookingByGatewayOrder(ctx context.Context, orderID string) (*models.Booking, error)
	ListTickets(ctx context.Context, bookingID string) ([]*models.Ticket, error)
	ListRecentBookings(ctx context.Context, limit int) ([]*models.Booking, error)
	ListExpiredReservations(ctx context.Context, now time.Time) ([]*models.Booking, error)

	// TransitionBooking moves a booking from one of the given statuses to
	// the target status. ErrInvalidState means the booking was not in any
	// of them, which makes repeated webhook deliveries a no-op.
	TransitionBooking(ctx context.Context, bookingID string, from []models.BookingStatus, to models.BookingStatus) error
	SetBookingPayment(ctx context.Context, bookingID, paymentID string) error
	CancelBookingTickets(ctx context.Context, bookingID string) error

	// Ticket redemption.
	FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	FindTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	// RedeemTicket flips a ticket from valid to used exactly once; the
	// losing side of a concurrent duplicate scan gets ErrAlreadyUsed.
	RedeemTicket(ctx context.Context, code, redeemer string, at time.Time) error

	// Payments.
	CreatePayment(ctx context.Context, p *models.Payment) error
	UpdatePayment(ctx context.Context, p *models.Payment) error
	FindPaymentByID(ctx context.Context, id string) (*models.Payment, error)
	FindPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)

	// Admin.
	FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	SalesByEvent(ctx context.Context) ([]*EventSales, error)
}
