package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketbox/internal/models"
	"ticketbox/internal/pricing"
	"ticketbox/internal/status"
	"ticketbox/internal/store"
	"ticketbox/monitoring"
	"ticketbox/utils"
)

// ReserveRequest is a customer's reservation attempt for one ticket
// category.
type ReserveRequest struct {
	EventID       string `json:"event_id"`
	CategoryID    string `json:"ticket_type_id"`
	Quantity      int    `json:"quantity"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

func (r *ReserveRequest) validate() error {
	if r.CategoryID == "" {
		return fmt.Errorf("%w: ticket_type_id is required", status.ErrInvalidState)
	}
	if r.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", status.ErrInvalidState)
	}
	if r.CustomerName == "" || r.CustomerEmail == "" {
		return fmt.Errorf("%w: customer name and email are required", status.ErrInvalidState)
	}
	return nil
}

type BookingService struct {
	store          store.Store
	reservationTTL time.Duration
}

func NewBookingService(s store.Store, reservationTTL time.Duration) *BookingService {
	return &BookingService{
		store:          s,
		reservationTTL: reservationTTL,
	}
}

// Reserve creates a booking against finite inventory. The availability
// check, the sold-count increment, the booking row and its tickets are all
// written inside one transaction: a failure at any step leaves no partial
// inventory increment and no orphan tickets.
func (s *BookingService) Reserve(ctx context.Context, req *ReserveRequest) (*models.Booking, error) {
	if err := req.validate(); err != nil {
		monitoring.TrackReservation("invalid")
		return nil, err
	}

	started := time.Now()
	var booking *models.Booking

	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		cat, err := tx.FindCategory(ctx, req.CategoryID)
		if err != nil {
			return err
		}
		if req.EventID != "" && cat.EventID != req.EventID {
			return status.ErrNotFound
		}
		if cat.MaxPerOrder > 0 && req.Quantity > cat.MaxPerOrder {
			return fmt.Errorf("%w: at most %d tickets per order", status.ErrInvalidState, cat.MaxPerOrder)
		}
		if cat.Available() < req.Quantity {
			return status.ErrInsufficientInventory
		}

		now := time.Now()
		quote := pricing.Calculate(cat, req.Quantity, now)

		ref, err := utils.NewBookingReference(now)
		if err != nil {
			return fmt.Errorf("generate reference: %w", err)
		}

		// The conditional increment re-checks availability against the
		// committed sold count, closing the race two concurrent
		// reservations would otherwise win together.
		if err := tx.ReserveSeats(ctx, cat.ID, req.Quantity); err != nil {
			return err
		}

		booking = &models.Booking{
			Reference:     ref,
			EventID:       cat.EventID,
			CategoryID:    cat.ID,
			Quantity:      req.Quantity,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
			UnitPrice:     quote.UnitPrice,
			Subtotal:      quote.Subtotal,
			ServiceFee:    quote.ServiceFee,
			Tax:           quote.Tax,
			Total:         quote.Total,
			Status:        models.BookingReserved,
			ExpiresAt:     now.Add(s.reservationTTL),
			CreatedAt:     now,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return err
		}

		for i := 1; i <= req.Quantity; i++ {
			code, err := utils.NewTicketCode(ref, i)
			if err != nil {
				return fmt.Errorf("generate ticket code: %w", err)
			}
			ticket := &models.Ticket{
				BookingID:  booking.ID,
				CategoryID: cat.ID,
				Seq:        i,
				Code:       code,
				Status:     models.TicketValid,
			}
			if err := tx.CreateTicket(ctx, ticket); err != nil {
				return err
			}
			booking.Tickets = append(booking.Tickets, ticket)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, status.ErrInsufficientInventory):
			monitoring.TrackReservation("insufficient_inventory")
		case errors.Is(err, status.ErrNotFound):
			monitoring.TrackReservation("not_found")
		default:
			monitoring.TrackReservation("error")
		}
		return nil, err
	}

	monitoring.TrackReservation("created")
	monitoring.TrackReservationDuration(time.Since(started))
	return booking, nil
}

// Get returns a booking with its tickets.
func (s *BookingService) Get(ctx context.Context, ref string) (*models.Booking, error) {
	booking, err := s.store.FindBookingByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.ListTickets(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Tickets = tickets
	return booking, nil
}
