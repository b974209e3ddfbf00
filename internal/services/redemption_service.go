package services

import (
	"context"
	"time"

	"ticketbox/internal/models"
	"ticketbox/internal/status"
	"ticketbox/internal/store"
	"ticketbox/monitoring"
)

// RedemptionResult is what the gate staff sees after a successful scan.
type RedemptionResult struct {
	TicketCode   string    `json:"ticket_code"`
	CustomerName string    `json:"customer_name"`
	EventName    string    `json:"event_name"`
	TicketType   string    `json:"ticket_type"`
	RedeemedAt   time.Time `json:"redeemed_at"`
}

type RedemptionService struct {
	store         store.Store
	admissionLead time.Duration
}

func NewRedemptionService(s store.Store, admissionLead time.Duration) *RedemptionService {
	return &RedemptionService{store: s, admissionLead: admissionLead}
}

// Redeem marks a ticket as used at the gate. The checks run in a fixed
// order so a scan that fails for several reasons always reports the same
// one: unknown code, already used, booking not paid, then too early. The
// final mark is a compare-and-swap on the ticket status, so two
// simultaneous scans of the same code admit exactly one person.
func (s *RedemptionService) Redeem(ctx context.Context, code, redeemer string) (*RedemptionResult, error) {
	ticket, err := s.store.FindTicketByCode(ctx, code)
	if err != nil {
		monitoring.TrackRedemption("not_found")
		return nil, err
	}
	res, err := s.redeemTicket(ctx, ticket, redeemer)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RedeemByID resolves a ticket by its record id, for scanners that send
// the ticket id instead of the QR payload.
func (s *RedemptionService) RedeemByID(ctx context.Context, ticketID, redeemer string) (*RedemptionResult, error) {
	ticket, err := s.store.FindTicketByID(ctx, ticketID)
	if err != nil {
		monitoring.TrackRedemption("not_found")
		return nil, err
	}
	return s.redeemTicket(ctx, ticket, redeemer)
}

func (s *RedemptionService) redeemTicket(ctx context.Context, ticket *models.Ticket, redeemer string) (*RedemptionResult, error) {
	if ticket.Status != models.TicketValid {
		monitoring.TrackRedemption("already_used")
		return nil, status.ErrAlreadyUsed
	}

	booking, err := s.store.FindBookingByID(ctx, ticket.BookingID)
	if err != nil {
		monitoring.TrackRedemption("error")
		return nil, err
	}
	if booking.Status != models.BookingConfirmed {
		monitoring.TrackRedemption("not_confirmed")
		return nil, status.ErrBookingNotConfirmed
	}

	event, err := s.store.FindEvent(ctx, booking.EventID)
	if err != nil {
		monitoring.TrackRedemption("error")
		return nil, err
	}
	now := time.Now()
	if now.Before(event.StartsAt.Add(-s.admissionLead)) {
		monitoring.TrackRedemption("too_early")
		return nil, status.ErrTooEarly
	}

	// The read above raced other scanners; only the swap decides.
	if err := s.store.RedeemTicket(ctx, ticket.Code, redeemer, now); err != nil {
		monitoring.TrackRedemption("already_used")
		return nil, err
	}

	ticketType := ""
	if cat, err := s.store.FindCategory(ctx, ticket.CategoryID); err == nil {
		ticketType = cat.Name
	}

	monitoring.TrackRedemption("admitted")
	return &RedemptionResult{
		TicketCode:   ticket.Code,
		CustomerName: booking.CustomerName,
		EventName:    event.Name,
		TicketType:   ticketType,
		RedeemedAt:   now,
	}, nil
}
