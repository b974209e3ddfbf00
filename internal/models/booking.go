package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingReserved  BookingStatus = "reserved"
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
	BookingRefunded  BookingStatus = "refunded"
)

// Terminal reports whether no further lifecycle transition is valid.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingConfirmed, BookingCancelled, BookingExpired, BookingRefunded:
		return true
	}
	return false
}

// Booking is one customer's reservation for one ticket category of one
// event. Monetary amounts are captured at creation time and never change.
type Booking struct {
	ID            string          `json:"id"`
	Reference     string          `json:"reference"`
	EventID       string          `json:"event_id"`
	CategoryID    string          `json:"category_id"`
	Quantity      int             `json:"quantity"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ServiceFee    decimal.Decimal `json:"service_fee"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Status        BookingStatus   `json:"status"`
	ExpiresAt     time.Time       `json:"expires_at"`
	PaymentID     string          `json:"payment_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`

	Tickets []*Ticket `json:"tickets,omitempty"`
}

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

// Ticket is one admission unit within a booking. A ticket moves
// valid -> used at most once; used is terminal.
type Ticket struct {
	ID         string       `json:"id"`
	BookingID  string       `json:"booking_id"`
	CategoryID string       `json:"category_id"`
	Seq        int          `json:"seq"`
	Code       string       `json:"code"`
	Status     TicketStatus `json:"status"`
	RedeemedAt *time.Time   `json:"redeemed_at,omitempty"`
	RedeemedBy string       `json:"redeemed_by,omitempty"`
}
