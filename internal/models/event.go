package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Status      string    `json:"status"` // upcoming, ongoing, completed
}

// TicketCategory is a purchasable tier of an event with its own price and
// inventory. Sold is mutated only by reservation (increment) and by
// reconciliation releasing a failed or expired booking (decrement).
type TicketCategory struct {
	ID                string           `json:"id"`
	EventID           string           `json:"event_id"`
	Name              string           `json:"name"`
	Price             decimal.Decimal  `json:"price"`
	EarlyBirdPrice    *decimal.Decimal `json:"early_bird_price,omitempty"`
	EarlyBirdDeadline *time.Time       `json:"early_bird_deadline,omitempty"`
	Quantity          int              `json:"quantity"`
	Sold              int              `json:"sold"`
	MaxPerOrder       int              `json:"max_per_order"`
}

// Available returns the units still open for reservation.
func (c *TicketCategory) Available() int {
	return c.Quantity - c.Sold
}
