package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"ticketbox/internal/models"
)

var (
	serviceFeeRate = decimal.NewFromFloat(0.03)
	taxRate        = decimal.NewFromFloat(0.19)
)

// Quote is the full price breakdown for a requested quantity. Values are
// exact decimals; rounding happens only where they are persisted or shown.
type Quote struct {
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
}

// UnitPrice resolves the price per ticket at the given instant. The
// early-bird price applies only while the deadline has not passed; a
// category without early-bird fields always sells at base price.
func UnitPrice(cat *models.TicketCategory, now time.Time) decimal.Decimal {
	if cat.EarlyBirdPrice != nil && cat.EarlyBirdDeadline != nil && now.Before(*cat.EarlyBirdDeadline) {
		return *cat.EarlyBirdPrice
	}
	return cat.Price
}

// Calculate derives the quote for quantity tickets of cat at time now.
// The service fee is 3% of the subtotal and tax is 19% of subtotal plus
// fee. The fee-then-tax compounding order is part of the contract; totals
// change if it is reordered.
func Calculate(cat *models.TicketCategory, quantity int, now time.Time) Quote {
	unit := UnitPrice(cat, now)
	subtotal := unit.Mul(decimal.NewFromInt(int64(quantity)))
	fee := subtotal.Mul(serviceFeeRate)
	tax := subtotal.Add(fee).Mul(taxRate)

	return Quote{
		UnitPrice:  unit,
		Subtotal:   subtotal,
		ServiceFee: fee,
		Tax:        tax,
		Total:      subtotal.Add(fee).Add(tax),
	}
}
