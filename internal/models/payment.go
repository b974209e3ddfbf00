package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is one attempt to collect funds for a booking. A booking has at
// most one active payment; a retry after failure overwrites the record.
type Payment struct {
	ID              string          `json:"id"`
	BookingID       string          `json:"booking_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Method          string          `json:"method"` // qr_code, credit_card, bank_transfer
	GatewayOrderID  string          `json:"gateway_order_id"`
	Status          PaymentStatus   `json:"status"`
	GatewayResponse string          `json:"gateway_response,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}

// PaymentNotification is the inbound webhook body delivered by the gateway.
// Delivery is at-least-once; handlers must be idempotent.
type PaymentNotification struct {
	OrderID       string    `json:"order_id"`
	Status        string    `json:"status"` // success, failed
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}
