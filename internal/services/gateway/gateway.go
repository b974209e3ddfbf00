package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies a concrete payment gateway integration.
type Provider string

const (
	ProviderPaylink Provider = "paylink"
	ProviderMock    Provider = "mock"
)

// OrderRequest is a generic hosted-checkout order creation request.
type OrderRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Reference     string          `json:"reference"` // merchant-side booking reference
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Description   string          `json:"description,omitempty"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// Order is the gateway's answer to order creation: its own identifier plus
// the hosted checkout page the customer is redirected to.
type Order struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
	StatusFailed    OrderStatus = "failed"
	StatusRefunded  OrderStatus = "refunded"
)

// Final reports whether the gateway will not change this status anymore.
func (s OrderStatus) Final() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRefunded
}

// Verification is the result of a status inquiry against the gateway.
type Verification struct {
	OrderID       string          `json:"order_id"`
	Status        OrderStatus     `json:"status"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Raw           string          `json:"raw,omitempty"` // response snapshot for audit
}

// Gateway is the common interface for all payment providers. The
// reconciliation state machine depends only on this, never on a concrete
// provider's API shape.
type Gateway interface {
	// Provider returns the gateway provider type.
	Provider() Provider

	// CreateOrder registers a payment order and returns the hosted
	// checkout location.
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)

	// Verify checks the current (possibly final) status of an order.
	Verify(ctx context.Context, orderID string) (*Verification, error)

	// Refund returns the funds of a completed order.
	Refund(ctx context.Context, orderID string) error

	// Close gracefully closes any connections.
	Close(ctx context.Context) error
}
