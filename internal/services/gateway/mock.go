package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockConfig holds configuration for the mock gateway.
type MockConfig struct {
	// SuccessRate is the probability a settled order completes (0.0 to 1.0).
	SuccessRate float64

	// SettleAfter is how long an order stays pending before Verify reports
	// a final status. Zero means orders settle on the first Verify call.
	SettleAfter time.Duration
}

func DefaultMockConfig() *MockConfig {
	return &MockConfig{
		SuccessRate: 0.95,
		SettleAfter: 0,
	}
}

type mockOrder struct {
	status    OrderStatus
	amount    decimal.Decimal
	currency  string
	reference string
	createdAt time.Time
	txID      string
}

// Mock is an in-memory gateway for development and tests. Orders start
// pending and settle either explicitly through Settle or lazily on Verify
// once SettleAfter has elapsed.
type Mock struct {
	config *MockConfig
	mu     sync.Mutex
	orders map[string]*mockOrder
}

func NewMock(config *MockConfig) *Mock {
	if config == nil {
		config = DefaultMockConfig()
	}
	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}
	return &Mock{
		config: config,
		orders: make(map[string]*mockOrder),
	}
}

func (g *Mock) Provider() Provider {
	return ProviderMock
}

func (g *Mock) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is required")
	}

	orderID := fmt.Sprintf("mock_ord_%s", uuid.New().String()[:8])

	g.mu.Lock()
	g.orders[orderID] = &mockOrder{
		status:    StatusPending,
		amount:    req.Amount,
		currency:  req.Currency,
		reference: req.Reference,
		createdAt: time.Now(),
	}
	g.mu.Unlock()

	return &Order{
		OrderID:     orderID,
		CheckoutURL: fmt.Sprintf("https://checkout.invalid/pay/%s", orderID),
	}, nil
}

func (g *Mock) Verify(ctx context.Context, orderID string) (*Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}

	if o.status == StatusPending && time.Since(o.createdAt) >= g.config.SettleAfter {
		g.settleLocked(orderID, o, rand.Float64() < g.config.SuccessRate)
	}

	return &Verification{
		OrderID:       orderID,
		Status:        o.status,
		TransactionID: o.txID,
		Amount:        o.amount,
		Currency:      o.currency,
		Raw:           fmt.Sprintf(`{"order_id":%q,"status":%q}`, orderID, o.status),
	}, nil
}

func (g *Mock) Refund(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if o.status != StatusCompleted {
		return fmt.Errorf("order %s is %s, only completed orders can be refunded", orderID, o.status)
	}
	o.status = StatusRefunded
	return nil
}

func (g *Mock) Close(ctx context.Context) error {
	return nil
}

// Settle finalizes a pending order. Used by the payment simulation endpoint
// and by tests that need a deterministic outcome.
func (g *Mock) Settle(orderID string, success bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if o.status != StatusPending {
		return nil
	}
	g.settleLocked(orderID, o, success)
	return nil
}

func (g *Mock) settleLocked(orderID string, o *mockOrder, success bool) {
	if success {
		o.status = StatusCompleted
		o.txID = fmt.Sprintf("mock_txn_%s", uuid.New().String()[:8])
	} else {
		o.status = StatusFailed
	}
}
