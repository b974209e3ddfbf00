package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_OrderLifecycle(t *testing.T) {
	g := NewMock(&MockConfig{SuccessRate: 1})
	ctx := context.Background()

	order, err := g.CreateOrder(ctx, &OrderRequest{
		Amount:    decimal.NewFromFloat(61.29),
		Currency:  "EUR",
		Reference: "TKT-ABC-123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, order.OrderID)
	require.NotEmpty(t, order.CheckoutURL)

	v, err := g.Verify(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, v.Status)
	assert.NotEmpty(t, v.TransactionID)
	assert.True(t, v.Amount.Equal(decimal.NewFromFloat(61.29)))

	require.NoError(t, g.Refund(ctx, order.OrderID))

	v, err = g.Verify(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, v.Status)
}

func TestMock_FailedOrder(t *testing.T) {
	g := NewMock(&MockConfig{SuccessRate: 0})
	ctx := context.Background()

	order, err := g.CreateOrder(ctx, &OrderRequest{Amount: decimal.NewFromInt(10), Currency: "EUR"})
	require.NoError(t, err)

	v, err := g.Verify(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, v.Status)

	// failed orders cannot be refunded
	assert.Error(t, g.Refund(ctx, order.OrderID))
}

func TestMock_ExplicitSettle(t *testing.T) {
	g := NewMock(&MockConfig{SuccessRate: 0, SettleAfter: time.Hour})
	ctx := context.Background()

	order, err := g.CreateOrder(ctx, &OrderRequest{Amount: decimal.NewFromInt(10), Currency: "EUR"})
	require.NoError(t, err)

	v, err := g.Verify(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, v.Status)

	require.NoError(t, g.Settle(order.OrderID, true))

	v, err = g.Verify(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, v.Status)

	// settling twice is a no-op
	require.NoError(t, g.Settle(order.OrderID, false))
	v, _ = g.Verify(ctx, order.OrderID)
	assert.Equal(t, StatusCompleted, v.Status)
}

func TestMock_VerifyUnknownOrder(t *testing.T) {
	g := NewMock(nil)
	_, err := g.Verify(context.Background(), "nope")
	assert.Error(t, err)
}

func TestFactory_Create(t *testing.T) {
	f := NewFactory()
	ctx := context.Background()

	gw, err := f.Create(ctx, ProviderMock, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, gw.Provider())

	_, err = f.Create(ctx, Provider("unknown"), nil)
	assert.Error(t, err)

	_, err = f.Create(ctx, ProviderPaylink, "not a config")
	assert.Error(t, err)
}

func TestRegistry_PrimaryAndGet(t *testing.T) {
	r := NewRegistry(NewFactory())
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, ProviderMock, nil))

	primary, err := r.Primary()
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, primary.Provider())

	_, err = r.Get(ProviderPaylink)
	assert.Error(t, err)
}

func TestPaylink_CreateOrderAndVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/orders":
			var req paylinkOrderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "61.29", req.Amount)
			assert.Equal(t, "TKT-REF-1", req.Reference)
			json.NewEncoder(w).Encode(paylinkOrderResponse{
				OrderID:     "pl_123",
				CheckoutURL: "https://pay.example.com/pl_123",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/orders/pl_123":
			json.NewEncoder(w).Encode(paylinkStatusResponse{
				OrderID:       "pl_123",
				Status:        "COMPLETED",
				TransactionID: "txn_9",
				Amount:        "61.29",
				Currency:      "EUR",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p, err := NewPaylink(&PaylinkConfig{BaseURL: srv.URL, APIKey: "test-key", MerchantID: "m1"})
	require.NoError(t, err)

	order, err := p.CreateOrder(context.Background(), &OrderRequest{
		Amount:    decimal.NewFromFloat(61.285),
		Currency:  "EUR",
		Reference: "TKT-REF-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pl_123", order.OrderID)

	v, err := p.Verify(context.Background(), "pl_123")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, v.Status)
	assert.Equal(t, "txn_9", v.TransactionID)
	assert.NotEmpty(t, v.Raw)
}

func TestPaylink_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewPaylink(&PaylinkConfig{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = p.Verify(context.Background(), "x")
	assert.Error(t, err)
}

func TestMapPaylinkStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, mapPaylinkStatus("COMPLETED"))
	assert.Equal(t, StatusFailed, mapPaylinkStatus("FAILED"))
	assert.Equal(t, StatusFailed, mapPaylinkStatus("CANCELLED"))
	assert.Equal(t, StatusRefunded, mapPaylinkStatus("REFUNDED"))
	assert.Equal(t, StatusPending, mapPaylinkStatus("PENDING"))
	assert.Equal(t, StatusPending, mapPaylinkStatus("whatever"))
}
