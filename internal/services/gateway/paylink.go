package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Paylink talks to a hosted-checkout payment provider over HTTP JSON:
// order creation, status verification and refunds, authenticated with an
// API key.
type Paylink struct {
	baseURL    string
	apiKey     string
	merchantID string

	// hc is the http client.
	hc *http.Client
}

func NewPaylink(cfg *PaylinkConfig) (*Paylink, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("paylink: base URL and API key are required")
	}

	return &Paylink{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		merchantID: cfg.MerchantID,
		hc:         &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (p *Paylink) Provider() Provider {
	return ProviderPaylink
}

type paylinkOrderRequest struct {
	MerchantID    string `json:"merchant_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Description   string `json:"description,omitempty"`
	ExpiresAt     string `json:"expires_at"`
}

type paylinkOrderResponse struct {
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
}

func (p *Paylink) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	body := paylinkOrderRequest{
		MerchantID:    p.merchantID,
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Reference:     req.Reference,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Description:   req.Description,
		ExpiresAt:     req.ExpiresAt.UTC().Format(time.RFC3339),
	}

	var reply paylinkOrderResponse
	if err := p.do(ctx, http.MethodPost, "/v1/orders", body, &reply); err != nil {
		return nil, fmt.Errorf("paylink: create order: %w", err)
	}
	if reply.OrderID == "" || reply.CheckoutURL == "" {
		return nil, fmt.Errorf("paylink: create order: incomplete response")
	}

	return &Order{OrderID: reply.OrderID, CheckoutURL: reply.CheckoutURL}, nil
}

type paylinkStatusResponse struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"` // PENDING, COMPLETED, FAILED, REFUNDED
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

func (p *Paylink) Verify(ctx context.Context, orderID string) (*Verification, error) {
	var reply paylinkStatusResponse
	if err := p.do(ctx, http.MethodGet, "/v1/orders/"+orderID, nil, &reply); err != nil {
		return nil, fmt.Errorf("paylink: verify: %w", err)
	}

	amount, _ := decimal.NewFromString(reply.Amount)
	raw, _ := json.Marshal(reply)

	return &Verification{
		OrderID:       reply.OrderID,
		Status:        mapPaylinkStatus(reply.Status),
		TransactionID: reply.TransactionID,
		Amount:        amount,
		Currency:      reply.Currency,
		Raw:           string(raw),
	}, nil
}

func (p *Paylink) Refund(ctx context.Context, orderID string) error {
	if err := p.do(ctx, http.MethodPost, "/v1/orders/"+orderID+"/refund", nil, nil); err != nil {
		return fmt.Errorf("paylink: refund: %w", err)
	}
	return nil
}

func (p *Paylink) Close(ctx context.Context) error {
	p.hc.CloseIdleConnections()
	return nil
}

func mapPaylinkStatus(s string) OrderStatus {
	switch s {
	case "COMPLETED":
		return StatusCompleted
	case "FAILED", "CANCELLED":
		return StatusFailed
	case "REFUNDED":
		return StatusRefunded
	default:
		return StatusPending
	}
}

func (p *Paylink) do(ctx context.Context, method, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("json.Marshal: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.hc.Do(req)
	if err != nil {
		return fmt.Errorf("hc.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rbody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}

	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("json.Decode: %w", err)
	}
	return nil
}
