package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbox/internal/models"
	"ticketbox/internal/services"
	"ticketbox/internal/services/gateway"
)

type PaymentHandler struct {
	payments    *services.PaymentService
	gateways    *gateway.Registry
	development bool
}

func NewPaymentHandler(payments *services.PaymentService, gateways *gateway.Registry, development bool) *PaymentHandler {
	return &PaymentHandler{
		payments:    payments,
		gateways:    gateways,
		development: development,
	}
}

// InitiatePayment creates the gateway order and returns the checkout URL.
func (h *PaymentHandler) InitiatePayment(e *core.RequestEvent) error {
	reference := e.Request.PathValue("reference")

	body := struct {
		Method string `json:"method"`
	}{}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if body.Method == "" {
		body.Method = "qr_code"
	}

	checkout, err := h.payments.Initiate(e.Request.Context(), reference, body.Method)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, checkout)
}

// Webhook receives asynchronous settlement notifications from the
// gateway. The gateway retries on non-2xx, so a processing failure is
// bounced rather than acknowledged; delivery is at-least-once and the
// service dedups replays.
func (h *PaymentHandler) Webhook(e *core.RequestEvent) error {
	n := &models.PaymentNotification{}
	if err := e.BindBody(n); err != nil {
		return apis.NewBadRequestError("Invalid notification body", err)
	}
	if n.OrderID == "" {
		return apis.NewBadRequestError("Missing order_id", nil)
	}

	if err := h.payments.HandleNotification(e.Request.Context(), n); err != nil {
		slog.Error("webhook processing failed", "order_id", n.OrderID, "error", err)
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// SimulatePayment settles a mock gateway order. Registered only in
// development.
func (h *PaymentHandler) SimulatePayment(e *core.RequestEvent) error {
	body := struct {
		OrderID string `json:"order_id"`
		Outcome string `json:"outcome"` // success or failed
	}{}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if body.OrderID == "" {
		return apis.NewBadRequestError("Missing order_id", nil)
	}

	gw, err := h.gateways.Get(gateway.ProviderMock)
	if err != nil {
		return apis.NewBadRequestError("Mock gateway is not configured", nil)
	}
	mock, ok := gw.(*gateway.Mock)
	if !ok {
		return apis.NewBadRequestError("Mock gateway is not configured", nil)
	}

	success := body.Outcome != "failed"
	if err := mock.Settle(body.OrderID, success); err != nil {
		return apiError(err)
	}

	outcome := "success"
	if !success {
		outcome = "failed"
	}
	if err := h.payments.HandleNotification(e.Request.Context(), &models.PaymentNotification{
		OrderID: body.OrderID,
		Status:  outcome,
	}); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"status": outcome})
}
