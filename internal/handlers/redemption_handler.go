package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbox/internal/services"
	"ticketbox/internal/status"
	"ticketbox/security"
)

type RedemptionHandler struct {
	redemptions *services.RedemptionService
	auth        *AdminGuard
	limiter     *security.RateLimiter
}

func NewRedemptionHandler(redemptions *services.RedemptionService, guard *AdminGuard, limiter *security.RateLimiter) *RedemptionHandler {
	return &RedemptionHandler{redemptions: redemptions, auth: guard, limiter: limiter}
}

type validateRequest struct {
	QRCode       string `json:"qr_code"`
	TicketID     string `json:"ticket_id"`
	TicketNumber string `json:"ticket_number"`
}

type validateResponse struct {
	Valid  bool                       `json:"valid"`
	Ticket *services.RedemptionResult `json:"ticket,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

// ValidateTicket redeems a ticket at the gate. Scanners may send the QR
// payload, the printed ticket number or the raw record id. Business
// rejections come back as 200 with valid=false so the scanner UI can show
// the reason; only transport problems are HTTP errors.
func (h *RedemptionHandler) ValidateTicket(e *core.RequestEvent) error {
	claims, err := h.auth.Require(e)
	if err != nil {
		return err
	}
	ctx := e.Request.Context()

	if !h.limiter.Allow(ctx, "validate", claims.Subject, 120, time.Minute) {
		return apis.NewApiError(http.StatusTooManyRequests, "Scanning too fast", nil)
	}

	req := &validateRequest{}
	if err := e.BindBody(req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	var result *services.RedemptionResult
	switch {
	case req.QRCode != "":
		result, err = h.redemptions.Redeem(ctx, req.QRCode, claims.Email)
	case req.TicketNumber != "":
		result, err = h.redemptions.Redeem(ctx, req.TicketNumber, claims.Email)
	case req.TicketID != "":
		result, err = h.redemptions.RedeemByID(ctx, req.TicketID, claims.Email)
	default:
		return apis.NewBadRequestError("One of qr_code, ticket_number or ticket_id is required", nil)
	}
	if err != nil {
		return e.JSON(http.StatusOK, &validateResponse{Valid: false, Error: rejectionMessage(err)})
	}
	return e.JSON(http.StatusOK, &validateResponse{Valid: true, Ticket: result})
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, status.ErrNotFound):
		return "Ticket not found"
	case errors.Is(err, status.ErrAlreadyUsed):
		return "Ticket already used"
	case errors.Is(err, status.ErrBookingNotConfirmed):
		return "Booking is not paid"
	case errors.Is(err, status.ErrTooEarly):
		return "Admission has not opened yet"
	default:
		return "Validation failed"
	}
}
