package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbox/internal/models"
	"ticketbox/internal/services"
	"ticketbox/security"
)

type BookingHandler struct {
	bookings  *services.BookingService
	payments  *services.PaymentService
	limiter   *security.RateLimiter
	ratePerIP int
}

func NewBookingHandler(bookings *services.BookingService, payments *services.PaymentService, limiter *security.RateLimiter, ratePerIP int) *BookingHandler {
	return &BookingHandler{
		bookings:  bookings,
		payments:  payments,
		limiter:   limiter,
		ratePerIP: ratePerIP,
	}
}

// CreateBooking reserves tickets and starts the payment window.
func (h *BookingHandler) CreateBooking(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	if security.IsSuspiciousUserAgent(e.Request.UserAgent()) {
		return apis.NewForbiddenError("Access denied", nil)
	}

	ip := security.ClientIP(e.Request)
	if !h.limiter.Allow(ctx, "reserve", ip, h.ratePerIP, time.Minute) {
		return apis.NewApiError(http.StatusTooManyRequests, "Too many reservation attempts, slow down", nil)
	}

	req := &services.ReserveRequest{}
	if err := e.BindBody(req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	booking, err := h.bookings.Reserve(ctx, req)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusCreated, bookingView(booking))
}

// GetBooking returns the booking with its tickets.
func (h *BookingHandler) GetBooking(e *core.RequestEvent) error {
	booking, err := h.bookings.Get(e.Request.Context(), e.Request.PathValue("reference"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, bookingView(booking))
}

// GetBookingStatus is the client poll endpoint used while the customer
// sits on the gateway's checkout page.
func (h *BookingHandler) GetBookingStatus(e *core.RequestEvent) error {
	state, err := h.payments.State(e.Request.Context(), e.Request.PathValue("reference"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, state)
}

func bookingView(b *models.Booking) map[string]any {
	tickets := make([]map[string]any, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		tickets = append(tickets, map[string]any{
			"id":     t.ID,
			"seq":    t.Seq,
			"code":   t.Code,
			"status": t.Status,
		})
	}
	view := map[string]any{
		"reference":      b.Reference,
		"event_id":       b.EventID,
		"ticket_type_id": b.CategoryID,
		"quantity":       b.Quantity,
		"customer_name":  b.CustomerName,
		"customer_email": b.CustomerEmail,
		"unit_price":     b.UnitPrice.StringFixed(2),
		"subtotal":       b.Subtotal.StringFixed(2),
		"service_fee":    b.ServiceFee.StringFixed(2),
		"tax":            b.Tax.StringFixed(2),
		"total":          b.Total.StringFixed(2),
		"status":         b.Status,
		"created_at":     b.CreatedAt,
		"tickets":        tickets,
	}
	if !b.Status.Terminal() {
		view["expires_at"] = b.ExpiresAt
	}
	return view
}
