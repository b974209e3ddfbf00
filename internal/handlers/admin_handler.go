package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbox/internal/auth"
	"ticketbox/internal/services"
	"ticketbox/internal/store"
)

// AdminGuard authenticates staff requests via the Authorization header.
type AdminGuard struct {
	auth *auth.Service
}

func NewAdminGuard(a *auth.Service) *AdminGuard {
	return &AdminGuard{auth: a}
}

func (g *AdminGuard) Require(e *core.RequestEvent) (*auth.Claims, error) {
	token := bearerToken(e)
	if token == "" {
		return nil, apis.NewUnauthorizedError("Admin access required", nil)
	}
	claims, err := g.auth.Verify(token)
	if err != nil {
		return nil, apis.NewUnauthorizedError("Admin access required", nil)
	}
	return claims, nil
}

type AdminHandler struct {
	store    store.Store
	auth     *auth.Service
	guard    *AdminGuard
	payments *services.PaymentService
}

func NewAdminHandler(s store.Store, authService *auth.Service, guard *AdminGuard, payments *services.PaymentService) *AdminHandler {
	return &AdminHandler{
		store:    s,
		auth:     authService,
		guard:    guard,
		payments: payments,
	}
}

// Login exchanges admin credentials for a session token.
func (h *AdminHandler) Login(e *core.RequestEvent) error {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if body.Email == "" || body.Password == "" {
		return apis.NewBadRequestError("Email and password are required", nil)
	}

	token, admin, err := h.auth.Login(e.Request.Context(), body.Email, body.Password)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"token": token,
		"admin": admin,
	})
}

// Dashboard aggregates per-event sales: confirmed bookings, tickets sold
// and revenue.
func (h *AdminHandler) Dashboard(e *core.RequestEvent) error {
	if _, err := h.guard.Require(e); err != nil {
		return err
	}

	sales, err := h.store.SalesByEvent(e.Request.Context())
	if err != nil {
		return apiError(err)
	}

	out := make([]map[string]any, 0, len(sales))
	for _, s := range sales {
		out = append(out, map[string]any{
			"event_id":     s.EventID,
			"event_name":   s.EventName,
			"bookings":     s.Bookings,
			"tickets_sold": s.TicketsSold,
			"revenue":      s.Revenue.StringFixed(2),
		})
	}
	return e.JSON(http.StatusOK, map[string]any{"events": out})
}

// RecentBookings lists the latest bookings across all events.
func (h *AdminHandler) RecentBookings(e *core.RequestEvent) error {
	if _, err := h.guard.Require(e); err != nil {
		return err
	}

	bookings, err := h.store.ListRecentBookings(e.Request.Context(), 50)
	if err != nil {
		return apiError(err)
	}

	out := make([]map[string]any, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, map[string]any{
			"reference":      b.Reference,
			"event_id":       b.EventID,
			"customer_name":  b.CustomerName,
			"customer_email": b.CustomerEmail,
			"quantity":       b.Quantity,
			"total":          b.Total.StringFixed(2),
			"status":         b.Status,
			"created_at":     b.CreatedAt,
		})
	}
	return e.JSON(http.StatusOK, map[string]any{"bookings": out})
}

// CancelBooking reverses a confirmed booking from the dashboard: refund
// at the gateway, void the tickets, release the seats.
func (h *AdminHandler) CancelBooking(e *core.RequestEvent) error {
	if _, err := h.guard.Require(e); err != nil {
		return err
	}

	reference := e.Request.PathValue("reference")
	if err := h.payments.Refund(e.Request.Context(), reference); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]string{"status": "refunded"})
}
