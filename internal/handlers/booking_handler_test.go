package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbox/internal/models"
	"ticketbox/internal/services"
	"ticketbox/internal/services/gateway"
	"ticketbox/internal/store"
	"ticketbox/security"
)

func newBookingHandler(t *testing.T) (*BookingHandler, *store.MemoryStore) {
	t.Helper()

	db := store.NewMemoryStore()
	db.PutEvent(models.Event{ID: "evt1", Name: "Summer Open Air", StartsAt: time.Now().Add(24 * time.Hour)})
	db.PutCategory(models.TicketCategory{
		ID:       "cat1",
		EventID:  "evt1",
		Name:     "General Admission",
		Price:    decimal.RequireFromString("25.00"),
		Quantity: 100,
	})

	registry := gateway.NewRegistry(gateway.NewFactory())
	require.NoError(t, registry.Register(context.Background(), gateway.ProviderMock, gateway.DefaultMockConfig()))
	require.NoError(t, registry.SetPrimary(gateway.ProviderMock))

	bookings := services.NewBookingService(db, 15*time.Minute)
	payments := services.NewPaymentService(db, registry, nil, nil, "EUR", 10*time.Minute)
	limiter := security.NewRateLimiter(nil)

	return NewBookingHandler(bookings, payments, limiter, 30), db
}

func newRequestEvent(method, target, body, userAgent string) (*core.RequestEvent, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	event := &core.RequestEvent{}
	event.Response = rec
	event.Request = req
	return event, rec
}

const reserveBody = `{"ticket_type_id":"cat1","quantity":1,"customer_name":"Ada Lovelace","customer_email":"ada@example.com"}`

func TestCreateBookingRejectsScriptedClients(t *testing.T) {
	handler, db := newBookingHandler(t)

	for _, ua := range []string{"", "inventory-scraper/1.0", "FancyBot/2.1"} {
		event, _ := newRequestEvent(http.MethodPost, "/api/bookings", reserveBody, ua)
		err := handler.CreateBooking(event)
		require.Error(t, err, "user agent %q", ua)

		var apiErr *router.ApiError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
	}

	// Nothing was reserved.
	cat, err := db.FindCategory(context.Background(), "cat1")
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Sold)
}

func TestCreateBookingAllowsBrowsers(t *testing.T) {
	handler, db := newBookingHandler(t)

	event, rec := newRequestEvent(http.MethodPost, "/api/bookings", reserveBody,
		"Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/128.0")
	require.NoError(t, handler.CreateBooking(event))
	assert.Equal(t, http.StatusCreated, rec.Code)

	cat, err := db.FindCategory(context.Background(), "cat1")
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Sold)
}
