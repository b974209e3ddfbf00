package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"ticketbox/internal/models"
	"ticketbox/internal/pricing"
	"ticketbox/internal/store"
)

type EventHandler struct {
	store store.Store
}

func NewEventHandler(s store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type categoryView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	CurrentPrice string `json:"current_price"`
	EarlyBird    bool   `json:"early_bird"`
	Available    int    `json:"available"`
	MaxPerOrder  int    `json:"max_per_order"`
	SoldOut      bool   `json:"sold_out"`
}

func categoryViews(categories []*models.TicketCategory, now time.Time) []categoryView {
	views := make([]categoryView, 0, len(categories))
	for _, cat := range categories {
		current := pricing.UnitPrice(cat, now)
		views = append(views, categoryView{
			ID:           cat.ID,
			Name:         cat.Name,
			Price:        cat.Price.StringFixed(2),
			CurrentPrice: current.StringFixed(2),
			EarlyBird:    !current.Equal(cat.Price),
			Available:    cat.Available(),
			MaxPerOrder:  cat.MaxPerOrder,
			SoldOut:      cat.Available() <= 0,
		})
	}
	return views
}

// ListEvents returns all published events with per-category availability.
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	ctx := e.Request.Context()
	events, err := h.store.ListEvents(ctx)
	if err != nil {
		return apiError(err)
	}

	now := time.Now()
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		categories, err := h.store.ListCategories(ctx, ev.ID)
		if err != nil {
			return apiError(err)
		}
		out = append(out, map[string]any{
			"id":           ev.ID,
			"name":         ev.Name,
			"venue":        ev.Venue,
			"starts_at":    ev.StartsAt,
			"status":       ev.Status,
			"ticket_types": categoryViews(categories, now),
		})
	}
	return e.JSON(http.StatusOK, map[string]any{"events": out})
}

// GetEvent returns one event with its full description and categories.
func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	ctx := e.Request.Context()
	id := e.Request.PathValue("id")

	event, err := h.store.FindEvent(ctx, id)
	if err != nil {
		return apiError(err)
	}
	categories, err := h.store.ListCategories(ctx, event.ID)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"id":           event.ID,
		"name":         event.Name,
		"description":  event.Description,
		"venue":        event.Venue,
		"starts_at":    event.StartsAt,
		"ends_at":      event.EndsAt,
		"status":       event.Status,
		"ticket_types": categoryViews(categories, time.Now()),
	})
}
