package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pubnub "github.com/pubnub/go"

	"ticketbox/internal/models"
	"ticketbox/utils"
)

// Notifier delivers booking lifecycle events to customers and external
// systems. Delivery is best effort: a failed notification never fails the
// booking transition that triggered it.
type Notifier interface {
	BookingConfirmed(ctx context.Context, booking *models.Booking, event *models.Event)
	BookingCancelled(ctx context.Context, booking *models.Booking, reason string)
}

type NotifyConfig struct {
	WorkflowWebhookURL string
	EmailAPIURL        string
	EmailAPIKey        string
	EmailSender        string
}

type NotifyService struct {
	pubnub  *pubnub.PubNub
	client  *http.Client
	breaker *utils.CircuitBreaker
	cfg     NotifyConfig
}

func NewNotifyService(pn *pubnub.PubNub, cfg NotifyConfig) *NotifyService {
	return &NotifyService{
		pubnub:  pn,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: utils.NewCircuitBreaker("notify"),
		cfg:     cfg,
	}
}

// BookingConfirmed pushes a realtime update on the booking's channel,
// triggers the fulfillment workflow and sends the confirmation email.
func (s *NotifyService) BookingConfirmed(ctx context.Context, booking *models.Booking, event *models.Event) {
	s.publish(booking.Reference, map[string]any{
		"type":      "payment_success",
		"reference": booking.Reference,
		"status":    string(models.BookingConfirmed),
		"total":     booking.Total.StringFixed(2),
	})

	payload := map[string]any{
		"reference":      booking.Reference,
		"status":         string(models.BookingConfirmed),
		"customer_name":  booking.CustomerName,
		"customer_email": booking.CustomerEmail,
		"quantity":       booking.Quantity,
		"total":          booking.Total.StringFixed(2),
	}
	if event != nil {
		payload["event_name"] = event.Name
		payload["event_starts_at"] = event.StartsAt.Format(time.RFC3339)
		payload["venue"] = event.Venue
	}
	s.triggerWorkflow(ctx, payload)
	s.sendConfirmationEmail(ctx, booking, event)
}

func (s *NotifyService) BookingCancelled(ctx context.Context, booking *models.Booking, reason string) {
	s.publish(booking.Reference, map[string]any{
		"type":      "booking_cancelled",
		"reference": booking.Reference,
		"status":    string(booking.Status),
		"reason":    reason,
	})
}

func (s *NotifyService) publish(reference string, message map[string]any) {
	if s.pubnub == nil {
		return
	}
	channel := fmt.Sprintf("booking-%s", reference)
	_, _, err := s.pubnub.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("pubnub publish failed", "channel", channel, "error", err)
	}
}

// triggerWorkflow posts the booking payload to the n8n webhook. One retry
// after a short pause covers transient workflow restarts.
func (s *NotifyService) triggerWorkflow(ctx context.Context, payload map[string]any) {
	if s.cfg.WorkflowWebhookURL == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("workflow payload marshal failed", "error", err)
		return
	}
	if err := s.postJSON(ctx, s.cfg.WorkflowWebhookURL, "", body); err != nil {
		slog.Warn("workflow webhook failed, retrying", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
		if err := s.postJSON(ctx, s.cfg.WorkflowWebhookURL, "", body); err != nil {
			slog.Error("workflow webhook failed", "error", err)
		}
	}
}

func (s *NotifyService) sendConfirmationEmail(ctx context.Context, booking *models.Booking, event *models.Event) {
	if s.cfg.EmailAPIURL == "" || s.cfg.EmailAPIKey == "" {
		return
	}
	eventName := "your event"
	if event != nil {
		eventName = event.Name
	}
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your booking <strong>%s</strong> for %s is confirmed.</p><p>%d ticket(s), total %s EUR. Your tickets are attached to your booking page.</p>",
		booking.CustomerName, booking.Reference, eventName, booking.Quantity, booking.Total.StringFixed(2),
	)
	body, err := json.Marshal(map[string]any{
		"from":    s.cfg.EmailSender,
		"to":      []string{booking.CustomerEmail},
		"subject": fmt.Sprintf("Booking %s confirmed", booking.Reference),
		"html":    html,
	})
	if err != nil {
		slog.Error("email payload marshal failed", "error", err)
		return
	}
	if err := s.postJSON(ctx, s.cfg.EmailAPIURL, s.cfg.EmailAPIKey, body); err != nil {
		slog.Error("confirmation email failed", "reference", booking.Reference, "error", err)
	}
}

func (s *NotifyService) postJSON(ctx context.Context, url, bearer string, body []byte) error {
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	})
}
