package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticketbox/internal/models"
	"ticketbox/internal/services/gateway"
	"ticketbox/internal/status"
	"ticketbox/internal/store"
	"ticketbox/monitoring"
	"ticketbox/utils"
)

const notificationDedupTTL = 24 * time.Hour

// CheckoutInfo is returned to the client after a payment has been
// initiated; the customer is redirected to CheckoutURL.
type CheckoutInfo struct {
	PaymentID   string `json:"payment_id"`
	OrderID     string `json:"order_id"`
	CheckoutURL string `json:"checkout_url"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// BookingState is the status-poll view of a booking.
type BookingState struct {
	Reference     string               `json:"reference"`
	Status        models.BookingStatus `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status,omitempty"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
}

type PaymentService struct {
	store    store.Store
	gateways *gateway.Registry
	redis    *redis.Client
	notifier Notifier
	breaker  *utils.CircuitBreaker

	currency  string
	pollLimit time.Duration
}

func NewPaymentService(s store.Store, gw *gateway.Registry, redisClient *redis.Client, notifier Notifier, currency string, pollLimit time.Duration) *PaymentService {
	return &PaymentService{
		store:     s,
		gateways:  gw,
		redis:     redisClient,
		notifier:  notifier,
		breaker:   utils.NewCircuitBreaker("payment-gateway"),
		currency:  currency,
		pollLimit: pollLimit,
	}
}

// Initiate creates a gateway order for a reserved booking and moves it to
// pending. Calling it again for a booking whose payment never settled
// replaces the previous attempt with a fresh order.
func (s *PaymentService) Initiate(ctx context.Context, reference, method string) (*CheckoutInfo, error) {
	booking, err := s.store.FindBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if expired, err := s.expireIfDue(ctx, booking); err != nil {
		return nil, err
	} else if expired {
		return nil, status.ErrExpired
	}
	if booking.Status != models.BookingReserved && booking.Status != models.BookingPending {
		return nil, fmt.Errorf("%w: booking is %s", status.ErrInvalidState, booking.Status)
	}

	gw, err := s.gateways.Primary()
	if err != nil {
		return nil, err
	}

	var order *gateway.Order
	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		var gwErr error
		order, gwErr = gw.CreateOrder(ctx, &gateway.OrderRequest{
			Amount:        booking.Total,
			Currency:      s.currency,
			Reference:     booking.Reference,
			CustomerName:  booking.CustomerName,
			CustomerEmail: booking.CustomerEmail,
			CustomerPhone: booking.CustomerPhone,
			Description:   fmt.Sprintf("Tickets %s (%d)", booking.Reference, booking.Quantity),
			ExpiresAt:     booking.ExpiresAt,
		})
		return gwErr
	})
	if err != nil {
		monitoring.TrackGatewayCall("create_order", "error")
		return nil, fmt.Errorf("%w: %v", status.ErrUpstreamFailure, err)
	}
	monitoring.TrackGatewayCall("create_order", "ok")

	payment := &models.Payment{
		BookingID:      booking.ID,
		Amount:         booking.Total,
		Currency:       s.currency,
		Method:         method,
		GatewayOrderID: order.OrderID,
		Status:         models.PaymentPending,
		CreatedAt:      time.Now(),
	}
	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.SetBookingPayment(ctx, booking.ID, payment.ID); err != nil {
			return err
		}
		err := tx.TransitionBooking(ctx, booking.ID,
			[]models.BookingStatus{models.BookingReserved}, models.BookingPending)
		if err != nil && !errors.Is(err, status.ErrInvalidState) {
			return err
		}
		// Already pending from a previous attempt is fine.
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cachePaymentSession(ctx, booking, payment, order.CheckoutURL)

	return &CheckoutInfo{
		PaymentID:   payment.ID,
		OrderID:     order.OrderID,
		CheckoutURL: order.CheckoutURL,
		Amount:      payment.Amount.StringFixed(2),
		Currency:    payment.Currency,
	}, nil
}

// HandleNotification applies a gateway webhook. Delivery is at-least-once,
// so duplicates are dropped via a redis marker and, below that, by the
// terminal-state guard in the booking transition.
func (s *PaymentService) HandleNotification(ctx context.Context, n *models.PaymentNotification) error {
	if n.OrderID == "" {
		return fmt.Errorf("%w: missing order_id", status.ErrInvalidState)
	}

	var dedupKey string
	if s.redis != nil {
		dedupKey = fmt.Sprintf("payment:notify:%s:%s", n.OrderID, n.Status)
		fresh, err := s.redis.SetNX(ctx, dedupKey, time.Now().Unix(), notificationDedupTTL).Result()
		if err != nil {
			slog.Warn("notification dedup check failed", "order_id", n.OrderID, "error", err)
			dedupKey = ""
		} else if !fresh {
			slog.Info("duplicate payment notification ignored", "order_id", n.OrderID, "status", n.Status)
			return nil
		}
	}

	err := s.apply(ctx, n)
	if err != nil && dedupKey != "" {
		// The marker must not outlive a failed apply, or the gateway's
		// redelivery of this event would be dropped as a duplicate and
		// the booking would sit pending until the sweeper expires it.
		if delErr := s.redis.Del(ctx, dedupKey).Err(); delErr != nil {
			slog.Warn("notification dedup rollback failed", "order_id", n.OrderID, "error", delErr)
		}
	}
	return err
}

func (s *PaymentService) apply(ctx context.Context, n *models.PaymentNotification) error {
	booking, err := s.store.FindBookingByGatewayOrder(ctx, n.OrderID)
	if err != nil {
		return err
	}

	raw, _ := json.Marshal(n)
	if n.Status == "success" {
		return s.confirm(ctx, booking, string(raw), "webhook")
	}
	return s.release(ctx, booking, models.BookingCancelled, models.PaymentFailed, string(raw), "webhook")
}

// State reports the booking's current status for client polling. While a
// payment is pending it falls back to querying the gateway directly, which
// covers lost webhooks. Reservations past their deadline are expired
// lazily here.
func (s *PaymentService) State(ctx context.Context, reference string) (*BookingState, error) {
	booking, err := s.store.FindBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if _, err := s.expireIfDue(ctx, booking); err != nil {
		return nil, err
	}

	state := &BookingState{Reference: booking.Reference, Status: booking.Status}
	if booking.Status == models.BookingReserved || booking.Status == models.BookingPending {
		expires := booking.ExpiresAt
		state.ExpiresAt = &expires
	}

	if booking.Status == models.BookingPending && booking.PaymentID != "" {
		payment, err := s.store.FindPaymentByID(ctx, booking.PaymentID)
		if err == nil {
			state.PaymentStatus = payment.Status
			if payment.Status == models.PaymentPending {
				if upd := s.pollGateway(ctx, booking, payment); upd != nil {
					return upd, nil
				}
			}
		}
	}
	return state, nil
}

// pollGateway verifies a pending payment with the gateway and reconciles
// the booking when the gateway already reached a final state. Returns the
// updated state, or nil when nothing changed.
func (s *PaymentService) pollGateway(ctx context.Context, booking *models.Booking, payment *models.Payment) *BookingState {
	if time.Since(payment.CreatedAt) > s.pollLimit {
		return nil
	}

	gw, err := s.gateways.Primary()
	if err != nil {
		return nil
	}

	var v *gateway.Verification
	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		var gwErr error
		v, gwErr = gw.Verify(ctx, payment.GatewayOrderID)
		return gwErr
	})
	if err != nil {
		monitoring.TrackGatewayCall("verify", "error")
		slog.Warn("gateway verify failed", "order_id", payment.GatewayOrderID, "error", err)
		return nil
	}
	monitoring.TrackGatewayCall("verify", "ok")

	switch v.Status {
	case gateway.StatusCompleted:
		if err := s.confirm(ctx, booking, v.Raw, "poll"); err != nil {
			slog.Error("poll reconciliation failed", "reference", booking.Reference, "error", err)
			return nil
		}
		return &BookingState{Reference: booking.Reference, Status: models.BookingConfirmed, PaymentStatus: models.PaymentCompleted}
	case gateway.StatusFailed:
		if err := s.release(ctx, booking, models.BookingCancelled, models.PaymentFailed, v.Raw, "poll"); err != nil {
			slog.Error("poll reconciliation failed", "reference", booking.Reference, "error", err)
			return nil
		}
		return &BookingState{Reference: booking.Reference, Status: models.BookingCancelled, PaymentStatus: models.PaymentFailed}
	}
	return nil
}

// Refund reverses a confirmed booking: refunds at the gateway, releases
// the seats and voids the tickets.
func (s *PaymentService) Refund(ctx context.Context, reference string) error {
	booking, err := s.store.FindBookingByReference(ctx, reference)
	if err != nil {
		return err
	}
	if booking.Status != models.BookingConfirmed {
		return fmt.Errorf("%w: only confirmed bookings can be refunded", status.ErrInvalidState)
	}
	if booking.PaymentID == "" {
		return fmt.Errorf("%w: booking has no payment", status.ErrInvalidState)
	}
	payment, err := s.store.FindPaymentByID(ctx, booking.PaymentID)
	if err != nil {
		return err
	}

	gw, err := s.gateways.Primary()
	if err != nil {
		return err
	}
	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return gw.Refund(ctx, payment.GatewayOrderID)
	})
	if err != nil {
		monitoring.TrackGatewayCall("refund", "error")
		return fmt.Errorf("%w: %v", status.ErrUpstreamFailure, err)
	}
	monitoring.TrackGatewayCall("refund", "ok")

	return s.release(ctx, booking, models.BookingRefunded, models.PaymentRefunded, "", "admin")
}

// ExpireStaleReservations releases every reservation whose payment window
// has closed. Run periodically by the background sweeper.
func (s *PaymentService) ExpireStaleReservations(ctx context.Context) (int, error) {
	stale, err := s.store.ListExpiredReservations(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, booking := range stale {
		if err := s.release(ctx, booking, models.BookingExpired, models.PaymentFailed, "", "sweep"); err != nil {
			slog.Error("expire sweep failed", "reference", booking.Reference, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// expireIfDue lazily expires a reservation whose deadline has passed.
// Reports whether the booking ended up expired.
func (s *PaymentService) expireIfDue(ctx context.Context, booking *models.Booking) (bool, error) {
	if booking.Status == models.BookingExpired {
		return true, nil
	}
	if booking.Status != models.BookingReserved && booking.Status != models.BookingPending {
		return false, nil
	}
	if time.Now().Before(booking.ExpiresAt) {
		return false, nil
	}
	if err := s.release(ctx, booking, models.BookingExpired, models.PaymentFailed, "", "lazy"); err != nil {
		return false, err
	}
	return true, nil
}

// confirm moves a booking to confirmed and settles its payment record.
// Safe under replays: a booking already past pending is left untouched.
func (s *PaymentService) confirm(ctx context.Context, booking *models.Booking, gatewayResponse, source string) error {
	applied := true
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		err := tx.TransitionBooking(ctx, booking.ID,
			[]models.BookingStatus{models.BookingReserved, models.BookingPending}, models.BookingConfirmed)
		if errors.Is(err, status.ErrInvalidState) {
			applied = false
			return nil
		}
		if err != nil {
			return err
		}
		return settlePayment(ctx, tx, booking.PaymentID, models.PaymentCompleted, gatewayResponse)
	})
	if err != nil {
		return err
	}
	if !applied {
		slog.Info("confirmation replay ignored", "reference", booking.Reference, "source", source)
		return nil
	}

	monitoring.TrackReconciliation("confirmed", source)
	booking.Status = models.BookingConfirmed
	go s.notifyConfirmed(booking)
	return nil
}

// release ends a booking without admission: cancelled, expired or
// refunded. Seats go back to the pool and the tickets are voided.
func (s *PaymentService) release(ctx context.Context, booking *models.Booking, to models.BookingStatus, paymentStatus models.PaymentStatus, gatewayResponse, source string) error {
	from := []models.BookingStatus{models.BookingReserved, models.BookingPending}
	if to == models.BookingRefunded {
		from = []models.BookingStatus{models.BookingConfirmed}
	}

	applied := true
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		err := tx.TransitionBooking(ctx, booking.ID, from, to)
		if errors.Is(err, status.ErrInvalidState) {
			applied = false
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.ReleaseSeats(ctx, booking.CategoryID, booking.Quantity); err != nil {
			return err
		}
		if err := tx.CancelBookingTickets(ctx, booking.ID); err != nil {
			return err
		}
		return settlePayment(ctx, tx, booking.PaymentID, paymentStatus, gatewayResponse)
	})
	if err != nil {
		return err
	}
	if !applied {
		slog.Info("release replay ignored", "reference", booking.Reference, "target", string(to), "source", source)
		return nil
	}

	monitoring.TrackReconciliation(string(to), source)
	booking.Status = to
	if s.notifier != nil {
		s.notifier.BookingCancelled(ctx, booking, string(to))
	}
	return nil
}

// settlePayment stamps a payment record with its final status. A booking
// without a payment (expired before checkout) is a no-op.
func settlePayment(ctx context.Context, tx store.Store, paymentID string, to models.PaymentStatus, gatewayResponse string) error {
	if paymentID == "" {
		return nil
	}
	payment, err := tx.FindPaymentByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return nil
		}
		return err
	}
	now := time.Now()
	payment.Status = to
	payment.ProcessedAt = &now
	if gatewayResponse != "" {
		payment.GatewayResponse = gatewayResponse
	}
	return tx.UpdatePayment(ctx, payment)
}

func (s *PaymentService) notifyConfirmed(booking *models.Booking) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	event, err := s.store.FindEvent(ctx, booking.EventID)
	if err != nil {
		event = nil
	}
	s.notifier.BookingConfirmed(ctx, booking, event)
}

// cachePaymentSession keeps the checkout details hot in redis for the
// lifetime of the reservation window.
func (s *PaymentService) cachePaymentSession(ctx context.Context, booking *models.Booking, payment *models.Payment, checkoutURL string) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf("payment:session:%s", payment.ID)
	ttl := time.Until(booking.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.redis.HSet(ctx, key,
		"booking_reference", booking.Reference,
		"order_id", payment.GatewayOrderID,
		"amount", payment.Amount.StringFixed(2),
		"checkout_url", checkoutURL,
	).Err(); err != nil {
		slog.Warn("payment session cache failed", "payment_id", payment.ID, "error", err)
		return
	}
	if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
		slog.Warn("payment session expire failed", "payment_id", payment.ID, "error", err)
	}
}
