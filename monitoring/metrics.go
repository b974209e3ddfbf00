package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ticketbox/internal/store"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciliations_total",
			Help: "Booking state transitions driven by payment outcomes",
		},
		[]string{"transition", "source"},
	)

	redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_redemptions_total",
			Help: "Ticket redemption attempts by result",
		},
		[]string{"result"},
	)

	gatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Payment gateway calls by operation and status",
		},
		[]string{"operation", "status"},
	)

	ticketsAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_available",
			Help: "Remaining inventory per ticket category",
		},
		[]string{"event_id", "category"},
	)

	reservationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reservation_duration_seconds",
			Help:    "Duration of the reservation transaction",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

// TrackReservation counts a reservation attempt outcome.
func TrackReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

// TrackReconciliation counts a booking transition with its trigger source
// (webhook, poll, sweep, admin).
func TrackReconciliation(transition, source string) {
	reconciliations.WithLabelValues(transition, source).Inc()
}

// TrackRedemption counts a redemption attempt result.
func TrackRedemption(result string) {
	redemptions.WithLabelValues(result).Inc()
}

// TrackGatewayCall counts an outbound gateway call.
func TrackGatewayCall(operation, callStatus string) {
	gatewayCalls.WithLabelValues(operation, callStatus).Inc()
}

// TrackReservationDuration observes one reservation transaction.
func TrackReservationDuration(d time.Duration) {
	reservationDuration.Observe(d.Seconds())
}

type Monitor struct {
	store store.Store
}

func NewMonitor(s store.Store) *Monitor {
	return &Monitor{store: s}
}

// Run refreshes the inventory gauges until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectInventory(ctx)
		}
	}
}

func (m *Monitor) collectInventory(ctx context.Context) {
	events, err := m.store.ListEvents(ctx)
	if err != nil {
		return
	}
	for _, e := range events {
		categories, err := m.store.ListCategories(ctx, e.ID)
		if err != nil {
			continue
		}
		for _, c := range categories {
			ticketsAvailable.WithLabelValues(e.ID, c.Name).Set(float64(c.Available()))
		}
	}
}
