package store

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketbox/internal/models"
)

// MemoryStore is an in-memory Store used by tests and by the development
// seed tooling. A single mutex stands in for the database's transaction
// manager: RunInTransaction holds it for the whole callback and restores a
// snapshot when the callback fails.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	events     map[string]models.Event
	categories map[string]models.TicketCategory
	bookings   map[string]models.Booking
	tickets    map[string]models.Ticket
	payments   map[string]models.Payment
	admins     map[string]models.Admin
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		events:     map[string]models.Event{},
		categories: map[string]models.TicketCategory{},
		bookings:   map[string]models.Booking{},
		tickets:    map[string]models.Ticket{},
		payments:   map[string]models.Payment{},
		admins:     map[string]models.Admin{},
	}}
}

// Seed helpers used by tests and the development fixture loader.

func (m *MemoryStore) PutEvent(e models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.data.events[e.ID] = e
}

func (m *MemoryStore) PutCategory(c models.TicketCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.data.categories[c.ID] = c
}

func (m *MemoryStore) PutAdmin(a models.Admin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	m.data.admins[a.ID] = a
}

func (m *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&memTx{data: m.data}); err != nil {
		*m.data = *snapshot
		return err
	}
	return nil
}

func (d *memData) clone() *memData {
	return &memData{
		events:     maps.Clone(d.events),
		categories: maps.Clone(d.categories),
		bookings:   maps.Clone(d.bookings),
		tickets:    maps.Clone(d.tickets),
		payments:   maps.Clone(d.payments),
		admins:     maps.Clone(d.admins),
	}
}

// memTx is the Store view handed to a transaction callback. It shares the
// already-locked data, so nested calls do not re-acquire the mutex.
type memTx struct {
	data *memData
}

func (t *memTx) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	// already inside the transaction
	return fn(t)
}

// The MemoryStore methods lock and delegate; memTx delegates directly.

func (m *MemoryStore) locked(fn func(d *memData) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.data)
}

func (m *MemoryStore) FindEvent(ctx context.Context, id string) (*models.Event, error) {
	var out *models.Event
	err := m.locked(func(d *memData) error { var e error; out, e = d.findEvent(id); return e })
	return out, err
}
func (t *memTx) FindEvent(ctx context.Context, id string) (*models.Event, error) {
	return t.data.findEvent(id)
}

func (m *MemoryStore) ListEvents(ctx context.Context) ([]*models.Event, error) {
	var out []*models.Event
	err := m.locked(func(d *memData) error { out = d.listEvents(); return nil })
	return out, err
}
func (t *memTx) ListEvents(ctx context.Context) ([]*models.Event, error) {
	return t.data.listEvents(), nil
}

func (m *MemoryStore) FindCategory(ctx context.Context, id string) (*models.TicketCategory, error) {
	var out *models.TicketCategory
	err := m.locked(func(d *memData) error { var e error; out, e = d.findCategory(id); return e })
	return out, err
}
func (t *memTx) FindCategory(ctx context.Context, id string) (*models.TicketCategory, error) {
	return t.data.findCategory(id)
}

func (m *MemoryStore) ListCategories(ctx context.Context, eventID string) ([]*models.TicketCategory, error) {
	var out []*models.TicketCategory
	err := m.locked(func(d *memData) error { out = d.listCategories(eventID); return nil })
	return out, err
}
func (t *memTx) ListCategories(ctx context.Context, eventID string) ([]*models.TicketCategory, error) {
	return t.data.listCategories(eventID), nil
}

func (m *MemoryStore) ReserveSeats(ctx context.Context, categoryID string, qty int) error {
	return m.locked(func(d *memData) error { return d.reserveSeats(categoryID, qty) })
}
func (t *memTx) ReserveSeats(ctx context.Context, categoryID string, qty int) error {
	return t.data.reserveSeats(categoryID, qty)
}

func (m *MemoryStore) ReleaseSeats(ctx context.Context, categoryID string, qty int) error {
	return m.locked(func(d *memData) error { return d.releaseSeats(categoryID, qty) })
}
func (t *memTx) ReleaseSeats(ctx context.Context, categoryID string, qty int) error {
	return t.data.releaseSeats(categoryID, qty)
}

func (m *MemoryStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.locked(func(d *memData) error { return d.createBooking(b) })
}
func (t *memTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	return t.data.createBooking(b)
}

func (m *MemoryStore) CreateTicket(ctx context.Context, tk *models.Ticket) error {
	return m.locked(func(d *memData) error { return d.createTicket(tk) })
}
func (t *memTx) CreateTicket(ctx context.Context, tk *models.Ticket) error {
	return t.data.createTicket(tk)
}

func (m *MemoryStore) FindBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	var out *models.Booking
	err := m.locked(func(d *memData) error { var e error; out, e = d.findBookingByReference(ref); return e })
	return out, err
}
func (t *memTx) FindBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	return t.data.findBookingByReference(ref)
}

func (m *MemoryStore) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var out *models.Booking
	err := m.locked(func(d *memData) error { var e error; out, e = d.findBookingByID(id); return e })
	return out, err
}
func (t *memTx) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	return t.data.findBookingByID(id)
}

func (m *MemoryStore) FindBookingByGatewayOrder(ctx context.Context, orderID string) (*models.Booking, error) {
	var out *models.Booking
	err := m.locked(func(d *memData) error { var e error; out, e = d.findBookingByGatewayOrder(orderID); return e })
	return out, err
}
func (t *memTx) FindBookingByGatewayOrder(ctx context.Context, orderID string) (*models.Booking, error) {
	return t.data.findBookingByGatewayOrder(orderID)
}

func (m *MemoryStore) ListTickets(ctx context.Context, bookingID string) ([]*models.Ticket, error) {
	var out []*models.Ticket
	err := m.locked(func(d *memData) error { out = d.listTickets(bookingID); return nil })
	return out, err
}
func (t *memTx) ListTickets(ctx context.Context, bookingID string) ([]*models.Ticket, error) {
	return t.data.listTickets(bookingID), nil
}

func (m *MemoryStore) ListRecentBookings(ctx context.Context, limit int) ([]*models.Booking, error) {
	var out []*models.Booking
	err := m.locked(func(d *memData) error { out = d.listRecentBookings(limit); return nil })
	return out, err
}
func (t *memTx) ListRecentBookings(ctx context.Context, limit int) ([]*models.Booking, error) {
	return t.data.listRecentBookings(limit), nil
}

func (m *MemoryStore) ListExpiredReservations(ctx context.Context, now time.Time) ([]*models.Booking, error) {
	var out []*models.Booking
	err := m.locked(func(d *memData) error { out = d.listExpiredReservations(now); return nil })
	return out, err
}
func (t *memTx) ListExpiredReservations(ctx context.Context, now time.Time) ([]*models.Booking, error) {
	return t.data.listExpiredReservations(now), nil
}

func (m *MemoryStore) TransitionBooking(ctx context.Context, bookingID string, from []models.BookingStatus, to models.BookingStatus) error {
	return m.locked(func(d *memData) error { return d.transitionBooking(bookingID, from, to) })
}
func (t *memTx) TransitionBooking(ctx context.Context, bookingID string, from []models.BookingStatus, to models.BookingStatus) error {
	return t.data.transitionBooking(bookingID, from, to)
}

func (m *MemoryStore) SetBookingPayment(ctx context.Context, bookingID, paymentID string) error {
	return m.locked(func(d *memData) error { return d.setBookingPayment(bookingID, paymentID) })
}
func (t *memTx) SetBookingPayment(ctx context.Context, bookingID, paymentID string) error {
	return t.data.setBookingPayment(bookingID, paymentID)
}

func (m *MemoryStore) CancelBookingTickets(ctx context.Context, bookingID string) error {
	return m.locked(func(d *memData) error { return d.cancelBookingTickets(bookingID) })
}
func (t *memTx) CancelBookingTickets(ctx context.Context, bookingID string) error {
	return t.data.cancelBookingTickets(bookingID)
}

func (m *MemoryStore) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	var out *models.Ticket
	err := m.locked(func(d *memData) error { var e error; out, e = d.findTicketByCode(code); return e })
	return out, err
}
func (t *memTx) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	return t.data.findTicketByCode(code)
}

func (m *MemoryStore) FindTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var out *models.Ticket
	err := m.locked(func(d *memData) error { var e error; out, e = d.findTicketByID(id); return e })
	return out, err
}
func (t *memTx) FindTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	return t.data.findTicketByID(id)
}

func (m *MemoryStore) RedeemTicket(ctx context.Context, code, redeemer string, at time.Time) error {
	return m.locked(func(d *memData) error { return d.redeemTicket(code, redeemer, at) })
}
func (t *memTx) RedeemTicket(ctx context.Context, code, redeemer string, at time.Time) error {
	return t.data.redeemTicket(code, redeemer, at)
}

func (m *MemoryStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return m.locked(func(d *memData) error { return d.createPayment(p) })
}
func (t *memTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	return t.data.createPayment(p)
}

func (m *MemoryStore) UpdatePayment(ctx context.Context, p *models.Payment) error {
	return m.locked(func(d *memData) error { return d.updatePayment(p) })
}
func (t *memTx) UpdatePayment(ctx context.Context, p *models.Payment) error {
	return t.data.updatePayment(p)
}

func (m *MemoryStore) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	var out *models.Payment
	err := m.locked(func(d *memData) error { var e error; out, e = d.findPaymentByID(id); return e })
	return out, err
}
func (t *memTx) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	return t.data.findPaymentByID(id)
}

func (m *MemoryStore) FindPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var out *models.Payment
	err := m.locked(func(d *memData) error { var e error; out, e = d.findPaymentByOrderID(orderID); return e })
	return out, err
}
func (t *memTx) FindPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	return t.data.findPaymentByOrderID(orderID)
}

func (m *MemoryStore) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var out *models.Admin
	err := m.locked(func(d *memData) error { var e error; out, e = d.findAdminByEmail(email); return e })
	return out, err
}
func (t *memTx) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return t.data.findAdminByEmail(email)
}

func (m *MemoryStore) SalesByEvent(ctx context.Context) ([]*EventSales, error) {
	var out []*EventSales
	err := m.locked(func(d *memData) error { out = d.salesByEvent(); return nil })
	return out, err
}
func (t *memTx) SalesByEvent(ctx context.Context) ([]*EventSales, error) {
	return t.data.salesByEvent(), nil
}
