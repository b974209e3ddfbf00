package store

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketbox/internal/models"
	"ticketbox/internal/status"
)

func (d *memData) findEvent(id string) (*models.Event, error) {
	e, ok := d.events[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return &e, nil
}

func (d *memData) listEvents() []*models.Event {
	out := make([]*models.Event, 0, len(d.events))
	for id := range d.events {
		e := d.events[id]
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out
}

func (d *memData) findCategory(id string) (*models.TicketCategory, error) {
	c, ok := d.categories[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return &c, nil
}

func (d *memData) listCategories(eventID string) []*models.TicketCategory {
	var out []*models.TicketCategory
	for id := range d.categories {
		if d.categories[id].EventID == eventID {
			c := d.categories[id]
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *memData) reserveSeats(categoryID string, qty int) error {
	c, ok := d.categories[categoryID]
	if !ok {
		return status.ErrNotFound
	}
	if c.Sold+qty > c.Quantity {
		return status.ErrInsufficientInventory
	}
	c.Sold += qty
	d.categories[categoryID] = c
	return nil
}

func (d *memData) releaseSeats(categoryID string, qty int) error {
	c, ok := d.categories[categoryID]
	if !ok {
		return status.ErrNotFound
	}
	c.Sold -= qty
	if c.Sold < 0 {
		c.Sold = 0
	}
	d.categories[categoryID] = c
	return nil
}

func (d *memData) createBooking(b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	d.bookings[b.ID] = *b
	return nil
}

func (d *memData) createTicket(t *models.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	d.tickets[t.ID] = *t
	return nil
}

func (d *memData) findBookingByReference(ref string) (*models.Booking, error) {
	for id := range d.bookings {
		if d.bookings[id].Reference == ref {
			b := d.bookings[id]
			return &b, nil
		}
	}
	return nil, status.ErrNotFound
}

func (d *memData) findBookingByID(id string) (*models.Booking, error) {
	b, ok := d.bookings[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return &b, nil
}

func (d *memData) findBookingByGatewayOrder(orderID string) (*models.Booking, error) {
	p, err := d.findPaymentByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	return d.findBookingByID(p.BookingID)
}

func (d *memData) listTickets(bookingID string) []*models.Ticket {
	var out []*models.Ticket
	for id := range d.tickets {
		if d.tickets[id].BookingID == bookingID {
			t := d.tickets[id]
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (d *memData) listRecentBookings(limit int) []*models.Booking {
	out := make([]*models.Booking, 0, len(d.bookings))
	for id := range d.bookings {
		b := d.bookings[id]
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (d *memData) listExpiredReservations(now time.Time) []*models.Booking {
	var out []*models.Booking
	for id := range d.bookings {
		b := d.bookings[id]
		if (b.Status == models.BookingReserved || b.Status == models.BookingPending) && b.ExpiresAt.Before(now) {
			out = append(out, &b)
		}
	}
	return out
}

func (d *memData) transitionBooking(bookingID string, from []models.BookingStatus, to models.BookingStatus) error {
	b, ok := d.bookings[bookingID]
	if !ok {
		return status.ErrNotFound
	}
	for _, s := range from {
		if b.Status == s {
			b.Status = to
			d.bookings[bookingID] = b
			return nil
		}
	}
	return status.ErrInvalidState
}

func (d *memData) setBookingPayment(bookingID, paymentID string) error {
	b, ok := d.bookings[bookingID]
	if !ok {
		return status.ErrNotFound
	}
	b.PaymentID = paymentID
	d.bookings[bookingID] = b
	return nil
}

func (d *memData) cancelBookingTickets(bookingID string) error {
	for id := range d.tickets {
		t := d.tickets[id]
		if t.BookingID == bookingID && t.Status == models.TicketValid {
			t.Status = models.TicketCancelled
			d.tickets[id] = t
		}
	}
	return nil
}

func (d *memData) findTicketByCode(code string) (*models.Ticket, error) {
	for id := range d.tickets {
		if d.tickets[id].Code == code {
			t := d.tickets[id]
			return &t, nil
		}
	}
	return nil, status.ErrNotFound
}

func (d *memData) findTicketByID(id string) (*models.Ticket, error) {
	t, ok := d.tickets[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return &t, nil
}

func (d *memData) redeemTicket(code, redeemer string, at time.Time) error {
	for id := range d.tickets {
		t := d.tickets[id]
		if t.Code != code {
			continue
		}
		if t.Status != models.TicketValid {
			return status.ErrAlreadyUsed
		}
		t.Status = models.TicketUsed
		t.RedeemedAt = &at
		t.RedeemedBy = redeemer
		d.tickets[id] = t
		return nil
	}
	return status.ErrNotFound
}

func (d *memData) createPayment(p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	d.payments[p.ID] = *p
	return nil
}

func (d *memData) updatePayment(p *models.Payment) error {
	if _, ok := d.payments[p.ID]; !ok {
		return status.ErrNotFound
	}
	d.payments[p.ID] = *p
	return nil
}

func (d *memData) findPaymentByID(id string) (*models.Payment, error) {
	p, ok := d.payments[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	return &p, nil
}

func (d *memData) findPaymentByOrderID(orderID string) (*models.Payment, error) {
	for id := range d.payments {
		if d.payments[id].GatewayOrderID == orderID {
			p := d.payments[id]
			return &p, nil
		}
	}
	return nil, status.ErrNotFound
}

func (d *memData) findAdminByEmail(email string) (*models.Admin, error) {
	for id := range d.admins {
		if d.admins[id].Email == email {
			a := d.admins[id]
			return &a, nil
		}
	}
	return nil, status.ErrNotFound
}

func (d *memData) salesByEvent() []*EventSales {
	rows := map[string]*EventSales{}
	for id := range d.events {
		e := d.events[id]
		rows[e.ID] = &EventSales{EventID: e.ID, EventName: e.Name, Revenue: decimal.Zero}
	}
	for id := range d.bookings {
		b := d.bookings[id]
		if b.Status != models.BookingConfirmed {
			continue
		}
		row, ok := rows[b.EventID]
		if !ok {
			continue
		}
		row.Bookings++
		row.TicketsSold += b.Quantity
		row.Revenue = row.Revenue.Add(b.Total)
	}
	out := make([]*EventSales, 0, len(rows))
	for _, row := range rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventName < out[j].EventName })
	return out
}
