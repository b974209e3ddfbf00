package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"ticketbox/internal/models"
	"ticketbox/internal/status"
)

// PBStore persists the booking workflow in the PocketBase-managed SQLite
// database. Invariant-critical mutations (inventory guard, redemption
// check-and-set, lifecycle transitions) go through raw conditional UPDATEs
// with a rows-affected check; everything else uses the record layer.
type PBStore struct {
	app core.App
}

func NewPBStore(app core.App) *PBStore {
	return &PBStore{app: app}
}

func (s *PBStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		return fn(&PBStore{app: txApp})
	})
}

// record mapping

func parseDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func eventFromRecord(r *core.Record) *models.Event {
	return &models.Event{
		ID:          r.Id,
		Name:        r.GetString("name"),
		Description: r.GetString("description"),
		Venue:       r.GetString("venue"),
		StartsAt:    r.GetDateTime("starts_at").Time(),
		EndsAt:      r.GetDateTime("ends_at").Time(),
		Status:      r.GetString("status"),
	}
}

func categoryFromRecord(r *core.Record) *models.TicketCategory {
	c := &models.TicketCategory{
		ID:          r.Id,
		EventID:     r.GetString("event"),
		Name:        r.GetString("name"),
		Price:       parseDec(r.GetString("price")),
		Quantity:    r.GetInt("quantity"),
		Sold:        r.GetInt("sold"),
		MaxPerOrder: r.GetInt("max_per_order"),
	}
	if v := r.GetString("early_bird_price"); v != "" {
		p := parseDec(v)
		c.EarlyBirdPrice = &p
	}
	if dt := r.GetDateTime("early_bird_deadline"); !dt.IsZero() {
		t := dt.Time()
		c.EarlyBirdDeadline = &t
	}
	return c
}

func bookingFromRecord(r *core.Record) *models.Booking {
	return &models.Booking{
		ID:            r.Id,
		Reference:     r.GetString("reference"),
		EventID:       r.GetString("event"),
		CategoryID:    r.GetString("category"),
		Quantity:      r.GetInt("quantity"),
		CustomerName:  r.GetString("customer_name"),
		CustomerEmail: r.GetString("customer_email"),
		CustomerPhone: r.GetString("customer_phone"),
		UnitPrice:     parseDec(r.GetString("unit_price")),
		Subtotal:      parseDec(r.GetString("subtotal")),
		ServiceFee:    parseDec(r.GetString("service_fee")),
		Tax:           parseDec(r.GetString("tax")),
		Total:         parseDec(r.GetString("total")),
		Status:        models.BookingStatus(r.GetString("status")),
		ExpiresAt:     r.GetDateTime("expires_at").Time(),
		PaymentID:     r.GetString("payment"),
		CreatedAt:     r.GetDateTime("created").Time(),
	}
}

func ticketFromRecord(r *core.Record) *models.Ticket {
	t := &models.Ticket{
		ID:         r.Id,
		BookingID:  r.GetString("booking"),
		CategoryID: r.GetString("category"),
		Seq:        r.GetInt("seq"),
		Code:       r.GetString("code"),
		Status:     models.TicketStatus(r.GetString("status")),
		RedeemedBy: r.GetString("redeemed_by"),
	}
	if dt := r.GetDateTime("redeemed_at"); !dt.IsZero() {
		at := dt.Time()
		t.RedeemedAt = &at
	}
	return t
}

func paymentFromRecord(r *core.Record) *models.Payment {
	p := &models.Payment{
		ID:              r.Id,
		BookingID:       r.GetString("booking"),
		Amount:          parseDec(r.GetString("amount")),
		Currency:        r.GetString("currency"),
		Method:          r.GetString("method"),
		GatewayOrderID:  r.GetString("gateway_order_id"),
		Status:          models.PaymentStatus(r.GetString("status")),
		GatewayResponse: r.GetString("gateway_response"),
		CreatedAt:       r.GetDateTime("created").Time(),
	}
	if dt := r.GetDateTime("processed_at"); !dt.IsZero() {
		at := dt.Time()
		p.ProcessedAt = &at
	}
	return p
}

func pbTime(t time.Time) string {
	return t.UTC().Format(types.DefaultDateLayout)
}

// events and categories

func (s *PBStore) FindEvent(ctx context.Context, id string) (*models.Event, error) {
	r, err := s.app.FindRecordById("events", id)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return eventFromRecord(r), nil
}

func (s *PBStore) ListEvents(ctx context.Context) ([]*models.Event, error) {
	records, err := s.app.FindRecordsByFilter("events", "id != ''", "starts_at", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]*models.Event, 0, len(records))
	for _, r := range records {
		out = append(out, eventFromRecord(r))
	}
	return out, nil
}

func (s *PBStore) FindCategory(ctx context.Context, id string) (*models.TicketCategory, error) {
	r, err := s.app.FindRecordById("ticket_categories", id)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return categoryFromRecord(r), nil
}

func (s *PBStore) ListCategories(ctx context.Context, eventID string) ([]*models.TicketCategory, error) {
	records, err := s.app.FindRecordsByFilter(
		"ticket_categories",
		"event = {:event}",
		"name", 0, 0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]*models.TicketCategory, 0, len(records))
	for _, r := range records {
		out = append(out, categoryFromRecord(r))
	}
	return out, nil
}

// inventory ledger

func (s *PBStore) ReserveSeats(ctx context.Context, categoryID string, qty int) error {
	res, err := s.app.DB().NewQuery(
		"UPDATE ticket_categories SET sold = sold + {:qty} WHERE id = {:id} AND sold + {:qty} <= quantity",
	).Bind(dbx.Params{"qty": qty, "id": categoryID}).Execute()
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	if rows == 0 {
		if _, ferr := s.app.FindRecordById("ticket_categories", categoryID); ferr != nil {
			return status.ErrNotFound
		}
		return status.ErrInsufficientInventory
	}
	return nil
}

func (s *PBStore) ReleaseSeats(ctx context.Context, categoryID string, qty int) error {
	_, err := s.app.DB().NewQuery(
		"UPDATE ticket_categories SET sold = MAX(sold - {:qty}, 0) WHERE id = {:id}",
	).Bind(dbx.Params{"qty": qty, "id": categoryID}).Execute()
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	return nil
}

// bookings and tickets

func (s *PBStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	collection, err := s.app.FindCollectionByNameOrId("bookings")
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	r := core.NewRecord(collection)
	r.Set("reference", b.Reference)
	r.Set("event", b.EventID)
	r.Set("category", b.CategoryID)
	r.Set("quantity", b.Quantity)
	r.Set("customer_name", b.CustomerName)
	r.Set("customer_email", b.CustomerEmail)
	r.Set("customer_phone", b.CustomerPhone)
	r.Set("unit_price", b.UnitPrice.String())
	r.Set("subtotal", b.Subtotal.String())
	r.Set("service_fee", b.ServiceFee.String())
	r.Set("tax", b.Tax.String())
	r.Set("total", b.Total.String())
	r.Set("status", string(b.Status))
	r.Set("expires_at", pbTime(b.ExpiresAt))
	if err := s.app.SaveWithContext(ctx, r); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	b.ID = r.Id
	b.CreatedAt = r.GetDateTime("created").Time()
	return nil
}

func (s *PBStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	collection, err := s.app.FindCollectionByNameOrId("tickets")
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	r := core.NewRecord(collection)
	r.Set("booking", t.BookingID)
	r.Set("category", t.CategoryID)
	r.Set("seq", t.Seq)
	r.Set("code", t.Code)
	r.Set("status", string(t.Status))
	if err := s.app.SaveWithContext(ctx, r); err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	t.ID = r.Id
	return nil
}

func (s *PBStore) FindBookingByReference(ctx context.Context, ref string) (*models.Booking, error) {
	r, err := s.app.FindFirstRecordByFilter("bookings", "reference = {:ref}", dbx.Params{"ref": ref})
	if err != nil {
		return nil, status.ErrNotFound
	}
	return bookingFromRecord(r), nil
}

func (s *PBStore) FindBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	r, err := s.app.FindRecordById("bookings", id)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return bookingFromRecord(r), nil
}

func (s *PBStore) FindBookingByGatewayOrder(ctx context.Context, orderID string) (*models.Booking, error) {
	p, err := s.FindPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.FindBookingByID(ctx, p.BookingID)
}

func (s *PBStore) ListTickets(ctx context.Context, bookingID string) ([]*models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		"tickets",
		"booking = {:booking}",
		"seq", 0, 0,
		dbx.Params{"booking": bookingID},
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	out := make([]*models.Ticket, 0, len(records))
	for _, r := range records {
		out = append(out, ticketFromRecord(r))
	}
	return out, nil
}

func (s *PBStore) ListRecentBookings(ctx context.Context, limit int) ([]*models.Booking, error) {
	records, err := s.app.FindRecordsByFilter("bookings", "id != ''", "-created", limit, 0)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make([]*models.Booking, 0, len(records))
	for _, r := range records {
		out = append(out, bookingFromRecord(r))
	}
	return out, nil
}

func (s *PBStore) ListExpiredReservations(ctx context.Context, now time.Time) ([]*models.Booking, error) {
	records, err := s.app.FindRecordsByFilter(
		"bookings",
		"(status = 'reserved' || status = 'pending') && expires_at < {:now}",
		"", 0, 0,
		dbx.Params{"now": pbTime(now)},
	)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	out := make([]*models.Booking, 0, len(records))
	for _, r := range records {
		out = append(out, bookingFromRecord(r))
	}
	return out, nil
}

func (s *PBStore) TransitionBooking(ctx context.Context, bookingID string, from []models.BookingStatus, to models.BookingStatus) error {
	fromVals := make([]any, len(from))
	for i, f := range from {
		fromVals[i] = string(f)
	}
	res, err := s.app.DB().Update(
		"bookings",
		dbx.Params{"status": string(to)},
		dbx.And(dbx.HashExp{"id": bookingID}, dbx.In("status", fromVals...)),
	).Execute()
	if err != nil {
		return fmt.Errorf("transition booking: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition booking: %w", err)
	}
	if rows == 0 {
		if _, ferr := s.app.FindRecordById("bookings", bookingID); ferr != nil {
			return status.ErrNotFound
		}
		return status.ErrInvalidState
	}
	return nil
}

func (s *PBStore) SetBookingPayment(ctx context.Context, bookingID, paymentID string) error {
	r, err := s.app.FindRecordById("bookings", bookingID)
	if err != nil {
		return status.ErrNotFound
	}
	r.Set("payment", paymentID)
	if err := s.app.SaveWithContext(ctx, r); err != nil {
		return fmt.Errorf("set booking payment: %w", err)
	}
	return nil
}

func (s *PBStore) CancelBookingTickets(ctx context.Context, bookingID string) error {
	_, err := s.app.DB().Update(
		"tickets",
		dbx.Params{"status": string(models.TicketCancelled)},
		dbx.And(dbx.HashExp{"booking": bookingID}, dbx.HashExp{"status": string(models.TicketValid)}),
	).Execute()
	if err != nil {
		return fmt.Errorf("cancel booking tickets: %w", err)
	}
	return nil
}

// ticket redemption

func (s *PBStore) FindTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	r, err := s.app.FindFirstRecordByFilter("tickets", "code = {:code}", dbx.Params{"code": code})
	if err != nil {
		return nil, status.ErrNotFound
	}
	return ticketFromRecord(r), nil
}

func (s *PBStore) FindTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	r, err := s.app.FindRecordById("tickets", id)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return ticketFromRecord(r), nil
}

func (s *PBStore) RedeemTicket(ctx context.Context, code, redeemer string, at time.Time) error {
	res, err := s.app.DB().Update(
		"tickets",
		dbx.Params{
			"status":      string(models.TicketUsed),
			"redeemed_at": pbTime(at),
			"redeemed_by": redeemer,
		},
		dbx.And(dbx.HashExp{"code": code}, dbx.HashExp{"status": string(models.TicketValid)}),
	).Execute()
	if err != nil {
		return fmt.Errorf("redeem ticket: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("redeem ticket: %w", err)
	}
	if rows == 0 {
		if _, ferr := s.FindTicketByCode(ctx, code); ferr != nil {
			return status.ErrNotFound
		}
		// the row exists but was not valid anymore: a concurrent scan won
		return status.ErrAlreadyUsed
	}
	return nil
}

// payments

func (s *PBStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	collection, err := s.app.FindCollectionByNameOrId("payments")
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	r := core.NewRecord(collection)
	r.Set("booking", p.BookingID)
	r.Set("amount", p.Amount.String())
	r.Set("currency", p.Currency)
	r.Set("method", p.Method)
	r.Set("gateway_order_id", p.GatewayOrderID)
	r.Set("status", string(p.Status))
	r.Set("gateway_response", p.GatewayResponse)
	if err := s.app.SaveWithContext(ctx, r); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	p.ID = r.Id
	p.CreatedAt = r.GetDateTime("created").Time()
	return nil
}

func (s *PBStore) UpdatePayment(ctx context.Context, p *models.Payment) error {
	r, err := s.app.FindRecordById("payments", p.ID)
	if err != nil {
		return status.ErrNotFound
	}
	r.Set("status", string(p.Status))
	r.Set("gateway_order_id", p.GatewayOrderID)
	r.Set("gateway_response", p.GatewayResponse)
	if p.ProcessedAt != nil {
		r.Set("processed_at", pbTime(*p.ProcessedAt))
	}
	if err := s.app.SaveWithContext(ctx, r); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}

func (s *PBStore) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	r, err := s.app.FindRecordById("payments", id)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return paymentFromRecord(r), nil
}

func (s *PBStore) FindPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	r, err := s.app.FindFirstRecordByFilter(
		"payments",
		"gateway_order_id = {:oid}",
		dbx.Params{"oid": orderID},
	)
	if err != nil {
		return nil, status.ErrNotFound
	}
	return paymentFromRecord(r), nil
}

// admin

func (s *PBStore) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	r, err := s.app.FindFirstRecordByFilter("admins", "email = {:email}", dbx.Params{"email": email})
	if err != nil {
		return nil, status.ErrNotFound
	}
	return &models.Admin{
		ID:           r.Id,
		Email:        r.GetString("email"),
		Name:         r.GetString("name"),
		PasswordHash: r.GetString("password_hash"),
	}, nil
}

func (s *PBStore) SalesByEvent(ctx context.Context) ([]*EventSales, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*EventSales, 0, len(events))
	for _, e := range events {
		row := &EventSales{EventID: e.ID, EventName: e.Name, Revenue: decimal.Zero}
		records, err := s.app.FindRecordsByFilter(
			"bookings",
			"event = {:event} && status = 'confirmed'",
			"", 0, 0,
			dbx.Params{"event": e.ID},
		)
		if err != nil {
			return nil, fmt.Errorf("sales by event: %w", err)
		}
		for _, r := range records {
			row.Bookings++
			row.TicketsSold += r.GetInt("quantity")
			row.Revenue = row.Revenue.Add(parseDec(r.GetString("total")))
		}
		out = append(out, row)
	}
	return out, nil
}
