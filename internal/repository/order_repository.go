package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

// OrderRepo provides data access to the orders table.  Seat snapshots,
// customer details and ticket references are stored as JSON columns and
// dereferenced by id on demand; no in-memory object graph is kept.
type OrderRepo struct {
    db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, order_number, event_id, seat_ids, customer, session_id, user_id,
payment_status, payment_intent_id, subtotal_cents, fees_cents, tax_cents, total_cents,
ticket_ids, created_at, updated_at`

func scanOrder(scan func(dest ...interface{}) error) (*model.Order, error) {
    var o model.Order
    var seatsJSON, customerJSON, ticketsJSON []byte
    err := scan(&o.ID, &o.OrderNumber, &o.EventID, &seatsJSON, &customerJSON, &o.SessionID, &o.UserID,
        &o.PaymentStatus, &o.PaymentIntentID, &o.SubtotalCents, &o.FeesCents, &o.TaxCents, &o.TotalCents,
        &ticketsJSON, &o.CreatedAt, &o.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if err := json.Unmarshal(seatsJSON, &o.SeatIDs); err != nil {
        return nil, err
    }
    if err := json.Unmarshal(customerJSON, &o.Customer); err != nil {
        return nil, err
    }
    if len(ticketsJSON) > 0 {
        if err := json.Unmarshal(ticketsJSON, &o.TicketIDs); err != nil {
            return nil, err
        }
    }
    return &o, nil
}

// Create inserts a new order row.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
    seatsJSON, err := json.Marshal(o.SeatIDs)
    if err != nil {
        return err
    }
    customerJSON, err := json.Marshal(o.Customer)
    if err != nil {
        return err
    }
    ticketsJSON, err := json.Marshal(o.TicketIDs)
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx,
        `INSERT INTO orders (id, order_number, event_id, seat_ids, customer, session_id, user_id,
                             payment_status, payment_intent_id, subtotal_cents, fees_cents, tax_cents, total_cents,
                             ticket_ids, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())`,
        o.ID, o.OrderNumber, o.EventID, seatsJSON, customerJSON, o.SessionID, o.UserID,
        o.PaymentStatus, o.PaymentIntentID, o.SubtotalCents, o.FeesCents, o.TaxCents, o.TotalCents,
        ticketsJSON)
    return err
}

// GetByID fetches an order by id.  Returns ErrNotFound when absent.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
    o, err := scanOrder(row.Scan)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return o, err
}

// GetByPaymentIntentID locates the order carrying an external payment
// intent reference.  The webhook path uses this to reconcile provider
// events with local orders.
func (r *OrderRepo) GetByPaymentIntentID(ctx context.Context, intentID string) (*model.Order, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = ?`, intentID)
    o, err := scanOrder(row.Scan)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return o, err
}

// MarkSucceeded records a successful finalize: SUCCEEDED status plus the
// issued ticket references.
func (r *OrderRepo) MarkSucceeded(ctx context.Context, id string, ticketIDs []string) error {
    ticketsJSON, err := json.Marshal(ticketIDs)
    if err != nil {
        return err
    }
    res, err := r.db.ExecContext(ctx,
        `UPDATE orders SET payment_status = 'SUCCEEDED', ticket_ids = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
        ticketsJSON, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return ErrNotFound
    }
    return nil
}

// UpdatePaymentStatus transitions the payment status only when the row
// still carries the expected current status, keeping the PENDING ->
// {SUCCEEDED, FAILED} DAG free of implicit transitions under duplicate
// webhooks.  A no-op transition is not an error.
func (r *OrderRepo) UpdatePaymentStatus(ctx context.Context, id, from, to string) (bool, error) {
    res, err := r.db.ExecContext(ctx,
        `UPDATE orders SET payment_status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND payment_status = ?`,
        to, id, from)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}
