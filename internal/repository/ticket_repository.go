package repository

import (
    "context"
    "database/sql"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

// TicketRepo encapsulates database operations for tickets.
type TicketRepo struct {
    db *sql.DB
}

// NewTicketRepo constructs a TicketRepo given a DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
    return &TicketRepo{db: db}
}

// CreateBulk inserts one ticket per seat in a single statement.  Ticket
// rows are only written by finalize; re-running a finalize never reaches
// this call because the order is already SUCCEEDED.
func (r *TicketRepo) CreateBulk(ctx context.Context, tickets []model.Ticket) error {
    if len(tickets) == 0 {
        return nil
    }
    query := `INSERT INTO tickets (id, order_id, event_id, seat_id, code, issued_at) VALUES `
    args := make([]interface{}, 0, len(tickets)*5)
    for i, t := range tickets {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, UTC_TIMESTAMP())"
        args = append(args, t.ID, t.OrderID, t.EventID, t.SeatID, t.Code)
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return err
}

// ListByOrder returns the tickets issued for an order, ordered by seat.
func (r *TicketRepo) ListByOrder(ctx context.Context, orderID string) ([]model.Ticket, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, order_id, event_id, seat_id, code, issued_at FROM tickets WHERE order_id = ? ORDER BY seat_id`,
        orderID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Ticket
    for rows.Next() {
        var t model.Ticket
        if err := rows.Scan(&t.ID, &t.OrderID, &t.EventID, &t.SeatID, &t.Code, &t.IssuedAt); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}
