package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

// EventRepo reads the slice of the events table the reservation
// subsystem needs: booking eligibility, pricing zones, the seat map and
// the sold counter.  Event CRUD itself belongs to the event management
// collaborator.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo constructs an EventRepo given a DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
    return &EventRepo{db: db}
}

// GetByID fetches an event.  Returns ErrNotFound when absent.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
    var e model.Event
    var zonesJSON []byte
    err := r.db.QueryRowContext(ctx,
        `SELECT id, name, status, pricing_zones, seat_map_svg, total_capacity, sold_count, created_at, updated_at
         FROM events WHERE id = ?`, id).
        Scan(&e.ID, &e.Name, &e.Status, &zonesJSON, &e.SeatMapSVG, &e.TotalCapacity, &e.SoldCount, &e.CreatedAt, &e.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    if len(zonesJSON) > 0 {
        if err := json.Unmarshal(zonesJSON, &e.PricingZones); err != nil {
            return nil, err
        }
    }
    return &e, nil
}

// IncrementSoldCount bumps the event's sold counter after a finalize.
func (r *EventRepo) IncrementSoldCount(ctx context.Context, id string, n int) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE events SET sold_count = sold_count + ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, n, id)
    return err
}
