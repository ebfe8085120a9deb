package repository // repository for per-(event,seat) state persistence

import (
    "context"
    "database/sql"
    "strings"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

// SeatStateRepo encapsulates database operations for event_seats, the
// single source of truth for seat availability.  Every mutation is a
// conditional update predicated on the current status (and hold/order
// ownership where relevant) so that concurrent writers commute: the
// first statement to commit wins and the loser observes a short row
// count.  No method takes an explicit lock.
type SeatStateRepo struct {
    db *sql.DB
}

// NewSeatStateRepo constructs a SeatStateRepo given a DB handle.
func NewSeatStateRepo(db *sql.DB) *SeatStateRepo {
    return &SeatStateRepo{db: db}
}

// DB exposes the underlying handle for callers that need to open a
// transaction spanning several repositories.
func (r *SeatStateRepo) DB() *sql.DB { return r.db }

const seatColumns = `event_id, seat_id, section, status, hold_ref, order_ref, pos_x, pos_y, version, last_updated`

func scanSeat(scan func(dest ...interface{}) error) (model.EventSeatState, error) {
    var s model.EventSeatState
    err := scan(&s.EventID, &s.SeatID, &s.Section, &s.Status, &s.HoldRef,
        &s.OrderRef, &s.PosX, &s.PosY, &s.Version, &s.LastUpdated)
    return s, err
}

// inPlaceholders returns "?, ?, ..., ?" with n placeholders.
func inPlaceholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.Repeat("?, ", n-1) + "?"
}

// CreateBulk inserts the full seat index for an event in one statement.
// It is invoked when an event is published; every row starts AVAILABLE
// with version 0.  Passing an empty slice has no effect and returns nil.
func (r *SeatStateRepo) CreateBulk(ctx context.Context, seats []model.EventSeatState) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO event_seats (event_id, seat_id, section, status, pos_x, pos_y, version, last_updated) VALUES `
    args := make([]interface{}, 0, len(seats)*6)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, 'AVAILABLE', ?, ?, 0, UTC_TIMESTAMP())"
        args = append(args, s.EventID, s.SeatID, s.Section, s.PosX, s.PosY)
    }
    _, err := r.db.ExecContext(ctx, query, args...)
    return err
}

// GetMany returns the state rows for the requested seats of an event.
// Seats without a row are simply absent from the result; callers detect
// unknown seat ids by comparing lengths.
func (r *SeatStateRepo) GetMany(ctx context.Context, eventID string, seatIDs []string) ([]model.EventSeatState, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    query := `SELECT ` + seatColumns + ` FROM event_seats WHERE event_id = ? AND seat_id IN (` + inPlaceholders(len(seatIDs)) + `)`
    args := make([]interface{}, 0, len(seatIDs)+1)
    args = append(args, eventID)
    for _, id := range seatIDs {
        args = append(args, id)
    }
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.EventSeatState
    for rows.Next() {
        s, err := scanSeat(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// ListByEvent returns every seat row for an event ordered by seat id,
// used by the availability and seat plan endpoints.
func (r *SeatStateRepo) ListByEvent(ctx context.Context, eventID string) ([]model.EventSeatState, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+seatColumns+` FROM event_seats WHERE event_id = ? ORDER BY seat_id`, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.EventSeatState
    for rows.Next() {
        s, err := scanSeat(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// HoldAvailable conditionally flips the requested seats from AVAILABLE
// to HELD under the given hold.  The status predicate makes the update
// safe under contention; the returned count tells the caller how many
// seats it actually won.  A short count means another writer got there
// first and the caller must roll back its partial hold.
func (r *SeatStateRepo) HoldAvailable(ctx context.Context, eventID string, seatIDs []string, holdID string) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    query := `UPDATE event_seats
              SET status = 'HELD', hold_ref = ?, version = version + 1, last_updated = UTC_TIMESTAMP()
              WHERE event_id = ? AND seat_id IN (` + inPlaceholders(len(seatIDs)) + `) AND status = 'AVAILABLE'`
    args := make([]interface{}, 0, len(seatIDs)+2)
    args = append(args, holdID, eventID)
    for _, id := range seatIDs {
        args = append(args, id)
    }
    res, err := r.db.ExecContext(ctx, query, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ReleaseHeld flips seats held under the given hold back to AVAILABLE
// and reports which seats were actually released.  Only rows still in
// HELD status with a matching hold_ref are touched, so a release that
// races with a finalize leaves sold seats alone.  Used by explicit
// release, by compensating rollback after a partial grant and by stale
// hold reclamation.
func (r *SeatStateRepo) ReleaseHeld(ctx context.Context, eventID string, seatIDs []string, holdID string) ([]string, error) {
    if len(seatIDs) == 0 {
        return nil, nil
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    selQuery := `SELECT seat_id FROM event_seats
                 WHERE event_id = ? AND seat_id IN (` + inPlaceholders(len(seatIDs)) + `) AND status = 'HELD' AND hold_ref = ?`
    args := make([]interface{}, 0, len(seatIDs)+2)
    args = append(args, eventID)
    for _, id := range seatIDs {
        args = append(args, id)
    }
    args = append(args, holdID)
    rows, err := tx.QueryContext(ctx, selQuery, args...)
    if err != nil {
        return nil, err
    }
    var held []string
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            rows.Close()
            return nil, err
        }
        held = append(held, id)
    }
    if err := rows.Close(); err != nil {
        return nil, err
    }
    if len(held) == 0 {
        committed = true
        return nil, tx.Commit()
    }
    updQuery := `UPDATE event_seats
                 SET status = 'AVAILABLE', hold_ref = NULL, version = version + 1, last_updated = UTC_TIMESTAMP()
                 WHERE event_id = ? AND seat_id IN (` + inPlaceholders(len(held)) + `) AND status = 'HELD' AND hold_ref = ?`
    updArgs := make([]interface{}, 0, len(held)+2)
    updArgs = append(updArgs, eventID)
    for _, id := range held {
        updArgs = append(updArgs, id)
    }
    updArgs = append(updArgs, holdID)
    if _, err := tx.ExecContext(ctx, updQuery, updArgs...); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return held, nil
}

// MarkSold conditionally flips the order's seats to SOLD.  The predicate
// excludes rows already SOLD, so a duplicate finalize modifies nothing
// and a seat reclaimed and resold elsewhere yields a short count that
// the checkout coordinator surfaces as a conflict.
func (r *SeatStateRepo) MarkSold(ctx context.Context, eventID string, seatIDs []string, orderID string) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    query := `UPDATE event_seats
              SET status = 'SOLD', hold_ref = NULL, order_ref = ?, version = version + 1, last_updated = UTC_TIMESTAMP()
              WHERE event_id = ? AND seat_id IN (` + inPlaceholders(len(seatIDs)) + `) AND status <> 'SOLD'`
    args := make([]interface{}, 0, len(seatIDs)+2)
    args = append(args, orderID, eventID)
    for _, id := range seatIDs {
        args = append(args, id)
    }
    res, err := r.db.ExecContext(ctx, query, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// CountByStatus aggregates seat counts per status for an event.  Used
// by conservation checks and operational dashboards.
func (r *SeatStateRepo) CountByStatus(ctx context.Context, eventID string) (map[string]int, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT status, COUNT(*) FROM event_seats WHERE event_id = ? GROUP BY status`, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[string]int)
    for rows.Next() {
        var status string
        var n int
        if err := rows.Scan(&status, &n); err != nil {
            return nil, err
        }
        out[status] = n
    }
    return out, rows.Err()
}
