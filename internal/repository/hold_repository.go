package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

// HoldRepo provides data access to the seat_holds table.  The seat set
// is stored as a JSON column; the (event_id, session_id) pair carries a
// unique index so a session can never own two live holds for the same
// event.  All timestamp comparisons are performed in UTC.
type HoldRepo struct {
    db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

const holdColumns = `id, event_id, seat_ids, session_id, user_id, expires_at, created_at`

func scanHold(scan func(dest ...interface{}) error) (*model.SeatHold, error) {
    var h model.SeatHold
    var seatsJSON []byte
    if err := scan(&h.ID, &h.EventID, &seatsJSON, &h.SessionID, &h.UserID, &h.ExpiresAt, &h.CreatedAt); err != nil {
        return nil, err
    }
    if err := json.Unmarshal(seatsJSON, &h.SeatIDs); err != nil {
        return nil, err
    }
    return &h, nil
}

// Create inserts a new hold row.
func (r *HoldRepo) Create(ctx context.Context, h *model.SeatHold) error {
    seatsJSON, err := json.Marshal(h.SeatIDs)
    if err != nil {
        return err
    }
    _, err = r.db.ExecContext(ctx,
        `INSERT INTO seat_holds (id, event_id, seat_ids, session_id, user_id, expires_at, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        h.ID, h.EventID, seatsJSON, h.SessionID, h.UserID,
        h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
        h.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
    return err
}

// Update rewrites the seat set and expiry of an existing hold.  Used
// when a session adds seats to its live hold.
func (r *HoldRepo) Update(ctx context.Context, h *model.SeatHold) error {
    seatsJSON, err := json.Marshal(h.SeatIDs)
    if err != nil {
        return err
    }
    res, err := r.db.ExecContext(ctx,
        `UPDATE seat_holds SET seat_ids = ?, expires_at = ? WHERE id = ?`,
        seatsJSON, h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"), h.ID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return ErrNotFound
    }
    return nil
}

// GetByID fetches a hold by its identifier.  Returns ErrNotFound when
// the row does not exist (the hold may have been consumed or expired).
func (r *HoldRepo) GetByID(ctx context.Context, id string) (*model.SeatHold, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+holdColumns+` FROM seat_holds WHERE id = ?`, id)
    h, err := scanHold(row.Scan)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return h, err
}

// GetBySession fetches the hold owned by a session for an event,
// expired or not.  Returns ErrNotFound when the session owns none.
func (r *HoldRepo) GetBySession(ctx context.Context, eventID, sessionID string) (*model.SeatHold, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+holdColumns+` FROM seat_holds WHERE event_id = ? AND session_id = ?`, eventID, sessionID)
    h, err := scanHold(row.Scan)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return h, err
}

// Delete removes a hold row.  Deleting an already-removed hold is not
// an error; expiration and finalize may race on the same hold.
func (r *HoldRepo) Delete(ctx context.Context, id string) error {
    _, err := r.db.ExecContext(ctx, `DELETE FROM seat_holds WHERE id = ?`, id)
    return err
}

// ListExpired returns up to limit holds whose expiry has passed, oldest
// first.  The expiration worker processes them page by page; bounding
// the page keeps a backlog of abandoned holds from starving a tick.
func (r *HoldRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.SeatHold, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+holdColumns+` FROM seat_holds WHERE expires_at < ? ORDER BY expires_at LIMIT ?`,
        now.UTC().Format("2006-01-02 15:04:05"), limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []*model.SeatHold
    for rows.Next() {
        h, err := scanHold(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, h)
    }
    return out, rows.Err()
}

// ListExpiringBetween returns holds whose expiry falls inside the given
// window.  The expiration worker uses it to warn owning sessions
// shortly before their hold lapses.
func (r *HoldRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.SeatHold, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+holdColumns+` FROM seat_holds WHERE expires_at >= ? AND expires_at < ?`,
        from.UTC().Format("2006-01-02 15:04:05"), to.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []*model.SeatHold
    for rows.Next() {
        h, err := scanHold(rows.Scan)
        if err != nil {
            return nil, err
        }
        out = append(out, h)
    }
    return out, rows.Err()
}
