// Package worker contains the background expiration loop that bounds
// the blast radius of abandoned holds.  It is safe to run from several
// replicas at once: every reclamation is a conditional update, so a
// reclamation that races a late finalize loses cleanly (the seat is
// already SOLD and the predicate does not match).
package worker

import (
    "context"
    "log"
    "time"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
    "github.com/neiloy-neil/tiki-taka-backend/internal/realtime"
)

// expiredPage bounds how many expired holds one tick processes so a
// large backlog cannot starve the loop.
const expiredPage = 200

// HoldStore is the slice of the hold repository the worker needs.
type HoldStore interface {
    ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.SeatHold, error)
    ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.SeatHold, error)
    Delete(ctx context.Context, id string) error
}

// SeatStore reclaims seats still held under an expired hold.
type SeatStore interface {
    ReleaseHeld(ctx context.Context, eventID string, seatIDs []string, holdID string) ([]string, error)
}

// HoldMirror drops cache entries for reclaimed holds; may be nil.
type HoldMirror interface {
    Delete(ctx context.Context, holdID string) error
}

// Expirer periodically reclaims expired seat holds and fans the
// resulting availability deltas out per event.
type Expirer struct {
    holds     HoldStore
    seats     SeatStore
    mirror    HoldMirror
    broadcast realtime.Broadcaster

    every time.Duration
    now   func() time.Time
}

// NewExpirer wires the expiration worker.  every is the tick period
// (default 60s when zero).
func NewExpirer(holds HoldStore, seats SeatStore, mirror HoldMirror, broadcast realtime.Broadcaster, every time.Duration) *Expirer {
    if every <= 0 {
        every = time.Minute
    }
    return &Expirer{
        holds:     holds,
        seats:     seats,
        mirror:    mirror,
        broadcast: broadcast,
        every:     every,
        now:       func() time.Time { return time.Now().UTC() },
    }
}

// Run ticks until the context is cancelled.  Intended to be launched as
// a goroutine from main; on SIGTERM the context cancels and no further
// ticks are scheduled.
func (e *Expirer) Run(ctx context.Context) {
    ticker := time.NewTicker(e.every)
    defer ticker.Stop()
    log.Printf("expiration-worker: sweeping every %s", e.every)
    for {
        select {
        case <-ctx.Done():
            log.Printf("expiration-worker: stopped")
            return
        case <-ticker.C:
            if err := e.Sweep(ctx); err != nil {
                log.Printf("expiration-worker: sweep failed: %v", err)
            }
            e.warnExpiring(ctx)
        }
    }
}

// Sweep performs one reclamation pass: expired holds are released seat
// by seat through conditional updates, their rows and cache entries
// removed, a hold_expired notice emitted per reclaimed hold, and one
// aggregated availability update emitted per event.  An error on a
// single hold is logged and the pass continues.
func (e *Expirer) Sweep(ctx context.Context) error {
    now := e.now()
    expired, err := e.holds.ListExpired(ctx, now, expiredPage)
    if err != nil {
        return err
    }
    reclaimedByEvent := make(map[string][]string)
    for _, hold := range expired {
        released, err := e.seats.ReleaseHeld(ctx, hold.EventID, hold.SeatIDs, hold.ID)
        if err != nil {
            log.Printf("expiration-worker: reclaim of hold %s failed: %v", hold.ID, err)
            continue
        }
        if err := e.holds.Delete(ctx, hold.ID); err != nil {
            log.Printf("expiration-worker: delete of hold %s failed: %v", hold.ID, err)
            continue
        }
        if e.mirror != nil {
            if err := e.mirror.Delete(ctx, hold.ID); err != nil {
                log.Printf("expiration-worker: mirror delete of hold %s failed: %v", hold.ID, err)
            }
        }
        if len(released) > 0 {
            reclaimedByEvent[hold.EventID] = append(reclaimedByEvent[hold.EventID], released...)
            e.broadcast.Publish(hold.EventID, realtime.HoldExpired(hold.EventID, released))
        }
    }
    for eventID, seatIDs := range reclaimedByEvent {
        updates := make([]realtime.SeatUpdate, 0, len(seatIDs))
        for _, id := range seatIDs {
            updates = append(updates, realtime.SeatUpdate{SeatID: id, Status: model.SeatAvailable})
        }
        e.broadcast.Publish(eventID, realtime.SeatAvailability(eventID, updates))
        log.Printf("expiration-worker: reclaimed %d seats for event %s", len(seatIDs), eventID)
    }
    return nil
}

// warnExpiring nudges sessions whose hold lapses before the next tick.
// A hold may be warned more than once; clients treat the message as
// idempotent like every other broadcast.
func (e *Expirer) warnExpiring(ctx context.Context) {
    now := e.now()
    soon, err := e.holds.ListExpiringBetween(ctx, now, now.Add(e.every))
    if err != nil {
        log.Printf("expiration-worker: expiring-soon scan failed: %v", err)
        return
    }
    for _, hold := range soon {
        e.broadcast.Publish(hold.EventID, realtime.HoldExpiringSoon(hold.EventID, hold.SessionID, hold.ExpiresAt))
    }
}
