package booking

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
    "github.com/neiloy-neil/tiki-taka-backend/internal/realtime"
    "github.com/neiloy-neil/tiki-taka-backend/internal/utils"
)

// Arbiter grants, extends and releases seat holds.  It arbitrates
// contention through conditional updates only: the first writer to
// commit wins and the loser observes a short row count, rolls its
// partial grant back and surfaces a conflict.  The arbiter never
// auto-retries; the client may re-invoke with a fresh selection.
type Arbiter struct {
    seats     SeatStore
    holds     HoldStore
    events    EventStore
    mirror    HoldMirror
    broadcast realtime.Broadcaster

    ttl      time.Duration
    maxSeats int
    now      func() time.Time
}

// NewArbiter wires an arbiter.  mirror may be nil (no side-channel
// cache); broadcast must not be nil — pass a Hub even when no broker
// sink is configured.
func NewArbiter(seats SeatStore, holds HoldStore, events EventStore, mirror HoldMirror, broadcast realtime.Broadcaster, ttl time.Duration, maxSeats int) *Arbiter {
    return &Arbiter{
        seats:     seats,
        holds:     holds,
        events:    events,
        mirror:    mirror,
        broadcast: broadcast,
        ttl:       ttl,
        maxSeats:  maxSeats,
        now:       func() time.Time { return time.Now().UTC() },
    }
}

// HoldSeats grants sessionID a hold on the requested seats, or extends
// the session's existing hold with them.  The grant is all-or-nothing:
// either every requested seat ends up HELD under the returned hold or
// no state attributable to this call remains.  Any seat that is SOLD or
// held by another live session fails the whole call with
// ErrSeatConflict; stale holds encountered on the way are reclaimed
// opportunistically before deciding.
func (a *Arbiter) HoldSeats(ctx context.Context, eventID string, seatIDs []string, sessionID string, userID *uint64) (*model.SeatHold, error) {
    if sessionID == "" {
        return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
    }
    unique := dedupe(seatIDs)
    if len(unique) == 0 {
        return nil, fmt.Errorf("%w: seat ids are required", ErrInvalidInput)
    }
    if len(unique) > a.maxSeats {
        return nil, fmt.Errorf("%w: at most %d seats per hold", ErrInvalidInput, a.maxSeats)
    }

    event, err := a.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, notFoundOr(err, "event %s", eventID)
    }
    if event.Status != model.EventPublished {
        return nil, fmt.Errorf("%w: event %s is not open for booking", ErrInvalidState, eventID)
    }

    states, err := a.seats.GetMany(ctx, eventID, unique)
    if err != nil {
        return nil, err
    }
    if len(states) != len(unique) {
        return nil, fmt.Errorf("%w: unknown seat in request", ErrNotFound)
    }

    now := a.now()

    // The session's current hold, if any.  An expired one is reclaimed
    // here rather than left for the worker, so the session starts fresh.
    existing, err := a.holds.GetBySession(ctx, eventID, sessionID)
    if err != nil && !isStoreNotFound(err) {
        return nil, err
    }
    if existing != nil && existing.Expired(now) {
        a.reclaimStale(ctx, existing)
        existing = nil
    }

    // Partition the requested seats.  Seats already in the session's
    // live hold are idempotently left in place; stale foreign holds are
    // reclaimed and their seats treated as available.
    var toClaim []string
    for _, st := range statesInRequestOrder(states, unique) {
        switch st.Status {
        case model.SeatSold:
            return nil, fmt.Errorf("%w: seat %s is no longer available", ErrSeatConflict, st.SeatID)
        case model.SeatHeld:
            if existing != nil && st.HoldRef != nil && *st.HoldRef == existing.ID {
                continue // already ours
            }
            if !a.reclaimIfStale(ctx, eventID, st, now) {
                return nil, fmt.Errorf("%w: seat %s is no longer available", ErrSeatConflict, st.SeatID)
            }
            toClaim = append(toClaim, st.SeatID)
        default:
            toClaim = append(toClaim, st.SeatID)
        }
    }

    expiresAt := now.Add(a.ttl)

    if len(toClaim) == 0 {
        // Everything requested is already held by this session: pure
        // extension of the expiry window.
        if existing == nil {
            return nil, fmt.Errorf("%w: seat state changed, retry", ErrSeatConflict)
        }
        existing.ExpiresAt = expiresAt
        if err := a.holds.Update(ctx, existing); err != nil {
            return nil, err
        }
        a.mirrorPut(ctx, existing)
        return existing, nil
    }

    // For a fresh grant the hold row is written BEFORE the seats are
    // flipped.  The moment a seat becomes HELD its hold_ref must
    // resolve to a live hold, otherwise a concurrent arbiter would
    // classify it as orphaned and reclaim it mid-grant.
    var hold *model.SeatHold
    created := false
    if existing != nil {
        hold = existing
    } else {
        hold = &model.SeatHold{
            ID:        uuid.NewString(),
            EventID:   eventID,
            SeatIDs:   toClaim,
            SessionID: sessionID,
            UserID:    userID,
            ExpiresAt: expiresAt,
            CreatedAt: now,
        }
        if err := a.holds.Create(ctx, hold); err != nil {
            return nil, err
        }
        created = true
    }

    modified, err := a.seats.HoldAvailable(ctx, eventID, toClaim, hold.ID)
    if err != nil {
        if created {
            a.dropHold(ctx, hold.ID)
        }
        return nil, err
    }
    if modified != int64(len(toClaim)) {
        // Lost a race for at least one seat: revert the rows this call
        // did flip, drop the hold row it created, and report the
        // conflict.  The revert predicate (HELD + our hold ref) cannot
        // touch anyone else's seats.
        a.revertGrant(ctx, eventID, toClaim, hold.ID)
        if created {
            a.dropHold(ctx, hold.ID)
        }
        return nil, fmt.Errorf("%w: seats were taken concurrently", ErrSeatConflict)
    }

    if existing != nil {
        existing.SeatIDs = union(existing.SeatIDs, toClaim)
        existing.ExpiresAt = expiresAt
        if err := a.holds.Update(ctx, existing); err != nil {
            a.revertGrant(ctx, eventID, toClaim, existing.ID)
            return nil, err
        }
    }

    a.mirrorPut(ctx, hold)
    a.broadcast.Publish(eventID, realtime.SeatAvailability(eventID, statusUpdates(toClaim, model.SeatHeld)))
    return hold, nil
}

// ReleaseSeats releases the hold's seats back to AVAILABLE and removes
// the hold.  Only the owning session may release.
func (a *Arbiter) ReleaseSeats(ctx context.Context, holdID, sessionID string) error {
    hold, err := a.holds.GetByID(ctx, holdID)
    if err != nil {
        return notFoundOr(err, "hold %s", holdID)
    }
    if hold.SessionID != sessionID {
        return fmt.Errorf("%w: hold belongs to a different session", ErrUnauthorized)
    }
    released, err := a.seats.ReleaseHeld(ctx, hold.EventID, hold.SeatIDs, hold.ID)
    if err != nil {
        return err
    }
    if err := a.holds.Delete(ctx, hold.ID); err != nil {
        return err
    }
    a.mirrorDelete(ctx, hold.ID)
    if len(released) > 0 {
        a.broadcast.Publish(hold.EventID, realtime.SeatAvailability(hold.EventID, statusUpdates(released, model.SeatAvailable)))
    }
    return nil
}

// Availability returns the live status of every seat of an event.
func (a *Arbiter) Availability(ctx context.Context, eventID string) ([]model.EventSeatState, error) {
    if _, err := a.events.GetByID(ctx, eventID); err != nil {
        return nil, notFoundOr(err, "event %s", eventID)
    }
    return a.seats.ListByEvent(ctx, eventID)
}

// PlanSeat is one seat in the rendered seat plan.
type PlanSeat struct {
    SeatID  string   `json:"seatId"`
    Section string   `json:"section"`
    Row     string   `json:"row"`
    Number  string   `json:"number"`
    Status  string   `json:"status"`
    X       *float64 `json:"x,omitempty"`
    Y       *float64 `json:"y,omitempty"`
}

// PlanSection describes a section with its pricing zone.
type PlanSection struct {
    Code       string `json:"code"`
    Name       string `json:"name"`
    PriceCents uint32 `json:"priceCents"`
    Currency   string `json:"currency"`
}

// SeatPlan combines the venue layout with live seat statuses.
type SeatPlan struct {
    EventID  string        `json:"eventId"`
    Seats    []PlanSeat    `json:"seats"`
    Sections []PlanSection `json:"sections"`
    SVG      string        `json:"svg,omitempty"`
}

// SeatPlan returns the event's seat plan: coordinates and current
// status per seat, the section/zone index and the rendered SVG when the
// event carries one.
func (a *Arbiter) SeatPlan(ctx context.Context, eventID string) (*SeatPlan, error) {
    event, err := a.events.GetByID(ctx, eventID)
    if err != nil {
        return nil, notFoundOr(err, "event %s", eventID)
    }
    states, err := a.seats.ListByEvent(ctx, eventID)
    if err != nil {
        return nil, err
    }
    plan := &SeatPlan{EventID: eventID}
    if event.SeatMapSVG != nil {
        plan.SVG = *event.SeatMapSVG
    }
    for _, st := range states {
        ps := PlanSeat{SeatID: st.SeatID, Section: st.Section, Status: st.Status, X: st.PosX, Y: st.PosY}
        if ref, err := utils.ParseSeatRef(st.SeatID); err == nil {
            ps.Row, ps.Number = ref.Row, ref.Seat
        }
        plan.Seats = append(plan.Seats, ps)
    }
    for code, zone := range event.PricingZones {
        plan.Sections = append(plan.Sections, PlanSection{
            Code: code, Name: zone.Name, PriceCents: zone.PriceCents, Currency: zone.Currency,
        })
    }
    return plan, nil
}

// GetHold answers "is my hold still alive?" from the mirror when
// possible, falling back to the durable store.
func (a *Arbiter) GetHold(ctx context.Context, holdID string) (*model.SeatHold, error) {
    if a.mirror != nil {
        if h, err := a.mirror.Get(ctx, holdID); err == nil && h != nil {
            return h, nil
        } else if err != nil {
            log.Printf("hold-arbiter: mirror read failed: %v", err)
        }
    }
    h, err := a.holds.GetByID(ctx, holdID)
    if err != nil {
        return nil, notFoundOr(err, "hold %s", holdID)
    }
    if h.Expired(a.now()) {
        return nil, fmt.Errorf("%w: hold %s expired", ErrNotFound, holdID)
    }
    return h, nil
}

// reclaimIfStale checks the hold referenced by a HELD seat and, when it
// is missing or expired, conditionally flips the orphaned seat back to
// AVAILABLE.  Returns true when the seat was reclaimed and may be
// granted to the caller.
func (a *Arbiter) reclaimIfStale(ctx context.Context, eventID string, st model.EventSeatState, now time.Time) bool {
    if st.HoldRef == nil {
        // HELD rows always carry a hold ref; a missing one is orphaned state.
        return false
    }
    owner, err := a.holds.GetByID(ctx, *st.HoldRef)
    if err == nil && !owner.Expired(now) {
        return false // live foreign hold
    }
    if err != nil && !isStoreNotFound(err) {
        return false // store error: do not guess, surface the conflict
    }
    released, err := a.seats.ReleaseHeld(ctx, eventID, []string{st.SeatID}, *st.HoldRef)
    if err != nil || len(released) == 0 {
        return false
    }
    if owner != nil {
        a.reclaimRestOfStale(ctx, owner, st.SeatID)
    }
    return true
}

// reclaimRestOfStale finishes reclaiming an expired hold whose one seat
// the caller just took over: remaining seats go back to AVAILABLE and
// the hold row disappears.
func (a *Arbiter) reclaimRestOfStale(ctx context.Context, stale *model.SeatHold, except string) {
    var rest []string
    for _, id := range stale.SeatIDs {
        if id != except {
            rest = append(rest, id)
        }
    }
    released, err := a.seats.ReleaseHeld(ctx, stale.EventID, rest, stale.ID)
    if err != nil {
        log.Printf("hold-arbiter: reclaim of stale hold %s failed: %v", stale.ID, err)
        return
    }
    if err := a.holds.Delete(ctx, stale.ID); err != nil {
        log.Printf("hold-arbiter: delete of stale hold %s failed: %v", stale.ID, err)
    }
    a.mirrorDelete(ctx, stale.ID)
    if len(released) > 0 {
        a.broadcast.Publish(stale.EventID, realtime.SeatAvailability(stale.EventID, statusUpdates(released, model.SeatAvailable)))
    }
}

// reclaimStale releases every seat of an expired hold and deletes it.
func (a *Arbiter) reclaimStale(ctx context.Context, stale *model.SeatHold) {
    released, err := a.seats.ReleaseHeld(ctx, stale.EventID, stale.SeatIDs, stale.ID)
    if err != nil {
        log.Printf("hold-arbiter: reclaim of expired hold %s failed: %v", stale.ID, err)
        return
    }
    if err := a.holds.Delete(ctx, stale.ID); err != nil {
        log.Printf("hold-arbiter: delete of expired hold %s failed: %v", stale.ID, err)
    }
    a.mirrorDelete(ctx, stale.ID)
    if len(released) > 0 {
        a.broadcast.Publish(stale.EventID, realtime.SeatAvailability(stale.EventID, statusUpdates(released, model.SeatAvailable)))
    }
}

// revertGrant undoes a successful conditional flip after a later step
// of the grant failed.
func (a *Arbiter) revertGrant(ctx context.Context, eventID string, seatIDs []string, holdID string) {
    if _, err := a.seats.ReleaseHeld(ctx, eventID, seatIDs, holdID); err != nil {
        log.Printf("hold-arbiter: revert of grant %s failed: %v", holdID, err)
    }
}

// dropHold removes a hold row written by a grant that did not complete.
func (a *Arbiter) dropHold(ctx context.Context, holdID string) {
    if err := a.holds.Delete(ctx, holdID); err != nil {
        log.Printf("hold-arbiter: cleanup of hold %s failed: %v", holdID, err)
    }
}

func (a *Arbiter) mirrorPut(ctx context.Context, h *model.SeatHold) {
    if a.mirror == nil {
        return
    }
    if err := a.mirror.Put(ctx, h); err != nil {
        log.Printf("hold-arbiter: mirror write failed: %v", err)
    }
}

func (a *Arbiter) mirrorDelete(ctx context.Context, holdID string) {
    if a.mirror == nil {
        return
    }
    if err := a.mirror.Delete(ctx, holdID); err != nil {
        log.Printf("hold-arbiter: mirror delete failed: %v", err)
    }
}

// dedupe drops empty and duplicate ids while preserving request order.
func dedupe(ids []string) []string {
    seen := make(map[string]struct{}, len(ids))
    out := make([]string, 0, len(ids))
    for _, id := range ids {
        if id == "" {
            continue
        }
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            out = append(out, id)
        }
    }
    return out
}

// statesInRequestOrder reorders store results to match the request.
func statesInRequestOrder(states []model.EventSeatState, order []string) []model.EventSeatState {
    byID := make(map[string]model.EventSeatState, len(states))
    for _, st := range states {
        byID[st.SeatID] = st
    }
    out := make([]model.EventSeatState, 0, len(order))
    for _, id := range order {
        if st, ok := byID[id]; ok {
            out = append(out, st)
        }
    }
    return out
}

func union(a, b []string) []string {
    seen := make(map[string]struct{}, len(a)+len(b))
    out := make([]string, 0, len(a)+len(b))
    for _, id := range a {
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            out = append(out, id)
        }
    }
    for _, id := range b {
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            out = append(out, id)
        }
    }
    return out
}

func statusUpdates(seatIDs []string, status string) []realtime.SeatUpdate {
    out := make([]realtime.SeatUpdate, 0, len(seatIDs))
    for _, id := range seatIDs {
        out = append(out, realtime.SeatUpdate{SeatID: id, Status: status})
    }
    return out
}

// notFoundOr maps the repository's not-found sentinel into the service
// taxonomy, annotating it with the entity; other errors pass through.
func notFoundOr(err error, format string, args ...interface{}) error {
    if errors.Is(err, ErrNotFound) {
        return err
    }
    if isStoreNotFound(err) {
        return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
    }
    return err
}
