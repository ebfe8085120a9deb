package worker

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
    "github.com/neiloy-neil/tiki-taka-backend/internal/realtime"
)

// memSeats models the seat state store with the same conditional-update
// semantics as the SQL repository.
type memSeats struct {
    mu   sync.Mutex
    rows map[string]*model.EventSeatState // seatID -> row (single event per test)
}

func newMemSeats() *memSeats { return &memSeats{rows: make(map[string]*model.EventSeatState)} }

func (m *memSeats) hold(seatID, holdID string) {
    m.mu.Lock()
    defer m.mu.Unlock()
    ref := holdID
    m.rows[seatID] = &model.EventSeatState{SeatID: seatID, Status: model.SeatHeld, HoldRef: &ref}
}

func (m *memSeats) sell(seatID, orderID string) {
    m.mu.Lock()
    defer m.mu.Unlock()
    ref := orderID
    m.rows[seatID] = &model.EventSeatState{SeatID: seatID, Status: model.SeatSold, OrderRef: &ref}
}

func (m *memSeats) status(seatID string) string {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.rows[seatID].Status
}

func (m *memSeats) ReleaseHeld(ctx context.Context, eventID string, seatIDs []string, holdID string) ([]string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var released []string
    for _, id := range seatIDs {
        row, ok := m.rows[id]
        if !ok || row.Status != model.SeatHeld || row.HoldRef == nil || *row.HoldRef != holdID {
            continue
        }
        row.Status = model.SeatAvailable
        row.HoldRef = nil
        released = append(released, id)
    }
    return released, nil
}

type memHolds struct {
    mu   sync.Mutex
    byID map[string]*model.SeatHold
}

func newMemHolds() *memHolds { return &memHolds{byID: make(map[string]*model.SeatHold)} }

func (m *memHolds) add(h *model.SeatHold) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.byID[h.ID] = h
}

func (m *memHolds) has(id string) bool {
    m.mu.Lock()
    defer m.mu.Unlock()
    _, ok := m.byID[id]
    return ok
}

func (m *memHolds) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.SeatHold, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []*model.SeatHold
    for _, h := range m.byID {
        if h.ExpiresAt.Before(now) && len(out) < limit {
            c := *h
            out = append(out, &c)
        }
    }
    return out, nil
}

func (m *memHolds) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.SeatHold, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []*model.SeatHold
    for _, h := range m.byID {
        if !h.ExpiresAt.Before(from) && h.ExpiresAt.Before(to) {
            c := *h
            out = append(out, &c)
        }
    }
    return out, nil
}

func (m *memHolds) Delete(ctx context.Context, id string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.byID, id)
    return nil
}

type sink struct {
    mu   sync.Mutex
    msgs []realtime.Message
}

func (s *sink) Publish(eventID string, msg realtime.Message) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.msgs = append(s.msgs, msg)
}

func (s *sink) byType(t string) []realtime.Message {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []realtime.Message
    for _, m := range s.msgs {
        if m.Type == t {
            out = append(out, m)
        }
    }
    return out
}

// failingMirror always errors; sweeps must continue regardless.
type failingMirror struct{}

func (failingMirror) Delete(ctx context.Context, holdID string) error {
    return errors.New("redis gone")
}

func expiredHold(id, eventID, session string, seatIDs []string, expiredFor time.Duration) *model.SeatHold {
    return &model.SeatHold{
        ID:        id,
        EventID:   eventID,
        SeatIDs:   seatIDs,
        SessionID: session,
        ExpiresAt: time.Now().UTC().Add(-expiredFor),
        CreatedAt: time.Now().UTC().Add(-expiredFor - time.Minute),
    }
}

// An expired hold is reclaimed: seats return to AVAILABLE, the hold row
// disappears, and both a hold_expired and an availability update are
// broadcast.
func TestSweepReclaimsExpiredHold(t *testing.T) {
    seats := newMemSeats()
    holds := newMemHolds()
    s := &sink{}
    e := NewExpirer(holds, seats, failingMirror{}, s, time.Minute)

    h := expiredHold("h1", "E1", "sess1", []string{"A-R1-S1", "A-R1-S2"}, time.Minute)
    holds.add(h)
    seats.hold("A-R1-S1", "h1")
    seats.hold("A-R1-S2", "h1")

    require.NoError(t, e.Sweep(context.Background()))

    assert.Equal(t, model.SeatAvailable, seats.status("A-R1-S1"))
    assert.Equal(t, model.SeatAvailable, seats.status("A-R1-S2"))
    assert.False(t, holds.has("h1"), "hold row deleted")

    expired := s.byType(realtime.TypeHoldExpired)
    require.Len(t, expired, 1)
    assert.ElementsMatch(t, []string{"A-R1-S1", "A-R1-S2"}, expired[0].SeatIDs)

    updates := s.byType(realtime.TypeSeatAvailabilityUpdate)
    require.Len(t, updates, 1)
    assert.Equal(t, "E1", updates[0].EventID)
    assert.Len(t, updates[0].Updates, 2)

    // Re-running the sweep finds nothing to do.
    require.NoError(t, e.Sweep(context.Background()))
    assert.Len(t, s.byType(realtime.TypeHoldExpired), 1)
}

// A live hold is left alone.
func TestSweepIgnoresLiveHolds(t *testing.T) {
    seats := newMemSeats()
    holds := newMemHolds()
    s := &sink{}
    e := NewExpirer(holds, seats, nil, s, time.Minute)

    h := expiredHold("h1", "E1", "sess1", []string{"A-R1-S1"}, -10*time.Minute) // expires in the future
    holds.add(h)
    seats.hold("A-R1-S1", "h1")

    require.NoError(t, e.Sweep(context.Background()))
    assert.Equal(t, model.SeatHeld, seats.status("A-R1-S1"))
    assert.True(t, holds.has("h1"))
    assert.Empty(t, s.msgs)
}

// Reclamation racing a finalize: the seat was already sold when the
// sweep ran, so the conditional update leaves it SOLD and no
// availability update is emitted for it.
func TestSweepLosesRaceAgainstFinalize(t *testing.T) {
    seats := newMemSeats()
    holds := newMemHolds()
    s := &sink{}
    e := NewExpirer(holds, seats, nil, s, time.Minute)

    holds.add(expiredHold("h1", "E1", "sess1", []string{"A-R1-S1"}, time.Minute))
    seats.sell("A-R1-S1", "order-9")

    require.NoError(t, e.Sweep(context.Background()))

    assert.Equal(t, model.SeatSold, seats.status("A-R1-S1"), "sold seat stays sold")
    assert.False(t, holds.has("h1"), "consumed hold row still cleaned up")
    assert.Empty(t, s.byType(realtime.TypeSeatAvailabilityUpdate))
}

// Holds for different events are reclaimed in one sweep with one
// aggregated availability update per event.
func TestSweepAggregatesPerEvent(t *testing.T) {
    seats := newMemSeats()
    holds := newMemHolds()
    s := &sink{}
    e := NewExpirer(holds, seats, nil, s, time.Minute)

    holds.add(expiredHold("h1", "E1", "sess1", []string{"A-R1-S1"}, time.Minute))
    holds.add(expiredHold("h2", "E2", "sess2", []string{"B-R1-S1"}, time.Minute))
    seats.hold("A-R1-S1", "h1")
    seats.hold("B-R1-S1", "h2")

    require.NoError(t, e.Sweep(context.Background()))

    updates := s.byType(realtime.TypeSeatAvailabilityUpdate)
    require.Len(t, updates, 2)
    events := map[string]bool{}
    for _, u := range updates {
        events[u.EventID] = true
    }
    assert.True(t, events["E1"] && events["E2"])
}

// Sessions whose hold lapses before the next tick get a targeted
// warning.
func TestWarnExpiringSoon(t *testing.T) {
    seats := newMemSeats()
    holds := newMemHolds()
    s := &sink{}
    e := NewExpirer(holds, seats, nil, s, time.Minute)

    soon := expiredHold("h1", "E1", "sess1", []string{"A-R1-S1"}, -30*time.Second) // expires in 30s
    later := expiredHold("h2", "E1", "sess2", []string{"A-R1-S2"}, -30*time.Minute)
    holds.add(soon)
    holds.add(later)

    e.warnExpiring(context.Background())

    warns := s.byType(realtime.TypeHoldExpiringSoon)
    require.Len(t, warns, 1)
    assert.Equal(t, "sess1", warns[0].SessionID)
    require.NotNil(t, warns[0].ExpiresAt)
}
