package booking

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

func zoneA() map[string]model.PricingZone {
    return map[string]model.PricingZone{
        "A": {Name: "Zone A", PriceCents: 1000, Currency: "USD"},
    }
}

type arbiterFixture struct {
    seats  *memSeats
    holds  *memHolds
    events *memEvents
    sink   *sink
    arb    *Arbiter
}

func newArbiterFixture(t *testing.T, seatIDs ...string) *arbiterFixture {
    t.Helper()
    f := &arbiterFixture{
        seats:  newMemSeats(),
        holds:  newMemHolds(),
        events: newMemEvents(),
        sink:   &sink{},
    }
    f.events.seedPublished("E1", zoneA(), uint32(len(seatIDs)))
    f.seats.seed("E1", seatIDs...)
    f.arb = NewArbiter(f.seats, f.holds, f.events, nil, f.sink, 10*time.Minute, 10)
    return f
}

func TestHoldSeatsGrantsAndBroadcasts(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1", "A-R1-S2", "A-R1-S3")
    ctx := context.Background()

    hold, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1", "A-R1-S2"}, "sess1", nil)
    require.NoError(t, err)
    assert.ElementsMatch(t, []string{"A-R1-S1", "A-R1-S2"}, hold.SeatIDs)
    assert.True(t, hold.ExpiresAt.After(time.Now()))

    for _, id := range hold.SeatIDs {
        st := f.seats.get("E1", id)
        assert.Equal(t, model.SeatHeld, st.Status)
        require.NotNil(t, st.HoldRef)
        assert.Equal(t, hold.ID, *st.HoldRef)
    }
    // Untouched seat stays available.
    assert.Equal(t, model.SeatAvailable, f.seats.get("E1", "A-R1-S3").Status)

    updates := f.sink.byType("seat_availability_update")
    require.Len(t, updates, 1)
    assert.Len(t, updates[0].Updates, 2)
}

func TestHoldSeatsValidation(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1")
    ctx := context.Background()

    _, err := f.arb.HoldSeats(ctx, "E1", nil, "sess1", nil)
    assert.ErrorIs(t, err, ErrInvalidInput)

    _, err = f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "", nil)
    assert.ErrorIs(t, err, ErrInvalidInput)

    many := make([]string, 11)
    for i := range many {
        many[i] = "A-R1-S" + string(rune('0'+i))
    }
    _, err = f.arb.HoldSeats(ctx, "E1", many, "sess1", nil)
    assert.ErrorIs(t, err, ErrInvalidInput)

    _, err = f.arb.HoldSeats(ctx, "E1", []string{"A-R9-S9"}, "sess1", nil)
    assert.ErrorIs(t, err, ErrNotFound)

    _, err = f.arb.HoldSeats(ctx, "E9", []string{"A-R1-S1"}, "sess1", nil)
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestHoldSeatsRejectsUnpublishedEvent(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1")
    f.events.byID["E1"].Status = model.EventDraft

    _, err := f.arb.HoldSeats(context.Background(), "E1", []string{"A-R1-S1"}, "sess1", nil)
    assert.ErrorIs(t, err, ErrInvalidState)
}

// Two sessions race for the same seat: exactly one wins, the seat ends
// HELD under the winner's hold.
func TestHoldSeatsTwoSessionsRaceOneSeat(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1")
    ctx := context.Background()

    type result struct {
        hold *model.SeatHold
        err  error
    }
    results := make([]result, 2)
    var wg sync.WaitGroup
    for i, sess := range []string{"sess1", "sess2"} {
        wg.Add(1)
        go func(i int, sess string) {
            defer wg.Done()
            h, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, sess, nil)
            results[i] = result{h, err}
        }(i, sess)
    }
    wg.Wait()

    var winners, losers int
    var winner *model.SeatHold
    for _, r := range results {
        if r.err == nil {
            winners++
            winner = r.hold
        } else {
            assert.ErrorIs(t, r.err, ErrSeatConflict)
            losers++
        }
    }
    require.Equal(t, 1, winners, "exactly one session must win")
    require.Equal(t, 1, losers)

    st := f.seats.get("E1", "A-R1-S1")
    assert.Equal(t, model.SeatHeld, st.Status)
    require.NotNil(t, st.HoldRef)
    assert.Equal(t, winner.ID, *st.HoldRef)
    assert.Equal(t, 1, f.holds.count())
}

// Partial grant rolls back completely: requesting a free and a taken
// seat fails and leaves the free seat untouched.
func TestHoldSeatsPartialRollback(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1", "A-R1-S2", "A-R1-S3")
    ctx := context.Background()

    _, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1", "A-R1-S2"}, "sess1", nil)
    require.NoError(t, err)

    _, err = f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S2", "A-R1-S3"}, "sess2", nil)
    assert.ErrorIs(t, err, ErrSeatConflict)

    assert.Equal(t, model.SeatAvailable, f.seats.get("E1", "A-R1-S3").Status,
        "loser's free seat must not remain held")
    assert.Equal(t, 1, f.holds.count(), "no hold row for the failed call")
}

// Holding more seats with the same session extends the hold: seat set
// union, refreshed expiry, same hold id.
func TestHoldSeatsExtension(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1", "A-R1-S2")
    ctx := context.Background()

    t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    f.arb.now = func() time.Time { return t0 }
    first, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "sess1", nil)
    require.NoError(t, err)

    f.arb.now = func() time.Time { return t0.Add(2 * time.Minute) }
    second, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S2"}, "sess1", nil)
    require.NoError(t, err)

    assert.Equal(t, first.ID, second.ID)
    assert.ElementsMatch(t, []string{"A-R1-S1", "A-R1-S2"}, second.SeatIDs)
    assert.Equal(t, t0.Add(2*time.Minute).Add(10*time.Minute), second.ExpiresAt)
    assert.Equal(t, 1, f.holds.count())
}

// Re-requesting seats the session already holds refreshes the expiry
// without touching seat state.
func TestHoldSeatsIdempotentRepeat(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1")
    ctx := context.Background()

    t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    f.arb.now = func() time.Time { return t0 }
    first, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "sess1", nil)
    require.NoError(t, err)
    v0 := f.seats.get("E1", "A-R1-S1").Version

    f.arb.now = func() time.Time { return t0.Add(time.Minute) }
    second, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "sess1", nil)
    require.NoError(t, err)

    assert.Equal(t, first.ID, second.ID)
    assert.Equal(t, t0.Add(time.Minute).Add(10*time.Minute), second.ExpiresAt)
    assert.Equal(t, v0, f.seats.get("E1", "A-R1-S1").Version, "no seat write on pure extension")
}

// A stale foreign hold (expired but not yet swept) is reclaimed
// opportunistically and the seat granted to the new session.
func TestHoldSeatsReclaimsStaleHold(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1", "A-R1-S2")
    ctx := context.Background()

    t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    f.arb.now = func() time.Time { return t0 }
    stale, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1", "A-R1-S2"}, "sess1", nil)
    require.NoError(t, err)

    // Past the TTL, a different session wants one of the seats.
    f.arb.now = func() time.Time { return t0.Add(11 * time.Minute) }
    fresh, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "sess2", nil)
    require.NoError(t, err)

    st := f.seats.get("E1", "A-R1-S1")
    require.NotNil(t, st.HoldRef)
    assert.Equal(t, fresh.ID, *st.HoldRef)

    // The rest of the stale hold was reclaimed, not left dangling.
    assert.Equal(t, model.SeatAvailable, f.seats.get("E1", "A-R1-S2").Status)
    _, err = f.holds.GetByID(ctx, stale.ID)
    assert.ErrorIs(t, err, ErrNotFound)
}

// A seat under another session's live hold conflicts.
func TestHoldSeatsLiveForeignHoldConflicts(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1")
    ctx := context.Background()

    _, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "sess1", nil)
    require.NoError(t, err)

    _, err = f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "sess2", nil)
    assert.ErrorIs(t, err, ErrSeatConflict)
}

func TestHoldSeatsSoldSeatConflicts(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1")
    ord := "order-1"
    f.seats.force("E1", "A-R1-S1", model.SeatSold, nil, &ord)

    _, err := f.arb.HoldSeats(context.Background(), "E1", []string{"A-R1-S1"}, "sess1", nil)
    assert.ErrorIs(t, err, ErrSeatConflict)
}

func TestReleaseSeats(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1", "A-R1-S2")
    ctx := context.Background()

    hold, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1", "A-R1-S2"}, "sess1", nil)
    require.NoError(t, err)

    // Wrong session is rejected.
    err = f.arb.ReleaseSeats(ctx, hold.ID, "sess2")
    assert.ErrorIs(t, err, ErrUnauthorized)

    require.NoError(t, f.arb.ReleaseSeats(ctx, hold.ID, "sess1"))
    assert.Equal(t, model.SeatAvailable, f.seats.get("E1", "A-R1-S1").Status)
    assert.Equal(t, model.SeatAvailable, f.seats.get("E1", "A-R1-S2").Status)
    assert.Equal(t, 0, f.holds.count())

    err = f.arb.ReleaseSeats(ctx, hold.ID, "sess1")
    assert.ErrorIs(t, err, ErrNotFound)
}

// Hold exclusivity and conservation under a concurrent storm: many
// sessions fight over a small seat pool; at the end every seat is
// HELD by at most one live hold and the counts add up.
func TestConcurrentHoldStormInvariants(t *testing.T) {
    seatIDs := []string{"A-R1-S1", "A-R1-S2", "A-R1-S3", "A-R1-S4", "A-R1-S5"}
    f := newArbiterFixture(t, seatIDs...)
    ctx := context.Background()

    var wg sync.WaitGroup
    for i := 0; i < 20; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            sess := "sess-" + string(rune('a'+i))
            want := []string{seatIDs[i%len(seatIDs)], seatIDs[(i+1)%len(seatIDs)]}
            _, _ = f.arb.HoldSeats(ctx, "E1", want, sess, nil)
        }(i)
    }
    wg.Wait()

    counts := f.seats.countByStatus("E1")
    assert.Equal(t, len(seatIDs), counts[model.SeatAvailable]+counts[model.SeatHeld]+counts[model.SeatSold],
        "conservation: every seat accounted for")

    // Cross-reference: each HELD seat's hold_ref resolves to a hold
    // that contains the seat, and no two holds share a seat.
    seen := make(map[string]string) // seatID -> holdID
    for _, id := range seatIDs {
        st := f.seats.get("E1", id)
        if st.Status != model.SeatHeld {
            continue
        }
        require.NotNil(t, st.HoldRef)
        h, err := f.holds.GetByID(ctx, *st.HoldRef)
        require.NoError(t, err)
        assert.True(t, h.Contains(id), "hold %s must list seat %s", h.ID, id)
        if prev, ok := seen[id]; ok {
            assert.Equal(t, prev, *st.HoldRef)
        }
        seen[id] = *st.HoldRef
    }
}

func TestAvailabilityAndSeatPlan(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1", "A-R1-S2")
    ctx := context.Background()

    _, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "sess1", nil)
    require.NoError(t, err)

    states, err := f.arb.Availability(ctx, "E1")
    require.NoError(t, err)
    assert.Len(t, states, 2)

    plan, err := f.arb.SeatPlan(ctx, "E1")
    require.NoError(t, err)
    assert.Len(t, plan.Seats, 2)
    require.Len(t, plan.Sections, 1)
    assert.Equal(t, "A", plan.Sections[0].Code)
    for _, ps := range plan.Seats {
        assert.Equal(t, "1", ps.Row)
        if ps.SeatID == "A-R1-S1" {
            assert.Equal(t, model.SeatHeld, ps.Status)
        }
    }

    _, err = f.arb.Availability(ctx, "E9")
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetHoldFallsBackToStore(t *testing.T) {
    f := newArbiterFixture(t, "A-R1-S1")
    ctx := context.Background()

    hold, err := f.arb.HoldSeats(ctx, "E1", []string{"A-R1-S1"}, "sess1", nil)
    require.NoError(t, err)

    got, err := f.arb.GetHold(ctx, hold.ID)
    require.NoError(t, err)
    assert.Equal(t, hold.ID, got.ID)

    _, err = f.arb.GetHold(ctx, "missing")
    assert.ErrorIs(t, err, ErrNotFound)
}
