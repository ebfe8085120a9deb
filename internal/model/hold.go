package model

import "time"

// SeatHold represents a time-bounded reservation of one or more seats
// for a single event.  Holds prevent concurrent buyers from grabbing
// the same seats while a session walks through checkout.  A session
// owns at most one live hold per event; adding seats extends the
// existing hold rather than creating a second one.  Holds expire at
// their expires_at timestamp and are reclaimed by the expiration
// worker.
//
// Fields:
//  ID        – opaque hold identifier (uuid).
//  EventID   – event for which the seats are held.
//  SeatIDs   – non-empty set of seat identifiers covered by the hold.
//  SessionID – client correlation token owning the hold.
//  UserID    – user who holds the seats (nil for guests).
//  ExpiresAt – when the hold expires.
//  CreatedAt – when the hold was created.
type SeatHold struct {
    ID        string    // seat_holds.id
    EventID   string    // seat_holds.event_id
    SeatIDs   []string  // seat_holds.seat_ids (JSON column)
    SessionID string    // seat_holds.session_id
    UserID    *uint64   // seat_holds.user_id (nullable)
    ExpiresAt time.Time // seat_holds.expires_at
    CreatedAt time.Time // seat_holds.created_at
}

// Expired reports whether the hold's expiry has passed at the given
// instant.  Comparisons are done in UTC.
func (h *SeatHold) Expired(now time.Time) bool {
    return !h.ExpiresAt.After(now.UTC())
}

// Contains reports whether the hold covers the given seat.
func (h *SeatHold) Contains(seatID string) bool {
    for _, id := range h.SeatIDs {
        if id == seatID {
            return true
        }
    }
    return false
}
