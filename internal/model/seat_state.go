package model

import "time"

// Seat status values for an EventSeatState row.  A seat starts out
// AVAILABLE when the event is published, becomes HELD while a live
// SeatHold references it and SOLD once an order has been finalized.
// SOLD is terminal for the lifetime of the event.
const (
    SeatAvailable = "AVAILABLE"
    SeatHeld      = "HELD"
    SeatSold      = "SOLD"
)

// EventSeatState tracks the live availability of a single seat for a
// single event.  There is exactly one row per (event, seat) pair; rows
// are created in bulk when the event is published and mutated only
// through conditional updates predicated on the current status.
//
// Fields:
//  EventID     – event this row belongs to.
//  SeatID      – seat identifier (SECTION-ROW-SEAT convention).
//  Section     – section code extracted from SeatID at publish time.
//  Status      – AVAILABLE, HELD or SOLD.
//  HoldRef     – id of the hold owning the seat (non-nil iff HELD).
//  OrderRef    – id of the order that bought the seat (non-nil iff SOLD).
//  PosX, PosY  – optional seat-map coordinates for the seat plan.
//  Version     – monotonic counter bumped by every conditional update.
//  LastUpdated – timestamp of the last status transition.
type EventSeatState struct {
    EventID     string    // event_seats.event_id
    SeatID      string    // event_seats.seat_id
    Section     string    // event_seats.section
    Status      string    // event_seats.status
    HoldRef     *string   // event_seats.hold_ref (nullable)
    OrderRef    *string   // event_seats.order_ref (nullable)
    PosX        *float64  // event_seats.pos_x (nullable)
    PosY        *float64  // event_seats.pos_y (nullable)
    Version     uint32    // event_seats.version
    LastUpdated time.Time // event_seats.last_updated
}
