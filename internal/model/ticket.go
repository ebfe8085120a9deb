package model

import "time"

// Ticket is issued for a single seat when its order is finalized.  The
// Code doubles as the QR payload; encryption of the rendered QR image
// happens in the scanning subsystem, not here.
type Ticket struct {
    ID       string    // tickets.id
    OrderID  string    // tickets.order_id
    EventID  string    // tickets.event_id
    SeatID   string    // tickets.seat_id
    Code     string    // tickets.code
    IssuedAt time.Time // tickets.issued_at
}
