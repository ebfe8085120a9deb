package booking

import (
    "context"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
)

// The booking services talk to their stores through narrow interfaces
// so tests can substitute in-memory implementations.  The SQL
// repositories in internal/repository satisfy all of them.

// SeatStore is the seat state store: the single source of truth for
// availability.  All mutations are conditional updates that report how
// many rows they actually modified.
type SeatStore interface {
    GetMany(ctx context.Context, eventID string, seatIDs []string) ([]model.EventSeatState, error)
    ListByEvent(ctx context.Context, eventID string) ([]model.EventSeatState, error)
    // HoldAvailable flips AVAILABLE seats to HELD under holdID and
    // returns the number of seats actually flipped.
    HoldAvailable(ctx context.Context, eventID string, seatIDs []string, holdID string) (int64, error)
    // ReleaseHeld flips seats back to AVAILABLE where they are still
    // HELD under holdID, returning the seats actually released.
    ReleaseHeld(ctx context.Context, eventID string, seatIDs []string, holdID string) ([]string, error)
    // MarkSold flips the seats to SOLD under orderID wherever they are
    // not SOLD already, returning the number of rows modified.
    MarkSold(ctx context.Context, eventID string, seatIDs []string, orderID string) (int64, error)
}

// HoldStore persists seat holds.
type HoldStore interface {
    Create(ctx context.Context, h *model.SeatHold) error
    GetByID(ctx context.Context, id string) (*model.SeatHold, error)
    GetBySession(ctx context.Context, eventID, sessionID string) (*model.SeatHold, error)
    Update(ctx context.Context, h *model.SeatHold) error
    Delete(ctx context.Context, id string) error
}

// OrderStore persists orders.
type OrderStore interface {
    Create(ctx context.Context, o *model.Order) error
    GetByID(ctx context.Context, id string) (*model.Order, error)
    GetByPaymentIntentID(ctx context.Context, intentID string) (*model.Order, error)
    MarkSucceeded(ctx context.Context, id string, ticketIDs []string) error
    // UpdatePaymentStatus transitions from -> to conditionally and
    // reports whether the row was actually moved.
    UpdatePaymentStatus(ctx context.Context, id, from, to string) (bool, error)
}

// TicketStore persists issued tickets.
type TicketStore interface {
    CreateBulk(ctx context.Context, tickets []model.Ticket) error
    ListByOrder(ctx context.Context, orderID string) ([]model.Ticket, error)
}

// EventStore reads events and maintains the sold counter.
type EventStore interface {
    GetByID(ctx context.Context, id string) (*model.Event, error)
    IncrementSoldCount(ctx context.Context, id string, n int) error
}

// HoldMirror is the optional side-channel cache of live holds.  A nil
// *cache.HoldCache satisfies it with no-ops.
type HoldMirror interface {
    Put(ctx context.Context, h *model.SeatHold) error
    Get(ctx context.Context, holdID string) (*model.SeatHold, error)
    Delete(ctx context.Context, holdID string) error
}

// Notifier dispatches best-effort order confirmations (email pipeline).
type Notifier interface {
    PublishOrderConfirmed(ctx context.Context, o *model.Order) error
}
