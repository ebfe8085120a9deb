// Package realtime fans seat-status deltas out to clients watching an
// event.  Rooms are keyed by event id; the broadcaster is a pluggable
// sink so production can publish across nodes through the broker while
// tests sink messages into an in-memory hub.  Delivery is best-effort
// fire-and-forget: the authoritative state is always the seat state
// store, which clients may re-read after a reconnect.
package realtime

import "time"

// Message type identifiers as they appear on the wire.
const (
    TypeSeatAvailabilityUpdate = "seat_availability_update"
    TypeHoldExpired            = "hold_expired"
    TypeHoldExpiringSoon       = "hold_expiring_soon"
    TypeViewersUpdate          = "viewers_update"
    TypeJoinedEvent            = "joined_event"
)

// SeatUpdate is a single seat delta inside a seat_availability_update.
type SeatUpdate struct {
    SeatID string `json:"seatId"`
    Status string `json:"status"`
}

// Message is the envelope shared by every broadcast type.  Unused
// fields are omitted from the wire form.  SessionID targets a message
// at a single session (hold_expiring_soon); empty means the whole room.
// Duplicates are possible; clients apply updates idempotently.
type Message struct {
    Type      string       `json:"type"`
    EventID   string       `json:"eventId"`
    Updates   []SeatUpdate `json:"updates,omitempty"`
    SeatIDs   []string     `json:"seatIds,omitempty"`
    ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
    Count     *int         `json:"count,omitempty"`
    Text      string       `json:"message,omitempty"`
    SessionID string       `json:"sessionId,omitempty"`
    Timestamp time.Time    `json:"timestamp"`
}

// SeatAvailability builds the delta message emitted on grant, release,
// finalize and expiration.
func SeatAvailability(eventID string, updates []SeatUpdate) Message {
    return Message{
        Type:      TypeSeatAvailabilityUpdate,
        EventID:   eventID,
        Updates:   updates,
        Timestamp: time.Now().UTC(),
    }
}

// HoldExpired builds the message the expiration worker emits alongside
// the availability update for a reclaimed hold.
func HoldExpired(eventID string, seatIDs []string) Message {
    return Message{
        Type:      TypeHoldExpired,
        EventID:   eventID,
        SeatIDs:   seatIDs,
        Timestamp: time.Now().UTC(),
    }
}

// HoldExpiringSoon warns the owning session shortly before its hold
// lapses.
func HoldExpiringSoon(eventID, sessionID string, expiresAt time.Time) Message {
    exp := expiresAt.UTC()
    return Message{
        Type:      TypeHoldExpiringSoon,
        EventID:   eventID,
        ExpiresAt: &exp,
        Text:      "your seat hold is about to expire",
        SessionID: sessionID,
        Timestamp: time.Now().UTC(),
    }
}

// ViewersUpdate reports current room membership, best-effort.
func ViewersUpdate(eventID string, count int) Message {
    return Message{
        Type:      TypeViewersUpdate,
        EventID:   eventID,
        Count:     &count,
        Timestamp: time.Now().UTC(),
    }
}

// JoinedEvent greets a subscriber that just entered a room.
func JoinedEvent(eventID string) Message {
    return Message{
        Type:      TypeJoinedEvent,
        EventID:   eventID,
        Text:      "joined event " + eventID,
        Timestamp: time.Now().UTC(),
    }
}

// Broadcaster is the sink the services publish through.  Publishing
// never fails from the caller's point of view: implementations log and
// swallow their own errors.
type Broadcaster interface {
    Publish(eventID string, msg Message)
}

// Tee duplicates every message to multiple sinks, e.g. the in-process
// hub plus the broker for cross-node fan-out.
type Tee []Broadcaster

func (t Tee) Publish(eventID string, msg Message) {
    for _, b := range t {
        b.Publish(eventID, msg)
    }
}
