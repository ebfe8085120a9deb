package realtime

import (
    "sync"
)

// subscriberBuffer is the per-subscriber channel depth.  A subscriber
// that falls this far behind starts losing messages; it can always
// resync from the seat state store.
const subscriberBuffer = 64

// Subscription is one client's membership in an event room.  Messages
// arrive on C in the order they were published to the room.  Close must
// be called exactly once when the client leaves.
type Subscription struct {
    C chan Message

    hub     *Hub
    eventID string
    session string
    once    sync.Once
}

// Close leaves the room and releases the subscription's channel.
func (s *Subscription) Close() {
    s.once.Do(func() { s.hub.unsubscribe(s) })
}

// Hub is an in-process Broadcaster with per-event rooms.  The publish
// path holds the room lock while fanning out, which preserves the order
// the backend committed its updates in for every subscriber of a room.
// Sends never block: a slow subscriber drops messages instead of
// stalling the room (delivery is best-effort and dropped messages are
// not resent; the store stays authoritative).
type Hub struct {
    mu    sync.Mutex
    rooms map[string]map[*Subscription]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
    return &Hub{rooms: make(map[string]map[*Subscription]struct{})}
}

// Subscribe joins the room for an event.  The new subscriber receives a
// joined_event greeting and the whole room receives a refreshed viewer
// count.  sessionID may be empty for anonymous watchers; it is used to
// route session-targeted messages.
func (h *Hub) Subscribe(eventID, sessionID string) *Subscription {
    sub := &Subscription{
        C:       make(chan Message, subscriberBuffer),
        hub:     h,
        eventID: eventID,
        session: sessionID,
    }
    h.mu.Lock()
    room := h.rooms[eventID]
    if room == nil {
        room = make(map[*Subscription]struct{})
        h.rooms[eventID] = room
    }
    room[sub] = struct{}{}
    count := len(room)
    h.deliverLocked(room, JoinedEvent(eventID), sub)
    h.deliverLocked(room, ViewersUpdate(eventID, count), nil)
    h.mu.Unlock()
    return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
    h.mu.Lock()
    room := h.rooms[sub.eventID]
    if room != nil {
        delete(room, sub)
        if len(room) == 0 {
            delete(h.rooms, sub.eventID)
        } else {
            h.deliverLocked(room, ViewersUpdate(sub.eventID, len(room)), nil)
        }
    }
    h.mu.Unlock()
    close(sub.C)
}

// Publish fans a message out to every subscriber of the event's room.
// Messages carrying a SessionID only reach subscriptions registered
// under that session.
func (h *Hub) Publish(eventID string, msg Message) {
    h.mu.Lock()
    if room := h.rooms[eventID]; room != nil {
        h.deliverLocked(room, msg, nil)
    }
    h.mu.Unlock()
}

// Viewers reports current room membership.
func (h *Hub) Viewers(eventID string) int {
    h.mu.Lock()
    defer h.mu.Unlock()
    return len(h.rooms[eventID])
}

// deliverLocked sends to every matching subscriber without blocking.
// only restricts delivery to a single subscription (greetings).
func (h *Hub) deliverLocked(room map[*Subscription]struct{}, msg Message, only *Subscription) {
    for sub := range room {
        if only != nil && sub != only {
            continue
        }
        if msg.SessionID != "" && sub.session != msg.SessionID {
            continue
        }
        select {
        case sub.C <- msg:
        default: // subscriber too slow; it resyncs from the store
        }
    }
}
