package booking

// In-memory store implementations used by the arbiter and coordinator
// tests.  memSeats mirrors the semantics of the SQL repository exactly:
// every mutation is a single atomic conditional update that reports how
// many rows matched its predicate, which is what makes the concurrency
// tests meaningful.

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
    "github.com/neiloy-neil/tiki-taka-backend/internal/realtime"
)

type memSeats struct {
    mu   sync.Mutex
    rows map[string]map[string]*model.EventSeatState // eventID -> seatID -> row
}

func newMemSeats() *memSeats {
    return &memSeats{rows: make(map[string]map[string]*model.EventSeatState)}
}

func (m *memSeats) seed(eventID string, seatIDs ...string) {
    m.mu.Lock()
    defer m.mu.Unlock()
    ev := m.rows[eventID]
    if ev == nil {
        ev = make(map[string]*model.EventSeatState)
        m.rows[eventID] = ev
    }
    for _, id := range seatIDs {
        ev[id] = &model.EventSeatState{
            EventID:     eventID,
            SeatID:      id,
            Status:      model.SeatAvailable,
            LastUpdated: time.Now().UTC(),
        }
    }
}

func (m *memSeats) force(eventID, seatID, status string, holdRef, orderRef *string) {
    m.mu.Lock()
    defer m.mu.Unlock()
    row := m.rows[eventID][seatID]
    row.Status = status
    row.HoldRef = holdRef
    row.OrderRef = orderRef
}

func (m *memSeats) get(eventID, seatID string) model.EventSeatState {
    m.mu.Lock()
    defer m.mu.Unlock()
    return *m.rows[eventID][seatID]
}

func (m *memSeats) GetMany(ctx context.Context, eventID string, seatIDs []string) ([]model.EventSeatState, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.EventSeatState
    for _, id := range seatIDs {
        if row, ok := m.rows[eventID][id]; ok {
            out = append(out, *row)
        }
    }
    return out, nil
}

func (m *memSeats) ListByEvent(ctx context.Context, eventID string) ([]model.EventSeatState, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var out []model.EventSeatState
    for _, row := range m.rows[eventID] {
        out = append(out, *row)
    }
    return out, nil
}

func (m *memSeats) HoldAvailable(ctx context.Context, eventID string, seatIDs []string, holdID string) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var n int64
    ref := holdID
    for _, id := range seatIDs {
        row, ok := m.rows[eventID][id]
        if !ok || row.Status != model.SeatAvailable {
            continue
        }
        row.Status = model.SeatHeld
        row.HoldRef = &ref
        row.Version++
        row.LastUpdated = time.Now().UTC()
        n++
    }
    return n, nil
}

func (m *memSeats) ReleaseHeld(ctx context.Context, eventID string, seatIDs []string, holdID string) ([]string, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var released []string
    for _, id := range seatIDs {
        row, ok := m.rows[eventID][id]
        if !ok || row.Status != model.SeatHeld || row.HoldRef == nil || *row.HoldRef != holdID {
            continue
        }
        row.Status = model.SeatAvailable
        row.HoldRef = nil
        row.Version++
        row.LastUpdated = time.Now().UTC()
        released = append(released, id)
    }
    return released, nil
}

func (m *memSeats) MarkSold(ctx context.Context, eventID string, seatIDs []string, orderID string) (int64, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    var n int64
    ref := orderID
    for _, id := range seatIDs {
        row, ok := m.rows[eventID][id]
        if !ok || row.Status == model.SeatSold {
            continue
        }
        row.Status = model.SeatSold
        row.HoldRef = nil
        row.OrderRef = &ref
        row.Version++
        row.LastUpdated = time.Now().UTC()
        n++
    }
    return n, nil
}

func (m *memSeats) countByStatus(eventID string) map[string]int {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := make(map[string]int)
    for _, row := range m.rows[eventID] {
        out[row.Status]++
    }
    return out
}

type memHolds struct {
    mu   sync.Mutex
    byID map[string]*model.SeatHold
}

func newMemHolds() *memHolds {
    return &memHolds{byID: make(map[string]*model.SeatHold)}
}

func copyHold(h *model.SeatHold) *model.SeatHold {
    c := *h
    c.SeatIDs = append([]string(nil), h.SeatIDs...)
    return &c
}

func (m *memHolds) Create(ctx context.Context, h *model.SeatHold) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, ex := range m.byID {
        if ex.EventID == h.EventID && ex.SessionID == h.SessionID {
            return errors.New("duplicate hold for session")
        }
    }
    m.byID[h.ID] = copyHold(h)
    return nil
}

func (m *memHolds) GetByID(ctx context.Context, id string) (*model.SeatHold, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    h, ok := m.byID[id]
    if !ok {
        return nil, ErrNotFound
    }
    return copyHold(h), nil
}

func (m *memHolds) GetBySession(ctx context.Context, eventID, sessionID string) (*model.SeatHold, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, h := range m.byID {
        if h.EventID == eventID && h.SessionID == sessionID {
            return copyHold(h), nil
        }
    }
    return nil, ErrNotFound
}

func (m *memHolds) Update(ctx context.Context, h *model.SeatHold) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.byID[h.ID]; !ok {
        return ErrNotFound
    }
    m.byID[h.ID] = copyHold(h)
    return nil
}

func (m *memHolds) Delete(ctx context.Context, id string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    delete(m.byID, id)
    return nil
}

func (m *memHolds) count() int {
    m.mu.Lock()
    defer m.mu.Unlock()
    return len(m.byID)
}

type memEvents struct {
    mu   sync.Mutex
    byID map[string]*model.Event
}

func newMemEvents() *memEvents {
    return &memEvents{byID: make(map[string]*model.Event)}
}

func (m *memEvents) seedPublished(id string, zones map[string]model.PricingZone, capacity uint32) {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.byID[id] = &model.Event{
        ID:            id,
        Name:          "event " + id,
        Status:        model.EventPublished,
        PricingZones:  zones,
        TotalCapacity: capacity,
    }
}

func (m *memEvents) GetByID(ctx context.Context, id string) (*model.Event, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    e, ok := m.byID[id]
    if !ok {
        return nil, ErrNotFound
    }
    c := *e
    return &c, nil
}

func (m *memEvents) IncrementSoldCount(ctx context.Context, id string, n int) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if e, ok := m.byID[id]; ok {
        e.SoldCount += uint32(n)
    }
    return nil
}

func (m *memEvents) soldCount(id string) uint32 {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.byID[id].SoldCount
}

type memOrders struct {
    mu   sync.Mutex
    byID map[string]*model.Order
}

func newMemOrders() *memOrders {
    return &memOrders{byID: make(map[string]*model.Order)}
}

func copyOrder(o *model.Order) *model.Order {
    c := *o
    c.SeatIDs = append([]string(nil), o.SeatIDs...)
    c.TicketIDs = append([]string(nil), o.TicketIDs...)
    return &c
}

func (m *memOrders) Create(ctx context.Context, o *model.Order) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.byID[o.ID] = copyOrder(o)
    return nil
}

func (m *memOrders) GetByID(ctx context.Context, id string) (*model.Order, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    o, ok := m.byID[id]
    if !ok {
        return nil, ErrNotFound
    }
    return copyOrder(o), nil
}

func (m *memOrders) GetByPaymentIntentID(ctx context.Context, intentID string) (*model.Order, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, o := range m.byID {
        if o.PaymentIntentID == intentID {
            return copyOrder(o), nil
        }
    }
    return nil, ErrNotFound
}

func (m *memOrders) MarkSucceeded(ctx context.Context, id string, ticketIDs []string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    o, ok := m.byID[id]
    if !ok {
        return ErrNotFound
    }
    o.PaymentStatus = model.PaymentSucceeded
    o.TicketIDs = append([]string(nil), ticketIDs...)
    return nil
}

func (m *memOrders) UpdatePaymentStatus(ctx context.Context, id, from, to string) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    o, ok := m.byID[id]
    if !ok {
        return false, nil
    }
    if o.PaymentStatus != from {
        return false, nil
    }
    o.PaymentStatus = to
    return true, nil
}

type memTickets struct {
    mu      sync.Mutex
    byOrder map[string][]model.Ticket
}

func newMemTickets() *memTickets {
    return &memTickets{byOrder: make(map[string][]model.Ticket)}
}

func (m *memTickets) CreateBulk(ctx context.Context, tickets []model.Ticket) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    for _, t := range tickets {
        m.byOrder[t.OrderID] = append(m.byOrder[t.OrderID], t)
    }
    return nil
}

func (m *memTickets) ListByOrder(ctx context.Context, orderID string) ([]model.Ticket, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    return append([]model.Ticket(nil), m.byOrder[orderID]...), nil
}

// sink records every broadcast for assertions.
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

// seatTransitions flattens availability updates for one seat in order.
func (s *sink) seatTransitions(seatID string) []string {
    s.mu.Lock()
    defer s.mu.Unlock()
    var out []string
    for _, m := range s.msgs {
        if m.Type != realtime.TypeSeatAvailabilityUpdate {
            continue
        }
        for _, u := range m.Updates {
            if u.SeatID == seatID {
                out = append(out, u.Status)
            }
        }
    }
    return out
}
