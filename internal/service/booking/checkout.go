package booking

import (
    "context"
    "fmt"
    "log"
    "math"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
    "github.com/neiloy-neil/tiki-taka-backend/internal/payment"
    "github.com/neiloy-neil/tiki-taka-backend/internal/realtime"
    "github.com/neiloy-neil/tiki-taka-backend/internal/utils"
)

// Fee and tax rates applied on top of the zone subtotal.
const (
    feeRate = 0.05
    taxRate = 0.08
)

// Coordinator turns a held selection into a sold order through the
// external payment authority.  Creating an intent leaves the seats
// HELD; only finalize — triggered by the provider webhook, or
// synchronously in mock mode — flips them to SOLD.  Finalize is
// idempotent and atomic across the order's seats: either every seat is
// SOLD under the order or none are and the order stays PENDING.
type Coordinator struct {
    seats     SeatStore
    holds     HoldStore
    orders    OrderStore
    tickets   TicketStore
    events    EventStore
    provider  payment.Provider
    notifier  Notifier
    mirror    HoldMirror
    broadcast realtime.Broadcaster

    // mock mode: no provider is configured, intents are synthetic and
    // orders finalize synchronously inside CreateCheckoutIntent.  This
    // bypasses the PENDING -> SUCCEEDED webhook transition and exists
    // for development and tests only.
    mock bool

    now func() time.Time
}

// NewCoordinator wires a checkout coordinator.  notifier and mirror may
// be nil; provider must not be (pass payment.MockProvider together with
// mock=true when no key is configured).
func NewCoordinator(seats SeatStore, holds HoldStore, orders OrderStore, tickets TicketStore, events EventStore, provider payment.Provider, notifier Notifier, mirror HoldMirror, broadcast realtime.Broadcaster, mock bool) *Coordinator {
    return &Coordinator{
        seats:     seats,
        holds:     holds,
        orders:    orders,
        tickets:   tickets,
        events:    events,
        provider:  provider,
        notifier:  notifier,
        mirror:    mirror,
        broadcast: broadcast,
        mock:      mock,
        now:       func() time.Time { return time.Now().UTC() },
    }
}

// CheckoutInput is the validated request for a checkout intent.
type CheckoutInput struct {
    EventID   string
    SeatIDs   []string
    Customer  model.CustomerInfo
    SessionID string
    UserID    *uint64
}

// CreateCheckoutIntent prices the selection, creates the external
// payment intent and persists a PENDING order.  Seats must be
// AVAILABLE or HELD by the caller's session (or user); a seat under a
// different session's live hold fails the whole call.  Seat states are
// not modified here — they stay HELD until finalize.  In mock mode the
// order is finalized synchronously and returned SUCCEEDED.
func (c *Coordinator) CreateCheckoutIntent(ctx context.Context, in CheckoutInput) (*model.Order, string, error) {
    seatIDs := dedupe(in.SeatIDs)
    if len(seatIDs) == 0 {
        return nil, "", fmt.Errorf("%w: seat ids are required", ErrInvalidInput)
    }
    if in.Customer.Email == "" {
        return nil, "", fmt.Errorf("%w: customer email is required", ErrInvalidInput)
    }

    event, err := c.events.GetByID(ctx, in.EventID)
    if err != nil {
        return nil, "", notFoundOr(err, "event %s", in.EventID)
    }
    if event.Status != model.EventPublished {
        return nil, "", fmt.Errorf("%w: event %s is not open for booking", ErrInvalidState, in.EventID)
    }

    states, err := c.seats.GetMany(ctx, in.EventID, seatIDs)
    if err != nil {
        return nil, "", err
    }
    if len(states) != len(seatIDs) {
        return nil, "", fmt.Errorf("%w: unknown seat in request", ErrNotFound)
    }
    if err := c.checkOwnership(ctx, in, states); err != nil {
        return nil, "", err
    }

    subtotal, err := priceSeats(event, seatIDs)
    if err != nil {
        return nil, "", err
    }
    fees := roundCents(float64(subtotal) * feeRate)
    tax := roundCents(float64(subtotal) * taxRate)
    total := subtotal + fees + tax

    now := c.now()
    order := &model.Order{
        ID:            uuid.NewString(),
        OrderNumber:   orderNumber(now),
        EventID:       in.EventID,
        SeatIDs:       seatIDs,
        Customer:      in.Customer,
        UserID:        in.UserID,
        PaymentStatus: model.PaymentPending,
        SubtotalCents: subtotal,
        FeesCents:     fees,
        TaxCents:      tax,
        TotalCents:    total,
        CreatedAt:     now,
        UpdatedAt:     now,
    }
    if in.SessionID != "" {
        order.SessionID = &in.SessionID
    }

    intent, err := c.provider.CreateIntent(ctx, payment.IntentRequest{
        AmountCents: total,
        Currency:    "usd",
        Metadata:    intentMetadata(order, in),
    })
    if err != nil {
        return nil, "", fmt.Errorf("%w: %v", ErrExternalUnavailable, err)
    }
    order.PaymentIntentID = intent.ID

    if err := c.orders.Create(ctx, order); err != nil {
        return nil, "", err
    }

    if c.mock {
        finalized, err := c.FinalizeOrder(ctx, order.ID)
        if err != nil {
            return nil, "", err
        }
        return finalized, intent.ClientSecret, nil
    }
    return order, intent.ClientSecret, nil
}

// FinalizeOrder atomically flips the order's seats to SOLD, issues one
// ticket per seat, marks the order SUCCEEDED and consumes the session's
// hold.  Calling it on an already SUCCEEDED order returns the order
// unchanged.  When any seat cannot be flipped — reclaimed and resold
// elsewhere, or raced by another finalize — the call fails with
// ErrSeatConflict and the order remains PENDING.
func (c *Coordinator) FinalizeOrder(ctx context.Context, orderID string) (*model.Order, error) {
    order, err := c.orders.GetByID(ctx, orderID)
    if err != nil {
        return nil, notFoundOr(err, "order %s", orderID)
    }
    switch order.PaymentStatus {
    case model.PaymentSucceeded:
        return order, nil // idempotent
    case model.PaymentFailed, model.PaymentRefunded:
        return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidState, orderID, order.PaymentStatus)
    }

    modified, err := c.seats.MarkSold(ctx, order.EventID, order.SeatIDs, order.ID)
    if err != nil {
        return nil, err
    }
    if modified != int64(len(order.SeatIDs)) {
        return nil, fmt.Errorf("%w: %d of %d seats could not be sold", ErrSeatConflict, int64(len(order.SeatIDs))-modified, len(order.SeatIDs))
    }

    now := c.now()
    tickets := make([]model.Ticket, 0, len(order.SeatIDs))
    ticketIDs := make([]string, 0, len(order.SeatIDs))
    for _, seatID := range order.SeatIDs {
        code, err := utils.RandomToken(16)
        if err != nil {
            return nil, err
        }
        t := model.Ticket{
            ID:       uuid.NewString(),
            OrderID:  order.ID,
            EventID:  order.EventID,
            SeatID:   seatID,
            Code:     code,
            IssuedAt: now,
        }
        tickets = append(tickets, t)
        ticketIDs = append(ticketIDs, t.ID)
    }
    if err := c.tickets.CreateBulk(ctx, tickets); err != nil {
        return nil, err
    }
    if err := c.orders.MarkSucceeded(ctx, order.ID, ticketIDs); err != nil {
        return nil, err
    }
    order.PaymentStatus = model.PaymentSucceeded
    order.TicketIDs = ticketIDs
    order.UpdatedAt = now

    if err := c.events.IncrementSoldCount(ctx, order.EventID, len(order.SeatIDs)); err != nil {
        log.Printf("checkout: sold count bump for event %s failed: %v", order.EventID, err)
    }

    c.consumeHold(ctx, order)

    c.broadcast.Publish(order.EventID, realtime.SeatAvailability(order.EventID, statusUpdates(order.SeatIDs, model.SeatSold)))
    c.notifyConfirmed(ctx, order)
    return order, nil
}

// HandlePaymentSucceeded is the webhook path for a confirmed payment:
// it locates the order by intent id and finalizes it.  Duplicate
// deliveries are absorbed by FinalizeOrder's idempotence.
func (c *Coordinator) HandlePaymentSucceeded(ctx context.Context, intentID string) (*model.Order, error) {
    order, err := c.orders.GetByPaymentIntentID(ctx, intentID)
    if err != nil {
        return nil, notFoundOr(err, "payment intent %s", intentID)
    }
    return c.FinalizeOrder(ctx, order.ID)
}

// HandlePaymentFailed marks the order FAILED.  Seats are deliberately
// not released here: the hold's TTL reclaims them, which avoids racing
// a late-arriving success event.
func (c *Coordinator) HandlePaymentFailed(ctx context.Context, intentID string) error {
    order, err := c.orders.GetByPaymentIntentID(ctx, intentID)
    if err != nil {
        return notFoundOr(err, "payment intent %s", intentID)
    }
    moved, err := c.orders.UpdatePaymentStatus(ctx, order.ID, model.PaymentPending, model.PaymentFailed)
    if err != nil {
        return err
    }
    if !moved {
        log.Printf("checkout: payment failure for order %s ignored in status %s", order.ID, order.PaymentStatus)
    }
    return nil
}

// GetOrder returns an order with its issued tickets.
func (c *Coordinator) GetOrder(ctx context.Context, orderID string) (*model.Order, []model.Ticket, error) {
    order, err := c.orders.GetByID(ctx, orderID)
    if err != nil {
        return nil, nil, notFoundOr(err, "order %s", orderID)
    }
    tickets, err := c.tickets.ListByOrder(ctx, orderID)
    if err != nil {
        return nil, nil, err
    }
    return order, tickets, nil
}

// checkOwnership enforces the checkout precondition: every seat is
// AVAILABLE, or HELD by the caller's session or user.  A seat under a
// different party's live hold is a conflict; stale holds do not block
// checkout because finalize re-validates through its conditional
// update.
func (c *Coordinator) checkOwnership(ctx context.Context, in CheckoutInput, states []model.EventSeatState) error {
    now := c.now()
    for _, st := range states {
        switch st.Status {
        case model.SeatSold:
            return fmt.Errorf("%w: seat %s is no longer available", ErrSeatConflict, st.SeatID)
        case model.SeatHeld:
            if st.HoldRef == nil {
                continue
            }
            owner, err := c.holds.GetByID(ctx, *st.HoldRef)
            if err != nil {
                if isStoreNotFound(err) {
                    continue // orphaned ref; conditional update decides
                }
                return err
            }
            if owner.Expired(now) {
                continue
            }
            if in.SessionID != "" && owner.SessionID == in.SessionID {
                continue
            }
            if in.UserID != nil && owner.UserID != nil && *owner.UserID == *in.UserID {
                continue
            }
            return fmt.Errorf("%w: seat %s is held by another session", ErrSeatConflict, st.SeatID)
        }
    }
    return nil
}

// consumeHold removes the purchased seats from the session's hold,
// deleting it outright when nothing remains.  Failures only cost an
// expiration-worker cycle, so they are logged and swallowed.
func (c *Coordinator) consumeHold(ctx context.Context, order *model.Order) {
    if order.SessionID == nil {
        return
    }
    hold, err := c.holds.GetBySession(ctx, order.EventID, *order.SessionID)
    if err != nil {
        if !isStoreNotFound(err) {
            log.Printf("checkout: hold lookup for order %s failed: %v", order.ID, err)
        }
        return
    }
    bought := make(map[string]struct{}, len(order.SeatIDs))
    for _, id := range order.SeatIDs {
        bought[id] = struct{}{}
    }
    var remaining []string
    for _, id := range hold.SeatIDs {
        if _, ok := bought[id]; !ok {
            remaining = append(remaining, id)
        }
    }
    if len(remaining) == 0 {
        if err := c.holds.Delete(ctx, hold.ID); err != nil {
            log.Printf("checkout: hold delete for order %s failed: %v", order.ID, err)
        }
        if c.mirror != nil {
            if err := c.mirror.Delete(ctx, hold.ID); err != nil {
                log.Printf("checkout: mirror delete for hold %s failed: %v", hold.ID, err)
            }
        }
        return
    }
    hold.SeatIDs = remaining
    if err := c.holds.Update(ctx, hold); err != nil {
        log.Printf("checkout: hold trim for order %s failed: %v", order.ID, err)
        return
    }
    if c.mirror != nil {
        if err := c.mirror.Put(ctx, hold); err != nil {
            log.Printf("checkout: mirror update for hold %s failed: %v", hold.ID, err)
        }
    }
}

func (c *Coordinator) notifyConfirmed(ctx context.Context, order *model.Order) {
    if c.notifier == nil {
        return
    }
    if err := c.notifier.PublishOrderConfirmed(ctx, order); err != nil {
        log.Printf("checkout: confirmation dispatch for order %s failed: %v", order.ID, err)
    }
}

// priceSeats sums zone prices for the seats, in request order.
func priceSeats(event *model.Event, seatIDs []string) (uint32, error) {
    var subtotal uint32
    for _, seatID := range seatIDs {
        section, err := utils.SectionOf(seatID)
        if err != nil {
            return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
        }
        zone, ok := event.PricingZones[section]
        if !ok {
            return 0, fmt.Errorf("%w: no pricing zone for section %s", ErrInvalidInput, section)
        }
        subtotal += zone.PriceCents
    }
    return subtotal, nil
}

// roundCents rounds a fractional cent amount half away from zero.
func roundCents(v float64) uint32 {
    return uint32(math.Round(v))
}

// orderNumber builds the human-readable reference, e.g.
// TKT-20260805-9F21C3.
func orderNumber(now time.Time) string {
    suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
    return "TKT-" + now.Format("20060102") + "-" + suffix
}

func intentMetadata(order *model.Order, in CheckoutInput) map[string]string {
    md := map[string]string{
        "eventId":       order.EventID,
        "seatIds":       strings.Join(order.SeatIDs, ","),
        "orderNumber":   order.OrderNumber,
        "customerEmail": order.Customer.Email,
    }
    if in.SessionID != "" {
        md["sessionId"] = in.SessionID
    }
    if in.UserID != nil {
        md["userId"] = fmt.Sprintf("%d", *in.UserID)
    }
    return md
}
