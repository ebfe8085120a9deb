package model

import "time"

// Payment status values for an order.  Transitions form a DAG:
// PENDING -> SUCCEEDED or FAILED; SUCCEEDED -> REFUNDED.  SUCCEEDED
// and FAILED are terminal within this subsystem (refund flows live
// elsewhere).
const (
    PaymentPending   = "PENDING"
    PaymentSucceeded = "SUCCEEDED"
    PaymentFailed    = "FAILED"
    PaymentRefunded  = "REFUNDED"
)

// CustomerInfo carries the buyer contact details captured at checkout.
type CustomerInfo struct {
    Email     string  `json:"email"`
    FirstName string  `json:"firstName"`
    LastName  string  `json:"lastName"`
    Phone     *string `json:"phone,omitempty"`
}

// Order records a purchase under way or complete.  The seat set is a
// snapshot taken at checkout; its order matches the pricing breakdown.
// All monetary amounts are stored in cents.
//
// Fields:
//  ID              – opaque order identifier (uuid).
//  OrderNumber     – human readable reference shown to the customer.
//  EventID         – event the seats belong to.
//  SeatIDs         – seats being purchased, in pricing order.
//  Customer        – buyer contact details.
//  SessionID       – session that held the seats (nullable).
//  UserID          – authenticated buyer, if any.
//  PaymentStatus   – PENDING, SUCCEEDED, FAILED or REFUNDED.
//  PaymentIntentID – external payment intent reference.
//  SubtotalCents   – sum of zone prices for all seats.
//  FeesCents       – service fee (5% of subtotal).
//  TaxCents        – tax (8% of subtotal).
//  TotalCents      – subtotal + fees + tax.
//  TicketIDs       – ticket references populated at finalize.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Order struct {
    ID              string       // orders.id
    OrderNumber     string       // orders.order_number
    EventID         string       // orders.event_id
    SeatIDs         []string     // orders.seat_ids (JSON column)
    Customer        CustomerInfo // orders.customer (JSON column)
    SessionID       *string      // orders.session_id (nullable)
    UserID          *uint64      // orders.user_id (nullable)
    PaymentStatus   string       // orders.payment_status
    PaymentIntentID string       // orders.payment_intent_id
    SubtotalCents   uint32       // orders.subtotal_cents
    FeesCents       uint32       // orders.fees_cents
    TaxCents        uint32       // orders.tax_cents
    TotalCents      uint32       // orders.total_cents
    TicketIDs       []string     // orders.ticket_ids (JSON column)
    CreatedAt       time.Time    // orders.created_at
    UpdatedAt       time.Time    // orders.updated_at
}
