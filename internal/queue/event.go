// Package queue defines message payloads exchanged over the
// notification broker and the producer/consumer pair that moves them.
package queue

// OrderConfirmedEvent is published when an order is successfully
// finalized.  It contains enough information for downstream consumers
// to send the confirmation email, log, or trigger analytics without
// querying the primary database.
type OrderConfirmedEvent struct {
    OrderID       string   `json:"order_id"`
    OrderNumber   string   `json:"order_number"`
    EventID       string   `json:"event_id"`
    SeatIDs       []string `json:"seat_ids"`
    CustomerEmail string   `json:"customer_email"`
    CustomerName  string   `json:"customer_name"`
    TotalCents    uint32   `json:"total_cents"`
    TicketIDs     []string `json:"ticket_ids"`
    ConfirmedAt   string   `json:"confirmed_at"`
}
