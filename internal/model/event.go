package model

import "time"

// Event status values.  Only PUBLISHED events accept holds and orders.
const (
    EventDraft     = "DRAFT"
    EventPublished = "PUBLISHED"
    EventClosed    = "CLOSED"
)

// PricingZone maps a section code to a display name and a price.  Zones
// are owned by the event management subsystem; this subsystem consumes
// them read-only when pricing a checkout.
type PricingZone struct {
    Name       string `json:"name"`
    PriceCents uint32 `json:"priceCents"`
    Currency   string `json:"currency"`
}

// Event carries the slice of the event record this subsystem reads:
// booking eligibility, the pricing zone map, the rendered seat-map SVG
// for the seat plan endpoint, and the sold counter it increments at
// finalize.  Venue and event CRUD live in an external collaborator.
//
// Fields:
//  ID            – event identifier.
//  Name          – display name.
//  Status        – DRAFT, PUBLISHED or CLOSED.
//  PricingZones  – sectionCode -> zone (JSON column).
//  SeatMapSVG    – rendered seat map, if one was generated (nullable).
//  TotalCapacity – number of seats created at publish.
//  SoldCount     – seats sold so far.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Event struct {
    ID            string                 // events.id
    Name          string                 // events.name
    Status        string                 // events.status
    PricingZones  map[string]PricingZone // events.pricing_zones (JSON column)
    SeatMapSVG    *string                // events.seat_map_svg (nullable)
    TotalCapacity uint32                 // events.total_capacity
    SoldCount     uint32                 // events.sold_count
    CreatedAt     time.Time              // events.created_at
    UpdatedAt     time.Time              // events.updated_at
}
