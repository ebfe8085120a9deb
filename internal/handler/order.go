package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/neiloy-neil/tiki-taka-backend/internal/model"
    "github.com/neiloy-neil/tiki-taka-backend/internal/service/booking"
)

// OrderHandler exposes checkout and order retrieval.
type OrderHandler struct {
    Coordinator *booking.Coordinator
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(coordinator *booking.Coordinator) *OrderHandler {
    if coordinator == nil {
        panic("nil coordinator passed to NewOrderHandler")
    }
    return &OrderHandler{Coordinator: coordinator}
}

// orderResponse is the wire form of an order.  Monetary values are
// rendered as decimal USD.
type orderResponse struct {
    ID            string   `json:"id"`
    OrderNumber   string   `json:"orderNumber"`
    EventID       string   `json:"eventId"`
    SeatIDs       []string `json:"seatIds"`
    PaymentStatus string   `json:"paymentStatus"`
    TotalAmount   float64  `json:"totalAmount"`
    Breakdown     struct {
        Subtotal float64 `json:"subtotal"`
        Fees     float64 `json:"fees"`
        Tax      float64 `json:"tax"`
        Total    float64 `json:"total"`
    } `json:"breakdown"`
    Tickets []ticketResponse `json:"tickets,omitempty"`
}

type ticketResponse struct {
    ID     string `json:"id"`
    SeatID string `json:"seatId"`
    Code   string `json:"code"`
}

func renderOrder(o *model.Order, tickets []model.Ticket) orderResponse {
    resp := orderResponse{
        ID:            o.ID,
        OrderNumber:   o.OrderNumber,
        EventID:       o.EventID,
        SeatIDs:       o.SeatIDs,
        PaymentStatus: o.PaymentStatus,
        TotalAmount:   dollars(o.TotalCents),
    }
    resp.Breakdown.Subtotal = dollars(o.SubtotalCents)
    resp.Breakdown.Fees = dollars(o.FeesCents)
    resp.Breakdown.Tax = dollars(o.TaxCents)
    resp.Breakdown.Total = dollars(o.TotalCents)
    for _, t := range tickets {
        resp.Tickets = append(resp.Tickets, ticketResponse{ID: t.ID, SeatID: t.SeatID, Code: t.Code})
    }
    return resp
}

// CreateCheckoutIntent handles POST /orders/checkout-intent.  Creates a
// PENDING order and the external payment intent; in mock mode the
// order comes back already SUCCEEDED.
func (h *OrderHandler) CreateCheckoutIntent(c echo.Context) error {
    var body struct {
        EventID      string             `json:"eventId"`
        SeatIDs      []string           `json:"seatIds"`
        CustomerInfo model.CustomerInfo `json:"customerInfo"`
        SessionID    string             `json:"sessionId"`
    }
    if err := bindStrict(c, &body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.EventID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "eventId is required"})
    }
    order, clientSecret, err := h.Coordinator.CreateCheckoutIntent(c.Request().Context(), booking.CheckoutInput{
        EventID:   body.EventID,
        SeatIDs:   body.SeatIDs,
        Customer:  body.CustomerInfo,
        SessionID: sessionID(c, body.SessionID),
        UserID:    userID(c),
    })
    if err != nil {
        return writeError(c, err)
    }
    resp := echo.Map{"order": renderOrder(order, nil)}
    if clientSecret != "" {
        resp["clientSecret"] = clientSecret
    }
    return c.JSON(http.StatusCreated, resp)
}

// Get handles GET /orders/:id.  Returns the order with its tickets.
func (h *OrderHandler) Get(c echo.Context) error {
    order, tickets, err := h.Coordinator.GetOrder(c.Request().Context(), c.Param("id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, renderOrder(order, tickets))
}

// Finalize handles POST /orders/:id/finalize.  Idempotently flips the
// order's seats to SOLD and issues tickets.
func (h *OrderHandler) Finalize(c echo.Context) error {
    order, err := h.Coordinator.FinalizeOrder(c.Request().Context(), c.Param("id"))
    if err != nil {
        return writeError(c, err)
    }
    _, tickets, err := h.Coordinator.GetOrder(c.Request().Context(), order.ID)
    if err != nil {
        tickets = nil // order is finalized; ticket listing is presentational
    }
    return c.JSON(http.StatusOK, renderOrder(order, tickets))
}
