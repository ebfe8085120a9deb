package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/neiloy-neil/tiki-taka-backend/internal/service/booking"
)

// SeatHandler exposes the seat availability, seat plan and hold
// endpoints.  All seat-state decisions happen in the arbiter; the
// handler validates the shape of the request and renders responses.
type SeatHandler struct {
    Arbiter *booking.Arbiter
}

// NewSeatHandler constructs a SeatHandler.
func NewSeatHandler(arbiter *booking.Arbiter) *SeatHandler {
    if arbiter == nil {
        panic("nil arbiter passed to NewSeatHandler")
    }
    return &SeatHandler{Arbiter: arbiter}
}

// Status handles GET /seats/event/:id/status.  Returns the live status
// of every seat of the event.
func (h *SeatHandler) Status(c echo.Context) error {
    eventID := c.Param("id")
    states, err := h.Arbiter.Availability(c.Request().Context(), eventID)
    if err != nil {
        return writeError(c, err)
    }
    type seatStatus struct {
        SeatID      string    `json:"seatId"`
        Status      string    `json:"status"`
        LastUpdated time.Time `json:"lastUpdated"`
    }
    out := make([]seatStatus, 0, len(states))
    for _, st := range states {
        out = append(out, seatStatus{SeatID: st.SeatID, Status: st.Status, LastUpdated: st.LastUpdated})
    }
    return c.JSON(http.StatusOK, out)
}

// Plan handles GET /seats/event/:id/plan.  Returns seat coordinates,
// sections and the rendered SVG together with live statuses.
func (h *SeatHandler) Plan(c echo.Context) error {
    plan, err := h.Arbiter.SeatPlan(c.Request().Context(), c.Param("id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, plan)
}

// Hold handles POST /seats/hold.  Grants the session a hold on the
// requested seats or extends its existing one.
func (h *SeatHandler) Hold(c echo.Context) error {
    var body struct {
        EventID   string   `json:"eventId"`
        SeatIDs   []string `json:"seatIds"`
        SessionID string   `json:"sessionId"`
    }
    if err := bindStrict(c, &body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.EventID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "eventId is required"})
    }
    sid := sessionID(c, body.SessionID)
    if sid == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sessionId is required"})
    }
    hold, err := h.Arbiter.HoldSeats(c.Request().Context(), body.EventID, body.SeatIDs, sid, userID(c))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "holdId":    hold.ID,
        "eventId":   hold.EventID,
        "seatIds":   hold.SeatIDs,
        "expiresAt": hold.ExpiresAt.UTC().Format(time.RFC3339),
    })
}

// Release handles DELETE /seats/release.  Releases a hold owned by the
// calling session.
func (h *SeatHandler) Release(c echo.Context) error {
    var body struct {
        HoldID    string `json:"holdId"`
        SessionID string `json:"sessionId"`
    }
    if err := bindStrict(c, &body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.HoldID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "holdId is required"})
    }
    sid := sessionID(c, body.SessionID)
    if sid == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "sessionId is required"})
    }
    if err := h.Arbiter.ReleaseSeats(c.Request().Context(), body.HoldID, sid); err != nil {
        return writeError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// GetHold handles GET /seats/hold/:id.  Fast liveness poll for a hold,
// served from the side-channel cache when possible.
func (h *SeatHandler) GetHold(c echo.Context) error {
    hold, err := h.Arbiter.GetHold(c.Request().Context(), c.Param("id"))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "holdId":    hold.ID,
        "eventId":   hold.EventID,
        "seatIds":   hold.SeatIDs,
        "expiresAt": hold.ExpiresAt.UTC().Format(time.RFC3339),
    })
}
