package handler

import (
    "encoding/json"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/neiloy-neil/tiki-taka-backend/internal/service/booking"
)

// bindStrict decodes a JSON body into v, rejecting unknown fields.
// Payloads at the boundary are re-shaped into explicit structs; a field
// the struct does not declare is a client error, not data to ignore.
func bindStrict(c echo.Context, v interface{}) error {
    dec := json.NewDecoder(c.Request().Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(v); err != nil {
        return err
    }
    return nil
}

// sessionID extracts the client session token from an explicit value
// (request body) or the X-Session-ID header.  Unauthenticated clients
// generate it themselves and persist it across reconnects.
func sessionID(c echo.Context, fromBody string) string {
    if fromBody != "" {
        return fromBody
    }
    return c.Request().Header.Get("X-Session-ID")
}

// userID returns the authenticated user attached by the identity
// middleware, or nil for guests.
func userID(c echo.Context) *uint64 {
    if v, ok := c.Get("user_id").(*uint64); ok {
        return v
    }
    return nil
}

// writeError maps service sentinels onto the HTTP error taxonomy.
func writeError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, booking.ErrInvalidInput):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrInvalidState):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "This event is not currently available for booking."})
    case errors.Is(err, booking.ErrUnauthorized):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, booking.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, booking.ErrSeatConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "Seat is no longer available. Please choose another."})
    case errors.Is(err, booking.ErrExternalUnavailable):
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable, try again shortly"})
    default:
        c.Logger().Error(err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// dollars renders cents as a decimal USD amount.
func dollars(cents uint32) float64 {
    return float64(cents) / 100
}
