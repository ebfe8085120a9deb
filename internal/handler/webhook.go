package handler

import (
    "io"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/neiloy-neil/tiki-taka-backend/internal/payment"
    "github.com/neiloy-neil/tiki-taka-backend/internal/service/booking"
)

// WebhookHandler receives provider-signed payment events.  The raw
// body is verified against the webhook secret before any field is
// trusted.  Duplicate deliveries are expected and absorbed by the
// coordinator's idempotent finalize.
type WebhookHandler struct {
    Coordinator *booking.Coordinator
    Secret      string
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(coordinator *booking.Coordinator, secret string) *WebhookHandler {
    if coordinator == nil {
        panic("nil coordinator passed to NewWebhookHandler")
    }
    return &WebhookHandler{Coordinator: coordinator, Secret: secret}
}

// Handle processes POST /payments/webhook.
func (h *WebhookHandler) Handle(c echo.Context) error {
    body, err := io.ReadAll(c.Request().Body)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
    }
    sig := c.Request().Header.Get("Stripe-Signature")
    ev, err := payment.VerifyAndParse(body, sig, h.Secret, time.Now())
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook payload"})
    }
    ctx := c.Request().Context()
    switch ev.Type {
    case payment.EventPaymentSucceeded:
        if _, err := h.Coordinator.HandlePaymentSucceeded(ctx, ev.IntentID); err != nil {
            return writeError(c, err)
        }
    case payment.EventPaymentFailed:
        if err := h.Coordinator.HandlePaymentFailed(ctx, ev.IntentID); err != nil {
            return writeError(c, err)
        }
    default:
        // Unhandled event types are acknowledged so the provider stops
        // redelivering them.
        log.Printf("webhook: ignoring event type %s", ev.Type)
    }
    return c.JSON(http.StatusOK, echo.Map{"received": true})
}
