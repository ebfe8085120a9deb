package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/neiloy-neil/tiki-taka-backend/internal/handler"    // import the handlers that implement business logic
    "github.com/neiloy-neil/tiki-taka-backend/internal/middleware" // import middleware for identity and rate limiting
)

// RegisterRoutes registers routes that do not require any middleware on
// the provided Echo instance.  Currently it exposes only a health check
// which load balancers and monitoring systems use to verify that the
// service is up and running.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterSeats registers the seat availability and hold endpoints.
// The optional identity middleware attributes holds to authenticated
// users; the Redis-backed rate limiter caps hold grants per session.
func RegisterSeats(e *echo.Echo, s *handler.SeatHandler, rdb *redis.Client, jwtSecret string, holdsPerMinute int) {
    g := e.Group("/seats")
    g.Use(middleware.OptionalIdentity(jwtSecret))
    // Read endpoints: live status and the seat plan for rendering.
    g.GET("/event/:id/status", s.Status)
    g.GET("/event/:id/plan", s.Plan)
    // Hold liveness poll, served from the side-channel cache.
    g.GET("/hold/:id", s.GetHold)
    // Grant or extend a hold; rate limited per session.
    g.POST("/hold", s.Hold, middleware.HoldRateLimit(rdb, holdsPerMinute))
    // Release a hold owned by the calling session.
    g.DELETE("/release", s.Release)
}

// RegisterOrders registers checkout and order retrieval endpoints.
func RegisterOrders(e *echo.Echo, o *handler.OrderHandler, jwtSecret string) {
    g := e.Group("/orders")
    g.Use(middleware.OptionalIdentity(jwtSecret))
    g.POST("/checkout-intent", o.CreateCheckoutIntent)
    g.GET("/:id", o.Get)
    g.POST("/:id/finalize", o.Finalize)
}

// RegisterWebhooks registers the payment provider webhook.  No identity
// middleware: authenticity comes from the signature over the raw body.
func RegisterWebhooks(e *echo.Echo, w *handler.WebhookHandler) {
    e.POST("/payments/webhook", w.Handle)
}
