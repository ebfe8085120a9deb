package booking

import (
    "errors"

    "github.com/neiloy-neil/tiki-taka-backend/internal/repository"
)

// Sentinel errors returned by the arbiter and the checkout coordinator.
// Handlers translate them into the HTTP error taxonomy; none of them is
// retried inside the services.
var (
    // ErrInvalidInput covers schema and range violations: empty seat
    // sets, duplicate-free counts above the per-hold cap, malformed
    // seat identifiers, missing customer details.
    ErrInvalidInput = errors.New("invalid input")

    // ErrInvalidState is returned when the event is not open for
    // booking or an order is in a state that forbids the operation.
    ErrInvalidState = errors.New("invalid state")

    // ErrUnauthorized signals a session mismatch, e.g. releasing a
    // hold owned by a different session.
    ErrUnauthorized = errors.New("unauthorized")

    // ErrNotFound covers missing events, seats, holds and orders.
    ErrNotFound = errors.New("not found")

    // ErrSeatConflict is the contention error: a requested seat is
    // sold, held by another live session, or was won by a concurrent
    // writer between read and conditional update.
    ErrSeatConflict = errors.New("seat conflict")

    // ErrExternalUnavailable is returned when the payment provider
    // cannot be reached while creating an intent.
    ErrExternalUnavailable = errors.New("external dependency unavailable")
)

// isStoreNotFound matches both the repository's not-found sentinel and
// the service one, so in-memory stores in tests may return either.
func isStoreNotFound(err error) bool {
    return errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNotFound)
}
