// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// services to distinguish between different failure scenarios without
// inspecting driver-specific errors. ErrNotFound covers every missing
// entity (event, hold, order); conflict detection is not an error at
// this layer — conditional updates report the number of rows they
// actually modified and the services decide what a short count means.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Services
// translate this into their own not-found sentinel so handlers can map
// it to an HTTP 404 response.
var ErrNotFound = errors.New("not found")
