package domain

import "errors"

// ErrNotFound is returned when a session, sale record or other resource does
// not exist or does not belong to the acting user.
// Handlers map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails a business rule before any
// upstream request is issued (missing travel date, unresolvable company,
// empty seat selection).
// Handlers map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrBackend is returned when the upstream ticketing backend cannot be reached
// or answers with a non-success status. It is distinct from an empty result.
// Handlers map this to HTTP 502 Bad Gateway.
var ErrBackend = errors.New("backend unavailable")

// ErrSeatLoad marks a failed seat-map aggregation: at least one leg's seat map
// could not be fetched, so none of them is usable.
var ErrSeatLoad = errors.New("seat map load failed")

// ErrInvalidState is returned when a booking session operation is not allowed
// in the session's current state (e.g. toggling seats before any itinerary
// has been chosen).
// Handlers map this to HTTP 409 Conflict.
var ErrInvalidState = errors.New("invalid session state")

// ErrConflict is returned by session stores when a save is attempted with a
// stale version, meaning another request changed the session first.
// Handlers map this to HTTP 409 Conflict.
var ErrConflict = errors.New("session modified concurrently")

// ErrForbidden is returned when the acting user's role may not perform the
// requested operation.
// Handlers map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")
