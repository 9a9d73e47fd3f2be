package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrExchangeNotFound is returned when an exchange name has no row in the
// prompt store. A dangling default or keyword destination surfaces as this.
var ErrExchangeNotFound = errors.New("exchange not found")

// ErrNoTangents is returned when every tangent has already been delivered
// to the user in question.
var ErrNoTangents = errors.New("no unseen tangents")
