package services

import "errors"

// Error taxonomy shared by the chat and notification services. Handlers map
// these onto HTTP statuses; anything else is treated as a store failure.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
)
