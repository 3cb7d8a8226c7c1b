package store

import "errors"

var (
	ErrQueueNotFound      = errors.New("queue not found")
	ErrQueueInactive      = errors.New("queue inactive")
	ErrEntryNotFound      = errors.New("queue entry not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrNoEntry            = errors.New("no entry available")
	ErrInvalidState       = errors.New("invalid entry state")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
)
