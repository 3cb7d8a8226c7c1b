package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
)

type CheckInInput struct {
	RequestID   string
	SalonID     string
	BookingID   string
	CheckedInAt time.Time
}

type CallNextInput struct {
	SalonID  string
	CalledAt time.Time
}

type EntryActionInput struct {
	EntryID    string
	Action     string
	OccurredAt time.Time
}

// Store is the persistent collaborator for queues, bookings, users, and
// sessions. The core trusts returned shapes and owns no schema.
type Store interface {
	ListActiveQueues(ctx context.Context, day time.Time) ([]models.Queue, error)
	GetEntryByBooking(ctx context.Context, bookingID string) (models.QueueEntry, bool, error)

	CheckIn(ctx context.Context, input CheckInInput) (models.QueueEntry, error)
	CallNext(ctx context.Context, input CallNextInput) (models.QueueEntry, error)
	UpdateEntryStatus(ctx context.Context, input EntryActionInput) (models.QueueEntry, error)

	ListOutboxEvents(ctx context.Context, offset OutboxOffset, limit int) ([]OutboxEvent, error)

	FindUserByPhone(ctx context.Context, phone string) (models.User, bool, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	CreateSession(ctx context.Context, userID string, expiresAt time.Time) (models.Session, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
}

// OutboxOffset is a keyset cursor into the outbox. The event id breaks
// ties between events sharing a created_at, so a batch boundary on that
// timestamp never skips rows.
type OutboxOffset struct {
	LastEventTime time.Time
	LastEventID   string
}

type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	SalonID   string          `json:"salon_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
