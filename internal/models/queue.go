package models

import "time"

// Queue is one salon's live queue for one calendar date.
type Queue struct {
	QueueID         string       `json:"queue_id"`
	SalonID         string       `json:"salon_id"`
	SalonName       string       `json:"salon_name,omitempty"`
	QueueDate       time.Time    `json:"queue_date"`
	CurrentNumber   int          `json:"current_number"`
	TotalWaiting    int          `json:"total_waiting"`
	AverageWaitTime int          `json:"average_wait_time"`
	IsActive        bool         `json:"is_active"`
	Entries         []QueueEntry `json:"entries"`
}

// QueueEntry is a single customer's place in a queue. Position is derived
// from the waiting order at read time and never stored.
type QueueEntry struct {
	EntryID       string     `json:"entry_id"`
	QueueID       string     `json:"queue_id"`
	SalonID       string     `json:"salon_id,omitempty"`
	BookingID     string     `json:"booking_id"`
	TokenNumber   int        `json:"token_number"`
	Position      int        `json:"position"`
	Status        string     `json:"status"`
	EstimatedTime int        `json:"estimated_time"`
	JoinedAt      time.Time  `json:"joined_at"`
	CalledAt      *time.Time `json:"called_at,omitempty"`
	ServedAt      *time.Time `json:"served_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

const (
	StatusWaiting   = "WAITING"
	StatusCalled    = "CALLED"
	StatusInService = "IN_SERVICE"
	StatusCompleted = "COMPLETED"
	StatusNoShow    = "NO_SHOW"
)
