package queue

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/store"
)

// Lister is the slice of the storage collaborator the aggregator reads.
type Lister interface {
	ListActiveQueues(ctx context.Context, day time.Time) ([]models.Queue, error)
	GetEntryByBooking(ctx context.Context, bookingID string) (models.QueueEntry, bool, error)
}

// Snapshot is a full read of today's queues. Degraded marks a storage
// failure that was absorbed into an empty list, so callers can render an
// error state instead of mistaking it for "no queues".
type Snapshot struct {
	Queues   []models.Queue `json:"queues"`
	Degraded bool           `json:"degraded,omitempty"`
}

type Aggregator struct {
	store Lister
	now   func() time.Time
}

func NewAggregator(store Lister) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// ListQueues never fails: availability is favored over correctness
// signaling on this path, with Degraded carrying the distinction.
func (a *Aggregator) ListQueues(ctx context.Context) Snapshot {
	queues, err := a.store.ListActiveQueues(ctx, a.now().UTC())
	if err != nil {
		log.Printf("queue list error: %v", err)
		return Snapshot{Queues: []models.Queue{}, Degraded: true}
	}
	if queues == nil {
		queues = []models.Queue{}
	}

	sort.SliceStable(queues, func(i, j int) bool {
		return queues[i].SalonID < queues[j].SalonID
	})
	for i := range queues {
		sort.SliceStable(queues[i].Entries, func(a, b int) bool {
			return queues[i].Entries[a].TokenNumber < queues[i].Entries[b].TokenNumber
		})
		AssignPositions(queues[i].Entries)
	}
	return Snapshot{Queues: queues}
}

func (a *Aggregator) GetEntry(ctx context.Context, bookingID string) (models.QueueEntry, error) {
	entry, ok, err := a.store.GetEntryByBooking(ctx, bookingID)
	if err != nil {
		return models.QueueEntry{}, err
	}
	if !ok {
		return models.QueueEntry{}, store.ErrEntryNotFound
	}
	return entry, nil
}

// AssignPositions ranks WAITING entries by join time, earliest first.
// All other statuses get position zero.
func AssignPositions(entries []models.QueueEntry) {
	waiting := make([]int, 0, len(entries))
	for i := range entries {
		entries[i].Position = 0
		if entries[i].Status == models.StatusWaiting {
			waiting = append(waiting, i)
		}
	}
	sort.SliceStable(waiting, func(a, b int) bool {
		return entries[waiting[a]].JoinedAt.Before(entries[waiting[b]].JoinedAt)
	})
	for rank, i := range waiting {
		entries[i].Position = rank + 1
	}
}
