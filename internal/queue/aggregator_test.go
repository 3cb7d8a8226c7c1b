package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/store"
)

type fakeLister struct {
	listFn  func(ctx context.Context, day time.Time) ([]models.Queue, error)
	entryFn func(ctx context.Context, bookingID string) (models.QueueEntry, bool, error)
}

func (f fakeLister) ListActiveQueues(ctx context.Context, day time.Time) ([]models.Queue, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, day)
}

func (f fakeLister) GetEntryByBooking(ctx context.Context, bookingID string) (models.QueueEntry, bool, error) {
	if f.entryFn == nil {
		return models.QueueEntry{}, false, nil
	}
	return f.entryFn(ctx, bookingID)
}

func TestListQueuesDegradedOnError(t *testing.T) {
	agg := NewAggregator(fakeLister{
		listFn: func(ctx context.Context, day time.Time) ([]models.Queue, error) {
			return nil, errors.New("connection refused")
		},
	})

	snapshot := agg.ListQueues(context.Background())
	if !snapshot.Degraded {
		t.Fatalf("expected degraded snapshot")
	}
	if snapshot.Queues == nil || len(snapshot.Queues) != 0 {
		t.Fatalf("expected empty non-nil queue list, got %#v", snapshot.Queues)
	}
}

func TestListQueuesSortsAndRanks(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	agg := NewAggregator(fakeLister{
		listFn: func(ctx context.Context, day time.Time) ([]models.Queue, error) {
			return []models.Queue{
				{SalonID: "salon-b"},
				{SalonID: "salon-a", Entries: []models.QueueEntry{
					{EntryID: "e3", TokenNumber: 3, Status: models.StatusWaiting, JoinedAt: base.Add(2 * time.Minute)},
					{EntryID: "e1", TokenNumber: 1, Status: models.StatusCalled, JoinedAt: base},
					{EntryID: "e2", TokenNumber: 2, Status: models.StatusWaiting, JoinedAt: base.Add(time.Minute)},
				}},
			}, nil
		},
	})

	snapshot := agg.ListQueues(context.Background())
	if snapshot.Degraded {
		t.Fatalf("unexpected degraded snapshot")
	}
	if snapshot.Queues[0].SalonID != "salon-a" || snapshot.Queues[1].SalonID != "salon-b" {
		t.Fatalf("queues not sorted by salon: %+v", snapshot.Queues)
	}

	entries := snapshot.Queues[0].Entries
	if entries[0].EntryID != "e1" || entries[1].EntryID != "e2" || entries[2].EntryID != "e3" {
		t.Fatalf("entries not sorted by token: %+v", entries)
	}
	// Position ranks only WAITING entries, by join time.
	if entries[0].Position != 0 {
		t.Fatalf("called entry should have position 0, got %d", entries[0].Position)
	}
	if entries[1].Position != 1 || entries[2].Position != 2 {
		t.Fatalf("waiting positions wrong: %d, %d", entries[1].Position, entries[2].Position)
	}
}

func TestAssignPositionsOrdersByJoinTime(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	entries := []models.QueueEntry{
		{EntryID: "late", Status: models.StatusWaiting, JoinedAt: base.Add(10 * time.Minute)},
		{EntryID: "done", Status: models.StatusCompleted, JoinedAt: base},
		{EntryID: "early", Status: models.StatusWaiting, JoinedAt: base.Add(time.Minute)},
	}

	AssignPositions(entries)

	if entries[2].Position != 1 {
		t.Fatalf("earliest waiting entry should be position 1, got %d", entries[2].Position)
	}
	if entries[0].Position != 2 {
		t.Fatalf("latest waiting entry should be position 2, got %d", entries[0].Position)
	}
	if entries[1].Position != 0 {
		t.Fatalf("completed entry should be position 0, got %d", entries[1].Position)
	}
}

func TestGetEntryNotFound(t *testing.T) {
	agg := NewAggregator(fakeLister{})

	_, err := agg.GetEntry(context.Background(), "booking-1")
	if !errors.Is(err, store.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestGetEntryFound(t *testing.T) {
	agg := NewAggregator(fakeLister{
		entryFn: func(ctx context.Context, bookingID string) (models.QueueEntry, bool, error) {
			return models.QueueEntry{EntryID: "e1", BookingID: bookingID, Status: models.StatusWaiting}, true, nil
		},
	})

	entry, err := agg.GetEntry(context.Background(), "booking-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.BookingID != "booking-1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}
