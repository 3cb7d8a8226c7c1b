package feed

import (
	"context"
	"testing"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/queue"
)

type fakeFetcher struct {
	snapshots []queue.Snapshot
	calls     int
}

func (f *fakeFetcher) ListQueues(ctx context.Context) queue.Snapshot {
	snapshot := f.snapshots[f.calls%len(f.snapshots)]
	f.calls++
	return snapshot
}

func TestFetchFansOutToAllSubscribers(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []queue.Snapshot{
		{Queues: []models.Queue{{SalonID: "salon-1", TotalWaiting: 2, IsActive: true}}},
	}}
	f := New(fetcher, time.Minute)

	var first, second []Update
	f.Subscribe(func(u Update) { first = append(first, u) })
	f.Subscribe(func(u Update) { second = append(second, u) })

	f.fetch()

	if fetcher.calls != 1 {
		t.Fatalf("expected a single fetch for all subscribers, got %d", fetcher.calls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected each subscriber notified once, got %d and %d", len(first), len(second))
	}
	if first[0].Stats.TotalWaiting != 2 {
		t.Fatalf("stats not derived from snapshot: %+v", first[0].Stats)
	}
}

func TestUnsubscribeStopsUpdates(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []queue.Snapshot{{}}}
	f := New(fetcher, time.Minute)

	var got []Update
	unsubscribe := f.Subscribe(func(u Update) { got = append(got, u) })

	f.fetch()
	unsubscribe()
	f.fetch()

	if len(got) != 1 {
		t.Fatalf("expected 1 update after unsubscribe, got %d", len(got))
	}
}

func TestUpdateReplacesWholesale(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []queue.Snapshot{
		{Queues: []models.Queue{{SalonID: "salon-1"}, {SalonID: "salon-2"}}},
		{Queues: []models.Queue{{SalonID: "salon-3"}}},
	}}
	f := New(fetcher, time.Minute)

	f.fetch()
	f.fetch()

	last := f.Snapshot()
	if len(last.Queues) != 1 || last.Queues[0].SalonID != "salon-3" {
		t.Fatalf("expected wholesale replacement, got %+v", last.Queues)
	}
}

func TestDegradedFetchStillPublishes(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []queue.Snapshot{
		{Queues: []models.Queue{}, Degraded: true},
	}}
	f := New(fetcher, time.Minute)

	var got []Update
	f.Subscribe(func(u Update) { got = append(got, u) })
	f.fetch()

	if len(got) != 1 {
		t.Fatalf("expected update despite degraded fetch")
	}
	if !got[0].Degraded {
		t.Fatalf("degraded flag not carried through")
	}
	if got[0].Stats.TotalWaiting != 0 {
		t.Fatalf("expected zero stats, got %+v", got[0].Stats)
	}
}

func TestFresh(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []queue.Snapshot{{}}}
	f := New(fetcher, time.Minute)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	if f.Fresh(time.Minute) {
		t.Fatalf("feed fresh before any fetch")
	}

	f.fetch()
	if !f.Fresh(time.Minute) {
		t.Fatalf("feed stale immediately after fetch")
	}

	now = now.Add(2 * time.Minute)
	if f.Fresh(time.Minute) {
		t.Fatalf("feed fresh past maxAge")
	}
}
