// Package feed is the single polling authority for queue snapshots.
// One loop fetches; everyone else subscribes to the same stream and
// layers staleness checks on top, so no consumer runs its own timer.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
	"github.com/siddharthsadhu/BookMyLook-sub003/internal/queue"
)

const (
	defaultInterval = 10 * time.Second
	fetchTimeout    = 5 * time.Second
)

// Fetcher produces one snapshot. Failures are expected to be absorbed
// into a degraded snapshot rather than returned.
type Fetcher interface {
	ListQueues(ctx context.Context) queue.Snapshot
}

// Update is what subscribers receive on every completed fetch. Each
// update wholly replaces the previous one; there is no diffing.
type Update struct {
	Queues    []models.Queue `json:"queues"`
	Stats     queue.Stats    `json:"stats"`
	Degraded  bool           `json:"degraded,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}

type Feed struct {
	fetcher  Fetcher
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	subs   map[int]func(Update)
	nextID int
	last   Update

	stop     chan struct{}
	stopOnce sync.Once
}

func New(fetcher Fetcher, interval time.Duration) *Feed {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Feed{
		fetcher:  fetcher,
		interval: interval,
		now:      time.Now,
		subs:     make(map[int]func(Update)),
		stop:     make(chan struct{}),
	}
}

// Subscribe registers a listener notified on every completed fetch.
// The returned function unregisters it.
func (f *Feed) Subscribe(fn func(Update)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// Start fetches once immediately, then on every tick until Stop.
func (f *Feed) Start() {
	go f.run()
}

func (f *Feed) run() {
	f.fetch()
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.fetch()
		}
	}
}

func (f *Feed) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *Feed) fetch() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	snapshot := f.fetcher.ListQueues(ctx)
	cancel()

	update := Update{
		Queues:    snapshot.Queues,
		Stats:     queue.ComputeStats(snapshot.Queues),
		Degraded:  snapshot.Degraded,
		FetchedAt: f.now(),
	}

	f.mu.Lock()
	f.last = update
	listeners := make([]func(Update), 0, len(f.subs))
	for _, fn := range f.subs {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(update)
	}
}

// Snapshot returns the last completed update.
func (f *Feed) Snapshot() Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Fresh reports whether the last fetch completed within maxAge.
func (f *Feed) Fresh(maxAge time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last.FetchedAt.IsZero() {
		return false
	}
	return f.now().Sub(f.last.FetchedAt) <= maxAge
}
