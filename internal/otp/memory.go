package otp

import (
	"context"
	"log"
	"sync"
	"time"
)

// MemoryStore keeps entries in a process-local map. Suitable for a
// single-instance deployment; swap in RedisStore for anything else.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(ctx context.Context, phone string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[phone]
	return entry, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Phone] = entry
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, phone)
	return nil
}

// Sweep removes entries whose rate window has fully elapsed. Entries are
// kept past code expiry because the issuance counter still applies until
// expires_at + rateWindow.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for phone, entry := range s.entries {
		if now.After(entry.ExpiresAt.Add(rateWindow)) {
			delete(s.entries, phone)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweep runs Sweep on a ticker until the context is cancelled.
func StartSweep(ctx context.Context, interval time.Duration, store *MemoryStore) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Sweep(time.Now().UTC()); removed > 0 {
				log.Printf("otp sweep removed %d expired entries", removed)
			}
		}
	}
}
