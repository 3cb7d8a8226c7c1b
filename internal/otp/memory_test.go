package otp

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Expired code, but the rate window is still running.
	if err := store.Set(ctx, Entry{Phone: "+919876543210", ExpiresAt: now.Add(-10 * time.Minute)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Rate window fully elapsed.
	if err := store.Set(ctx, Entry{Phone: "+919876543211", ExpiresAt: now.Add(-2 * time.Hour)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Still live.
	if err := store.Set(ctx, Entry{Phone: "+919876543212", ExpiresAt: now.Add(3 * time.Minute)}); err != nil {
		t.Fatalf("set: %v", err)
	}

	if removed := store.Sweep(now); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", store.Len())
	}
	if _, ok, _ := store.Get(ctx, "+919876543211"); ok {
		t.Fatalf("fully elapsed entry survived sweep")
	}
	if _, ok, _ := store.Get(ctx, "+919876543210"); !ok {
		t.Fatalf("rate-window entry swept too early")
	}
}
