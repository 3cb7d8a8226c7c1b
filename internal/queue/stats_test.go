package queue

import (
	"testing"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
)

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	if stats.TotalWaiting != 0 || stats.ActiveSalonCount != 0 || stats.AverageWaitTime != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestComputeStats(t *testing.T) {
	queues := []models.Queue{
		{SalonID: "salon-1", TotalWaiting: 4, AverageWaitTime: 10, IsActive: true},
		{SalonID: "salon-2", TotalWaiting: 1, AverageWaitTime: 20, IsActive: false},
	}

	stats := ComputeStats(queues)
	if stats.TotalWaiting != 5 {
		t.Fatalf("expected totalWaiting 5, got %d", stats.TotalWaiting)
	}
	// Inactive queues count toward the mean but not the active count.
	if stats.ActiveSalonCount != 1 {
		t.Fatalf("expected activeSalonCount 1, got %d", stats.ActiveSalonCount)
	}
	if stats.AverageWaitTime != 15 {
		t.Fatalf("expected averageWaitTime 15, got %v", stats.AverageWaitTime)
	}
}
