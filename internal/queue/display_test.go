package queue

import (
	"testing"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
)

func TestStatusDisplay(t *testing.T) {
	cases := []struct {
		status string
		label  string
		color  string
	}{
		{models.StatusWaiting, "Waiting", "#F59E0B"},
		{models.StatusCalled, "Called", "#3B82F6"},
		{models.StatusInService, "In Service", "#8B5CF6"},
		{models.StatusCompleted, "Completed", "#10B981"},
		{models.StatusNoShow, "No Show", "#EF4444"},
		{"ARCHIVED", "ARCHIVED", "#6B7280"},
		{"", "", "#6B7280"},
	}

	for _, tc := range cases {
		display := StatusDisplay(tc.status)
		if display.Label != tc.label || display.Color != tc.color {
			t.Fatalf("status %q: got %+v", tc.status, display)
		}
	}
}
