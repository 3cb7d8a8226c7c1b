package store

import (
	"testing"

	"github.com/siddharthsadhu/BookMyLook-sub003/internal/models"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"call_next", models.StatusWaiting, true},
		{"call_next", models.StatusCalled, false},
		{"start", models.StatusCalled, true},
		{"start", models.StatusWaiting, false},
		{"complete", models.StatusInService, true},
		{"complete", models.StatusCalled, false},
		{"no_show", models.StatusCalled, true},
		{"no_show", models.StatusWaiting, false},
		{"no_show", models.StatusInService, false},
		{"unknown", models.StatusWaiting, false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}

func TestStatusAfter(t *testing.T) {
	cases := []struct {
		action string
		status string
		ok     bool
	}{
		{"call_next", models.StatusCalled, true},
		{"start", models.StatusInService, true},
		{"complete", models.StatusCompleted, true},
		{"no_show", models.StatusNoShow, true},
		{"cancel", "", false},
	}

	for _, tt := range cases {
		status, ok := StatusAfter(tt.action)
		if status != tt.status || ok != tt.ok {
			t.Fatalf("StatusAfter(%q)=(%q, %v), want (%q, %v)", tt.action, status, ok, tt.status, tt.ok)
		}
	}
}
