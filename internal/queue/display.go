package queue

import "github.com/siddharthsadhu/BookMyLook-sub003/internal/models"

type Display struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var displayMap = map[string]Display{
	models.StatusWaiting:   {Label: "Waiting", Color: "#F59E0B"},
	models.StatusCalled:    {Label: "Called", Color: "#3B82F6"},
	models.StatusInService: {Label: "In Service", Color: "#8B5CF6"},
	models.StatusCompleted: {Label: "Completed", Color: "#10B981"},
	models.StatusNoShow:    {Label: "No Show", Color: "#EF4444"},
}

// StatusDisplay is total: unknown statuses pass through as their own
// label rather than failing.
func StatusDisplay(status string) Display {
	if display, ok := displayMap[status]; ok {
		return display
	}
	return Display{Label: status, Color: "#6B7280"}
}
