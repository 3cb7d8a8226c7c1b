package store

import "github.com/siddharthsadhu/BookMyLook-sub003/internal/models"

var transitionMap = map[string][]string{
	"call_next": {models.StatusWaiting},
	"start":     {models.StatusCalled},
	"complete":  {models.StatusInService},
	"no_show":   {models.StatusCalled},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// StatusAfter returns the status an action lands on.
func StatusAfter(action string) (string, bool) {
	switch action {
	case "call_next":
		return models.StatusCalled, true
	case "start":
		return models.StatusInService, true
	case "complete":
		return models.StatusCompleted, true
	case "no_show":
		return models.StatusNoShow, true
	default:
		return "", false
	}
}
