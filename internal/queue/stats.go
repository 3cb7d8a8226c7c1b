package queue

import "github.com/siddharthsadhu/BookMyLook-sub003/internal/models"

type Stats struct {
	TotalWaiting     int     `json:"total_waiting"`
	ActiveSalonCount int     `json:"active_salon_count"`
	AverageWaitTime  float64 `json:"average_wait_time"`
}

// ComputeStats derives the dashboard numbers from a snapshot. The mean
// wait covers every queue in the list, active or not.
func ComputeStats(queues []models.Queue) Stats {
	stats := Stats{}
	if len(queues) == 0 {
		return stats
	}
	sum := 0
	for _, queue := range queues {
		stats.TotalWaiting += queue.TotalWaiting
		if queue.IsActive {
			stats.ActiveSalonCount++
		}
		sum += queue.AverageWaitTime
	}
	stats.AverageWaitTime = float64(sum) / float64(len(queues))
	return stats
}
