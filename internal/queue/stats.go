package queue

import "time"

// Stats is a point-in-time snapshot of an orchestrator run. Consumers
// always receive a copy, never a live reference.
type Stats struct {
	Total        int       `json:"total"`
	Processed    int       `json:"processed"`
	Queued       int       `json:"queued"`
	CurrentBatch int       `json:"current_batch"`
	TotalBatches int       `json:"total_batches"`
	Active       bool      `json:"active"`
	CurrentFile  string    `json:"current_file,omitempty"`
	State        string    `json:"state"`
	StartedAt    time.Time `json:"started_at"`
}

// Percent returns the completion percentage, 0 when nothing is queued.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

// ETA projects the observed average per-photo duration over the remaining
// count. The second return is false until at least one photo has been
// processed, since no estimate exists yet.
func (s Stats) ETA(now time.Time) (time.Duration, bool) {
	if s.Processed == 0 || s.StartedAt.IsZero() {
		return 0, false
	}
	elapsed := now.Sub(s.StartedAt)
	if elapsed <= 0 {
		return 0, false
	}
	perItem := elapsed / time.Duration(s.Processed)
	return perItem * time.Duration(s.Total-s.Processed), true
}
