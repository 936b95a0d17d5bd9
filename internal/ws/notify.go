package ws

import (
	"encoding/json"
	"time"

	"event-scout/internal/domain/event"
)

type JobUpdateEvent struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Found     int    `json:"events_found"`
	Saved     int    `json:"events_saved"`
	Errors    int    `json:"errors"`
	Timestamp string `json:"timestamp"`
}

// JobNotifier broadcasts scrape job updates to the hub. Implements the
// orchestrator's Notifier.
type JobNotifier struct {
	hub *Hub
}

func NewJobNotifier(hub *Hub) *JobNotifier {
	return &JobNotifier{hub: hub}
}

func (n *JobNotifier) JobUpdate(job event.ScrapeJob) {
	if n == nil || n.hub == nil {
		return
	}

	evt := JobUpdateEvent{
		Type:      "scrape_job_update",
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		Progress:  job.Progress,
		Found:     job.Results.WebEvents + job.Results.SocialEvents,
		Saved:     job.Results.SavedCount,
		Errors:    len(job.Results.Errors),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	n.hub.Broadcast(b)
}
