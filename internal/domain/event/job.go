package event

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// JobError is one entry in a job's error list. Partial failure is normal:
// a completed job can carry a non-empty error list.
type JobError struct {
	Source string `json:"source,omitempty"`
	Event  string `json:"event,omitempty"`
	Type   string `json:"type"`
	Error  string `json:"error"`
}

type JobResults struct {
	WebEvents    int        `json:"web_events"`
	SocialEvents int        `json:"social_events"`
	SavedCount   int        `json:"saved_count"`
	Errors       []JobError `json:"errors"`
}

// ScrapeJob is the orchestrator-owned record of one end-to-end run.
// At most one job is running per orchestrator instance.
type ScrapeJob struct {
	ID        uuid.UUID  `json:"id"`
	Status    JobStatus  `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Progress  int        `json:"progress"`
	Results   JobResults `json:"results"`
}
