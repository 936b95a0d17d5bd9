package dto

import (
	"time"

	"event-scout/internal/domain/event"
	"event-scout/internal/scraper"
	"event-scout/internal/service"
)

type JobResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Progress     int        `json:"progress"`
	WebEvents    int        `json:"web_events"`
	SocialEvents int        `json:"social_events"`
	SavedCount   int        `json:"saved_count"`
	Errors       []JobError `json:"errors"`
}

type JobError struct {
	Source string `json:"source,omitempty"`
	Event  string `json:"event,omitempty"`
	Type   string `json:"type"`
	Error  string `json:"error"`
}

type StatusResponse struct {
	IsRunning    bool                             `json:"is_running"`
	CurrentJob   *JobResponse                     `json:"current_job,omitempty"`
	Cumulative   service.CumulativeStats          `json:"cumulative_stats"`
	AdapterStats map[string]scraper.StatsSnapshot `json:"adapter_stats"`
}

func JobFromDomain(j event.ScrapeJob) JobResponse {
	errs := make([]JobError, 0, len(j.Results.Errors))
	for _, e := range j.Results.Errors {
		errs = append(errs, JobError{Source: e.Source, Event: e.Event, Type: e.Type, Error: e.Error})
	}
	return JobResponse{
		ID:           j.ID.String(),
		Status:       string(j.Status),
		StartTime:    j.StartTime,
		EndTime:      j.EndTime,
		Progress:     j.Progress,
		WebEvents:    j.Results.WebEvents,
		SocialEvents: j.Results.SocialEvents,
		SavedCount:   j.Results.SavedCount,
		Errors:       errs,
	}
}

func StatusFromDomain(r service.StatusReport) StatusResponse {
	out := StatusResponse{
		IsRunning:    r.IsRunning,
		Cumulative:   r.Cumulative,
		AdapterStats: r.Adapters,
	}
	if r.CurrentJob != nil {
		j := JobFromDomain(*r.CurrentJob)
		out.CurrentJob = &j
	}
	return out
}
