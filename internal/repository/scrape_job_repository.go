package repository

import (
	"context"
	"errors"
	"time"

	"event-scout/internal/database"
	"event-scout/internal/domain/event"

	"github.com/google/uuid"
)

// ScrapeJobRepository persists run records for audit. The live job is owned
// by the orchestrator in memory; rows here only track start/finish.
type ScrapeJobRepository interface {
	Create(ctx context.Context, job *event.ScrapeJob) error
	Finish(ctx context.Context, job *event.ScrapeJob) error
}

type PostgresScrapeJobRepository struct {
	db database.DB
}

func NewPostgresScrapeJobRepository(db database.DB) *PostgresScrapeJobRepository {
	return &PostgresScrapeJobRepository{db: db}
}

func (r *PostgresScrapeJobRepository) Create(ctx context.Context, job *event.ScrapeJob) error {
	if job == nil || job.ID == uuid.Nil {
		return errors.New("nil job")
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO scrape_jobs (id, status, started_at, progress, events_found, events_saved, error_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		job.ID, string(job.Status), job.StartTime.UTC(), job.Progress, 0, 0, 0,
	)
	return err
}

func (r *PostgresScrapeJobRepository) Finish(ctx context.Context, job *event.ScrapeJob) error {
	if job == nil || job.ID == uuid.Nil {
		return errors.New("nil job")
	}
	finished := time.Now().UTC()
	if job.EndTime != nil {
		finished = job.EndTime.UTC()
	}
	found := job.Results.WebEvents + job.Results.SocialEvents
	_, err := r.db.Exec(ctx,
		`UPDATE scrape_jobs
		 SET status = $2, finished_at = $3, progress = $4, events_found = $5, events_saved = $6, error_count = $7
		 WHERE id = $1`,
		job.ID, string(job.Status), finished, job.Progress, found, job.Results.SavedCount, len(job.Results.Errors),
	)
	return err
}
